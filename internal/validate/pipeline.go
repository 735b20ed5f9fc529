package validate

import (
	"fmt"
	"io"
)

// Outcome is the result of running the full validation pipeline.
type Outcome struct {
	Accepted bool

	// Results holds one entry per executed stage, in order. A failed
	// stage is the last entry.
	Results []Result

	// FailedStage names the stage that rejected the candidate, empty
	// when accepted.
	FailedStage string
}

// Run executes the three stages in fixed order, short-circuiting at the
// first failure, and writes the reference binary's progress trace to w.
// Validation is pure: the same candidate always yields the same outcome
// and the same trace bytes.
func (c Challenge) Run(w io.Writer, candidate []byte) Outcome {
	fmt.Fprintln(w, "[*] Starting validation process...")

	stages := []func([]byte) Result{c.Stage1, c.Stage2, c.Stage3}

	var out Outcome
	for _, stage := range stages {
		r := stage(candidate)
		out.Results = append(out.Results, r)

		fmt.Fprintf(w, "[*] %s: %s...\n", r.Stage, r.Label)
		if r.Diagnostic != "" {
			fmt.Fprintf(w, "[DEBUG] %s: %s\n", r.Stage, r.Diagnostic)
		}

		if !r.Passed {
			fmt.Fprintf(w, "[-] %s failed!\n", r.Stage)
			out.FailedStage = r.Stage
			return out
		}
		fmt.Fprintf(w, "[+] %s passed!\n", r.Stage)
	}

	out.Accepted = true
	return out
}
