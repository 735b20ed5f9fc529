// gate is the challenge checker binary. It validates a single candidate
// password against the built-in challenge and reveals the flag on success.
//
// The stdout trace, exit codes, and flag-file behavior follow the original
// challenge binary exactly, including exiting 0 when validation succeeds
// but the flag file cannot be opened.
package main

import (
	"fmt"
	"os"

	"gate/internal/audit"
	"gate/internal/flagfile"
	"gate/internal/validate"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s <password>\n", os.Args[0])
		os.Exit(1)
	}

	candidate := []byte(os.Args[1])

	outcome := validate.Default().Run(os.Stdout, candidate)
	recordAttempt(candidate, outcome)

	if !outcome.Accepted {
		fmt.Println("\n[-] FAILED! Password incorrect.")
		os.Exit(1)
	}

	fmt.Println("\n[+] SUCCESS! All stages passed!")
	fmt.Print("[+] Here is your flag: ")

	secret, err := flagfile.FirstLine(flagfile.Path())
	if err != nil {
		fmt.Fprint(os.Stderr, "Error: Could not open the flag file.")
	} else {
		fmt.Print(secret)
	}
	fmt.Println()

	os.Exit(0)
}

// recordAttempt appends an audit record when GATE_AUDIT_LOG is set.
// Best-effort: failures only produce a warning on stderr.
func recordAttempt(candidate []byte, outcome validate.Outcome) {
	path := os.Getenv(audit.EnvVar)
	if path == "" {
		return
	}

	if _, err := audit.Record(path, len(candidate), outcome.Accepted, outcome.FailedStage); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record attempt: %v\n", err)
	}
}
