package validate

import "fmt"

// Stage names and trace labels, in pipeline order.
const (
	StageXOR      = "Stage 1"
	StageMath     = "Stage 2"
	StagePosition = "Stage 3"
)

// Result is the structured outcome of one stage check.
type Result struct {
	Stage  string
	Label  string
	Passed bool

	// Reason describes the failure for callers (audit, tests). Empty on
	// pass. Never printed in the trace.
	Reason string

	// Diagnostic is an extra trace line emitted before the verdict line.
	// Only Stage 1 produces one.
	Diagnostic string
}

// Stage1 checks length and exact byte-transform equality against the
// reference plaintext. It fails fast on the first mismatching index and
// reports that index as a diagnostic.
func (c Challenge) Stage1(candidate []byte) Result {
	r := Result{Stage: StageXOR, Label: "XOR validation"}

	if len(candidate) != len(c.Plaintext) {
		r.Reason = "length mismatch"
		r.Diagnostic = "Length mismatch"
		return r
	}

	for i, b := range candidate {
		if Transform(b, c.Key) != c.Plaintext[i] {
			r.Reason = fmt.Sprintf("byte mismatch at %d", i)
			r.Diagnostic = fmt.Sprintf("Mismatch at %d", i)
			return r
		}
	}

	r.Passed = true
	return r
}

// Stage2 decrypts the whole candidate and compares the signed byte sum to
// the target sum. When the decrypted buffer has at least three bytes the
// signed product of its first three bytes modulo 256 is compared to the
// target product; shorter buffers skip that sub-check. No length
// precondition is enforced here.
func (c Challenge) Stage2(candidate []byte) Result {
	r := Result{Stage: StageMath, Label: "Mathematical transformation"}

	decrypted := TransformAll(candidate, c.Key)

	if signedSum(decrypted) != c.TargetSum {
		r.Reason = "sum mismatch"
		return r
	}

	if len(decrypted) >= 3 && signedProduct3(decrypted) != c.TargetProd {
		r.Reason = "product mismatch"
		return r
	}

	r.Passed = true
	return r
}

// Stage3 rejects candidates of the wrong length, then spot-checks the
// structural positions under the same transform as Stage 1.
func (c Challenge) Stage3(candidate []byte) Result {
	r := Result{Stage: StagePosition, Label: "Position validation"}

	if len(candidate) != len(c.Plaintext) {
		r.Reason = "length mismatch"
		return r
	}

	for _, idx := range c.Positions {
		if candidate[idx] != Transform(c.Plaintext[idx], c.Key) {
			r.Reason = fmt.Sprintf("position %d mismatch", idx)
			return r
		}
	}

	r.Passed = true
	return r
}
