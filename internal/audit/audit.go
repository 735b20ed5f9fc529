// Package audit records validation attempts as JSON lines.
//
// Auditing is opt-in via the GATE_AUDIT_LOG environment variable and is
// best-effort: a failed write never changes the checker's observable
// behavior. The candidate itself is never written, only its length.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// EnvVar names the environment variable holding the audit log path.
// Auditing is disabled when it is unset or empty.
const EnvVar = "GATE_AUDIT_LOG"

// Attempt is one recorded validation attempt.
type Attempt struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	CandidateLen int       `json:"candidate_len"`
	Accepted     bool      `json:"accepted"`
	FailedStage  string    `json:"failed_stage,omitempty"`
}

// Record appends one attempt record to the file at path, creating it if
// needed. Returns the written attempt.
func Record(path string, candidateLen int, accepted bool, failedStage string) (Attempt, error) {
	attempt := Attempt{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		CandidateLen: candidateLen,
		Accepted:     accepted,
		FailedStage:  failedStage,
	}

	line, err := json.Marshal(attempt)
	if err != nil {
		return Attempt{}, fmt.Errorf("cannot marshal attempt: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return Attempt{}, fmt.Errorf("cannot open audit log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return Attempt{}, fmt.Errorf("cannot write audit log: %w", err)
	}

	return attempt, nil
}
