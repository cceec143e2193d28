package domain

import "time"

// Run is the persisted summary of one installer run.
type Run struct {
	ID           string    `json:"id"`
	Host         string    `json:"host"`
	Status       RunStatus `json:"status"`
	SuccessRatio float64   `json:"success_ratio"`
	Outcomes     []Outcome `json:"outcomes"`
	Errors       []string  `json:"errors,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
}

type RunStatus string

const (
	RunStatusCompleted  RunStatus = "completed"
	RunStatusAborted    RunStatus = "aborted"
	RunStatusRolledBack RunStatus = "rolled_back"
)

// Count returns succeeded and failed outcome totals.
func (r *Run) Count() (ok, failed int) {
	for _, o := range r.Outcomes {
		if o.Succeeded {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
