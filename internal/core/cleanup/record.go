package cleanup

import "github.com/vietddude/luna/internal/core/ledger"

// Record accumulates the outcome of one cleanup invocation.
// Paths that were already gone are listed in Absent and count neither as
// attempts nor as failures.
type Record struct {
	Attempted     int      `json:"attempted"`
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	Cleaned       []string `json:"cleaned,omitempty"`
	FailedTargets []string `json:"failed_targets,omitempty"`
	Absent        []string `json:"absent,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

func (r *Record) SuccessRatio() float64 {
	return ledger.Ratio(r.Succeeded, r.Attempted)
}

func (r *Record) cleaned(path string) {
	r.Attempted++
	r.Succeeded++
	r.Cleaned = append(r.Cleaned, path)
}

func (r *Record) failed(path string) {
	r.Attempted++
	r.Failed++
	r.FailedTargets = append(r.FailedTargets, path)
}
