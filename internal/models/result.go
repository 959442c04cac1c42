package models

// RecordFailure pairs a record the destination rejected with the reason.
type RecordFailure struct {
	Post   CanonicalPost `json:"post"`
	Reason string        `json:"reason"`
}

// LoadResult is the outcome of one batch load.
type LoadResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Total     int             `json:"total"`
	Failures  []RecordFailure `json:"failures"`

	// Aborted is set when the circuit breaker stopped the batch early.
	Aborted bool `json:"aborted"`
}

// Attempted is the number of writes actually issued.
func (r *LoadResult) Attempted() int {
	return r.Succeeded + r.Failed
}

// SuccessRate returns successes / total as a percentage.
func (r *LoadResult) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total) * 100
}
