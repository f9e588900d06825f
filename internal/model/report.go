package model

import "time"

// RunReport is the serializable outcome of one claim verification run
type RunReport struct {
	RunID         string    `json:"run_id"`
	Claim         Claim     `json:"claim"`
	Stage         string    `json:"stage"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	BudgetMinutes int       `json:"time_budget_minutes"`

	SubClaims []SubClaim             `json:"sub_claims"`
	Evidence  map[string]EvidenceLog `json:"evidence,omitempty"` // keyed by sub-claim id
	Verdicts  []Verdict              `json:"verdicts"`
	Persisted bool                   `json:"persisted"`

	Recommendations []MaterialRecommendation `json:"recommendations,omitempty"`
	Selected        []MaterialRecommendation `json:"selected,omitempty"`
	Queued          []MaterialRecommendation `json:"queued,omitempty"`
	TotalMinutes    int                      `json:"total_minutes"`
	Tasks           []GenerationTask         `json:"tasks,omitempty"`
	Handoff         *HandoffResult           `json:"handoff,omitempty"`
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
