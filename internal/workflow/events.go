package workflow

import "time"

// Event reports progress of a run
type Event struct {
	RunID    string    `json:"run_id"`
	ClaimID  string    `json:"claim_id"`
	Stage    Stage     `json:"stage"`
	Progress float64   `json:"progress"` // 0..1
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// Observer receives run events. It is called from branch goroutines too, so
// implementations must be safe for concurrent use.
type Observer func(Event)
