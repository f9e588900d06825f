package model

import "time"

// NoResponseMarker is logged for tool calls that never received a response
const NoResponseMarker = "No response found for this call"

// EvidenceItem records a single tool invocation made while gathering evidence
type EvidenceItem struct {
	CallID    string    `json:"call_id,omitempty"`
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`  // Set when the tool failed
	Cached    bool      `json:"cached,omitempty"` // Served from the tool result cache
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the invocation produced no usable output
func (e EvidenceItem) Failed() bool {
	return e.Error != ""
}

// EvidenceLog is the ordered list of tool invocations for one sub-claim
type EvidenceLog []EvidenceItem

// Failures counts failed invocations
func (l EvidenceLog) Failures() int {
	n := 0
	for _, item := range l {
		if item.Failed() {
			n++
		}
	}
	return n
}

// Evidence is a source the verdict relies on
type Evidence struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
}
