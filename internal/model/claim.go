package model

import (
	"strings"

	"github.com/google/uuid"
)

// Claim is a factual assertion submitted for verification
type Claim struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	RequesterID   string `json:"requester_id"`             // Salesperson or other requester
	ClientContext string `json:"client_context,omitempty"` // Background only, never verified
}

// NewClaim creates a claim with a fresh ID
func NewClaim(text, requesterID, clientContext string) Claim {
	return Claim{
		ID:            uuid.NewString(),
		Text:          strings.TrimSpace(text),
		RequesterID:   requesterID,
		ClientContext: clientContext,
	}
}

// SourcingStrategy tells the evidence gatherer what to look for
type SourcingStrategy struct {
	MinSources  int      `json:"num_sources_needed"`
	SourceTypes []string `json:"source_types"`
	FocusAreas  []string `json:"focus_areas"`
}

// DefaultStrategy is used when the decomposer cannot produce one
func DefaultStrategy() SourcingStrategy {
	return SourcingStrategy{
		MinSources:  3,
		SourceTypes: []string{"news", "academic", "government"},
		FocusAreas:  []string{"accuracy", "context"},
	}
}

// SubClaim is an independently verifiable fragment of a Claim
type SubClaim struct {
	ID       string           `json:"id"`
	ClaimID  string           `json:"claim_id"`
	Index    int              `json:"index"` // Position in the decomposition (0-based)
	Text     string           `json:"text"`
	Strategy SourcingStrategy `json:"strategy"`
}
