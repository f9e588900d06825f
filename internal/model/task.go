package model

import "time"

// GenerationTask is one fully specified unit of work for the content generator
type GenerationTask struct {
	ID                string              `json:"task_id"`
	RecommendationID  string              `json:"material_id"`
	Type              MaterialType        `json:"type"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Requirements      ContentRequirements `json:"content_requirements"`
	ClaimReferences   []string            `json:"claim_references"`
	Priority          Priority            `json:"priority"`
	CreatedAt         time.Time           `json:"created_at"`
	Instructions      string              `json:"instructions"`
	CreativeDirection string              `json:"user_prompt,omitempty"`
}

// HandoffStatus values reported back by the content generator
const (
	HandoffSuccess = "success"
	HandoffQueued  = "queued"
	HandoffSkipped = "skipped"
	HandoffFailed  = "failed"
)

// HandoffResult is what the content-generation collaborator reports back
type HandoffResult struct {
	Status         string   `json:"status"`
	GeneratedFiles []string `json:"generated_files,omitempty"`
	TaskCount      int      `json:"task_count"`
	GeneratedCount int      `json:"generation_count"`
	Message        string   `json:"message,omitempty"`
}
