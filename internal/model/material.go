package model

import "strings"

// MaterialType is the kind of presentation material to create
type MaterialType string

const (
	MaterialSlide          MaterialType = "slide"
	MaterialInfographic    MaterialType = "infographic"
	MaterialChart          MaterialType = "chart"
	MaterialVideoExplainer MaterialType = "video_explainer"
	MaterialSocialPost     MaterialType = "social_media_post"
	MaterialDeck           MaterialType = "presentation_deck"
)

// ParseMaterialType maps wire values and short aliases to a MaterialType.
// ok is false for unknown values.
func ParseMaterialType(raw string) (MaterialType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "slide":
		return MaterialSlide, true
	case "infographic":
		return MaterialInfographic, true
	case "chart":
		return MaterialChart, true
	case "video_explainer", "video":
		return MaterialVideoExplainer, true
	case "social_media_post", "social_post":
		return MaterialSocialPost, true
	case "presentation_deck", "deck":
		return MaterialDeck, true
	}
	return "", false
}

// Priority ranks how important a recommendation is
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalizes a priority, defaulting to low
func ParsePriority(raw string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank returns the scheduler sort key: high=3, medium=2, low=1
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// RecommendationStatus tracks a recommendation through scheduling
type RecommendationStatus string

const (
	StatusProposed RecommendationStatus = "proposed"
	StatusSelected RecommendationStatus = "selected"
	StatusQueued   RecommendationStatus = "queued" // Did not fit the budget; retained for later
)

// ContentRequirements describes how a material should look
type ContentRequirements struct {
	Style             string   `json:"style"`
	DataVisualization string   `json:"data_visualization"`
	TextAmount        string   `json:"text_amount"`
	ColorScheme       string   `json:"color_scheme"`
	SpecialElements   []string `json:"special_elements"`
}

// MaterialRecommendation is a proposed piece of presentation material
type MaterialRecommendation struct {
	ID               string               `json:"material_id"`
	Type             MaterialType         `json:"material_type"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	ClaimReferences  []string             `json:"claim_references"`
	Requirements     ContentRequirements  `json:"content_requirements"`
	Priority         Priority             `json:"priority"`
	EstimatedMinutes int                  `json:"estimated_time_minutes"`
	Reasoning        string               `json:"reasoning"`
	Status           RecommendationStatus `json:"status"`
}
