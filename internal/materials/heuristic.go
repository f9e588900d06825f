package materials

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/model"
)

const heuristicReasoning = "Heuristic recommendation based on claim content and context."

// Heuristic builds recommendations from keyword rules without a model.
// It always proposes a presentation deck, so the result is never empty.
func Heuristic(approved []model.Verdict, clientContext string) []model.MaterialRecommendation {
	refs := claimRefs(approved)

	var marketSize, leaderShare bool
	for _, v := range approved {
		text := strings.ToLower(v.ClaimText)
		if strings.Contains(text, "market") && (strings.Contains(text, "billion") || strings.Contains(text, "sgd")) {
			marketSize = true
		}
		if strings.Contains(text, "lead") || strings.Contains(text, "market share") {
			leaderShare = true
		}
	}

	var recs []model.MaterialRecommendation
	add := func(typ model.MaterialType, title, desc string, pr model.Priority, minutes int, req model.ContentRequirements) {
		recs = append(recs, model.MaterialRecommendation{
			ID:               uuid.NewString(),
			Type:             typ,
			Title:            title,
			Description:      desc,
			ClaimReferences:  refs,
			Requirements:     req,
			Priority:         pr,
			EstimatedMinutes: minutes,
			Reasoning:        heuristicReasoning,
			Status:           model.StatusProposed,
		})
	}

	if marketSize {
		add(model.MaterialChart, "Market Size Overview", "Chart showing market size and YoY growth.",
			model.PriorityHigh, 35, dataRequirements())
		add(model.MaterialSlide, "Key Market Statistic", "One-pager slide with the headline figure and source.",
			model.PriorityHigh, 20, dataRequirements())
	}
	if leaderShare {
		add(model.MaterialInfographic, "Market Share Snapshot", "Infographic comparing top players and share.",
			model.PriorityMedium, 40, dataRequirements())
	}

	desc := "5-7 slides summarizing insights tailored to the client."
	if c := strings.TrimSpace(clientContext); c != "" {
		desc = "5-7 slides summarizing insights tailored to the client: " + c
	}
	add(model.MaterialDeck, "Client Opportunity Deck", desc, model.PriorityMedium, 60, model.ContentRequirements{
		Style:             "modern",
		DataVisualization: "optional",
		TextAmount:        "moderate",
		ColorScheme:       "corporate",
		SpecialElements:   []string{"icons", "statistics"},
	})

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func dataRequirements() model.ContentRequirements {
	return model.ContentRequirements{
		Style:             "professional",
		DataVisualization: "required",
		TextAmount:        "moderate",
		ColorScheme:       "corporate",
		SpecialElements:   []string{"charts", "statistics"},
	}
}
