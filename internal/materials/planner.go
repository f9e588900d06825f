package materials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// MaxRecommendations caps how many recommendations a plan may contain
const MaxRecommendations = 6

// DefaultMinutes is used when a recommendation carries no usable estimate
const DefaultMinutes = 30

// Mode selects how recommendations are produced
type Mode string

const (
	ModeLLM       Mode = "llm"
	ModeHeuristic Mode = "heuristic"
)

// Planner recommends presentation materials for approved verdicts
type Planner struct {
	llm    llm.Provider
	mode   Mode
	logger *zap.Logger
}

// NewPlanner creates a planner. A nil provider forces heuristic mode.
func NewPlanner(provider llm.Provider, mode Mode, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeLLM
	}
	if provider == nil {
		mode = ModeHeuristic
	}
	return &Planner{llm: provider, mode: mode, logger: logger}
}

// Plan returns up to MaxRecommendations proposed recommendations. It returns
// nil when no verdict is approved. A failed or empty model answer falls back
// to the heuristic rules.
func (p *Planner) Plan(ctx context.Context, approved []model.Verdict, clientContext string) []model.MaterialRecommendation {
	approved = model.Approved(approved)
	if len(approved) == 0 {
		return nil
	}
	if p.mode == ModeHeuristic {
		return Heuristic(approved, clientContext)
	}

	raw, err := p.llm.Complete(ctx, planPrompt(approved, clientContext))
	if err != nil {
		p.logger.Warn("Materials planning failed, using heuristics", zap.Error(err))
		metrics.ParseFallbacks.WithLabelValues("planner").Inc()
		return Heuristic(approved, clientContext)
	}

	recs, err := parseRecommendations(raw)
	if err != nil || len(recs) == 0 {
		p.logger.Warn("Unparsable recommendations, using heuristics", zap.Error(err))
		metrics.ParseFallbacks.WithLabelValues("planner").Inc()
		return Heuristic(approved, clientContext)
	}

	refs := claimRefs(approved)
	out := make([]model.MaterialRecommendation, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.normalize(refs))
	}
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

type rawRecommendation struct {
	ID               string                    `json:"material_id"`
	Type             string                    `json:"material_type"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	ClaimReferences  []string                  `json:"claim_references"`
	Requirements     model.ContentRequirements `json:"content_requirements"`
	Priority         string                    `json:"priority"`
	EstimatedMinutes flexInt                   `json:"estimated_time_minutes"`
	Reasoning        string                    `json:"reasoning"`
}

func (r rawRecommendation) normalize(defaultRefs []string) model.MaterialRecommendation {
	typ, ok := model.ParseMaterialType(r.Type)
	if !ok {
		typ = model.MaterialType(strings.ToLower(strings.TrimSpace(r.Type)))
	}
	rec := model.MaterialRecommendation{
		ID:               strings.TrimSpace(r.ID),
		Type:             typ,
		Title:            r.Title,
		Description:      r.Description,
		ClaimReferences:  r.ClaimReferences,
		Requirements:     r.Requirements,
		Priority:         model.ParsePriority(r.Priority),
		EstimatedMinutes: int(r.EstimatedMinutes),
		Reasoning:        r.Reasoning,
		Status:           model.StatusProposed,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EstimatedMinutes <= 0 {
		rec.EstimatedMinutes = DefaultMinutes
	}
	if len(rec.ClaimReferences) == 0 {
		rec.ClaimReferences = defaultRefs
	}
	return rec
}

// flexInt accepts numbers and numeric strings; anything else decodes as 0
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*n = flexInt(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			*n = 0
			return nil
		}
		*n = flexInt(i)
	default:
		*n = 0
	}
	return nil
}

// parseRecommendations accepts an object with a "recommendations" array or a
// bare array, either directly or embedded in surrounding prose
func parseRecommendations(raw string) ([]rawRecommendation, error) {
	var msg json.RawMessage
	if err := llm.DecodeJSON(raw, &msg); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(msg)
	var recs []rawRecommendation
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
		return recs, nil
	}

	var wrapper struct {
		Recommendations []rawRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	return wrapper.Recommendations, nil
}

func claimRefs(verdicts []model.Verdict) []string {
	refs := make([]string, len(verdicts))
	for i, v := range verdicts {
		refs[i] = v.SubClaimID
	}
	return refs
}

type verifiedClaim struct {
	ClaimID     string      `json:"claim_id"`
	Claim       string      `json:"claim"`
	Verdict     model.Label `json:"verdict"`
	Explanation string      `json:"explanation"`
}

func planPrompt(approved []model.Verdict, clientContext string) string {
	claims := make([]verifiedClaim, len(approved))
	for i, v := range approved {
		claims[i] = verifiedClaim{ClaimID: v.SubClaimID, Claim: v.ClaimText, Verdict: v.Label, Explanation: v.Explanation}
	}
	data, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		data = []byte("[]")
	}

	return fmt.Sprintf(`You are a presentation materials strategist helping a salesperson create compelling materials for a client meeting.

Based on the verified claims below, recommend the most effective presentation materials to create.
Consider the client context and what would be most persuasive and professional.

VERIFIED CLAIMS:
%s

CLIENT CONTEXT:
%s

For each recommendation provide the material type, a title and description, the claim ids it references,
content requirements, a priority and an estimated creation time in minutes.

Output valid JSON in this format:
{
  "recommendations": [
    {
      "material_type": "slide|infographic|chart|video_explainer|social_media_post|presentation_deck",
      "title": "Compelling title",
      "description": "What this material will show",
      "claim_references": ["claim_id"],
      "content_requirements": {
        "style": "professional|modern|minimalist|corporate",
        "data_visualization": "required|optional|none",
        "text_amount": "minimal|moderate|detailed",
        "color_scheme": "corporate|vibrant|monochrome",
        "special_elements": ["charts", "icons", "testimonials", "statistics"]
      },
      "priority": "high|medium|low",
      "estimated_time_minutes": 30,
      "reasoning": "Why this material is recommended"
    }
  ]
}

Recommend 3-6 materials. Focus on quality and impact over quantity.
`, data, clientContext)
}
