package materials

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/model"
)

// QueueBuilder turns selected recommendations into generation tasks
type QueueBuilder struct {
	now func() time.Time
}

// NewQueueBuilder creates a queue builder. A nil clock uses time.Now.
func NewQueueBuilder(now func() time.Time) *QueueBuilder {
	if now == nil {
		now = time.Now
	}
	return &QueueBuilder{now: now}
}

// Build returns one task per selected recommendation, in schedule order.
// A non-empty creativeDirection is attached to every task and its instructions.
func (q *QueueBuilder) Build(selected []model.MaterialRecommendation, creativeDirection string) []model.GenerationTask {
	direction := strings.TrimSpace(creativeDirection)
	tasks := make([]model.GenerationTask, 0, len(selected))
	for _, rec := range selected {
		instructions := Instructions(rec)
		if direction != "" {
			instructions += "\n\nCREATIVE DIRECTION FROM THE SALESPERSON:\n" + direction
		}
		tasks = append(tasks, model.GenerationTask{
			ID:                uuid.NewString(),
			RecommendationID:  rec.ID,
			Type:              rec.Type,
			Title:             rec.Title,
			Description:       rec.Description,
			Requirements:      rec.Requirements,
			ClaimReferences:   rec.ClaimReferences,
			Priority:          rec.Priority,
			CreatedAt:         q.now(),
			Instructions:      instructions,
			CreativeDirection: direction,
		})
	}
	return tasks
}

var typeInstructions = map[model.MaterialType]string{
	model.MaterialSlide: `SLIDE CREATION INSTRUCTIONS:
- Create a single, impactful slide
- Include headline, key statistics, and supporting visual
- Use bullet points sparingly (max 3-4 points)
- Ensure text is readable from a distance
- Include source attribution for statistics`,
	model.MaterialInfographic: `INFOGRAPHIC CREATION INSTRUCTIONS:
- Design a visually appealing infographic
- Combine statistics, icons, and minimal text
- Use a clear visual hierarchy
- Include a compelling headline and conclusion
- Optimize for social sharing if applicable`,
	model.MaterialChart: `CHART CREATION INSTRUCTIONS:
- Create clear, accurate data visualizations
- Choose the chart type that fits the data
- Include clear labels and legends
- Use color coding consistently
- Add title and source information`,
	model.MaterialVideoExplainer: `VIDEO CREATION INSTRUCTIONS:
- Create a 30-60 second explainer video
- Include a voice-over script
- Design simple, clean visuals
- Use animations to highlight key points
- End with a call to action`,
	model.MaterialDeck: `PRESENTATION DECK INSTRUCTIONS:
- Create 5-8 slides maximum
- Include title slide, key points, and conclusion
- Keep the design consistent throughout
- Use speaker notes for additional context
- Finish with a next steps slide`,
}

const defaultInstructions = "Create according to best practices for this material type."

// Instructions renders the creation instructions for one recommendation
func Instructions(rec model.MaterialRecommendation) string {
	req := rec.Requirements
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s with the following specifications:\n\n", rec.Type)
	fmt.Fprintf(&b, "Title: %s\n", rec.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", rec.Description)
	b.WriteString("Content Requirements:\n")
	fmt.Fprintf(&b, "- Style: %s\n", orDefault(req.Style, "professional"))
	fmt.Fprintf(&b, "- Data visualization: %s\n", orDefault(req.DataVisualization, "optional"))
	fmt.Fprintf(&b, "- Text amount: %s\n", orDefault(req.TextAmount, "moderate"))
	fmt.Fprintf(&b, "- Color scheme: %s\n", orDefault(req.ColorScheme, "corporate"))
	if len(req.SpecialElements) > 0 {
		fmt.Fprintf(&b, "- Special elements: %s\n", strings.Join(req.SpecialElements, ", "))
	}
	b.WriteString("\n")

	if section, ok := typeInstructions[rec.Type]; ok {
		b.WriteString(section)
	} else {
		b.WriteString(defaultInstructions)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
