package factcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestSynthesize(t *testing.T) {
	sc := testSubClaim()
	raw := "1. Overall Verdict: TRUE\n2. Explanation: census"

	tests := []struct {
		name         string
		completion   string
		err          error
		wantLabel    model.Label
		wantApproved bool
		wantFallback bool
		wantEvidence int
	}{
		{
			name: "structured",
			completion: `{"overall_verdict": "TRUE", "explanation": "census confirms", "main_evidence": [
				{"source": "singstat.gov.sg", "summary": "5.9 million residents"}], "pass_to_materials_agent": true}`,
			wantLabel:    model.LabelTrue,
			wantApproved: true,
			wantEvidence: 1,
		},
		{
			name:         "spaced label and string bool",
			completion:   "```json\n{\"overall_verdict\": \"CANNOT BE DETERMINED\", \"explanation\": \"x\", \"pass_to_materials_agent\": \"false\"}\n```",
			wantLabel:    model.LabelUndetermined,
			wantApproved: false,
		},
		{
			name:         "unknown label",
			completion:   `{"overall_verdict": "MOSTLY TRUE", "explanation": "x", "pass_to_materials_agent": true}`,
			wantLabel:    model.LabelUndetermined,
			wantApproved: true,
		},
		{
			name:         "prose",
			completion:   "The claim is true.",
			wantLabel:    model.LabelUndetermined,
			wantFallback: true,
		},
		{
			name:         "missing verdict field",
			completion:   `{"explanation": "x", "pass_to_materials_agent": true}`,
			wantLabel:    model.LabelUndetermined,
			wantFallback: true,
		},
		{
			name:         "model error",
			err:          errors.New("timeout"),
			wantLabel:    model.LabelUndetermined,
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(&scriptedLLM{completions: []string{tt.completion}, completeErr: tt.err}, nil)

			v := s.Synthesize(context.Background(), sc, raw, model.EvidenceLog{{Tool: "wikipedia_search", Input: "q"}})

			if !v.Label.Valid() {
				t.Fatalf("label %q outside domain", v.Label)
			}
			if v.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", v.Label, tt.wantLabel)
			}
			if v.ApprovedForMaterials != tt.wantApproved {
				t.Errorf("ApprovedForMaterials = %v, want %v", v.ApprovedForMaterials, tt.wantApproved)
			}
			if v.Fallback != tt.wantFallback {
				t.Errorf("Fallback = %v, want %v", v.Fallback, tt.wantFallback)
			}
			if tt.wantFallback && v.Explanation != raw {
				t.Errorf("fallback Explanation = %q, want raw verdict", v.Explanation)
			}
			if len(v.Evidence) != tt.wantEvidence {
				t.Errorf("Evidence = %d, want %d", len(v.Evidence), tt.wantEvidence)
			}
			if v.SubClaimID != sc.ID || v.ClaimText != sc.Text {
				t.Errorf("verdict not bound to sub-claim: %+v", v)
			}
		})
	}
}
