package factcheck

import (
	"strings"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestSourceClassifier_Classify(t *testing.T) {
	c := NewSourceClassifier(map[string]string{
		"www.marketwatch-sg.com": "news",
		"reuters.com":            "reference",
	})

	tests := []struct {
		url  string
		want SourceType
	}{
		{"https://en.wikipedia.org/wiki/Singapore", SourceReference},
		{"https://www.singstat.gov.sg/find-data", SourceGovernment},
		{"https://www.census.gov/data", SourceGovernment},
		{"https://www.nus.edu.sg/research", SourceAcademic},
		{"https://www.ox.ac.uk/news", SourceAcademic},
		{"https://doi.org/10.1234/abc", SourceAcademic},
		{"https://data.worldbank.org/indicator", SourceGovernment},
		{"https://marketwatch-sg.com/story", SourceNews},
		{"https://www.reuters.com/markets", SourceReference},
		{"https://example.com/blog", SourceOther},
		{"not a url", SourceOther},
		{"https://en.wikipedia.org:443/wiki/X", SourceReference},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := c.Classify(tt.url); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestSourceClassifier_Coverage(t *testing.T) {
	c := NewSourceClassifier(nil)
	strategy := model.SourcingStrategy{
		MinSources:  3,
		SourceTypes: []string{"news", "academic", "government"},
	}
	log := model.EvidenceLog{
		{Tool: "web_page", Input: "https://www.singstat.gov.sg/pop", Output: "Population 5.9m"},
		{Tool: "web_page", Input: "https://www.singstat.gov.sg/pop", Output: "Population 5.9m", Cached: true},
		{Tool: "news_search", Input: "singapore population", Output: "1. Reuters: Singapore population rises"},
		{Tool: "wikipedia_search", Input: "Singapore", Output: "See https://en.wikipedia.org/wiki/Singapore."},
		{Tool: "web_page", Input: "https://www.nature.com/x", Error: "403 Forbidden"},
	}

	cov := c.Coverage(strategy, log)

	if cov.Sources != 3 {
		t.Errorf("Sources = %d, want 3", cov.Sources)
	}
	if cov.Counts[SourceGovernment] != 1 || cov.Counts[SourceNews] != 1 || cov.Counts[SourceReference] != 1 {
		t.Errorf("Counts = %v", cov.Counts)
	}
	if len(cov.Missing) != 1 || cov.Missing[0] != "academic" {
		t.Errorf("Missing = %v, want [academic]", cov.Missing)
	}
	if !cov.Sufficient() {
		t.Error("expected coverage to be sufficient")
	}

	s := cov.String()
	for _, want := range []string{"3 of 3 sources", "government 1", "news 1", "reference 1", "not consulted: academic"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestSourceCoverage_Empty(t *testing.T) {
	cov := NewSourceClassifier(nil).Coverage(model.DefaultStrategy(), model.EvidenceLog{
		{Tool: "web_page", Input: "https://example.com", Error: model.NoResponseMarker},
	})

	if cov.Sufficient() {
		t.Error("empty coverage should not be sufficient")
	}
	if len(cov.Missing) != 3 {
		t.Errorf("Missing = %v", cov.Missing)
	}
	if got := cov.String(); got != "no usable sources (3 needed)" {
		t.Errorf("String() = %q", got)
	}
}

func TestSynthesize_PromptIncludesCoverage(t *testing.T) {
	provider := &scriptedLLM{completions: []string{`{"overall_verdict": "TRUE", "explanation": "x", "pass_to_materials_agent": true}`}}
	s := NewSynthesizer(provider, nil)

	s.Synthesize(t.Context(), testSubClaim(), "1. Overall Verdict: TRUE", model.EvidenceLog{
		{Tool: "web_page", Input: "https://www.singstat.gov.sg/pop", Output: "5.9m"},
	})

	if len(provider.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "Source Coverage: 1 of") {
		t.Errorf("prompt missing coverage line:\n%s", provider.prompts[0])
	}
}
