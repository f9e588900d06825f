package factcheck

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Synthesizer turns the agent's raw verdict and evidence into a structured verdict
type Synthesizer struct {
	llm     llm.Provider
	sources *SourceClassifier
	logger  *zap.Logger
}

// NewSynthesizer creates a synthesizer
func NewSynthesizer(provider llm.Provider, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{llm: provider, sources: NewSourceClassifier(nil), logger: logger}
}

// WithSources replaces the classifier used to summarize source coverage
func (s *Synthesizer) WithSources(c *SourceClassifier) *Synthesizer {
	if c != nil {
		s.sources = c
	}
	return s
}

type synthesized struct {
	Verdict     string           `json:"overall_verdict"`
	Explanation string           `json:"explanation"`
	Evidence    []model.Evidence `json:"main_evidence"`
	Pass        flexBool         `json:"pass_to_materials_agent"`
}

// flexBool accepts true/false as booleans or strings
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		*b = flexBool(s == "true" || s == "yes")
	default:
		*b = false
	}
	return nil
}

// Synthesize always returns a verdict. When the model fails or its output
// cannot be parsed, the verdict is CANNOT_BE_DETERMINED, not approved, and
// carries the raw verdict text as its explanation.
func (s *Synthesizer) Synthesize(ctx context.Context, sc model.SubClaim, rawVerdict string, log model.EvidenceLog) model.Verdict {
	logger := s.logger.With(zap.String("sub_claim_id", sc.ID))

	coverage := s.sources.Coverage(sc.Strategy, log)
	if !coverage.Sufficient() {
		logger.Debug("Evidence below requested source count",
			zap.Int("sources", coverage.Sources),
			zap.Int("needed", coverage.Needed),
			zap.Strings("missing", coverage.Missing))
	}

	out, err := s.llm.Complete(ctx, synthesizePrompt(rawVerdict, log, coverage))
	if err != nil {
		logger.Warn("Verdict synthesis failed", zap.Error(err))
		metrics.ParseFallbacks.WithLabelValues("synthesizer").Inc()
		return model.UndeterminedVerdict(sc, rawVerdict)
	}

	var parsed synthesized
	if err := llm.DecodeJSON(out, &parsed); err != nil || strings.TrimSpace(parsed.Verdict) == "" {
		logger.Warn("Unparsable verdict, using fallback", zap.Error(err))
		metrics.ParseFallbacks.WithLabelValues("synthesizer").Inc()
		return model.UndeterminedVerdict(sc, rawVerdict)
	}

	evidence := parsed.Evidence
	if evidence == nil {
		evidence = []model.Evidence{}
	}
	return model.Verdict{
		SubClaimID:           sc.ID,
		ClaimText:            sc.Text,
		Label:                model.ParseLabel(parsed.Verdict),
		Explanation:          parsed.Explanation,
		Evidence:             evidence,
		ApprovedForMaterials: bool(parsed.Pass),
	}
}
