package factcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Decomposer splits a claim into verifiable sub-claims
type Decomposer struct {
	llm          llm.Provider
	maxSubClaims int
	logger       *zap.Logger
}

type decomposedClaim struct {
	Claim    string                 `json:"claim"`
	Analysis model.SourcingStrategy `json:"analysis"`
}

// NewDecomposer creates a decomposer. maxSubClaims <= 0 means 5.
func NewDecomposer(provider llm.Provider, maxSubClaims int, logger *zap.Logger) *Decomposer {
	if maxSubClaims <= 0 {
		maxSubClaims = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{llm: provider, maxSubClaims: maxSubClaims, logger: logger}
}

// Decompose returns at least one sub-claim. Any model or parse failure
// yields a single sub-claim wrapping the original text.
func (d *Decomposer) Decompose(ctx context.Context, claim model.Claim) []model.SubClaim {
	raw, err := d.llm.Complete(ctx, decomposePrompt(claim, d.maxSubClaims))
	if err != nil {
		d.logger.Warn("Claim decomposition failed, using whole claim",
			zap.String("claim_id", claim.ID), zap.Error(err))
		return d.fallback(claim)
	}

	parsed, err := parseDecomposition(raw)
	if err != nil || len(parsed) == 0 {
		metrics.ParseFallbacks.WithLabelValues("decomposer").Inc()
		d.logger.Warn("Unparsable decomposition, using whole claim",
			zap.String("claim_id", claim.ID), zap.Error(err))
		return d.fallback(claim)
	}

	if len(parsed) > d.maxSubClaims {
		d.logger.Info("Truncating sub-claims",
			zap.Int("returned", len(parsed)), zap.Int("max", d.maxSubClaims))
		parsed = parsed[:d.maxSubClaims]
	}

	subClaims := make([]model.SubClaim, len(parsed))
	for i, p := range parsed {
		subClaims[i] = model.SubClaim{
			ID:       uuid.NewString(),
			ClaimID:  claim.ID,
			Index:    i,
			Text:     p.Claim,
			Strategy: normalizeStrategy(p.Analysis),
		}
	}
	return subClaims
}

func (d *Decomposer) fallback(claim model.Claim) []model.SubClaim {
	return []model.SubClaim{{
		ID:       uuid.NewString(),
		ClaimID:  claim.ID,
		Index:    0,
		Text:     claim.Text,
		Strategy: model.DefaultStrategy(),
	}}
}

// parseDecomposition accepts a JSON array of sub-claims, a single sub-claim
// object, or an object wrapping the array under "sub_claims" or "claims"
func parseDecomposition(raw string) ([]decomposedClaim, error) {
	var msg json.RawMessage
	if err := llm.DecodeJSON(raw, &msg); err != nil {
		return nil, err
	}

	var items []decomposedClaim
	trimmed := bytes.TrimSpace(msg)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	default:
		var wrapper struct {
			SubClaims []decomposedClaim `json:"sub_claims"`
			Claims    []decomposedClaim `json:"claims"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err == nil && len(wrapper.SubClaims)+len(wrapper.Claims) > 0 {
			items = append(wrapper.SubClaims, wrapper.Claims...)
			break
		}
		var single decomposedClaim
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		items = []decomposedClaim{single}
	}

	out := items[:0]
	for _, it := range items {
		it.Claim = strings.TrimSpace(it.Claim)
		if it.Claim != "" {
			out = append(out, it)
		}
	}
	return out, nil
}

func normalizeStrategy(s model.SourcingStrategy) model.SourcingStrategy {
	def := model.DefaultStrategy()
	if s.MinSources <= 0 {
		s.MinSources = def.MinSources
	}
	if len(s.SourceTypes) == 0 {
		s.SourceTypes = def.SourceTypes
	}
	if len(s.FocusAreas) == 0 {
		s.FocusAreas = def.FocusAreas
	}
	return s
}
