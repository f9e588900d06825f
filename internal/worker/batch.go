package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Verifier runs the full verification workflow for one claim
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim) (*model.RunReport, error)
}

// VerifyJob verifies one claim
type VerifyJob struct {
	Index    int
	Claim    model.Claim
	Verifier Verifier
}

// Execute executes the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	report, err := j.Verifier.Verify(ctx, j.Claim)
	return &VerifyResult{
		Index:  j.Index,
		Claim:  j.Claim,
		Report: report,
		Error:  err,
	}
}

// VerifyResult is the outcome of a verification job
type VerifyResult struct {
	Index  int
	Claim  model.Claim
	Report *model.RunReport
	Error  error
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies multiple claims concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessClaims verifies claims concurrently and returns results in input order.
// Claims not started before ctx is cancelled are reported with ctx's error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []model.Claim) []*VerifyResult {
	out := make([]*VerifyResult, len(claims))
	if len(claims) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		pool.Submit(&VerifyJob{Index: i, Claim: claim, Verifier: b.verifier})
	}

	for _, result := range pool.Wait() {
		r := result.(*VerifyResult)
		out[r.Index] = r
	}

	for i, r := range out {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("claim %d was not processed", i)
			}
			out[i] = &VerifyResult{Index: i, Claim: claims[i], Error: err}
		}
	}

	return out
}

// ProcessFile reads claims from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath, requesterID, clientContext string) ([]*VerifyResult, error) {
	texts, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	claims := make([]model.Claim, len(texts))
	for i, text := range texts {
		claims[i] = model.NewClaim(text, requesterID, clientContext)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line)
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
