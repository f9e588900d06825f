package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

type mockVerifier struct {
	failOn string
}

func (m *mockVerifier) Verify(ctx context.Context, claim model.Claim) (*model.RunReport, error) {
	time.Sleep(5 * time.Millisecond)
	if m.failOn != "" && strings.Contains(claim.Text, m.failOn) {
		return nil, errors.New("verify error")
	}
	return &model.RunReport{RunID: "run-" + claim.ID, Claim: claim, Stage: "DONE"}, nil
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{failOn: "bad"}, 2)

	claims := []model.Claim{
		model.NewClaim("first claim", "rep", ""),
		model.NewClaim("bad claim", "rep", ""),
		model.NewClaim("third claim", "rep", ""),
	}

	results := processor.ProcessClaims(context.Background(), claims)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Claim.ID != claims[i].ID {
			t.Errorf("result %d out of order: %s", i, res.Claim.Text)
		}
	}
	if results[0].Error != nil || results[0].Report == nil {
		t.Errorf("expected success for first claim, got %v", results[0].Error)
	}
	if results[1].GetError() == nil {
		t.Error("expected error for bad claim")
	}
}

func TestBatchProcessor_ProcessClaims_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 2)
	if results := processor.ProcessClaims(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessClaims_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	claims := []model.Claim{model.NewClaim("a", "", ""), model.NewClaim("b", "", "")}
	results := processor.ProcessClaims(ctx, claims)
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d is nil", i)
		}
		if res.Report == nil && !errors.Is(res.Error, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Error)
		}
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	content := "# sales claims\nWe lead the SGD 3 billion market\n\n  Our churn is below 2%  \nWe lead the SGD 3 billion market\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	want := []string{"We lead the SGD 3 billion market", "Our churn is below 2%"}
	if len(claims) != len(want) {
		t.Fatalf("expected %d claims, got %d: %v", len(want), len(claims), claims)
	}
	for i := range want {
		if claims[i] != want[i] {
			t.Errorf("claim %d: expected %q, got %q", i, want[i], claims[i])
		}
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadClaimsFromFile("/nonexistent/claims.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	processor := NewBatchProcessor(&mockVerifier{}, 2)
	results, err := processor.ProcessFile(context.Background(), path, "rep-7", "acme")
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Claim.RequesterID != "rep-7" || results[0].Claim.ClientContext != "acme" {
		t.Errorf("requester/context not propagated: %+v", results[0].Claim)
	}
}
