package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Store records verification outcomes. Rows are only ever appended.
type Store interface {
	SaveVerdicts(ctx context.Context, claim model.Claim, verdicts []model.Verdict) error
	SaveMaterialsDecision(ctx context.Context, claim model.Claim, recommendations, selected []model.MaterialRecommendation) error
	Close() error
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS claim_verifications (
		verification_id TEXT PRIMARY KEY,
		original_claim TEXT NOT NULL,
		original_claim_id TEXT NOT NULL,
		sub_claim_id TEXT NOT NULL,
		sub_claim TEXT NOT NULL,
		salesperson_id TEXT NOT NULL,
		overall_verdict TEXT NOT NULL,
		explanation TEXT,
		main_evidence TEXT,
		pass_to_materials_agent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS materials_decisions (
		decision_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		salesperson_id TEXT NOT NULL,
		recommendations TEXT NOT NULL,
		selected_materials TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

const insertVerdict = `INSERT INTO claim_verifications
	(verification_id, original_claim, original_claim_id, sub_claim_id, sub_claim, salesperson_id, overall_verdict, explanation, main_evidence, pass_to_materials_agent, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertDecision = `INSERT INTO materials_decisions
	(decision_id, session_id, salesperson_id, recommendations, selected_materials, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

// SQLStore persists to postgres or sqlite3 through sqlx
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open connects to driver/dsn and creates the tables if needed
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection
func New(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{db: db, logger: logger, now: time.Now}
}

// EnsureSchema creates the tables if they do not exist
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// SaveVerdicts appends one row per verdict in a single transaction
func (s *SQLStore) SaveVerdicts(ctx context.Context, claim model.Claim, verdicts []model.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.db.Rebind(insertVerdict)
	now := s.now().UTC()
	for _, v := range verdicts {
		evidence, err := json.Marshal(v.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			uuid.NewString(), claim.Text, claim.ID, v.SubClaimID, v.ClaimText, claim.RequesterID,
			string(v.Label), v.Explanation, string(evidence), v.ApprovedForMaterials, now,
		); err != nil {
			return fmt.Errorf("insert verdict %s: %w", v.SubClaimID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("Verdicts saved", zap.String("claim_id", claim.ID), zap.Int("count", len(verdicts)))
	return nil
}

// SaveMaterialsDecision appends the recommendations and the selection for a claim
func (s *SQLStore) SaveMaterialsDecision(ctx context.Context, claim model.Claim, recommendations, selected []model.MaterialRecommendation) error {
	recs, err := json.Marshal(nonNil(recommendations))
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	sel, err := json.Marshal(nonNil(selected))
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(insertDecision),
		uuid.NewString(), claim.ID, claim.RequesterID, string(recs), string(sel), s.now().UTC(),
	); err != nil {
		return fmt.Errorf("insert materials decision: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nonNil(recs []model.MaterialRecommendation) []model.MaterialRecommendation {
	if recs == nil {
		return []model.MaterialRecommendation{}
	}
	return recs
}
