package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
	pkgch "SmartLoan/pkg/clickhouse"
	applogger "SmartLoan/pkg/logger"
)

const decisionsTable = "loan_decisions"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CHDecisionStore writes one audit row per decision to ClickHouse.
type CHDecisionStore struct {
	db       execer
	database string
	timeout  time.Duration
	close    func() error
	l        *applogger.Logger
}

func NewCHDecisionStore(ch *pkgch.Client, l *applogger.Logger) *CHDecisionStore {
	return &CHDecisionStore{
		db:       ch.DB(),
		database: ch.Database(),
		timeout:  ch.WriteTimeout(),
		close:    ch.Close,
		l:        l,
	}
}

func (s *CHDecisionStore) table() string {
	return s.database + "." + decisionsTable
}

// SchemaStatements returns the DDL for the audit table.
func (s *CHDecisionStore) SchemaStatements() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID,
			created_at DateTime64(3, 'UTC'),
			status LowCardinality(String),
			reason String,
			approval_probability Nullable(Float64),
			fraud_label Int8,
			approval_label Nullable(Int8),
			income Float64,
			loan_amount Float64,
			credit_score Float64,
			tenure Float64,
			backend LowCardinality(String)
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (created_at, id)`, s.table()),
	}
}

func (s *CHDecisionStore) Init(ctx context.Context) error {
	for _, stmt := range s.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init decision schema: %w", err)
		}
	}
	return nil
}

// Record inserts d. The insert is bounded by the client write timeout.
func (s *CHDecisionStore) Record(ctx context.Context, d *models.Decision) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	feats := d.Features.Map()
	var approvalLabel any
	if d.ApprovalLabel != nil {
		approvalLabel = int8(*d.ApprovalLabel)
	}
	var proba any
	if d.Probability != nil {
		proba = *d.Probability
	}

	q := fmt.Sprintf(`INSERT INTO %s (id, created_at, status, reason, approval_probability, fraud_label,
		approval_label, income, loan_amount, credit_score, tenure, backend) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table())
	_, err := s.db.ExecContext(ctx, q,
		d.ID,
		d.CreatedAt,
		string(d.Status),
		d.Reason,
		proba,
		int8(d.FraudLabel),
		approvalLabel,
		feats[models.FeatureIncome],
		feats[models.FeatureLoanAmount],
		feats[models.FeatureCreditScore],
		feats[models.FeatureTenure],
		d.Backend,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert decision error",
				applogger.String("table", s.table()),
				applogger.String("decision_id", d.ID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *CHDecisionStore) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

var _ domrepo.DecisionStore = (*CHDecisionStore)(nil)
