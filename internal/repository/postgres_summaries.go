package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SummariesSchema clinical_summaries 表结构（启动时 EnsureSchema 执行）
const SummariesSchema = `
CREATE TABLE IF NOT EXISTS clinical_summaries (
	record_id       UUID PRIMARY KEY,
	session_id      TEXT NOT NULL,
	checkin_id      TEXT NOT NULL DEFAULT '',
	risk_level      TEXT NOT NULL,
	provider_source TEXT NOT NULL,
	summary         JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_clinical_summaries_session_created
	ON clinical_summaries (session_id, created_at DESC);
`

// PostgresSummariesRepository SummariesRepository 的 Postgres 实现
type PostgresSummariesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSummariesRepository 创建 Repository
func NewPostgresSummariesRepository(db *sql.DB, logger *zap.Logger) *PostgresSummariesRepository {
	return &PostgresSummariesRepository{db: db, logger: logger}
}

var _ SummariesRepository = (*PostgresSummariesRepository)(nil)

// EnsureSchema 建表
func (r *PostgresSummariesRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SummariesSchema); err != nil {
		return fmt.Errorf("failed to create clinical_summaries: %w", err)
	}
	return nil
}

func (r *PostgresSummariesRepository) CreateSummary(ctx context.Context, rec *models.SummaryRecord) (string, error) {
	if rec == nil || rec.SessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}

	summaryJSON, err := json.Marshal(rec.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO clinical_summaries (record_id, session_id, checkin_id, risk_level, provider_source, summary)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb)
		RETURNING created_at
	`
	var createdAt time.Time
	err = r.db.QueryRowContext(ctx, query,
		rec.RecordID,
		rec.SessionID,
		rec.CheckInID,
		string(rec.RiskLevel),
		string(rec.ProviderSource),
		summaryJSON,
	).Scan(&createdAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert clinical summary: %w", err)
	}
	rec.CreatedAt = createdAt

	r.logger.Debug("Clinical summary saved",
		zap.String("record_id", rec.RecordID),
		zap.String("session_id", rec.SessionID),
		zap.String("risk_level", string(rec.RiskLevel)),
	)
	return rec.RecordID, nil
}

func (r *PostgresSummariesRepository) GetLatestSummary(ctx context.Context, sessionID string) (*models.SummaryRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	query := `
		SELECT
			record_id::text,
			session_id,
			checkin_id,
			risk_level,
			provider_source,
			summary,
			created_at
		FROM clinical_summaries
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec, err := scanSummary(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get latest clinical summary: %w", err)
	}
	return rec, nil
}

func (r *PostgresSummariesRepository) ListSummaries(ctx context.Context, sessionID string, page, size int) ([]*models.SummaryRecord, int, error) {
	if sessionID == "" {
		return nil, 0, fmt.Errorf("session_id is required")
	}
	page, size = normalizePage(page, size)

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clinical_summaries WHERE session_id = $1`, sessionID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count clinical summaries: %w", err)
	}

	query := `
		SELECT
			record_id::text,
			session_id,
			checkin_id,
			risk_level,
			provider_source,
			summary,
			created_at
		FROM clinical_summaries
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clinical summaries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SummaryRecord, 0, size)
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan clinical summary: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate clinical summaries: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*models.SummaryRecord, error) {
	var (
		rec         models.SummaryRecord
		riskLevel   string
		source      string
		summaryJSON []byte
	)
	if err := row.Scan(
		&rec.RecordID,
		&rec.SessionID,
		&rec.CheckInID,
		&riskLevel,
		&source,
		&summaryJSON,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.RiskLevel = models.RiskLevel(riskLevel)
	rec.ProviderSource = models.ProviderSource(source)
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &rec.Summary); err != nil {
			return nil, fmt.Errorf("invalid summary json for %s: %w", rec.RecordID, err)
		}
	}
	rec.Summary.Normalize()
	return &rec, nil
}
