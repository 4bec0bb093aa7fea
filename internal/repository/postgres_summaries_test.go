package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var summaryColumns = []string{
	"record_id", "session_id", "checkin_id", "risk_level", "provider_source", "summary", "created_at",
}

func setupMockSummariesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSummariesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresSummariesRepository(db, zap.NewNop())
}

func sampleSummaryJSON(t *testing.T, risk models.RiskLevel) []byte {
	out := models.CareSummaryOutput{
		PatientSummary: models.PatientSummary{OneLiner: "Stable today."},
		Triage:         models.Triage{RiskLevel: risk},
		ProviderSource: models.SourceDemo,
	}
	b, err := json.Marshal(out)
	require.NoError(t, err)
	return b
}

func TestCreateSummary_Success(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &models.SummaryRecord{
		SessionID:      "session-1",
		CheckInID:      "checkin-1",
		RiskLevel:      models.RiskYellow,
		ProviderSource: models.SourceDemoFallback,
	}

	mock.ExpectQuery(`INSERT INTO clinical_summaries`).
		WithArgs(sqlmock.AnyArg(), "session-1", "checkin-1", "yellow", "demo-fallback", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	id, err := repo.CreateSummary(context.Background(), rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.RecordID)
	assert.Equal(t, createdAt, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSummary_RequiresSession(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	_, err := repo.CreateSummary(context.Background(), &models.SummaryRecord{})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSummary_DBError(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO clinical_summaries`).WillReturnError(errors.New("connection reset"))

	_, err := repo.CreateSummary(context.Background(), &models.SummaryRecord{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetLatestSummary_Success(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	createdAt := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows(summaryColumns).AddRow(
		"9b2f0c8e-2d6a-4c1b-9d55-0f1f6b2c7a10", "session-1", "checkin-9", "red", "medgemma-cloud",
		sampleSummaryJSON(t, models.RiskRed), createdAt,
	)
	mock.ExpectQuery(`SELECT`).WithArgs("session-1").WillReturnRows(rows)

	rec, err := repo.GetLatestSummary(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "checkin-9", rec.CheckInID)
	assert.Equal(t, models.RiskRed, rec.RiskLevel)
	assert.Equal(t, models.SourceMedGemmaCloud, rec.ProviderSource)
	assert.Equal(t, "Stable today.", rec.Summary.PatientSummary.OneLiner)
	assert.NotNil(t, rec.Summary.Triage.RedFlags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestSummary_NotFound(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	rec, err := repo.GetLatestSummary(context.Background(), "missing")
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrSummaryNotFound))
}

func TestListSummaries_Paginates(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM clinical_summaries`).
		WithArgs("session-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	now := time.Now().UTC()
	rows := sqlmock.NewRows(summaryColumns).
		AddRow("id-3", "session-1", "c3", "green", "demo", sampleSummaryJSON(t, models.RiskGreen), now).
		AddRow("id-2", "session-1", "c2", "yellow", "demo", sampleSummaryJSON(t, models.RiskYellow), now.Add(-time.Hour))
	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("session-1", 2, 0).
		WillReturnRows(rows)

	recs, total, err := repo.ListSummaries(context.Background(), "session-1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 2)
	assert.Equal(t, "id-3", recs[0].RecordID)
	assert.Equal(t, models.RiskYellow, recs[1].RiskLevel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSummaries_BadSummaryJSON(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`LIMIT`).WillReturnRows(sqlmock.NewRows(summaryColumns).
		AddRow("id-1", "s", "c", "green", "demo", []byte(`{broken`), time.Now()))

	_, _, err := repo.ListSummaries(context.Background(), "s", 1, 10)
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, repo := setupMockSummariesDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS clinical_summaries`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
