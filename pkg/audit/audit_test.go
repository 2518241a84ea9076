package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO churn_scores").
		WithArgs("id-1", "model-1", 0.73, "high", []byte(`{"contract":"Month-to-month"}`), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := NewRecorder(db)
	err = r.Record(context.Background(), Entry{
		ID:          "id-1",
		ModelID:     "model-1",
		Probability: 0.73,
		Risk:        "high",
		Profile:     json.RawMessage(`{"contract":"Month-to-month"}`),
		CreatedAt:   at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO churn_scores").
		WithArgs(sqlmock.AnyArg(), "m", 0.1, "low", []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewRecorder(db).Record(context.Background(), Entry{ModelID: "m", Probability: 0.1, Risk: "low"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO churn_scores").WillReturnError(errors.New("connection reset"))
	err = NewRecorder(db).Record(context.Background(), Entry{ModelID: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS churn_scores").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewRecorder(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "model_id", "probability", "risk", "profile", "created_at"}).
		AddRow("a", "m", 0.6, "high", []byte(`{}`), at).
		AddRow("b", "m", 0.3, "moderate", []byte(`{"x":1}`), at.Add(-time.Minute))
	mock.ExpectQuery("SELECT id, model_id, probability, risk, profile, created_at").
		WithArgs(2).
		WillReturnRows(rows)

	got, err := NewRecorder(db).Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "moderate", got[1].Risk)
	assert.JSONEq(t, `{"x":1}`, string(got[1].Profile))
	assert.NoError(t, mock.ExpectationsWereMet())
}
