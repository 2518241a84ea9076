// Package audit records scoring requests in Postgres.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS churn_scores (
	id          UUID PRIMARY KEY,
	model_id    TEXT NOT NULL,
	probability DOUBLE PRECISION NOT NULL,
	risk        TEXT NOT NULL,
	profile     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

// Entry is one scored request.
type Entry struct {
	ID          string          `json:"id"`
	ModelID     string          `json:"model_id"`
	Probability float64         `json:"probability"`
	Risk        string          `json:"risk"`
	Profile     json.RawMessage `json:"profile"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Recorder writes entries to the churn_scores table.
type Recorder struct {
	DB *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, url string) (*Recorder, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Recorder{DB: db}, nil
}

func NewRecorder(db *sql.DB) *Recorder { return &Recorder{DB: db} }

// EnsureSchema creates the table if it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: create table: %w", err)
	}
	return nil
}

// Record inserts an entry, filling ID and CreatedAt when empty.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(e.Profile) == 0 {
		e.Profile = json.RawMessage("{}")
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO churn_scores (id, model_id, probability, risk, profile, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.ModelID, e.Probability, e.Risk, []byte(e.Profile), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, model_id, probability, risk, profile, created_at
		 FROM churn_scores ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var profile []byte
		if err := rows.Scan(&e.ID, &e.ModelID, &e.Probability, &e.Risk, &profile, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Profile = profile
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Recorder) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}
