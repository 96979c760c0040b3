package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"credit-risk/domain"

	_ "github.com/mattn/go-sqlite3"
)

const assessmentsSchema = `
CREATE TABLE IF NOT EXISTS assessments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    assessment_id TEXT NOT NULL,
    model_version TEXT NOT NULL,
    risk_class INTEGER NOT NULL,
    probability REAL NOT NULL,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE(assessment_id)
);
CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
`

// AssessmentRepositorySQLite persists assessments in a SQLite file. The full
// assessment is stored as JSON next to a few queryable columns.
type AssessmentRepositorySQLite struct {
	db *sql.DB
}

// NewAssessmentRepositorySQLite opens (or creates) the database at path.
func NewAssessmentRepositorySQLite(path string) (*AssessmentRepositorySQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(assessmentsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create assessments table: %w", err)
	}
	return &AssessmentRepositorySQLite{db: db}, nil
}

func (r *AssessmentRepositorySQLite) Save(ctx context.Context, assessment domain.Assessment) error {
	payload, err := json.Marshal(assessment)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO assessments (assessment_id, model_version, risk_class, probability, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		assessment.ID,
		assessment.ModelVersion,
		int(assessment.RiskClass),
		assessment.Probability,
		string(payload),
		assessment.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert assessment %s: %w", assessment.ID, err)
	}
	return nil
}

func (r *AssessmentRepositorySQLite) List(ctx context.Context, limit int) ([]domain.Assessment, error) {
	query := `SELECT payload FROM assessments ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assessment
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a domain.Assessment
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssessmentRepositorySQLite) Close() error {
	return r.db.Close()
}
