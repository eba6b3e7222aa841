package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BotBlake/jellybench/pkg/models"
)

// ErrNotFound is returned when a submission does not exist.
var ErrNotFound = errors.New("not found")

// SubmissionStore is what the server needs from submission persistence.
type SubmissionStore interface {
	Create(ctx context.Context, record *models.SubmissionRecord) error
	Get(ctx context.Context, id string) (*models.SubmissionRecord, error)
	List(ctx context.Context, limit int) ([]models.SubmissionRecord, error)
	Count(ctx context.Context) (int, error)
}

// Store persists submissions in SQLite.
type Store struct {
	db *DB
}

// NewStore creates a submission store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Create inserts a new submission. The report document is stored verbatim.
func (s *Store) Create(ctx context.Context, record *models.SubmissionRecord) error {
	report, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO submissions (id, token, received_at, report)
		VALUES (?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.Token, record.ReceivedAt, string(report),
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// Get retrieves a submission by ID
func (s *Store) Get(ctx context.Context, id string) (*models.SubmissionRecord, error) {
	query := `
		SELECT id, token, received_at, report
		FROM submissions
		WHERE id = ?
	`

	record := &models.SubmissionRecord{}
	var report string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.Token, &record.ReceivedAt, &report,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if err := json.Unmarshal([]byte(report), &record.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return record, nil
}

// List returns the most recent submissions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.SubmissionRecord, error) {
	query := `
		SELECT id, token, received_at, report
		FROM submissions
		ORDER BY received_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var records []models.SubmissionRecord
	for rows.Next() {
		var record models.SubmissionRecord
		var report string
		if err := rows.Scan(&record.ID, &record.Token, &record.ReceivedAt, &report); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &record.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Count returns how many submissions are stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}
