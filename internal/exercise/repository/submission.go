package repository

import (
	"context"
	"errors"
	"time"

	"codecampus/internal/common/db"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionExists   = errors.New("submission already exists")
)

// Submission is the persisted record of one judged submission. Rows are
// written once, after the judge verdict is known, and never updated.
type Submission struct {
	SubmissionID string
	UserID       int64
	ProblemID    int64
	Language     string
	Verdict      string
	TimeMs       int64
	MemoryKb     int64
	SourceKey    string
	RequestID    string
	CreatedAt    time.Time
}

// SubmissionRepository defines submission persistence interfaces.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
	GetByID(ctx context.Context, submissionID string) (*Submission, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Submission, error)
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db *db.MySQL
}

// NewSubmissionRepository creates a submission repository.
func NewSubmissionRepository(database *db.MySQL) SubmissionRepository {
	return &MySQLSubmissionRepository{db: database}
}

const submissionColumns = "submission_id, user_id, problem_id, language, verdict, time_ms, memory_kb, source_key, request_id, created_at"

// Create inserts a submission record.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.SubmissionID == "" {
		return errors.New("submissionID is required")
	}
	if submission.UserID <= 0 {
		return errors.New("userID is required")
	}
	if submission.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if submission.Verdict == "" {
		return errors.New("verdict is required")
	}

	query := `
		INSERT INTO submissions
		(submission_id, user_id, problem_id, language, verdict, time_ms, memory_kb, source_key, request_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.DB().ExecContext(
		ctx,
		query,
		submission.SubmissionID,
		submission.UserID,
		submission.ProblemID,
		submission.Language,
		submission.Verdict,
		submission.TimeMs,
		submission.MemoryKb,
		submission.SourceKey,
		submission.RequestID,
	)
	if err != nil {
		// Rows are insert-once; a duplicate key means this submission id
		// was already persisted by a replayed request.
		if _, ok := db.UniqueViolation(err); ok {
			return ErrSubmissionExists
		}
		return err
	}
	return nil
}

// GetByID loads one submission.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New("submissionID is required")
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE submission_id = ?"
	row := r.db.DB().QueryRowContext(ctx, query, submissionID)
	submission, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// ListByUser returns a user's submissions, newest first.
func (r *MySQLSubmissionRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Submission, error) {
	if userID <= 0 {
		return nil, errors.New("userID is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE user_id = ? ORDER BY created_at DESC, submission_id DESC LIMIT ? OFFSET ?"
	rows, err := r.db.DB().QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*Submission
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var submission Submission
	err := row.Scan(
		&submission.SubmissionID,
		&submission.UserID,
		&submission.ProblemID,
		&submission.Language,
		&submission.Verdict,
		&submission.TimeMs,
		&submission.MemoryKb,
		&submission.SourceKey,
		&submission.RequestID,
		&submission.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &submission, nil
}
