package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"codecampus/internal/common/db"
	"codecampus/internal/exercise/repository"
)

func newSubmissionRepo(t *testing.T) (repository.SubmissionRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return repository.NewSubmissionRepository(db.NewMySQLWithDB(mockDB)), mock
}

func submissionColumns() []string {
	return []string{
		"submission_id", "user_id", "problem_id", "language", "verdict",
		"time_ms", "memory_kb", "source_key", "request_id", "created_at",
	}
}

func TestSubmissionRepository_Create(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs("sub-1", int64(42), int64(7), "python", "AC", int64(30), int64(2048), "submissions/sub-1", "sub-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &repository.Submission{
		SubmissionID: "sub-1",
		UserID:       42,
		ProblemID:    7,
		Language:     "python",
		Verdict:      "AC",
		TimeMs:       30,
		MemoryKb:     2048,
		SourceKey:    "submissions/sub-1",
		RequestID:    "sub-1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSubmissionRepository_CreateDuplicateKey(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnError(&mysql.MySQLError{
			Number:  1062,
			Message: "Duplicate entry 'sub-1' for key 'submissions.PRIMARY'",
		})

	err := repo.Create(context.Background(), &repository.Submission{
		SubmissionID: "sub-1",
		UserID:       42,
		ProblemID:    7,
		Verdict:      "AC",
	})
	if !errors.Is(err, repository.ErrSubmissionExists) {
		t.Errorf("err = %v, want ErrSubmissionExists for a replayed insert", err)
	}
}

func TestSubmissionRepository_CreateRejectsIncompleteRows(t *testing.T) {
	repo, _ := newSubmissionRepo(t)

	tests := []struct {
		name       string
		submission *repository.Submission
	}{
		{"nil submission", nil},
		{"missing id", &repository.Submission{UserID: 42, ProblemID: 7, Verdict: "AC"}},
		{"missing user", &repository.Submission{SubmissionID: "s1", ProblemID: 7, Verdict: "AC"}},
		{"missing problem", &repository.Submission{SubmissionID: "s1", UserID: 42, Verdict: "AC"}},
		{"missing verdict", &repository.Submission{SubmissionID: "s1", UserID: 42, ProblemID: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(context.Background(), tt.submission); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSubmissionRepository_GetByID(t *testing.T) {
	repo, mock := newSubmissionRepo(t)
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE submission_id = ?")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionColumns()).
			AddRow("sub-1", int64(42), int64(7), "python", "WA", int64(15), int64(1024), "submissions/sub-1", "sub-1", createdAt))

	submission, err := repo.GetByID(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if submission.Verdict != "WA" || submission.UserID != 42 {
		t.Errorf("submission = %+v", submission)
	}
	if !submission.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want %v", submission.CreatedAt, createdAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSubmissionRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE submission_id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(submissionColumns()))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrSubmissionNotFound) {
		t.Errorf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestSubmissionRepository_ListByUser(t *testing.T) {
	repo, mock := newSubmissionRepo(t)
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE user_id = ?")).
		WithArgs(int64(42), 20, 0).
		WillReturnRows(sqlmock.NewRows(submissionColumns()).
			AddRow("sub-2", int64(42), int64(7), "go", "AC", int64(5), int64(800), "submissions/sub-2", "sub-2", createdAt).
			AddRow("sub-1", int64(42), int64(7), "go", "WA", int64(9), int64(900), "submissions/sub-1", "sub-1", createdAt.Add(-time.Hour)))

	submissions, err := repo.ListByUser(context.Background(), 42, 0, 0)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(submissions) != 2 {
		t.Fatalf("got %d submissions, want 2", len(submissions))
	}
	if submissions[0].SubmissionID != "sub-2" {
		t.Errorf("first submission = %q, want newest first", submissions[0].SubmissionID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
