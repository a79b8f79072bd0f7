package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"codecampus/internal/common/db"
	"codecampus/internal/media/repository"
)

func newVideoRepo(t *testing.T) (repository.VideoRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return repository.NewVideoRepository(db.NewMySQLWithDB(mockDB)), mock
}

func TestVideoRepository_GetByUUID(t *testing.T) {
	repo, mock := newVideoRepo(t)
	createdAt := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE uuid = ? AND is_deleted = 0")).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uuid", "title", "author_id", "author_name", "source",
			"mimetype", "size_bytes", "is_deleted", "created_at", "updated_at",
		}).AddRow(int64(1), "v1", "Loops", int64(9), "Ada", "videos/v1.mp4", "video/mp4", int64(1024), false, createdAt, createdAt))

	video, err := repo.GetByUUID(context.Background(), "v1")
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}
	if video.ID != 1 || video.Title != "Loops" || video.AuthorName != "Ada" {
		t.Errorf("video = %+v", video)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVideoRepository_GetByUUIDNotFound(t *testing.T) {
	repo, mock := newVideoRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE uuid = ? AND is_deleted = 0")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUUID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrVideoNotFound) {
		t.Errorf("err = %v, want ErrVideoNotFound", err)
	}
}

func TestVideoRepository_FindInteractiveNotFound(t *testing.T) {
	repo, mock := newVideoRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? AND video_id = ?")).
		WithArgs(int64(99), int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindInteractive(context.Background(), 1, 99)
	if !errors.Is(err, repository.ErrInteractiveNotFound) {
		t.Errorf("err = %v, want ErrInteractiveNotFound", err)
	}
}

func TestVideoRepository_AddAnswer(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantInserted bool
	}{
		{"first answer inserts", 1, true},
		{"redelivery touches nothing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newVideoRepo(t)
			mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO interactive_answers (interactive_id, user_id) VALUES (?, ?)")).
				WithArgs(int64(10), int64(42)).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			inserted, err := repo.AddAnswer(context.Background(), 10, 42)
			if err != nil {
				t.Fatalf("AddAnswer() error = %v", err)
			}
			if inserted != tt.wantInserted {
				t.Errorf("inserted = %v, want %v", inserted, tt.wantInserted)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestVideoRepository_AddAnswerRejectsInvalidIDs(t *testing.T) {
	repo, _ := newVideoRepo(t)

	if _, err := repo.AddAnswer(context.Background(), 0, 42); err == nil {
		t.Error("expected error for missing interactive id")
	}
	if _, err := repo.AddAnswer(context.Background(), 10, 0); err == nil {
		t.Error("expected error for missing user id")
	}
}

func TestVideoRepository_AddAnswersForProblem(t *testing.T) {
	repo, mock := newVideoRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO interactive_answers (interactive_id, user_id)")).
		WithArgs(int64(42), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	inserted, err := repo.AddAnswersForProblem(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("AddAnswersForProblem() error = %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVideoRepository_HasAnswer(t *testing.T) {
	repo, mock := newVideoRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM interactive_answers")).
		WithArgs(int64(10), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM interactive_answers")).
		WithArgs(int64(10), int64(43)).
		WillReturnError(sql.ErrNoRows)

	answered, err := repo.HasAnswer(context.Background(), 10, 42)
	if err != nil || !answered {
		t.Errorf("HasAnswer(42) = %v, %v, want true, nil", answered, err)
	}
	answered, err = repo.HasAnswer(context.Background(), 10, 43)
	if err != nil || answered {
		t.Errorf("HasAnswer(43) = %v, %v, want false, nil", answered, err)
	}
}
