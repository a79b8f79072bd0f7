package repository

import (
	"context"
	"errors"
	"time"

	"codecampus/internal/common/db"
)

var (
	ErrVideoNotFound       = errors.New("video not found")
	ErrInteractiveNotFound = errors.New("interactive not found")
)

// Video is the read model of an uploaded video with its author snapshot.
// Deleted videos keep their row with is_deleted set.
type Video struct {
	ID         int64
	UUID       string
	Title      string
	AuthorID   int64
	AuthorName string
	Source     string
	MimeType   string
	SizeBytes  int64
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interactive is a question pinned to a point in a video, optionally bound
// to a problem so judged submissions count as answers.
type Interactive struct {
	ID          int64
	VideoID     int64
	ProblemID   int64
	Question    string
	StartSecond int64
}

// VideoRepository defines the video aggregate persistence interfaces.
// AddAnswer and AddAnswersForProblem are the only writers of the answer
// set; both are targeted, idempotent appends.
type VideoRepository interface {
	GetByUUID(ctx context.Context, uuid string) (*Video, error)
	ListInteractives(ctx context.Context, videoID int64) ([]*Interactive, error)
	FindInteractive(ctx context.Context, videoID, interactiveID int64) (*Interactive, error)
	CountAnswers(ctx context.Context, interactiveID int64) (int64, error)
	HasAnswer(ctx context.Context, interactiveID, userID int64) (bool, error)
	AddAnswer(ctx context.Context, interactiveID, userID int64) (bool, error)
	AddAnswersForProblem(ctx context.Context, problemID, userID int64) (int64, error)
}

// MySQLVideoRepository implements VideoRepository with MySQL.
type MySQLVideoRepository struct {
	db *db.MySQL
}

// NewVideoRepository creates a video repository.
func NewVideoRepository(database *db.MySQL) VideoRepository {
	return &MySQLVideoRepository{db: database}
}

// GetByUUID loads a video that has not been soft-deleted.
func (r *MySQLVideoRepository) GetByUUID(ctx context.Context, uuid string) (*Video, error) {
	if uuid == "" {
		return nil, errors.New("uuid is required")
	}
	query := `
		SELECT id, uuid, title, author_id, author_name, source, mimetype, size_bytes, is_deleted, created_at, updated_at
		FROM videos
		WHERE uuid = ? AND is_deleted = 0
	`
	var video Video
	err := r.db.DB().QueryRowContext(ctx, query, uuid).Scan(
		&video.ID,
		&video.UUID,
		&video.Title,
		&video.AuthorID,
		&video.AuthorName,
		&video.Source,
		&video.MimeType,
		&video.SizeBytes,
		&video.IsDeleted,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &video, nil
}

// ListInteractives returns a video's interactives in playback order.
func (r *MySQLVideoRepository) ListInteractives(ctx context.Context, videoID int64) ([]*Interactive, error) {
	query := `
		SELECT id, video_id, problem_id, question, start_second
		FROM video_interactives
		WHERE video_id = ?
		ORDER BY start_second ASC, id ASC
	`
	rows, err := r.db.DB().QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactives []*Interactive
	for rows.Next() {
		var item Interactive
		if err := rows.Scan(&item.ID, &item.VideoID, &item.ProblemID, &item.Question, &item.StartSecond); err != nil {
			return nil, err
		}
		interactives = append(interactives, &item)
	}
	return interactives, rows.Err()
}

// FindInteractive locates one interactive within a video.
func (r *MySQLVideoRepository) FindInteractive(ctx context.Context, videoID, interactiveID int64) (*Interactive, error) {
	query := `
		SELECT id, video_id, problem_id, question, start_second
		FROM video_interactives
		WHERE id = ? AND video_id = ?
	`
	var item Interactive
	err := r.db.DB().QueryRowContext(ctx, query, interactiveID, videoID).Scan(
		&item.ID,
		&item.VideoID,
		&item.ProblemID,
		&item.Question,
		&item.StartSecond,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInteractiveNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CountAnswers returns the size of an interactive's answer set.
func (r *MySQLVideoRepository) CountAnswers(ctx context.Context, interactiveID int64) (int64, error) {
	var count int64
	err := r.db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interactive_answers WHERE interactive_id = ?",
		interactiveID,
	).Scan(&count)
	return count, err
}

// HasAnswer reports whether a user already answered an interactive.
func (r *MySQLVideoRepository) HasAnswer(ctx context.Context, interactiveID, userID int64) (bool, error) {
	var one int
	err := r.db.DB().QueryRowContext(ctx,
		"SELECT 1 FROM interactive_answers WHERE interactive_id = ? AND user_id = ?",
		interactiveID, userID,
	).Scan(&one)
	if err != nil {
		if db.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AddAnswer appends a user to one interactive's answer set. The unique
// (interactive_id, user_id) key makes the append atomic and idempotent:
// redelivery touches zero rows and concurrent appends to sibling
// interactives never conflict. Returns whether a row was inserted.
func (r *MySQLVideoRepository) AddAnswer(ctx context.Context, interactiveID, userID int64) (bool, error) {
	if interactiveID <= 0 {
		return false, errors.New("interactiveID is required")
	}
	if userID <= 0 {
		return false, errors.New("userID is required")
	}
	result, err := r.db.DB().ExecContext(ctx,
		"INSERT IGNORE INTO interactive_answers (interactive_id, user_id) VALUES (?, ?)",
		interactiveID, userID,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddAnswersForProblem appends a user to every interactive bound to a
// problem, skipping interactives on deleted videos. Returns how many
// answer rows were inserted.
func (r *MySQLVideoRepository) AddAnswersForProblem(ctx context.Context, problemID, userID int64) (int64, error) {
	if problemID <= 0 {
		return 0, errors.New("problemID is required")
	}
	if userID <= 0 {
		return 0, errors.New("userID is required")
	}
	query := `
		INSERT IGNORE INTO interactive_answers (interactive_id, user_id)
		SELECT vi.id, ?
		FROM video_interactives vi
		JOIN videos v ON v.id = vi.video_id AND v.is_deleted = 0
		WHERE vi.problem_id = ?
	`
	result, err := r.db.DB().ExecContext(ctx, query, userID, problemID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
