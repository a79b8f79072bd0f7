package service

import (
	"context"
	"errors"
	"fmt"

	"codecampus/internal/media/repository"
	appErr "codecampus/pkg/errors"
)

// VideoView is the assembled read model of a video and its interactives.
type VideoView struct {
	UUID         string            `json:"uuid"`
	Title        string            `json:"title"`
	AuthorID     int64             `json:"author_id"`
	AuthorName   string            `json:"author_name"`
	Source       string            `json:"source"`
	MimeType     string            `json:"mimetype"`
	SizeBytes    int64             `json:"size_bytes"`
	Interactives []InteractiveView `json:"interactives"`
}

// InteractiveView is one interactive with its answer count.
type InteractiveView struct {
	InteractiveID int64  `json:"interactive_id"`
	ProblemID     int64  `json:"problem_id,omitempty"`
	Question      string `json:"question"`
	StartSecond   int64  `json:"start_second"`
	AnswerCount   int64  `json:"answer_count"`
	Answered      bool   `json:"answered"`
}

// VideoService serves the video read model.
type VideoService struct {
	videoRepo repository.VideoRepository
}

// NewVideoService creates a video service.
func NewVideoService(videoRepo repository.VideoRepository) (*VideoService, error) {
	if videoRepo == nil {
		return nil, fmt.Errorf("video repository is required")
	}
	return &VideoService{videoRepo: videoRepo}, nil
}

// GetVideo loads a video with its interactives for the given viewer.
func (s *VideoService) GetVideo(ctx context.Context, uuid string, viewerID int64) (*VideoView, error) {
	if uuid == "" {
		return nil, appErr.ValidationError("uuid", "required")
	}
	video, err := s.videoRepo.GetByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return nil, appErr.New(appErr.VideoNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "load video failed")
	}

	interactives, err := s.videoRepo.ListInteractives(ctx, video.ID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list interactives failed")
	}

	view := &VideoView{
		UUID:         video.UUID,
		Title:        video.Title,
		AuthorID:     video.AuthorID,
		AuthorName:   video.AuthorName,
		Source:       video.Source,
		MimeType:     video.MimeType,
		SizeBytes:    video.SizeBytes,
		Interactives: make([]InteractiveView, 0, len(interactives)),
	}
	for _, item := range interactives {
		count, err := s.videoRepo.CountAnswers(ctx, item.ID)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "count answers failed")
		}
		answered := false
		if viewerID > 0 {
			answered, err = s.videoRepo.HasAnswer(ctx, item.ID, viewerID)
			if err != nil {
				return nil, appErr.Wrapf(err, appErr.DatabaseError, "check answer failed")
			}
		}
		view.Interactives = append(view.Interactives, InteractiveView{
			InteractiveID: item.ID,
			ProblemID:     item.ProblemID,
			Question:      item.Question,
			StartSecond:   item.StartSecond,
			AnswerCount:   count,
			Answered:      answered,
		})
	}
	return view, nil
}
