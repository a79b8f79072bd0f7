package service

import (
	"context"
	"errors"
	"fmt"

	"codecampus/internal/event"
	"codecampus/internal/media/repository"
	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"

	"go.uber.org/zap"
)

// AnswerUpdater applies answer events to the video aggregate. It is the
// sole writer of the interactive answer sets; every append goes through a
// targeted, key-guarded insert so redelivery and concurrent siblings are
// both safe without a global lock.
type AnswerUpdater struct {
	videoRepo repository.VideoRepository
}

// NewAnswerUpdater creates an answer updater.
func NewAnswerUpdater(videoRepo repository.VideoRepository) (*AnswerUpdater, error) {
	if videoRepo == nil {
		return nil, fmt.Errorf("video repository is required")
	}
	return &AnswerUpdater{videoRepo: videoRepo}, nil
}

// RegisterHandlers binds this updater's actions on a dispatcher.
func (u *AnswerUpdater) RegisterHandlers(d *event.Dispatcher) error {
	if err := d.Register(event.ActionAnswerQuestion, u.HandleAnswerQuestion); err != nil {
		return err
	}
	return d.Register(event.ActionSubmissionCreate, u.HandleSubmissionCreate)
}

// HandleAnswerQuestion records that a user answered one interactive.
//
// Failure classification follows the envelope's lifecycle: a payload that
// can never validate, a video deleted since the event was produced, or an
// interactive that does not exist are permanent and get dropped upstream;
// storage errors are transient and go back to the broker's retry path.
func (u *AnswerUpdater) HandleAnswerQuestion(ctx context.Context, env *event.Envelope) error {
	var data event.AnswerQuestionData
	if err := env.DecodeData(&data); err != nil {
		return err
	}
	if data.VideoID == "" {
		return appErr.ValidationError("videoId", "required")
	}
	if data.InteractiveID <= 0 {
		return appErr.ValidationError("interactiveId", "required")
	}
	if data.UserID <= 0 {
		return appErr.ValidationError("userId", "required")
	}

	video, err := u.videoRepo.GetByUUID(ctx, data.VideoID)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return appErr.New(appErr.VideoNotFound).
				WithDetail("video_id", data.VideoID).
				WithDetail("request_id", env.RequestID)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "load video failed")
	}

	interactive, err := u.videoRepo.FindInteractive(ctx, video.ID, data.InteractiveID)
	if err != nil {
		if errors.Is(err, repository.ErrInteractiveNotFound) {
			return appErr.New(appErr.InteractiveNotFound).
				WithDetail("video_id", data.VideoID).
				WithDetail("interactive_id", data.InteractiveID)
		}
		return appErr.Wrapf(err, appErr.DatabaseError, "find interactive failed")
	}

	inserted, err := u.videoRepo.AddAnswer(ctx, interactive.ID, data.UserID)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "record answer failed")
	}
	if !inserted {
		logger.Debug(ctx, "answer already recorded",
			zap.Int64("interactive_id", interactive.ID),
			zap.Int64("user_id", data.UserID),
			zap.String("request_id", env.RequestID))
		return nil
	}
	logger.Info(ctx, "answer recorded",
		zap.Int64("interactive_id", interactive.ID),
		zap.Int64("user_id", data.UserID),
		zap.String("request_id", env.RequestID))
	return nil
}

// HandleSubmissionCreate counts a judged submission as answering every
// interactive bound to the submitted problem. A problem with no bound
// interactives is a normal no-op.
func (u *AnswerUpdater) HandleSubmissionCreate(ctx context.Context, env *event.Envelope) error {
	var data event.SubmissionCreateData
	if err := env.DecodeData(&data); err != nil {
		return err
	}
	if data.ProblemID <= 0 {
		return appErr.ValidationError("problemId", "required")
	}
	if data.UserID <= 0 {
		return appErr.ValidationError("userId", "required")
	}

	inserted, err := u.videoRepo.AddAnswersForProblem(ctx, data.ProblemID, data.UserID)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "record submission answers failed")
	}
	if inserted > 0 {
		logger.Info(ctx, "submission answers recorded",
			zap.Int64("problem_id", data.ProblemID),
			zap.Int64("user_id", data.UserID),
			zap.Int64("inserted", inserted),
			zap.String("request_id", env.RequestID))
	}
	return nil
}
