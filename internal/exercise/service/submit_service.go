package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"codecampus/internal/common/storage"
	"codecampus/internal/event"
	"codecampus/internal/exercise/repository"
	"codecampus/internal/judge"
	"codecampus/internal/judge/judgepb"
	appErr "codecampus/pkg/errors"
	"codecampus/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSourcePrefix = "submissions"
	defaultMaxCodeBytes = 64 * 1024
	defaultMaxTestCases = 32
	defaultMaxTestBytes = 16 * 1024
)

var supportedLanguages = map[string]bool{
	"c":      true,
	"cpp":    true,
	"java":   true,
	"python": true,
	"go":     true,
}

// JudgeInvoker abstracts the synchronous judge call.
type JudgeInvoker interface {
	Invoke(ctx context.Context, sourceCode, language string, testInputs []string) ([]judge.TestVerdict, error)
}

// EventPublisher abstracts the announce side of submission creation.
type EventPublisher interface {
	Publish(ctx context.Context, action event.Action, data interface{}, requestID string) error
}

// Config holds submit service dependencies and settings.
type Config struct {
	SubmissionRepo repository.SubmissionRepository
	Judge          JudgeInvoker
	Storage        storage.ObjectStorage
	Publisher      EventPublisher

	SourceBucket    string
	SourceKeyPrefix string
	MaxCodeBytes    int
	MaxTestCases    int
	MaxTestBytes    int
}

// SubmitService runs a submission end to end: judge first, then persist,
// archive, and announce.
type SubmitService struct {
	submissionRepo repository.SubmissionRepository
	judge          JudgeInvoker
	storage        storage.ObjectStorage
	publisher      EventPublisher

	sourceBucket    string
	sourceKeyPrefix string
	maxCodeBytes    int
	maxTestCases    int
	maxTestBytes    int
}

// SubmitInput describes a submission request.
type SubmitInput struct {
	UserID     int64
	ProblemID  int64
	Language   string
	SourceCode string
	TestInputs []string
}

// SubmitResult is the outcome of a judged submission.
type SubmitResult struct {
	SubmissionID string
	Verdict      string
	TimeMs       int64
	MemoryKb     int64
	Results      []judge.TestVerdict
}

// NewSubmitService creates a new submit service.
func NewSubmitService(cfg Config) (*SubmitService, error) {
	if cfg.SubmissionRepo == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge client is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if cfg.SourceBucket == "" {
		return nil, fmt.Errorf("source bucket is required")
	}
	if cfg.SourceKeyPrefix == "" {
		cfg.SourceKeyPrefix = defaultSourcePrefix
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.MaxTestCases <= 0 {
		cfg.MaxTestCases = defaultMaxTestCases
	}
	if cfg.MaxTestBytes <= 0 {
		cfg.MaxTestBytes = defaultMaxTestBytes
	}
	return &SubmitService{
		submissionRepo:  cfg.SubmissionRepo,
		judge:           cfg.Judge,
		storage:         cfg.Storage,
		publisher:       cfg.Publisher,
		sourceBucket:    cfg.SourceBucket,
		sourceKeyPrefix: cfg.SourceKeyPrefix,
		maxCodeBytes:    cfg.MaxCodeBytes,
		maxTestCases:    cfg.MaxTestCases,
		maxTestBytes:    cfg.MaxTestBytes,
	}, nil
}

// Submit judges a submission and records the outcome.
//
// The judge call comes first: if it fails for any reason, nothing is
// persisted, archived, or announced, and the caller may safely retry the
// whole request. The announce step is best effort; a submission is valid
// the moment its row exists.
func (s *SubmitService) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if err := s.validateInput(input); err != nil {
		return SubmitResult{}, err
	}

	verdicts, err := s.judge.Invoke(ctx, input.SourceCode, input.Language, input.TestInputs)
	if err != nil {
		return SubmitResult{}, err
	}

	submissionID := uuid.NewString()
	verdict, timeMs, memoryKb := aggregateVerdicts(verdicts)
	sourceKey := s.buildSourceKey(submissionID)

	submission := &repository.Submission{
		SubmissionID: submissionID,
		UserID:       input.UserID,
		ProblemID:    input.ProblemID,
		Language:     input.Language,
		Verdict:      verdict,
		TimeMs:       timeMs,
		MemoryKb:     memoryKb,
		SourceKey:    sourceKey,
		RequestID:    submissionID,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return SubmitResult{}, appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
	}

	s.archiveSource(ctx, submissionID, sourceKey, input.SourceCode)
	s.announce(ctx, submission)

	return SubmitResult{
		SubmissionID: submissionID,
		Verdict:      verdict,
		TimeMs:       timeMs,
		MemoryKb:     memoryKb,
		Results:      verdicts,
	}, nil
}

// GetSubmission returns one submission record.
func (s *SubmitService) GetSubmission(ctx context.Context, submissionID string) (*repository.Submission, error) {
	if submissionID == "" {
		return nil, appErr.ValidationError("submission_id", "required")
	}
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if err == repository.ErrSubmissionNotFound {
			return nil, appErr.New(appErr.SubmissionNotFound)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}
	return submission, nil
}

// ListSubmissions returns a user's submissions, newest first.
func (s *SubmitService) ListSubmissions(ctx context.Context, userID int64, limit, offset int) ([]*repository.Submission, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	submissions, err := s.submissionRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return submissions, nil
}

func (s *SubmitService) validateInput(input SubmitInput) error {
	if input.UserID <= 0 {
		return appErr.ValidationError("user_id", "required")
	}
	if input.ProblemID <= 0 {
		return appErr.ValidationError("problem_id", "required")
	}
	if !supportedLanguages[strings.ToLower(strings.TrimSpace(input.Language))] {
		return appErr.New(appErr.LanguageNotSupported)
	}
	if strings.TrimSpace(input.SourceCode) == "" {
		return appErr.ValidationError("source_code", "required")
	}
	if len(input.SourceCode) > s.maxCodeBytes {
		return appErr.New(appErr.CodeTooLarge)
	}
	if len(input.TestInputs) == 0 {
		return appErr.ValidationError("test_inputs", "required")
	}
	if len(input.TestInputs) > s.maxTestCases {
		return appErr.New(appErr.TooManyTestCases)
	}
	for _, in := range input.TestInputs {
		if len(in) > s.maxTestBytes {
			return appErr.New(appErr.TestCaseTooLarge)
		}
	}
	return nil
}

// archiveSource stores the source for later review. Archive failure does
// not fail the submission; the row is already the source of truth.
func (s *SubmitService) archiveSource(ctx context.Context, submissionID, objectKey, source string) {
	reader := io.NopCloser(strings.NewReader(source))
	defer reader.Close()
	err := s.storage.PutObject(ctx, s.sourceBucket, objectKey, reader, int64(len(source)), "text/plain; charset=utf-8")
	if err != nil {
		logger.Warn(ctx, "archive submission source failed",
			zap.String("submission_id", submissionID),
			zap.Error(err))
	}
}

func (s *SubmitService) announce(ctx context.Context, submission *repository.Submission) {
	data := event.SubmissionCreateData{
		SubmissionID: submission.SubmissionID,
		UserID:       submission.UserID,
		ProblemID:    submission.ProblemID,
		Verdict:      submission.Verdict,
		TimeMs:       submission.TimeMs,
		MemoryKb:     submission.MemoryKb,
	}
	if err := s.publisher.Publish(ctx, event.ActionSubmissionCreate, data, submission.RequestID); err != nil {
		logger.Warn(ctx, "announce submission failed",
			zap.String("submission_id", submission.SubmissionID),
			zap.Error(err))
	}
}

func (s *SubmitService) buildSourceKey(submissionID string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s/%s/%s/source.code", s.sourceKeyPrefix, now.Format("2006/01/02"), submissionID)
}

// aggregateVerdicts collapses per-test verdicts into one submission
// verdict: the first non-accepted status wins, time and memory report the
// worst case across tests.
func aggregateVerdicts(verdicts []judge.TestVerdict) (string, int64, int64) {
	verdict := judgepb.StatusAccepted
	var timeMs, memoryKb int64
	for _, v := range verdicts {
		if verdict == judgepb.StatusAccepted && v.Status != judgepb.StatusAccepted {
			verdict = v.Status
		}
		if v.TimeMs > timeMs {
			timeMs = v.TimeMs
		}
		if v.MemoryKb > memoryKb {
			memoryKb = v.MemoryKb
		}
	}
	return verdict, timeMs, memoryKb
}
