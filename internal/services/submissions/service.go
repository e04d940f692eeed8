// Package submissions runs the submit flow end to end: quest lookup, rate
// limiting, the verification pipeline, image persistence and the write-once
// finalization of the submission row.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	questsvc "github.com/swayam1998/geoquests/internal/services/quests"
	"github.com/swayam1998/geoquests/internal/services/verify"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrQuestNotFound    = errors.New("quest not found")
	ErrQuestNotActive   = errors.New("quest is not active")
	ErrNotFound         = errors.New("submission not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrRateLimited      = errors.New("rate limited")
	ErrAlreadyFinalized = errors.New("submission already finalized")
)

type Store interface {
	InsertProcessing(ctx context.Context, submission model.Submission) error
	FinalizeVerified(ctx context.Context, id uuid.UUID, imageKey string, result model.VerificationResult, qualityScore, contentMatchScore *int, detected, blurred int) error
	FinalizeRejected(ctx context.Context, id uuid.UUID, imageKey, reason string, result model.VerificationResult, qualityScore, contentMatchScore *int, detected, blurred int) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Submission, error)
	ListByQuest(ctx context.Context, questID uuid.UUID, status *enums.SubmissionStatus) ([]model.Submission, error)
}

type QuestProvider interface {
	ActiveQuest(ctx context.Context, id uuid.UUID) (model.Quest, error)
	Get(ctx context.Context, id uuid.UUID) (model.Quest, error)
}

type RateLimiter interface {
	AllowSubmission(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

type Pipeline interface {
	Run(ctx context.Context, attempt verify.Attempt) verify.Outcome
}

type ImageStore interface {
	SaveProcessed(ctx context.Context, questID, submissionID uuid.UUID, data []byte) (string, error)
	SignedURL(ctx context.Context, key string) (string, error)
}

type Dependencies struct {
	Store    Store
	Quests   QuestProvider
	Limiter  RateLimiter
	Pipeline Pipeline
	Images   ImageStore
	Logger   *zap.Logger
}

type Service struct {
	store    Store
	quests   QuestProvider
	limiter  RateLimiter
	pipeline Pipeline
	images   ImageStore
	logger   *zap.Logger
	now      func() time.Time
}

// SubmitInput is one attempt as it arrives from the transport layer. Image
// holds the raw upload bytes.
type SubmitInput struct {
	QuestID       uuid.UUID
	ExplorerID    uuid.UUID
	Image         []byte
	Location      model.Location
	CapturedAt    time.Time
	CaptureMethod enums.CaptureMethod
}

// View is a submission with its image resolved to a signed URL for the
// caller.
type View struct {
	Submission model.Submission
	ImageURL   string
}

// RateLimitedError carries the wait hint alongside ErrRateLimited.
type RateLimitedError struct {
	RetryAfterSec int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSec)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    deps.Store,
		quests:   deps.Quests,
		limiter:  deps.Limiter,
		pipeline: deps.Pipeline,
		images:   deps.Images,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit runs the full flow and returns the finalized submission. The
// verification outcome is always recorded, including rejections; only
// infrastructure failures surface as errors.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (model.Submission, error) {
	if input.QuestID == uuid.Nil || input.ExplorerID == uuid.Nil || len(input.Image) == 0 {
		return model.Submission{}, ErrValidation
	}
	if s.store == nil || s.quests == nil || s.pipeline == nil {
		return model.Submission{}, fmt.Errorf("submission dependencies are not configured")
	}

	quest, err := s.quests.ActiveQuest(ctx, input.QuestID)
	if err != nil {
		switch {
		case errors.Is(err, questsvc.ErrNotFound):
			return model.Submission{}, ErrQuestNotFound
		case errors.Is(err, questsvc.ErrNotActive):
			return model.Submission{}, ErrQuestNotActive
		}
		return model.Submission{}, fmt.Errorf("resolve quest: %w", err)
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowSubmission(ctx, input.ExplorerID)
		if err != nil {
			s.logger.Warn("rate limiter unavailable, allowing submission", zap.Error(err))
		} else if !allowed {
			return model.Submission{}, &RateLimitedError{RetryAfterSec: retryAfter}
		}
	}

	submission := model.Submission{
		ID:            uuid.New(),
		QuestID:       quest.ID,
		ExplorerID:    input.ExplorerID,
		Location:      input.Location,
		CapturedAt:    input.CapturedAt,
		CaptureMethod: input.CaptureMethod,
		Status:        enums.SubmissionStatusProcessing,
		SubmittedAt:   s.now().UTC(),
	}
	if err := s.store.InsertProcessing(ctx, submission); err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}

	outcome := s.pipeline.Run(ctx, verify.Attempt{
		Quest:         quest,
		Image:         input.Image,
		Location:      input.Location,
		CaptureMethod: input.CaptureMethod,
	})

	// Only a verified submission's redacted image reaches storage. A rejected
	// explorer's photo is never persisted.
	imageKey := ""
	if outcome.Status == enums.SubmissionStatusVerified && len(outcome.ProcessedImage) > 0 && s.images != nil {
		key, err := s.images.SaveProcessed(ctx, quest.ID, submission.ID, outcome.ProcessedImage)
		if err != nil {
			s.logger.Error("failed to store processed image", zap.Error(err), zap.String("submission_id", submission.ID.String()))
		} else {
			imageKey = key
		}
	}

	qualityScore := outcome.Result.Quality.Score
	var contentMatchScore *int
	if outcome.Result.AI != nil {
		score := outcome.Result.AI.ContentMatchScore
		contentMatchScore = &score
	}

	switch outcome.Status {
	case enums.SubmissionStatusVerified:
		err = s.store.FinalizeVerified(ctx, submission.ID, imageKey, outcome.Result,
			&qualityScore, contentMatchScore, outcome.Result.Faces.Detected, outcome.Result.Faces.Blurred)
	default:
		reason := "Processing error"
		if outcome.RejectionReason != nil {
			reason = *outcome.RejectionReason
		}
		submission.RejectionReason = &reason
		err = s.store.FinalizeRejected(ctx, submission.ID, imageKey, reason, outcome.Result,
			&qualityScore, contentMatchScore, outcome.Result.Faces.Detected, outcome.Result.Faces.Blurred)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("finalize submission: %w", err)
	}

	submission.Status = outcome.Status
	submission.ImageKey = imageKey
	submission.QualityScore = &qualityScore
	submission.ContentMatchScore = contentMatchScore
	submission.FacesDetected = outcome.Result.Faces.Detected
	submission.FacesBlurred = outcome.Result.Faces.Blurred
	result := outcome.Result
	submission.Result = &result

	s.logger.Info("submission finalized",
		zap.String("submission_id", submission.ID.String()),
		zap.String("quest_id", quest.ID.String()),
		zap.String("status", string(submission.Status)),
	)
	return submission, nil
}

// Get returns one submission. The explorer who made it and the quest creator
// may see it; everyone else gets ErrAccessDenied.
func (s *Service) Get(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (View, error) {
	if id == uuid.Nil || viewer == uuid.Nil {
		return View{}, ErrValidation
	}
	if s.store == nil || s.quests == nil {
		return View{}, fmt.Errorf("submission dependencies are not configured")
	}

	submission, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("get submission: %w", err)
	}

	if submission.ExplorerID != viewer {
		quest, err := s.quests.Get(ctx, submission.QuestID)
		if err != nil || quest.CreatorID != viewer {
			return View{}, ErrAccessDenied
		}
	}

	return s.withImageURL(ctx, submission), nil
}

// ListByQuest returns a quest's submissions to its creator, optionally
// filtered by status.
func (s *Service) ListByQuest(ctx context.Context, questID uuid.UUID, viewer uuid.UUID, status *enums.SubmissionStatus) ([]View, error) {
	if questID == uuid.Nil || viewer == uuid.Nil {
		return nil, ErrValidation
	}
	if s.store == nil || s.quests == nil {
		return nil, fmt.Errorf("submission dependencies are not configured")
	}

	quest, err := s.quests.Get(ctx, questID)
	if err != nil {
		if errors.Is(err, questsvc.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("resolve quest: %w", err)
	}
	if quest.CreatorID != viewer {
		return nil, ErrAccessDenied
	}

	items, err := s.store.ListByQuest(ctx, questID, status)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	views := make([]View, 0, len(items))
	for _, item := range items {
		views = append(views, s.withImageURL(ctx, item))
	}
	return views, nil
}

func (s *Service) withImageURL(ctx context.Context, submission model.Submission) View {
	view := View{Submission: submission}
	if submission.ImageKey == "" || s.images == nil {
		return view
	}

	url, err := s.images.SignedURL(ctx, submission.ImageKey)
	if err != nil {
		s.logger.Warn("failed to sign image url", zap.Error(err), zap.String("image_key", submission.ImageKey))
		return view
	}
	view.ImageURL = url
	return view
}
