// Package cleanup reaps submissions the normal flow can no longer touch:
// rows stuck in processing after a worker crash, along with any image such a
// worker managed to store before finalizing its row.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swayam1998/geoquests/internal/domain/model"
	mediasvc "github.com/swayam1998/geoquests/internal/services/media"
)

const staleReason = "Processing error"

type SubmissionStore interface {
	ExpireStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]model.Submission, error)
}

type ImageDeleter interface {
	DeleteImage(ctx context.Context, key string) error
}

type Job struct {
	store             SubmissionStore
	images            ImageDeleter
	processingTimeout time.Duration
	now               func() time.Time
	logger            *zap.Logger
}

func New(store SubmissionStore, images ImageDeleter, processingTimeout time.Duration, logger *zap.Logger) *Job {
	if processingTimeout <= 0 {
		processingTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		store:             store,
		images:            images,
		processingTimeout: processingTimeout,
		now:               time.Now,
		logger:            logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}

	cutoff := j.now().Add(-j.processingTimeout)
	expired, err := j.store.ExpireStaleProcessing(ctx, cutoff, staleReason)
	if err != nil {
		return fmt.Errorf("expire stale submissions: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}
	j.logger.Info("expired stale processing submissions", zap.Int("count", len(expired)))

	if j.images == nil {
		return nil
	}

	// A worker that died between storing the image and finalizing the row
	// leaves an object behind under the canonical key. Deleting a key that
	// was never written is a no-op, so every expired row gets swept.
	for _, sub := range expired {
		key := mediasvc.ObjectKey(sub.QuestID, sub.ID)
		if err := j.images.DeleteImage(ctx, key); err != nil {
			j.logger.Warn("failed to delete orphaned image",
				zap.Error(err), zap.String("image_key", key))
		}
	}

	return nil
}

// Start runs the job on a fixed interval until the context is cancelled.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup run failed", zap.Error(err))
			}
		}
	}
}
