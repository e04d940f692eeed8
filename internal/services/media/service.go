// Package media persists processed submission images in object storage.
// Only the redacted bytes ever reach storage; the original upload stays in
// memory for the duration of the pipeline and is then discarded.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation error")

const (
	imageContentType = "image/jpeg"
	signedURLTTL     = 15 * time.Minute
)

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutImage(ctx context.Context, key string, body io.Reader, size int64) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	storage ObjectStorage
}

func NewService(storage ObjectStorage) *Service {
	return &Service{storage: storage}
}

// SaveProcessed stores the redacted image under the submission's canonical
// key and returns that key.
func (s *Service) SaveProcessed(ctx context.Context, questID, submissionID uuid.UUID, data []byte) (string, error) {
	if questID == uuid.Nil || submissionID == uuid.Nil || len(data) == 0 {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("media storage is not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := ObjectKey(questID, submissionID)
	if err := s.storage.PutImage(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

// SignedURL returns a short-lived download link for a stored image.
func (s *Service) SignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("media storage is not configured")
	}

	url, err := s.storage.PresignGet(ctx, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign image url: %w", err)
	}
	return url, nil
}

func (s *Service) DeleteImage(ctx context.Context, key string) error {
	if key == "" || s.storage == nil {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func ObjectKey(questID, submissionID uuid.UUID) string {
	return fmt.Sprintf("quests/%s/submissions/%s.jpg", questID, submissionID)
}
