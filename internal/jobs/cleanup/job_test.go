package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/model"
	mediasvc "github.com/swayam1998/geoquests/internal/services/media"
)

type fakeSubmissionStore struct {
	expiredCutoff time.Time
	expired       []model.Submission
	expireErr     error
}

func (f *fakeSubmissionStore) ExpireStaleProcessing(_ context.Context, cutoff time.Time, _ string) ([]model.Submission, error) {
	f.expiredCutoff = cutoff
	return f.expired, f.expireErr
}

type fakeDeleter struct {
	deleted []string
	failOn  string
}

func (f *fakeDeleter) DeleteImage(_ context.Context, key string) error {
	if key == f.failOn {
		return errors.New("storage unavailable")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func staleSubmission() model.Submission {
	return model.Submission{ID: uuid.New(), QuestID: uuid.New()}
}

func TestRunExpiresStaleProcessing(t *testing.T) {
	store := &fakeSubmissionStore{expired: []model.Submission{staleSubmission()}}
	job := New(store, &fakeDeleter{}, 10*time.Minute, nil)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return base }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := base.Add(-10 * time.Minute)
	if !store.expiredCutoff.Equal(want) {
		t.Fatalf("unexpected cutoff %v, want %v", store.expiredCutoff, want)
	}
}

func TestRunSweepsOrphanedImages(t *testing.T) {
	subA, subB := staleSubmission(), staleSubmission()
	store := &fakeSubmissionStore{expired: []model.Submission{subA, subB}}
	deleter := &fakeDeleter{}
	job := New(store, deleter, time.Minute, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(deleter.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", deleter.deleted)
	}
	wantA := mediasvc.ObjectKey(subA.QuestID, subA.ID)
	if deleter.deleted[0] != wantA {
		t.Fatalf("expected canonical key %q, got %q", wantA, deleter.deleted[0])
	}
}

func TestRunContinuesPastStorageFailure(t *testing.T) {
	stuck, fine := staleSubmission(), staleSubmission()
	store := &fakeSubmissionStore{expired: []model.Submission{stuck, fine}}
	deleter := &fakeDeleter{failOn: mediasvc.ObjectKey(stuck.QuestID, stuck.ID)}
	job := New(store, deleter, time.Minute, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("a single failed delete must not abort the run: %v", err)
	}
	if len(deleter.deleted) != 1 {
		t.Fatalf("remaining images must still be swept, got %v", deleter.deleted)
	}
}

func TestRunWithoutStoreIsNoop(t *testing.T) {
	job := New(nil, nil, time.Minute, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("nil store must be a no-op: %v", err)
	}
}
