// Package quests resolves quest context for the submission flow.
package quests

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
)

var (
	ErrNotFound  = errors.New("quest not found")
	ErrNotActive = errors.New("quest is not active")
)

type Store interface {
	GetQuest(ctx context.Context, id uuid.UUID) (model.Quest, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ActiveQuest loads the quest and checks it accepts submissions. Draft and
// archived quests are visible to their creator elsewhere but reject attempts.
func (s *Service) ActiveQuest(ctx context.Context, id uuid.UUID) (model.Quest, error) {
	quest, err := s.Get(ctx, id)
	if err != nil {
		return model.Quest{}, err
	}
	if quest.Status != enums.QuestStatusActive {
		return model.Quest{}, ErrNotActive
	}
	return quest, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Quest, error) {
	if id == uuid.Nil {
		return model.Quest{}, ErrNotFound
	}
	if s.store == nil {
		return model.Quest{}, fmt.Errorf("quest store is not configured")
	}

	quest, err := s.store.GetQuest(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Quest{}, ErrNotFound
		}
		return model.Quest{}, fmt.Errorf("get quest: %w", err)
	}
	return quest, nil
}
