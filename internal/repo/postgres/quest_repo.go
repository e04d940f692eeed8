package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	questsvc "github.com/swayam1998/geoquests/internal/services/quests"
)

type QuestRepo struct {
	pool *pgxpool.Pool
}

func NewQuestRepo(pool *pgxpool.Pool) *QuestRepo {
	return &QuestRepo{pool: pool}
}

func (r *QuestRepo) GetQuest(ctx context.Context, id uuid.UUID) (model.Quest, error) {
	if r.pool == nil {
		return model.Quest{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		quest  model.Quest
		status string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, creator_id, title, description, lat, lng, radius_meters, status, created_at
FROM quests
WHERE id = $1
`, id).Scan(&quest.ID, &quest.CreatorID, &quest.Title, &quest.Description,
		&quest.Lat, &quest.Lng, &quest.RadiusMeters, &status, &quest.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Quest{}, questsvc.ErrNotFound
		}
		return model.Quest{}, fmt.Errorf("select quest: %w", err)
	}

	parsed, err := enums.ParseQuestStatus(status)
	if err != nil {
		return model.Quest{}, fmt.Errorf("quest %s: %w", id, err)
	}
	quest.Status = parsed

	return quest, nil
}
