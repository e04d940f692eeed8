package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/enums"
)

type Quest struct {
	ID           uuid.UUID
	CreatorID    uuid.UUID
	Title        string
	Description  string
	Lat          float64
	Lng          float64
	RadiusMeters int
	Status       enums.QuestStatus
	CreatedAt    time.Time
}
