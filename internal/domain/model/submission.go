package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/enums"
)

type Submission struct {
	ID                uuid.UUID
	QuestID           uuid.UUID
	ExplorerID        uuid.UUID
	ImageKey          string
	Location          Location
	CapturedAt        time.Time
	CaptureMethod     enums.CaptureMethod
	Status            enums.SubmissionStatus
	RejectionReason   *string
	QualityScore      *int
	ContentMatchScore *int
	FacesDetected     int
	FacesBlurred      int
	Result            *VerificationResult
	SubmittedAt       time.Time
}
