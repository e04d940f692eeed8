package dto

import (
	"time"

	"github.com/swayam1998/geoquests/internal/domain/model"
)

type SubmissionResponse struct {
	ID                string                    `json:"id"`
	QuestID           string                    `json:"quest_id"`
	Status            string                    `json:"status"`
	RejectionReason   *string                   `json:"rejection_reason,omitempty"`
	ImageURL          string                    `json:"image_url,omitempty"`
	QualityScore      *int                      `json:"quality_score,omitempty"`
	ContentMatchScore *int                      `json:"content_match_score,omitempty"`
	FacesDetected     int                       `json:"faces_detected"`
	FacesBlurred      int                       `json:"faces_blurred"`
	Result            *model.VerificationResult `json:"result,omitempty"`
	SubmittedAt       time.Time                 `json:"submitted_at"`
}

type SubmissionListResponse struct {
	Items []SubmissionResponse `json:"items"`
}

func NewSubmissionResponse(submission model.Submission, imageURL string) SubmissionResponse {
	return SubmissionResponse{
		ID:                submission.ID.String(),
		QuestID:           submission.QuestID.String(),
		Status:            string(submission.Status),
		RejectionReason:   submission.RejectionReason,
		ImageURL:          imageURL,
		QualityScore:      submission.QualityScore,
		ContentMatchScore: submission.ContentMatchScore,
		FacesDetected:     submission.FacesDetected,
		FacesBlurred:      submission.FacesBlurred,
		Result:            submission.Result,
		SubmittedAt:       submission.SubmittedAt,
	}
}
