package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	subsvc "github.com/swayam1998/geoquests/internal/services/submissions"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) InsertProcessing(ctx context.Context, submission model.Submission) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO submissions (
	id, quest_id, explorer_id, lat, lng, accuracy_m,
	captured_at, capture_method, status, submitted_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'processing', $9)
`, submission.ID, submission.QuestID, submission.ExplorerID,
		submission.Location.Lat, submission.Location.Lng, submission.Location.AccuracyM,
		submission.CapturedAt, string(submission.CaptureMethod), submission.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}

// FinalizeVerified moves a processing row to verified. The status guard in
// the WHERE clause makes finalization write-once.
func (r *SubmissionRepo) FinalizeVerified(ctx context.Context, id uuid.UUID, imageKey string, result model.VerificationResult, qualityScore, contentMatchScore *int, detected, blurred int) error {
	return r.finalize(ctx, id, enums.SubmissionStatusVerified, imageKey, nil, result, qualityScore, contentMatchScore, detected, blurred)
}

func (r *SubmissionRepo) FinalizeRejected(ctx context.Context, id uuid.UUID, imageKey, reason string, result model.VerificationResult, qualityScore, contentMatchScore *int, detected, blurred int) error {
	return r.finalize(ctx, id, enums.SubmissionStatusRejected, imageKey, &reason, result, qualityScore, contentMatchScore, detected, blurred)
}

func (r *SubmissionRepo) finalize(ctx context.Context, id uuid.UUID, status enums.SubmissionStatus, imageKey string, reason *string, result model.VerificationResult, qualityScore, contentMatchScore *int, detected, blurred int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal verification result: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE submissions
SET status = $2,
	image_key = NULLIF($3, ''),
	rejection_reason = $4,
	result = $5,
	quality_score = $6,
	content_match_score = $7,
	faces_detected = $8,
	faces_blurred = $9,
	finalized_at = NOW()
WHERE id = $1 AND status = 'processing'
`, id, string(status), imageKey, reason, resultJSON, qualityScore, contentMatchScore, detected, blurred)
	if err != nil {
		return fmt.Errorf("finalize submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return subsvc.ErrAlreadyFinalized
	}

	return nil
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Submission, error) {
	if r.pool == nil {
		return model.Submission{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, quest_id, explorer_id, COALESCE(image_key, ''), lat, lng, accuracy_m,
	captured_at, capture_method, status, rejection_reason,
	quality_score, content_match_score, faces_detected, faces_blurred,
	result, submitted_at
FROM submissions
WHERE id = $1
`, id)

	submission, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Submission{}, subsvc.ErrNotFound
		}
		return model.Submission{}, fmt.Errorf("select submission: %w", err)
	}

	return submission, nil
}

func (r *SubmissionRepo) ListByQuest(ctx context.Context, questID uuid.UUID, status *enums.SubmissionStatus) ([]model.Submission, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	query := `
SELECT id, quest_id, explorer_id, COALESCE(image_key, ''), lat, lng, accuracy_m,
	captured_at, capture_method, status, rejection_reason,
	quality_score, content_match_score, faces_detected, faces_blurred,
	result, submitted_at
FROM submissions
WHERE quest_id = $1
`
	args := []any{questID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, string(*status))
	}
	query += " ORDER BY submitted_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]model.Submission, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return submissions, nil
}

// ExpireStaleProcessing rejects rows stuck in processing since before the
// cutoff, so a crashed worker cannot leave submissions pending forever. The
// expired rows are returned so the caller can sweep any orphaned objects.
func (r *SubmissionRepo) ExpireStaleProcessing(ctx context.Context, cutoff time.Time, reason string) ([]model.Submission, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
UPDATE submissions
SET status = 'rejected', rejection_reason = $2, finalized_at = NOW()
WHERE status = 'processing' AND submitted_at < $1
RETURNING id, quest_id
`, cutoff, reason)
	if err != nil {
		return nil, fmt.Errorf("expire stale submissions: %w", err)
	}
	defer rows.Close()

	expired := make([]model.Submission, 0)
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.QuestID); err != nil {
			return nil, fmt.Errorf("scan expired submission: %w", err)
		}
		expired = append(expired, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired submissions: %w", err)
	}

	return expired, nil
}

func scanSubmission(row pgx.Row) (model.Submission, error) {
	var (
		submission    model.Submission
		captureMethod string
		status        string
		resultJSON    []byte
	)

	err := row.Scan(&submission.ID, &submission.QuestID, &submission.ExplorerID, &submission.ImageKey,
		&submission.Location.Lat, &submission.Location.Lng, &submission.Location.AccuracyM,
		&submission.CapturedAt, &captureMethod, &status, &submission.RejectionReason,
		&submission.QualityScore, &submission.ContentMatchScore,
		&submission.FacesDetected, &submission.FacesBlurred,
		&resultJSON, &submission.SubmittedAt)
	if err != nil {
		return model.Submission{}, err
	}

	parsedStatus, err := enums.ParseSubmissionStatus(status)
	if err != nil {
		return model.Submission{}, err
	}
	submission.Status = parsedStatus

	if method, ok := enums.ParseCaptureMethod(captureMethod); ok {
		submission.CaptureMethod = method
	}

	if len(resultJSON) > 0 {
		var result model.VerificationResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return model.Submission{}, fmt.Errorf("unmarshal verification result: %w", err)
		}
		submission.Result = &result
	}

	return submission, nil
}
