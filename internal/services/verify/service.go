// Package verify runs a submitted photo through the full verification
// pipeline: face redaction, quality scoring, geofence and EXIF checks, then
// AI content verification. The pipeline never returns an error to the caller;
// every failure mode collapses into a rejected outcome with a reason the
// submitter can act on.
package verify

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	"github.com/swayam1998/geoquests/internal/services/ai"
	"github.com/swayam1998/geoquests/internal/services/exif"
	"github.com/swayam1998/geoquests/internal/services/geo"
	"github.com/swayam1998/geoquests/internal/services/quality"
)

const processingErrorReason = "Processing error"

// FaceRedactor blurs detected faces and reports how many it found and
// blurred. It must fail open, returning the input untouched rather than an
// error.
type FaceRedactor interface {
	Process(data []byte) (processed []byte, detected, blurred int)
}

// ContentVerifier returns the AI verdict for a processed photo, or nil when
// no verdict could be obtained. Nil is not a failure of the pipeline.
type ContentVerifier interface {
	Verify(ctx context.Context, imageJPEG []byte, questTitle, questDescription string, uploadWithoutGPS bool) *ai.Result
}

type Config struct {
	ExifToleranceMeters float64

	// MinContentMatchScore is the lowest AI content match that passes. Zero
	// falls back to the default of 15; a negative value disables the gate.
	MinContentMatchScore int

	PipelineTimeout time.Duration

	// MaxConcurrentCPU bounds how many submissions may run the image-heavy
	// stages at once. Zero means one slot per logical CPU.
	MaxConcurrentCPU int64
}

type Attempt struct {
	Quest         model.Quest
	Image         []byte
	Location      model.Location
	CaptureMethod enums.CaptureMethod
}

// Outcome is the terminal decision for one attempt. ProcessedImage holds the
// redacted bytes to persist; it is nil when the pipeline crashed before
// redaction completed, in which case nothing may be stored.
type Outcome struct {
	Status          enums.SubmissionStatus
	RejectionReason *string
	Findings        []Finding
	Result          model.VerificationResult
	ProcessedImage  []byte
}

type Service struct {
	redactor FaceRedactor
	content  ContentVerifier
	cfg      Config
	cpu      *semaphore.Weighted
	logger   *zap.Logger
}

func NewService(redactor FaceRedactor, content ContentVerifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.ExifToleranceMeters <= 0 {
		cfg.ExifToleranceMeters = exif.DefaultToleranceMeters
	}
	// Zero means unset; a negative value disables the content-match gate.
	if cfg.MinContentMatchScore == 0 {
		cfg.MinContentMatchScore = 15
	}
	if cfg.MaxConcurrentCPU <= 0 {
		cfg.MaxConcurrentCPU = int64(runtime.GOMAXPROCS(0))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		redactor: redactor,
		content:  content,
		cfg:      cfg,
		cpu:      semaphore.NewWeighted(cfg.MaxConcurrentCPU),
		logger:   logger,
	}
}

// Run executes the pipeline and always returns a terminal outcome. A panic
// anywhere inside the analyzers rejects the submission with a generic reason
// instead of crashing the worker.
func (s *Service) Run(ctx context.Context, attempt Attempt) (outcome Outcome) {
	if s.cfg.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PipelineTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("verification pipeline panicked",
				zap.String("quest_id", attempt.Quest.ID.String()),
				zap.Any("panic", rec),
			)
			outcome = processingErrorOutcome()
		}
	}()

	processed, detected, blurred, qualityReport, err := s.runImageStages(ctx, attempt.Image)
	if err != nil {
		s.logger.Warn("verification aborted before image stages", zap.Error(err))
		return processingErrorOutcome()
	}

	gpsResult := geo.VerifyLocation(attempt.Location, attempt.Quest.Lat, attempt.Quest.Lng, attempt.Quest.RadiusMeters)

	// EXIF is read from the original bytes; re-encoding during redaction
	// strips the tags.
	meta := exif.Extract(attempt.Image)
	exifValidation := exif.ValidateLocation(meta, attempt.Location, s.cfg.ExifToleranceMeters)

	var aiResult *ai.Result
	if s.content != nil && ctx.Err() == nil {
		uploadWithoutGPS := attempt.CaptureMethod == enums.CaptureMethodUpload && !meta.HasGPS
		aiResult = s.content.Verify(ctx, processed, attempt.Quest.Title, attempt.Quest.Description, uploadWithoutGPS)
	}

	findings := collectFindings(qualityReport, gpsResult, exifValidation, aiResult, s.cfg.MinContentMatchScore)

	outcome = Outcome{
		Status:         enums.SubmissionStatusVerified,
		Findings:       findings,
		Result:         buildResult(gpsResult, exifValidation, qualityReport, detected, blurred, aiResult),
		ProcessedImage: processed,
	}
	if blocking := firstBlocking(findings); blocking != nil {
		reason := blocking.Message
		outcome.Status = enums.SubmissionStatusRejected
		outcome.RejectionReason = &reason
	}

	s.logger.Info("verification pipeline finished",
		zap.String("quest_id", attempt.Quest.ID.String()),
		zap.String("status", string(outcome.Status)),
		zap.Int("findings", len(findings)),
		zap.Int("quality_score", qualityReport.Score),
		zap.Float64("distance_meters", gpsResult.DistanceMeters),
		zap.Bool("ai_verdict", aiResult != nil),
	)
	return outcome
}

// runImageStages holds a CPU slot for the decode-heavy work so a burst of
// submissions cannot stack unbounded image processing.
func (s *Service) runImageStages(ctx context.Context, image []byte) ([]byte, int, int, quality.Report, error) {
	if err := s.cpu.Acquire(ctx, 1); err != nil {
		return nil, 0, 0, quality.Report{}, err
	}
	defer s.cpu.Release(1)

	processed, detected, blurred := s.redactor.Process(image)
	return processed, detected, blurred, quality.Analyze(processed), nil
}

func buildResult(
	gpsResult geo.Result,
	exifValidation exif.Validation,
	qualityReport quality.Report,
	detected, blurred int,
	aiResult *ai.Result,
) model.VerificationResult {
	result := model.VerificationResult{
		GPS: model.GPSCheck{
			Verified:       gpsResult.Verified,
			DistanceMeters: gpsResult.DistanceMeters,
			Reason:         gpsResult.Reason,
		},
		Exif: model.ExifCheck{
			DistanceMeters: exifValidation.DistanceMeters,
			Reason:         exifValidation.Reason,
		},
		Quality: model.QualityCheck{
			Score:      qualityReport.Score,
			IsBlurry:   qualityReport.IsBlurry,
			IsTooDark:  qualityReport.IsTooDark,
			IsTooSmall: qualityReport.IsTooSmall,
		},
		Faces: model.FaceCheck{
			Detected: detected,
			Blurred:  blurred,
		},
	}

	if exifValidation.DistanceMeters != nil {
		validated := exifValidation.Matches
		result.Exif.Validated = &validated
	}

	if aiResult != nil {
		result.AI = &model.AICheck{
			ContentMatchScore:         aiResult.ContentMatchScore,
			IsAuthenticPhoto:          aiResult.IsAuthenticPhoto,
			IsScreenshotOrScreenPhoto: aiResult.IsScreenshotOrScreenPhoto,
			IsAIGenerated:             aiResult.IsAIGenerated,
			SceneDescription:          aiResult.SceneDescription,
			Grade:                     aiResult.Grade,
			Reasoning:                 aiResult.Reasoning,
			Flags:                     aiResult.Flags,
		}
	}

	return result
}

func processingErrorOutcome() Outcome {
	reason := processingErrorReason
	return Outcome{
		Status:          enums.SubmissionStatusRejected,
		RejectionReason: &reason,
		Findings: []Finding{{
			Code:     CodeProcessingError,
			Message:  processingErrorReason,
			Severity: enums.SeverityBlocking,
		}},
	}
}
