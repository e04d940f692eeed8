package verify

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/domain/model"
	"github.com/swayam1998/geoquests/internal/services/ai"
)

type passthroughRedactor struct {
	detected int
	blurred  int
}

func (r passthroughRedactor) Process(data []byte) ([]byte, int, int) {
	return data, r.detected, r.blurred
}

type panickingRedactor struct{}

func (panickingRedactor) Process([]byte) ([]byte, int, int) {
	panic("decoder blew up")
}

type stubContentVerifier struct {
	result *ai.Result
	called bool
}

func (s *stubContentVerifier) Verify(_ context.Context, _ []byte, _, _ string, _ bool) *ai.Result {
	s.called = true
	return s.result
}

func sharpImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func tinyDarkImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	c := color.RGBA{R: 20, G: 20, B: 20, A: 255}
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testQuest() model.Quest {
	return model.Quest{
		ID:           uuid.New(),
		CreatorID:    uuid.New(),
		Title:        "Old Lighthouse",
		Description:  "Photograph the red lighthouse",
		Lat:          59.9311,
		Lng:          30.3609,
		RadiusMeters: 100,
		Status:       enums.QuestStatusActive,
	}
}

func atQuest(quest model.Quest) model.Location {
	return model.Location{Lat: quest.Lat, Lng: quest.Lng}
}

func newTestService(redactor FaceRedactor, content ContentVerifier) *Service {
	return NewService(redactor, content, Config{PipelineTimeout: 30 * time.Second}, nil)
}

func TestRunVerifiesGoodSubmission(t *testing.T) {
	quest := testQuest()
	svc := newTestService(passthroughRedactor{detected: 1, blurred: 1}, nil)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusVerified {
		t.Fatalf("expected verified, got %s (reason %v)", outcome.Status, outcome.RejectionReason)
	}
	if outcome.RejectionReason != nil {
		t.Fatalf("verified outcome must have no rejection reason, got %q", *outcome.RejectionReason)
	}
	if outcome.ProcessedImage == nil {
		t.Fatal("processed image must be returned for persistence")
	}
	if !outcome.Result.GPS.Verified {
		t.Fatalf("expected verified gps check: %+v", outcome.Result.GPS)
	}
	if outcome.Result.Faces.Detected != 1 || outcome.Result.Faces.Blurred != 1 {
		t.Fatalf("face counts lost: %+v", outcome.Result.Faces)
	}
	if outcome.Result.AI != nil {
		t.Fatal("no ai verdict was produced, record must reflect that")
	}
}

func TestRunMissingAIVerdictNeverBlocks(t *testing.T) {
	quest := testQuest()
	content := &stubContentVerifier{result: nil}
	svc := newTestService(passthroughRedactor{}, content)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if !content.called {
		t.Fatal("content verifier must be consulted")
	}
	if outcome.Status != enums.SubmissionStatusVerified {
		t.Fatalf("absent ai verdict must not block, got %s", outcome.Status)
	}
}

func TestRunExifWarningDoesNotBlock(t *testing.T) {
	quest := testQuest()
	svc := newTestService(passthroughRedactor{}, nil)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodUpload,
	})

	if outcome.Status != enums.SubmissionStatusVerified {
		t.Fatalf("missing exif gps is a warning only, got %s", outcome.Status)
	}

	var warned bool
	for _, f := range outcome.Findings {
		if f.Code == CodeExifNoGPS && f.Severity == enums.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a no-gps warning finding, got %+v", outcome.Findings)
	}
}

func TestRunPoorAccuracyOutranksAIFindings(t *testing.T) {
	quest := testQuest()
	accuracy := 150.0
	content := &stubContentVerifier{result: &ai.Result{
		ContentMatchScore:         90,
		IsAuthenticPhoto:          true,
		IsScreenshotOrScreenPhoto: true,
		Grade:                     enums.GradeF,
		Flags:                     []string{},
	}}
	svc := newTestService(passthroughRedactor{}, content)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      model.Location{Lat: quest.Lat, Lng: quest.Lng, AccuracyM: &accuracy},
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusRejected {
		t.Fatalf("expected rejection, got %s", outcome.Status)
	}
	blocking := firstBlocking(outcome.Findings)
	if blocking == nil || blocking.Code != CodeGPSInaccurate {
		t.Fatalf("accuracy rejection must come first, got %+v", blocking)
	}
	if outcome.RejectionReason == nil || *outcome.RejectionReason != blocking.Message {
		t.Fatalf("rejection reason must be the first blocking message, got %v", outcome.RejectionReason)
	}
	if outcome.Result.AI == nil {
		t.Fatal("ai verdict must still be recorded on a gps rejection")
	}
}

func TestRunQualityOutranksGPS(t *testing.T) {
	quest := testQuest()
	svc := newTestService(passthroughRedactor{}, nil)

	// Roughly 1.1km off, well outside the 100m radius.
	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         tinyDarkImage(t),
		Location:      model.Location{Lat: quest.Lat + 0.01, Lng: quest.Lng},
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusRejected {
		t.Fatalf("expected rejection, got %s", outcome.Status)
	}
	if outcome.RejectionReason == nil || *outcome.RejectionReason != "Image is too small. Minimum size: 640x480 pixels." {
		t.Fatalf("quality finding must outrank gps, got %v", outcome.RejectionReason)
	}
	if outcome.Result.GPS.Verified {
		t.Fatal("gps check must still record the out-of-range result")
	}
}

func TestRunLowContentMatchRejects(t *testing.T) {
	quest := testQuest()
	content := &stubContentVerifier{result: &ai.Result{
		ContentMatchScore: 5,
		IsAuthenticPhoto:  true,
		Grade:             enums.GradeF,
		Flags:             []string{},
	}}
	svc := newTestService(passthroughRedactor{}, content)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusRejected {
		t.Fatalf("expected rejection for content match 5, got %s", outcome.Status)
	}
	blocking := firstBlocking(outcome.Findings)
	if blocking == nil || blocking.Code != CodeAILowMatch {
		t.Fatalf("expected low match finding, got %+v", blocking)
	}
}

func TestRunNegativeThresholdDisablesContentGate(t *testing.T) {
	quest := testQuest()
	content := &stubContentVerifier{result: &ai.Result{
		ContentMatchScore: 5,
		IsAuthenticPhoto:  true,
		Grade:             enums.GradeF,
		Flags:             []string{},
	}}
	svc := NewService(passthroughRedactor{}, content,
		Config{PipelineTimeout: 30 * time.Second, MinContentMatchScore: -1}, nil)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusVerified {
		t.Fatalf("disabled gate must not reject on a low score, got %s (reason %v)",
			outcome.Status, outcome.RejectionReason)
	}
	if outcome.Result.AI == nil || outcome.Result.AI.ContentMatchScore != 5 {
		t.Fatalf("verdict must still be recorded: %+v", outcome.Result.AI)
	}
}

func TestRunScreenshotVerdictRejects(t *testing.T) {
	quest := testQuest()
	content := &stubContentVerifier{result: &ai.Result{
		ContentMatchScore:         95,
		IsAuthenticPhoto:          true,
		IsScreenshotOrScreenPhoto: true,
		Grade:                     enums.GradeA,
		Flags:                     []string{"possible screen photo"},
	}}
	svc := newTestService(passthroughRedactor{}, content)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	blocking := firstBlocking(outcome.Findings)
	if blocking == nil || blocking.Code != CodeAIScreenshot {
		t.Fatalf("expected screenshot finding, got %+v", blocking)
	}
}

func TestRunPanicBecomesProcessingError(t *testing.T) {
	quest := testQuest()
	svc := newTestService(panickingRedactor{}, nil)

	outcome := svc.Run(context.Background(), Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusRejected {
		t.Fatalf("a panic must reject, got %s", outcome.Status)
	}
	if outcome.RejectionReason == nil || *outcome.RejectionReason != "Processing error" {
		t.Fatalf("unexpected reason %v", outcome.RejectionReason)
	}
	if outcome.ProcessedImage != nil {
		t.Fatal("no image may be persisted after a crashed pipeline")
	}
}

func TestRunCancelledContextRejects(t *testing.T) {
	quest := testQuest()
	svc := newTestService(passthroughRedactor{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := svc.Run(ctx, Attempt{
		Quest:         quest,
		Image:         sharpImage(t, 800, 600),
		Location:      atQuest(quest),
		CaptureMethod: enums.CaptureMethodLive,
	})

	if outcome.Status != enums.SubmissionStatusRejected {
		t.Fatalf("cancelled context must reject, got %s", outcome.Status)
	}
}
