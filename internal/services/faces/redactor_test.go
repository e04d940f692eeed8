package faces

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

type stubDetector struct {
	rects []image.Rectangle
}

func (s *stubDetector) Detect(_ image.Image) []image.Rectangle {
	return s.rects
}

type panickingDetector struct{}

func (panickingDetector) Detect(_ image.Image) []image.Rectangle {
	panic("model blew up")
}

func testPhoto(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test photo: %v", err)
	}
	return buf.Bytes()
}

func TestProcessBlursEveryDetection(t *testing.T) {
	original := testPhoto(t, 400, 300)
	detector := &stubDetector{rects: []image.Rectangle{
		image.Rect(40, 40, 100, 100),
		image.Rect(150, 60, 220, 140),
		image.Rect(300, 200, 360, 280),
	}}

	redactor := NewRedactor(detector, nil)
	processed, detected, blurred := redactor.Process(original)

	if detected != 3 {
		t.Fatalf("expected 3 detections, got %d", detected)
	}
	if blurred != 3 {
		t.Fatalf("expected 3 blurred regions, got %d", blurred)
	}
	if bytes.Equal(processed, original) {
		t.Fatal("processed image must differ from original after redaction")
	}

	if _, err := imaging.Decode(bytes.NewReader(processed)); err != nil {
		t.Fatalf("processed output must be a decodable image: %v", err)
	}
}

func TestProcessClampsRegionsToImageBounds(t *testing.T) {
	original := testPhoto(t, 200, 150)
	detector := &stubDetector{rects: []image.Rectangle{
		// Hangs off the top-left corner; padding pushes it further out.
		image.Rect(-10, -10, 30, 30),
		// Entirely outside the image.
		image.Rect(500, 500, 600, 600),
	}}

	redactor := NewRedactor(detector, nil)
	_, detected, blurred := redactor.Process(original)

	if detected != 2 {
		t.Fatalf("expected 2 detections, got %d", detected)
	}
	if blurred != 1 {
		t.Fatalf("expected only the in-bounds region blurred, got %d", blurred)
	}
}

func TestProcessFailsOpenOnUndecodableInput(t *testing.T) {
	garbage := []byte("not an image at all")

	redactor := NewRedactor(&stubDetector{rects: []image.Rectangle{image.Rect(0, 0, 10, 10)}}, nil)
	processed, detected, blurred := redactor.Process(garbage)

	if !bytes.Equal(processed, garbage) {
		t.Fatal("undecodable input must be returned unchanged")
	}
	if detected != 0 || blurred != 0 {
		t.Fatalf("expected zero counts, got detected=%d blurred=%d", detected, blurred)
	}
}

func TestProcessFailsOpenOnDetectorPanic(t *testing.T) {
	original := testPhoto(t, 100, 100)

	redactor := NewRedactor(panickingDetector{}, nil)
	processed, detected, blurred := redactor.Process(original)

	if !bytes.Equal(processed, original) {
		t.Fatal("panic during detection must return the original bytes")
	}
	if detected != 0 || blurred != 0 {
		t.Fatalf("expected zero counts after panic, got detected=%d blurred=%d", detected, blurred)
	}
}

func TestProcessWithoutDetectorPassesThrough(t *testing.T) {
	original := testPhoto(t, 100, 100)

	redactor := NewRedactor(nil, nil)
	processed, detected, blurred := redactor.Process(original)

	if !bytes.Equal(processed, original) || detected != 0 || blurred != 0 {
		t.Fatal("nil detector must pass the image through untouched")
	}
}

func TestProcessNoFacesReturnsOriginal(t *testing.T) {
	original := testPhoto(t, 100, 100)

	redactor := NewRedactor(&stubDetector{}, nil)
	processed, detected, blurred := redactor.Process(original)

	if !bytes.Equal(processed, original) {
		t.Fatal("zero detections must not re-encode the image")
	}
	if detected != 0 || blurred != 0 {
		t.Fatalf("expected zero counts, got detected=%d blurred=%d", detected, blurred)
	}
}
