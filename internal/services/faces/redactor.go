// Package faces blurs detected faces out of submitted photos before anything
// downstream sees or stores them.
package faces

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	// Extra pixels around each detection so ears, chins and hair are covered.
	regionPadding = 20

	// Sigma for the Gaussian blur applied to each face region. Strong enough
	// that the region is unrecognizable at any zoom.
	blurSigma = 12.0

	jpegQuality = 90
)

type Redactor struct {
	detector Detector
	logger   *zap.Logger
}

func NewRedactor(detector Detector, logger *zap.Logger) *Redactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redactor{
		detector: detector,
		logger:   logger,
	}
}

// Process detects faces and writes a strong blur over each detection,
// returning re-encoded JPEG bytes plus the detected/blurred counts. Any
// failure (undecodable input, a panicking detector, an encode error)
// degrades to the original bytes with zero counts. Redaction must never be
// the reason a submission cannot be processed.
func (r *Redactor) Process(data []byte) (processed []byte, detected, blurred int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("face redaction panicked, returning original image", zap.Any("panic", rec))
			processed, detected, blurred = data, 0, 0
		}
	}()

	if r == nil || r.detector == nil {
		return data, 0, 0
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data, 0, 0
	}

	regions := r.detector.Detect(img)
	if len(regions) == 0 {
		return data, 0, 0
	}

	canvas := imaging.Clone(img)
	bounds := canvas.Bounds()

	for _, region := range regions {
		detected++

		padded := image.Rect(
			region.Min.X-regionPadding,
			region.Min.Y-regionPadding,
			region.Max.X+regionPadding,
			region.Max.Y+regionPadding,
		).Intersect(bounds)
		if padded.Empty() {
			continue
		}

		face := imaging.Crop(canvas, padded)
		canvas = imaging.Paste(canvas, imaging.Blur(face, blurSigma), padded.Min)
		blurred++
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		r.logger.Warn("encode redacted image failed, returning original", zap.Error(err))
		return data, 0, 0
	}

	return buf.Bytes(), detected, blurred
}
