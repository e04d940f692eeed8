package faces

import (
	"fmt"
	"image"

	pigo "github.com/esimov/pigo/core"
)

// Detector finds face bounding boxes in a decoded image. Implementations
// must be safe for concurrent use; the pipeline runs one detector instance
// across all worker goroutines.
type Detector interface {
	Detect(img image.Image) []image.Rectangle
}

// PigoDetector wraps a pigo cascade classifier. The cascade is unpacked once
// at construction and the resulting classifier is read-only afterwards, so a
// single instance serves the whole process.
type PigoDetector struct {
	classifier    *pigo.Pigo
	minConfidence float32
}

func NewPigoDetector(cascade []byte) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("face cascade is empty")
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}

	return &PigoDetector{
		classifier:    classifier,
		minConfidence: 5.0,
	}, nil
}

func (d *PigoDetector) Detect(img image.Image) []image.Rectangle {
	if d == nil || d.classifier == nil || img == nil {
		return nil
	}

	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.CascadeParams{
		MinSize:     40,
		MaxSize:     2000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	rects := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.minConfidence {
			continue
		}
		half := det.Scale / 2
		rects = append(rects, image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half))
	}

	return rects
}
