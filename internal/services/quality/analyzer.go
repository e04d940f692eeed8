// Package quality scores submitted photos on sharpness, brightness and size.
// The score is advisory context for quest creators; the three boolean flags
// are what the verification pipeline turns into findings.
package quality

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

const (
	minWidth  = 640
	minHeight = 480

	// Variance of the edge-filtered luminance below this means the photo has
	// too little high-frequency content to be a usable quest shot.
	blurVarianceThreshold = 500.0

	// Mean luminance out of 255.
	darkBrightnessThreshold = 50.0

	tooSmallPenalty = 30
	blurryPenalty   = 40
	tooDarkPenalty  = 20
)

type Report struct {
	Score        int
	IsBlurry     bool
	IsTooDark    bool
	IsTooSmall   bool
	Width        int
	Height       int
	EdgeVariance float64
}

// Analyze decodes the image and applies the three independent checks. A
// photo that cannot be decoded at all scores zero with no further detail.
func Analyze(data []byte) Report {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Report{Score: 0}
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()

	report := Report{
		Score:  100,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	if report.Width < minWidth || report.Height < minHeight {
		report.IsTooSmall = true
		report.Score -= tooSmallPenalty
	}

	edges := imaging.Convolve3x3(gray, [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}, nil)
	report.EdgeVariance = luminanceVariance(edges)
	if report.EdgeVariance < blurVarianceThreshold {
		report.IsBlurry = true
		report.Score -= blurryPenalty
	}

	if luminanceMean(gray) < darkBrightnessThreshold {
		report.IsTooDark = true
		report.Score -= tooDarkPenalty
	}

	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > 100 {
		report.Score = 100
	}

	return report
}

// Both helpers read the red channel only: the inputs are grayscale NRGBA
// images produced by imaging, so R == G == B.

func luminanceMean(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			sum += float64(row[x*4])
		}
	}

	return sum / float64(total)
}

func luminanceVariance(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	mean := luminanceMean(img)

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			d := float64(row[x*4]) - mean
			sum += d * d
		}
	}

	return sum / float64(total)
}
