package verify

import (
	"fmt"

	"github.com/swayam1998/geoquests/internal/domain/enums"
	"github.com/swayam1998/geoquests/internal/services/ai"
	"github.com/swayam1998/geoquests/internal/services/exif"
	"github.com/swayam1998/geoquests/internal/services/geo"
	"github.com/swayam1998/geoquests/internal/services/quality"
)

type FindingCode string

const (
	CodeQualitySmall    FindingCode = "QUALITY_SMALL"
	CodeQualityBlur     FindingCode = "QUALITY_BLUR"
	CodeQualityDark     FindingCode = "QUALITY_DARK"
	CodeGPSInaccurate   FindingCode = "GPS_INACCURATE"
	CodeGPSOutOfRange   FindingCode = "GPS_OUT_OF_RANGE"
	CodeExifMismatch    FindingCode = "EXIF_MISMATCH"
	CodeExifNoGPS       FindingCode = "EXIF_NO_GPS"
	CodeAIScreenshot    FindingCode = "AI_SCREENSHOT_OR_GENERATED"
	CodeAINotAuthentic  FindingCode = "AI_NOT_AUTHENTIC"
	CodeAILowMatch      FindingCode = "AI_LOW_CONTENT_MATCH"
	CodeProcessingError FindingCode = "PROCESSING_ERROR"
)

type Finding struct {
	Code     FindingCode
	Message  string
	Severity enums.Severity
}

// collectFindings flattens every analyzer result into findings in rejection
// precedence order: quality (small, blur, dark), GPS (accuracy, range), EXIF
// mismatch, AI (screenshot/generated, not authentic, low match). The first
// blocking finding in this slice becomes the rejection reason shown to the
// user, so the ordering is part of the product contract.
func collectFindings(
	qualityReport quality.Report,
	gpsResult geo.Result,
	exifValidation exif.Validation,
	aiResult *ai.Result,
	minContentMatchScore int,
) []Finding {
	findings := make([]Finding, 0, 4)

	if qualityReport.IsTooSmall {
		findings = append(findings, Finding{
			Code:     CodeQualitySmall,
			Message:  "Image is too small. Minimum size: 640x480 pixels.",
			Severity: enums.SeverityBlocking,
		})
	}
	if qualityReport.IsBlurry {
		findings = append(findings, Finding{
			Code:     CodeQualityBlur,
			Message:  "Image is too blurry. Please take a clearer photo.",
			Severity: enums.SeverityBlocking,
		})
	}
	if qualityReport.IsTooDark {
		findings = append(findings, Finding{
			Code:     CodeQualityDark,
			Message:  "Image is too dark. Please take a photo with better lighting.",
			Severity: enums.SeverityBlocking,
		})
	}

	if !gpsResult.Verified {
		code := CodeGPSOutOfRange
		if gpsResult.AccuracyRejected {
			code = CodeGPSInaccurate
		}
		findings = append(findings, Finding{
			Code:     code,
			Message:  gpsResult.Reason,
			Severity: enums.SeverityBlocking,
		})
	}

	if !exifValidation.Matches {
		findings = append(findings, Finding{
			Code:     CodeExifMismatch,
			Message:  exifValidation.Reason,
			Severity: enums.SeverityBlocking,
		})
	} else if exifValidation.DistanceMeters == nil {
		findings = append(findings, Finding{
			Code:     CodeExifNoGPS,
			Message:  exifValidation.Reason,
			Severity: enums.SeverityWarning,
		})
	}

	if aiResult != nil {
		if aiResult.IsScreenshotOrScreenPhoto || aiResult.IsAIGenerated {
			findings = append(findings, Finding{
				Code:     CodeAIScreenshot,
				Message:  "Photo looks like a screenshot or AI-generated image, not a photo taken at the location.",
				Severity: enums.SeverityBlocking,
			})
		}
		if !aiResult.IsAuthenticPhoto {
			findings = append(findings, Finding{
				Code:     CodeAINotAuthentic,
				Message:  "Photo doesn't look like an authentic photo taken at the quest location.",
				Severity: enums.SeverityBlocking,
			})
		}
		if minContentMatchScore > 0 && aiResult.ContentMatchScore < minContentMatchScore {
			findings = append(findings, Finding{
				Code:     CodeAILowMatch,
				Message:  fmt.Sprintf("Photo doesn't match the quest (content match %d/100).", aiResult.ContentMatchScore),
				Severity: enums.SeverityBlocking,
			})
		}
	}

	return findings
}

func firstBlocking(findings []Finding) *Finding {
	for i := range findings {
		if findings[i].Severity == enums.SeverityBlocking {
			return &findings[i]
		}
	}
	return nil
}
