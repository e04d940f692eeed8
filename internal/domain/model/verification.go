package model

import "github.com/swayam1998/geoquests/internal/domain/enums"

// VerificationResult is the full audit record of one pipeline run. It is
// written once when the submission reaches a terminal status and stored as
// JSONB alongside the submission row.
type VerificationResult struct {
	GPS     GPSCheck     `json:"gps"`
	Exif    ExifCheck    `json:"exif"`
	Quality QualityCheck `json:"quality"`
	Faces   FaceCheck    `json:"faces"`
	AI      *AICheck     `json:"ai,omitempty"`
}

type GPSCheck struct {
	Verified       bool    `json:"verified"`
	DistanceMeters float64 `json:"distance_meters"`
	Reason         string  `json:"reason"`
}

// ExifCheck records the EXIF cross-validation outcome. Validated is nil when
// the image carries no embedded GPS coordinates, which is a warning only.
type ExifCheck struct {
	Validated      *bool    `json:"validated"`
	DistanceMeters *float64 `json:"distance_meters"`
	Reason         string   `json:"reason"`
}

type QualityCheck struct {
	Score      int  `json:"score"`
	IsBlurry   bool `json:"is_blurry"`
	IsTooDark  bool `json:"is_too_dark"`
	IsTooSmall bool `json:"is_too_small"`
}

type FaceCheck struct {
	Detected int `json:"detected"`
	Blurred  int `json:"blurred"`
}

type AICheck struct {
	ContentMatchScore         int         `json:"content_match_score"`
	IsAuthenticPhoto          bool        `json:"is_authentic_photo"`
	IsScreenshotOrScreenPhoto bool        `json:"is_screenshot_or_screen_photo"`
	IsAIGenerated             bool        `json:"is_ai_generated"`
	SceneDescription          string      `json:"scene_description"`
	Grade                     enums.Grade `json:"grade"`
	Reasoning                 string      `json:"reasoning"`
	Flags                     []string    `json:"flags"`
}
