package ai

import (
	"testing"

	"github.com/swayam1998/geoquests/internal/domain/enums"
)

func TestParseVerdictCleanJSON(t *testing.T) {
	text := `{"content_match_score":80,"is_authentic_photo":true,"is_screenshot_or_screen_photo":false,"is_ai_generated":false,"scene_description":"a red lighthouse","grade":"B","reasoning":"matches","flags":[]}`

	verdict, outcome := parseVerdict(text)
	if outcome != OutcomeParsed {
		t.Fatalf("expected clean parse, got outcome %d", outcome)
	}
	if verdict.ContentMatchScore == nil || *verdict.ContentMatchScore != 80 {
		t.Fatalf("unexpected score %v", verdict.ContentMatchScore)
	}
	if verdict.Grade == nil || *verdict.Grade != "B" {
		t.Fatalf("unexpected grade %v", verdict.Grade)
	}
}

func TestParseVerdictRepairsTruncatedObject(t *testing.T) {
	verdict, outcome := parseVerdict(`{"grade":"B","content_match_score":70`)

	if outcome != OutcomeRepaired {
		t.Fatalf("expected repaired outcome, got %d", outcome)
	}
	if verdict.Grade == nil || *verdict.Grade != "B" {
		t.Fatalf("unexpected grade %v", verdict.Grade)
	}
	if verdict.ContentMatchScore == nil || *verdict.ContentMatchScore != 70 {
		t.Fatalf("unexpected score %v", verdict.ContentMatchScore)
	}
}

func TestParseVerdictRepairsTruncatedArray(t *testing.T) {
	verdict, outcome := parseVerdict(`{"grade":"A","flags":["possible screen photo"`)

	if outcome != OutcomeRepaired {
		t.Fatalf("expected repaired outcome, got %d", outcome)
	}
	if len(verdict.Flags) != 1 || verdict.Flags[0] != "possible screen photo" {
		t.Fatalf("unexpected flags %v", verdict.Flags)
	}
}

func TestParseVerdictStripsMarkdownFence(t *testing.T) {
	text := "```json\n{\"grade\":\"A\",\"content_match_score\":95}\n```"

	verdict, outcome := parseVerdict(text)
	if outcome != OutcomeParsed {
		t.Fatalf("expected clean parse after fence strip, got %d", outcome)
	}
	if verdict.Grade == nil || *verdict.Grade != "A" {
		t.Fatalf("unexpected grade %v", verdict.Grade)
	}
}

func TestParseVerdictMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I cannot analyze this image.",
		`{"grade": B}`,
	}

	for _, text := range inputs {
		if _, outcome := parseVerdict(text); outcome != OutcomeMalformed {
			t.Fatalf("expected malformed for %q, got %d", text, outcome)
		}
	}
}

func TestNormalizeClampsScore(t *testing.T) {
	high := 150
	low := -3

	if got := normalize(rawVerdict{ContentMatchScore: &high}).ContentMatchScore; got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := normalize(rawVerdict{ContentMatchScore: &low}).ContentMatchScore; got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	result := normalize(rawVerdict{})

	if !result.IsAuthenticPhoto {
		t.Fatal("authenticity must default to true")
	}
	if result.IsScreenshotOrScreenPhoto || result.IsAIGenerated {
		t.Fatal("fraud booleans must default to false")
	}
	if result.Grade != enums.GradeC {
		t.Fatalf("grade must default to C, got %s", result.Grade)
	}
	if result.Flags == nil || len(result.Flags) != 0 {
		t.Fatalf("flags must default to an empty list, got %v", result.Flags)
	}
	if result.ContentMatchScore != 0 {
		t.Fatalf("score must default to 0, got %d", result.ContentMatchScore)
	}
}

func TestNormalizeInvalidGradeFallsBackToC(t *testing.T) {
	for _, g := range []string{"Z", "", "AA", "excellent"} {
		grade := g
		result := normalize(rawVerdict{Grade: &grade})
		if result.Grade != enums.GradeC {
			t.Fatalf("grade %q must fall back to C, got %s", g, result.Grade)
		}
	}
}

func TestNormalizeLowercaseGrade(t *testing.T) {
	grade := "b"
	if got := normalize(rawVerdict{Grade: &grade}).Grade; got != enums.GradeB {
		t.Fatalf("lowercase grade must normalize, got %s", got)
	}
}
