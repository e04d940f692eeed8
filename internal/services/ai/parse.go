package ai

import (
	"encoding/json"
	"strings"

	"github.com/swayam1998/geoquests/internal/domain/enums"
)

// ParseOutcome enumerates how a model response made it through parsing, so
// callers and tests can distinguish a clean parse from a repaired one from a
// write-off.
type ParseOutcome int

const (
	OutcomeParsed ParseOutcome = iota
	OutcomeRepaired
	OutcomeMalformed
)

// rawVerdict mirrors the JSON contract the model is instructed to follow.
// Every field is optional here; normalize fills in the safe defaults.
type rawVerdict struct {
	ContentMatchScore         *int     `json:"content_match_score"`
	IsAuthenticPhoto          *bool    `json:"is_authentic_photo"`
	IsScreenshotOrScreenPhoto *bool    `json:"is_screenshot_or_screen_photo"`
	IsAIGenerated             *bool    `json:"is_ai_generated"`
	SceneDescription          *string  `json:"scene_description"`
	Grade                     *string  `json:"grade"`
	Reasoning                 *string  `json:"reasoning"`
	Flags                     []string `json:"flags"`
}

// parseVerdict extracts the JSON object from a model response, tolerating
// markdown code fences and truncated output. Truncation is repaired by
// appending the missing closing brackets and braces inferred from the
// unbalanced counts; anything still unparseable is malformed.
func parseVerdict(text string) (rawVerdict, ParseOutcome) {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return rawVerdict{}, OutcomeMalformed
	}

	var verdict rawVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err == nil {
		return verdict, OutcomeParsed
	}

	repaired, ok := repairTruncatedJSON(text)
	if !ok {
		return rawVerdict{}, OutcomeMalformed
	}
	if err := json.Unmarshal([]byte(repaired), &verdict); err != nil {
		return rawVerdict{}, OutcomeMalformed
	}

	return verdict, OutcomeRepaired
}

func stripCodeFence(text string) string {
	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx != -1 {
		text = text[idx+len("```"):]
	} else {
		return text
	}

	if end := strings.Index(text, "```"); end != -1 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// repairTruncatedJSON appends the minimum closing brackets/braces needed to
// balance the payload. Brackets close before braces: truncation happens at
// the innermost open structure, and the only array in the contract is flags.
func repairTruncatedJSON(text string) (string, bool) {
	openBraces := strings.Count(text, "{") - strings.Count(text, "}")
	openBrackets := strings.Count(text, "[") - strings.Count(text, "]")
	if openBraces <= 0 && openBrackets <= 0 {
		return "", false
	}

	if openBrackets > 0 {
		text += strings.Repeat("]", openBrackets)
	}
	if openBraces > 0 {
		text += strings.Repeat("}", openBraces)
	}
	return text, true
}

// normalize converts a raw verdict into a Result with every field coerced to
// a safe value: score clamped to [0,100], grade defaulted to C when missing
// or not one of the five letters, authenticity defaulting to true and the
// two fraud booleans to false, flags never nil.
func normalize(raw rawVerdict) Result {
	result := Result{
		ContentMatchScore:         0,
		IsAuthenticPhoto:          true,
		IsScreenshotOrScreenPhoto: false,
		IsAIGenerated:             false,
		Grade:                     enums.GradeC,
		Flags:                     []string{},
	}

	if raw.ContentMatchScore != nil {
		result.ContentMatchScore = *raw.ContentMatchScore
	}
	if result.ContentMatchScore < 0 {
		result.ContentMatchScore = 0
	}
	if result.ContentMatchScore > 100 {
		result.ContentMatchScore = 100
	}

	if raw.IsAuthenticPhoto != nil {
		result.IsAuthenticPhoto = *raw.IsAuthenticPhoto
	}
	if raw.IsScreenshotOrScreenPhoto != nil {
		result.IsScreenshotOrScreenPhoto = *raw.IsScreenshotOrScreenPhoto
	}
	if raw.IsAIGenerated != nil {
		result.IsAIGenerated = *raw.IsAIGenerated
	}

	if raw.SceneDescription != nil {
		result.SceneDescription = *raw.SceneDescription
	}
	if raw.Reasoning != nil {
		result.Reasoning = *raw.Reasoning
	}

	if raw.Grade != nil {
		if grade, ok := enums.ParseGrade(strings.ToUpper(strings.TrimSpace(*raw.Grade))); ok {
			result.Grade = grade
		}
	}

	if raw.Flags != nil {
		result.Flags = raw.Flags
	}

	return result
}
