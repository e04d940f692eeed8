// Package ai checks a processed submission photo against the quest text with
// an external vision model. The verifier degrades gracefully: missing
// credentials, transport failures, rate limiting past the retry budget and
// unparseable responses all yield a nil result, never an error. The absence
// of an AI verdict is context the orchestrator can live without.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/swayam1998/geoquests/internal/domain/enums"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-2.5-flash"

	maxAttempts         = 5
	initialRetryDelay   = time.Second
	maxRetryDelay       = 60 * time.Second
	retryDelayMultiply  = 2.0
	maxResponseBodySize = 1 << 20
)

type Result struct {
	ContentMatchScore         int
	IsAuthenticPhoto          bool
	IsScreenshotOrScreenPhoto bool
	IsAIGenerated             bool
	SceneDescription          string
	Grade                     enums.Grade
	Reasoning                 string
	Flags                     []string
}

type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

type Verifier struct {
	cfg        Config
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func NewVerifier(cfg Config, httpClient *http.Client, logger *zap.Logger) *Verifier {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		cfg:        cfg,
		httpClient: httpClient,
		newBackOff: newRetryBackOff,
		logger:     logger,
	}
}

// newRetryBackOff is the retry policy for rate-limit and server errors:
// exponential starting at 1s, doubling, capped at 60s. Attempt count is
// bounded separately so the policy itself never gives up on elapsed time.
func newRetryBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialRetryDelay
	bo.MaxInterval = maxRetryDelay
	bo.Multiplier = retryDelayMultiply
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0
	return bo
}

// Verify sends the processed image and quest text to the model and returns
// its normalized verdict, or nil when verification could not happen.
// uploadWithoutGPS tells the model the photo arrived as a manual upload with
// no embedded coordinates so it can weigh authenticity accordingly.
func (v *Verifier) Verify(ctx context.Context, imageJPEG []byte, questTitle, questDescription string, uploadWithoutGPS bool) *Result {
	if v == nil || strings.TrimSpace(v.cfg.APIKey) == "" {
		if v != nil {
			v.logger.Warn("ai api key not configured, skipping content verification")
		}
		return nil
	}

	text, err := v.generateWithRetry(ctx, buildPrompt(questTitle, questDescription, uploadWithoutGPS), imageJPEG)
	if err != nil {
		v.logger.Warn("ai content verification failed, submission proceeds without it", zap.Error(err))
		return nil
	}
	if strings.TrimSpace(text) == "" {
		v.logger.Warn("ai model returned empty response")
		return nil
	}

	verdict, outcome := parseVerdict(text)
	switch outcome {
	case OutcomeMalformed:
		v.logger.Warn("ai response was not valid json", zap.String("response_head", head(text, 200)))
		return nil
	case OutcomeRepaired:
		v.logger.Info("ai response was truncated and repaired")
	}

	result := normalize(verdict)
	v.logger.Info("ai verification result",
		zap.String("grade", string(result.Grade)),
		zap.Int("content_match_score", result.ContentMatchScore),
		zap.Bool("is_authentic", result.IsAuthenticPhoto),
		zap.Bool("is_screenshot_or_ai", result.IsScreenshotOrScreenPhoto || result.IsAIGenerated),
		zap.Strings("flags", result.Flags),
	)
	return &result
}

func (v *Verifier) generateWithRetry(ctx context.Context, prompt string, imageJPEG []byte) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := v.generate(ctx, prompt, imageJPEG)
		if err == nil {
			return text, nil
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) && retryableStatus(apiErr.Status) {
			v.logger.Info("ai request will be retried",
				zap.Int("attempt", attempt),
				zap.Int("status", apiErr.Status),
			)
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(v.newBackOff(), maxAttempts-1), ctx)
	return backoff.RetryWithData(op, policy)
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("ai api status %d: %s", e.Status, head(e.Body, 200))
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Role  string        `json:"role"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (v *Verifier) generate(ctx context.Context, prompt string, imageJPEG []byte) (string, error) {
	payload := generateRequest{
		Contents: []requestContent{{
			Role: "user",
			Parts: []requestPart{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(imageJPEG),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			MaxOutputTokens:  2048,
			ResponseMimeType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(v.cfg.Endpoint, "/"), v.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", v.cfg.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send generate request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{Status: resp.StatusCode, Body: string(raw)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func buildPrompt(questTitle, questDescription string, uploadWithoutGPS bool) string {
	var sb strings.Builder

	sb.WriteString("You are a photo verification system for a location-based quest app. The user submitted a photo for a quest.\n\n")
	fmt.Fprintf(&sb, "Quest title: %s\n", questTitle)
	fmt.Fprintf(&sb, "Quest description: %s\n", questDescription)

	if uploadWithoutGPS {
		sb.WriteString("\nNote: This photo has no GPS data embedded in EXIF (uploaded photo). Consider this when grading authenticity.\n")
	}

	sb.WriteString(`
Analyze the image and respond with a single JSON object (no markdown, no extra text) with exactly these keys:
- "content_match_score": number 0-100 (how well the photo content matches the quest subject/location)
- "is_authentic_photo": boolean (true if this looks like a real photo taken at a real place, not a screenshot, not a photo of a screen, not AI-generated)
- "is_screenshot_or_screen_photo": boolean (true if the image appears to be a screenshot or a photo of a screen/display)
- "is_ai_generated": boolean (true if the image appears to be AI-generated or synthetic)
- "scene_description": string (brief description of what you see in the image)
- "grade": string, one of "A", "B", "C", "D", "F" (A = clearly matches quest and authentic, F = wrong or inauthentic)
- "reasoning": string (short explanation)
- "flags": array of strings (e.g. "possible screen photo", "unclear subject", or empty [])
`)

	return sb.String()
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
