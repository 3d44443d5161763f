package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/roadwatch-kerala/backend/internal/config"
	"github.com/roadwatch-kerala/backend/internal/metrics"
	"github.com/roadwatch-kerala/backend/internal/models"
	"gorm.io/datatypes"
)

// Adjudicator produces a moderation verdict for one report. It never fails:
// any problem with the external judge degrades to a fail-safe verdict.
type Adjudicator interface {
	Adjudicate(ctx context.Context, in AdjudicateInput) models.Verdict
}

// AdjudicateInput carries the report fields sent to the external judge.
type AdjudicateInput struct {
	PlateNumber string
	Violations  []string
	Location    string
	Description string
	ReporterRef string
}

// ModerationService adjudicates reports through the Anthropic Messages API.
type ModerationService struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	maxTokens  int
	timeout    time.Duration
	metrics    *metrics.Metrics
}

func NewModerationService(cfg *config.Config, m *metrics.Metrics) *ModerationService {
	return &ModerationService{
		httpClient: &http.Client{Timeout: cfg.AITimeout},
		apiURL:     cfg.AnthropicAPIURL,
		apiKey:     cfg.AnthropicAPIKey,
		model:      cfg.AnthropicModel,
		maxTokens:  cfg.AIMaxTokens,
		timeout:    cfg.AITimeout,
		metrics:    m,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// jsonObjectPattern grabs the first JSON object embedded in free-form text.
// The judge usually wraps its JSON in prose or markdown fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Adjudicate sends the report to the external judge and parses a best-effort
// verdict out of the response text. Failure policy is fail-safe, not
// fail-closed: provider outages approve with confidence 0.3 and an
// "ai_error" flag so legitimate reports are never blocked by downtime.
func (s *ModerationService) Adjudicate(ctx context.Context, in AdjudicateInput) models.Verdict {
	start := time.Now()
	verdict := s.adjudicate(ctx, in)
	s.metrics.ModerationTime.Observe(time.Since(start).Seconds())
	return verdict
}

func (s *ModerationService) adjudicate(ctx context.Context, in AdjudicateInput) models.Verdict {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.complete(ctx, buildModerationPrompt(in))
	if err != nil {
		slog.Error("AI moderation call failed", "error", err, "plate", in.PlateNumber)
		s.metrics.ModerationCalls.WithLabelValues("ai_error").Inc()
		return failSafeVerdict(err)
	}

	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		s.metrics.ModerationCalls.WithLabelValues("unparseable").Inc()
		return models.Verdict{
			Approved:   true,
			Reason:     "Unable to parse AI response, approved by default",
			Confidence: 0.5,
			Flags:      datatypes.JSONSlice[string]{},
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("AI moderation returned malformed JSON", "error", err)
		s.metrics.ModerationCalls.WithLabelValues("ai_error").Inc()
		return failSafeVerdict(err)
	}

	s.metrics.ModerationCalls.WithLabelValues("ok").Inc()
	return verdictFromParsed(parsed)
}

func (s *ModerationService) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("moderation call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("moderation service returned status %d", resp.StatusCode)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode moderation response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("moderation response contained no content")
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func failSafeVerdict(err error) models.Verdict {
	return models.Verdict{
		Approved:   true,
		Reason:     fmt.Sprintf("AI unavailable, flagged for manual review: %v", err),
		Confidence: 0.3,
		Flags:      datatypes.JSONSlice[string]{"ai_error"},
	}
}

// verdictFromParsed fills missing keys with conservative defaults. The judge
// is free-form; a parsed object with no "approved" key stays rejected.
func verdictFromParsed(parsed map[string]any) models.Verdict {
	v := models.Verdict{
		Approved:   false,
		Reason:     "AI moderation completed",
		Confidence: 0.5,
		Flags:      datatypes.JSONSlice[string]{},
	}
	if approved, ok := parsed["approved"].(bool); ok {
		v.Approved = approved
	}
	if reason, ok := parsed["reason"].(string); ok {
		v.Reason = reason
	}
	if confidence, ok := parsed["confidence"].(float64); ok {
		v.Confidence = confidence
	}
	if flags, ok := parsed["flags"].([]any); ok {
		for _, f := range flags {
			if s, ok := f.(string); ok {
				v.Flags = append(v.Flags, s)
			}
		}
	}
	return v
}

func buildModerationPrompt(in AdjudicateInput) string {
	description := in.Description
	if description == "" {
		description = "(No description provided)"
	}
	reporter := in.ReporterRef
	if reporter == "" {
		reporter = "anonymous"
	}

	return fmt.Sprintf(`You are a traffic violation report moderator for Kerala, India.
Review this report and determine if it's legitimate or should be rejected.

Report Details:
- Plate Number: %s
- Violations: %s
- Location: %s
- Description: %s
- Submitted by User ID: %s

IMPORTANT GUIDELINES:
- **Descriptions are OPTIONAL** - A report with violation type + location is sufficient
- **Empty/missing descriptions are acceptable** - Don't flag as vague if violation type is selected
- Only reject if there's clear abuse, spam, or impossible claims

Check for these red flags ONLY:
1. **Personal vendetta**: Same user repeatedly reporting the same plate
2. **Abusive language**: Slurs, threats, or hate speech in Hindi/English/Malayalam
3. **Spam patterns**: Multiple similar reports in short time
4. **Impossible violations**: Contradictory claims (e.g., "No helmet" for a car)

DO NOT reject for:
- Missing or short descriptions
- Generic violation reports (they selected a violation type, that's enough)
- Reports that just state facts without elaboration

Respond in JSON format:
{
    "approved": true/false,
    "reason": "Brief explanation for your decision",
    "confidence": 0.0-1.0,
    "flags": ["list", "of", "issues", "found"]
}`,
		in.PlateNumber,
		strings.Join(in.Violations, ", "),
		in.Location,
		description,
		reporter,
	)
}
