package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"github.com/PortNumber53/content-calendar/internal/logger"
)

const jsonMIMEType = "application/json"

var (
	// ErrEmptyResponse is returned when the model produced no candidate text.
	ErrEmptyResponse = errors.New("gemini returned no text")
	// ErrBlocked is returned when the prompt or every candidate was blocked.
	ErrBlocked = errors.New("gemini blocked the request")
)

type Config struct {
	APIKey string
	Model  string
	// RPS and Burst throttle outbound calls. RPS <= 0 disables throttling.
	RPS   float64
	Burst int
}

// GeminiClient calls generateContent on the Generative Language API.
type GeminiClient struct {
	models  *generativelanguage.ModelsService
	model   string
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewGeminiClient builds a client authenticated with cfg.APIKey. Extra options
// are appended after the API key (tests use option.WithEndpoint and
// option.WithHTTPClient).
func NewGeminiClient(ctx context.Context, cfg Config, log *logger.Logger, opts ...option.ClientOption) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && len(opts) == 0 {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-pro"
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	if log == nil {
		log = logger.Nop()
	}

	all := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := generativelanguage.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	var lim *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &GeminiClient{
		models:  svc.Models,
		model:   model,
		limiter: lim,
		log:     log.With("component", "gemini", "model", model),
	}, nil
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "")
}

// GenerateJSON requests application/json output. The text is returned as produced.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, jsonMIMEType)
}

func (c *GeminiClient) generate(ctx context.Context, prompt, mimeType string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("gemini rate limit: %w", err)
		}
	}

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
	}
	if mimeType != "" {
		req.GenerationConfig = &generativelanguage.GenerationConfig{ResponseMimeType: mimeType}
	}

	resp, err := c.models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gemini generateContent: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		c.log.Warn("gemini returned unusable response", "error", err)
		return "", err
	}
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *generativelanguage.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		if cand.FinishReason == "SAFETY" {
			return "", fmt.Errorf("%w: %s", ErrBlocked, cand.FinishReason)
		}
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
