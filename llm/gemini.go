package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.2
)

// GeminiConfig holds configuration for the Gemini transport
type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	// Temperature falls back to DefaultTemperature when nil. Zero is a valid
	// setting.
	Temperature *float32
}

func (c GeminiConfig) withDefaults() GeminiConfig {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Temperature == nil {
		t := float32(DefaultTemperature)
		c.Temperature = &t
	}
	return c
}

// GeminiTransport implements Transport on top of the Gemini API
type GeminiTransport struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
	logger      *zap.Logger
}

// NewGeminiTransport creates a Gemini client and wraps it as a Transport
func NewGeminiTransport(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiTransport, error) {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	cfg = cfg.withDefaults()

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.Model),
		zap.Float32("temperature", *cfg.Temperature))
	return &GeminiTransport{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: *cfg.Temperature,
		logger:      logger,
	}, nil
}

// Close releases the underlying client
func (t *GeminiTransport) Close() error {
	return t.client.Close()
}

// Generate sends one prompt and returns the concatenated text parts of the reply
func (t *GeminiTransport) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// GenerativeModel carries mutable config, so build one per call.
	model := t.client.GenerativeModel(t.model)
	model.SetTemperature(t.temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = req.Schema

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	return extractText(resp, t.logger.With(zap.String("capability", req.Capability)))
}

func extractText(resp *genai.GenerateContentResponse, logger *zap.Logger) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}

	truncated := false
	for i, candidate := range resp.Candidates {
		switch candidate.FinishReason {
		case genai.FinishReasonUnspecified, genai.FinishReasonStop:
		case genai.FinishReasonMaxTokens:
			// Partial JSON is never usable.
			truncated = true
			logger.Warn("candidate truncated", zap.Int("candidate", i))
			continue
		default:
			logger.Warn("candidate finished early",
				zap.Int("candidate", i),
				zap.String("finish_reason", candidate.FinishReason.String()))
			continue
		}
		if candidate.Content == nil {
			continue
		}
		var out strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out.WriteString(string(text))
			}
		}
		// Only the first candidate that produced text is used.
		if out.Len() > 0 {
			return out.String(), nil
		}
	}

	if truncated {
		return "", ErrTruncated
	}
	return "", ErrEmptyResponse
}
