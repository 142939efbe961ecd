package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/genai"
)

// AIClient wraps the Gemini API with a primary and an optional fallback key.
// A call that fails on the primary key is retried once on the fallback before
// the error is surfaced.
type AIClient struct {
	model       string
	temperature float32
	apiKey      string
	fallbackKey string
	logger      *slog.Logger
}

func NewAIClient(model string, temperature float32, logger *slog.Logger) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	fallbackKey := os.Getenv("GOOGLE_GEMINI_API_KEY_FALLBACK")
	if fallbackKey == "" {
		logger.Warn("Gemini fallback API key not configured")
	}
	return &AIClient{
		model:       model,
		temperature: temperature,
		apiKey:      apiKey,
		fallbackKey: fallbackKey,
		logger:      logger,
	}, nil
}

// GenerateContent sends a single prompt and returns the generated text,
// retrying once on the fallback key.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	text, err := ai.generateWithKey(ctx, prompt, ai.apiKey)
	if err == nil {
		return text, nil
	}
	ai.logger.WarnContext(ctx, "Primary Gemini API key failed", slog.Any("error", err))

	if ai.fallbackKey == "" {
		return "", err
	}
	text, fallbackErr := ai.generateWithKey(ctx, prompt, ai.fallbackKey)
	if fallbackErr != nil {
		ai.logger.ErrorContext(ctx, "Fallback Gemini API key also failed", slog.Any("error", fallbackErr))
		return "", fmt.Errorf("both primary and fallback API keys failed: primary: %w, fallback: %v", err, fallbackErr)
	}
	return text, nil
}

func (ai *AIClient) generateWithKey(ctx context.Context, prompt, apiKey string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create client: %w", err)
	}
	result, err := client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](ai.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no content generated")
	}
	return text, nil
}
