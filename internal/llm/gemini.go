package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used by GeminiProvider.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration // per call; 0 = no deadline beyond the caller's
}

// GeminiProvider implements Provider using the Google GenAI SDK.
type GeminiProvider struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGeminiProvider(client.Models, cfg, logger), nil
}

func newGeminiProvider(models contentGenerator, cfg GeminiConfig, logger *slog.Logger) *GeminiProvider {
	if logger == nil {
		logger = slog.Default()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		models:  models,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Generate sends one request carrying the system instruction and prompt.
func (p *GeminiProvider) Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	start := time.Now()
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %w", ErrProvider, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrEmptyResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrProvider, resp.PromptFeedback.BlockReason)
	}

	text := resp.Text()
	p.logger.Debug("Gemini call completed",
		"model", p.model,
		"duration", time.Since(start),
		"response_length", len(text),
	)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var _ Provider = (*GeminiProvider)(nil)
