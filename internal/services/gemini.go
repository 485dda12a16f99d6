package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/resilience"
)

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	// GenerateChat sends a system instruction plus conversation turns and
	// returns the model's raw reply.
	GenerateChat(ctx context.Context, systemPrompt string, turns []models.Turn) (string, error)
	EmbedModel() string
}

type GeminiOptions struct {
	APIKey string
	// Backend is "gemini" for the hosted Gemini API or "vertex" for Vertex AI.
	Backend         string
	Project         string
	Location        string
	ChatModel       string
	EmbedModel      string
	EmbedDimension  int32
	Temperature     float32
	MaxOutputTokens int32
}

type geminiService struct {
	client *genai.Client
	opts   GeminiOptions
	logger *zap.Logger
}

func NewGeminiService(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (GeminiService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &genai.ClientConfig{}
	switch opts.Backend {
	case "vertex":
		if strings.TrimSpace(opts.Project) == "" {
			return nil, errors.New("vertex backend requires a project")
		}
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = opts.Project
		cfg.Location = opts.Location
	case "", "gemini":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errors.New("gemini api key is required")
		}
		cfg.Backend = genai.BackendGeminiAPI
		cfg.APIKey = opts.APIKey
	default:
		return nil, fmt.Errorf("unknown gemini backend %q", opts.Backend)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if opts.ChatModel == "" {
		opts.ChatModel = "gemini-2.5-flash"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "text-embedding-004"
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1024
	}

	logger.Info("gemini client ready",
		zap.String("backend", cfg.Backend.String()),
		zap.String("chat_model", opts.ChatModel),
		zap.String("embed_model", opts.EmbedModel),
	)

	return &geminiService{client: client, opts: opts, logger: logger}, nil
}

func (g *geminiService) EmbedModel() string {
	return g.opts.EmbedModel
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	config := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.opts.EmbedDimension > 0 {
		dim := g.opts.EmbedDimension
		config.OutputDimensionality = &dim
	}

	result, err := g.client.Models.EmbedContent(ctx, g.opts.EmbedModel, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateChat implements GeminiService.
func (g *geminiService) GenerateChat(ctx context.Context, systemPrompt string, turns []models.Turn) (string, error) {
	temperature := g.opts.Temperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   g.opts.MaxOutputTokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.ChatModel, toContents(turns), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no text content in response")
	}

	return text, nil
}

func toContents(turns []models.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}

// classifyProviderError marks timeouts, rate limits and 5xx responses as
// retryable. Client errors are permanent and do not trip the breaker.
func classifyProviderError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		case apiErr.Code >= 400:
			return resilience.ErrorClassification{}
		}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
