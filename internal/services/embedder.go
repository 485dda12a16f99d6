package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"alfredoptarigan/cv-matcher/internal/metrics"
	"alfredoptarigan/cv-matcher/internal/resilience"
)

const DefaultEmbeddingMaxChars = 512

// EmbeddingProvider maps text to a fixed-length vector. Errors wrap
// ErrProviderUnavailable.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type embeddingBackend interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingOptions struct {
	MaxChars int
	Timeout  time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

type embeddingService struct {
	backend  embeddingBackend
	opts     EmbeddingOptions
	limiter  *rate.Limiter
	executor *resilience.Executor
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

func NewEmbeddingService(
	backend embeddingBackend,
	opts EmbeddingOptions,
	executor *resilience.Executor,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) EmbeddingProvider {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultEmbeddingMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}

	return &embeddingService{
		backend:  backend,
		opts:     opts,
		limiter:  limiter,
		executor: executor,
		metrics:  recorder,
		logger:   logger,
	}
}

func (e *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(text, e.opts.MaxChars)

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	vector, err := e.embed(ctx, text)
	if err != nil {
		e.metrics.ProviderFailure("embed")
		e.logger.Warn("embedding provider call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return vector, nil
}

func (e *embeddingService) embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	return resilience.Call(ctx, e.executor, "embed", func(ctx context.Context) ([]float32, error) {
		vector, err := e.backend.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vector) == 0 {
			return nil, errors.New("empty embedding vector")
		}
		return vector, nil
	}, classifyProviderError)
}

// truncateRunes keeps the first limit characters of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
