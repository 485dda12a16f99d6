package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/logger"
)

var embeddingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cv-matcher/embeddings"))

type vectorStore interface {
	GetVector(ctx context.Context, id string) ([]float32, bool, error)
	UpsertVector(ctx context.Context, id string, vector []float32, payload map[string]any) error
}

type cachedEmbeddingProvider struct {
	next     EmbeddingProvider
	store    vectorStore
	model    string
	maxChars int
	logger   *zap.Logger
}

// NewCachedEmbeddingProvider looks vectors up in store before calling next.
// Store failures are logged and never fail Embed.
func NewCachedEmbeddingProvider(next EmbeddingProvider, store vectorStore, model string, maxChars int, log *zap.Logger) EmbeddingProvider {
	if maxChars <= 0 {
		maxChars = DefaultEmbeddingMaxChars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &cachedEmbeddingProvider{
		next:     next,
		store:    store,
		model:    model,
		maxChars: maxChars,
		logger:   log,
	}
}

// EmbeddingCacheKey is the point ID a text is cached under. Texts that only
// differ past the truncation limit share a key, as they share a vector.
func EmbeddingCacheKey(model, text string, maxChars int) string {
	text = truncateRunes(text, maxChars)
	return uuid.NewSHA1(embeddingNamespace, []byte(model+"\x00"+text)).String()
}

func (c *cachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := EmbeddingCacheKey(c.model, text, c.maxChars)

	vector, ok, err := c.store.GetVector(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("embedding cache lookup failed", zap.String("key", key), zap.Error(err))
	case ok:
		c.logger.Debug("embedding cache hit", zap.String("key", key))
		return vector, nil
	}

	vector, err = c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model":   c.model,
		"preview": logger.TruncateForLog(text, 120),
	}
	if err := c.store.UpsertVector(ctx, key, vector, payload); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}

	return vector, nil
}
