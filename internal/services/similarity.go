package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/metrics"
	"alfredoptarigan/cv-matcher/internal/models"
)

const (
	reasonProviderUnavailable = "provider_unavailable"
	reasonZeroVector          = "zero_vector"
)

type MatchScorer interface {
	// Score returns the similarity of two texts as a percentage. Provider
	// failures yield a degraded 0.0 score and a nil error; only a dimension
	// mismatch is returned as an error.
	Score(ctx context.Context, jobText, resumeText string) (models.MatchScore, error)
}

type matchScorer struct {
	embedder EmbeddingProvider
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

func NewMatchScorer(embedder EmbeddingProvider, recorder *metrics.Recorder, logger *zap.Logger) MatchScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &matchScorer{embedder: embedder, metrics: recorder, logger: logger}
}

func (s *matchScorer) Score(ctx context.Context, jobText, resumeText string) (models.MatchScore, error) {
	jobVector, jobErr := s.embedder.Embed(ctx, jobText)
	resumeVector, resumeErr := s.embedder.Embed(ctx, resumeText)
	if err := errors.Join(jobErr, resumeErr); err != nil {
		return s.degraded(reasonProviderUnavailable, err), nil
	}

	similarity, err := CosineSimilarity(jobVector, resumeVector)
	switch {
	case errors.Is(err, ErrZeroVector):
		return s.degraded(reasonZeroVector, err), nil
	case err != nil:
		s.logger.Error("cannot compare embeddings", zap.Error(err))
		return models.MatchScore{}, err
	}

	return models.MatchScore{Value: PercentScore(similarity)}, nil
}

func (s *matchScorer) degraded(reason string, cause error) models.MatchScore {
	s.metrics.DegradedScore(reason)
	s.logger.Warn("match score degraded to fallback",
		zap.Bool("degraded", true),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	return models.MatchScore{Value: 0, Degraded: true, Reason: reason}
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// PercentScore scales a cosine similarity to [0, 100] with two decimals.
func PercentScore(similarity float64) float64 {
	score := math.Round(similarity*100*100) / 100
	return math.Max(0, math.Min(100, score))
}
