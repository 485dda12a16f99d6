package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/models"
)

type MatchService interface {
	// Match extracts both documents and scores them. Extraction errors are
	// returned; provider failures only degrade the score.
	Match(ctx context.Context, job, resume *models.Document) (*models.MatchResult, error)
	// MatchTexts scores two texts that have already been extracted.
	MatchTexts(ctx context.Context, jobText, resumeText string) (*models.MatchResult, error)
}

type matchService struct {
	extractor TextExtractor
	scorer    MatchScorer
	feedback  FeedbackGenerator
	logger    *zap.Logger
}

func NewMatchService(
	extractor TextExtractor,
	scorer MatchScorer,
	feedback FeedbackGenerator,
	logger *zap.Logger,
) MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &matchService{
		extractor: extractor,
		scorer:    scorer,
		feedback:  feedback,
		logger:    logger,
	}
}

func (m *matchService) Match(ctx context.Context, job, resume *models.Document) (*models.MatchResult, error) {
	jobText, err := m.extractor.Extract(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description: %w", err)
	}

	resumeText, err := m.extractor.Extract(ctx, resume)
	if err != nil {
		return nil, fmt.Errorf("failed to extract resume: %w", err)
	}

	result, err := m.MatchTexts(ctx, jobText, resumeText)
	if err != nil {
		return nil, err
	}
	result.JobName = job.Name
	result.ResumeName = resume.Name
	return result, nil
}

func (m *matchService) MatchTexts(ctx context.Context, jobText, resumeText string) (*models.MatchResult, error) {
	jobText = CleanText(jobText)
	resumeText = CleanText(resumeText)

	score, err := m.scorer.Score(ctx, jobText, resumeText)
	if err != nil {
		return nil, fmt.Errorf("failed to score match: %w", err)
	}

	feedback := m.feedback.GenerateFeedback(jobText, resumeText, score.Value)

	m.logger.Info("match computed",
		zap.Float64("score", score.Value),
		zap.Bool("degraded", score.Degraded),
		zap.Int("missing_keywords", len(feedback.KeywordsAnalysis.MissingKeywords)),
	)

	return &models.MatchResult{
		Score:       score,
		Feedback:    feedback,
		Suggestions: m.feedback.ImprovementSuggestions(&feedback),
		JobText:     jobText,
		ResumeText:  resumeText,
	}, nil
}
