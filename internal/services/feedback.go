package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/models"
)

const (
	MaxMissingKeywords = 15
	chatKeywordLimit   = 5

	HelpMessage = "I'm here to help! Please ask specific questions about improving your resume or matching it to the job description."
)

var genericSuggestions = []string{
	"Consider adding more specific skills related to the job requirements.",
	"Emphasize relevant experience in the job field.",
}

type FeedbackGenerator interface {
	GenerateFeedback(jobText, resumeText string, score float64) models.Feedback
	// AnalyzeKeywords lists job tokens missing from the résumé in the order
	// they first appear in the job text, at most MaxMissingKeywords.
	AnalyzeKeywords(jobText, resumeText string) []string
	ImprovementSuggestions(prior *models.Feedback) []string
	// ChatResponse answers simple questions by keyword routing, without a model.
	ChatResponse(ctx context.Context, query, jobText, resumeText string) string
}

type feedbackGenerator struct {
	scorer MatchScorer
	logger *zap.Logger
}

func NewFeedbackGenerator(scorer MatchScorer, logger *zap.Logger) FeedbackGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedbackGenerator{scorer: scorer, logger: logger}
}

func (f *feedbackGenerator) GenerateFeedback(jobText, resumeText string, score float64) models.Feedback {
	return models.Feedback{
		OverallMatch: models.OverallMatch{
			Assessment: fmt.Sprintf("The resume matches the job description with a score of %s.", FormatScore(score)),
		},
		KeywordsAnalysis: models.KeywordsAnalysis{
			MissingKeywords: f.AnalyzeKeywords(jobText, resumeText),
		},
		DetailedRecommendations: f.ImprovementSuggestions(nil),
	}
}

func (f *feedbackGenerator) AnalyzeKeywords(jobText, resumeText string) []string {
	present := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(resumeText)) {
		present[token] = struct{}{}
	}

	missing := make([]string, 0, MaxMissingKeywords)
	for _, token := range strings.Fields(strings.ToLower(jobText)) {
		if len(missing) == MaxMissingKeywords {
			break
		}
		if _, ok := present[token]; ok {
			continue
		}
		present[token] = struct{}{}
		missing = append(missing, token)
	}

	return missing
}

func (f *feedbackGenerator) ImprovementSuggestions(prior *models.Feedback) []string {
	if prior != nil {
		return append([]string(nil), prior.DetailedRecommendations...)
	}
	return append([]string(nil), genericSuggestions...)
}

func (f *feedbackGenerator) ChatResponse(ctx context.Context, query, jobText, resumeText string) string {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "improve") || strings.Contains(q, "suggestions"):
		return "Here are some suggestions to improve your resume: " +
			strings.Join(f.ImprovementSuggestions(nil), "; ")

	case strings.Contains(q, "keywords") || strings.Contains(q, "missing"):
		keywords := f.AnalyzeKeywords(jobText, resumeText)
		if len(keywords) > chatKeywordLimit {
			keywords = keywords[:chatKeywordLimit]
		}
		return "Consider including these keywords: " + strings.Join(keywords, ", ")

	case strings.Contains(q, "match score"):
		score, err := f.scorer.Score(ctx, jobText, resumeText)
		if err != nil {
			f.logger.Error("match score unavailable for chat", zap.Error(err))
		}
		return fmt.Sprintf("Your resume match score with this job description is: %s / 100", FormatScore(score.Value))
	}

	return HelpMessage
}

// FormatScore prints a score with at least one decimal: 87.5, 100.0, 0.0.
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
