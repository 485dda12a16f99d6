package services

import (
	"strings"

	"alfredoptarigan/cv-matcher/internal/models"
)

const assistantPersona = "You are a helpful assistant for job applications and resume guidance."

type PromptBuilder struct {
	contextChars       int
	contextSuggestions int
}

func NewPromptBuilder(contextChars, contextSuggestions int) *PromptBuilder {
	if contextChars <= 0 {
		contextChars = 500
	}
	if contextSuggestions <= 0 {
		contextSuggestions = 5
	}
	return &PromptBuilder{
		contextChars:       contextChars,
		contextSuggestions: contextSuggestions,
	}
}

// BuildSystemPrompt creates the system instruction for a chat turn. Long
// fields are cut to contextChars characters and suggestions to
// contextSuggestions items.
func (pb *PromptBuilder) BuildSystemPrompt(cc *models.ConversationContext) string {
	if cc == nil {
		return assistantPersona
	}

	score := "N/A"
	if cc.MatchScore != nil {
		score = FormatScore(*cc.MatchScore)
	}

	assessment := ""
	if cc.Feedback != nil {
		assessment = cc.Feedback.OverallMatch.Assessment
	}

	suggestions := cc.Suggestions
	if len(suggestions) > pb.contextSuggestions {
		suggestions = suggestions[:pb.contextSuggestions]
	}

	details := []string{
		"Company: " + orNA(cc.Company),
		"Job Title: " + orNA(cc.JobTitle),
		"Job Description: " + truncateRunes(orNA(cc.JobDescription), pb.contextChars) + "...",
		"Match Score: " + score,
		"Feedback Assessment: " + assessment,
		"Suggestions: " + strings.Join(suggestions, ", "),
	}

	var b strings.Builder
	b.WriteString(assistantPersona)
	b.WriteString(" Here are the details of the job application: ")
	b.WriteString(strings.Join(details, " "))
	b.WriteString(" Resume: ")
	b.WriteString(truncateRunes(orNA(cc.ResumeText), pb.contextChars))
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
