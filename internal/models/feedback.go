package models

// Feedback is produced once per match and never modified afterwards.
type Feedback struct {
	OverallMatch            OverallMatch     `json:"overall_match"`
	KeywordsAnalysis        KeywordsAnalysis `json:"keywords_analysis"`
	DetailedRecommendations []string         `json:"detailed_recommendations"`
}

type OverallMatch struct {
	Assessment string `json:"assessment"`
}

type KeywordsAnalysis struct {
	MissingKeywords []string `json:"missing_keywords"`
}

// MatchScore is a similarity percentage in [0, 100]. Degraded marks the 0.0
// fallback used when an embedding could not be produced.
type MatchScore struct {
	Value    float64 `json:"match_score"`
	Degraded bool    `json:"degraded,omitempty"`
	Reason   string  `json:"degraded_reason,omitempty"`
}

type MatchResult struct {
	JobName    string     `json:"job,omitempty"`
	ResumeName string     `json:"resume,omitempty"`
	Score      MatchScore `json:"score"`
	Feedback   Feedback   `json:"feedback"`
	// Suggestions mirrors Feedback.DetailedRecommendations for callers that
	// feed it straight into a ConversationContext.
	Suggestions []string `json:"suggestions"`

	JobText    string `json:"-"`
	ResumeText string `json:"-"`
}
