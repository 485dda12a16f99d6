package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role
	Content string
}

// ConversationContext is supplied by the caller on every chat request.
type ConversationContext struct {
	Company        string
	JobTitle       string
	JobDescription string
	MatchScore     *float64
	Feedback       *Feedback
	Suggestions    []string
	ResumeText     string
}

// NewConversationContext builds a context from a finished match.
func NewConversationContext(company, jobTitle string, result *MatchResult) *ConversationContext {
	score := result.Score.Value
	feedback := result.Feedback
	return &ConversationContext{
		Company:        company,
		JobTitle:       jobTitle,
		JobDescription: result.JobText,
		MatchScore:     &score,
		Feedback:       &feedback,
		Suggestions:    result.Suggestions,
		ResumeText:     result.ResumeText,
	}
}

// ConversationTurn is the persisted form of a Turn.
type ConversationTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;index;not null" json:"session_id"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

func (t ConversationTurn) Turn() Turn {
	return Turn{Role: Role(t.Role), Content: t.Content}
}
