package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/cv-matcher/internal/models"
)

// ConversationRepository persists chat turns per session.
type ConversationRepository interface {
	Append(ctx context.Context, sessionID string, turn models.Turn) error
	FindBySession(ctx context.Context, sessionID string) ([]models.Turn, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Append implements ConversationRepository.
func (r *conversationRepository) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	record := models.ConversationTurn{
		SessionID: sessionID,
		Role:      string(turn.Role),
		Content:   turn.Content,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}

	return nil
}

// FindBySession implements ConversationRepository.
func (r *conversationRepository) FindBySession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	var records []models.ConversationTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation turns: %w", err)
	}

	turns := make([]models.Turn, 0, len(records))
	for _, record := range records {
		turns = append(turns, record.Turn())
	}
	return turns, nil
}

// DeleteBySession implements ConversationRepository.
func (r *conversationRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.ConversationTurn{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete conversation turns: %w", err)
	}

	return nil
}
