package repositories

import (
	"context"
	"sync"

	"alfredoptarigan/cv-matcher/internal/models"
)

type memoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]models.Turn
}

// NewMemoryConversationRepository keeps turns in process memory. Used when no
// database is configured.
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{sessions: make(map[string][]models.Turn)}
}

func (r *memoryConversationRepository) Append(_ context.Context, sessionID string, turn models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], turn)
	return nil
}

func (r *memoryConversationRepository) FindBySession(_ context.Context, sessionID string) ([]models.Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Turn(nil), r.sessions[sessionID]...), nil
}

func (r *memoryConversationRepository) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
