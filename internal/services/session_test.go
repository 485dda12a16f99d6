package services

import (
	"context"
	"testing"
	"time"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
)

func newTestSessionManager(gen chatGenerator, store repositories.ConversationRepository) *SessionManager {
	return NewSessionManager(func(id string) *ConversationEngine {
		return NewConversationEngine(id, gen, nil, store, nil, ChatOptions{}, nil, nil)
	})
}

func TestSessionsAreIsolated(t *testing.T) {
	manager := newTestSessionManager(&stubGenerator{}, nil)
	ctx := context.Background()

	a := manager.NewSession()
	b := manager.NewSession()
	if a.SessionID() == b.SessionID() {
		t.Fatalf("sessions share an id")
	}

	a.Respond(ctx, "only for a", nil)
	if len(b.History()) != 0 {
		t.Fatalf("session b saw session a's history: %v", b.History())
	}
	if manager.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", manager.Len())
	}
}

func TestSessionReturnsSameEngine(t *testing.T) {
	manager := newTestSessionManager(&stubGenerator{}, nil)
	ctx := context.Background()

	first, err := manager.Session(ctx, "abc")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	second, _ := manager.Session(ctx, "abc")
	if first != second {
		t.Fatalf("expected the same engine for the same id")
	}
}

func TestSessionRestoresPersistedHistory(t *testing.T) {
	store := repositories.NewMemoryConversationRepository()
	ctx := context.Background()
	_ = store.Append(ctx, "resume-chat", models.Turn{Role: models.RoleUser, Content: "hi"})

	manager := newTestSessionManager(&stubGenerator{}, store)
	engine, err := manager.Session(ctx, "resume-chat")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if h := engine.History(); len(h) != 1 || h[0].Content != "hi" {
		t.Fatalf("history not restored: %v", h)
	}
}

func TestSessionClearAndClose(t *testing.T) {
	manager := newTestSessionManager(&stubGenerator{}, nil)
	ctx := context.Background()

	engine := manager.NewSession()
	engine.Respond(ctx, "hello", nil)

	if err := manager.Clear(ctx, engine.SessionID()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(engine.History()) != 0 {
		t.Fatalf("Clear() left history behind")
	}
	if err := manager.Clear(ctx, "unknown"); err != nil {
		t.Fatalf("Clear() on unknown session should be a no-op, got %v", err)
	}

	manager.Close(engine.SessionID())
	if manager.Len() != 0 {
		t.Fatalf("Close() did not forget the session")
	}
}

type gatedStore struct {
	repositories.ConversationRepository
	gatedID string
	release chan struct{}
}

func (s *gatedStore) FindBySession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if sessionID == s.gatedID {
		<-s.release
	}
	return s.ConversationRepository.FindBySession(ctx, sessionID)
}

func TestSlowRestoreDoesNotBlockOtherSessions(t *testing.T) {
	store := &gatedStore{
		ConversationRepository: repositories.NewMemoryConversationRepository(),
		gatedID:                "slow",
		release:                make(chan struct{}),
	}
	manager := newTestSessionManager(&stubGenerator{}, store)
	ctx := context.Background()

	slowDone := make(chan *ConversationEngine, 1)
	go func() {
		engine, _ := manager.Session(ctx, "slow")
		slowDone <- engine
	}()

	fastDone := make(chan error, 1)
	go func() {
		_, err := manager.Session(ctx, "fast")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("Session(fast) error = %v", err)
		}
	case <-time.After(time.Second):
		close(store.release)
		t.Fatalf("session fast waited on the restore of session slow")
	}

	close(store.release)
	slow := <-slowDone
	if slow == nil || slow.SessionID() != "slow" {
		t.Fatalf("Session(slow) = %v", slow)
	}
	if again, _ := manager.Session(ctx, "slow"); again != slow {
		t.Fatalf("expected the restored engine to be stored")
	}
	if manager.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", manager.Len())
	}
}
