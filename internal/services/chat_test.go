package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
)

func newTestEngine(gen chatGenerator, store repositories.ConversationRepository, opts ChatOptions) *ConversationEngine {
	return NewConversationEngine("session-1", gen, nil, store, nil, opts, nil, nil)
}

func TestRespondFormatsReplyAndRecordsRawTurn(t *testing.T) {
	gen := &stubGenerator{replies: []string{"Add **Go** to your\nskills"}}
	engine := newTestEngine(gen, nil, ChatOptions{})

	got := engine.Respond(context.Background(), "How can I improve?", nil)
	if got != "Add <strong>Go</strong> to your<br>skills" {
		t.Fatalf("Respond() = %q", got)
	}

	history := engine.History()
	want := []models.Turn{
		{Role: models.RoleUser, Content: "How can I improve?"},
		{Role: models.RoleAssistant, Content: "Add **Go** to your\nskills"},
	}
	if len(history) != len(want) {
		t.Fatalf("history = %v, want %v", history, want)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("history[%d] = %v, want %v", i, history[i], want[i])
		}
	}
}

func TestRespondFailureReturnsApology(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	gen := &stubGenerator{err: errors.New("model overloaded")}
	engine := NewConversationEngine("s", gen, nil, nil, nil, ChatOptions{}, nil, zap.New(core))

	before := len(engine.History())
	got := engine.Respond(context.Background(), "hello", nil)
	if got != ApologyMessage {
		t.Fatalf("Respond() = %q, want apology", got)
	}
	if after := len(engine.History()); after != before+1 {
		t.Fatalf("history grew by %d, want 1", after-before)
	}
	if logs.FilterMessage("chat generation failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
}

func TestRespondTreatsEmptyReplyAsFailure(t *testing.T) {
	engine := newTestEngine(&stubGenerator{replies: []string{"   "}}, nil, ChatOptions{})

	if got := engine.Respond(context.Background(), "hello", nil); got != ApologyMessage {
		t.Fatalf("Respond() = %q, want apology", got)
	}
}

func TestRespondSendsContextAndHistory(t *testing.T) {
	gen := &stubGenerator{replies: []string{"first", "second"}}
	engine := newTestEngine(gen, nil, ChatOptions{})
	cc := &models.ConversationContext{Company: "ACME"}

	engine.Respond(context.Background(), "q1", cc)
	engine.Respond(context.Background(), "q2", cc)

	call := gen.lastCall()
	if want := NewPromptBuilder(0, 0).BuildSystemPrompt(cc); call.system != want {
		t.Fatalf("system prompt = %q, want %q", call.system, want)
	}
	if len(call.turns) != 3 || call.turns[2].Content != "q2" || call.turns[1].Content != "first" {
		t.Fatalf("unexpected turns sent: %v", call.turns)
	}
}

func TestClearHistory(t *testing.T) {
	gen := &stubGenerator{}
	store := repositories.NewMemoryConversationRepository()
	engine := newTestEngine(gen, store, ChatOptions{})
	ctx := context.Background()

	engine.Respond(ctx, "q1", nil)
	engine.Respond(ctx, "q2", nil)
	if err := engine.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if len(engine.History()) != 0 {
		t.Fatalf("history not cleared")
	}

	engine.Respond(ctx, "q3", nil)
	call := gen.lastCall()
	if len(call.turns) != 1 || call.turns[0].Content != "q3" {
		t.Fatalf("model saw stale history: %v", call.turns)
	}

	persisted, _ := store.FindBySession(ctx, "session-1")
	if len(persisted) != 2 {
		t.Fatalf("expected only the post-clear exchange to be persisted, got %v", persisted)
	}
}

func TestHistoryWindowBoundsModelInput(t *testing.T) {
	gen := &stubGenerator{}
	engine := newTestEngine(gen, nil, ChatOptions{HistoryWindow: 4})
	ctx := context.Background()

	for i := range 5 {
		engine.Respond(ctx, fmt.Sprintf("q%d", i), nil)
	}

	call := gen.lastCall()
	if len(call.turns) > 4 {
		t.Fatalf("sent %d turns, want at most 4", len(call.turns))
	}
	if call.turns[0].Role != models.RoleUser {
		t.Fatalf("window must start at a user turn: %v", call.turns)
	}
	if last := call.turns[len(call.turns)-1]; last.Content != "q4" {
		t.Fatalf("window must end with the latest query, got %v", last)
	}
	if len(engine.History()) != 10 {
		t.Fatalf("engine should keep the full history, got %d", len(engine.History()))
	}
}

func TestRestoreLoadsPersistedTurns(t *testing.T) {
	store := repositories.NewMemoryConversationRepository()
	ctx := context.Background()
	_ = store.Append(ctx, "session-1", models.Turn{Role: models.RoleUser, Content: "earlier"})
	_ = store.Append(ctx, "session-1", models.Turn{Role: models.RoleAssistant, Content: "reply"})

	gen := &stubGenerator{}
	engine := newTestEngine(gen, store, ChatOptions{})
	if err := engine.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	engine.Respond(ctx, "now", nil)
	if call := gen.lastCall(); len(call.turns) != 3 || call.turns[0].Content != "earlier" {
		t.Fatalf("restored history not sent: %v", call.turns)
	}
}

type failingStore struct {
	repositories.ConversationRepository
}

func (failingStore) Append(context.Context, string, models.Turn) error {
	return errors.New("db down")
}

func (failingStore) DeleteBySession(context.Context, string) error {
	return errors.New("db down")
}

func TestStoreFailuresDoNotBreakChat(t *testing.T) {
	engine := newTestEngine(&stubGenerator{replies: []string{"fine"}}, failingStore{}, ChatOptions{})

	if got := engine.Respond(context.Background(), "hello", nil); got != "fine" {
		t.Fatalf("Respond() = %q", got)
	}
	if len(engine.History()) != 2 {
		t.Fatalf("in-memory history should still be kept")
	}

	if err := engine.ClearHistory(context.Background()); err == nil {
		t.Fatalf("expected store error from ClearHistory")
	}
	if len(engine.History()) != 0 {
		t.Fatalf("memory must be cleared even when the store fails")
	}
}

func TestRespondConcurrentCallsAreSerialized(t *testing.T) {
	gen := &stubGenerator{}
	engine := newTestEngine(gen, nil, ChatOptions{HistoryWindow: 1000})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engine.Respond(context.Background(), fmt.Sprintf("q%d", i), nil)
		}(i)
	}
	wg.Wait()

	history := engine.History()
	if len(history) != 40 {
		t.Fatalf("history has %d turns, want 40", len(history))
	}
	for i := 0; i < len(history); i += 2 {
		if history[i].Role != models.RoleUser || history[i+1].Role != models.RoleAssistant {
			t.Fatalf("turns interleaved at %d: %v", i, history[i:i+2])
		}
	}
}

type hangingGenerator struct{}

func (hangingGenerator) GenerateChat(ctx context.Context, _ string, _ []models.Turn) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRespondTimeoutReturnsApology(t *testing.T) {
	engine := newTestEngine(hangingGenerator{}, nil, ChatOptions{Timeout: 20 * time.Millisecond})

	before := len(engine.History())
	if got := engine.Respond(context.Background(), "hello", nil); got != ApologyMessage {
		t.Fatalf("Respond() = %q, want apology", got)
	}
	history := engine.History()
	if len(history) != before+1 || history[len(history)-1].Role != models.RoleUser {
		t.Fatalf("history = %v, want only the user turn added", history)
	}
}
