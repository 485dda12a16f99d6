package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/logger"
	"alfredoptarigan/cv-matcher/internal/metrics"
	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/resilience"
)

const (
	ApologyMessage = "An error occurred while generating a response."

	DefaultHistoryWindow = 20
)

type chatGenerator interface {
	GenerateChat(ctx context.Context, systemPrompt string, turns []models.Turn) (string, error)
}

type ChatOptions struct {
	Timeout time.Duration
	// HistoryWindow caps how many recent turns are sent to the model. The
	// engine itself keeps every turn.
	HistoryWindow int
}

// ConversationEngine holds one session's history. Respond calls on the same
// engine are serialized.
type ConversationEngine struct {
	sessionID string
	generator chatGenerator
	prompts   *PromptBuilder
	store     repositories.ConversationRepository
	executor  *resilience.Executor
	opts      ChatOptions
	metrics   *metrics.Recorder
	logger    *zap.Logger

	mu      sync.Mutex
	history []models.Turn
}

// NewConversationEngine creates an engine for sessionID. store may be nil, in
// which case history lives only in memory.
func NewConversationEngine(
	sessionID string,
	generator chatGenerator,
	prompts *PromptBuilder,
	store repositories.ConversationRepository,
	executor *resilience.Executor,
	opts ChatOptions,
	recorder *metrics.Recorder,
	log *zap.Logger,
) *ConversationEngine {
	if prompts == nil {
		prompts = NewPromptBuilder(0, 0)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ConversationEngine{
		sessionID: sessionID,
		generator: generator,
		prompts:   prompts,
		store:     store,
		executor:  executor,
		opts:      opts,
		metrics:   recorder,
		logger:    log.With(zap.String("session", sessionID)),
	}
}

func (e *ConversationEngine) SessionID() string {
	return e.sessionID
}

// Respond records the query, asks the model and returns the formatted reply.
// When the model fails it returns ApologyMessage and only the user turn is
// kept in history.
func (e *ConversationEngine) Respond(ctx context.Context, query string, cc *models.ConversationContext) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.record(ctx, models.Turn{Role: models.RoleUser, Content: query})

	systemPrompt := e.prompts.BuildSystemPrompt(cc)
	window := e.window()

	e.logger.Debug("sending chat request",
		zap.Int("history", len(e.history)),
		zap.Int("window", len(window)),
		logger.Text("system", systemPrompt, 120),
	)

	reply, err := e.generate(ctx, systemPrompt, window)
	if err != nil {
		e.metrics.ChatReply(false)
		e.metrics.ProviderFailure("chat")
		e.logger.Warn("chat generation failed", zap.Error(fmt.Errorf("%w: %w", ErrProviderUnavailable, err)))
		return ApologyMessage
	}

	e.record(ctx, models.Turn{Role: models.RoleAssistant, Content: reply})
	e.metrics.ChatReply(true)

	return FormatResponse(reply)
}

func (e *ConversationEngine) generate(ctx context.Context, systemPrompt string, turns []models.Turn) (string, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	return resilience.Call(ctx, e.executor, "chat", func(ctx context.Context) (string, error) {
		reply, err := e.generator.GenerateChat(ctx, systemPrompt, turns)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(reply) == "" {
			return "", errors.New("empty chat reply")
		}
		return reply, nil
	}, classifyProviderError)
}

// window returns the most recent turns, starting at a user turn.
func (e *ConversationEngine) window() []models.Turn {
	start := max(len(e.history)-e.opts.HistoryWindow, 0)
	for start < len(e.history)-1 && e.history[start].Role != models.RoleUser {
		start++
	}
	return append([]models.Turn(nil), e.history[start:]...)
}

func (e *ConversationEngine) record(ctx context.Context, turn models.Turn) {
	e.history = append(e.history, turn)
	if e.store == nil {
		return
	}
	if err := e.store.Append(ctx, e.sessionID, turn); err != nil {
		e.logger.Warn("failed to persist conversation turn", zap.String("role", string(turn.Role)), zap.Error(err))
	}
}

// History returns a copy of every turn exchanged in this session.
func (e *ConversationEngine) History() []models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Turn(nil), e.history...)
}

// ClearHistory empties the in-memory history and deletes persisted turns.
// Memory is cleared even if the store fails.
func (e *ConversationEngine) ClearHistory(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = nil
	e.logger.Info("chat memory cleared")

	if e.store == nil {
		return nil
	}
	if err := e.store.DeleteBySession(ctx, e.sessionID); err != nil {
		return fmt.Errorf("failed to clear persisted history: %w", err)
	}
	return nil
}

// Restore replaces the in-memory history with the persisted one.
func (e *ConversationEngine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	turns, err := e.store.FindBySession(ctx, e.sessionID)
	if err != nil {
		return fmt.Errorf("failed to restore history: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = turns
	return nil
}
