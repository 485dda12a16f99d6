package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/services"
)

type echoGenerator struct {
	calls int
}

func (g *echoGenerator) GenerateChat(_ context.Context, _ string, turns []models.Turn) (string, error) {
	g.calls++
	return "**echo** " + turns[len(turns)-1].Content, nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 1}, nil
}

func newTestREPL(input string) (*repl, *echoGenerator, *bytes.Buffer) {
	color.NoColor = true
	gen := &echoGenerator{}
	engine := services.NewConversationEngine("cli", gen, nil, nil, nil, services.ChatOptions{}, nil, nil)
	scorer := services.NewMatchScorer(staticEmbedder{}, nil, nil)
	out := &bytes.Buffer{}
	return &repl{
		in:       strings.NewReader(input),
		out:      out,
		engine:   engine,
		feedback: services.NewFeedbackGenerator(scorer, nil),
		context: &models.ConversationContext{
			JobDescription: "python flask sql",
			ResumeText:     "python",
		},
	}, gen, out
}

func TestREPLSendsQuestionsToEngine(t *testing.T) {
	r, gen, out := newTestREPL("hello there\n/quit\nnever read\n")

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if !strings.Contains(out.String(), "Assistant: <strong>echo</strong> hello there") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(r.engine.History()) != 2 {
		t.Fatalf("history = %v", r.engine.History())
	}
}

func TestREPLQuickAnswersSkipTheModel(t *testing.T) {
	r, gen, out := newTestREPL("? what keywords am I missing\n")

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("quick answer should not call the model")
	}
	if !strings.Contains(out.String(), "Consider including these keywords: flask, sql") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestREPLClear(t *testing.T) {
	r, _, out := newTestREPL("first\n/clear\n")

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(r.engine.History()) != 0 {
		t.Fatalf("history not cleared: %v", r.engine.History())
	}
	if !strings.Contains(out.String(), "Conversation cleared.") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLoadJob(t *testing.T) {
	a := &application{loader: services.NewDocumentLoader(0)}

	doc, err := a.loadJob("", "Go engineer", "")
	if err != nil || doc.MediaType != models.MediaTypeText || string(doc.Content) != "Go engineer" {
		t.Fatalf("loadJob(text) = %+v, %v", doc, err)
	}
	if _, err := a.loadJob("job.txt", "Go engineer", ""); err == nil {
		t.Fatalf("expected error when both sources are given")
	}
	if _, err := a.loadJob("", "", ""); err == nil {
		t.Fatalf("expected error when no source is given")
	}
}
