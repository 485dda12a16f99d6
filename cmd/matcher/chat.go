package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/services"
)

const (
	commandClear = "/clear"
	commandQuit  = "/quit"
	// Messages with this prefix are answered by keyword routing, not the model.
	quickPrefix = "?"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Match a resume against a job and chat about the result",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("job", "", "job description file")
	chatCmd.Flags().String("job-text", "", "job description text")
	chatCmd.Flags().String("job-type", "", "job description type (text, pdf, docx)")
	chatCmd.Flags().String("resume", "", "resume file")
	chatCmd.Flags().String("company", "", "company name used in the conversation context")
	chatCmd.Flags().String("title", "", "job title used in the conversation context")
	chatCmd.Flags().String("session", "", "resume a persisted session by id")
	chatCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	jobPath, _ := flags.GetString("job")
	jobText, _ := flags.GetString("job-text")
	jobType, _ := flags.GetString("job-type")
	resumePath, _ := flags.GetString("resume")
	company, _ := flags.GetString("company")
	title, _ := flags.GetString("title")
	sessionID, _ := flags.GetString("session")
	metricsAddr, _ := flags.GetString("metrics-addr")

	if resumePath == "" {
		return errors.New("--resume is required")
	}

	job, err := a.loadJob(jobPath, jobText, jobType)
	if err != nil {
		return err
	}
	resume, err := a.loader.LoadDocument(resumePath, "")
	if err != nil {
		return err
	}

	if err := a.withProviders(ctx); err != nil {
		return err
	}

	if metricsAddr != "" {
		shutdown := serveMetrics(metricsAddr, a.metrics.Handler(), a.log)
		defer shutdown()
	}

	result, err := a.matcher.Match(ctx, job, resume)
	if err != nil {
		return err
	}

	var engine *services.ConversationEngine
	if sessionID != "" {
		engine, err = a.sessions.Session(ctx, sessionID)
		if err != nil {
			return err
		}
	} else {
		engine = a.sessions.NewSession()
	}

	a.log.Info("chat session started",
		zap.String("session", engine.SessionID()),
		zap.Float64("score", result.Score.Value),
		zap.Bool("degraded", result.Score.Degraded),
	)

	r := &repl{
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		engine:   engine,
		feedback: a.feedback,
		context:  models.NewConversationContext(company, title, result),
	}
	r.banner(result)
	return r.run(ctx)
}

type repl struct {
	in       io.Reader
	out      io.Writer
	engine   *services.ConversationEngine
	feedback services.FeedbackGenerator
	context  *models.ConversationContext
}

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()

	terminalLines = strings.NewReplacer("<br>", "\n")
)

func (r *repl) banner(result *models.MatchResult) {
	fmt.Fprintln(r.out, boldGreen("Resume match"))
	fmt.Fprintf(r.out, "Score: %s / 100\n", boldCyan(services.FormatScore(result.Score.Value)))
	if result.Score.Degraded {
		fmt.Fprintln(r.out, yellow("The embedding provider was unavailable, the score is a fallback."))
	}
	if kw := result.Feedback.KeywordsAnalysis.MissingKeywords; len(kw) > 0 {
		fmt.Fprintf(r.out, "Missing keywords: %s\n", strings.Join(kw, ", "))
	}
	fmt.Fprintf(r.out, "Session: %s\n", r.engine.SessionID())
	fmt.Fprintf(r.out, "Type your question and press Enter. %s resets the conversation, %s exits.\n", commandClear, commandQuit)
	fmt.Fprintf(r.out, "Start a line with %q for a quick answer without the model.\n\n", quickPrefix)
}

func (r *repl) run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, boldGreen("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == commandQuit:
			return nil
		case input == commandClear:
			if err := r.engine.ClearHistory(ctx); err != nil {
				fmt.Fprintln(r.out, yellow("History cleared locally but not in storage: "+err.Error()))
				continue
			}
			fmt.Fprintln(r.out, yellow("Conversation cleared."))
			continue
		case strings.HasPrefix(input, quickPrefix):
			query := strings.TrimSpace(strings.TrimPrefix(input, quickPrefix))
			answer := r.feedback.ChatResponse(ctx, query, r.context.JobDescription, r.context.ResumeText)
			fmt.Fprintf(r.out, "%s%s\n\n", boldCyan("Assistant: "), answer)
			continue
		}

		reply := r.engine.Respond(ctx, input, r.context)
		fmt.Fprintf(r.out, "%s%s\n\n", boldCyan("Assistant: "), terminalLines.Replace(reply))
	}
}

// serveMetrics exposes handler under /metrics and returns a shutdown func.
func serveMetrics(addr string, handler http.Handler, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
