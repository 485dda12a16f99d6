package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/config"
	"alfredoptarigan/cv-matcher/internal/logger"
	"alfredoptarigan/cv-matcher/internal/metrics"
	"alfredoptarigan/cv-matcher/internal/models"
	"alfredoptarigan/cv-matcher/internal/repositories"
	"alfredoptarigan/cv-matcher/internal/resilience"
	"alfredoptarigan/cv-matcher/internal/secrets"
	"alfredoptarigan/cv-matcher/internal/services"
)

// application holds the services shared by the subcommands. Provider-backed
// services are only built by withProviders.
type application struct {
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Recorder

	loader    services.DocumentLoader
	extractor services.TextExtractor

	embedder   services.EmbeddingProvider
	embedModel string
	// cache is nil unless Qdrant is enabled and reachable.
	cache services.QdrantService

	scorer   services.MatchScorer
	feedback services.FeedbackGenerator
	matcher  services.MatchService
	batch    services.BatchMatcher
	sessions *services.SessionManager

	closers []func() error
}

func newApplication(cmd *cobra.Command) (*application, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Log.Debug = debugFlag
	}
	if flags.Changed("json") {
		cfg.Log.JSON = jsonFlag
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	recorder := metrics.New()

	var recognizer services.PageRecognizer
	if cfg.OCR.Enabled {
		recognizer = services.NewTesseractRecognizer(services.TesseractOptions{
			PdftoppmPath:  cfg.OCR.PdftoppmPath,
			TesseractPath: cfg.OCR.TesseractPath,
			Language:      cfg.OCR.Language,
			DPI:           cfg.OCR.DPI,
			Timeout:       cfg.OCR.Timeout,
		}, log.Named("ocr"))
	}

	extractor := services.NewTextExtractor(
		services.NewPDFParserService(recognizer, recorder, log.Named("pdf")),
		services.NewDocxParserService(),
		services.NewTextDecoder(log),
		cfg.Extraction.MaxFileSize,
		recorder,
		log.Named("extractor"),
	)

	log.Debug("configuration loaded",
		zap.String("env", cfg.App.Env),
		zap.String("backend", cfg.Gemini.Backend),
		zap.Bool("ocr", cfg.OCR.Enabled),
		zap.Bool("qdrant", cfg.Qdrant.Enabled),
		zap.Bool("db", cfg.Database.Enabled),
	)

	return &application{
		cfg:       cfg,
		log:       log,
		metrics:   recorder,
		loader:    services.NewDocumentLoader(cfg.Extraction.MaxFileSize),
		extractor: extractor,
	}, nil
}

// withProviders wires the embedding and chat model, the optional Qdrant
// cache and the optional Postgres history store.
func (a *application) withProviders(ctx context.Context) error {
	cfg := a.cfg

	apiKey := cfg.Gemini.APIKey
	if cfg.Gemini.Backend == "gemini" {
		key, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return fmt.Errorf("%w (set GEMINI_API_KEY or GEMINI_API_KEY_FILE)", err)
		}
		apiKey = key
	}

	gemini, err := services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:          apiKey,
		Backend:         cfg.Gemini.Backend,
		Project:         cfg.Gemini.Project,
		Location:        cfg.Gemini.Location,
		ChatModel:       cfg.Gemini.ChatModel,
		EmbedModel:      cfg.Gemini.EmbedModel,
		EmbedDimension:  int32(cfg.Gemini.EmbedDimension),
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}, a.log.Named("gemini"))
	if err != nil {
		return fmt.Errorf("initializing gemini: %w", err)
	}

	executor := resilience.NewExecutor(cfg.ResilienceConfig(), a.log.Named("resilience"))

	var embedder services.EmbeddingProvider = services.NewEmbeddingService(gemini, services.EmbeddingOptions{
		MaxChars:  cfg.Embedding.MaxChars,
		Timeout:   cfg.Embedding.Timeout,
		RateLimit: cfg.Embedding.RateLimit,
		Burst:     cfg.Embedding.Burst,
	}, executor, a.metrics, a.log.Named("embedder"))

	if cfg.Qdrant.Enabled {
		cache, err := a.qdrantCache(ctx)
		if err != nil {
			a.log.Warn("qdrant cache disabled", zap.Error(err))
		} else {
			embedder = services.NewCachedEmbeddingProvider(embedder, cache, gemini.EmbedModel(), cfg.Embedding.MaxChars, a.log.Named("cache"))
			a.cache = cache
		}
	}

	a.embedder = embedder
	a.embedModel = gemini.EmbedModel()

	a.scorer = services.NewMatchScorer(embedder, a.metrics, a.log.Named("scorer"))
	a.feedback = services.NewFeedbackGenerator(a.scorer, a.log.Named("feedback"))
	a.matcher = services.NewMatchService(a.extractor, a.scorer, a.feedback, a.log.Named("matcher"))
	a.batch = services.NewBatchMatcher(a.extractor, a.matcher, cfg.Worker.Concurrency, a.log.Named("batch"))

	store, err := a.conversationStore()
	if err != nil {
		return err
	}

	prompts := services.NewPromptBuilder(cfg.Chat.ContextChars, cfg.Chat.ContextSuggestions)
	chatOpts := services.ChatOptions{Timeout: cfg.Chat.Timeout, HistoryWindow: cfg.Chat.HistoryWindow}
	a.sessions = services.NewSessionManager(func(sessionID string) *services.ConversationEngine {
		return services.NewConversationEngine(sessionID, gemini, prompts, store, executor, chatOpts, a.metrics, a.log.Named("chat"))
	})

	return nil
}

func (a *application) qdrantCache(ctx context.Context) (services.QdrantService, error) {
	cfg := a.cfg.Qdrant
	q, err := services.NewQdrantService(cfg.URL, cfg.APIKey, cfg.Collection, a.cfg.Gemini.EmbedDimension, a.log.Named("qdrant"))
	if err != nil {
		return nil, err
	}
	if err := q.InitCollection(ctx); err != nil {
		_ = q.Close()
		return nil, err
	}
	a.closers = append(a.closers, q.Close)
	return q, nil
}

func (a *application) conversationStore() (repositories.ConversationRepository, error) {
	if !a.cfg.Database.Enabled {
		return repositories.NewMemoryConversationRepository(), nil
	}

	db, err := config.InitDatabase(a.cfg, a.log.Named("db"))
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql handle: %w", err)
	}
	a.closers = append(a.closers, sqlDB.Close)

	return repositories.NewConversationRepository(db), nil
}

// loadJob reads the job description from a file or from inline text.
func (a *application) loadJob(path, text, declared string) (*models.Document, error) {
	switch {
	case path != "" && text != "":
		return nil, errors.New("use either --job or --job-text, not both")
	case text != "":
		return &models.Document{Name: "job-text", MediaType: models.MediaTypeText, Content: []byte(text)}, nil
	case path != "":
		return a.loader.LoadDocument(path, declared)
	}
	return nil, errors.New("a job description is required (--job or --job-text)")
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("closing resource", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
