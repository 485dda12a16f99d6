package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"alfredoptarigan/cv-matcher/internal/resilience"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	JSON  bool `mapstructure:"json"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APIKeyFile string `mapstructure:"api_key_file"`
	// Backend selects where models run: "gemini" (hosted API) or "vertex".
	Backend         string  `mapstructure:"backend"`
	Project         string  `mapstructure:"project"`
	Location        string  `mapstructure:"location"`
	ChatModel       string  `mapstructure:"chat_model"`
	EmbedModel      string  `mapstructure:"embed_model"`
	EmbedDimension  int     `mapstructure:"embed_dimension"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

type EmbeddingConfig struct {
	MaxChars  int           `mapstructure:"max_chars"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

type ExtractionConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

type OCRConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	PdftoppmPath  string        `mapstructure:"pdftoppm_path"`
	TesseractPath string        `mapstructure:"tesseract_path"`
	Language      string        `mapstructure:"language"`
	DPI           int           `mapstructure:"dpi"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	HistoryWindow      int           `mapstructure:"history_window"`
	ContextChars       int           `mapstructure:"context_chars"`
	ContextSuggestions int           `mapstructure:"context_suggestions"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	FailureRatio     float64       `mapstructure:"failure_ratio"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxCalls uint32        `mapstructure:"half_open_max_calls"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var defaults = map[string]any{
	"app.env": EnvDevelopment,

	"log.json": false,

	"db.enabled":  false,
	"db.host":     "localhost",
	"db.port":     "5432",
	"db.user":     "postgres",
	"db.password": "postgres",
	"db.name":     "cv_matcher",
	"db.sslmode":  "disable",

	"qdrant.enabled":    false,
	"qdrant.url":        "http://localhost:6334",
	"qdrant.api_key":    "",
	"qdrant.collection": "cv_matcher_embeddings",

	"gemini.api_key":           "",
	"gemini.api_key_file":      "",
	"gemini.backend":           "gemini",
	"gemini.project":           "",
	"gemini.location":          "us-central1",
	"gemini.chat_model":        "gemini-2.5-flash",
	"gemini.embed_model":       "text-embedding-004",
	"gemini.embed_dimension":   768,
	"gemini.temperature":       0.2,
	"gemini.max_output_tokens": 1024,

	"embedding.max_chars":  512,
	"embedding.timeout":    "30s",
	"embedding.rate_limit": 5.0,
	"embedding.burst":      5,

	"extraction.max_file_size": 10485760,

	"ocr.enabled":        true,
	"ocr.pdftoppm_path":  "pdftoppm",
	"ocr.tesseract_path": "tesseract",
	"ocr.language":       "eng",
	"ocr.dpi":            300,
	"ocr.timeout":        "60s",

	"chat.timeout":             "60s",
	"chat.history_window":      20,
	"chat.context_chars":       500,
	"chat.context_suggestions": 5,

	"retry.max_attempts":  3,
	"retry.initial_delay": "500ms",
	"retry.max_delay":     "4s",
	"retry.multiplier":    2.0,

	"breaker.enabled":             true,
	"breaker.min_requests":        5,
	"breaker.failure_ratio":       0.5,
	"breaker.open_timeout":        "30s",
	"breaker.half_open_max_calls": 1,

	"worker.concurrency": 3,
}

// Load reads .env, environment variables and, when path is set, a YAML file.
// Environment variables use the upper-cased key with dots replaced by
// underscores: db.host is DB_HOST, gemini.api_key is GEMINI_API_KEY.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// log.debug has no default so the profile can decide when it is unset.
	if err := v.BindEnv("log.debug"); err != nil {
		return nil, fmt.Errorf("bind log.debug: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !v.IsSet("log.debug") {
		cfg.Log.Debug = cfg.App.Env == EnvDevelopment
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("unknown app env %q", c.App.Env)
	}

	switch c.Gemini.Backend {
	case "gemini", "vertex":
	default:
		return fmt.Errorf("unknown gemini backend %q", c.Gemini.Backend)
	}

	if c.Extraction.MaxFileSize <= 0 {
		return errors.New("extraction max file size must be positive")
	}
	if c.Embedding.MaxChars <= 0 {
		return errors.New("embedding max chars must be positive")
	}
	if c.Chat.HistoryWindow <= 0 {
		return errors.New("chat history window must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) ResilienceConfig() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    c.Retry.MaxAttempts,
		RetryInitialBackoff: c.Retry.InitialDelay,
		RetryMaxBackoff:     c.Retry.MaxDelay,
		RetryMultiplier:     c.Retry.Multiplier,

		BreakerEnabled:          c.Breaker.Enabled,
		BreakerMinRequests:      c.Breaker.MinRequests,
		BreakerFailureRatio:     c.Breaker.FailureRatio,
		BreakerOpenTimeout:      c.Breaker.OpenTimeout,
		BreakerHalfOpenMaxCalls: c.Breaker.HalfOpenMaxCalls,
	}
}
