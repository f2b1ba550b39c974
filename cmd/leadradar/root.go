package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadradar/internal/adapter"
	"github.com/amishk599/leadradar/internal/ai"
	"github.com/amishk599/leadradar/internal/config"
	"github.com/amishk599/leadradar/internal/filter"
	"github.com/amishk599/leadradar/internal/model"
	"github.com/amishk599/leadradar/internal/notifier"
	"github.com/amishk599/leadradar/internal/pipeline"
	"github.com/amishk599/leadradar/internal/ratelimit"
	"github.com/amishk599/leadradar/internal/retry"
	"github.com/amishk599/leadradar/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "leadradar",
	Short: "Hiring-signal radar for fractional and part-time work",
	Long:  "LeadRadar searches social posts for companies looking to hire, classifies them with an LLM and keeps a deduplicated lead history per company.",
	// With no subcommand, run every role once and exit.
	RunE:          runPipeline,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: LEADRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > LEADRADAR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("LEADRADAR_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	case "none":
		return nil
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupProvider builds the classifier: provider → rate limit → retry.
// The returned close func releases provider resources and is never nil.
func setupProvider(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (ai.LLMProvider, func() error, error) {
	var (
		base    ai.LLMProvider
		closeFn = func() error { return nil }
	)
	switch cfg.AI.Provider {
	case "openai":
		base = ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	case "anthropic":
		base = ai.NewAnthropicProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	case "gemini":
		g, err := ai.NewGeminiProvider(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			return nil, nil, err
		}
		base, closeFn = g, g.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ai.provider %q", cfg.AI.Provider)
	}
	logger.Info("classifier configured", "provider", cfg.AI.Provider, "model", cfg.AI.Model)

	limited := ratelimit.NewLimitedProvider(base, cfg.AI.RequestsPerSecond, cfg.AI.Burst)
	policy := retry.Policy{MaxRetries: cfg.AI.MaxRetries, BaseDelay: 2 * time.Second}
	return retry.NewRetryProvider(limited, policy, logger), closeFn, nil
}

// historyStore is a HistoryStore that holds a connection.
type historyStore interface {
	model.HistoryStore
	io.Closer
}

func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (historyStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		logger.Debug("opening sqlite store", "path", cfg.Store.Path)
		return store.NewSQLiteStore(cfg.Store.Path)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store.DSN)
	case "firestore":
		return store.NewFirestoreStore(ctx, cfg.Store.ProjectID)
	default:
		return nil, fmt.Errorf("unsupported store.driver %q", cfg.Store.Driver)
	}
}

// setupSource builds the signal source: reddit → min delay → retry.
func setupSource(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.SignalSource {
	reddit := adapter.NewRedditSource(cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.Source.Limit, httpClient)
	limiter := ratelimit.NewSourceRateLimiter(cfg.Source.MinDelay)
	limited := ratelimit.NewRateLimitedSource(reddit, limiter, "reddit")
	policy := retry.Policy{MaxRetries: cfg.Source.MaxRetries, BaseDelay: 5 * time.Second}
	return retry.NewRetrySource(limited, policy, logger)
}

// buildPipeline creates one engine per configured role.
func buildPipeline(
	cfg *config.Config,
	source model.SignalSource,
	provider ai.LLMProvider,
	history model.HistoryStore,
	n model.Notifier,
	logger *slog.Logger,
) (*pipeline.Pipeline, error) {
	opts := pipeline.Options{
		Mode:            pipeline.Mode(cfg.Pipeline.Mode),
		Filter:          filter.NewKeywordFilter(cfg.Filters.Include, cfg.Filters.Exclude),
		Notifier:        n,
		FetchTimeout:    cfg.Source.Timeout,
		ClassifyTimeout: cfg.AI.Timeout,
	}

	engines := make([]*pipeline.Engine, 0, len(cfg.Roles))
	for _, role := range cfg.Roles {
		e, err := pipeline.NewEngine(role, source, provider, history, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role.Role, err)
		}
		engines = append(engines, e)
		logger.Debug("registered role", "role", role.Role, "collection", role.CollectionName)
	}
	return pipeline.New(engines, cfg.Pipeline.Concurrency, logger), nil
}

// newHTTPClient returns the client shared by the source, the OpenAI provider and Slack.
// Per-call deadlines come from contexts; this is only a backstop.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Minute}
}
