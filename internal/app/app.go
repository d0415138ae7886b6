package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"TrendingDigest/internal/config"
	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/enrichment"
	"TrendingDigest/internal/httpx"
	"TrendingDigest/internal/infrastructure/document"
	"TrendingDigest/internal/infrastructure/git"
	"TrendingDigest/internal/infrastructure/llm"
	"TrendingDigest/internal/infrastructure/parser"
	"TrendingDigest/internal/infrastructure/storage"
	"TrendingDigest/internal/infrastructure/telegram"
	"TrendingDigest/internal/logging"
	"TrendingDigest/internal/ports"
	"TrendingDigest/internal/render"
	"TrendingDigest/internal/scanner"
	"TrendingDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	generator ports.TextGenerator
	pipeline  *usecase.Pipeline
	closers   []io.Closer
}

// Overrides let tests and subcommands swap driven adapters.
type Overrides struct {
	Generator ports.TextGenerator
	Source    ports.ProjectSource
	Publisher ports.Publisher
}

// New validates cfg and builds every adapter. Missing credentials fail here,
// before anything is fetched.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts usecase.Options, over Overrides) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sourceHTTP, err := httpx.NewClient(cfg.Proxy, cfg.Source.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	llmHTTP, err := httpx.NewClient(cfg.Proxy, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	generator := over.Generator
	if generator == nil {
		generator, err = llm.New(ctx, cfg.LLM, llmHTTP)
		if err != nil {
			return nil, err
		}
	}
	baseLogger.Info("text generator ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "proxy", cfg.Proxy.Enabled())

	source := over.Source
	if source == nil {
		registry := scanner.NewRegistry()
		registry.Register(parser.NewTrendingScanner(sourceHTTP, cfg.Source.UserAgent, baseLogger.With("component", "scanner.trending")))
		source = parser.NewStrategySource(registry, cfg.Source, baseLogger.With("component", "source"))
	}

	application := &Application{cfg: cfg, logger: baseLogger, generator: generator}

	publisher := over.Publisher
	if publisher == nil && cfg.Publish.IsEnabled() {
		publisher = git.NewPublisher(cfg.Publish.WorkDir, nil, baseLogger.With("component", "publisher"))
	}

	var history ports.HistoryStore
	if cfg.History.DSN != "" {
		store, err := storage.OpenPostgresHistory(ctx, cfg.History.DSN)
		if err != nil {
			baseLogger.Warn("history store disabled", "error", err)
		} else {
			history = store
			application.closers = append(application.closers, store)
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, nil)
	}

	if opts.CommitMessage == "" {
		opts.CommitMessage = cfg.Publish.CommitMessage
	}

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:    source,
		Enricher:  enrichment.NewEnricher(generator, cfg.LLM.Timeout, baseLogger.With("component", "enricher")),
		Renderer:  render.CardRenderer{},
		Document:  document.NewFileUpdater(cfg.Document.Path, cfg.Document.AnchorID, baseLogger.With("component", "document")),
		Publisher: publisher,
		History:   history,
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "pipeline"),
	}, opts)

	return application, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	if a.pipeline == nil {
		return domain.RunReport{}, errors.New("application is not initialized")
	}
	return a.pipeline.Run(ctx)
}

// Generator exposes the configured text generator for diagnostics.
func (a *Application) Generator() ports.TextGenerator {
	return a.generator
}

// Close releases optional resources such as the history pool.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
