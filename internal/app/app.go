// Package app wires configuration into the running pipeline. The API server
// and the jobctl CLI share it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/surrogates/internal/cache"
	"github.com/timmy/surrogates/internal/config"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/progress"
	"github.com/timmy/surrogates/internal/repository"
	"github.com/timmy/surrogates/internal/service"
	"github.com/timmy/surrogates/internal/source"
	"github.com/timmy/surrogates/internal/source/library"
	"github.com/timmy/surrogates/internal/source/pexels"
	"github.com/timmy/surrogates/internal/source/unsplash"
	"github.com/timmy/surrogates/internal/storage"
	"github.com/timmy/surrogates/internal/vlm"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config      *config.Config
	Storage     storage.ObjectStorage
	Registry    *repository.MemoryJobRegistry
	Bus         *progress.Bus
	Sources     *source.Registry
	Results     *repository.FileResultStore
	History     *repository.AnalysisRepository // nil when the database is disabled
	Jobs        *service.JobService
	Inspiration *service.InspirationService

	closers []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	observers []service.ProgressFunc
}

// WithProgressObserver calls fn with every progress event of every job, in
// addition to the bus subscribers.
func WithProgressObserver(fn service.ProgressFunc) Option {
	return func(o *options) {
		o.observers = append(o.observers, fn)
	}
}

// observedPublisher publishes to the bus and then to the observers.
type observedPublisher struct {
	bus       *progress.Bus
	observers []service.ProgressFunc
}

func (p *observedPublisher) Publish(ctx context.Context, jobID string, event domain.ProgressEvent) {
	p.bus.Publish(ctx, jobID, event)
	for _, fn := range p.observers {
		fn(ctx, event)
	}
}

// New builds every component. Jobs started through the returned App derive
// their context from ctx.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Config: cfg}

	store, err := storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = store

	sources, err := a.buildSources(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sources = sources

	results, err := repository.NewFileResultStore(cfg.Storage.ResultsDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize result store: %w", err)
	}
	a.Results = results

	analyzer, err := newAnalyzer(&cfg.VLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = repository.NewMemoryJobRegistry()
	a.Bus = progress.New(cfg.Progress.BufferSize)
	a.closers = append(a.closers, a.Bus.Close)

	downloader := service.NewDownloader(sources, store, service.DownloaderConfig{
		Pacing:      cfg.Download.Pacing,
		ItemTimeout: cfg.Download.Timeout,
		MaxImages:   cfg.Download.MaxImages,
	})
	preprocessor := service.NewPreprocessor(service.NewPDFGuidelineReader(), store, service.PreprocessConfig{
		Workers:      cfg.Analysis.Workers,
		MaxDimension: cfg.Analysis.MaxDimension,
		JPEGQuality:  cfg.Analysis.JPEGQuality,
	})
	engine := service.NewBatchEngine(analyzer, service.BatchConfig{
		BatchSize:         cfg.Analysis.BatchSize,
		MaxAttempts:       cfg.Analysis.MaxAttempts,
		BackoffUnit:       cfg.Analysis.BackoffUnit,
		BatchTimeout:      cfg.Analysis.BatchTimeout,
		Pacing:            cfg.Analysis.BatchPacing,
		MaxGuidelineChars: cfg.Analysis.MaxGuidelineChars,
	})

	var publisher service.Publisher = a.Bus
	if len(o.observers) > 0 {
		publisher = &observedPublisher{bus: a.Bus, observers: o.observers}
	}

	a.Jobs = service.NewJobService(ctx, a.Registry, publisher, downloader, preprocessor, engine, results,
		service.JobServiceConfig{
			JobTimeout:   cfg.Jobs.Timeout,
			DefaultLimit: cfg.Download.DefaultLimit,
		})

	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		a.History = repository.NewAnalysisRepository(db)
		a.Jobs.WithHistory(a.History)
	}

	a.Inspiration = service.NewInspirationService(service.InspirationConfig{
		APIKey:          cfg.Inspiration.APIKey,
		Model:           cfg.Inspiration.Model,
		BaseURL:         cfg.Inspiration.BaseURL,
		Timeout:         cfg.Inspiration.Timeout,
		LivenessTimeout: cfg.Inspiration.LivenessTimeout,
		MaxCount:        cfg.Inspiration.MaxCount,
	})

	return a, nil
}

func (a *App) buildSources(ctx context.Context) (*source.Registry, error) {
	cfg := a.Config
	var adapters []source.Source
	if cfg.Sources.Unsplash.Enabled {
		adapters = append(adapters, unsplash.NewAdapter(cfg.Sources.Unsplash.APIKey, cfg.Sources.Unsplash.BaseURL, cfg.Sources.Timeout))
	}
	if cfg.Sources.Pexels.Enabled {
		adapters = append(adapters, pexels.NewAdapter(cfg.Sources.Pexels.APIKey, cfg.Sources.Pexels.BaseURL, cfg.Sources.Timeout))
	}

	if cfg.Cache.Enabled && len(adapters) > 0 {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			// The pipeline works without the cache.
			logger.CtxWarn(ctx, "Search cache disabled: %v", err)
		} else {
			a.closers = append(a.closers, redisCache.Close)
			for i, s := range adapters {
				adapters[i] = source.NewCachedSource(s, redisCache, cfg.Cache.TTL)
			}
		}
	}

	// Local files are never cached.
	if cfg.Sources.Library.Enabled {
		adapters = append(adapters, library.NewAdapter(cfg.Sources.Library.Path))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no image providers enabled")
	}
	return source.NewRegistry(adapters...), nil
}

func newAnalyzer(cfg *config.VLMConfig) (vlm.Analyzer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return vlm.NewOpenAIAnalyzer(vlm.OpenAIConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported VLM provider: %s", cfg.Provider)
	}
}

// Close releases the bus, the cache connection and the database handle.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
