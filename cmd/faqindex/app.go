package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/config"
	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/db/elastic"
	dbValkey "github.com/kailas-cloud/faqindex/internal/db/valkey"
	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
	"github.com/kailas-cloud/faqindex/internal/embedding"
	logpkg "github.com/kailas-cloud/faqindex/internal/logger"
	"github.com/kailas-cloud/faqindex/internal/metrics"
	documentrepo "github.com/kailas-cloud/faqindex/internal/repository/document"
	"github.com/kailas-cloud/faqindex/internal/repository/embcache"
	indexrepo "github.com/kailas-cloud/faqindex/internal/repository/index"
	"github.com/kailas-cloud/faqindex/internal/source"
	"github.com/kailas-cloud/faqindex/internal/storage/sqlite"
	chiTransport "github.com/kailas-cloud/faqindex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/faqindex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/faqindex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/faqindex/internal/usecase/health"
	"github.com/kailas-cloud/faqindex/internal/usecase/ingest"
	"github.com/kailas-cloud/faqindex/internal/usecase/pipeline"
	"github.com/kailas-cloud/faqindex/internal/version"
)

// app is the composition root shared by every command.
type app struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger

	engine   db.Engine
	provider *openaiEmb.Embedder
	cache    *dbValkey.Store // nil without embedding.cache_url
	embedder *embeddinguc.InstrumentedEmbedder
}

// newApp loads configuration, builds the logger and creates the clients.
// Engine readiness is checked by the commands that need it.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(opts.env, cfg.Logging.Level)
	if err != nil {
		return nil, errors.Join(domain.ErrConfig, fmt.Errorf("failed to create logger: %w", err))
	}

	ctx = logpkg.WithFields(logpkg.ContextWithLogger(ctx, logger), zap.String("run_id", uuid.NewString()))
	logger = logpkg.FromContext(ctx)

	logger.Info("Starting faqindex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", opts.env),
		zap.String("search_driver", cfg.Search.Driver),
		zap.String("index", cfg.Search.Index),
		zap.String("model", cfg.Embedding.Model),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{ctx: ctx, cfg: cfg, logger: logger}

	a.engine, err = newEngine(cfg.Search)
	if err != nil {
		_ = logger.Sync()
		return nil, errors.Join(domain.ErrConfig, fmt.Errorf("create search engine client: %w", err))
	}

	if cfg.Embedding.CacheURL != "" {
		a.cache, err = dbValkey.NewStore(dbValkey.Config{URL: cfg.Embedding.CacheURL})
		if err != nil {
			a.Close()
			return nil, errors.Join(domain.ErrConfig, fmt.Errorf("create embedding cache client: %w", err))
		}
	}

	a.provider, a.embedder = buildEmbedder(cfg.Embedding, a.cache, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("base_url", cfg.Embedding.BaseURL),
		zap.Bool("cache", a.cache != nil),
	)

	return a, nil
}

// Close releases clients and flushes the logger.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.engine != nil {
		a.engine.Close()
	}
	_ = a.logger.Sync()
}

// fail logs a fatal command error and returns it for the exit status.
func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, zap.Error(err))
	return err
}

func (a *app) waitForEngine(ctx context.Context) error {
	timeout := time.Duration(a.cfg.Search.ReadinessTimeout) * time.Second
	if err := a.engine.WaitForReady(ctx, timeout); err != nil {
		return domain.NewStageError(domain.ErrIndexProvision, err)
	}
	a.logger.Info("Connected to search engine", zap.String("driver", a.cfg.Search.Driver))
	return nil
}

func (a *app) provisioner() *indexrepo.Provisioner {
	return indexrepo.New(a.engine).WithHNSW(indexrepo.HNSWConfig{
		M:           a.cfg.Search.HNSWM,
		EFConstruct: a.cfg.Search.HNSWEFConstruct,
	})
}

func (a *app) pipeline() *pipeline.Service {
	cfg := a.cfg
	sch := schema.KnowledgeBase(cfg.Embedding.Dimensions)
	vf, _ := sch.VectorField()
	docs := documentrepo.New(a.engine, vf.Dims)

	src := source.New(cfg.Source.URL, &http.Client{
		Timeout: time.Duration(cfg.Source.TimeoutSec) * time.Second,
	})
	a.logger.Debug("Pipeline configured",
		zap.String("source_url", src.URL()),
		zap.String("vector_field", vf.Name),
		zap.Int("dimensions", vf.Dims),
	)
	models := pipeline.ModelLoaderFunc(func(ctx context.Context) (ingest.Encoder, error) {
		m, err := embedding.Load(ctx, cfg.Embedding.Model, vf.Dims, a.embedder)
		if err != nil {
			return nil, err
		}
		a.logger.Info("Embedding model loaded", zap.String("model", m.Name()), zap.Int("dimensions", m.Dimensions()))
		return m, nil
	})

	return pipeline.New(
		src,
		models,
		a.provisioner(),
		ingest.New(docs).WithProgressEvery(cfg.Ingest.ProgressEvery),
		docs,
		sqlite.New(cfg.Database.Path),
		pipeline.Options{
			Index:              cfg.Search.Index,
			Schema:             sch,
			VerifyCount:        cfg.Ingest.ShouldVerifyCount(),
			RejectDuplicateIDs: cfg.Ingest.RejectDuplicateIDs,
		},
	)
}

func (a *app) health() *healthuc.Service {
	svc := healthuc.New(a.engine, a.provider)
	if a.cache != nil {
		svc.WithOptional("embedding_cache", a.cache)
	}
	return svc
}

// startMetricsServer serves /metrics and /healthz when metrics.addr is set.
// The returned stop function is always safe to call.
func (a *app) startMetricsServer() (func(), error) {
	if a.cfg.Metrics.Addr == "" {
		return func() {}, nil
	}

	router := chiTransport.NewRouter(a.health(), a.cfg.Metrics.APIKeys, a.logger)
	srv := chiTransport.NewServer(a.cfg.Metrics.Addr, router, a.logger)
	if err := srv.Start(); err != nil {
		return func() {}, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(a.cfg.Metrics.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("Error during metrics server shutdown", zap.Error(err))
		}
	}, nil
}

func newEngine(cfg config.SearchConfig) (db.Engine, error) {
	switch cfg.Driver {
	case config.DriverValkey:
		s, err := dbValkey.NewStore(dbValkey.Config{
			URL:        cfg.URL,
			Password:   cfg.Password,
			TextSearch: cfg.TextSearch,
		})
		if err != nil {
			return nil, fmt.Errorf("valkey: %w", err)
		}
		return s, nil
	case config.DriverElasticsearch:
		s, err := elastic.NewStore(elastic.Config{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			APIKey:   cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown search driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
// The provider is returned separately for health checks.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	cache *dbValkey.Store,
	logger *zap.Logger,
) (*openaiEmb.Embedder, *embeddinguc.InstrumentedEmbedder) {
	var requestDims int
	if cfg.RequestDimensions {
		requestDims = cfg.Dimensions
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: requestDims,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.Model, metrics.EmbeddingCacheTotal, logger).
			WithDimensions(cfg.Dimensions)
	}

	return base, embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
}
