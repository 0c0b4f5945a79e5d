package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-matcher/internal/analysis"
	"github.com/jonathan/candidate-matcher/internal/cache"
	"github.com/jonathan/candidate-matcher/internal/candidates"
	"github.com/jonathan/candidate-matcher/internal/config"
	"github.com/jonathan/candidate-matcher/internal/db"
	"github.com/jonathan/candidate-matcher/internal/embedding"
	"github.com/jonathan/candidate-matcher/internal/enrichment"
	"github.com/jonathan/candidate-matcher/internal/extraction"
	"github.com/jonathan/candidate-matcher/internal/feedback"
	"github.com/jonathan/candidate-matcher/internal/fetch"
	"github.com/jonathan/candidate-matcher/internal/llm"
	"github.com/jonathan/candidate-matcher/internal/matching"
	"github.com/jonathan/candidate-matcher/internal/pipeline"
	"github.com/jonathan/candidate-matcher/internal/server"
	"github.com/jonathan/candidate-matcher/internal/session"
	"github.com/jonathan/candidate-matcher/internal/store"
	"github.com/jonathan/candidate-matcher/internal/store/memory"
)

// cachePrefix namespaces embedding and posting keys in a shared Redis.
const cachePrefix = "candidate-matcher:"

// appOptions overrides parts of the wiring. Zero values mean "build from config".
type appOptions struct {
	inMemory bool
	store    store.Store
	client   llm.Client
	embedder embedding.Embedder
}

// app holds the wired services.
type app struct {
	store      store.Store
	health     server.Pinger
	cache      cache.Cache
	fetcher    *fetch.Fetcher
	client     llm.Client
	embedder   embedding.Embedder
	matcher    *matching.Matcher
	pipeline   *pipeline.Coordinator
	responder  *feedback.Responder
	sessions   *session.Manager
	candidates *candidates.Service

	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger, opts appOptions) (*app, error) {
	a := &app{}
	if err := a.wire(ctx, cfg, log, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config, log *zap.Logger, opts appOptions) error {
	if err := a.openStore(ctx, cfg, log, opts); err != nil {
		return err
	}

	a.openCache(ctx, cfg, log)
	a.fetcher = newFetcher(cfg, a.cache, log)

	a.client = opts.client
	var models embedding.ModelSource
	if a.client == nil {
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		gc, err := llm.NewGeminiClient(ctx, cfg.LLMClientConfig(), cfg.LLM.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		gc.WithLogger(log)
		a.client = gc
		models = gc
		a.closers = append(a.closers, func() { _ = gc.Close() })
	}

	a.embedder = opts.embedder
	if a.embedder == nil {
		if models == nil {
			return errors.New("an embedder is required when the LLM client is not Gemini")
		}
		emb, err := a.newEmbedder(cfg, log, models)
		if err != nil {
			return err
		}
		a.embedder = emb
	}

	a.matcher = matching.New(a.embedder, a.store, log)
	a.pipeline = pipeline.New(
		extraction.New(a.client, extraction.Options{MaxInputChars: cfg.Pipeline.MaxInputChars}, log),
		a.matcher,
		analysis.New(a.client, log),
		enrichment.New(a.client, log),
		pipeline.Options{TopK: cfg.Pipeline.TopK, Concurrency: cfg.Pipeline.Concurrency},
		log,
	)
	a.responder = feedback.New(a.client, log)
	a.sessions = session.NewManager(a.store, a.pipeline, a.responder, log)
	a.candidates = candidates.New(a.store, a.embedder, a.matcher, log)
	return nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, opts appOptions) error {
	switch {
	case opts.store != nil:
		a.store = opts.store
	case opts.inMemory:
		log.Info("using in-memory storage; data is lost on exit")
		a.store = memory.New()
	default:
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, database.Close)
		a.store = database
		a.health = database
	}
	return nil
}

// openCache connects to Redis when configured and reachable, otherwise it
// falls back to an in-process cache.
func (a *app) openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) {
	a.cache = cache.NewMemory()
	if cfg.Redis.URL == "" {
		return
	}
	rdb, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		return
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.cache = cache.NewRedisCache(rdb, cachePrefix)
}

func newFetcher(cfg *config.Config, c cache.Cache, log *zap.Logger) *fetch.Fetcher {
	opts := fetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		CacheTTL:  cfg.Fetch.CacheTTL,
	}
	if cfg.Fetch.Browser {
		opts.Renderer = fetch.NewChromeRenderer()
	}
	return fetch.New(c, opts, log)
}

// newEmbedder puts the cache in front of the Gemini embedding model.
func (a *app) newEmbedder(cfg *config.Config, log *zap.Logger, models embedding.ModelSource) (embedding.Embedder, error) {
	backend := embedding.NewCachedBackend(
		embedding.NewGeminiBackend(models, cfg.Embedding.Model),
		a.cache, cfg.Redis.TTL, log,
	)
	svc, err := embedding.NewService(backend, cfg.Embedding.Dimension, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return svc, nil
}
