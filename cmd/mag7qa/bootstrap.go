package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/agent"
	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/config"
	"github.com/xxxsen/mag7qa/internal/db"
	"github.com/xxxsen/mag7qa/internal/embedcache"
	"github.com/xxxsen/mag7qa/internal/filestore"
	"github.com/xxxsen/mag7qa/internal/index"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/repo"
)

const indexLoadMessage = "Error: Could not load vector store. Please follow README setup instructions."

// indexLoadError marks a startup failure the commands report with the setup hint.
type indexLoadError struct {
	err error
}

func (e *indexLoadError) Error() string {
	return e.err.Error()
}

func (e *indexLoadError) Unwrap() error {
	return e.err
}

type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     filestore.Store
	index     *index.Index
	embedder  ai.IEmbedder
	generator ai.IGenerator
	pipeline  *agent.Pipeline
	metrics   *metrics.Collector
}

func buildApp(ctx context.Context, cfg *config.Config, m *metrics.Collector) (*app, error) {
	a := &app{cfg: cfg, metrics: m}
	if cfg.Database.Enabled() {
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		a.db = conn
	}

	store, err := filestore.New(cfg.Index.Store)
	if err != nil {
		a.Close()
		return nil, &indexLoadError{err: fmt.Errorf("init file store: %w", err)}
	}
	a.store = store
	ix, err := index.Load(ctx, store, cfg.Index.Key)
	if err != nil {
		a.Close()
		return nil, &indexLoadError{err: err}
	}
	if ix.Model() != "" && ix.Model() != cfg.Embedding.Model {
		a.Close()
		return nil, &indexLoadError{err: fmt.Errorf("index built with embedding model %q, configured model is %q", ix.Model(), cfg.Embedding.Model)}
	}
	a.index = ix
	m.SetIndexChunks(ix.Len())

	embedProvider, err := ai.NewEmbedProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.Embedding.Model)
	if a.db != nil && cfg.Embedding.DBCache {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, repo.NewEmbeddingCacheRepo(a.db))
	}
	a.embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second)

	generator, err := buildGenerator(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.generator = generator

	a.pipeline = agent.NewPipeline(
		agent.NewRetriever(a.embedder, ix),
		a.generator,
		agent.WithHistoryTurns(cfg.Agent.HistoryTurns),
		agent.WithDefaults(agent.Defaults{
			Confidence:         *cfg.Agent.DefaultConfidence,
			FallbackConfidence: *cfg.Agent.FallbackConfidence,
		}),
		agent.WithMetrics(m),
	)
	logutil.GetLogger(ctx).Info("agent ready",
		zap.Int("index_chunks", ix.Len()),
		zap.Int("dimension", ix.Dimension()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("db", a.db != nil),
	)
	return a, nil
}

func buildGenerator(cfg config.LLMConfig) (ai.IGenerator, error) {
	all := append([]config.ProviderConfig{cfg.ProviderConfig}, cfg.Fallbacks...)
	entries := make([]ai.GeneratorEntry, 0, len(all))
	for _, pc := range all {
		provider, err := ai.NewProvider(pc.Provider, pc.Data)
		if err != nil {
			return nil, fmt.Errorf("init llm provider %s: %w", pc.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{Name: pc.Provider, Generator: ai.NewGenerator(provider, pc.Model)})
	}
	return ai.NewGroupGenerator(entries), nil
}

func (a *app) options() agent.Options {
	return agent.Options{K: a.cfg.Agent.K, SnippetLen: a.cfg.Agent.SnippetLen}
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
