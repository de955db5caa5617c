// Package engine builds the evidence index and retrieves per-company context
// from it.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// EmbedderFactory constructs the configured embedder.
type EmbedderFactory func(ctx context.Context) (Embedder, error)

// Engine owns the store and a lazily created embedder shared by index builds
// and retrieval within one process.
type Engine struct {
	DB  *store.DB
	Log *slog.Logger

	factory  EmbedderFactory
	once     sync.Once
	embedder Embedder
	embedErr error
}

// New creates an Engine. The factory runs at most once, on first use.
func New(db *store.DB, factory EmbedderFactory, log *slog.Logger) *Engine {
	return &Engine{
		DB:      db,
		Log:     logging.OrDefault(log),
		factory: factory,
	}
}

// Embedder returns the process-wide embedder, creating it on first call.
func (e *Engine) Embedder(ctx context.Context) (Embedder, error) {
	e.once.Do(func() {
		if e.factory == nil {
			e.embedErr = fmt.Errorf("no embedder configured")
			return
		}
		e.embedder, e.embedErr = e.factory(ctx)
		if e.embedErr == nil {
			e.Log.Info("embedder ready", "model", e.embedder.Model())
		}
	})
	return e.embedder, e.embedErr
}

// Close releases the embedder if it holds a client.
func (e *Engine) Close() error {
	if c, ok := e.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewEmbedderFactory returns a factory for the embedding provider in cfg.
// "auto" probes Ollama and falls back to TF-IDF.
func NewEmbedderFactory(cfg config.EmbeddingConfig, llmCfg config.LLMConfig, log *slog.Logger) EmbedderFactory {
	log = logging.OrDefault(log)
	ollamaURL := llmCfg.OllamaURL
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}

	return func(ctx context.Context) (Embedder, error) {
		switch cfg.Provider {
		case "ollama":
			return NewOllamaEmbedder(ollamaURL, modelOr(cfg.Model, "nomic-embed-text")), nil
		case "gemini":
			return NewGeminiEmbedder(ctx, llmCfg.GeminiKey, modelOr(cfg.Model, "text-embedding-004"))
		case "tfidf":
			return NewTFIDFEmbedder(cfg.MaxFeatures), nil
		case "", "auto":
			model := modelOr(cfg.Model, "nomic-embed-text")
			if ProbeOllama(ctx, ollamaURL, model) {
				return NewOllamaEmbedder(ollamaURL, model), nil
			}
			log.Warn("ollama unavailable, using tfidf embeddings", "url", ollamaURL)
			return NewTFIDFEmbedder(cfg.MaxFeatures), nil
		default:
			return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
		}
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
