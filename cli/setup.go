// Component wiring for CLI commands.
//
// Information Hiding:
// - Knowledge base source selection (built-in or TOML file)
// - Retriever and embedder construction per configured retriever
// - Vector cache backend choice and fallback
// - Provider client construction

package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/askbase/config"
	"github.com/richinex/askbase/dispatch"
	"github.com/richinex/askbase/knowledge"
	"github.com/richinex/askbase/llm"
	"github.com/richinex/askbase/retrieval"
	"github.com/richinex/askbase/storage"
)

// App holds the components shared by all commands.
type App struct {
	Settings   config.Settings
	Base       *knowledge.Base
	Retriever  *retrieval.Retriever // nil when retrieval is disabled
	Dispatcher *dispatch.Dispatcher
	Transcript storage.Transcript

	logger  *zap.Logger
	closer  func() error
	vectors *storage.SqliteStorage // on-disk vector cache, if open
}

// NewApp builds every component described by settings. Missing API keys
// are not an error here; they surface when a provider is used.
func NewApp(settings config.Settings, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := loadBase(settings)
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:   settings,
		Base:       base,
		Transcript: storage.NewInMemoryTranscript(),
		logger:     logger,
		closer:     func() error { return nil },
	}

	retriever, err := app.buildRetriever()
	if err != nil {
		return nil, err
	}
	app.Retriever = retriever

	opts := []dispatch.Option{
		dispatch.WithRetrievalTimeout(settings.RetrievalTimeout()),
		dispatch.WithLocalDelay(settings.LocalDelay()),
		dispatch.WithLogger(logger.Named("dispatch")),
	}
	if retriever != nil {
		opts = append(opts, dispatch.WithRetriever(retriever))
	}
	for _, source := range dispatch.Sources {
		pt, remote := source.Provider()
		if !remote {
			continue
		}
		client, err := llm.NewProviderBuilder(pt).FromConfig(settings.Provider(pt.String())).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", pt, err)
		}
		opts = append(opts, dispatch.WithClient(source, client))
	}
	app.Dispatcher = dispatch.New(base, opts...)

	return app, nil
}

// Close releases storage held by the app.
func (a *App) Close() error {
	return a.closer()
}

// DefaultSource returns the configured default source.
func (a *App) DefaultSource() (dispatch.Source, error) {
	return dispatch.ParseSource(a.Settings.Dispatch.DefaultSource)
}

// BuildIndex builds the retrieval index eagerly.
func (a *App) BuildIndex(ctx context.Context) error {
	if a.Retriever == nil {
		return errors.New("retrieval is disabled (retriever = \"none\")")
	}
	return a.Retriever.Build(ctx)
}

// CachedVectors reports how many embeddings the on-disk cache holds. The
// bool is false when no on-disk cache is in use.
func (a *App) CachedVectors(ctx context.Context) (int, bool, error) {
	if a.vectors == nil {
		return 0, false, nil
	}
	n, err := a.vectors.Count(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("failed to count cached vectors: %w", err)
	}
	return n, true, nil
}

func loadBase(settings config.Settings) (*knowledge.Base, error) {
	if settings.Retrieval.KnowledgeFile == "" {
		return knowledge.Default(), nil
	}
	base, err := knowledge.LoadBase(settings.Retrieval.KnowledgeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return base, nil
}

func (a *App) buildRetriever() (*retrieval.Retriever, error) {
	r := a.Settings.Retrieval
	opts := []retrieval.Option{
		retrieval.WithTopK(r.TopK),
		retrieval.WithMinScore(r.MinScore),
		retrieval.WithLogger(a.logger.Named("retrieval")),
	}

	var index retrieval.Index
	switch r.Retriever {
	case "none":
		return nil, nil
	case "lexical":
		index = retrieval.NewLexicalIndex()
	case "gemini", "openai":
		vector, err := a.buildVectorIndex(r)
		if err != nil {
			return nil, err
		}
		index = vector
	default:
		return nil, fmt.Errorf("unknown retriever: %q", r.Retriever)
	}
	return retrieval.New(index, a.Base, opts...), nil
}

func (a *App) buildVectorIndex(r config.RetrievalConfig) (*retrieval.VectorIndex, error) {
	pt, err := llm.ParseProviderType(r.Retriever)
	if err != nil {
		return nil, err
	}
	provider := a.Settings.Provider(pt.String())
	keyFn := func() (string, error) { return config.APIKeyFor(pt.String()) }

	var embedder retrieval.Embedder
	if pt == llm.ProviderGemini {
		embedder = llm.NewGenAIEmbedder(keyFn, r.EmbeddingModel, provider.BaseURL)
	} else {
		embedder = llm.NewOpenAIEmbedder(keyFn, r.EmbeddingModel, provider.BaseURL)
	}

	return retrieval.NewVectorIndex(embedder,
		retrieval.WithVectorCache(a.openVectorCache()),
		retrieval.WithVectorLogger(a.logger.Named("vector")),
	)
}

// openVectorCache prefers the on-disk cache and falls back to memory.
func (a *App) openVectorCache() storage.VectorCache {
	path := a.Settings.Storage.DBPath
	if path == "" {
		return storage.NewInMemoryVectorCache()
	}
	db, err := storage.OpenSqlite(path)
	if err != nil {
		a.logger.Warn("vector cache unavailable, using memory", zap.String("path", path), zap.Error(err))
		return storage.NewInMemoryVectorCache()
	}
	a.closer = db.Close
	a.vectors = db
	return db
}
