// Package retrieval finds knowledge base answers related to a query.
//
// Information Hiding:
// - Index construction and its built/unbuilt lifecycle
// - Sharing of one lazy build between concurrent first users
// - Score threshold and result cap applied to ranked candidates

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/richinex/askbase/knowledge"
)

// ErrNotBuilt is returned by an Index searched before Build succeeded.
var ErrNotBuilt = errors.New("retrieval index not built")

// DefaultBuildTimeout bounds an index build that no caller is waiting on.
const DefaultBuildTimeout = 2 * time.Minute

// Document is one indexable knowledge base entry.
type Document struct {
	Text     string
	Keywords []string
}

// Candidate is a ranked search hit.
type Candidate struct {
	Text  string
	Score float64
}

// Context is a ranked list of answer texts, best first.
type Context []string

// Index is a searchable collection of documents.
// Search returns candidates ranked best first.
type Index interface {
	Build(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Documents converts a knowledge base into indexable documents, in
// definition order.
func Documents(base *knowledge.Base) []Document {
	entries := base.Entries()
	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = Document{Text: e.Answer, Keywords: e.Keywords}
	}
	return docs
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK caps the number of context entries returned.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinScore drops candidates scoring below score. Zero disables the
// threshold.
func WithMinScore(score float64) Option {
	return func(r *Retriever) {
		r.minScore = score
	}
}

// WithBuildTimeout bounds a lazy index build. Zero removes the bound.
func WithBuildTimeout(timeout time.Duration) Option {
	return func(r *Retriever) {
		if timeout >= 0 {
			r.buildTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever wraps an Index built from a knowledge base.
type Retriever struct {
	index    Index
	base     *knowledge.Base
	topK     int
	minScore float64
	logger   *zap.Logger

	buildTimeout time.Duration

	mu     sync.RWMutex
	built  bool
	builds singleflight.Group
}

// New creates a Retriever. The index is not built until Build or the
// first Retrieve.
func New(index Index, base *knowledge.Base, opts ...Option) *Retriever {
	r := &Retriever{
		index:  index,
		base:   base,
		topK:         3,
		logger:       zap.NewNop(),
		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Built reports whether the index has been built.
func (r *Retriever) Built() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.built
}

// Build builds the index once. Concurrent callers share a single build;
// after a failure the next call tries again. The build runs detached from
// ctx, bounded only by the build timeout: a caller whose ctx ends stops
// waiting and the build carries on for everyone else.
func (r *Retriever) Build(ctx context.Context) error {
	if r.Built() {
		return nil
	}

	results := r.builds.DoChan("build", func() (any, error) {
		return nil, r.build(context.WithoutCancel(ctx))
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return fmt.Errorf("build retrieval index: %w", res.Err)
		}
		if res.Shared {
			r.logger.Debug("joined in-flight index build")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Retriever) build(ctx context.Context) (err error) {
	if r.Built() {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("index build panicked: %v", p)
		}
	}()

	if r.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.buildTimeout)
		defer cancel()
	}

	start := time.Now()
	docs := Documents(r.base)
	if err := r.index.Build(ctx, docs); err != nil {
		r.logger.Warn("retrieval index build failed", zap.Error(err))
		return err
	}
	r.mu.Lock()
	r.built = true
	r.mu.Unlock()
	r.logger.Debug("retrieval index built",
		zap.Int("documents", len(docs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Retrieve returns the context for query, building the index on first use.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Context, error) {
	if err := r.Build(ctx); err != nil {
		return nil, err
	}

	candidates, err := r.index.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search retrieval index: %w", err)
	}

	result := make(Context, 0, r.topK)
	for _, c := range candidates {
		if r.minScore > 0 && c.Score < r.minScore {
			continue
		}
		result = append(result, c.Text)
		if len(result) == r.topK {
			break
		}
	}
	return result, nil
}
