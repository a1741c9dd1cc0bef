package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/richinex/askbase/llm"
	"github.com/richinex/askbase/storage"
)

// Embedder turns text into vectors. llm.GenAIEmbedder and
// llm.OpenAIEmbedder implement it.
type Embedder interface {
	Model() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

const (
	defaultQueryCacheSize = 256
	defaultBuildRetries   = 3
	defaultBackoffBase    = 200 * time.Millisecond
	defaultBackoffMax     = 5 * time.Second
)

// VectorOption configures a VectorIndex.
type VectorOption func(*VectorIndex)

// WithVectorCache reuses document vectors across builds and processes.
func WithVectorCache(cache storage.VectorCache) VectorOption {
	return func(v *VectorIndex) {
		v.cache = cache
	}
}

// WithQueryCacheSize sets the number of query embeddings kept in memory.
func WithQueryCacheSize(size int) VectorOption {
	return func(v *VectorIndex) {
		if size > 0 {
			v.queryCacheSize = size
		}
	}
}

// WithBuildRetries sets how often a failed document embedding batch is
// retried, and the initial backoff.
func WithBuildRetries(retries uint64, base time.Duration) VectorOption {
	return func(v *VectorIndex) {
		v.retries = retries
		if base > 0 {
			v.backoffBase = base
		}
	}
}

// WithVectorLogger sets the logger.
func WithVectorLogger(logger *zap.Logger) VectorOption {
	return func(v *VectorIndex) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// VectorIndex ranks documents by cosine similarity of embeddings.
type VectorIndex struct {
	embedder       Embedder
	cache          storage.VectorCache
	queries        *lru.Cache[string, []float32]
	queryCacheSize int
	retries        uint64
	backoffBase    time.Duration
	logger         *zap.Logger

	mu      sync.RWMutex
	built   bool
	docs    []string
	vectors [][]float32
}

// NewVectorIndex creates an empty index over embedder.
func NewVectorIndex(embedder Embedder, opts ...VectorOption) (*VectorIndex, error) {
	if embedder == nil {
		return nil, errors.New("vector index: embedder is required")
	}
	v := &VectorIndex{
		embedder:       embedder,
		queryCacheSize: defaultQueryCacheSize,
		retries:        defaultBuildRetries,
		backoffBase:    defaultBackoffBase,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}

	queries, err := lru.New[string, []float32](v.queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("vector index: init query cache: %w", err)
	}
	v.queries = queries
	return v, nil
}

// Build embeds docs, reusing cached vectors where available.
func (v *VectorIndex) Build(ctx context.Context, docs []Document) error {
	model := v.embedder.Model()
	texts := make([]string, len(docs))
	vectors := make([][]float32, len(docs))

	var missing []int
	for i, doc := range docs {
		texts[i] = doc.Text
		if v.cache == nil {
			missing = append(missing, i)
			continue
		}
		vec, ok, err := v.cache.Get(ctx, model, storage.HashText(doc.Text))
		if err != nil {
			v.logger.Warn("vector cache lookup failed", zap.Error(err))
		}
		if ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		batch := make([]string, len(missing))
		for j, i := range missing {
			batch[j] = texts[i]
		}

		embedded, err := v.embedWithRetry(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed documents: %w", err)
		}
		for j, i := range missing {
			vectors[i] = embedded[j]
			if v.cache != nil {
				if err := v.cache.Put(ctx, model, storage.HashText(texts[i]), embedded[j]); err != nil {
					v.logger.Warn("vector cache store failed", zap.Error(err))
				}
			}
		}
	}

	v.logger.Debug("vector index built",
		zap.String("model", model),
		zap.Int("documents", len(docs)),
		zap.Int("embedded", len(missing)),
	)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs = texts
	v.vectors = vectors
	v.built = true
	return nil
}

func (v *VectorIndex) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := retry.NewExponential(v.backoffBase)
	backoff = retry.WithMaxDuration(defaultBackoffMax, backoff)
	backoff = retry.WithMaxRetries(v.retries, backoff)

	return retry.DoValue(ctx, backoff, func(ctx context.Context) ([][]float32, error) {
		vectors, err := v.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			if isRetryable(err) {
				v.logger.Debug("retrying document embedding", zap.Error(err))
				return nil, retry.RetryableError(err)
			}
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors))
		}
		return vectors, nil
	})
}

// isRetryable reports whether an embedding failure is worth another try:
// rate limiting, server errors and failures without a response.
func isRetryable(err error) bool {
	var transportErr *llm.TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return transportErr.Status == 0 ||
		transportErr.Status == http.StatusTooManyRequests ||
		transportErr.Status >= http.StatusInternalServerError
}

// Search ranks every document by similarity to query. Ties keep
// definition order.
func (v *VectorIndex) Search(ctx context.Context, query string) ([]Candidate, error) {
	v.mu.RLock()
	built, docs, vectors := v.built, v.docs, v.vectors
	v.mu.RUnlock()
	if !built {
		return nil, ErrNotBuilt
	}

	qv, ok := v.queries.Get(query)
	if !ok {
		var err error
		qv, err = v.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		v.queries.Add(query, qv)
	}

	result := make([]Candidate, len(docs))
	for i, doc := range docs {
		result[i] = Candidate{Text: doc, Score: cosine(qv, vectors[i])}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Verify VectorIndex implements Index
var _ Index = (*VectorIndex)(nil)
