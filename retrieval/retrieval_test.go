package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/richinex/askbase/knowledge"
	"github.com/richinex/askbase/llm"
	"github.com/richinex/askbase/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingIndex is a deterministic Index whose Build can be slowed down,
// made to fail or made to panic. A slow Build gives up when ctx ends.
type countingIndex struct {
	builds      int32
	buildDelay  time.Duration
	failBuilds  int32
	panicBuilds bool
	results     []Candidate
	searchErr   error
}

func (c *countingIndex) Build(ctx context.Context, _ []Document) error {
	n := atomic.AddInt32(&c.builds, 1)
	if c.panicBuilds {
		panic("corrupt document")
	}
	if c.buildDelay > 0 {
		timer := time.NewTimer(c.buildDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= atomic.LoadInt32(&c.failBuilds) {
		return errors.New("index unavailable")
	}
	return nil
}

func (c *countingIndex) Search(context.Context, string) ([]Candidate, error) {
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.results, nil
}

// featureEmbedder embeds text as term counts over a fixed vocabulary.
type featureEmbedder struct {
	vocabulary []string
	docCalls   int32
	queryCalls int32
	failures   int32
	failWith   error
}

func newFeatureEmbedder() *featureEmbedder {
	return &featureEmbedder{vocabulary: []string{"java", "spring", "injection", "jvm", "rest", "hello"}}
}

func (f *featureEmbedder) Model() string { return "feature-test" }

func (f *featureEmbedder) embed(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(f.vocabulary))
	for i, term := range f.vocabulary {
		v[i] = float32(strings.Count(lower, term))
	}
	return v
}

func (f *featureEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&f.docCalls, 1)
	if n <= atomic.LoadInt32(&f.failures) {
		return nil, f.failWith
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

func (f *featureEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&f.queryCalls, 1)
	return f.embed(text), nil
}

func entryAnswer(t *testing.T, index int) string {
	t.Helper()
	return knowledge.Default().Entries()[index].Answer
}

func TestLexicalIndex(t *testing.T) {
	ctx := context.Background()
	index := NewLexicalIndex()

	t.Run("ShouldReturnErrNotBuiltBeforeBuild", func(t *testing.T) {
		_, err := index.Search(ctx, "java")
		assert.ErrorIs(t, err, ErrNotBuilt)
	})

	require.NoError(t, index.Build(ctx, Documents(knowledge.Default())))

	t.Run("ShouldRankKeywordEntryFirst", func(t *testing.T) {
		got, err := index.Search(ctx, "what is java")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, entryAnswer(t, 0), got[0].Text)
	})

	t.Run("ShouldRankPhraseMatchFirst", func(t *testing.T) {
		got, err := index.Search(ctx, "Spring Boot")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, entryAnswer(t, 1), got[0].Text)
	})

	t.Run("ShouldMatchLongerWordForms", func(t *testing.T) {
		got, err := index.Search(ctx, "annotation")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, entryAnswer(t, 4), got[0].Text)
	})

	t.Run("ShouldReturnNothingForNonsense", func(t *testing.T) {
		got, err := index.Search(ctx, "xyzzy nonsense")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ShouldIgnoreStopwordsOnlyQuery", func(t *testing.T) {
		got, err := index.Search(ctx, "what is the")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ShouldKeepDefinitionOrderOnTies", func(t *testing.T) {
		tied := NewLexicalIndex()
		require.NoError(t, tied.Build(ctx, []Document{
			{Text: "first mentions golang"},
			{Text: "second mentions golang"},
		}))
		got, err := tied.Search(ctx, "golang")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first mentions golang", got[0].Text)
		assert.Equal(t, got[0].Score, got[1].Score)
	})

	t.Run("ShouldHonourCancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := index.Search(cctx, "java")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetriever(t *testing.T) {
	ctx := context.Background()
	base := knowledge.Default()

	t.Run("ShouldBuildLazilyOnFirstRetrieve", func(t *testing.T) {
		r := New(NewLexicalIndex(), base)
		assert.False(t, r.Built())

		got, err := r.Retrieve(ctx, "jvm")
		require.NoError(t, err)
		assert.True(t, r.Built())
		require.NotEmpty(t, got)
		assert.Equal(t, entryAnswer(t, 3), got[0])
	})

	t.Run("ShouldShareOneBuildBetweenConcurrentCallers", func(t *testing.T) {
		index := &countingIndex{buildDelay: 20 * time.Millisecond, results: []Candidate{{Text: "a", Score: 1}}}
		r := New(index, base)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Retrieve(ctx, "q")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), atomic.LoadInt32(&index.builds))
	})

	t.Run("ShouldRetryFailedBuildOnNextCall", func(t *testing.T) {
		index := &countingIndex{failBuilds: 1}
		r := New(index, base)

		_, err := r.Retrieve(ctx, "q")
		require.Error(t, err)
		assert.False(t, r.Built())

		_, err = r.Retrieve(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&index.builds))
	})

	t.Run("ShouldFinishSharedBuildWhenFirstCallerLeaves", func(t *testing.T) {
		index := &countingIndex{buildDelay: 100 * time.Millisecond, results: []Candidate{{Text: "from index", Score: 1}}}
		r := New(index, base)

		first, cancelFirst := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := r.Retrieve(first, "q")
			firstErr <- err
		}()
		require.Eventually(t, func() bool { return atomic.LoadInt32(&index.builds) == 1 }, time.Second, time.Millisecond)

		type retrieved struct {
			got Context
			err error
		}
		second := make(chan retrieved, 1)
		go func() {
			got, err := r.Retrieve(ctx, "q")
			second <- retrieved{got, err}
		}()

		cancelFirst()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, Context{"from index"}, res.got)
		assert.True(t, r.Built())
		assert.Equal(t, int32(1), atomic.LoadInt32(&index.builds))
	})

	t.Run("ShouldCompleteBuildSlowerThanCallerDeadline", func(t *testing.T) {
		index := &countingIndex{buildDelay: 200 * time.Millisecond}
		r := New(index, base)

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := r.Retrieve(short, "q")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, r.Built())

		require.Eventually(t, r.Built, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&index.builds))
	})

	t.Run("ShouldBoundDetachedBuild", func(t *testing.T) {
		index := &countingIndex{buildDelay: time.Second}
		r := New(index, base, WithBuildTimeout(20*time.Millisecond))

		err := r.Build(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, r.Built())
	})

	t.Run("ShouldReportBuildPanicsAsErrors", func(t *testing.T) {
		r := New(&countingIndex{panicBuilds: true}, base)

		err := r.Build(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt document")
		assert.False(t, r.Built())
	})

	t.Run("ShouldCapAtTopK", func(t *testing.T) {
		index := &countingIndex{results: []Candidate{{"a", 3}, {"b", 2}, {"c", 1}, {"d", 0.5}}}
		got, err := New(index, base, WithTopK(2)).Retrieve(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, Context{"a", "b"}, got)
	})

	t.Run("ShouldKeepWeakCandidatesWithoutThreshold", func(t *testing.T) {
		index := &countingIndex{results: []Candidate{{"weak", 0.01}}}
		got, err := New(index, base).Retrieve(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, Context{"weak"}, got)
	})

	t.Run("ShouldDropCandidatesBelowMinScore", func(t *testing.T) {
		index := &countingIndex{results: []Candidate{{"strong", 0.9}, {"weak", 0.2}}}
		got, err := New(index, base, WithMinScore(0.5)).Retrieve(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, Context{"strong"}, got)
	})

	t.Run("ShouldWrapSearchErrors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := New(&countingIndex{searchErr: boom}, base).Retrieve(ctx, "q")
		assert.ErrorIs(t, err, boom)
	})
}

func TestVectorIndex(t *testing.T) {
	ctx := context.Background()
	docs := Documents(knowledge.Default())

	t.Run("ShouldRankBySimilarity", func(t *testing.T) {
		index, err := NewVectorIndex(newFeatureEmbedder())
		require.NoError(t, err)
		require.NoError(t, index.Build(ctx, docs))

		got, err := index.Search(ctx, "tell me about dependency injection")
		require.NoError(t, err)
		require.Len(t, got, len(docs))
		assert.Equal(t, entryAnswer(t, 2), got[0].Text)
		assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	})

	t.Run("ShouldKeepDefinitionOrderOnTies", func(t *testing.T) {
		index, err := NewVectorIndex(newFeatureEmbedder())
		require.NoError(t, err)
		require.NoError(t, index.Build(ctx, []Document{{Text: "nothing here"}, {Text: "nor here"}}))

		got, err := index.Search(ctx, "xyzzy")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "nothing here", got[0].Text)
	})

	t.Run("ShouldMemoizeQueryEmbeddings", func(t *testing.T) {
		embedder := newFeatureEmbedder()
		index, err := NewVectorIndex(embedder, WithQueryCacheSize(4))
		require.NoError(t, err)
		require.NoError(t, index.Build(ctx, docs))

		for i := 0; i < 3; i++ {
			_, err := index.Search(ctx, "jvm")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&embedder.queryCalls))
	})

	t.Run("ShouldReuseCachedDocumentVectors", func(t *testing.T) {
		cache, err := storage.NewSqliteInMemory()
		require.NoError(t, err)
		defer cache.Close()

		first := newFeatureEmbedder()
		index, err := NewVectorIndex(first, WithVectorCache(cache))
		require.NoError(t, err)
		require.NoError(t, index.Build(ctx, docs))
		assert.Equal(t, int32(1), atomic.LoadInt32(&first.docCalls))

		second := newFeatureEmbedder()
		warm, err := NewVectorIndex(second, WithVectorCache(cache))
		require.NoError(t, err)
		require.NoError(t, warm.Build(ctx, docs))
		assert.Equal(t, int32(0), atomic.LoadInt32(&second.docCalls))

		got, err := warm.Search(ctx, "spring")
		require.NoError(t, err)
		assert.Equal(t, entryAnswer(t, 1), got[0].Text)
	})

	t.Run("ShouldRetryTransientFailures", func(t *testing.T) {
		embedder := newFeatureEmbedder()
		embedder.failures = 2
		embedder.failWith = &llm.TransportError{Provider: "Gemini", Status: 503, Message: "overloaded"}

		index, err := NewVectorIndex(embedder, WithBuildRetries(3, time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, index.Build(ctx, docs))
		assert.Equal(t, int32(3), atomic.LoadInt32(&embedder.docCalls))
	})

	t.Run("ShouldNotRetryCredentialErrors", func(t *testing.T) {
		embedder := newFeatureEmbedder()
		embedder.failures = 10
		embedder.failWith = &llm.CredentialError{Provider: "Gemini", EnvVar: "GEMINI_API_KEY"}

		index, err := NewVectorIndex(embedder, WithBuildRetries(3, time.Millisecond))
		require.NoError(t, err)

		err = index.Build(ctx, docs)
		var credErr *llm.CredentialError
		assert.ErrorAs(t, err, &credErr)
		assert.Equal(t, int32(1), atomic.LoadInt32(&embedder.docCalls))

		_, err = index.Search(ctx, "java")
		assert.ErrorIs(t, err, ErrNotBuilt)
	})

	t.Run("ShouldRequireEmbedder", func(t *testing.T) {
		_, err := NewVectorIndex(nil)
		require.Error(t, err)
	})
}
