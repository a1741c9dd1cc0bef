// Package dispatch decides which source answers a query.
//
// Information Hiding:
// - The retrieval race against a fixed budget and against cancellation
// - Fallback order: retrieved context, then keyword match, then the fixed
//   fallback answer
// - Mapping of provider failures to visible answer text
// - Cancellation precedence over every computed result

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/askbase/internal/race"
	"github.com/richinex/askbase/knowledge"
	"github.com/richinex/askbase/llm"
	"github.com/richinex/askbase/retrieval"
)

// DefaultRetrievalTimeout is how long a dispatch waits for context.
const DefaultRetrievalTimeout = 3000 * time.Millisecond

// Retriever supplies ranked context for a query. *retrieval.Retriever
// implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Context, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetriever enables context retrieval.
func WithRetriever(r Retriever) Option {
	return func(d *Dispatcher) {
		d.retriever = r
	}
}

// WithClient registers the client answering for a remote source.
func WithClient(source Source, client llm.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.clients[source] = client
		}
	}
}

// WithRetrievalTimeout overrides DefaultRetrievalTimeout.
func WithRetrievalTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.retrievalTimeout = timeout
		}
	}
}

// WithLocalDelay adds a cancellable pause before local answers.
func WithLocalDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.localDelay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher answers queries. It is safe for concurrent use; dispatches
// share no mutable state.
type Dispatcher struct {
	matcher          *knowledge.Matcher
	retriever        Retriever
	clients          map[Source]llm.Client
	retrievalTimeout time.Duration
	localDelay       time.Duration
	logger           *zap.Logger
}

// New creates a Dispatcher over base.
func New(base *knowledge.Base, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		matcher:          knowledge.NewMatcher(base),
		clients:          make(map[Source]llm.Client),
		retrievalTimeout: DefaultRetrievalTimeout,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch answers query from source. Cancelling ctx abandons all
// outstanding work; once ctx is done the outcome is always Cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, query string, source Source) (out Outcome) {
	start := time.Now()
	log := d.logger.With(
		zap.String("dispatch_id", uuid.NewString()),
		zap.String("source", source.String()),
	)

	defer func() {
		if p := recover(); p != nil {
			log.Error("dispatch panicked", zap.Any("panic", p))
			out = Failed(fmt.Sprintf("internal error: %v", p))
		}
		if ctx.Err() != nil {
			out = Cancelled()
		}
		log.Debug("dispatch finished",
			zap.Stringer("outcome", out.Kind),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	if ctx.Err() != nil {
		return Cancelled()
	}
	if strings.TrimSpace(query) == "" {
		return Failed("empty query")
	}

	background, ok := d.retrieve(ctx, query, log)
	if !ok {
		return Cancelled()
	}

	if source == SourceLocal {
		return d.answerLocally(ctx, query, background, log)
	}
	return d.answerRemotely(ctx, query, source, background, log)
}

// retrieve races the retriever against the budget and ctx. It reports
// false only when ctx finished first; every other failure means no context.
func (d *Dispatcher) retrieve(ctx context.Context, query string, log *zap.Logger) (retrieval.Context, bool) {
	if d.retriever == nil {
		return nil, true
	}

	background, err := race.WithTimeout(ctx, d.retrievalTimeout, func(ctx context.Context) (retrieval.Context, error) {
		return d.retriever.Retrieve(ctx, query)
	})
	if ctx.Err() != nil {
		return nil, false
	}
	switch {
	case errors.Is(err, race.ErrTimeout):
		log.Warn("retrieval timed out", zap.Duration("budget", d.retrievalTimeout))
		return nil, true
	case err != nil:
		log.Warn("retrieval failed", zap.Error(err))
		return nil, true
	}
	log.Debug("retrieval finished", zap.Int("candidates", len(background)))
	return background, true
}

func (d *Dispatcher) answerLocally(ctx context.Context, query string, background retrieval.Context, log *zap.Logger) Outcome {
	var text, tier string
	if len(background) > 0 {
		text, tier = background[0], "retrieval"
	} else if entry, ok := d.matcher.Match(query); ok {
		text, tier = entry.Answer, "keyword"
	} else {
		text, tier = knowledge.FallbackAnswer, "fallback"
	}
	log.Debug("answered locally", zap.String("tier", tier))

	if d.localDelay > 0 {
		timer := time.NewTimer(d.localDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Cancelled()
		}
	}
	return Answered(text, SourceLocal)
}

func (d *Dispatcher) answerRemotely(ctx context.Context, query string, source Source, background retrieval.Context, log *zap.Logger) Outcome {
	if _, remote := source.Provider(); !remote {
		return Failed(fmt.Sprintf("unknown source %s", source))
	}
	client, ok := d.clients[source]
	if !ok {
		log.Warn("no client registered")
		return Answered(fmt.Sprintf("%s error: provider not configured", source.Label()), source)
	}

	log.Debug("calling provider", zap.String("tier", "provider"), zap.String("model", client.Model()))
	text, err := client.Call(ctx, query, background)

	var credErr *llm.CredentialError
	var transportErr *llm.TransportError
	switch {
	case err == nil:
		return Answered(text, source)
	case errors.Is(err, llm.ErrAborted):
		return Cancelled()
	case errors.As(err, &credErr), errors.As(err, &transportErr):
		log.Warn("provider call failed", zap.Error(err))
		return Answered(fmt.Sprintf("%s error: %s", source.Label(), err.Error()), source)
	default:
		log.Error("provider call failed unexpectedly", zap.Error(err))
		return Failed(err.Error())
	}
}
