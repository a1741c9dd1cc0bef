// Shared call path for provider clients.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/richinex/askbase/internal/race"
)

// caller holds the configuration common to every provider client and runs
// the credential, rate limit and cancellation checks around a send.
type caller struct {
	provider    ProviderType
	model       string
	maxTokens   uint32
	temperature float32
	baseURL     string
	httpClient  *http.Client
	keyFn       KeyFunc
	limiter     *rate.Limiter
}

// Name returns the provider's display label.
func (c *caller) Name() string {
	return c.provider.Label()
}

// Model returns the configured model.
func (c *caller) Model() string {
	return c.model
}

// invoke runs send with a resolved key. send must return *TransportError
// for every provider-side failure.
func invoke[T any](ctx context.Context, c *caller, send func(ctx context.Context, key string) (T, error)) (T, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, ErrAborted
	}

	key, err := c.keyFn()
	key = strings.TrimSpace(key)
	if err != nil || key == "" {
		return zero, &CredentialError{Provider: c.Name(), EnvVar: c.provider.EnvVar()}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return zero, ErrAborted
			}
			return zero, &TransportError{Provider: c.Name(), Message: fmt.Sprintf("rate limit: %v", err), Err: err}
		}
	}

	// Await stops waiting on ctx even if the SDK does not honour it.
	v, err := race.Await(ctx, func(ctx context.Context) (T, error) {
		return send(ctx, key)
	})
	if ctx.Err() != nil {
		return zero, ErrAborted
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

// transportError wraps err, preferring msg as the reported message.
func (c *caller) transportError(status int, msg string, err error) *TransportError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &TransportError{Provider: c.Name(), Status: status, Message: msg, Err: err}
}
