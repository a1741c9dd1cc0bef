// Provider Client Factory - builder-first API for creating provider clients.
//
// Quick Start:
//
//	// Simplest: defaults, API key read from the environment on every call
//	gemini, err := llm.ProviderGemini.Client()
//
//	// With custom model
//	gpt, err := llm.ProviderChatGPT.Model(llm.ModelOpenAIGPT4o).Build()
//
//	// Full configuration
//	custom, err := llm.ProviderGemini.
//	    Model(llm.ModelGeminiFlash25).
//	    MaxTokens(2048).
//	    Temperature(0.3).
//	    RateLimit(2).
//	    Build()

package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/richinex/askbase/config"
)

// ProviderType represents supported remote providers.
type ProviderType int

const (
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini ProviderType = iota
	// ProviderChatGPT is the OpenAI provider (GPT models).
	ProviderChatGPT
)

// String returns the canonical provider id.
func (p ProviderType) String() string {
	switch p {
	case ProviderGemini:
		return "gemini"
	case ProviderChatGPT:
		return "chatgpt"
	default:
		return "unknown"
	}
}

// Label returns the name shown to users.
func (p ProviderType) Label() string {
	switch p {
	case ProviderGemini:
		return "Gemini"
	case ProviderChatGPT:
		return "ChatGPT"
	default:
		return "Unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	return config.APIKeyEnv(p.String())
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return ModelGeminiFlash25
	case ProviderChatGPT:
		return ModelOpenAIGPT4oMini
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "chatgpt", "openai", "gpt":
		return ProviderChatGPT, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// Client creates a client with defaults, reading its key from the environment.
func (p ProviderType) Client() (Client, error) {
	return NewProviderBuilder(p).Build()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// ProviderBuilder is a builder for configuring provider clients.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
	baseURL      string
	httpClient   *http.Client
	rateLimit    float64
	keyFn        KeyFunc
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// FromConfig applies a provider's settings block.
func (b *ProviderBuilder) FromConfig(cfg config.ProviderConfig) *ProviderBuilder {
	if cfg.Model != "" {
		b.model = cfg.Model
	}
	if cfg.MaxTokens > 0 {
		b.maxTokens = cfg.MaxTokens
	}
	temp := float32(cfg.Temperature)
	b.temperature = &temp
	b.baseURL = cfg.BaseURL
	b.rateLimit = cfg.RateLimit
	if cfg.RequestTimeoutMS > 0 {
		b.HTTPClient(&http.Client{Timeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond})
	}
	return b
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// BaseURL overrides the provider endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

// HTTPClient sets the HTTP client used for requests.
func (b *ProviderBuilder) HTTPClient(client *http.Client) *ProviderBuilder {
	b.httpClient = client
	return b
}

// RateLimit caps requests per second; 0 disables limiting.
func (b *ProviderBuilder) RateLimit(perSecond float64) *ProviderBuilder {
	b.rateLimit = perSecond
	return b
}

// KeyFunc overrides how the API key is resolved.
func (b *ProviderBuilder) KeyFunc(fn KeyFunc) *ProviderBuilder {
	b.keyFn = fn
	return b
}

// APIKey uses an explicit API key instead of the environment.
func (b *ProviderBuilder) APIKey(key string) *ProviderBuilder {
	b.keyFn = StaticKey(key)
	return b
}

// Build creates the client. It never fails for a missing key; that is
// reported by Call as a *CredentialError.
func (b *ProviderBuilder) Build() (Client, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	temperature := float32(0.7) // default
	if b.temperature != nil {
		temperature = *b.temperature
	}

	keyFn := b.keyFn
	if keyFn == nil {
		name := b.providerType.String()
		keyFn = func() (string, error) { return config.APIKeyFor(name) }
	}

	var c *caller
	var client Client
	switch b.providerType {
	case ProviderGemini:
		g := NewGeminiClient(keyFn, model, maxTokens, temperature)
		c, client = &g.caller, g
	case ProviderChatGPT:
		o := NewOpenAIClient(keyFn, model, maxTokens, temperature)
		c, client = &o.caller, o
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}

	c.baseURL = b.baseURL
	c.httpClient = b.httpClient
	if b.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(b.rateLimit), 1)
	}
	return client, nil
}

// Model identifier constants for the supported providers.

// Gemini model identifiers
const (
	// ModelGeminiFlash25 is Gemini 2.5 Flash: fast, low-latency default.
	ModelGeminiFlash25 = "gemini-2.5-flash"
	// ModelGeminiPro25 is Gemini 2.5 Pro: stronger reasoning.
	ModelGeminiPro25 = "gemini-2.5-pro"
	// ModelGeminiEmbedding is the Gemini text embedding model.
	ModelGeminiEmbedding = "text-embedding-004"
)

// OpenAI model identifiers
const (
	// ModelOpenAIGPT4oMini is GPT-4o-mini: inexpensive default.
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	// ModelOpenAIGPT4o is GPT-4o.
	ModelOpenAIGPT4o = "gpt-4o"
	// ModelOpenAIEmbedding is the OpenAI small text embedding model.
	ModelOpenAIEmbedding = "text-embedding-3-small"
)
