// Google Gemini client implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Mapping of genai.APIError to TransportError

package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GeminiClient implements the Client interface for Google Gemini.
type GeminiClient struct {
	caller
}

// NewGeminiClient creates a Gemini client. The key is resolved through
// keyFn on every call, so no SDK client is built until the first call.
func NewGeminiClient(keyFn KeyFunc, model string, maxTokens uint32, temperature float32) *GeminiClient {
	return &GeminiClient{caller: caller{
		provider:    ProviderGemini,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		keyFn:       keyFn,
	}}
}

// Call sends a generate content request.
func (c *GeminiClient) Call(ctx context.Context, query string, background []string) (string, error) {
	return invoke(ctx, &c.caller, func(ctx context.Context, key string) (string, error) {
		client, err := genaiClient(ctx, &c.caller, key)
		if err != nil {
			return "", c.transportError(0, "", err)
		}

		prompt := BuildMessages(query, background)
		config := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr(c.temperature),
			MaxOutputTokens:   int32(c.maxTokens),
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		}

		resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), config)
		if err != nil {
			return "", classifyGenAI(&c.caller, err)
		}

		text := resp.Text()
		if text == "" {
			return "", c.transportError(0, "empty response from Gemini", nil)
		}
		return text, nil
	})
}

func genaiClient(ctx context.Context, c *caller, key string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	return genai.NewClient(ctx, cfg)
}

func classifyGenAI(c *caller, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Status
		}
		return c.transportError(apiErr.Code, msg, err)
	}
	return c.transportError(0, "", err)
}

// Verify GeminiClient implements Client
var _ Client = (*GeminiClient)(nil)
