// ChatGPT client implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - Mapping of *openai.APIError and *openai.RequestError to TransportError

package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface for ChatGPT.
type OpenAIClient struct {
	caller
}

// NewOpenAIClient creates a ChatGPT client. The key is resolved through
// keyFn on every call.
func NewOpenAIClient(keyFn KeyFunc, model string, maxTokens uint32, temperature float32) *OpenAIClient {
	return &OpenAIClient{caller: caller{
		provider:    ProviderChatGPT,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		keyFn:       keyFn,
	}}
}

// Call sends a chat completion request.
func (c *OpenAIClient) Call(ctx context.Context, query string, background []string) (string, error) {
	return invoke(ctx, &c.caller, func(ctx context.Context, key string) (string, error) {
		prompt := BuildMessages(query, background)
		req := openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
				{Role: openai.ChatMessageRoleUser, Content: prompt.User},
			},
			MaxTokens:   int(c.maxTokens),
			Temperature: c.temperature,
		}

		resp, err := openAIClient(&c.caller, key).CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyOpenAI(&c.caller, err)
		}
		if len(resp.Choices) == 0 {
			return "", c.transportError(0, "empty response from ChatGPT", nil)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

func openAIClient(c *caller, key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

func classifyOpenAI(c *caller, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return c.transportError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := string(reqErr.Body)
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return c.transportError(reqErr.HTTPStatusCode, msg, err)
	}
	return c.transportError(0, "", err)
}

// Verify OpenAIClient implements Client
var _ Client = (*OpenAIClient)(nil)
