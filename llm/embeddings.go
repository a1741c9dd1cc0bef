// Embedding clients used by the vector retrieval index.
//
// Information Hiding:
// - Per-provider embedding endpoints and task types
// - Batch request layout
// - The same credential, rate limit and abort handling as Call

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Gemini embedding task types.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GenAIEmbedder embeds text with the Gemini embedding API.
type GenAIEmbedder struct {
	caller
}

// NewGenAIEmbedder creates a Gemini embedder. An empty model selects
// ModelGeminiEmbedding.
func NewGenAIEmbedder(keyFn KeyFunc, model, baseURL string) *GenAIEmbedder {
	if model == "" {
		model = ModelGeminiEmbedding
	}
	return &GenAIEmbedder{caller: caller{
		provider: ProviderGemini,
		model:    model,
		baseURL:  baseURL,
		keyFn:    keyFn,
	}}
}

// EmbedDocuments embeds texts for storage in an index.
func (e *GenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, taskRetrievalDocument)
}

// EmbedQuery embeds a single search query.
func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *GenAIEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	return invoke(ctx, &e.caller, func(ctx context.Context, key string) ([][]float32, error) {
		client, err := genaiClient(ctx, &e.caller, key)
		if err != nil {
			return nil, e.transportError(0, "", err)
		}

		contents := make([]*genai.Content, len(texts))
		for i, text := range texts {
			contents[i] = genai.NewContentFromText(text, genai.RoleUser)
		}

		resp, err := client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
		if err != nil {
			return nil, classifyGenAI(&e.caller, err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, e.transportError(0, fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)), nil)
		}

		vectors := make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			vectors[i] = emb.Values
		}
		return vectors, nil
	})
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	caller
}

// NewOpenAIEmbedder creates an OpenAI embedder. An empty model selects
// ModelOpenAIEmbedding.
func NewOpenAIEmbedder(keyFn KeyFunc, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = ModelOpenAIEmbedding
	}
	return &OpenAIEmbedder{caller: caller{
		provider: ProviderChatGPT,
		model:    model,
		baseURL:  baseURL,
		keyFn:    keyFn,
	}}
}

// EmbedDocuments embeds texts for storage in an index.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return invoke(ctx, &e.caller, func(ctx context.Context, key string) ([][]float32, error) {
		resp, err := openAIClient(&e.caller, key).CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, classifyOpenAI(&e.caller, err)
		}
		if len(resp.Data) != len(texts) {
			return nil, e.transportError(0, fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), nil)
		}

		vectors := make([][]float32, len(texts))
		for _, emb := range resp.Data {
			if emb.Index < 0 || emb.Index >= len(texts) {
				return nil, e.transportError(0, fmt.Sprintf("embedding index %d out of range", emb.Index), nil)
			}
			vectors[emb.Index] = emb.Embedding
		}
		return vectors, nil
	})
}

// EmbedQuery embeds a single search query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
