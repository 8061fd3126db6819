// Package openai adapts OpenAI-compatible APIs to the embedding and
// generation interfaces. Any endpoint speaking the OpenAI wire format works,
// including self-hosted gateways and Groq.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is a 384-dimensional sentence transformer
	// commonly served behind OpenAI-compatible embedding endpoints.
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultEmbeddingDimension is the output size of the default model.
	DefaultEmbeddingDimension = 384

	// DefaultChatModel is the default generation model.
	DefaultChatModel = "llama-3.1-8b-instant"

	// DefaultTemperature keeps answers close to the retrieved context.
	DefaultTemperature = 0.3
)

// Options contains configuration options for the adapters.
type Options struct {
	// BaseURL overrides the API endpoint. Empty means the official
	// OpenAI endpoint.
	BaseURL string

	// EmbeddingModel names the embedding model to request.
	EmbeddingModel string

	// EmbeddingDimension is the expected output size of EmbeddingModel.
	EmbeddingDimension int

	// ChatModel names the generation model to request.
	ChatModel string

	// Temperature is the sampling temperature for generation.
	Temperature float32
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	EmbeddingModel:     DefaultEmbeddingModel,
	EmbeddingDimension: DefaultEmbeddingDimension,
	ChatModel:          DefaultChatModel,
	Temperature:        DefaultTemperature,
}

func newClient(apiKey string, opts Options) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

// EmbeddingModel calls an OpenAI-compatible embeddings endpoint.
// It satisfies the embedding gateway's Model interface.
type EmbeddingModel struct {
	client *goopenai.Client
	opts   Options
}

// NewEmbeddingModel creates an embedding model client.
func NewEmbeddingModel(apiKey string, optFns ...func(o *Options)) *EmbeddingModel {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return &EmbeddingModel{
		client: newClient(apiKey, opts),
		opts:   opts,
	}
}

// Dimension returns the configured output dimensionality.
func (m *EmbeddingModel) Dimension() int {
	return m.opts.EmbeddingDimension
}

// Encode returns one vector per input text, in input order.
func (m *EmbeddingModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(m.opts.EmbeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("create embeddings: vector index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Generator calls an OpenAI-compatible chat completions endpoint.
type Generator struct {
	client *goopenai.Client
	opts   Options
}

// NewGenerator creates a chat generation client.
func NewGenerator(apiKey string, optFns ...func(o *Options)) *Generator {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Generator{
		client: newClient(apiKey, opts),
		opts:   opts,
	}
}

// Generate produces one completion for the given system and user prompts.
func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       g.opts.ChatModel,
		Temperature: g.opts.Temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("create chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
