package ai

import (
	"context"
	"fmt"

	"maternal-care-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// Embedder produces embedding vectors for document chunks and queries.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// NewEmbedder builds the configured embeddings provider.
// Default provider is Google Generative AI (text-embedding-004).
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, err
		}
		return &googleEmbedder{client: client, model: cfg.GoogleEmbeddingsModel}, nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for embeddings")
		}
		return &openaiEmbedder{
			client: openai.NewClient(cfg.OpenAIAPIKey),
			model:  openai.EmbeddingModel(cfg.OpenAIEmbeddingsModel),
		}, nil

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

type googleEmbedder struct {
	client *genai.Client
	model  string
}

func (g *googleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	model := g.client.EmbeddingModel(g.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func (g *googleEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	model := g.client.EmbeddingModel(g.model)

	batch := model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}

func (g *googleEmbedder) Close() error {
	return g.client.Close()
}

type openaiEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (o *openaiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *openaiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (o *openaiEmbedder) Close() error {
	return nil
}
