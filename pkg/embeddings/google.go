package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleEmbedder wraps Gemini embeddings behind the Embedder interface.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
	dim    int32
}

// NewGoogleEmbedder creates a Gemini API embedder with a fixed output
// dimensionality matching the vector store schema.
func NewGoogleEmbedder(ctx context.Context, model, apiKey string, dimension int) (*GoogleEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	if dimension <= 0 {
		dimension = 1536
	}

	return &GoogleEmbedder{
		client: client,
		model:  model,
		dim:    int32(dimension),
	}, nil
}

// EmbedText generates an embedding for a single text.
func (e *GoogleEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	outputDim := e.dim
	res, err := e.client.Models.EmbedContent(ctx, e.model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: text},
			},
		},
	}, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	if len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return res.Embeddings[0].Values, nil
}

// EmbedTexts generates embeddings for multiple texts. Sequential on purpose:
// batch limits vary per model and section counts are small.
func (e *GoogleEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))

	for _, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		result = append(result, vec)
	}

	return result, nil
}
