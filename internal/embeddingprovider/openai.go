package embeddingprovider

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider computes embeddings through the OpenAI embeddings API,
// grounded on Tangerg-lynx's provider wrapper over the same client.
type OpenAIProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	modelName string
	dimension int
}

// NewOpenAIProvider creates a provider bound to modelName, requesting
// vectors of the given dimension when the model supports it.
func NewOpenAIProvider(apiKey, modelName string, dimension int) *OpenAIProvider {
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     openai.EmbeddingModel(modelName),
		modelName: modelName,
		dimension: dimension,
	}
}

func (p *OpenAIProvider) ModelName() string { return p.modelName }
func (p *OpenAIProvider) Dimension() int    { return p.dimension }

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	req := openai.EmbeddingRequestStrings{
		Input:          texts,
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     p.dimension,
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float64, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float64(f)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
