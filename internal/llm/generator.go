package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
)

// Generator is the boundary to the external generation service. Three output
// modes are supported: plain text, forced-JSON, and native schema-constrained
// output. Every call blocks, may be slow, and may fail with one of the
// classified errors in errors.go.
type Generator interface {
	// Generate performs a free-text completion.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON forces the model to emit a JSON object, with no shape
	// guarantee beyond syntactic validity.
	GenerateJSON(ctx context.Context, prompt string) (string, error)

	// GenerateStructured constrains the output to the given JSON schema and
	// returns the raw JSON text.
	GenerateStructured(ctx context.Context, prompt, name string, schema map[string]any) (string, error)
}

// OpenAIConfig configures the Responses-API generator. BaseURL may point at
// any OpenAI-compatible endpoint; the local low-capability deployments run
// against one.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	CallTimeout time.Duration
}

// OpenAIGenerator implements Generator over the OpenAI Responses API.
type OpenAIGenerator struct {
	client openai.Client
	model  shared.ResponsesModel
	log    logger.Logger
}

// NewOpenAIGenerator builds a generator from explicit configuration; there is
// no process-global client.
func NewOpenAIGenerator(cfg OpenAIConfig, log logger.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	opts = append(opts, option.WithRequestTimeout(timeout))

	model := shared.ResponsesModel(cfg.Model)
	if cfg.Model == "" {
		model = shared.ResponsesModel(shared.ChatModelGPT5Mini)
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
	})
	if err != nil {
		g.log.Error("free-text generation failed: %v", err)
		return "", Classify(err)
	}
	return response.OutputText(), nil
}

func (g *OpenAIGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	response, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		},
	})
	if err != nil {
		g.log.Error("forced-JSON generation failed: %v", err)
		return "", Classify(err)
	}
	return response.OutputText(), nil
}

func (g *OpenAIGenerator) GenerateStructured(ctx context.Context, prompt, name string, schema map[string]any) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: schema name is required", ErrMalformedRequest)
	}
	response, err := g.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(name, schema),
		},
	})
	if err != nil {
		g.log.Error("schema-constrained generation failed: %v", err)
		return "", Classify(err)
	}
	return response.OutputText(), nil
}
