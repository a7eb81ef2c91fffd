package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used by every flow.
const DefaultModelName = "gemini-2.5-flash"

// TextGenerator performs one structured model call and returns the raw
// response text. This interface enables mocking and testing of the flows
// without the Gemini API.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error)
}

// GeminiClient is the concrete TextGenerator backed by Gemini.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client. An empty apiKey lets the SDK
// fall back to GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Model returns the model name used for generation.
func (g *GeminiClient) Model() string {
	return g.model
}

// GenerateJSON asks the model for a JSON answer matching schema.
func (g *GeminiClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		Temperature:       genai.Ptr[float32](0),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

// ModelExtractor is the Extractor that asks a TextGenerator to pick the
// chat action.
type ModelExtractor struct {
	gen TextGenerator
}

// NewModelExtractor creates an extractor over gen.
func NewModelExtractor(gen TextGenerator) *ModelExtractor {
	return &ModelExtractor{gen: gen}
}

// Extract sends the utterance and reference lists to the model and decodes
// its answer. An empty answer yields (nil, nil).
func (e *ModelExtractor) Extract(ctx context.Context, req ExtractionRequest) (*LooseAction, error) {
	raw, err := e.gen.GenerateJSON(ctx, chatSystemPrompt, buildChatPrompt(req), chatActionSchema())
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	la, err := ParseLooseAction(raw)
	if err != nil {
		return &LooseAction{Raw: raw}, err
	}
	return la, nil
}
