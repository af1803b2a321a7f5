package ocr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Model sends an image and a prompt to a multimodal model and returns its
// raw text answer.
type Model interface {
	Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// ErrNotConfigured is returned by NotConfigured.
var ErrNotConfigured = errors.New("receipt scanning is not configured")

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, image []byte, mimeType, prompt string) (string, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return f(ctx, image, mimeType, prompt)
}

// NotConfigured is a Model that always fails, for servers without an API key.
var NotConfigured Model = ModelFunc(func(context.Context, []byte, string, string) (string, error) {
	return "", ErrNotConfigured
})

// GeminiModel implements Model with the Gemini API.
type GeminiModel struct {
	client *genai.Client
	name   string
}

var _ Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini client for the given API key and model name.
func NewGeminiModel(ctx context.Context, apiKey, name string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key: %w", ErrNotConfigured)
	}
	if name == "" {
		name = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, name: name}, nil
}

// Generate asks for a JSON answer at low temperature.
func (m *GeminiModel) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
