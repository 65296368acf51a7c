// Package gemini is a vision backend over the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"log/slog"

	"caloriebot"
	"caloriebot/vision"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Model implements vision.Model.
type Model struct {
	gen         generator
	model       string
	temperature float32
	maxTokens   int32
}

func NewModel(gen generator, cfg caloriebot.VisionConfig) *Model {
	m := &Model{
		gen:         gen,
		model:       cfg.GeminiModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if m.model == "" {
		m.model = defaultModel
	}
	return m
}

// NewProvider connects to Gemini with cfg.GeminiAPIKey.
func NewProvider(ctx context.Context, cfg caloriebot.VisionConfig) (*vision.Provider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini vision backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return vision.NewProvider("gemini", NewModel(client.Models, cfg), cfg.RequestTimeout), nil
}

func (m *Model) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if m.temperature > 0 {
		cfg.Temperature = genai.Ptr(m.temperature)
	}
	if m.maxTokens > 0 {
		cfg.MaxOutputTokens = m.maxTokens
	}
	return cfg
}

func (m *Model) GenerateWithImage(ctx context.Context, system, user string, image []byte, mimeType string) (string, error) {
	cfg := m.config()
	cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	cfg.ResponseMIMEType = "application/json"

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(user),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	resp, err := m.gen.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return "", err
	}
	slog.Debug("GEMINI: Image reply received", "model", m.model, "candidates", len(resp.Candidates))
	return resp.Text(), nil
}

func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.gen.GenerateContent(ctx, m.model, genai.Text(prompt), m.config())
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
