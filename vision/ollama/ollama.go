// Package ollama is a vision backend over a local Ollama server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"caloriebot"
	"caloriebot/vision"
)

const defaultModel = "llava"

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type options struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int32   `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// Model implements vision.Model.
type Model struct {
	endpoint   string
	model      string
	httpClient doer
	options    options
}

func NewModel(cfg caloriebot.VisionConfig, httpClient doer) *Model {
	m := &Model{
		endpoint:   strings.TrimRight(cfg.OllamaEndpoint, "/") + "/api/chat",
		model:      cfg.OllamaModel,
		httpClient: httpClient,
		options: options{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
			NumCtx:      8192,
		},
	}
	if m.model == "" {
		m.model = defaultModel
	}
	return m
}

func NewProvider(cfg caloriebot.VisionConfig, httpClient doer) *vision.Provider {
	return vision.NewProvider("ollama", NewModel(cfg, httpClient), cfg.RequestTimeout)
}

type message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  [][]byte `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Format   string    `json:"format,omitempty"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type chatResponse struct {
	Message message `json:"message"`
}

func (m *Model) GenerateWithImage(ctx context.Context, system, user string, image []byte, mimeType string) (string, error) {
	return m.chat(ctx, chatRequest{
		Model: m.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user, Images: [][]byte{image}},
		},
		Format:  "json",
		Options: m.options,
	})
}

func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	return m.chat(ctx, chatRequest{
		Model:    m.model,
		Messages: []message{{Role: "user", Content: prompt}},
		Options:  m.options,
	})
}

func (m *Model) chat(ctx context.Context, body chatRequest) (string, error) {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", caloriebot.NewStatusError("ollama chat", resp.StatusCode, string(data))
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", fmt.Errorf("decode ollama reply: %w", err)
	}
	slog.Debug("OLLAMA: Reply received", "model", m.model, "chars", len(cr.Message.Content))
	return cr.Message.Content, nil
}
