// Package vision turns dish photos into structured guesses using a generative
// model backend. Backends live in subpackages and only move text and images.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caloriebot"
)

// ErrEmptyReply is returned by a backend that produced no text.
var ErrEmptyReply = errors.New("empty model reply")

// Model is a generative backend.
type Model interface {
	// GenerateWithImage sends system instructions, a user turn and one image.
	GenerateWithImage(ctx context.Context, system, user string, image []byte, mimeType string) (string, error)
	// Generate sends a single text prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider implements caloriebot.VisionProvider, caloriebot.NutritionEstimator
// and caloriebot.Translator over a Model.
type Provider struct {
	name    string
	model   Model
	timeout time.Duration
}

func NewProvider(name string, model Model, timeout time.Duration) *Provider {
	return &Provider{name: name, model: model, timeout: timeout}
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) callImage(ctx context.Context, user string, image []byte, mimeType string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, err := p.model.GenerateWithImage(ctx, SystemPrompt(), user, image, mimeType)
	if err != nil {
		slog.Error("VISION: Image request failed", "backend", p.name, "error", err)
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(text), nil
}

func (p *Provider) callText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, err := p.model.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(text), nil
}

// AnalyzeDishFromImage asks the model about the photo. An unparsable reply is
// retried once with a stricter prompt before failing with
// caloriebot.ErrVisionInvalid.
func (p *Provider) AnalyzeDishFromImage(ctx context.Context, image []byte, mimeType string) (caloriebot.VisionGuess, error) {
	if mimeType == "" {
		mimeType = caloriebot.MimeJPEG
	}

	text, err := p.callImage(ctx, UserPrompt, image, mimeType)
	if err != nil {
		return caloriebot.VisionGuess{}, fmt.Errorf("%s vision: %w", p.name, err)
	}
	guess, perr := ParseGuess(text)
	if perr == nil {
		return guess, nil
	}

	slog.Warn("VISION: Unparsable reply, retrying with strict prompt", "backend", p.name, "error", perr, "reply_len", len(text))
	text, err = p.callImage(ctx, RetryPrompt, image, mimeType)
	if err != nil {
		return caloriebot.VisionGuess{}, fmt.Errorf("%s vision: %w", p.name, err)
	}
	guess, perr = ParseGuess(text)
	if perr != nil {
		return caloriebot.VisionGuess{}, fmt.Errorf("%w: %w", caloriebot.ErrVisionInvalid, perr)
	}
	return guess, nil
}

// EstimateNutrition asks the model for whole-portion macros.
func (p *Provider) EstimateNutrition(ctx context.Context, dish string, portionGrams int) (caloriebot.Macros, error) {
	text, err := p.callText(ctx, EstimatePrompt(dish, portionGrams))
	if err != nil {
		return caloriebot.Macros{}, fmt.Errorf("%s estimate: %w", p.name, err)
	}
	return ParseMacros(text)
}

// TranslateToRussian returns a short Russian rendering of text, or text itself
// when the model fails.
func (p *Provider) TranslateToRussian(ctx context.Context, text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	reply, err := p.callText(ctx, TranslatePrompt(t))
	if err != nil {
		slog.Warn("VISION: Translation failed, keeping original", "backend", p.name, "error", err)
		return t
	}
	return CleanTranslation(reply, t)
}
