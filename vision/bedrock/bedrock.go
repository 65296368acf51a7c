// Package bedrock is a vision backend over the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"caloriebot"
	"caloriebot/vision"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	defaultMaxTokens = 1024

	// Low temperature keeps JSON replies consistent.
	defaultTemperature = 0.2
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
}

// Model implements vision.Model.
type Model struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewModel(brc bedrockRuntimeClient, opts Options) *Model {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	return &Model{brc: brc, opts: opts}
}

// NewProvider builds a provider from the default AWS credential chain.
func NewProvider(ctx context.Context, cfg caloriebot.VisionConfig) (*vision.Provider, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	m := NewModel(bedrockruntime.NewFromConfig(awsCfg), Options{
		ModelID:     cfg.BedrockModelID,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	return vision.NewProvider("bedrock", m, cfg.RequestTimeout), nil
}

func imageFormat(mimeType string) (types.ImageFormat, error) {
	switch strings.ToLower(mimeType) {
	case caloriebot.MimeJPEG, "image/jpg":
		return types.ImageFormatJpeg, nil
	case caloriebot.MimePNG:
		return types.ImageFormatPng, nil
	case caloriebot.MimeWebP:
		return types.ImageFormatWebp, nil
	case "image/gif":
		return types.ImageFormatGif, nil
	default:
		return "", fmt.Errorf("unsupported image type %q", mimeType)
	}
}

func (m *Model) GenerateWithImage(ctx context.Context, system, user string, image []byte, mimeType string) (string, error) {
	format, err := imageFormat(mimeType)
	if err != nil {
		return "", err
	}

	return m.converse(ctx, []types.SystemContentBlock{
		&types.SystemContentBlockMemberText{Value: system},
	}, []types.ContentBlock{
		&types.ContentBlockMemberImage{Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: image},
		}},
		&types.ContentBlockMemberText{Value: user},
	})
}

func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	return m.converse(ctx, nil, []types.ContentBlock{
		&types.ContentBlockMemberText{Value: prompt},
	})
}

func (m *Model) converse(ctx context.Context, sys []types.SystemContentBlock, content []types.ContentBlock) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.opts.ModelID),
		System:  sys,
		Messages: []types.Message{
			{Role: types.ConversationRoleUser, Content: content},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(m.opts.MaxTokens),
			Temperature: aws.Float32(m.opts.Temperature),
		},
	}

	out, err := m.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("BEDROCK: Converse failed", "model_id", m.opts.ModelID, "error", err)
		return "", err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("BEDROCK: Converse succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		return "", errors.New("model hit MaxTokens limit")
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return "", errors.New("model response blocked by Bedrock safety filters")
	}

	return textFromOutput(out), nil
}

// textFromOutput prefers the last text block that looks like a single JSON
// object and otherwise joins all text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s
		}
	}
	return strings.Join(texts, "\n")
}
