package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"caloriebot"
	"caloriebot/clarify"
	"caloriebot/cmd/caloriebot/internal/setup"
	"caloriebot/dish"
	"caloriebot/imagesource"
	"caloriebot/messenger"
)

const (
	actionAnalyze = "analyze"
	actionClarify = "clarify"
)

type Params struct {
	Action     string `json:"action"`
	SubjectID  string `json:"subject_id"`
	S3Key      string `json:"s3_key,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

type Results struct {
	Analysis *caloriebot.DishAnalysis `json:"analysis,omitempty"`
	Question *clarify.Question        `json:"question,omitempty"`
	Text     string                   `json:"text,omitempty"`
}

func main() {
	var stateConfig caloriebot.StateConfig
	if err := envdecode.Decode(&stateConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	if err := setup.RequireSharedState(stateConfig); err != nil {
		log.Fatalf("SETUP: %s", err)
	}

	// Opened once per container so warm invocations reuse the connection pool.
	state, err := setup.NewState(context.Background(), stateConfig)
	if err != nil {
		log.Fatalf("SETUP: Failed to open state backend: %s", err)
	}
	defer state.Close()

	fn := func(ctx context.Context, params Params) (Results, error) {
		var visionConfig caloriebot.VisionConfig
		if err := envdecode.Decode(&visionConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}
		var nutritionConfig caloriebot.NutritionConfig
		if err := envdecode.Decode(&nutritionConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}
		var messengerConfig caloriebot.MessengerConfig
		if err := envdecode.Decode(&messengerConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		if params.SubjectID == "" {
			return Results{}, errors.New("missing subject_id")
		}

		_, _, otelShutdown, err := caloriebot.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		provider, err := setup.Vision(ctx, visionConfig)
		if err != nil {
			slog.Error("SETUP: Failed to create vision provider", "error", err)
			return Results{}, err
		}

		opts := []dish.Option{dish.WithHistory(caloriebot.NewStdoutHistory())}
		if messengerConfig.WebhookURL != "" {
			opts = append(opts, dish.WithMessenger(setup.Messenger(messengerConfig, os.Stdout)))
		}
		svc := setup.Dish(provider, setup.Nutrition(nutritionConfig, visionConfig, provider), state, stateConfig, opts...)

		switch params.Action {
		case "", actionAnalyze:
			return analyze(ctx, svc, params)
		case actionClarify:
			updated, err := svc.Answer(ctx, params.SubjectID, params.QuestionID, params.Answer)
			if err != nil {
				slog.Error("RESULT: Error applying answer", "subject", params.SubjectID, "error", err)
				return Results{}, err
			}
			return Results{Analysis: &updated, Text: messenger.FormatAnalysis(updated)}, nil
		default:
			return Results{}, fmt.Errorf("unknown action %q", params.Action)
		}
	}

	lambda.Start(fn)
}

func analyze(ctx context.Context, svc *dish.Service, params Params) (Results, error) {
	bucket := os.Getenv("PHOTOS_S3_BUCKET")
	if bucket == "" || params.S3Key == "" {
		return Results{}, errors.New("missing S3 config: PHOTOS_S3_BUCKET and s3_key must be set")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	img, err := imagesource.NewS3Source(s3.NewFromConfig(awsCfg), bucket).Load(ctx, params.S3Key)
	if err != nil {
		slog.Error("SETUP: Failed to load photo from S3", "key", params.S3Key, "error", err)
		return Results{}, err
	}

	analysis, err := svc.AnalyzeFromImage(ctx, params.SubjectID, img.Data, img.MimeType)
	if err != nil {
		slog.Error("RESULT: Error analyzing photo", "subject", params.SubjectID, "error", err)
		svc.Failure(ctx, params.SubjectID, err)
		return Results{Text: messenger.FailureText(err)}, nil
	}

	q, err := svc.Deliver(ctx, params.SubjectID, analysis)
	if err != nil {
		slog.Error("RESULT: Error delivering analysis", "subject", params.SubjectID, "error", err)
		return Results{}, err
	}
	return Results{Analysis: &analysis, Question: q, Text: messenger.FormatAnalysis(analysis)}, nil
}
