package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"caloriebot"
	"caloriebot/cmd/caloriebot/internal/setup"
	"caloriebot/dish"
	"caloriebot/imagesource"
)

type options struct {
	subject    string
	questionID string
	answer     string
	dump       bool
	parallel   int
}

func main() {
	var opts options
	flag.StringVar(&opts.subject, "subject", "cli", "Subject id used for rate limiting and dialogs")
	flag.StringVar(&opts.questionID, "question", "", "Answer a pending question with this id instead of analyzing photos (requires STATE_BACKEND=redis)")
	flag.StringVar(&opts.answer, "answer", "", "Answer to a follow-up question: yes or no")
	flag.BoolVar(&opts.dump, "dump", false, "Dump each analysis to stderr")
	flag.IntVar(&opts.parallel, "parallel", 4, "Photos analyzed at once")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		slog.Warn("SETUP: No .env file loaded", "error", err)
	}

	var visionConfig caloriebot.VisionConfig
	if err := envdecode.Decode(&visionConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	var nutritionConfig caloriebot.NutritionConfig
	if err := envdecode.Decode(&nutritionConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	var stateConfig caloriebot.StateConfig
	if err := envdecode.Decode(&stateConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	var messengerConfig caloriebot.MessengerConfig
	if err := envdecode.Decode(&messengerConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	if opts.questionID != "" {
		if err := setup.RequireSharedState(stateConfig); err != nil {
			log.Fatalf("SETUP: -question answers a dialog from an earlier run: %s", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		_, _, otelShutdown, err := caloriebot.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return
		}
		defer func() {
			if err := otelShutdown(context.Background()); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
	}

	provider, err := setup.Vision(ctx, visionConfig)
	if err != nil {
		slog.Error("SETUP: Failed to create vision provider", "error", err)
		return
	}

	state, err := setup.NewState(ctx, stateConfig)
	if err != nil {
		slog.Error("SETUP: Failed to open state backend", "error", err)
		return
	}
	defer state.Close()

	history := caloriebot.NewMemoryHistory()
	svc := setup.Dish(provider,
		setup.Nutrition(nutritionConfig, visionConfig, provider),
		state, stateConfig,
		dish.WithHistory(history),
		dish.WithMessenger(setup.Messenger(messengerConfig, os.Stdout)),
	)

	if opts.questionID != "" {
		if err := answer(ctx, svc, opts.subject, opts.questionID, opts.answer, opts.dump); err != nil {
			slog.Error("DIALOG: Failed to apply answer", "error", err)
			os.Exit(1)
		}
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: caloriebot [-subject id] [-answer yes|no] photo...")
		fmt.Fprintln(os.Stderr, "       STATE_BACKEND=redis caloriebot -subject id -question qid -answer yes|no")
		os.Exit(2)
	}

	source := imagesource.NewFileSource()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	subjects := make([]string, len(paths))
	for i, path := range paths {
		subject := opts.subject
		if len(paths) > 1 {
			subject = fmt.Sprintf("%s-%d", opts.subject, i+1)
		}
		subjects[i] = subject
		g.Go(func() error {
			analyze(gctx, svc, source, subject, path, opts)
			return nil
		})
	}
	_ = g.Wait()

	recorded := 0
	for _, subject := range subjects {
		recorded += len(history.For(subject))
	}
	slog.Info("RESULT: Done", "photos", len(paths), "analyzed", recorded)
}

func analyze(ctx context.Context, svc *dish.Service, source imagesource.Source, subject, path string, opts options) {
	img, err := source.Load(ctx, path)
	if err != nil {
		slog.Error("SETUP: Failed to load photo", "path", path, "error", err)
		return
	}

	analysis, err := svc.AnalyzeFromImage(ctx, subject, img.Data, img.MimeType)
	if err != nil {
		slog.Error("RESULT: Analysis failed", "path", path, "subject", subject, "error", err)
		svc.Failure(ctx, subject, err)
		return
	}
	if opts.dump {
		caloriebot.Dump(os.Stderr, analysis)
	}

	q, err := svc.Deliver(ctx, subject, analysis)
	if err != nil {
		slog.Error("RESULT: Delivery failed", "path", path, "subject", subject, "error", err)
		return
	}
	if q == nil || opts.answer == "" {
		return
	}
	if err := answer(ctx, svc, subject, q.ID, opts.answer, opts.dump); err != nil {
		slog.Error("DIALOG: Failed to apply answer", "subject", subject, "error", err)
	}
}

func answer(ctx context.Context, svc *dish.Service, subject, questionID, value string, dump bool) error {
	if value == "" {
		return errors.New("-answer is required with -question")
	}
	updated, err := svc.Answer(ctx, subject, questionID, value)
	if err != nil {
		return err
	}
	if dump {
		caloriebot.Dump(os.Stderr, updated)
	}
	return nil
}
