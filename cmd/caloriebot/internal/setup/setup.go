// Package setup builds the collaborators shared by the caloriebot entrypoints.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"caloriebot"
	"caloriebot/clarify"
	"caloriebot/dish"
	"caloriebot/messenger"
	"caloriebot/nutrition"
	"caloriebot/nutrition/usda"
	"caloriebot/ratelimit"
	"caloriebot/retry"
	"caloriebot/vision"
	"caloriebot/vision/bedrock"
	"caloriebot/vision/gemini"
	"caloriebot/vision/ollama"

	"github.com/redis/go-redis/v9"
)

// Vision returns the provider selected by cfg.Backend.
func Vision(ctx context.Context, cfg caloriebot.VisionConfig) (*vision.Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "gemini":
		return gemini.NewProvider(ctx, cfg)
	case "bedrock":
		return bedrock.NewProvider(ctx, cfg)
	case "ollama":
		return ollama.NewProvider(cfg, &http.Client{}), nil
	default:
		return nil, fmt.Errorf("unknown vision backend %q", cfg.Backend)
	}
}

// Nutrition wires the USDA client and the provider's optional capabilities.
func Nutrition(cfg caloriebot.NutritionConfig, vcfg caloriebot.VisionConfig, provider *vision.Provider) *nutrition.Service {
	db := usda.NewClient(cfg, &http.Client{}, usda.WithRetry(retry.New("usda")))
	return nutrition.NewService(db,
		nutrition.WithEstimator(provider),
		nutrition.WithTranslator(provider),
		nutrition.WithFallback(vcfg.EnableFallback),
	)
}

// Messenger posts to the webhook when one is configured and prints to w otherwise.
func Messenger(cfg caloriebot.MessengerConfig, w io.Writer) caloriebot.Messenger {
	if cfg.WebhookURL == "" {
		return messenger.NewWriterMessenger(w)
	}
	return messenger.NewWebhookClient(cfg.WebhookURL, &http.Client{}, messenger.WithRetry(retry.New("messenger")))
}

// State holds the per-subject stores.
type State struct {
	RateLimit ratelimit.Store
	Dialogs   clarify.Store
	close     func() error
}

func (s *State) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// ErrProcessLocalState means a memory state backend was configured for an
// entrypoint whose calls do not share one process.
var ErrProcessLocalState = errors.New("state backend must be redis: memory state is not shared between invocations")

// RequireSharedState rejects state backends that live and die with one process.
func RequireSharedState(cfg caloriebot.StateConfig) error {
	if strings.ToLower(cfg.Backend) != "redis" {
		return fmt.Errorf("%w (STATE_BACKEND=%q)", ErrProcessLocalState, cfg.Backend)
	}
	return nil
}

// NewState opens Redis for STATE_BACKEND=redis. The memory backend starts a
// janitor that stops with ctx.
func NewState(ctx context.Context, cfg caloriebot.StateConfig) (*State, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		rl := ratelimit.NewMemoryStore()
		rl.StartJanitor(ctx, time.Minute, cfg.RateLimitInterval)
		return &State{
			RateLimit: rl,
			Dialogs:   clarify.NewMemoryStore(cfg.DialogTTL),
		}, nil
	case "redis":
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("SETUP: Redis state backend ready")
		return &State{
			RateLimit: ratelimit.NewRedisStore(rdb),
			Dialogs:   clarify.NewRedisStore(rdb, cfg.DialogTTL),
			close:     rdb.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

// Dish assembles the dish service from the configured parts.
func Dish(provider *vision.Provider, nut *nutrition.Service, state *State, scfg caloriebot.StateConfig, opts ...dish.Option) *dish.Service {
	limiter := ratelimit.New(state.RateLimit)
	dialogs := clarify.NewMachine(state.Dialogs)
	opts = append([]dish.Option{dish.WithInterval(scfg.RateLimitInterval)}, opts...)
	return dish.NewService(provider, nut, limiter, dialogs, opts...)
}
