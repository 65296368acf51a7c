package caloriebot

import "time"

type VisionConfig struct {
	Backend        string        `env:"VISION_BACKEND,default=gemini"`
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	GeminiModel    string        `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	BedrockModelID string        `env:"BEDROCK_MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	OllamaEndpoint string        `env:"OLLAMA_ENDPOINT,default=http://localhost:11434"`
	OllamaModel    string        `env:"OLLAMA_MODEL,default=llava"`
	MaxTokens      int32         `env:"MAX_TOKENS,default=1024"`
	Temperature    float32       `env:"TEMPERATURE,default=0.2"`
	EnableFallback bool          `env:"ENABLE_FALLBACK,default=false"`
	RequestTimeout time.Duration `env:"HTTP_TIMEOUT,default=30s"`
}

type NutritionConfig struct {
	USDAAPIKey     string        `env:"USDA_API_KEY,required"`
	USDABaseURL    string        `env:"USDA_BASE_URL,default=https://api.nal.usda.gov/fdc/v1"`
	PageSize       int           `env:"USDA_PAGE_SIZE,default=10"`
	RequestTimeout time.Duration `env:"HTTP_TIMEOUT,default=30s"`
}

type StateConfig struct {
	Backend           string        `env:"STATE_BACKEND,default=memory"`
	RedisURL          string        `env:"REDIS_URL,default=redis://localhost:6379/0"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL,default=10s"`
	DialogTTL         time.Duration `env:"DIALOG_TTL,default=30m"`
}

type MessengerConfig struct {
	WebhookURL string `env:"MESSENGER_WEBHOOK_URL"`
}
