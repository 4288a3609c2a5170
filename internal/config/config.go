package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the document-to-speech gateway
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// ElevenLabs TTS configuration
	ElevenLabsAPIKey    string `envconfig:"ELEVENLABS_API_KEY" required:"true"`
	ElevenLabsModelID   string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_monolingual_v1"`
	ElevenLabsVoiceID   string `envconfig:"ELEVENLABS_VOICE_ID" default:"EXAVITQu4vr4xnSDxMaL"` // Rachel
	ElevenLabsCharLimit int    `envconfig:"ELEVENLABS_CHAR_LIMIT" default:"2500"`               // free-tier ceiling enforced by the API

	// Azure Speech configuration. Either a region or a custom endpoint
	// must be set for the Azure backend to be usable.
	AzureSpeechKey      string `envconfig:"AZURE_SPEECH_KEY" default:""`
	AzureSpeechRegion   string `envconfig:"AZURE_SPEECH_REGION" default:""`
	AzureSpeechEndpoint string `envconfig:"AZURE_SPEECH_ENDPOINT" default:""`
	AzureSpeechVoice    string `envconfig:"AZURE_SPEECH_VOICE" default:"en-US-JennyNeural"`
	AzureCharLimit      int    `envconfig:"AZURE_CHAR_LIMIT" default:"9000"`

	// Vision text-recognition configuration (image artifacts)
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`
	VisionModel  string `envconfig:"VISION_MODEL" default:"gpt-4o-mini"`

	// Provider routing
	DefaultProvider  string `envconfig:"DEFAULT_PROVIDER" default:"elevenlabs"` // elevenlabs or azure
	FallbackProvider string `envconfig:"FALLBACK_PROVIDER" default:""`          // empty disables fallback

	// Results larger than the threshold are routed to the
	// large-file transport path.
	DeliverySizeThreshold int64 `envconfig:"DELIVERY_SIZE_THRESHOLD" default:"52428800"` // 50 MiB

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"` // debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without touching .env (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	switch c.DefaultProvider {
	case "elevenlabs", "azure":
	default:
		return fmt.Errorf("DEFAULT_PROVIDER must be elevenlabs or azure, got %q", c.DefaultProvider)
	}
	switch c.FallbackProvider {
	case "", "elevenlabs", "azure":
	default:
		return fmt.Errorf("FALLBACK_PROVIDER must be elevenlabs, azure or empty, got %q", c.FallbackProvider)
	}
	if c.FallbackProvider != "" && c.FallbackProvider == c.DefaultProvider {
		return fmt.Errorf("FALLBACK_PROVIDER must differ from DEFAULT_PROVIDER")
	}
	if c.DefaultProvider == "azure" || c.FallbackProvider == "azure" {
		if c.AzureSpeechKey == "" {
			return fmt.Errorf("AZURE_SPEECH_KEY is required when the azure provider is enabled")
		}
		if c.AzureSpeechRegion == "" && c.AzureSpeechEndpoint == "" {
			return fmt.Errorf("either AZURE_SPEECH_REGION or AZURE_SPEECH_ENDPOINT is required when the azure provider is enabled")
		}
	}
	return nil
}
