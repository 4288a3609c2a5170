package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/readaloudhq/docspeech/internal/config"
	"github.com/readaloudhq/docspeech/internal/extract"
	"github.com/readaloudhq/docspeech/internal/observability"
	"github.com/readaloudhq/docspeech/internal/recognize"
	"github.com/readaloudhq/docspeech/internal/server"
	"github.com/readaloudhq/docspeech/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("default_provider", cfg.DefaultProvider).
		Str("fallback_provider", cfg.FallbackProvider).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Document-to-speech gateway starting")

	// Build TTS providers. ElevenLabs is always configured; Azure only
	// when its credentials are present.
	providers := map[string]tts.Synthesizer{
		"elevenlabs": tts.NewElevenLabsClient(cfg),
	}
	if cfg.AzureSpeechKey != "" && (cfg.AzureSpeechRegion != "" || cfg.AzureSpeechEndpoint != "") {
		providers["azure"] = tts.NewAzureClient(cfg)
		logger.Info().Msg("Azure Speech provider enabled")
	}

	// Image recognition is optional; without it, image artifacts are
	// rejected at extraction.
	var recognizer extract.Recognizer
	if cfg.OpenAIAPIKey != "" {
		recognizer = recognize.NewOpenAI(cfg, logger)
		logger.Info().Str("model", cfg.VisionModel).Msg("Image text recognition enabled")
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, image artifacts will be rejected")
	}

	extractor := extract.New(recognizer, logger)

	if !cfg.LogPretty {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	srv := server.New(cfg, extractor, providers, logger)
	srv.Register(router)

	// Health and readiness endpoints
	router.GET("/healthz", gin.WrapF(observability.HealthCheckHandler()))

	checks := map[string]observability.HealthCheckFunc{}
	for name, provider := range providers {
		provider := provider
		checks[name] = func(ctx context.Context) (bool, error) {
			// Validates configuration without spending synthesis quota
			if provider.CharacterLimit() <= 0 {
				return false, fmt.Errorf("%s has no usable character limit", provider.Name())
			}
			return true, nil
		}
	}
	router.GET("/readyz", gin.WrapF(observability.ReadinessHandler(checks)))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // large documents synthesize slowly
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
