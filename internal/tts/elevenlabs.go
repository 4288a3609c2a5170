package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readaloudhq/docspeech/internal/config"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsClient implements Synthesizer against the ElevenLabs REST API
type ElevenLabsClient struct {
	apiKey       string
	modelID      string
	defaultVoice string
	charLimit    int
	baseURL      string
	httpClient   *http.Client
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsVoicesResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// NewElevenLabsClient creates a new ElevenLabs TTS client
func NewElevenLabsClient(cfg *config.Config) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:       cfg.ElevenLabsAPIKey,
		modelID:      cfg.ElevenLabsModelID,
		defaultVoice: cfg.ElevenLabsVoiceID,
		charLimit:    cfg.ElevenLabsCharLimit,
		baseURL:      elevenLabsBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider identifier
func (c *ElevenLabsClient) Name() string {
	return "elevenlabs"
}

// CharacterLimit returns the free-tier per-request character ceiling
func (c *ElevenLabsClient) CharacterLimit() int {
	return c.charLimit
}

// Synthesize converts text to MP3 audio via the streaming endpoint
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: missing ElevenLabs API key", ErrConfiguration)
	}
	if voiceID == "" {
		voiceID = c.defaultVoice
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrProvider, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyElevenLabsError(resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio response: %v", ErrProvider, err)
	}
	return audio, nil
}

// Voices enumerates the voices available to the account
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyElevenLabsError(resp.StatusCode, string(body))
	}

	var voices elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("%w: failed to decode voices response: %v", ErrProvider, err)
	}

	profiles := make([]VoiceProfile, 0, len(voices.Voices))
	for _, v := range voices.Voices {
		profiles = append(profiles, VoiceProfile{
			Provider:    c.Name(),
			ID:          v.VoiceID,
			DisplayName: v.Name,
		})
	}
	return profiles, nil
}

func classifyElevenLabsError(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: elevenlabs returned status %d", ErrAuth, status)
	case status == http.StatusTooManyRequests || strings.Contains(body, "quota_exceeded"):
		return fmt.Errorf("%w: elevenlabs returned status %d", ErrQuotaExceeded, status)
	default:
		return fmt.Errorf("%w: elevenlabs returned status %d: %s", ErrProvider, status, body)
	}
}
