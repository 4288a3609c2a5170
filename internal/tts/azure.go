package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readaloudhq/docspeech/internal/config"
)

// AzureClient implements Synthesizer against the Azure Speech REST API
type AzureClient struct {
	subscriptionKey string
	region          string
	endpoint        string // optional custom endpoint, overrides region
	defaultVoice    string
	charLimit       int
	httpClient      *http.Client
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// NewAzureClient creates a new Azure Speech TTS client
func NewAzureClient(cfg *config.Config) *AzureClient {
	return &AzureClient{
		subscriptionKey: cfg.AzureSpeechKey,
		region:          cfg.AzureSpeechRegion,
		endpoint:        strings.TrimRight(cfg.AzureSpeechEndpoint, "/"),
		defaultVoice:    cfg.AzureSpeechVoice,
		charLimit:       cfg.AzureCharLimit,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider identifier
func (c *AzureClient) Name() string {
	return "azure"
}

// CharacterLimit returns the per-request character ceiling
func (c *AzureClient) CharacterLimit() int {
	return c.charLimit
}

func (c *AzureClient) baseURL() (string, error) {
	if c.endpoint != "" {
		return c.endpoint, nil
	}
	if c.region != "" {
		return fmt.Sprintf("https://%s.tts.speech.microsoft.com", c.region), nil
	}
	return "", fmt.Errorf("%w: either an Azure region or a custom endpoint is required", ErrConfiguration)
}

// Synthesize converts text to MP3 audio via the Azure Speech REST API
func (c *AzureClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.subscriptionKey == "" {
		return nil, fmt.Errorf("%w: missing Azure Speech subscription key", ErrConfiguration)
	}
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	if voiceID == "" {
		voiceID = c.defaultVoice
	}

	ssml := buildSSML(text, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/cognitiveservices/v1", strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-16khz-128kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "docspeech")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyAzureError(resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio response: %v", ErrProvider, err)
	}
	return audio, nil
}

// Voices enumerates the neural voices offered in the configured region
func (c *AzureClient) Voices(ctx context.Context) ([]VoiceProfile, error) {
	if c.subscriptionKey == "" {
		return nil, fmt.Errorf("%w: missing Azure Speech subscription key", ErrConfiguration)
	}
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/cognitiveservices/voices/list", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyAzureError(resp.StatusCode, string(body))
	}

	var voices []struct {
		ShortName   string `json:"ShortName"`
		DisplayName string `json:"DisplayName"`
		Locale      string `json:"Locale"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("%w: failed to decode voices response: %v", ErrProvider, err)
	}

	profiles := make([]VoiceProfile, 0, len(voices))
	for _, v := range voices {
		profiles = append(profiles, VoiceProfile{
			Provider:    c.Name(),
			ID:          v.ShortName,
			DisplayName: fmt.Sprintf("%s (%s)", v.DisplayName, v.Locale),
		})
	}
	return profiles, nil
}

// buildSSML wraps text in an SSML document, inferring the document
// language from the voice-name prefix.
func buildSSML(text, voiceName string) string {
	language := "en-US"
	switch {
	case strings.HasPrefix(voiceName, "zh-"):
		language = "zh-CN"
	case strings.HasPrefix(voiceName, "en-GB"):
		language = "en-GB"
	}

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		language, voiceName, ssmlEscaper.Replace(text))
}

func classifyAzureError(status int, body string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: azure returned status %d", ErrAuth, status)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: azure returned status %d", ErrQuotaExceeded, status)
	default:
		return fmt.Errorf("%w: azure returned status %d: %s", ErrProvider, status, body)
	}
}
