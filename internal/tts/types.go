package tts

import (
	"context"
	"errors"
)

// Provider error taxonomy. Clients wrap these sentinels so callers can
// branch with errors.Is.
var (
	// ErrAuth indicates rejected credentials
	ErrAuth = errors.New("tts: authentication failed")

	// ErrQuotaExceeded indicates the provider reported a character or
	// billing quota breach
	ErrQuotaExceeded = errors.New("tts: quota exceeded")

	// ErrConfiguration indicates required provider credentials or
	// endpoints are missing
	ErrConfiguration = errors.New("tts: provider configuration incomplete")

	// ErrProvider indicates any other synthesis failure
	ErrProvider = errors.New("tts: provider request failed")
)

// VoiceProfile identifies one voice offered by a provider
type VoiceProfile struct {
	Provider    string `json:"provider"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Synthesizer is the capability set every TTS backend implements.
// Any backend with these three operations is substitutable.
type Synthesizer interface {
	// Name returns the provider identifier (e.g. "elevenlabs")
	Name() string

	// CharacterLimit returns the maximum text length, in characters,
	// the provider accepts per synthesis call
	CharacterLimit() int

	// Voices enumerates the voices available from the provider
	Voices(ctx context.Context) ([]VoiceProfile, error)

	// Synthesize converts text to audio using the given voice.
	// An empty voiceID selects the provider's configured default.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// AudioFormat is the codec tag for synthesized audio. Both backends
// are requested as MP3 so fragments concatenate into one stream.
const AudioFormat = "mp3"
