// Package synth drives text segments through the TTS provider
// abstraction, with per-chunk fallback and ordered audio assembly.
package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/readaloudhq/docspeech/internal/chunker"
	"github.com/readaloudhq/docspeech/internal/config"
	"github.com/readaloudhq/docspeech/internal/extract"
	"github.com/readaloudhq/docspeech/internal/observability"
	"github.com/readaloudhq/docspeech/internal/resilience"
	"github.com/readaloudhq/docspeech/internal/tts"
)

// Result is the synthesized audio for one text segment
type Result struct {
	SegmentOrdinal int
	Label          string
	Audio          []byte
	Format         string
	SizeBytes      int
}

// Outcome pairs a segment with either its result or its failure.
// Segments fail independently: one failed chapter does not abort the
// rest of the artifact.
type Outcome struct {
	SegmentOrdinal int
	Label          string
	Result         *Result
	Err            error
}

// SynthesisError reports a segment that could not be synthesized. It
// wraps the originating provider error.
type SynthesisError struct {
	SegmentOrdinal int
	Label          string
	ChunkIndex     int
	Err            error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for segment %d (%s) at chunk %d: %v",
		e.SegmentOrdinal, e.Label, e.ChunkIndex, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Orchestrator synthesizes segments through a primary provider with
// optional per-chunk fallback to a secondary provider.
type Orchestrator struct {
	primary  tts.Synthesizer
	fallback tts.Synthesizer // nil disables fallback
	retryCfg *resilience.RetryConfig
	breakers map[string]*resilience.CircuitBreaker
	logger   zerolog.Logger
}

// New creates an Orchestrator. fallback may be nil.
func New(primary, fallback tts.Synthesizer, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	retryCfg := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}

	resetTimeout := time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second
	breakers := map[string]*resilience.CircuitBreaker{
		primary.Name(): resilience.NewCircuitBreaker(primary.Name(), cfg.CircuitBreakerMaxFailures, resetTimeout),
	}
	if fallback != nil {
		breakers[fallback.Name()] = resilience.NewCircuitBreaker(fallback.Name(), cfg.CircuitBreakerMaxFailures, resetTimeout)
	}

	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		retryCfg: retryCfg,
		breakers: breakers,
		logger:   logger,
	}
}

// SynthesizeSegment converts one segment into a single audio stream.
// Chunks are synthesized strictly in order; a chunk that fails on the
// primary and (if configured) the fallback fails the whole segment and
// discards any fragments already produced. An empty segment yields an
// empty result without any provider call.
func (o *Orchestrator) SynthesizeSegment(ctx context.Context, seg extract.Segment, voiceID string) (*Result, error) {
	chunks, err := chunker.Split(seg.Content, o.primary.CharacterLimit())
	if err != nil {
		return nil, fmt.Errorf("chunking segment %d: %w", seg.Ordinal, err)
	}

	result := &Result{
		SegmentOrdinal: seg.Ordinal,
		Label:          seg.Label,
		Format:         tts.AudioFormat,
	}
	if len(chunks) == 0 {
		return result, nil
	}

	var audio bytes.Buffer
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return nil, &SynthesisError{SegmentOrdinal: seg.Ordinal, Label: seg.Label, ChunkIndex: chunk.Index, Err: ctx.Err()}
		}
		data, err := o.synthesizeChunk(ctx, chunk.Content, voiceID)
		if err != nil {
			return nil, &SynthesisError{SegmentOrdinal: seg.Ordinal, Label: seg.Label, ChunkIndex: chunk.Index, Err: err}
		}
		audio.Write(data)
	}

	result.Audio = audio.Bytes()
	result.SizeBytes = audio.Len()
	observability.RecordAudioBytes(result.SizeBytes)

	o.logger.Info().
		Int("segment", seg.Ordinal).
		Str("label", seg.Label).
		Int("chunks", len(chunks)).
		Int("audio_bytes", result.SizeBytes).
		Msg("Segment synthesized")
	return result, nil
}

// SynthesizeAll synthesizes an artifact's segments in parallel and
// returns one outcome per segment, in segment ordinal order.
func (o *Orchestrator) SynthesizeAll(ctx context.Context, segments []extract.Segment, voiceID string) []Outcome {
	outcomes := make([]Outcome, len(segments))
	var wg sync.WaitGroup

	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg extract.Segment) {
			defer wg.Done()
			result, err := o.SynthesizeSegment(ctx, seg, voiceID)
			outcomes[i] = Outcome{SegmentOrdinal: seg.Ordinal, Label: seg.Label, Result: result, Err: err}
		}(i, seg)
	}
	wg.Wait()

	return outcomes
}

// synthesizeChunk tries the primary provider first, then the fallback.
// Fallback does not stick: the next chunk starts at the primary again.
// When the chunk exceeds the fallback's smaller limit it is re-chunked
// before retrying. If both providers fail, the primary's error is the
// one surfaced.
func (o *Orchestrator) synthesizeChunk(ctx context.Context, text, voiceID string) ([]byte, error) {
	audio, primaryErr := o.call(ctx, o.primary, text, voiceID)
	if primaryErr == nil {
		return audio, nil
	}
	if o.fallback == nil {
		return nil, primaryErr
	}

	o.logger.Warn().
		Str("from", o.primary.Name()).
		Str("to", o.fallback.Name()).
		Err(primaryErr).
		Msg("Primary provider failed, retrying chunk on fallback")
	observability.RecordFallback(o.primary.Name(), o.fallback.Name())

	// The selected voice belongs to the primary provider; the fallback
	// synthesizes with its own configured default.
	fbAudio, fbErr := o.fallbackChunk(ctx, text)
	if fbErr != nil {
		o.logger.Error().
			Str("provider", o.fallback.Name()).
			Err(fbErr).
			Msg("Fallback provider also failed")
		return nil, primaryErr
	}
	return fbAudio, nil
}

func (o *Orchestrator) fallbackChunk(ctx context.Context, text string) ([]byte, error) {
	limit := o.fallback.CharacterLimit()
	if utf8.RuneCountInString(text) <= limit {
		return o.call(ctx, o.fallback, text, "")
	}

	subChunks, err := chunker.Split(text, limit)
	if err != nil {
		return nil, err
	}
	var audio bytes.Buffer
	for _, sub := range subChunks {
		data, err := o.call(ctx, o.fallback, sub.Content, "")
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}
	return audio.Bytes(), nil
}

// call invokes one provider behind its circuit breaker, retrying
// transient network failures.
func (o *Orchestrator) call(ctx context.Context, s tts.Synthesizer, text, voiceID string) ([]byte, error) {
	var audio []byte
	breaker := o.breakers[s.Name()]

	err := breaker.Call(func() error {
		return resilience.Retry(ctx, func() error {
			start := time.Now()
			data, err := s.Synthesize(ctx, text, voiceID)
			observability.RecordSynthesis(s.Name(), start, utf8.RuneCountInString(text), err)
			if err != nil {
				return err
			}
			audio = data
			return nil
		}, o.retryCfg, isRetryableProviderError)
	})

	observability.UpdateCircuitBreakerState(s.Name(), int(breaker.GetState()))
	return audio, err
}

// isRetryableProviderError excludes failures that a retry cannot fix:
// bad credentials, exhausted quota, and missing configuration.
func isRetryableProviderError(err error) bool {
	if errors.Is(err, tts.ErrAuth) || errors.Is(err, tts.ErrQuotaExceeded) || errors.Is(err, tts.ErrConfiguration) {
		return false
	}
	return resilience.IsRetryableNetworkError(err)
}
