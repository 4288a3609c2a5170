// Package server exposes the synthesis pipeline over HTTP. It is the
// in-repo stand-in for the chat transport collaborator: artifacts and
// provider/voice selections come in, delivery units go out.
package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/readaloudhq/docspeech/internal/config"
	"github.com/readaloudhq/docspeech/internal/delivery"
	"github.com/readaloudhq/docspeech/internal/extract"
	"github.com/readaloudhq/docspeech/internal/observability"
	"github.com/readaloudhq/docspeech/internal/synth"
	"github.com/readaloudhq/docspeech/internal/tts"
)

// Extractor converts an artifact into ordered text segments
type Extractor interface {
	Extract(ctx context.Context, a extract.Artifact) ([]extract.Segment, error)
}

// Server wires the extraction, synthesis, and delivery stages behind
// the HTTP API.
type Server struct {
	cfg       *config.Config
	extractor Extractor
	providers map[string]tts.Synthesizer
	// orchestrators are prepared per primary/fallback pair so circuit
	// breaker state survives across requests
	orchestrators map[string]*synth.Orchestrator
	logger        zerolog.Logger
}

// New creates a Server over the given providers
func New(cfg *config.Config, extractor Extractor, providers map[string]tts.Synthesizer, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		extractor:     extractor,
		providers:     providers,
		orchestrators: make(map[string]*synth.Orchestrator),
		logger:        logger,
	}

	for primaryName, primary := range providers {
		s.orchestrators[orchestratorKey(primaryName, "")] = synth.New(primary, nil, cfg, logger)
		for fallbackName, fallback := range providers {
			if fallbackName == primaryName {
				continue
			}
			s.orchestrators[orchestratorKey(primaryName, fallbackName)] = synth.New(primary, fallback, cfg, logger)
		}
	}

	return s
}

func orchestratorKey(primary, fallback string) string {
	return primary + "/" + fallback
}

// Register attaches the API routes to a gin router
func (s *Server) Register(router *gin.Engine) {
	router.POST("/v1/speech", s.handleSpeech)
	router.GET("/v1/voices", s.handleVoices)
}

type segmentStatus struct {
	Ordinal       int    `json:"ordinal"`
	Label         string `json:"label"`
	Status        string `json:"status"`
	TransportPath string `json:"transport_path,omitempty"`
	File          string `json:"file,omitempty"`
	SizeBytes     int    `json:"size_bytes,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *Server) handleSpeech(c *gin.Context) {
	requestID := observability.NewRequestID()
	logger := s.logger.With().Str("request_id", requestID).Logger()
	c.Header("X-Request-ID", requestID)

	artifact, err := s.readArtifact(c)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	providerName := firstNonEmpty(c.Query("provider"), c.PostForm("provider"), s.cfg.DefaultProvider)
	fallbackName := firstNonEmpty(c.Query("fallback"), c.PostForm("fallback"), s.cfg.FallbackProvider)
	voiceID := firstNonEmpty(c.Query("voice"), c.PostForm("voice"))

	if _, ok := s.providers[providerName]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown provider %q", providerName)})
		return
	}
	if fallbackName == providerName {
		fallbackName = ""
	}
	orch, ok := s.orchestrators[orchestratorKey(providerName, fallbackName)]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown fallback provider %q", fallbackName)})
		return
	}

	logger.Info().
		Str("kind", string(artifact.Kind)).
		Str("provider", providerName).
		Str("fallback", fallbackName).
		Int("bytes", len(artifact.Data)).
		Msg("Processing artifact")

	segments, err := s.extractor.Extract(c.Request.Context(), artifact)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction failed")
		c.JSON(extractionStatus(err), gin.H{"error": err.Error()})
		return
	}

	if len(segments) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "artifact contains no text"})
		return
	}

	outcomes := orch.SynthesizeAll(c.Request.Context(), segments, voiceID)

	var results []*synth.Result
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			logger.Error().Err(out.Err).Int("segment", out.SegmentOrdinal).Str("label", out.Label).Msg("Segment synthesis failed")
			continue
		}
		results = append(results, out.Result)
	}
	if failed == len(outcomes) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "synthesis failed for all segments", "detail": outcomes[0].Err.Error()})
		return
	}

	units := delivery.Prepare(results, s.cfg.DeliverySizeThreshold)

	if len(units) == 1 && failed == 0 {
		s.respondSingle(c, units[0])
		return
	}
	s.respondArchive(c, requestID, outcomes, units)
}

// readArtifact accepts either a multipart file upload or a plain text
// payload (form field or JSON body).
func (s *Server) readArtifact(c *gin.Context) (extract.Artifact, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return extract.Artifact{}, fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return extract.Artifact{}, fmt.Errorf("failed to read upload: %w", err)
		}

		mimeType := file.Header.Get("Content-Type")
		kind, err := extract.DetectKind(file.Filename, mimeType)
		if err != nil {
			return extract.Artifact{}, err
		}
		return extract.Artifact{Kind: kind, Data: data, Filename: file.Filename, MimeType: mimeType}, nil
	}

	if text := c.PostForm("text"); text != "" {
		return extract.Artifact{Kind: extract.KindText, Data: []byte(text)}, nil
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err == nil && strings.TrimSpace(body.Text) != "" {
		return extract.Artifact{Kind: extract.KindText, Data: []byte(body.Text)}, nil
	}

	return extract.Artifact{}, errors.New("request must include a file upload or a text payload")
}

func (s *Server) respondSingle(c *gin.Context, unit delivery.Unit) {
	c.Header("X-Delivery-Path", string(unit.Path))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", unitFilename(unit)))
	c.Data(http.StatusOK, "audio/mpeg", unit.Audio)
}

// respondArchive packages multi-segment output (and partial failures)
// as a zip with a manifest describing each segment.
func (s *Server) respondArchive(c *gin.Context, requestID string, outcomes []synth.Outcome, units []delivery.Unit) {
	unitByOrdinal := make(map[int]delivery.Unit, len(units))
	for _, u := range units {
		unitByOrdinal[u.SegmentOrdinal] = u
	}

	statuses := make([]segmentStatus, 0, len(outcomes))
	for _, out := range outcomes {
		st := segmentStatus{Ordinal: out.SegmentOrdinal, Label: out.Label}
		if out.Err != nil {
			st.Status = "failed"
			st.Error = out.Err.Error()
		} else {
			unit := unitByOrdinal[out.SegmentOrdinal]
			st.Status = "ok"
			st.TransportPath = string(unit.Path)
			st.SizeBytes = len(unit.Audio)
			if len(unit.Audio) > 0 {
				st.File = unitFilename(unit)
			}
		}
		statuses = append(statuses, st)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	manifest, _ := json.MarshalIndent(gin.H{"request_id": requestID, "segments": statuses}, "", "  ")
	if w, err := zw.Create("manifest.json"); err == nil {
		w.Write(manifest)
	}

	for _, unit := range units {
		if len(unit.Audio) == 0 {
			continue
		}
		w, err := zw.Create(unitFilename(unit))
		if err != nil {
			continue
		}
		w.Write(unit.Audio)
	}
	if err := zw.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to package results"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="speech.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (s *Server) handleVoices(c *gin.Context) {
	providerName := firstNonEmpty(c.Query("provider"), s.cfg.DefaultProvider)
	provider, ok := s.providers[providerName]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown provider %q", providerName)})
		return
	}

	voices, err := provider.Voices(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Str("provider", providerName).Msg("Voice listing failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": providerName, "voices": voices})
}

func extractionStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrEncoding), errors.Is(err, extract.ErrExtraction), errors.Is(err, extract.ErrRecognition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func unitFilename(unit delivery.Unit) string {
	label := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, unit.Label)
	if label == "" {
		label = "segment"
	}
	return fmt.Sprintf("%03d_%s.%s", unit.SegmentOrdinal, label, unit.Format)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
