// Package extract converts inbound artifacts (text, TXT, PDF, EPUB,
// image) into ordered text segments for synthesis.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/readaloudhq/docspeech/internal/observability"
)

// Kind identifies the format of an inbound artifact
type Kind string

const (
	KindText  Kind = "text"
	KindTXT   Kind = "txt"
	KindPDF   Kind = "pdf"
	KindEPUB  Kind = "epub"
	KindImage Kind = "image"
)

// Artifact is one inbound payload to be converted to speech.
// It is consumed exactly once by Extract.
type Artifact struct {
	Kind     Kind
	Data     []byte
	Filename string
	MimeType string
}

// Segment is one independently-deliverable unit of text within an
// artifact: a chapter, or the whole document. Ordinals are contiguous
// from 0 and define delivery order.
type Segment struct {
	Ordinal int
	Label   string
	Content string
}

// Extraction error taxonomy
var (
	// ErrUnsupportedFormat indicates an unrecognized artifact kind
	ErrUnsupportedFormat = errors.New("extract: unsupported format")

	// ErrExtraction indicates an unreadable container (corrupt PDF or EPUB)
	ErrExtraction = errors.New("extract: failed to parse artifact")

	// ErrEncoding indicates undecodable text bytes
	ErrEncoding = errors.New("extract: undecodable text encoding")

	// ErrRecognition indicates the image text-recognition call failed
	// or found no text
	ErrRecognition = errors.New("extract: image text recognition failed")
)

// Recognizer is the external vision collaborator used for image
// artifacts.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Extractor converts artifacts into ordered text segments
type Extractor struct {
	recognizer Recognizer
	logger     zerolog.Logger
}

// New creates an Extractor. The recognizer may be nil when image
// artifacts are not expected; extracting an image without one fails
// with ErrRecognition.
func New(recognizer Recognizer, logger zerolog.Logger) *Extractor {
	return &Extractor{recognizer: recognizer, logger: logger}
}

// Extract converts an artifact into its ordered text segments.
// Extraction is deterministic: the same bytes always yield the same
// segment sequence.
func (e *Extractor) Extract(ctx context.Context, a Artifact) (segments []Segment, err error) {
	defer func() {
		observability.RecordExtraction(string(a.Kind), err == nil, len(segments))
	}()

	switch a.Kind {
	case KindText:
		segments = []Segment{{Ordinal: 0, Label: "message", Content: string(a.Data)}}
	case KindTXT:
		segments, err = e.extractTXT(a.Data)
	case KindPDF:
		segments, err = e.extractPDF(a.Data)
	case KindEPUB:
		segments, err = e.extractEPUB(a.Data)
	case KindImage:
		segments, err = e.extractImage(ctx, a)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, a.Kind)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("kind", string(a.Kind)).
		Int("segments", len(segments)).
		Msg("Artifact extracted")
	return segments, nil
}

func (e *Extractor) extractTXT(data []byte) ([]Segment, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", ErrEncoding)
	}
	return []Segment{{Ordinal: 0, Label: "body", Content: string(data)}}, nil
}

func (e *Extractor) extractImage(ctx context.Context, a Artifact) ([]Segment, error) {
	if e.recognizer == nil {
		return nil, fmt.Errorf("%w: no recognizer configured", ErrRecognition)
	}
	text, err := e.recognizer.Recognize(ctx, a.Data, a.MimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no recoverable text in image", ErrRecognition)
	}
	return []Segment{{Ordinal: 0, Label: "image", Content: text}}, nil
}

// DetectKind maps a filename and MIME type to an artifact kind
func DetectKind(filename, mimeType string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt":
		return KindTXT, nil
	case ".epub":
		return KindEPUB, nil
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return KindImage, nil
	}

	switch mimeType {
	case "application/pdf":
		return KindPDF, nil
	case "text/plain":
		return KindTXT, nil
	case "application/epub+zip":
		return KindEPUB, nil
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return KindImage, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filename, mimeType)
}
