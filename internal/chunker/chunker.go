// Package chunker splits segment text into provider-size-compliant
// chunks, breaking at sentence and paragraph boundaries where possible.
package chunker

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidLimit is returned when the character limit is not positive
var ErrInvalidLimit = errors.New("chunker: character limit must be positive")

// Chunk is one provider-compliant slice of a segment's text.
// Concatenating a segment's chunks in Index order reproduces the
// segment content, modulo whitespace at split points.
type Chunk struct {
	Index   int
	Content string
}

// Sentence-ending runes. CJK terminators end a sentence without a
// following space and are handled separately; they are included
// because the Azure backend serves zh-CN voices.
const (
	asciiTerminators = ".!?"
	cjkTerminators   = "…。！？"
)

// Split divides content into ordered chunks of at most limit
// characters each. Whole sentences are accumulated greedily; a
// sentence longer than the limit is hard-split at the nearest
// whitespace boundary, or mid-token only when a single unbroken token
// exceeds the limit. Empty content yields no chunks.
func Split(content string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var chunks []Chunk
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Content: current.String()})
		current.Reset()
		currentLen = 0
	}

	appendSpan := func(span string, spanLen int) {
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(span)
		currentLen += spanLen
	}

	for _, span := range sentences(content) {
		spanLen := utf8.RuneCountInString(span)

		if spanLen > limit {
			flush()
			parts := hardSplit(span, limit)
			for _, part := range parts[:len(parts)-1] {
				chunks = append(chunks, Chunk{Index: len(chunks), Content: part})
			}
			last := parts[len(parts)-1]
			appendSpan(last, utf8.RuneCountInString(last))
			continue
		}

		if currentLen > 0 && currentLen+1+spanLen > limit {
			flush()
		}
		appendSpan(span, spanLen)
	}
	flush()

	return chunks, nil
}

// sentences splits content into sentence-terminated spans. Paragraph
// breaks (newlines) also end a span. Spans are trimmed and empty spans
// dropped.
func sentences(content string) []string {
	var spans []string
	var b strings.Builder

	emit := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			spans = append(spans, s)
		}
		b.Reset()
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			emit()
			continue
		}
		b.WriteRune(r)
		if !strings.ContainsRune(asciiTerminators+cjkTerminators, r) {
			continue
		}
		// Terminator runs ("..", "?!") stay in one span
		if i+1 < len(runes) && strings.ContainsRune(asciiTerminators+cjkTerminators, runes[i+1]) {
			continue
		}
		// CJK sentences end without a following space
		if strings.ContainsRune(cjkTerminators, r) {
			emit()
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			emit()
		}
	}
	emit()

	return spans
}

// hardSplit cuts a span into pieces of at most limit runes, preferring
// the last whitespace boundary before the limit and cutting mid-token
// only when no boundary exists.
func hardSplit(span string, limit int) []string {
	var parts []string
	runes := []rune(span)

	for len(runes) > limit {
		cut := -1
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			// One unbroken token longer than the limit
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
			continue
		}
		parts = append(parts, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut+1:]
	}
	if s := strings.TrimSpace(string(runes)); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		parts = append(parts, "")
	}

	return parts
}
