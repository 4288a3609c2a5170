package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// normalize strips whitespace so reassembled chunks can be compared
// against the original content; splitting only rewrites whitespace at
// chunk boundaries.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func reassemble(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, " ")
}

func TestSplit_SingleShortSentence(t *testing.T) {
	chunks, err := Split("Hello world.", 2500)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "Hello world." {
		t.Errorf("Expected content 'Hello world.', got '%s'", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("Expected index 0, got %d", chunks[0].Index)
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\n\t"} {
		chunks, err := Split(content, 100)
		if err != nil {
			t.Fatalf("Split(%q) failed: %v", content, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Expected no chunks for %q, got %d", content, len(chunks))
		}
	}
}

func TestSplit_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		_, err := Split("text", limit)
		if !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("Expected ErrInvalidLimit for limit %d, got %v", limit, err)
		}
	}
}

func TestSplit_BreaksAtSentenceBoundaries(t *testing.T) {
	content := "First sentence here. Second sentence here. Third sentence here."
	chunks, err := Split(content, 45)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "First sentence here. Second sentence here." {
		t.Errorf("Expected first chunk to end at a sentence boundary, got '%s'", chunks[0].Content)
	}
	if chunks[1].Content != "Third sentence here." {
		t.Errorf("Unexpected second chunk '%s'", chunks[1].Content)
	}
}

func TestSplit_HardSplitAtWhitespace(t *testing.T) {
	// One long sentence with no internal terminators
	content := strings.Repeat("word ", 100) + "end"
	chunks, err := Split(content, 50)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Content) > 50 {
			t.Errorf("Chunk %d exceeds limit: %d runes", c.Index, utf8.RuneCountInString(c.Content))
		}
		if strings.Contains(c.Content, "wor d") || strings.HasSuffix(c.Content, "wor") {
			t.Errorf("Chunk %d split mid-word: '%s'", c.Index, c.Content)
		}
	}
	if normalize(reassemble(chunks)) != normalize(content) {
		t.Error("Reassembled chunks do not match original content")
	}
}

func TestSplit_UnbrokenTokenCutAtLimit(t *testing.T) {
	content := strings.Repeat("x", 120)
	chunks, err := Split(content, 50)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != strings.Repeat("x", 50) {
		t.Errorf("Expected first chunk of 50 x's, got %d runes", utf8.RuneCountInString(chunks[0].Content))
	}
	if chunks[2].Content != strings.Repeat("x", 20) {
		t.Errorf("Expected final chunk of 20 x's, got %d runes", utf8.RuneCountInString(chunks[2].Content))
	}
}

func TestSplit_ReassemblyProperty(t *testing.T) {
	contents := []string{
		"Hello world. How are you today? Fine!",
		"A paragraph.\n\nAnother paragraph with more text in it. And a third sentence.",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40),
		"短句。更长的一个句子，带着标点！好。",
	}

	for _, content := range contents {
		for _, limit := range []int{10, 25, 80, 2500} {
			chunks, err := Split(content, limit)
			if err != nil {
				t.Fatalf("Split(limit=%d) failed: %v", limit, err)
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("Expected contiguous indices, chunk %d has index %d", i, c.Index)
				}
				if utf8.RuneCountInString(c.Content) > limit {
					t.Errorf("Chunk %d exceeds limit %d: %d runes", i, limit, utf8.RuneCountInString(c.Content))
				}
			}
			if normalize(reassemble(chunks)) != normalize(content) {
				t.Errorf("Reassembly mismatch for limit %d:\n got: %s\nwant: %s",
					limit, normalize(reassemble(chunks)), normalize(content))
			}
		}
	}
}

func TestSplit_CJKTerminators(t *testing.T) {
	content := "第一句话。第二句话。"
	chunks, err := Split(content, 6)
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
}
