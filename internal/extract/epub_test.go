package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type testChapter struct {
	id   string
	body string // raw XHTML body markup
}

// buildEPUB assembles a minimal valid EPUB container in memory
func buildEPUB(t *testing.T, chapters []testChapter) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	writeFile := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s to epub fixture: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	writeFile("mimetype", "application/epub+zip")
	writeFile("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for _, ch := range chapters {
		fmt.Fprintf(&manifest, `<item id=%q href="%s.xhtml" media-type="application/xhtml+xml"/>`, ch.id, ch.id)
		fmt.Fprintf(&spine, `<itemref idref=%q/>`, ch.id)
	}
	writeFile("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:language>en</dc:language>
    <dc:identifier id="bookid">test-book</dc:identifier>
  </metadata>
  <manifest>%s</manifest>
  <spine>%s</spine>
</package>`, manifest.String(), spine.String()))

	for _, ch := range chapters {
		writeFile("OEBPS/"+ch.id+".xhtml", fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">%s</html>`, ch.body))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize epub fixture: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_EPUB_ChapterPerSegment(t *testing.T) {
	data := buildEPUB(t, []testChapter{
		{"ch1", `<head><title>The Beginning</title></head><body><p>First chapter text. More sentences here.</p></body>`},
		{"ch2", `<head><title>The Blank</title></head><body></body>`},
		{"ch3", `<head></head><body><p>Third chapter text.</p></body>`},
	})

	e := newTestExtractor(nil)
	segments, err := e.Extract(context.Background(), Artifact{Kind: KindEPUB, Data: data})
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}

	for i, s := range segments {
		if s.Ordinal != i {
			t.Errorf("Expected ordinal %d, got %d", i, s.Ordinal)
		}
	}

	if segments[0].Label != "The Beginning" {
		t.Errorf("Expected chapter title 'The Beginning', got '%s'", segments[0].Label)
	}
	if !strings.Contains(segments[0].Content, "First chapter text.") {
		t.Errorf("Expected chapter 1 text, got '%s'", segments[0].Content)
	}

	// Empty chapter is still emitted, with empty content
	if segments[1].Label != "The Blank" {
		t.Errorf("Expected chapter title 'The Blank', got '%s'", segments[1].Label)
	}
	if strings.TrimSpace(segments[1].Content) != "" {
		t.Errorf("Expected empty content for blank chapter, got '%s'", segments[1].Content)
	}

	// Untitled chapter falls back to its number
	if segments[2].Label != "Chapter 3" {
		t.Errorf("Expected label 'Chapter 3', got '%s'", segments[2].Label)
	}
}

func TestExtract_EPUB_HeadingAsTitle(t *testing.T) {
	data := buildEPUB(t, []testChapter{
		{"ch1", `<head></head><body><h1>Heading Title</h1><p>Body text.</p></body>`},
	})

	e := newTestExtractor(nil)
	segments, err := e.Extract(context.Background(), Artifact{Kind: KindEPUB, Data: data})
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if segments[0].Label != "Heading Title" {
		t.Errorf("Expected heading used as title, got '%s'", segments[0].Label)
	}
}

func TestExtract_EPUB_Corrupt(t *testing.T) {
	e := newTestExtractor(nil)
	_, err := e.Extract(context.Background(), Artifact{Kind: KindEPUB, Data: []byte("not a zip archive")})
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("Expected ErrExtraction for corrupt EPUB, got %v", err)
	}
}

func TestExtract_EPUB_Idempotent(t *testing.T) {
	data := buildEPUB(t, []testChapter{
		{"ch1", `<head><title>Only</title></head><body><p>Text.</p></body>`},
	})

	e := newTestExtractor(nil)
	first, err := e.Extract(context.Background(), Artifact{Kind: KindEPUB, Data: data})
	if err != nil {
		t.Fatalf("First Extract() failed: %v", err)
	}
	second, err := e.Extract(context.Background(), Artifact{Kind: KindEPUB, Data: data})
	if err != nil {
		t.Fatalf("Second Extract() failed: %v", err)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("EPUB extraction is not idempotent:\n first: %+v\nsecond: %+v", first, second)
	}
}
