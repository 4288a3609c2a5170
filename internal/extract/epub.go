package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// extractEPUB emits one segment per spine entry in table-of-contents
// order. Untitled chapters are labeled "Chapter N"; chapters with no
// textual content are still emitted with empty content so chapter
// numbering is preserved for delivery.
func (e *Extractor) extractEPUB(data []byte) ([]Segment, error) {
	reader, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if len(reader.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: epub container has no rootfile", ErrExtraction)
	}
	book := reader.Rootfiles[0]
	if len(book.Spine.Itemrefs) == 0 {
		return nil, fmt.Errorf("%w: epub spine is empty", ErrExtraction)
	}

	segments := make([]Segment, 0, len(book.Spine.Itemrefs))
	for i, itemref := range book.Spine.Itemrefs {
		var title, content string
		if itemref.Item != nil {
			rc, err := itemref.Open()
			if err != nil {
				e.logger.Warn().Int("chapter", i+1).Err(err).Msg("EPUB chapter unreadable, emitting empty segment")
			} else {
				title, content = parseChapterXHTML(rc)
				rc.Close()
			}
		}
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		segments = append(segments, Segment{Ordinal: i, Label: title, Content: content})
	}

	return segments, nil
}

// parseChapterXHTML pulls a chapter title and its readable text out of
// chapter markup. The title comes from <title> or the first heading.
func parseChapterXHTML(r io.Reader) (title, text string) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", ""
	}

	var heading string
	var body strings.Builder

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
				return
			case "h1", "h2", "h3", "h4":
				if heading == "" {
					heading = strings.TrimSpace(nodeText(n))
				}
			case "body":
				inBody = true
			}
		}
		if n.Type == html.TextNode && inBody {
			body.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
		if n.Type == html.ElementNode && inBody && isBlockElement(n.Data) {
			body.WriteString("\n")
		}
	}
	walk(doc, false)

	if title == "" {
		title = heading
	}
	return title, collapseBlankLines(body.String())
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "tr":
		return true
	}
	return false
}

// collapseBlankLines trims each line and drops runs of empty lines so
// chapter text reads as clean paragraphs.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
