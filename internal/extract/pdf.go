package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates page text in page order into a single
// segment. Pages that yield no text, or whose content streams fail to
// parse, contribute an empty string; only an unreadable container is
// fatal.
func (e *Extractor) extractPDF(data []byte) ([]Segment, error) {
	reader, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var text strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		pageText := e.pdfPageText(reader, i)
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	return []Segment{{Ordinal: 0, Label: "body", Content: text.String()}}, nil
}

// openPDF guards pdf.NewReader, which panics on some malformed inputs
func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable pdf container: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pdfPageText extracts one page's text, best-effort. Parse errors and
// panics from malformed content streams yield an empty page.
func (e *Extractor) pdfPageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Int("page", pageNum).Interface("panic", r).Msg("PDF page extraction panicked, skipping page")
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.Warn().Int("page", pageNum).Err(err).Msg("PDF page extraction failed, skipping page")
		return ""
	}
	return content
}
