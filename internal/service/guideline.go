package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

// GuidelineReader extracts the text of a guideline document.
type GuidelineReader interface {
	// ReadText returns the document text. Returns domain.ErrUnreadableGuideline
	// when nothing could be extracted.
	ReadText(ctx context.Context, path string) (string, error)
}

// PDFGuidelineReader reads guideline PDFs page by page.
type PDFGuidelineReader struct{}

// NewPDFGuidelineReader creates a new PDFGuidelineReader.
func NewPDFGuidelineReader() *PDFGuidelineReader {
	return &PDFGuidelineReader{}
}

// ReadText extracts every readable page, each prefixed with "=== PAGE n ===".
// Pages that fail to decode are skipped.
func (r *PDFGuidelineReader) ReadText(ctx context.Context, path string) (string, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", domain.ErrUnreadableGuideline, path, err)
	}
	defer f.Close()

	total := doc.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(doc, i)
		if err != nil {
			logger.CtxWarn(ctx, "Skipping guideline page %d: %v", i, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("=== PAGE %d ===\n%s", i, text))
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrUnreadableGuideline, path)
	}
	logger.With(logger.Fields{"pages": total}).WithCount(len(pages)).
		Debug(ctx, "Extracted guideline text")
	return strings.Join(pages, "\n\n"), nil
}

// pageText converts a panic of the PDF decoder into an error.
func pageText(doc *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page: %v", r)
		}
	}()
	page := doc.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
