package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/surrogates/internal/domain"
)

// writePDF writes a minimal single-font PDF. An empty page text produces a
// page without a content stream.
func writePDF(t *testing.T, pages ...string) string {
	t.Helper()

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, "") // pages tree, filled below
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, text := range pages {
		pageNum := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		if text == "" {
			objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> >>")
			continue
		}
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageNum+1))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n", len(objects)+1, xref)
	buf.WriteString("%%EOF\n")

	path := filepath.Join(t.TempDir(), "guidelines.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestPDFGuidelineReader(t *testing.T) {
	path := writePDF(t, "Use warm colors", "", "Avoid clutter")

	text, err := NewPDFGuidelineReader().ReadText(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"=== PAGE 1 ===", "Use warm colors", "=== PAGE 3 ===", "Avoid clutter"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
	if strings.Contains(text, "=== PAGE 2 ===") {
		t.Errorf("expected empty page to be skipped, got %q", text)
	}
}

func TestPDFGuidelineReaderUnreadable(t *testing.T) {
	notPDF := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(notPDF, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"no text pages", writePDF(t, "", "")},
		{"not a pdf", notPDF},
		{"missing file", filepath.Join(t.TempDir(), "missing.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPDFGuidelineReader().ReadText(context.Background(), tt.path)
			if !errors.Is(err, domain.ErrUnreadableGuideline) {
				t.Errorf("expected ErrUnreadableGuideline, got %v", err)
			}
		})
	}
}
