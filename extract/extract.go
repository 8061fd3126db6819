// Package extract pulls plain text out of uploaded document payloads.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFileType is returned for extensions with no extractor.
type ErrUnsupportedFileType struct {
	Extension string
}

func (e *ErrUnsupportedFileType) Error() string {
	return fmt.Sprintf("unsupported file type %q (supported: .txt, .md, .pdf)", e.Extension)
}

// Supported reports whether filename has an extractable extension.
func Supported(filename string) bool {
	switch normalizeExt(filename) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// Text extracts the plain text of a document payload, choosing the
// extractor by filename extension.
func Text(filename string, data []byte) (string, error) {
	switch ext := normalizeExt(filename); ext {
	case ".txt", ".md":
		return string(data), nil
	case ".pdf":
		return pdfText(data)
	default:
		return "", &ErrUnsupportedFileType{Extension: ext}
	}
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sb.String(), nil
}
