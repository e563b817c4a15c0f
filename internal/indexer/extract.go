// ABOUTME: Text extraction for indexable documents
// ABOUTME: PDFs go through ledongthuc/pdf; plain text and markdown are read as-is
package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported is returned for files the indexer cannot extract text from
var ErrUnsupported = errors.New("unsupported document type")

var supportedExt = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Supported reports whether path has an extension the indexer can read
func Supported(path string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(path))]
}

// ExtractText returns the plain text of the document at path
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupported)
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf %s page %d: %w", path, i, err)
		}
		buf.WriteString(text)
		// Page breaks become paragraph breaks for the chunker.
		buf.WriteString("\n\n")
	}

	if buf.Len() == 0 {
		plain, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("read pdf %s: %w", path, err)
		}
		if _, err := io.Copy(&buf, plain); err != nil {
			return "", fmt.Errorf("read pdf %s: %w", path, err)
		}
	}
	return buf.String(), nil
}
