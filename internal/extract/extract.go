// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// Extractor produces plain text from raw file bytes.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// PDF extracts text from PDF documents.
type PDF struct{}

// NewPDF returns a PDF text extractor.
func NewPDF() *PDF { return &PDF{} }

func (*PDF) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// Plain passes through already-plain text, for .txt uploads and tests.
type Plain struct{}

// NewPlain returns a pass-through extractor.
func NewPlain() *Plain { return &Plain{} }

func (*Plain) Extract(data []byte) (string, error) {
	return string(data), nil
}

var (
	_ Extractor = (*PDF)(nil)
	_ Extractor = (*Plain)(nil)
)
