// Package extract pulls plain text out of the document formats the ingestion
// pipeline accepts.
package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDF reads all of r and extracts the PDF's plain text. A PDF with no
// extractable text yields an empty string without error.
func PDF(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return string(out), nil
}
