// Package extract turns uploaded resumes into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF   = errors.New("not a pdf document")
	ErrTooLarge = errors.New("document too large")
)

// DefaultMaxBytes caps uploads read into memory.
const DefaultMaxBytes = 10 << 20

// PDFText returns the text of every page, in page order.
func PDFText(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	metricPages.Observe(float64(r.NumPage()))
	return strings.TrimSpace(b.String()), nil
}

// ReadPDF reads at most max bytes from src and extracts its text.
func ReadPDF(src io.Reader, max int64) (string, error) {
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(src, max+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > max {
		metricExtractions.WithLabelValues("too_large").Inc()
		return "", ErrTooLarge
	}
	text, err := PDFText(data)
	if err != nil {
		metricExtractions.WithLabelValues("error").Inc()
		return "", err
	}
	metricExtractions.WithLabelValues("ok").Inc()
	return text, nil
}
