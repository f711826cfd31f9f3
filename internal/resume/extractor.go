// Package resume turns uploaded resume files into plain text.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

// MaxSize is the largest accepted upload.
const MaxSize = 10 << 20

var (
	// ErrUnsupportedFormat is returned for file types that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	ErrTooLarge          = errors.New("resume file too large")
	ErrNoText            = errors.New("no text found in resume")
)

// ExtractError reports a supported file that could not be read.
type ExtractError struct {
	Name string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Name, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",
	".txt":  "text/plain",
	".md":   "text/plain",
}

// Extractor reads resume text with docconv.
type Extractor struct{}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of the file called name.
func (x *Extractor) Extract(name string, r io.Reader) (string, error) {
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", &ExtractError{Name: name, Err: err}
	}
	if len(data) > MaxSize {
		return "", &ExtractError{Name: name, Err: ErrTooLarge}
	}

	var text string
	if mime == "text/plain" {
		if !utf8.Valid(data) {
			return "", &ExtractError{Name: name, Err: errors.New("text is not valid utf-8")}
		}
		text = string(data)
	} else {
		res, err := docconv.Convert(bytes.NewReader(data), mime, false)
		if err != nil {
			return "", &ExtractError{Name: name, Err: err}
		}
		text = res.Body
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ExtractError{Name: name, Err: ErrNoText}
	}
	return text, nil
}
