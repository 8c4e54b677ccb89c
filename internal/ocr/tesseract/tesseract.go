// Package tesseract implements ocr.Recognizer with the Tesseract engine.
//
// This package wraps Tesseract through gosseract/v2 and therefore needs cgo,
// libtesseract and the traineddata files for every language hint used:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn tesseract-ocr-eng
//   - macOS: brew install tesseract tesseract-lang
//
// Set TessdataPrefix when the traineddata files are not in Tesseract's
// default location.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/language"

	"github.com/ironsheep/photo-verify/internal/ocr"
)

// EngineName is reported in validation reports.
const EngineName = "tesseract"

// Engine runs Tesseract on in-memory images.
//
// A new gosseract client is created per call, so an Engine is safe for
// concurrent use.
type Engine struct {
	tessdataPrefix string
	pageSegMode    gosseract.PageSegMode
}

// Option configures an Engine.
type Option func(*Engine)

// WithTessdataPrefix points Tesseract at a directory holding traineddata files.
func WithTessdataPrefix(dir string) Option {
	return func(e *Engine) { e.tessdataPrefix = dir }
}

// WithPageSegMode overrides the page segmentation mode.
func WithPageSegMode(mode gosseract.PageSegMode) Option {
	return func(e *Engine) { e.pageSegMode = mode }
}

// New creates a Tesseract engine. Captions are short blocks of text, so the
// default page segmentation mode is PSM_SINGLE_BLOCK.
func New(opts ...Option) *Engine {
	e := &Engine{pageSegMode: gosseract.PSM_SINGLE_BLOCK}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns "tesseract".
func (e *Engine) Name() string { return EngineName }

// Recognize performs OCR on img and returns the recognized text with
// surrounding whitespace trimmed.
//
// The image is encoded to PNG in memory and handed to Tesseract; no temporary
// files are written. Every failure is returned as *ocr.RecognitionError.
func (e *Engine) Recognize(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ocr.Wrap(EngineName, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("failed to encode image: %w", err))
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", ocr.Wrap(EngineName, fmt.Errorf("failed to set tessdata path: %w", err))
		}
	}

	if err := client.SetLanguage(ocr.TesseractLanguages(hints)...); err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("failed to set language: %w", err))
	}

	if err := client.SetPageSegMode(e.pageSegMode); err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("failed to set page segmentation mode: %w", err))
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("failed to set image: %w", err))
	}

	text, err := client.Text()
	if err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("OCR failed: %w", err))
	}

	return strings.TrimSpace(text), nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
