package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/text/language"
)

// Recognizer extracts raw text from a raster image.
type Recognizer interface {
	// Name identifies the engine in reports and logs.
	Name() string

	// Recognize returns the text found in img. hints lists the languages the
	// text is expected to be written in.
	Recognize(ctx context.Context, img image.Image, hints []language.Tag) (string, error)
}

// RecognitionError reports that a recognition engine failed or timed out.
type RecognitionError struct {
	Engine string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s recognition failed: %v", e.Engine, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Wrap converts err into a *RecognitionError attributed to engine.
// A nil err stays nil and an existing *RecognitionError is returned unchanged.
func Wrap(engine string, err error) error {
	if err == nil {
		return nil
	}
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return err
	}
	return &RecognitionError{Engine: engine, Err: err}
}

// Func adapts a plain function to the Recognizer interface.
type Func struct {
	EngineName string
	Fn         func(ctx context.Context, img image.Image, hints []language.Tag) (string, error)
}

// Name returns EngineName.
func (f Func) Name() string { return f.EngineName }

// Recognize calls Fn and normalises its error.
func (f Func) Recognize(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
	text, err := f.Fn(ctx, img, hints)
	if err != nil {
		return "", Wrap(f.EngineName, err)
	}
	return text, nil
}

type timeoutRecognizer struct {
	next    Recognizer
	timeout time.Duration
}

// WithTimeout bounds every Recognize call on rec to d.
//
// The wrapped engine runs on its own goroutine; when the deadline passes first
// the call returns immediately and the engine's eventual result is discarded.
// A non-positive d returns rec unchanged.
func WithTimeout(rec Recognizer, d time.Duration) Recognizer {
	if d <= 0 {
		return rec
	}
	return &timeoutRecognizer{next: rec, timeout: d}
}

func (t *timeoutRecognizer) Name() string { return t.next.Name() }

func (t *timeoutRecognizer) Recognize(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("engine panicked: %v", r)}
			}
		}()
		text, err := t.next.Recognize(ctx, img, hints)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", Wrap(t.next.Name(), r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", &RecognitionError{Engine: t.next.Name(), Err: ctx.Err()}
	}
}
