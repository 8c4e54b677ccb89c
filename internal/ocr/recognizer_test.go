package ocr

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func staticRecognizer(text string, err error) Func {
	return Func{
		EngineName: "static",
		Fn: func(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
			return text, err
		},
	}
}

func TestFunc_Recognize(t *testing.T) {
	rec := staticRecognizer("© 学マス", nil)

	text, err := rec.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)), DefaultLanguages)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "© 学マス" {
		t.Errorf("text: got %q", text)
	}
	if rec.Name() != "static" {
		t.Errorf("Name: got %s, want static", rec.Name())
	}
}

func TestFunc_EmptyTextIsNotAnError(t *testing.T) {
	text, err := staticRecognizer("", nil).Recognize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("empty text should not be an error, got %v", err)
	}
	if text != "" {
		t.Errorf("text: got %q, want empty", text)
	}
}

func TestFunc_WrapsEngineError(t *testing.T) {
	engineErr := errors.New("engine crashed")

	_, err := staticRecognizer("", engineErr).Recognize(context.Background(), nil, nil)

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecognitionError, got %v", err)
	}
	if recErr.Engine != "static" {
		t.Errorf("Engine: got %s, want static", recErr.Engine)
	}
	if !errors.Is(err, engineErr) {
		t.Error("RecognitionError should unwrap to the engine error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("x", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}

	inner := &RecognitionError{Engine: "inner", Err: errors.New("boom")}
	if got := Wrap("outer", inner); got != error(inner) {
		t.Error("Wrap should not double-wrap a RecognitionError")
	}

	err := Wrap("outer", errors.New("boom"))
	if !strings.Contains(err.Error(), "outer recognition failed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWithTimeout_ReturnsResult(t *testing.T) {
	rec := WithTimeout(staticRecognizer("gakumasu", nil), time.Second)

	text, err := rec.Recognize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "gakumasu" {
		t.Errorf("text: got %q", text)
	}
	if rec.Name() != "static" {
		t.Errorf("Name: got %s, want static", rec.Name())
	}
}

func TestWithTimeout_DeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := Func{
		EngineName: "slow",
		Fn: func(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
			// Ignores ctx like a blocking native engine would
			<-release
			return "late", nil
		},
	}
	rec := WithTimeout(slow, 20*time.Millisecond)

	start := time.Now()
	_, err := rec.Recognize(context.Background(), nil, nil)

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecognitionError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestWithTimeout_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := Func{
		EngineName: "blocking",
		Fn: func(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	_, err := WithTimeout(blocking, time.Minute).Recognize(ctx, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithTimeout_NonPositive(t *testing.T) {
	rec := staticRecognizer("x", nil)
	if _, ok := WithTimeout(rec, 0).(Func); !ok {
		t.Error("WithTimeout(0) should return the recognizer unchanged")
	}
}

func TestWithTimeout_EnginePanic(t *testing.T) {
	broken := Func{
		EngineName: "broken",
		Fn: func(ctx context.Context, img image.Image, hints []language.Tag) (string, error) {
			panic("model file truncated")
		},
	}

	_, err := WithTimeout(broken, time.Second).Recognize(context.Background(), nil, nil)

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecognitionError, got %v", err)
	}
	if recErr.Engine != "broken" {
		t.Errorf("Engine: got %s, want broken", recErr.Engine)
	}
}
