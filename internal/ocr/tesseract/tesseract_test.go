package tesseract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"

	"github.com/ironsheep/photo-verify/internal/ocr"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	point := fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  point,
	}
	d.DrawString(text)
}

// createImageWithText renders text black on white and scales it up so
// Tesseract has enough pixels per glyph.
func createImageWithText(text string, scale int) image.Image {
	width := len(text)*7 + 40
	height := 40

	small := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(small, 20, 25, text, color.Black)

	big := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			big.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return big
}

// skipIfUnavailable skips when the native engine or its data files are missing.
func skipIfUnavailable(t *testing.T, err error) {
	t.Helper()
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tesseract") && (strings.Contains(msg, "language") ||
		strings.Contains(msg, "library") || strings.Contains(msg, "tessdata") ||
		strings.Contains(msg, "initialize")) {
		t.Skip("Tesseract not available")
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New()
	if e.Name() != "tesseract" {
		t.Errorf("Name: got %s, want tesseract", e.Name())
	}
	if e.tessdataPrefix != "" {
		t.Errorf("tessdataPrefix: got %q, want empty", e.tessdataPrefix)
	}
}

func TestNew_Options(t *testing.T) {
	e := New(WithTessdataPrefix("/opt/tessdata"), WithPageSegMode(7))
	if e.tessdataPrefix != "/opt/tessdata" {
		t.Errorf("tessdataPrefix: got %q", e.tessdataPrefix)
	}
	if e.pageSegMode != 7 {
		t.Errorf("pageSegMode: got %d, want 7", e.pageSegMode)
	}
}

func TestRecognize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Recognize(ctx, createImageWithText("HELLO", 3), nil)

	var recErr *ocr.RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *ocr.RecognitionError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRecognize_RealText(t *testing.T) {
	img := createImageWithText("GAKUMASU", 4)

	text, err := New().Recognize(context.Background(), img, []language.Tag{language.English})
	if err != nil {
		skipIfUnavailable(t, err)
		t.Fatalf("Recognize failed: %v", err)
	}

	if !strings.Contains(strings.ToUpper(text), "GAKUMASU") {
		t.Logf("recognized %q (OCR accuracy varies between Tesseract versions)", text)
	}
}

func TestRecognize_BlankImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	text, err := New().Recognize(context.Background(), img, []language.Tag{language.English})
	if err != nil {
		skipIfUnavailable(t, err)
		t.Fatalf("Recognize failed: %v", err)
	}
	if strings.TrimSpace(text) != text {
		t.Errorf("text should be trimmed, got %q", text)
	}
}
