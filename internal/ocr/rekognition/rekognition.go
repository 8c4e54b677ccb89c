// Package rekognition implements ocr.Recognizer on top of AWS Rekognition DetectText.
//
// Rekognition detects Latin-script text only, so it reads the transliterated
// part of a caption ("gakumasu") but not Japanese. It is useful where native
// Tesseract cannot be installed; language hints are ignored.
package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	rek "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"golang.org/x/text/language"

	"github.com/ironsheep/photo-verify/internal/ocr"
)

// EngineName is reported in validation reports.
const EngineName = "rekognition"

// DefaultMinConfidence drops detections Rekognition is unsure about (0-100).
const DefaultMinConfidence = 50

// DetectTextAPI is the subset of *rek.Client used by the engine.
type DetectTextAPI interface {
	DetectText(ctx context.Context, params *rek.DetectTextInput, optFns ...func(*rek.Options)) (*rek.DetectTextOutput, error)
}

// Engine recognizes text with Rekognition.
type Engine struct {
	client        DetectTextAPI
	minConfidence float32
}

// New creates an engine using client. Detections below minConfidence are
// ignored; zero selects DefaultMinConfidence.
func New(client DetectTextAPI, minConfidence float32) *Engine {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Engine{client: client, minConfidence: minConfidence}
}

// NewFromConfig creates an engine from an AWS SDK configuration.
func NewFromConfig(cfg aws.Config, minConfidence float32) *Engine {
	return New(rek.NewFromConfig(cfg), minConfidence)
}

// Name returns "rekognition".
func (e *Engine) Name() string { return EngineName }

// Recognize sends img as PNG bytes to DetectText and returns the detected
// LINE texts joined by newlines, in the order Rekognition reports them.
func (e *Engine) Recognize(ctx context.Context, img image.Image, _ []language.Tag) (string, error) {
	if e.client == nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("rekognition client is not configured"))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("failed to encode image: %w", err))
	}

	out, err := e.client.DetectText(ctx, &rek.DetectTextInput{
		Image: &types.Image{Bytes: buf.Bytes()},
	})
	if err != nil {
		return "", ocr.Wrap(EngineName, fmt.Errorf("DetectText: %w", err))
	}

	lines := make([]string, 0, len(out.TextDetections))
	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine || d.DetectedText == nil {
			continue
		}
		if d.Confidence != nil && *d.Confidence < e.minConfidence {
			log.Printf("rekognition: dropping %q (confidence %.2f)", *d.DetectedText, *d.Confidence)
			continue
		}
		lines = append(lines, *d.DetectedText)
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
