package verify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ironsheep/photo-verify/internal/imaging"
	"github.com/ironsheep/photo-verify/internal/match"
	"github.com/ironsheep/photo-verify/internal/ocr"
)

// ErrNoImage is returned when Validate is called without image bytes.
var ErrNoImage = errors.New("no image data supplied")

var errNoRecognizer = errors.New("no recognizer configured")

// Option configures a Validator.
type Option func(*Validator)

// WithMessages selects the message catalogue used in reports.
func WithMessages(m Messages) Option {
	return func(v *Validator) { v.messages = m }
}

// WithDebug enables per-call debug logging of recognized text and timings.
func WithDebug(debug bool) Option {
	return func(v *Validator) { v.debug = debug }
}

// Validator runs the size and copyright checks against photos.
// It is safe for concurrent use.
type Validator struct {
	recognizer ocr.Recognizer
	messages   Messages
	debug      bool

	mu       sync.RWMutex
	matchers map[string]*match.Matcher
}

// New creates a Validator that reads captions with rec.
func New(rec ocr.Recognizer, opts ...Option) *Validator {
	v := &Validator{
		recognizer: rec,
		messages:   JapaneseMessages,
		matchers:   make(map[string]*match.Matcher),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Recognizer returns the engine the validator was created with.
func (v *Validator) Recognizer() ocr.Recognizer {
	return v.recognizer
}

// Validate checks data against rules and always returns a report for
// non-empty input. Decode, region and recognition failures are recorded in
// the affected sub-check; only empty input is reported as an error.
func (v *Validator) Validate(ctx context.Context, data []byte, rules Rules) (*Report, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	start := time.Now()

	var (
		wg        sync.WaitGroup
		size      SizeCheckResult
		copyright CopyrightCheckResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		size = v.checkSize(data, rules.Size)
	}()
	go func() {
		defer wg.Done()
		copyright = v.checkCopyright(ctx, data, rules)
	}()
	wg.Wait()

	valid := size.Valid && copyright.Valid
	report := &Report{
		Valid:     valid,
		Size:      size,
		Copyright: copyright,
		Message:   v.messages.verdict(valid),
	}
	if v.debug {
		log.Printf("verify: size=%v copyright=%v valid=%v in %v",
			size.Valid, copyright.Valid, valid, time.Since(start))
	}
	return report, nil
}

func (v *Validator) checkSize(data []byte, c SizeConstraint) SizeCheckResult {
	dims, err := imaging.ProbeDimensions(data)
	if err != nil {
		return SizeCheckResult{Message: fmt.Sprintf(v.messages.SizeError, err)}
	}
	ok := c.Allows(dims.Width, dims.Height)
	return SizeCheckResult{
		Valid:   ok,
		Width:   dims.Width,
		Height:  dims.Height,
		Message: v.messages.size(ok, dims.Width, dims.Height),
		Format:  dims.Format,
	}
}

func (v *Validator) checkCopyright(ctx context.Context, data []byte, rules Rules) (res CopyrightCheckResult) {
	if v.recognizer == nil {
		return v.copyrightFailure("", &ocr.RecognitionError{Engine: "none", Err: errNoRecognizer})
	}
	engine := v.recognizer.Name()

	defer func() {
		if r := recover(); r != nil {
			res = v.copyrightFailure(engine, &ocr.RecognitionError{Engine: engine, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	m, err := v.matcher(rules.Patterns, rules.MaxEdits)
	if err != nil {
		return v.copyrightFailure(engine, err)
	}

	buf, err := imaging.ExtractRegionLimit(data, rules.Region, rules.MaxPixels)
	if err != nil {
		return v.copyrightFailure(engine, err)
	}
	if rules.Preprocess {
		buf = imaging.PrepareForOCR(buf)
	}

	rec := ocr.WithTimeout(v.recognizer, rules.OCRTimeout)
	text, err := rec.Recognize(ctx, buf.Image(), rules.Languages)
	if err != nil {
		return v.copyrightFailure(engine, ocr.Wrap(engine, err))
	}

	detected := strings.TrimSpace(text)
	if v.debug {
		log.Printf("verify: %s recognized %q", engine, detected)
	}

	result := m.Match(detected)
	return CopyrightCheckResult{
		Valid:          result.Matched,
		DetectedText:   detected,
		Message:        v.messages.copyright(result.Matched, detected),
		MatchedPattern: result.Pattern,
		EditDistance:   result.Distance,
		Engine:         engine,
	}
}

func (v *Validator) copyrightFailure(engine string, err error) CopyrightCheckResult {
	log.Printf("verify: copyright check failed: %v", err)
	return CopyrightCheckResult{
		Message: fmt.Sprintf(v.messages.CopyrightError, err),
		Engine:  engine,
	}
}

// matcher returns the compiled matcher for a pattern set, compiling it on
// first use.
func (v *Validator) matcher(patterns []match.Pattern, maxEdits int) (*match.Matcher, error) {
	key := matcherKey(patterns, maxEdits)

	v.mu.RLock()
	m, ok := v.matchers[key]
	v.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := match.Compile(patterns, match.Options{MaxEdits: maxEdits})
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.matchers[key]; ok {
		return existing, nil
	}
	v.matchers[key] = m
	return m, nil
}

func matcherKey(patterns []match.Pattern, maxEdits int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(maxEdits))
	for _, p := range patterns {
		b.WriteByte(0)
		b.WriteString(p.Name)
		b.WriteByte(0)
		b.WriteString(p.Expr)
		b.WriteByte(0)
		b.WriteString(p.Literal)
		b.WriteByte(0)
		b.WriteString(strconv.FormatBool(p.IgnoreCase))
	}
	return b.String()
}
