// Package config loads service settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ironsheep/photo-verify/internal/imaging"
	"github.com/ironsheep/photo-verify/internal/ocr"
	"github.com/ironsheep/photo-verify/internal/verify"
)

// Recognition engines selectable with OCR_ENGINE.
const (
	EngineTesseract   = "tesseract"
	EngineRekognition = "rekognition"
)

// Config holds every setting of the service.
type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string

	// Bucket is the upload bucket; empty disables signed upload URLs.
	Bucket       string
	AWSRegion    string
	UploadURLTTL time.Duration `validate:"gt=0"`
	UploadPrefix string

	OCREngine      string `validate:"oneof=tesseract rekognition"`
	TessdataPrefix string
	MinConfidence  float64 `validate:"gte=0,lte=100"`

	MaxUploadBytes int64  `validate:"gt=0"`
	MessagesLang   string `validate:"oneof=ja en"`

	Rules verify.Rules `validate:"-"`
}

// Debug reports whether verbose logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// Messages returns the report message catalogue selected by MESSAGES_LANG.
func (c *Config) Messages() verify.Messages {
	return verify.MessagesFor(c.MessagesLang)
}

// Validate checks the settings and the validation rules they describe.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Rules.Validate()
}

// Load reads .env (when present) and the environment. Values that fail to
// parse or validate are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	p := &parser{}
	rules := verify.DefaultRules()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("PHOTO_VERIFY_LOG_LEVEL", ""),

		Bucket:       getEnv("BUCKET", ""),
		AWSRegion:    getEnv("AWS_REGION", "ap-northeast-1"),
		UploadURLTTL: p.duration("UPLOAD_URL_TTL", 10*time.Minute),
		UploadPrefix: getEnv("UPLOAD_PREFIX", "original/"),

		OCREngine:      getEnv("OCR_ENGINE", EngineTesseract),
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		MinConfidence:  p.float("OCR_MIN_CONFIDENCE", 50),

		MaxUploadBytes: int64(p.integer("MAX_UPLOAD_BYTES", 20<<20)),
		MessagesLang:   getEnv("MESSAGES_LANG", "ja"),
	}

	rules.Size = verify.SizeConstraint{
		MinWidth:  p.integer("MIN_WIDTH", verify.DefaultMinWidth),
		MinHeight: p.integer("MIN_HEIGHT", verify.DefaultMinHeight),
		MaxWidth:  p.integer("MAX_WIDTH", verify.DefaultMaxWidth),
		MaxHeight: p.integer("MAX_HEIGHT", verify.DefaultMaxHeight),
	}
	rules.Region = imaging.Region{
		X:      p.float("REGION_X", imaging.BottomLeftBand.X),
		Y:      p.float("REGION_Y", imaging.BottomLeftBand.Y),
		Width:  p.float("REGION_WIDTH", imaging.BottomLeftBand.Width),
		Height: p.float("REGION_HEIGHT", imaging.BottomLeftBand.Height),
	}
	if list, ok := os.LookupEnv("OCR_LANGUAGES"); ok {
		langs, err := ocr.ParseLanguages(list)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("OCR_LANGUAGES: %w", err))
		}
		rules.Languages = langs
	}
	rules.MaxEdits = p.integer("MATCH_MAX_EDITS", 0)
	rules.Preprocess = p.boolean("OCR_PREPROCESS", true)
	rules.OCRTimeout = p.duration("OCR_TIMEOUT", verify.DefaultOCRTimeout)
	rules.MaxPixels = int64(p.integer("IMAGE_MAX_PIXELS", imaging.DefaultMaxPixels))
	cfg.Rules = rules

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parser collects conversion errors so Load can report all of them at once.
type parser struct {
	errs []error
}

func (p *parser) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok && value != ""
}

func (p *parser) integer(key string, fallback int) int {
	value, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	value, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	value, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
