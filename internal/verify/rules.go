package verify

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/ironsheep/photo-verify/internal/imaging"
	"github.com/ironsheep/photo-verify/internal/match"
	"github.com/ironsheep/photo-verify/internal/ocr"
)

// Reference deployment values for the venue camera setup.
const (
	DefaultMinWidth   = 1920
	DefaultMinHeight  = 1080
	DefaultMaxWidth   = 4000
	DefaultMaxHeight  = 3000
	DefaultOCRTimeout = 30 * time.Second
)

// SizeConstraint is the accepted pixel size range. Bounds are inclusive.
type SizeConstraint struct {
	MinWidth  int `json:"minWidth" validate:"gte=1"`
	MinHeight int `json:"minHeight" validate:"gte=1"`
	MaxWidth  int `json:"maxWidth" validate:"gtefield=MinWidth"`
	MaxHeight int `json:"maxHeight" validate:"gtefield=MinHeight"`
}

// Allows reports whether width x height lies inside the constraint.
func (c SizeConstraint) Allows(width, height int) bool {
	return width >= c.MinWidth && width <= c.MaxWidth &&
		height >= c.MinHeight && height <= c.MaxHeight
}

// Rules configure one validation call.
type Rules struct {
	Size     SizeConstraint  `json:"size"`
	Region   imaging.Region  `json:"region"`
	Patterns []match.Pattern `json:"patterns" validate:"min=1,dive"`

	// Languages are the recognition hints, most likely script first.
	Languages []language.Tag `json:"languages"`

	// MaxEdits enables approximate caption matching (0 = exact only).
	MaxEdits int `json:"maxEdits" validate:"gte=0,lte=3"`

	// Preprocess runs imaging.PrepareForOCR on the crop before recognition.
	Preprocess bool `json:"preprocess"`

	// OCRTimeout bounds recognition; zero disables the bound.
	OCRTimeout time.Duration `json:"ocrTimeout" validate:"gte=0"`

	// MaxPixels bounds the decoded size for the copyright check; zero
	// selects imaging.DefaultMaxPixels.
	MaxPixels int64 `json:"maxPixels" validate:"gte=0"`
}

// DefaultRules returns the reference deployment configuration: 1920-4000 x
// 1080-3000 pixels, the bottom-left watermark band, the default venue
// patterns, Japanese and English hints, and a 30 second recognition bound.
func DefaultRules() Rules {
	return Rules{
		Size: SizeConstraint{
			MinWidth:  DefaultMinWidth,
			MinHeight: DefaultMinHeight,
			MaxWidth:  DefaultMaxWidth,
			MaxHeight: DefaultMaxHeight,
		},
		Region:     imaging.BottomLeftBand,
		Patterns:   match.DefaultPatterns(),
		Languages:  append([]language.Tag(nil), ocr.DefaultLanguages...),
		Preprocess: true,
		OCRTimeout: DefaultOCRTimeout,
		MaxPixels:  imaging.DefaultMaxPixels,
	}
}

var validate = newRulesValidator()

func newRulesValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(imaging.Region)
		if err := r.Validate(); err != nil {
			sl.ReportError(r, "Region", "Region", "region", err.Error())
		}
	}, imaging.Region{})
	return v
}

// Validate checks the rules for internal consistency.
func (r Rules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	return nil
}
