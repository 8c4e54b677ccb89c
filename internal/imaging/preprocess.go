package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Preprocessing parameters tuned for short caption text.
const (
	// MinOCRHeight is the crop height below which the buffer is upscaled.
	MinOCRHeight = 120
	// maxUpscale caps the upscaling factor for very small crops.
	maxUpscale = 4.0
	// darkThreshold is the mean CIE-L* lightness (0..1) under which the
	// crop is treated as light text on a dark background and inverted.
	darkThreshold = 0.5
	// contrastBoost is passed to adjust.Contrast (-1..1).
	contrastBoost = 0.35
	// lightnessSamples bounds how many pixels are visited per axis when
	// estimating mean lightness.
	lightnessSamples = 64
)

// PrepareForOCR returns a new buffer tuned for text recognition.
//
// The steps are, in order: grayscale, polarity normalisation (Tesseract reads
// dark text on a light background best, so mostly-dark crops are inverted),
// contrast boost, and Lanczos upscaling when the crop is shorter than
// MinOCRHeight. The input buffer is left untouched.
func PrepareForOCR(buf *ImageBuffer) *ImageBuffer {
	var img image.Image = effect.Grayscale(buf.Image())

	if MeanLightness(img) < darkThreshold {
		img = effect.Invert(img)
	}
	img = adjust.Contrast(img, contrastBoost)

	if h := img.Bounds().Dy(); h > 0 && h < MinOCRHeight {
		factor := float64(MinOCRHeight) / float64(h)
		if factor > maxUpscale {
			factor = maxUpscale
		}
		img = imaging.Resize(img, int(float64(img.Bounds().Dx())*factor), 0, imaging.Lanczos)
	}

	return NewImageBuffer(img)
}

// MeanLightness estimates the average CIE-L* lightness of img in [0,1].
//
// At most lightnessSamples x lightnessSamples pixels are visited. Fully
// transparent pixels are skipped. An empty image reports 1 (white).
func MeanLightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 1
	}

	stepX := b.Dx()/lightnessSamples + 1
	stepY := b.Dy()/lightnessSamples + 1

	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			sum += l
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
