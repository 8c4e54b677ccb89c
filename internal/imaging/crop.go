package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// regionEpsilon absorbs float rounding in sums such as 0.8+0.2.
const regionEpsilon = 1e-9

// Region is a rectangle expressed as fractions of an image's width and height.
//
// All four values lie in [0,1], with X+Width <= 1 and Y+Height <= 1. The region
// is resolved against the pixel size of each image at crop time.
type Region struct {
	X      float64 `json:"x" validate:"gte=0,lte=1"`
	Y      float64 `json:"y" validate:"gte=0,lte=1"`
	Width  float64 `json:"width" validate:"gte=0,lte=1"`
	Height float64 `json:"height" validate:"gte=0,lte=1"`
}

// BottomLeftBand is the watermark band in the lower-left corner: the left 30%
// of the bottom 20% of the image.
var BottomLeftBand = Region{X: 0, Y: 0.8, Width: 0.3, Height: 0.2}

// Validate checks the fractional invariants of the region.
func (r Region) Validate() error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &RegionError{Region: r, Reason: "fractions must lie in [0,1]"}
		}
	}
	if r.X+r.Width > 1+regionEpsilon {
		return &RegionError{Region: r, Reason: "x+width exceeds the image width"}
	}
	if r.Y+r.Height > 1+regionEpsilon {
		return &RegionError{Region: r, Reason: "y+height exceeds the image height"}
	}
	return nil
}

// PixelRect resolves the region against image bounds.
//
// Each edge is floor(size*fraction); the result is clamped to the bounds so
// rounding can never reach past the last row or column. The rectangle may be
// empty.
func (r Region) PixelRect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()

	x0 := clamp(int(math.Floor(float64(w)*r.X)), 0, w)
	y0 := clamp(int(math.Floor(float64(h)*r.Y)), 0, h)
	x1 := clamp(x0+int(math.Floor(float64(w)*r.Width)), x0, w)
	y1 := clamp(y0+int(math.Floor(float64(h)*r.Height)), y0, h)

	return image.Rect(x0, y0, x1, y1).Add(bounds.Min)
}

// ImageBuffer is a decoded raster owned by whoever holds it.
//
// Buffers are produced by copying pixels out of a source image, so they never
// share memory with the image they were cut from.
type ImageBuffer struct {
	img *image.NRGBA
}

// NewImageBuffer copies img into a standalone buffer.
func NewImageBuffer(img image.Image) *ImageBuffer {
	return &ImageBuffer{img: imaging.Clone(img)}
}

// Width returns the buffer width in pixels.
func (b *ImageBuffer) Width() int { return b.img.Bounds().Dx() }

// Height returns the buffer height in pixels.
func (b *ImageBuffer) Height() int { return b.img.Bounds().Dy() }

// Image exposes the raster for read-only use.
func (b *ImageBuffer) Image() image.Image { return b.img }

// ExtractRegion decodes an encoded image and copies out the given region.
//
// Errors:
//   - *RegionError if the region breaks its invariants or resolves to zero area
//   - *DecodeError if data is not a readable image or exceeds DefaultMaxPixels
func ExtractRegion(data []byte, r Region) (*ImageBuffer, error) {
	return ExtractRegionLimit(data, r, DefaultMaxPixels)
}

// ExtractRegionLimit is ExtractRegion with an explicit pixel budget for the
// decoded image (see DecodeLimit).
func ExtractRegionLimit(data []byte, r Region, maxPixels int64) (*ImageBuffer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	img, err := DecodeLimit(data, maxPixels)
	if err != nil {
		return nil, err
	}
	return CropRegion(img, r)
}

// CropRegion copies the given region out of an already decoded image.
func CropRegion(img image.Image, r Region) (*ImageBuffer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rect := r.PixelRect(img.Bounds())
	if rect.Empty() {
		return nil, &RegionError{
			Region: r,
			Reason: fmt.Sprintf("resolves to zero area on a %dx%d image", img.Bounds().Dx(), img.Bounds().Dy()),
		}
	}
	return &ImageBuffer{img: imaging.Crop(img, rect)}, nil
}

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropToPNG extracts a proportional region and returns it as base64 PNG,
// optionally rescaled.
func CropToPNG(data []byte, r Region, scale float64) (*CropResult, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	buf, err := CropRegion(img, r)
	if err != nil {
		return nil, err
	}

	var out image.Image = buf.Image()
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(buf.Width()) * scale)
		newHeight := int(float64(buf.Height()) * scale)
		out = imaging.Resize(out, newWidth, newHeight, imaging.Lanczos)
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, out); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	origin := r.PixelRect(img.Bounds()).Min.Sub(img.Bounds().Min)
	return &CropResult{
		X:           origin.X,
		Y:           origin.Y,
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(encoded.Bytes()),
		MimeType:    "image/png",
	}, nil
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
