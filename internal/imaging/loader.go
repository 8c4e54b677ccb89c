package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultMaxPixels is the largest width*height Decode accepts.
const DefaultMaxPixels = 64_000_000

// ErrTooManyPixels is wrapped in a *DecodeError when the declared size of an
// image exceeds the pixel budget.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

var errEmptyInput = errors.New("no image data")

// ImageCache provides thread-safe caching of image file contents to avoid
// redundant disk reads.
//
// The cache stores the raw encoded bytes keyed by file path. Validation works on
// encoded bytes (the dimension probe only reads the container header), so the
// cache keeps files in their encoded form rather than decoding them.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Staleness
//
// Each Load stats the file. An entry is reused only while the file's
// modification time and size are unchanged; a file that can no longer be
// stat'ed is evicted.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedFile
}

type cachedFile struct {
	data    []byte
	modTime time.Time
	size    int64
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedFile),
	}
}

// Load returns the contents of an image file, reading it from disk when it is
// not cached or has changed since it was cached.
//
// The returned slice is shared with the cache and must not be modified.
// Files that do not start with a registered image header are rejected with a
// *DecodeError and are not cached.
func (c *ImageCache) Load(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if _, err := ProbeDimensions(data); err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = cachedFile{data: data, modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()

	return data, nil
}

// Evict removes a specific file from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Dimensions contains the pixel size of an encoded image.
type Dimensions struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the container name reported by the registered decoder
	// ("jpeg", "png", "gif", "webp", "bmp", "tiff").
	Format string `json:"format"`
}

// ProbeDimensions reads the width and height of an encoded image.
//
// Only the container header is parsed; pixel data is never decoded. Supported
// containers are JPEG, PNG, GIF, WebP, BMP and TIFF.
//
// Returns a *DecodeError when data is empty or not a supported image.
func ProbeDimensions(data []byte) (Dimensions, error) {
	if len(data) == 0 {
		return Dimensions{}, &DecodeError{Op: "probe", Err: errEmptyInput}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, &DecodeError{Op: "probe", Err: err}
	}

	return Dimensions{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// Decode fully decodes an encoded image into memory, refusing images larger
// than DefaultMaxPixels.
//
// Returns a *DecodeError when data is empty, too large or cannot be decoded.
func Decode(data []byte) (image.Image, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit is Decode with an explicit pixel budget. The declared size is
// read from the header before any pixel data, so oversized images are
// rejected without allocating their raster. maxPixels <= 0 selects
// DefaultMaxPixels.
func DecodeLimit(data []byte, maxPixels int64) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Op: "decode", Err: errEmptyInput}
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Op: "decode", Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, &DecodeError{
			Op:  "decode",
			Err: fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Op: "decode", Err: err}
	}
	return img, nil
}
