// Package imaging provides the image operations behind photo verification.
//
// This package reads pixel dimensions from encoded images, resolves
// proportional regions into pixel rectangles, copies those regions into
// standalone buffers, and prepares buffers for text recognition. All operations
// work with standard Go image.Image types and use a coordinate system where
// (0,0) is at the top-left corner, X increases rightward, and Y increases
// downward.
//
// # Proportional Regions
//
// A Region holds fractions of the image size rather than pixels, so one
// configuration serves every resolution a camera produces. Pixel edges are
// computed with floor() and clamped to the image bounds:
//
//	x0 = floor(W * X)          y0 = floor(H * Y)
//	x1 = x0 + floor(W * Width) y1 = y0 + floor(H * Height)
//
// (x0,y0) is inclusive and (x1,y1) exclusive.
//
// # Ownership
//
// Cropping never returns a view into the source raster. ImageBuffer values
// are copies, and PrepareForOCR returns a new buffer, so a buffer can be
// handed to another goroutine without synchronisation.
//
// # Error Handling
//
// Two error kinds are returned and can be matched with errors.As:
//   - *DecodeError: the bytes are empty or not a supported container
//   - *RegionError: the region breaks its invariants or resolves to zero area
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless.
package imaging
