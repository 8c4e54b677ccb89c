// Package verify decides whether a photo was taken at the venue.
//
// A Validator runs two independent checks on the raw image bytes and joins
// them into a Report:
//
//   - Size: the pixel dimensions, read from the container header, must lie
//     inside Rules.Size (bounds inclusive).
//   - Copyright: the proportional Rules.Region is cropped, optionally
//     preprocessed, read by an ocr.Recognizer and tested against
//     Rules.Patterns.
//
// The checks run concurrently. A failure inside one check (unreadable image,
// degenerate region, engine error or timeout) marks only that check invalid
// and is described in its message; Validate itself fails only for empty
// input. Report.Valid is the conjunction of both checks.
package verify
