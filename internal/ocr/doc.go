// Package ocr defines the text recognition capability used by photo verification.
//
// A Recognizer turns a decoded raster into raw text. The package owns the
// contract only; engines live in subpackages:
//
//   - ocr/tesseract: local Tesseract via gosseract (cgo, the default)
//   - ocr/rekognition: AWS Rekognition DetectText
//
// # Contract
//
// Engines must not modify the image they are given. An engine failure is
// reported as a *RecognitionError; an empty string with a nil error means the
// engine ran and found no text, which is a legitimate result.
//
// # Language Hints
//
// Hints are BCP-47 tags from golang.org/x/text/language. TesseractLanguages
// converts them to Tesseract traineddata names ("ja" -> "jpn", "en" -> "eng").
// Engines that cannot use hints ignore them.
//
// # Deadlines
//
// Recognition is the slowest step of a validation. WithTimeout wraps any
// Recognizer so that a call returns a *RecognitionError wrapping
// context.DeadlineExceeded once its deadline passes, even when the engine
// itself does not observe the context.
package ocr
