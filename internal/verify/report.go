package verify

import "fmt"

// SizeCheckResult is the outcome of the dimension check.
type SizeCheckResult struct {
	Valid   bool   `json:"valid"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Message string `json:"message"`
	Format  string `json:"format,omitempty"`
}

// CopyrightCheckResult is the outcome of the watermark check.
type CopyrightCheckResult struct {
	Valid bool `json:"valid"`

	// DetectedText is the recognized text with surrounding whitespace removed.
	DetectedText string `json:"detectedText"`
	Message      string `json:"message"`

	MatchedPattern string `json:"matchedPattern,omitempty"`
	EditDistance   int    `json:"editDistance,omitempty"`
	Engine         string `json:"engine,omitempty"`
}

// Report is the combined verdict of one validation call.
type Report struct {
	// Valid is true only when both sub-checks are valid.
	Valid     bool                 `json:"valid"`
	Size      SizeCheckResult      `json:"sizeCheck"`
	Copyright CopyrightCheckResult `json:"copyrightCheck"`
	Message   string               `json:"message"`
}

// Messages is a catalogue of report messages. Format verbs are documented
// per field.
type Messages struct {
	SizeValid        string // %d width, %d height
	SizeInvalid      string // %d width, %d height
	SizeError        string // %v error
	CopyrightFound   string // %s detected text
	CopyrightMissing string // %s detected text
	CopyrightError   string // %v error
	Accepted         string
	Rejected         string
}

// JapaneseMessages is the default catalogue.
var JapaneseMessages = Messages{
	SizeValid:        "画像サイズ: %dx%d - 適切なサイズです",
	SizeInvalid:      "画像サイズ: %dx%d - 学マス内写真の特徴的なサイズではありません",
	SizeError:        "画像サイズの検証に失敗しました: %v",
	CopyrightFound:   `著作権文章を検出しました: "%s"`,
	CopyrightMissing: `著作権文章が検出されませんでした。検出テキスト: "%s"`,
	CopyrightError:   "著作権文章の検証に失敗しました: %v",
	Accepted:         "学マス内で撮影された写真として適切です",
	Rejected:         "学マス内で撮影された写真ではありません",
}

// EnglishMessages is the English catalogue.
var EnglishMessages = Messages{
	SizeValid:        "image size %dx%d is within the accepted range",
	SizeInvalid:      "image size %dx%d is outside the accepted range",
	SizeError:        "image size check failed: %v",
	CopyrightFound:   `copyright caption detected: "%s"`,
	CopyrightMissing: `copyright caption not detected, recognized text: "%s"`,
	CopyrightError:   "copyright check failed: %v",
	Accepted:         "photo accepted: taken at the venue",
	Rejected:         "photo rejected: not taken at the venue",
}

// MessagesFor returns the catalogue for a language code ("ja", "en").
// Unknown codes fall back to Japanese.
func MessagesFor(lang string) Messages {
	if lang == "en" {
		return EnglishMessages
	}
	return JapaneseMessages
}

func (m Messages) size(valid bool, w, h int) string {
	if valid {
		return fmt.Sprintf(m.SizeValid, w, h)
	}
	return fmt.Sprintf(m.SizeInvalid, w, h)
}

func (m Messages) copyright(valid bool, text string) string {
	if valid {
		return fmt.Sprintf(m.CopyrightFound, text)
	}
	return fmt.Sprintf(m.CopyrightMissing, text)
}

func (m Messages) verdict(valid bool) string {
	if valid {
		return m.Accepted
	}
	return m.Rejected
}
