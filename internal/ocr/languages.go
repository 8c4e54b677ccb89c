package ocr

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguages are the hints used for the venue watermark: Japanese first,
// then English for the transliterated caption.
var DefaultLanguages = []language.Tag{language.Japanese, language.English}

// ParseLanguages parses a comma separated list of BCP-47 tags ("ja,en").
// Blank entries are skipped.
func ParseLanguages(list string) ([]language.Tag, error) {
	var tags []language.Tag
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, err := language.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", part, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// TesseractCode maps a language tag to its Tesseract traineddata name.
//
// Tesseract names data files after ISO 639-2 codes, except for Chinese which
// is split by script. Undetermined tags map to "".
func TesseractCode(tag language.Tag) string {
	base, conf := tag.Base()
	if conf == language.No || tag == language.Und {
		return ""
	}
	switch base.String() {
	case "zh":
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "chi_tra"
		}
		return "chi_sim"
	}
	return base.ISO3()
}

// TesseractLanguages converts hints to Tesseract codes, dropping duplicates
// and keeping order. An empty hint set yields []string{"eng"}.
func TesseractLanguages(hints []language.Tag) []string {
	seen := make(map[string]bool, len(hints))
	codes := make([]string, 0, len(hints))
	for _, tag := range hints {
		code := TesseractCode(tag)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return []string{"eng"}
	}
	return codes
}
