// Package match decides whether recognized text carries an accepted caption.
//
// Patterns are regular expressions in the .NET/ECMAScript dialect implemented
// by github.com/dlclark/regexp2, so expressions written for JavaScript
// (/©.*gakumasu/i) carry over unchanged. A Matcher compiles a pattern set once
// and is safe for concurrent use.
//
// # Normalisation
//
// Both pattern sources and input text go through Normalize: Unicode NFKC
// followed by trimming surrounding whitespace. NFKC folds the width variants
// OCR engines tend to emit (full-width Latin "ｇａｋｕｍａｓｕ", half-width
// katakana "ﾏｽ") onto their canonical forms, while leaving "©" intact.
//
// # Fuzzy matching
//
// With Options.MaxEdits > 0, a pattern that declares a Literal also accepts
// text containing any substring within MaxEdits rune edits (insertions,
// deletions, substitutions) of that literal. Exact regex matches always win
// over fuzzy ones.
package match

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// DefaultTimeout bounds a single regular expression evaluation.
const DefaultTimeout = time.Second

// Pattern is one accepted caption form.
type Pattern struct {
	// Name identifies the pattern in reports.
	Name string `json:"name" validate:"required"`

	// Expr is the regular expression, matched anywhere in the text.
	Expr string `json:"expr" validate:"required"`

	// IgnoreCase makes Expr (and Literal) case-insensitive.
	IgnoreCase bool `json:"ignoreCase,omitempty"`

	// Literal is the plain text used for approximate matching when
	// Options.MaxEdits > 0. Empty disables fuzzy matching for this pattern.
	Literal string `json:"literal,omitempty"`
}

// Options tune a compiled Matcher.
type Options struct {
	// MaxEdits is the edit distance tolerated for Literal matches.
	MaxEdits int `json:"maxEdits"`

	// Timeout bounds each regex evaluation; zero selects DefaultTimeout.
	Timeout time.Duration `json:"timeout"`
}

// Result describes the outcome of testing one text.
type Result struct {
	Matched bool `json:"matched"`

	// Pattern is the Name of the first accepting pattern.
	Pattern string `json:"pattern,omitempty"`

	// Distance is the edit distance of a fuzzy match (0 for regex matches).
	Distance int `json:"distance,omitempty"`

	// Fuzzy reports that the match came from Literal, not Expr.
	Fuzzy bool `json:"fuzzy,omitempty"`

	// Text is the normalised text that was tested.
	Text string `json:"text"`
}

// DefaultPatterns returns the caption forms accepted for the venue watermark:
// the venue name in Japanese and in Latin transliteration, each with and
// without a preceding copyright glyph, plus a variant that tolerates the
// spaces Tesseract inserts between CJK glyphs.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "venue-ja", Expr: `学マス`, Literal: "学マス"},
		{Name: "venue-en", Expr: `gakumasu`, IgnoreCase: true, Literal: "gakumasu"},
		{Name: "copyright-ja", Expr: `©.*学マス`},
		{Name: "copyright-en", Expr: `©.*gakumasu`, IgnoreCase: true},
		{Name: "venue-ja-spaced", Expr: `(?:©|\(c\))?[\s\p{P}\p{S}]*学\s*マ\s*ス`, IgnoreCase: true},
	}
}

type compiled struct {
	pattern Pattern
	re      *regexp2.Regexp
	literal []rune
}

// Matcher tests text against an ordered pattern set.
type Matcher struct {
	patterns []compiled
	maxEdits int
}

// Compile compiles patterns in order. Any invalid expression fails the whole set.
func Compile(patterns []Pattern, opts Options) (*Matcher, error) {
	if opts.MaxEdits < 0 {
		return nil, fmt.Errorf("max edits must not be negative, got %d", opts.MaxEdits)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	m := &Matcher{
		patterns: make([]compiled, 0, len(patterns)),
		maxEdits: opts.MaxEdits,
	}
	for i, p := range patterns {
		var flags regexp2.RegexOptions = regexp2.None
		if p.IgnoreCase {
			flags |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(Normalize(p.Expr), flags)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, p.Name, err)
		}
		re.MatchTimeout = timeout

		c := compiled{pattern: p, re: re}
		if lit := Normalize(p.Literal); lit != "" {
			c.literal = []rune(foldIf(lit, p.IgnoreCase))
		}
		m.patterns = append(m.patterns, c)
	}
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(patterns []Pattern, opts Options) *Matcher {
	m, err := Compile(patterns, opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches reports whether any pattern accepts text.
func (m *Matcher) Matches(text string) bool {
	return m.Match(text).Matched
}

// Match tests text against every pattern and reports the first that accepts.
//
// Regular expressions are tried first, in order; when none accepts and
// fuzzy matching is enabled, literals are tried in order. A regex that hits
// its timeout counts as not matching.
func (m *Matcher) Match(text string) Result {
	normalized := Normalize(text)
	res := Result{Text: normalized}

	for _, c := range m.patterns {
		ok, err := c.re.MatchString(normalized)
		if err != nil {
			log.Printf("match: pattern %s: %v", c.pattern.Name, err)
			continue
		}
		if ok {
			res.Matched = true
			res.Pattern = c.pattern.Name
			return res
		}
	}

	if m.maxEdits == 0 {
		return res
	}
	for _, c := range m.patterns {
		if len(c.literal) == 0 {
			continue
		}
		d := substringDistance(c.literal, []rune(foldIf(normalized, c.pattern.IgnoreCase)))
		if d <= m.maxEdits {
			res.Matched = true
			res.Pattern = c.pattern.Name
			res.Distance = d
			res.Fuzzy = true
			return res
		}
	}
	return res
}

// Normalize applies NFKC and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func foldIf(s string, fold bool) string {
	if !fold {
		return s
	}
	return strings.Map(unicode.ToLower, s)
}

// substringDistance returns the smallest edit distance between pattern and
// any substring of text (Sellers' algorithm).
func substringDistance(pattern, text []rune) int {
	prev := make([]int, len(pattern)+1)
	curr := make([]int, len(pattern)+1)
	for i := range prev {
		prev[i] = i
	}
	best := prev[len(pattern)]

	for _, r := range text {
		curr[0] = 0
		for i, p := range pattern {
			cost := 1
			if p == r {
				cost = 0
			}
			curr[i+1] = min(prev[i]+cost, prev[i+1]+1, curr[i]+1)
		}
		if curr[len(pattern)] < best {
			best = curr[len(pattern)]
		}
		prev, curr = curr, prev
	}
	return best
}
