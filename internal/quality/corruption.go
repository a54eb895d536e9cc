// Package quality decides whether direct-extracted PDF text can be
// trusted or the page has to go through OCR. The usual failure mode is
// a PDF without ToUnicode maps for Cyrillic fonts: extraction succeeds
// but yields runs of substitute glyphs (I, l, |) instead of letters.
package quality

import (
	"strings"
	"unicode"
)

// Threshold constants. Tuned against bank-contract PDFs; each one is a
// sufficient condition on its own, see Corrupted.
const (
	// MinTrustedLen is the minimum character count (newlines removed)
	// below which text is always treated as corrupted.
	MinTrustedLen = 20

	// BrokenGlyphRatio flags text when at least this fraction of the
	// alphabetic characters belong to the broken-glyph set.
	BrokenGlyphRatio = 0.5

	// MinUniqueRatio flags text whose distinct/total character ratio
	// falls below this value while letters are present.
	MinUniqueRatio = 0.20

	// MinScriptRatio flags text that contains domain keywords but
	// where the target-script share is below this value.
	MinScriptRatio = 0.02
)

// Config parameterizes the heuristic for a target script. The zero
// value is unusable; use DefaultConfig.
type Config struct {
	// BrokenGlyphs are the substitute characters produced by
	// missing-glyph fallback fonts.
	BrokenGlyphs map[rune]struct{}
	// Keywords are labels expected in the target documents; their
	// presence without target-script characters implies garbling.
	Keywords []string
	// InScript reports whether a rune belongs to the target script.
	InScript func(r rune) bool
}

// DefaultConfig matches the deployed document base: Russian-language
// bank contracts.
func DefaultConfig() Config {
	return Config{
		BrokenGlyphs: map[rune]struct{}{
			'I': {}, 'l': {}, '|': {}, 'ı': {}, 'İ': {},
		},
		Keywords: []string{"КОНТРАКТ", "Дата", "Контрагент", "Страна", "Валюта", "Сумма"},
		InScript: func(r rune) bool {
			return (r >= 'А' && r <= 'я') || r == 'Ё' || r == 'ё'
		},
	}
}

// Corrupted reports whether the candidate text looks like broken glyph
// output rather than real content. Each condition alone is sufficient:
//   - too short to trust;
//   - broken glyphs dominate the letters;
//   - character diversity is far too low for natural text;
//   - domain keywords are present but the target script is absent.
func Corrupted(text string, cfg Config) bool {
	if text == "" {
		return true
	}
	s := strings.ReplaceAll(text, "\n", "")
	runes := []rune(s)
	if len(runes) < MinTrustedLen {
		return true
	}

	distinct := make(map[rune]struct{}, len(runes))
	letters, broken, script := 0, 0, 0
	for _, r := range runes {
		distinct[r] = struct{}{}
		if unicode.IsLetter(r) {
			letters++
			if _, ok := cfg.BrokenGlyphs[r]; ok {
				broken++
			}
		}
		if cfg.InScript != nil && cfg.InScript(r) {
			script++
		}
	}

	if letters > 0 && float64(broken)/float64(letters) >= BrokenGlyphRatio {
		return true
	}
	if letters > 0 && float64(len(distinct))/float64(len(runes)) < MinUniqueRatio {
		return true
	}

	for _, kw := range cfg.Keywords {
		if strings.Contains(text, kw) {
			if float64(script)/float64(len(runes)) < MinScriptRatio {
				return true
			}
			break
		}
	}
	return false
}
