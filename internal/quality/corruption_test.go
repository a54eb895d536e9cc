package quality

import (
	"strings"
	"testing"
)

func TestCorruptedBrokenGlyphs(t *testing.T) {
	// 25 characters, ~90% of letters from the substitute glyph set.
	text := "IlI|lIl|IlIl|IlI|lIl|Iab"
	if len([]rune(text)) < MinTrustedLen {
		t.Fatalf("fixture shorter than %d runes", MinTrustedLen)
	}
	if !Corrupted(text, DefaultConfig()) {
		t.Fatalf("expected broken-glyph text to be flagged")
	}
}

func TestCorruptedAcceptsRealRussianText(t *testing.T) {
	text := "КОНТРАКТ № 2023/45-В от 14 февраля 2023 г. между ООО «Ромашка» и Xintai Trading Ltd. " +
		"на поставку оборудования. Сумма: 1 250 000,00 USD. Валюта платежа: доллар США."
	if Corrupted(text, DefaultConfig()) {
		t.Fatalf("expected natural Russian contract text to pass")
	}
}

func TestCorruptedShortText(t *testing.T) {
	cases := []string{"", "abc", "Номер 12345", strings.Repeat("a", MinTrustedLen-1)}
	for _, text := range cases {
		if !Corrupted(text, DefaultConfig()) {
			t.Errorf("Corrupted(%q) = false, want true (below length floor)", text)
		}
	}
}

func TestCorruptedNewlinesDoNotCount(t *testing.T) {
	// 19 visible characters padded with newlines still falls under the floor.
	text := "предоплата границ\n\n\n\n\n"
	if !Corrupted(text, DefaultConfig()) {
		t.Fatalf("newlines must not count toward the length floor")
	}
}

func TestCorruptedLowDiversity(t *testing.T) {
	text := strings.Repeat("ab", 60)
	if !Corrupted(text, DefaultConfig()) {
		t.Fatalf("expected low-diversity text to be flagged")
	}
}

func TestCorruptedKeywordWithoutScript(t *testing.T) {
	// The label survived extraction but the Cyrillic values did not.
	text := "КОНТРАКТ " + strings.Repeat("x1y2z3w4v5u6t7s8r9q0", 6)
	cfg := DefaultConfig()
	// Keyword itself is Cyrillic; widen the fixture so its share drops
	// below the script floor.
	if !Corrupted(text+strings.Repeat(" 0123456789abcdefghij", 15), cfg) {
		t.Fatalf("expected keyword-without-script text to be flagged")
	}
}

func TestCorruptedKeywordWithScript(t *testing.T) {
	text := "КОНТРАКТ № 145 от 12 января. Поставщик обязуется передать товар покупателю в согласованные сроки."
	if Corrupted(text, DefaultConfig()) {
		t.Fatalf("keyword plus real Cyrillic content must pass")
	}
}
