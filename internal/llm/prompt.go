package llm

import (
	"strings"
	"unicode/utf8"
)

// maxPromptChars bounds how much document text goes to the model. Field
// labels sit on the first pages of bank contracts, so the head of the
// text carries nearly all signal.
const maxPromptChars = 2000

// BuildSystemPrompt composes the system message with the field list and
// strict formatting rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a contract parser for bank currency-control documents. Return ONLY JSON that matches the provided JSON Schema.",
		"The documents are Russian or bilingual Russian/English foreign-trade contracts.",
		"Extract exactly these fields: contract_number, contract_date, expiration_date, counterparty, country, contract_amount, contract_currency, payment_currency.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"contract_amount must be a number, not a string; strip spaces and currency signs.",
		"Currencies must be 3-letter ISO 4217 codes (RUB, USD, EUR, CNY).",
		"counterparty is the foreign party's name as written in the contract.",
		"If a field is absent or unreadable, output null for it. Never invent values.",
		"Output ONLY the JSON object, no prose, no code fences.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the document text, truncated to the head.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	text := strings.TrimSpace(req.Text)
	b.WriteString("\nContract text (first ~2k chars):\n")
	if len(text) > maxPromptChars {
		// Back off to a rune boundary so no UTF-8 sequence is cut in half.
		n := maxPromptChars
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		b.WriteString(text[:n])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
