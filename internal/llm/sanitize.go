package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	// reObject finds the outermost-looking JSON object in free text,
	// tolerating one level of nesting.
	reObject = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	// reTrailingComma matches a comma directly before a closing brace
	// or bracket.
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// RepairJSON recovers a contract-fields JSON object from raw model
// output. Small local models wrap JSON in code fences, add prose, use
// single quotes or leave trailing commas; each repair step is tried in
// order and the first parse wins. When nothing parses, an all-null
// object is returned so the caller always has a well-formed document.
func RepairJSON(raw []byte, logger *slog.Logger) []byte {
	if logger == nil {
		logger = slog.Default()
	}
	s := stripCodeFences(string(raw))

	if out, ok := tryParse(s); ok {
		return out
	}

	if match := reObject.FindString(s); match != "" {
		if out, ok := tryParse(match); ok {
			logger.Debug("llm.repair.object_scan")
			return out
		}
		fixed := reTrailingComma.ReplaceAllString(strings.ReplaceAll(match, "'", `"`), "$1")
		if out, ok := tryParse(fixed); ok {
			logger.Warn("llm.repair.quote_fix_applied")
			return out
		}
	}

	logger.Error("llm.repair.unparseable", "raw_len", len(raw))
	return nullFields()
}

// NormalizeFields coerces a parsed object toward the schema: unknown
// keys are dropped, missing keys become null, currencies are uppercased
// or nulled when they are not three-letter codes, numeric strings in
// contract_amount become numbers, empty strings become null.
func NormalizeFields(doc []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("normalize: decode: %w", err)
	}

	known := make(map[string]struct{}, len(FieldNames))
	for _, k := range FieldNames {
		known[k] = struct{}{}
	}

	var changed []string
	for k := range m {
		if _, ok := known[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}
	for _, k := range FieldNames {
		if _, ok := m[k]; !ok {
			m[k] = nil
			changed = append(changed, k+"(missing)")
		}
	}

	// Empty strings mean the model had nothing; the schema wants null.
	for _, k := range FieldNames {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) == "" {
			m[k] = nil
			changed = append(changed, k+"(empty)")
		}
	}

	// Currencies are three-letter codes; anything else becomes null
	// rather than failing the whole document downstream.
	for _, k := range []string{"contract_currency", "payment_currency"} {
		if v, ok := m[k].(string); ok {
			code := strings.ToUpper(strings.TrimSpace(v))
			if len([]rune(code)) == 3 {
				m[k] = code
			} else {
				m[k] = nil
				changed = append(changed, k+"(invalid)")
			}
		}
	}

	if v, ok := m["contract_amount"].(string); ok {
		s := strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(v), " ", ""), ",", ".")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			m["contract_amount"] = f
			changed = append(changed, "contract_amount(coerced)")
		} else {
			m["contract_amount"] = nil
			changed = append(changed, "contract_amount(unparseable)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("normalize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.normalized", "changed", changed)
	}
	return out, changed, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// tryParse accepts only JSON objects, re-encoded canonically.
func tryParse(s string) ([]byte, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, false
	}
	return out, true
}

func nullFields() []byte {
	m := make(map[string]any, len(FieldNames))
	for _, k := range FieldNames {
		m[k] = nil
	}
	out, _ := json.Marshal(m)
	return out
}
