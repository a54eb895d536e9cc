package llm

// FieldNames lists the contract fields in canonical order.
var FieldNames = []string{
	"contract_number",
	"contract_date",
	"expiration_date",
	"counterparty",
	"country",
	"contract_amount",
	"contract_currency",
	"payment_currency",
}

// BuildContractJSONSchema returns a JSON-Schema (draft 2020-12 subset)
// as a generic map. Every field is required but nullable; the model
// must answer for each one explicitly instead of omitting it.
func BuildContractJSONSchema() map[string]any {
	nullableString := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}
	dateProp := func() map[string]any {
		return map[string]any{
			"type":    []string{"string", "null"},
			"pattern": `^\d{4}-\d{2}-\d{2}$`,
		}
	}
	currencyProp := func() map[string]any {
		return map[string]any{
			"type":      []string{"string", "null"},
			"minLength": 3,
			"maxLength": 3,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"contract_number":   nullableString(),
			"contract_date":     dateProp(),
			"expiration_date":   dateProp(),
			"counterparty":      nullableString(),
			"country":           nullableString(),
			"contract_amount":   map[string]any{"type": []string{"number", "null"}},
			"contract_currency": currencyProp(),
			"payment_currency":  currencyProp(),
		},
		"required": FieldNames,
	}
}
