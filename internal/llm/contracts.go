// Package llm extracts structured contract fields from page text via an
// OpenAI-compatible chat endpoint. Model output is repaired, validated
// against a JSON schema and decoded into ContractFields; every field is
// nullable because scanned contracts routinely omit values.
package llm

import "context"

// ContractFields is the normalized shape we want from the model. A nil
// field means the value was absent or unreadable in the document.
type ContractFields struct {
	ContractNumber   *string  `json:"contract_number"`
	ContractDate     *string  `json:"contract_date"`   // YYYY-MM-DD
	ExpirationDate   *string  `json:"expiration_date"` // YYYY-MM-DD
	Counterparty     *string  `json:"counterparty"`
	Country          *string  `json:"country"`
	ContractAmount   *float64 `json:"contract_amount"`
	ContractCurrency *string  `json:"contract_currency"` // ISO 4217
	PaymentCurrency  *string  `json:"payment_currency"`  // ISO 4217
}

// Empty reports whether no field was extracted.
func (f ContractFields) Empty() bool {
	return f.ContractNumber == nil && f.ContractDate == nil &&
		f.ExpirationDate == nil && f.Counterparty == nil &&
		f.Country == nil && f.ContractAmount == nil &&
		f.ContractCurrency == nil && f.PaymentCurrency == nil
}

// ExtractRequest carries the extracted document text plus hints.
type ExtractRequest struct {
	Text         string
	FilenameHint string
}

// FieldExtractor is the interface the processing queue depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (ContractFields, []byte /*rawJSON*/, error)
}
