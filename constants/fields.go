package constants

// ContractFieldNames is the fixed set of fields extracted from a bank
// contract, in export column order. The LLM returns a mapping from each
// of these names to a value or null.
var ContractFieldNames = []string{
	"contract_number",
	"contract_date",
	"expiration_date",
	"counterparty",
	"country",
	"contract_amount",
	"contract_currency",
	"payment_currency",
}
