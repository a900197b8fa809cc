package sync

import (
	"github.com/shopspring/decimal"
)

const (
	TypeWithdrawal = "withdrawal"
	TypeDeposit    = "deposit"
)

// NormalizedTransaction is a ledger-ready double-entry transaction. Amounts
// are always non-negative; direction is expressed through Type and the
// source/destination placement. ExternalID is the idempotency key a
// downstream importer must use to deduplicate repeated syncs.
type NormalizedTransaction struct {
	Type              string          `json:"type"`
	Date              string          `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	CurrencyCode      string          `json:"currency_code"`
	CategoryName      string          `json:"category_name,omitempty"`
	SourceName        string          `json:"source_name,omitempty"`
	DestinationName   string          `json:"destination_name,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	ExternalID        string          `json:"external_id"`
	InternalReference string          `json:"internal_reference"`
}
