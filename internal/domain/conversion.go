package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionRecord is an append-only ledger entry for one executed currency
// conversion. Records are immutable once logged.
type ConversionRecord struct {
	TransactionID  string
	SourceCurrency string
	TargetCurrency string
	SourceAmount   decimal.Decimal
	TargetAmount   decimal.Decimal
	Rate           decimal.Decimal
	Fee            decimal.Decimal
	Timestamp      time.Time
}

// TotalCost is the converted amount plus the fee charged for it.
func (r ConversionRecord) TotalCost() decimal.Decimal {
	return r.TargetAmount.Add(r.Fee)
}
