package domain

import "github.com/shopspring/decimal"

// Pricing constants for order totals.
var (
	// CommissionRate is the fulfillment commission applied to the subtotal.
	CommissionRate = decimal.RequireFromString("0.02")
	// BaseShippingFee applies below the free-shipping threshold.
	BaseShippingFee = decimal.RequireFromString("5.99")
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold = decimal.RequireFromString("50.00")
)

// OrderTotals is derived from the lines that produced it; it is recomputed,
// never mutated or stored independently of its inputs.
type OrderTotals struct {
	Subtotal    Money `json:"subtotal"`
	Commission  Money `json:"fulfillment_commission"`
	ShippingFee Money `json:"shipping_fee"`
	Total       Money `json:"total"`
}

// CalculateTotals computes subtotal, commission, shipping fee and total for
// a set of order lines. It is pure: no I/O, no clock, identical output for
// identical input.
//
// Commission is 2% of the subtotal, rounded half-up to cents. Shipping is
// free at or above the threshold, otherwise the base fee. A zero subtotal
// sits below the threshold, so an empty line list still carries the base
// fee; callers that consider an empty order invalid must reject it before
// calculating.
func CalculateTotals(lines []OrderLine, addr *Address, currency string) OrderTotals {
	subtotal := ZeroMoney(currency)
	for _, line := range lines {
		subtotal.Amount = subtotal.Amount.Add(line.Subtotal().Amount)
	}

	commission := Money{
		Amount:   subtotal.Amount.Mul(CommissionRate).Round(2),
		Currency: currency,
	}

	shipping := shippingFee(subtotal, addr)

	total := Money{
		Amount:   subtotal.Amount.Add(commission.Amount).Add(shipping.Amount),
		Currency: currency,
	}

	return OrderTotals{
		Subtotal:    subtotal,
		Commission:  commission,
		ShippingFee: shipping,
		Total:       total,
	}
}

func shippingFee(subtotal Money, addr *Address) Money {
	if subtotal.Amount.GreaterThanOrEqual(FreeShippingThreshold) {
		return Money{Amount: decimal.RequireFromString("0.00"), Currency: subtotal.Currency}
	}

	fee := BaseShippingFee
	if addr != nil {
		// Extension point for distance-based pricing; flat fee for now.
		_ = addr
	}

	return Money{Amount: fee.Round(2), Currency: subtotal.Currency}
}
