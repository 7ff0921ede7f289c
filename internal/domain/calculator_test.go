package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(t *testing.T, s string) Money {
	t.Helper()
	m, err := NewMoneyFromString(s, "USD")
	require.NoError(t, err)
	return m
}

func line(t *testing.T, price string, qty int64) OrderLine {
	t.Helper()
	l, err := NewOrderLine("prod-1", "Product 1", usd(t, price), qty)
	require.NoError(t, err)
	return l
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name       string
		lines      []OrderLine
		subtotal   string
		commission string
		shipping   string
		total      string
	}{
		{
			name:       "below free shipping threshold",
			lines:      []OrderLine{line(t, "15.00", 1), line(t, "10.00", 1)},
			subtotal:   "25.00",
			commission: "0.50",
			shipping:   "5.99",
			total:      "31.49",
		},
		{
			name:       "above free shipping threshold",
			lines:      []OrderLine{line(t, "75.00", 1)},
			subtotal:   "75.00",
			commission: "1.50",
			shipping:   "0.00",
			total:      "76.50",
		},
		{
			name:       "exactly at free shipping threshold",
			lines:      []OrderLine{line(t, "50.00", 1)},
			subtotal:   "50.00",
			commission: "1.00",
			shipping:   "0.00",
			total:      "51.00",
		},
		{
			name:       "one cent below threshold",
			lines:      []OrderLine{line(t, "49.99", 1)},
			subtotal:   "49.99",
			commission: "1.00",
			shipping:   "5.99",
			total:      "56.98",
		},
		{
			name:       "commission rounds half-up",
			lines:      []OrderLine{line(t, "33.33", 1)},
			subtotal:   "33.33",
			commission: "0.67",
			shipping:   "5.99",
			total:      "39.99",
		},
		{
			name:       "multiple quantities",
			lines:      []OrderLine{line(t, "15.00", 3)},
			subtotal:   "45.00",
			commission: "0.90",
			shipping:   "5.99",
			total:      "51.89",
		},
		{
			name:       "empty line list still evaluates shipping",
			lines:      nil,
			subtotal:   "0.00",
			commission: "0.00",
			shipping:   "5.99",
			total:      "5.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := CalculateTotals(tt.lines, nil, "USD")

			assert.True(t, totals.Subtotal.Amount.Equal(decimal.RequireFromString(tt.subtotal)),
				"subtotal: got %s", totals.Subtotal.Amount)
			assert.True(t, totals.Commission.Amount.Equal(decimal.RequireFromString(tt.commission)),
				"commission: got %s", totals.Commission.Amount)
			assert.True(t, totals.ShippingFee.Amount.Equal(decimal.RequireFromString(tt.shipping)),
				"shipping: got %s", totals.ShippingFee.Amount)
			assert.True(t, totals.Total.Amount.Equal(decimal.RequireFromString(tt.total)),
				"total: got %s", totals.Total.Amount)
		})
	}
}

func TestCalculateTotalsIsDeterministic(t *testing.T) {
	lines := []OrderLine{line(t, "33.33", 2), line(t, "0.99", 5)}
	addr := &Address{City: "Lagos", Country: "NG"}

	first := CalculateTotals(lines, addr, "USD")
	second := CalculateTotals(lines, addr, "USD")

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.Commission.Equal(second.Commission))
	assert.True(t, first.ShippingFee.Equal(second.ShippingFee))
	assert.True(t, first.Total.Equal(second.Total))
}

func TestCalculateTotalsAlgebra(t *testing.T) {
	// total = subtotal + commission + shipping for arbitrary subtotals
	for _, price := range []string{"0.01", "12.34", "49.99", "50.00", "199.95"} {
		totals := CalculateTotals([]OrderLine{line(t, price, 1)}, nil, "USD")
		sum := totals.Subtotal.Amount.Add(totals.Commission.Amount).Add(totals.ShippingFee.Amount)
		assert.True(t, totals.Total.Amount.Equal(sum), "price %s", price)
	}
}
