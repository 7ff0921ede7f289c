package domain

import "time"

// CardState represents the lifecycle state of a virtual card.
// Active → Cancelled happens through an explicit API call; Active → Expired
// is time-based and only ever observed at usage time, never transitioned
// eagerly. Neither terminal state allows further transitions.
type CardState string

const (
	CardActive    CardState = "active"
	CardCancelled CardState = "cancelled"
	CardExpired   CardState = "expired"
)

// VirtualCard is a single-use, spend-capped card locked to one merchant.
// Only the last four digits of the PAN ever leave the provider.
type VirtualCard struct {
	ID        string
	Last4     string
	Expiry    time.Time
	Limit     Money
	Merchant  string
	State     CardState
	CreatedAt time.Time
}

func (c *VirtualCard) IsExpired(now time.Time) bool {
	return now.After(c.Expiry)
}

// EffectiveState folds time-based expiry into the stored state. A cancelled
// card stays cancelled even past its expiry.
func (c *VirtualCard) EffectiveState(now time.Time) CardState {
	if c.State == CardActive && c.IsExpired(now) {
		return CardExpired
	}
	return c.State
}

// IsTerminal reports whether the card can still be used or cancelled.
func (c *VirtualCard) IsTerminal(now time.Time) bool {
	return c.EffectiveState(now) != CardActive
}

// CardTransaction is a single spend event on a virtual card as reported by
// the card provider.
type CardTransaction struct {
	ID          string    `json:"id"`
	Amount      Money     `json:"amount"`
	Status      string    `json:"status"`
	Merchant    string    `json:"merchant"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
