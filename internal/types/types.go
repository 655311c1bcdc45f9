package types

import (
	"strings"
	"time"
)

// Hash identifies an alert. Two hashes are the same alert when the strings are equal.
type Hash string

func (h Hash) String() string {
	return string(h)
}

// HashComponents is the tuple an alert hash is derived from
type HashComponents struct {
	PriceLevel float64
	UserID     string
	Symbol     string
}

// Alert is a user's price-level watch on a symbol
type Alert struct {
	Hash       Hash      `json:"hash"`
	PriceLevel float64   `json:"price_level"`
	Symbol     string    `json:"symbol"`
	UserID     string    `json:"user_id"`
	Direction  Direction `json:"initial_direction,omitempty"`
	// CreatedAt is set by the store and is not part of the alert's identity.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewAlert builds an alert without validating its fields.
func NewAlert(hash Hash, priceLevel float64, symbol, userID string) Alert {
	return Alert{
		Hash:       hash,
		PriceLevel: priceLevel,
		Symbol:     symbol,
		UserID:     userID,
	}
}

// WithDirection returns a copy of the alert watching the given side of its level.
func (a Alert) WithDirection(d Direction) Alert {
	a.Direction = d
	return a
}

// Components returns the fields the alert hash is derived from.
func (a Alert) Components() HashComponents {
	return HashComponents{
		PriceLevel: a.PriceLevel,
		UserID:     a.UserID,
		Symbol:     a.Symbol,
	}
}

// Prices maps a symbol to its current price
type Prices map[string]float64

// NormalizeSymbol brings a symbol into the form alerts are stored and priced under.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
