package types

import (
	"strings"

	"github.com/pkg/errors"
)

// Direction is the side of the price level an alert watches
type Direction string

const (
	DirectionUnset Direction = ""
	// DirectionAbove triggers once the price is at or above the level.
	DirectionAbove Direction = "above"
	// DirectionBelow triggers once the price is at or below the level.
	DirectionBelow Direction = "below"
)

// ParseDirection accepts above/below, the sell/buy names stored by older
// tables and the >= / <= comparators.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DirectionUnset, nil
	case "above", "sell", ">=", "up":
		return DirectionAbove, nil
	case "below", "buy", "<=", "down":
		return DirectionBelow, nil
	}
	return DirectionUnset, errors.Wrapf(ErrInvalidDirection, "%q", s)
}

// InferDirection picks the side to watch from the market price at creation time.
func InferDirection(currentPrice, priceLevel float64) Direction {
	if priceLevel >= currentPrice {
		return DirectionAbove
	}
	return DirectionBelow
}

// Crossed reports whether price is on or past level on this side.
// An unset direction never crosses.
func (d Direction) Crossed(price, level float64) bool {
	switch d {
	case DirectionAbove:
		return price >= level
	case DirectionBelow:
		return price <= level
	}
	return false
}

func (d Direction) String() string {
	if d == DirectionUnset {
		return "unset"
	}
	return string(d)
}
