package types

import (
	"errors"
	"testing"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in       string
		expected Direction
		wantErr  bool
	}{
		{in: "above", expected: DirectionAbove},
		{in: " SELL ", expected: DirectionAbove},
		{in: ">=", expected: DirectionAbove},
		{in: "below", expected: DirectionBelow},
		{in: "Buy", expected: DirectionBelow},
		{in: "<=", expected: DirectionBelow},
		{in: "", expected: DirectionUnset},
		{in: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDirection) {
					t.Fatalf("expected ErrInvalidDirection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDirectionCrossed(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		price     float64
		level     float64
		expected  bool
	}{
		{"above - triggered", DirectionAbove, 151, 150, true},
		{"above - exact match", DirectionAbove, 150, 150, true},
		{"above - not triggered", DirectionAbove, 149.99, 150, false},
		{"below - triggered", DirectionBelow, 99, 100, true},
		{"below - exact match", DirectionBelow, 100, 100, true},
		{"below - not triggered", DirectionBelow, 101, 100, false},
		{"unset never triggers", DirectionUnset, 100, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.direction.Crossed(tt.price, tt.level); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestInferDirection(t *testing.T) {
	if d := InferDirection(100, 110); d != DirectionAbove {
		t.Errorf("level over current price: expected above, got %s", d)
	}
	if d := InferDirection(100, 90); d != DirectionBelow {
		t.Errorf("level under current price: expected below, got %s", d)
	}
	if d := InferDirection(100, 100); d != DirectionAbove {
		t.Errorf("level at current price: expected above, got %s", d)
	}
}

func TestTableConfigValidate(t *testing.T) {
	if err := DefaultTableConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	bad := map[string]TableConfig{
		"empty table":     NewTableConfig("", "hash", "price_level", "user_id", "symbol"),
		"injection":       NewTableConfig("alerts; DROP TABLE x", "hash", "price_level", "user_id", "symbol"),
		"duplicate names": NewTableConfig("alerts", "hash", "hash", "user_id", "symbol"),
	}
	for name, cfg := range bad {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidTableConfig) {
				t.Errorf("expected ErrInvalidTableConfig, got %v", err)
			}
		})
	}
}

func TestSetsCollapseDuplicates(t *testing.T) {
	hashes := NewHashSet("b", "a", "b")
	if hashes.Len() != 2 {
		t.Fatalf("expected 2 hashes, got %d", hashes.Len())
	}
	if got := hashes.Slice(); got[0] != "a" || got[1] != "b" {
		t.Errorf("expected sorted [a b], got %v", got)
	}

	symbols := SymbolsOf([]Alert{
		NewAlert("h1", 1, "aud/chf", "u1"),
		NewAlert("h2", 2, "aud/chf", "u2"),
		NewAlert("h3", 3, "eur/usd", "u1"),
	})
	if symbols.Len() != 2 || !symbols.Contains("aud/chf") || !symbols.Contains("eur/usd") {
		t.Errorf("unexpected symbol set %v", symbols.Slice())
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")

	err := NewOracleError(cause)
	var oe *OracleError
	if !errors.As(err, &oe) || !errors.Is(err, cause) {
		t.Errorf("expected OracleError wrapping cause, got %v", err)
	}
	if again := NewOracleError(err); again != err {
		t.Errorf("oracle error should not be wrapped twice")
	}

	err = NewRepositoryError("delete", cause)
	var re *RepositoryError
	if !errors.As(err, &re) || re.Op != "delete" {
		t.Errorf("expected RepositoryError for delete, got %v", err)
	}
	if NewRepositoryError("add", nil) != nil {
		t.Errorf("nil cause should stay nil")
	}
}
