package types

import (
	"regexp"

	"github.com/pkg/errors"
)

const DefaultDirectionColumn = "initial_direction"

// TableConfig names the store table and the columns alert fields live in.
type TableConfig struct {
	TableName            string
	HashColumnName       string
	PriceLevelColumnName string
	UserIDColumnName     string
	SymbolColumnName     string
	DirectionColumnName  string
}

func NewTableConfig(table, hashColumn, priceLevelColumn, userIDColumn, symbolColumn string) TableConfig {
	return TableConfig{
		TableName:            table,
		HashColumnName:       hashColumn,
		PriceLevelColumnName: priceLevelColumn,
		UserIDColumnName:     userIDColumn,
		SymbolColumnName:     symbolColumn,
		DirectionColumnName:  DefaultDirectionColumn,
	}
}

func DefaultTableConfig() TableConfig {
	return NewTableConfig("alerts", "hash", "price_level", "user_id", "symbol")
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks every name is a plain SQL identifier.
func (c TableConfig) Validate() error {
	names := []struct {
		field string
		value string
	}{
		{"table", c.TableName},
		{"hash column", c.HashColumnName},
		{"price level column", c.PriceLevelColumnName},
		{"user id column", c.UserIDColumnName},
		{"symbol column", c.SymbolColumnName},
		{"direction column", c.DirectionColumnName},
	}

	seen := make(map[string]string)
	for i, n := range names {
		if !identifierPattern.MatchString(n.value) {
			return errors.Wrapf(ErrInvalidTableConfig, "%s %q", n.field, n.value)
		}
		if i == 0 {
			continue
		}
		if other, dup := seen[n.value]; dup {
			return errors.Wrapf(ErrInvalidTableConfig, "%s and %s share column %q", other, n.field, n.value)
		}
		seen[n.value] = n.field
	}
	return nil
}
