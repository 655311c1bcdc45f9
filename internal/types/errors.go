package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when an alert hash does not exist in the store.
	ErrNotFound           = errors.New("alert not found")
	ErrInvalidTableConfig = errors.New("invalid table config")
	ErrInvalidDirection   = errors.New("invalid direction")
)

// OracleError means the price provider was unreachable or returned unusable data.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("price oracle: %v", e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// NewOracleError wraps err unless it already is an OracleError.
func NewOracleError(err error) error {
	if err == nil {
		return nil
	}
	var oe *OracleError
	if errors.As(err, &oe) {
		return err
	}
	return &OracleError{Err: err}
}

// RepositoryError is a store failure for one repository operation.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("alert repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError wraps err with the failing operation name.
func NewRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RepositoryError{Op: op, Err: err}
}
