package alert

import (
	"context"

	"trade-alerts/internal/types"
)

// PriceOracle returns current prices for a set of symbols. Symbols it
// cannot resolve are left out of the result; a failure of the provider
// fails the whole call.
type PriceOracle interface {
	FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error)
}

// Repository persists alerts. Every field name is routed through the TableConfig.
type Repository interface {
	// AddAlert inserts the alert; adding an existing hash again is a no-op.
	AddAlert(ctx context.Context, alert types.Alert, config types.TableConfig) error
	FetchHashesByUserID(ctx context.Context, userID string, config types.TableConfig) ([]types.Hash, error)
	// FetchDetailsByHash fails with types.ErrNotFound when the hash is absent.
	FetchDetailsByHash(ctx context.Context, hash types.Hash, config types.TableConfig) (types.Alert, error)
	// DeleteAlertsByHashes ignores hashes that are already gone.
	DeleteAlertsByHashes(ctx context.Context, hashes types.HashSet, config types.TableConfig) error
	FetchUniqueSymbols(ctx context.Context, config types.TableConfig) (types.SymbolSet, error)
	FetchAllAlerts(ctx context.Context, config types.TableConfig) ([]types.Alert, error)
}

// Notifier tells an alert's owner that it triggered.
type Notifier interface {
	NotifyTriggered(ctx context.Context, alert types.Alert, price float64) error
}

// Recorder receives the outcome of each pass.
type Recorder interface {
	PassCompleted(triggered []types.Alert)
	PassFailed()
	NotificationFailed()
}
