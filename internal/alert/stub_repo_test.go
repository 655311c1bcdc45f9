package alert

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"trade-alerts/internal/types"
)

// stubRepo is a test-only in-memory Repository.
type stubRepo struct {
	mu      sync.Mutex
	alerts  map[types.Hash]types.Alert
	order   []types.Hash
	deletes int

	failFetch  error
	failDelete error
}

func newStubRepo(alerts ...types.Alert) *stubRepo {
	r := &stubRepo{alerts: make(map[types.Hash]types.Alert)}
	for _, a := range alerts {
		_ = r.AddAlert(context.Background(), a, types.DefaultTableConfig())
	}
	return r
}

func (r *stubRepo) AddAlert(ctx context.Context, alert types.Alert, config types.TableConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[alert.Hash]; ok {
		return nil
	}
	r.alerts[alert.Hash] = alert
	r.order = append(r.order, alert.Hash)
	return nil
}

func (r *stubRepo) FetchHashesByUserID(ctx context.Context, userID string, config types.TableConfig) ([]types.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := []types.Hash{}
	for _, h := range r.order {
		if a, ok := r.alerts[h]; ok && a.UserID == userID {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func (r *stubRepo) FetchDetailsByHash(ctx context.Context, hash types.Hash, config types.TableConfig) (types.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[hash]
	if !ok {
		return types.Alert{}, types.NewRepositoryError("fetch details", errors.Wrapf(types.ErrNotFound, "hash %s", hash))
	}
	return a, nil
}

func (r *stubRepo) DeleteAlertsByHashes(ctx context.Context, hashes types.HashSet, config types.TableConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return types.NewRepositoryError("delete", r.failDelete)
	}
	r.deletes++
	for h := range hashes {
		delete(r.alerts, h)
	}
	return nil
}

func (r *stubRepo) FetchUniqueSymbols(ctx context.Context, config types.TableConfig) (types.SymbolSet, error) {
	if r.failFetch != nil {
		return nil, types.NewRepositoryError("fetch symbols", r.failFetch)
	}
	alerts, _ := r.FetchAllAlerts(ctx, config)
	return types.SymbolsOf(alerts), nil
}

func (r *stubRepo) FetchAllAlerts(ctx context.Context, config types.TableConfig) ([]types.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFetch != nil {
		return nil, types.NewRepositoryError("fetch all", r.failFetch)
	}
	var out []types.Alert
	for _, h := range r.order {
		if a, ok := r.alerts[h]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// stubOracle returns fixed prices, or err when set.
type stubOracle struct {
	prices types.Prices
	err    error
	calls  int
	asked  []types.SymbolSet
}

func (o *stubOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	o.calls++
	o.asked = append(o.asked, symbols)
	if o.err != nil {
		return nil, o.err
	}
	out := make(types.Prices)
	for s := range symbols {
		if p, ok := o.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type stubNotifier struct {
	notified []types.Alert
	err      error
}

func (n *stubNotifier) NotifyTriggered(ctx context.Context, alert types.Alert, price float64) error {
	n.notified = append(n.notified, alert)
	return n.err
}

type stubRecorder struct {
	completed           int
	failed              int
	notificationsFailed int
	triggered           int
}

func (r *stubRecorder) PassCompleted(triggered []types.Alert) {
	r.completed++
	r.triggered += len(triggered)
}

func (r *stubRecorder) PassFailed() { r.failed++ }

func (r *stubRecorder) NotificationFailed() { r.notificationsFailed++ }
