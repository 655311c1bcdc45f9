package alert

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

// Result is the outcome of one evaluation: the triggered hashes plus the
// alerts and prices they were decided on.
type Result struct {
	Triggered types.HashSet
	Alerts    map[types.Hash]types.Alert
	Prices    types.Prices
}

// TriggeredAlerts returns the triggered alerts ordered by hash.
func (r Result) TriggeredAlerts() []types.Alert {
	out := make([]types.Alert, 0, r.Triggered.Len())
	for _, h := range r.Triggered.Slice() {
		if a, ok := r.Alerts[h]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Reconciler fetches prices, evaluates stored alerts and deletes triggered ones.
type Reconciler struct {
	Oracle    PriceOracle
	Evaluator Evaluator
}

func NewReconciler(oracle PriceOracle, evaluator Evaluator) *Reconciler {
	return &Reconciler{Oracle: oracle, Evaluator: evaluator}
}

// CheckAndFetchTriggeredAlertHashes evaluates every stored alert against
// current prices. Nothing is deleted.
func (r *Reconciler) CheckAndFetchTriggeredAlertHashes(ctx context.Context, repo Repository, config types.TableConfig) (types.HashSet, error) {
	res, err := r.Check(ctx, repo, config)
	if err != nil {
		return nil, err
	}
	return res.Triggered, nil
}

// Check is CheckAndFetchTriggeredAlertHashes keeping the evaluated alerts and prices.
func (r *Reconciler) Check(ctx context.Context, repo Repository, config types.TableConfig) (Result, error) {
	log.Debug("Fetching unique symbols...")
	symbols, err := repo.FetchUniqueSymbols(ctx, config)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetch unique symbols")
	}
	if symbols.Len() == 0 {
		log.Debug("No alerts stored, skipping price fetch")
		return emptyResult(), nil
	}

	prices, err := r.fetchPrices(ctx, symbols)
	if err != nil {
		return Result{}, err
	}

	alerts, err := repo.FetchAllAlerts(ctx, config)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetch all alerts")
	}

	return r.evaluate(alerts, prices), nil
}

// CheckAlerts evaluates a caller-supplied set of alerts instead of the whole store.
func (r *Reconciler) CheckAlerts(ctx context.Context, alerts []types.Alert) (Result, error) {
	if len(alerts) == 0 {
		return emptyResult(), nil
	}

	prices, err := r.fetchPrices(ctx, types.SymbolsOf(alerts))
	if err != nil {
		return Result{}, err
	}
	return r.evaluate(alerts, prices), nil
}

// DeleteTriggeredAlertsByHashes removes the given alerts. Deleting hashes
// that are already gone succeeds.
func (r *Reconciler) DeleteTriggeredAlertsByHashes(ctx context.Context, repo Repository, config types.TableConfig, hashes types.HashSet) error {
	if hashes.Len() == 0 {
		return nil
	}

	if err := repo.DeleteAlertsByHashes(ctx, hashes, config); err != nil {
		return errors.Wrapf(err, "delete %d triggered alerts", hashes.Len())
	}
	log.Debugf("Deleted triggered alerts: %v", hashes.Slice())
	return nil
}

func (r *Reconciler) fetchPrices(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	log.Debugf("Fetching prices for symbols: %v", symbols.Slice())
	prices, err := r.Oracle.FetchPricesForSymbols(ctx, symbols)
	if err != nil {
		return nil, types.NewOracleError(err)
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("Fetched prices: %s", spew.Sdump(prices))
	}
	return prices, nil
}

func (r *Reconciler) evaluate(alerts []types.Alert, prices types.Prices) Result {
	res := Result{
		Triggered: r.Evaluator.Evaluate(alerts, prices),
		Alerts:    make(map[types.Hash]types.Alert, len(alerts)),
		Prices:    prices,
	}
	for _, a := range alerts {
		res.Alerts[a.Hash] = a
	}
	log.Debugf("Triggered hashes: %v", res.Triggered.Slice())
	return res
}

func emptyResult() Result {
	return Result{
		Triggered: make(types.HashSet),
		Alerts:    make(map[types.Hash]types.Alert),
		Prices:    make(types.Prices),
	}
}
