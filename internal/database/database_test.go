package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"trade-alerts/internal/alert"
	"trade-alerts/internal/hash"
	"trade-alerts/internal/types"
)

var _ alert.Repository = (*Store)(nil)

func newTestStore(t *testing.T, config types.TableConfig) *Store {
	t.Helper()
	s, err := InitDB(filepath.Join(t.TempDir(), "alerts.db"), config)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { s.CloseDB() })
	return s
}

func TestAddAlertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	a := hash.NewAlert(100.0, "aapl", "u1").WithDirection(types.DirectionAbove)
	for i := 0; i < 2; i++ {
		if err := s.AddAlert(ctx, a, config); err != nil {
			t.Fatalf("add #%d: %v", i+1, err)
		}
	}

	hashes, err := s.FetchHashesByUserID(ctx, "u1", config)
	if err != nil {
		t.Fatalf("fetch hashes: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != a.Hash {
		t.Fatalf("expected exactly [%s], got %v", a.Hash, hashes)
	}

	got, err := s.FetchDetailsByHash(ctx, a.Hash, config)
	if err != nil {
		t.Fatalf("fetch details: %v", err)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected created_at to be read back")
	}
	if withoutCreatedAt(got) != a {
		t.Errorf("expected %+v, got %+v", a, got)
	}
}

func withoutCreatedAt(a types.Alert) types.Alert {
	a.CreatedAt = time.Time{}
	return a
}

func TestFetchHashesByUserIDEmpty(t *testing.T) {
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	hashes, err := s.FetchHashesByUserID(context.Background(), "nobody", config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hashes == nil || len(hashes) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", hashes)
	}
}

func TestFetchDetailsNotFound(t *testing.T) {
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	_, err := s.FetchDetailsByHash(context.Background(), "xlx-a-missing", config)
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var re *types.RepositoryError
	if !errors.As(err, &re) {
		t.Errorf("expected RepositoryError, got %T", err)
	}
}

func TestDeleteAlertsByHashes(t *testing.T) {
	ctx := context.Background()
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	keep := hash.NewAlert(1, "btc", "u1")
	drop := hash.NewAlert(2, "btc", "u1")
	for _, a := range []types.Alert{keep, drop} {
		if err := s.AddAlert(ctx, a, config); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := s.DeleteAlertsByHashes(ctx, types.NewHashSet(drop.Hash, "xlx-a-absent"), config); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// deleting again is not an error
	if err := s.DeleteAlertsByHashes(ctx, types.NewHashSet(drop.Hash), config); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.DeleteAlertsByHashes(ctx, types.NewHashSet(), config); err != nil {
		t.Fatalf("empty delete: %v", err)
	}

	if _, err := s.FetchDetailsByHash(ctx, drop.Hash, config); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected deleted alert to be gone, got %v", err)
	}
	if _, err := s.FetchDetailsByHash(ctx, keep.Hash, config); err != nil {
		t.Errorf("expected kept alert to remain, got %v", err)
	}
}

func TestDeleteManyHashes(t *testing.T) {
	ctx := context.Background()
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	set := types.NewHashSet()
	for i := 0; i < deleteBatchSize+20; i++ {
		a := hash.NewAlert(float64(i), "eth", fmt.Sprintf("u%d", i%3))
		if err := s.AddAlert(ctx, a, config); err != nil {
			t.Fatalf("add: %v", err)
		}
		set.Add(a.Hash)
	}

	if err := s.DeleteAlertsByHashes(ctx, set, config); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := s.FetchAllAlerts(ctx, config)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected empty table, got %d alerts", len(all))
	}
}

func TestUniqueSymbolsAndAllAlerts(t *testing.T) {
	ctx := context.Background()
	config := types.NewTableConfig("price_alerts", "alert_hash", "level", "owner", "pair")
	config.DirectionColumnName = "side"
	s := newTestStore(t, config)

	alerts := []types.Alert{
		hash.NewAlert(0.9, "aud/chf", "u1").WithDirection(types.DirectionAbove),
		hash.NewAlert(0.8, "aud/chf", "u2").WithDirection(types.DirectionBelow),
		hash.NewAlert(1.1, "eur/usd", "u1"),
	}
	for _, a := range alerts {
		if err := s.AddAlert(ctx, a, config); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	symbols, err := s.FetchUniqueSymbols(ctx, config)
	if err != nil {
		t.Fatalf("fetch symbols: %v", err)
	}
	if got := symbols.Slice(); len(got) != 2 || got[0] != "aud/chf" || got[1] != "eur/usd" {
		t.Errorf("expected [aud/chf eur/usd], got %v", got)
	}

	all, err := s.FetchAllAlerts(ctx, config)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != len(alerts) {
		t.Fatalf("expected %d alerts, got %d", len(alerts), len(all))
	}
	byHash := make(map[types.Hash]types.Alert)
	for _, a := range all {
		byHash[a.Hash] = a
	}
	for _, a := range alerts {
		if withoutCreatedAt(byHash[a.Hash]) != a {
			t.Errorf("expected %+v, got %+v", a, byHash[a.Hash])
		}
	}
}

func TestInvalidTableConfig(t *testing.T) {
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	bad := config
	bad.TableName = "alerts\"; DROP TABLE alerts; --"
	err := s.AddAlert(context.Background(), hash.NewAlert(1, "btc", "u1"), bad)
	if !errors.Is(err, types.ErrInvalidTableConfig) {
		t.Errorf("expected ErrInvalidTableConfig, got %v", err)
	}

	if _, err := InitDB(filepath.Join(t.TempDir(), "bad.db"), bad); !errors.Is(err, types.ErrInvalidTableConfig) {
		t.Errorf("InitDB should reject the config, got %v", err)
	}
}

func TestReconcileAgainstStore(t *testing.T) {
	ctx := context.Background()
	config := types.DefaultTableConfig()
	s := newTestStore(t, config)

	a := hash.NewAlert(100.0, "aapl", "u1")
	if err := s.AddAlert(ctx, a, config); err != nil {
		t.Fatalf("add: %v", err)
	}

	r := alert.NewReconciler(staticOracle{"aapl": 105.0}, alert.NewEvaluator(types.DirectionAbove))
	triggered, err := r.CheckAndFetchTriggeredAlertHashes(ctx, s, config)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !triggered.Contains(a.Hash) {
		t.Fatalf("expected %s triggered", a.Hash)
	}
	if err := r.DeleteTriggeredAlertsByHashes(ctx, s, config, triggered); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FetchDetailsByHash(ctx, a.Hash, config); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	s := newTestStore(t, types.DefaultTableConfig())

	if v, err := s.GetMetric("passes_total"); err != nil || v != 0 {
		t.Fatalf("missing metric should read 0, got %v, %v", v, err)
	}
	if err := s.SaveMetric("passes_total", 3); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveMetric("passes_total", 4); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if v, err := s.GetMetric("passes_total"); err != nil || v != 4 {
		t.Errorf("expected 4, got %v, %v", v, err)
	}

	if err := s.SaveMetricWithLabels("triggered_per_symbol_total", "symbol", "btc", 2); err != nil {
		t.Fatalf("save labeled: %v", err)
	}
	labeled, err := s.GetMetricsWithLabels("triggered_per_symbol_total")
	if err != nil {
		t.Fatalf("get labeled: %v", err)
	}
	if labeled["symbol"]["btc"] != 2 {
		t.Errorf("expected btc=2, got %v", labeled)
	}
}

type staticOracle types.Prices

func (o staticOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	out := make(types.Prices)
	for s := range symbols {
		if p, ok := o[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}
