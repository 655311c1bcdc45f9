package price

import (
	"context"
	"sync"
	"time"

	"trade-alerts/internal/alert"
	"trade-alerts/internal/types"
)

type cacheItem struct {
	Price      float64
	Expiration time.Time
}

// CachedOracle serves recently fetched prices for TTL and asks Oracle only
// for the symbols it has no fresh price for. Chat lookups go through it so
// repeated /p and /alert commands do not each hit the provider.
type CachedOracle struct {
	Oracle alert.PriceOracle
	TTL    time.Duration

	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func NewCachedOracle(oracle alert.PriceOracle, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		Oracle: oracle,
		TTL:    ttl,
		items:  make(map[string]cacheItem),
		now:    time.Now,
	}
}

func (o *CachedOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	prices := make(types.Prices, symbols.Len())
	missing := types.NewSymbolSet()

	o.mu.Lock()
	for symbol := range symbols {
		if item, found := o.items[symbol]; found && o.now().Before(item.Expiration) {
			prices[symbol] = item.Price
			continue
		}
		missing.Add(symbol)
	}
	o.mu.Unlock()

	if missing.Len() == 0 {
		return prices, nil
	}

	fetched, err := o.Oracle.FetchPricesForSymbols(ctx, missing)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	expiration := o.now().Add(o.TTL)
	for symbol, p := range fetched {
		o.items[symbol] = cacheItem{Price: p, Expiration: expiration}
		prices[symbol] = p
	}
	return prices, nil
}
