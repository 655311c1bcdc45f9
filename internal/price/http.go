package price

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trade-alerts/internal/types"
)

// HTTPOracle asks a real-time price endpoint for one symbol per request:
//
//	GET {endpoint}?symbol=aud/chf  ->  {"symbol": "aud/chf", "price": 0.6123}
//
// A 404 means the provider does not know the symbol. Any other failure
// fails the whole fetch.
type HTTPOracle struct {
	Key         string
	Endpoint    string
	Concurrency int
	client      *http.Client
}

type realTimePrice struct {
	Symbol string   `json:"symbol"`
	Price  *float64 `json:"price"`
}

var errSymbolUnknown = errors.New("symbol unknown to provider")

func NewHTTPOracle(key, endpoint string, timeout time.Duration, concurrency int) *HTTPOracle {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HTTPOracle{
		Key:         key,
		Endpoint:    endpoint,
		Concurrency: concurrency,
		client:      &http.Client{Timeout: timeout},
	}
}

// FetchPricesForSymbols requests every symbol concurrently.
func (o *HTTPOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	var mu sync.Mutex
	prices := make(types.Prices, symbols.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for _, symbol := range symbols.Slice() {
		symbol := symbol
		g.Go(func() error {
			p, err := o.RequestRealTimePrice(gctx, symbol)
			if errors.Is(err, errSymbolUnknown) {
				log.Debugf("⚠️ No price data found for symbol: %s", symbol)
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "symbol %s", symbol)
			}

			mu.Lock()
			prices[symbol] = p
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, types.NewOracleError(err)
	}
	return prices, nil
}

// RequestRealTimePrice fetches the current price of one symbol.
func (o *HTTPOracle) RequestRealTimePrice(ctx context.Context, symbol string) (float64, error) {
	u, err := url.Parse(o.Endpoint)
	if err != nil {
		return 0, errors.Wrap(err, "invalid price endpoint")
	}
	q := u.Query()
	q.Set("symbol", symbol)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, errors.Wrap(err, "could not build price request")
	}
	if o.Key != "" {
		req.Header.Set("Authorization", "Bearer "+o.Key)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fetch price")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, errSymbolUnknown
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, errors.Errorf("price endpoint returned %s", resp.Status)
	}

	var body realTimePrice
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, errors.Wrap(err, "failed to parse price response")
	}
	if body.Price == nil {
		return 0, errors.New("price response has no price")
	}
	return *body.Price, nil
}
