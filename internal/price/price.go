package price

import (
	"context"
	"strconv"
	"strings"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

const quoteCurrency = "USD"

type listTickersFunc func(options *coinpaprika.TickersOptions) ([]*coinpaprika.Ticker, error)

// PaprikaOracle prices symbols from the CoinPaprika tickers endpoint. A
// symbol matches either a ticker id (btc-bitcoin) or a ticker symbol (btc).
type PaprikaOracle struct {
	listTickers listTickersFunc
}

// NewPaprikaOracle creates an oracle using the pro API when apiProKey is set.
func NewPaprikaOracle(apiProKey string) *PaprikaOracle {
	var client *coinpaprika.Client
	if apiProKey != "" {
		client = coinpaprika.NewClient(nil, coinpaprika.WithAPIKey(apiProKey))
	} else {
		client = coinpaprika.NewClient(nil)
	}
	return &PaprikaOracle{listTickers: client.Tickers.List}
}

// FetchPricesForSymbols fetches all tickers once and picks out the requested symbols.
func (o *PaprikaOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	prices := make(types.Prices)
	if symbols.Len() == 0 {
		return prices, nil
	}

	type listResult struct {
		tickers []*coinpaprika.Ticker
		err     error
	}
	done := make(chan listResult, 1)
	go func() {
		tickers, err := o.listTickers(&coinpaprika.TickersOptions{Quotes: quoteCurrency})
		done <- listResult{tickers: tickers, err: err}
	}()

	var res listResult
	select {
	case <-ctx.Done():
		return nil, types.NewOracleError(ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, types.NewOracleError(errors.Wrap(res.err, "failed to fetch coinpaprika tickers"))
	}

	index := indexTickers(res.tickers)
	for symbol := range symbols {
		if p, ok := index[types.NormalizeSymbol(symbol)]; ok {
			prices[symbol] = p
			continue
		}
		log.Debugf("⚠️ No price data found for symbol: %s", symbol)
	}
	return prices, nil
}

// indexTickers maps ids and symbols to USD prices. Tickers come ranked, so
// the best ranked coin keeps a shared symbol.
func indexTickers(tickers []*coinpaprika.Ticker) map[string]float64 {
	index := make(map[string]float64, len(tickers)*2)
	for _, t := range tickers {
		if t == nil || t.ID == nil {
			continue
		}
		quote, ok := t.Quotes[quoteCurrency]
		if !ok || quote.Price == nil {
			continue
		}
		index[strings.ToLower(*t.ID)] = *quote.Price
		if t.Symbol != nil {
			symbol := strings.ToLower(*t.Symbol)
			if _, taken := index[symbol]; !taken {
				index[symbol] = *quote.Price
			}
		}
	}
	return index
}

// StaticOracle serves fixed prices.
type StaticOracle types.Prices

func (o StaticOracle) FetchPricesForSymbols(ctx context.Context, symbols types.SymbolSet) (types.Prices, error) {
	prices := make(types.Prices, symbols.Len())
	for symbol := range symbols {
		if p, ok := o[symbol]; ok {
			prices[symbol] = p
		}
	}
	return prices, nil
}

// ParseStaticPrices reads "symbol=price" pairs separated by commas, e.g.
// "aapl=105,eur/usd=1.09".
func ParseStaticPrices(s string) (StaticOracle, error) {
	o := make(StaticOracle)
	for _, pair := range strings.Split(s, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		symbol, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.Errorf("static price %q is not symbol=price", pair)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "static price for %s", symbol)
		}
		o[types.NormalizeSymbol(symbol)] = p
	}
	return o, nil
}
