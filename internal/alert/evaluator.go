package alert

import (
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

// Evaluator matches alerts against a price snapshot. Default applies to
// alerts stored without a direction.
type Evaluator struct {
	Default types.Direction
}

func NewEvaluator(defaultDirection types.Direction) Evaluator {
	return Evaluator{Default: defaultDirection}
}

// Direction returns the side a given alert is evaluated on.
func (e Evaluator) Direction(a types.Alert) types.Direction {
	if a.Direction != types.DirectionUnset {
		return a.Direction
	}
	return e.Default
}

// Triggered reports whether price is on or past the alert's level.
func (e Evaluator) Triggered(a types.Alert, price float64) bool {
	return e.Direction(a).Crossed(price, a.PriceLevel)
}

// Evaluate returns the hashes of the alerts whose condition holds. An alert
// whose symbol has no price is skipped for this pass.
func (e Evaluator) Evaluate(alerts []types.Alert, prices types.Prices) types.HashSet {
	triggered := make(types.HashSet)

	for _, a := range alerts {
		price, ok := prices[a.Symbol]
		if !ok {
			log.Debugf("No price for symbol %s, skipping alert %s", a.Symbol, a.Hash)
			continue
		}

		log.WithFields(log.Fields{
			"hash":      a.Hash,
			"symbol":    a.Symbol,
			"level":     a.PriceLevel,
			"price":     price,
			"direction": e.Direction(a),
		}).Debug("Checking alert")

		if e.Triggered(a, price) {
			triggered.Add(a.Hash)
		}
	}

	return triggered
}
