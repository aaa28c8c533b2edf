// Package quote looks up the latest market price of a symbol from public
// quote providers. Prices are used to pre-fill a plan's initial price and to
// sanity-check parsed instructions; they are never streamed.
package quote

import (
	"context"
	"errors"
	"math"
)

const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alpha_vantage"
)

var (
	// ErrPriceQuery wraps every failure to obtain a price from a provider.
	ErrPriceQuery = errors.New("price query failed")
	// ErrUnknownProvider is returned when switching to a provider that is not registered.
	ErrUnknownProvider = errors.New("unknown price provider")
)

// PriceQuerier returns the latest price of a symbol and a label naming its source.
type PriceQuerier interface {
	GetPrice(ctx context.Context, symbol string) (float64, string, error)
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}
