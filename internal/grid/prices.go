package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GeneratePrices returns n prices spaced evenly from high down to low, both ends included.
// A single grid sits at high.
func GeneratePrices(high, low float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{high}
	}

	prices := floats.Span(make([]float64, n), high, low)
	// Span accumulates steps; pin the endpoints.
	prices[0], prices[n-1] = high, low
	return prices
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

func planCost(prices []float64, shares []int) float64 {
	var cost float64
	for i, p := range prices {
		cost += p * float64(shares[i])
	}
	return cost
}
