package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// exponentialSkew controls how strongly the exponential method favours the
// lowest prices: the cheapest grid weighs e^3 times the most expensive one.
const exponentialSkew = 3.0

// Strategy computes one relative weight per grid price, in the same order.
type Strategy interface {
	Weights(prices []float64) []float64
	Label() string
}

// EqualStrategy gives every grid the same share count (not the same amount of money).
type EqualStrategy struct{}

func (EqualStrategy) Weights(prices []float64) []float64 {
	return ones(len(prices))
}

func (EqualStrategy) Label() string { return "Equal shares" }

// ExponentialStrategy weighs each grid by exp(3 * (max - price) / range).
type ExponentialStrategy struct{}

func (ExponentialStrategy) Weights(prices []float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	maxPrice := floats.Max(prices)
	priceRange := maxPrice - floats.Min(prices)
	if priceRange == 0 {
		return ones(len(prices))
	}

	weights := make([]float64, len(prices))
	for i, p := range prices {
		weights[i] = math.Exp(exponentialSkew * (maxPrice - p) / priceRange)
	}
	return weights
}

func (ExponentialStrategy) Label() string { return "Exponential" }

// LinearStrategy weighs each grid by its 1-based position, so the last
// (lowest) price gets the largest weight.
type LinearStrategy struct{}

func (LinearStrategy) Weights(prices []float64) []float64 {
	weights := make([]float64, len(prices))
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	return weights
}

func (LinearStrategy) Label() string { return "Linear weighted" }

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
