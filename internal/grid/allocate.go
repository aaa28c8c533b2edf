package grid

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// DefaultMaxIterations caps the leftover distribution loop.
const DefaultMaxIterations = 1_000_000

// Allocator turns grid prices into integer share counts.
type Allocator struct {
	maxIterations int
	logger        *zap.Logger
}

// NewAllocator creates an Allocator. A non-positive maxIterations falls back to DefaultMaxIterations.
func NewAllocator(maxIterations int, logger *zap.Logger) *Allocator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{maxIterations: maxIterations, logger: logger}
}

// Allocate spreads maxShares over prices according to strategy, scales the
// result down when it costs more than funds, and then spends what is left
// on the first affordable grid, repeatedly.
//
// Every grid receives at least one share, so a plan with many grids and
// little money can still cost more than funds.
func (a *Allocator) Allocate(prices []float64, strategy Strategy, maxShares int, funds float64) ([]int, error) {
	if len(prices) == 0 {
		return nil, nil
	}

	var shares []int
	if len(prices) == 1 {
		shares = []int{maxShares}
	} else {
		shares = a.weightedShares(prices, strategy, maxShares)
	}
	a.logger.Debug("Initial share allocation", zap.Ints("shares", shares))

	if cost := planCost(prices, shares); cost > funds {
		scale := funds / cost
		for i := range shares {
			shares[i] = max(1, int(math.Floor(float64(shares[i])*scale)))
		}
		a.logger.Debug("Scaled allocation to fit funds",
			zap.Float64("cost", cost),
			zap.Float64("scale", scale),
			zap.Ints("shares", shares))
	}

	if err := a.distributeLeftover(prices, shares, funds); err != nil {
		return nil, err
	}
	return shares, nil
}

func (a *Allocator) weightedShares(prices []float64, strategy Strategy, maxShares int) []int {
	weights := strategy.Weights(prices)
	totalWeight := floats.Sum(weights)

	shares := make([]int, len(prices))
	for i, w := range weights {
		shares[i] = max(1, int(math.Floor(float64(maxShares)*w/totalWeight)))
	}
	return shares
}

// distributeLeftover buys one more share on the first grid (in generation
// order) the remaining funds can afford, until they no longer exceed the
// cheapest price.
func (a *Allocator) distributeLeftover(prices []float64, shares []int, funds float64) error {
	remaining := funds - planCost(prices, shares)
	minPrice := floats.Min(prices)

	iterations := 0
	for remaining > minPrice {
		if iterations >= a.maxIterations {
			a.logger.Warn("Leftover distribution hit iteration ceiling",
				zap.Int("iterations", iterations),
				zap.Float64("remaining", remaining))
			return &AllocationNonConvergenceError{Iterations: iterations, Remaining: remaining}
		}
		iterations++

		bought := false
		for i, p := range prices {
			if remaining >= p {
				shares[i]++
				remaining -= p
				bought = true
				break
			}
		}
		if !bought {
			break
		}
	}

	a.logger.Debug("Leftover funds distributed",
		zap.Int("iterations", iterations),
		zap.Float64("remaining", remaining))
	return nil
}
