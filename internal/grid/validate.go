package grid

import (
	"fmt"
	"math"
)

// DefaultMaxGrids is the grid ceiling used when none is configured.
const DefaultMaxGrids = 100

// maxShareCount bounds funds/stop-loss so the share count fits in an int.
const maxShareCount = float64(math.MaxInt)

// Validate checks req against the planning rules and returns an
// *InvalidInputError for the first rule that fails. A non-positive
// maxGrids falls back to DefaultMaxGrids.
func Validate(req Request, maxGrids int) error {
	if maxGrids <= 0 {
		maxGrids = DefaultMaxGrids
	}

	switch {
	case !isFinite(req.Funds):
		return &InvalidInputError{Field: "funds", Reason: "must be a finite number"}
	case req.Funds <= 0:
		return &InvalidInputError{Field: "funds", Reason: "must be positive"}
	case !isFinite(req.InitialPrice):
		return &InvalidInputError{Field: "initial_price", Reason: "must be a finite number"}
	case req.InitialPrice <= 0:
		return &InvalidInputError{Field: "initial_price", Reason: "must be positive"}
	case !isFinite(req.StopLossPrice):
		return &InvalidInputError{Field: "stop_loss_price", Reason: "must be a finite number"}
	case req.StopLossPrice <= 0:
		return &InvalidInputError{Field: "stop_loss_price", Reason: "must be positive"}
	case req.NumGrids <= 0:
		return &InvalidInputError{Field: "num_grids", Reason: "must be a positive integer"}
	case !req.Method.Valid():
		return &InvalidInputError{Field: "allocation_method", Reason: "must be equal (0), exponential (1) or linear (2)"}
	case req.StopLossPrice >= req.InitialPrice:
		return &InvalidInputError{Field: "stop_loss_price", Reason: "must be lower than the initial price"}
	case req.Funds < req.InitialPrice:
		return &InvalidInputError{Field: "funds", Reason: "must cover at least one share at the initial price"}
	case req.Funds/req.StopLossPrice >= maxShareCount:
		return &InvalidInputError{Field: "funds", Reason: "buys more shares at the stop-loss price than can be counted"}
	case req.NumGrids > maxGrids:
		return &InvalidInputError{Field: "num_grids", Reason: fmt.Sprintf("must not exceed %d", maxGrids)}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
