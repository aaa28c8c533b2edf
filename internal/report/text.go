// Package report renders buy plans for people (text) and spreadsheets (CSV).
package report

import (
	"fmt"
	"io"

	"grid-buy-planner/internal/grid"
)

// LargePlanShares is the share count above which the report adds a notice.
const LargePlanShares = 100_000

// errWriter remembers the first write error so the report can be written without per-line checks.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// WriteText writes a human-readable report of res. symbol may be empty.
func WriteText(w io.Writer, symbol string, res *grid.Result) error {
	ew := &errWriter{w: w}
	req := res.Request

	if symbol != "" {
		ew.printf("Symbol: %s\n", symbol)
	}
	ew.printf("Total funds: %.2f\n", req.Funds+res.Reserved)
	if res.Reserved > 0 {
		ew.printf("Reserved funds: %.2f\n", res.Reserved)
		ew.printf("Available funds: %.2f\n", req.Funds)
	}
	ew.printf("Initial price: %.2f\n", req.InitialPrice)
	ew.printf("Stop-loss price: %.2f\n", req.StopLossPrice)
	ew.printf("Grids: %d\n", len(res.Entries))

	writeMethod(ew, res)

	ew.printf("\nBuy plan:\n")
	for _, e := range res.Entries {
		ew.printf("  price %10.2f   shares %8d   amount %12.2f\n", e.Price, e.Quantity, e.Price*float64(e.Quantity))
	}

	s := res.Summary
	ew.printf("\nTotal shares: %d\n", s.TotalShares)
	ew.printf("Total cost: %.2f\n", s.TotalCost)
	ew.printf("Average price: %.2f\n", s.AveragePrice)

	ew.printf("\nMaximum loss: %.2f (at the stop-loss price)\n", s.MaxLoss)
	ew.printf("Maximum loss ratio: %.2f%% of cost\n", s.MaxLossPercentage)

	for _, warning := range res.Warnings {
		ew.printf("\nWarning: %s\n", warning)
	}
	if s.TotalShares > LargePlanShares {
		ew.printf("\nNote: this plan buys a very large number of shares.\n")
	}
	return ew.err
}

func writeMethod(ew *errWriter, res *grid.Result) {
	switch res.Request.Method {
	case grid.MethodEqual:
		var avg float64
		if n := len(res.Entries); n > 0 {
			avg = res.Summary.TotalCost / float64(n)
		}
		ew.printf("Allocation: equal shares (about %.0f per grid)\n", avg)
		ew.printf("Every price level buys the same number of shares.\n")
	case grid.MethodExponential:
		ew.printf("Allocation: exponential\n")
		ew.printf("Shares grow exponentially as the price falls; the lowest level gets the most.\n")
	case grid.MethodLinear:
		ew.printf("Allocation: linear weighted\n")
		ew.printf("Shares grow linearly as the price falls; the lowest level weighs %d times the highest.\n",
			len(res.Entries))
	}
}
