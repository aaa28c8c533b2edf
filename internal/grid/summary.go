package grid

import "fmt"

// Summarize derives the aggregate statistics of a plan. The worst case
// assumes every share is sold at the stop-loss price.
func Summarize(entries []Entry, stopLossPrice float64, label string) Summary {
	s := Summary{Method: label}
	for _, e := range entries {
		s.TotalShares += e.Quantity
		s.TotalCost += e.Price * float64(e.Quantity)
	}

	if s.TotalShares > 0 {
		s.AveragePrice = s.TotalCost / float64(s.TotalShares)
	}
	s.MaxLoss = s.TotalCost - stopLossPrice*float64(s.TotalShares)
	if s.TotalCost > 0 {
		s.MaxLossPercentage = s.MaxLoss / s.TotalCost * 100
	}
	return s
}

// thinPlanWarning flags plans where more than half the grids buy a single share.
func thinPlanWarning(entries []Entry, numGrids int) string {
	singles := 0
	for _, e := range entries {
		if e.Quantity == 1 {
			singles++
		}
	}
	if singles <= numGrids/2 {
		return ""
	}
	return fmt.Sprintf("%d of %d grids buy a single share; consider fewer grids or more funds", singles, numGrids)
}
