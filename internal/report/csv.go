package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"grid-buy-planner/internal/grid"
)

// WriteCSV writes one price,quantity,amount row per grid after a header row.
func WriteCSV(w io.Writer, res *grid.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"price", "quantity", "amount"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range res.Entries {
		row := []string{
			strconv.FormatFloat(e.Price, 'f', 2, 64),
			strconv.Itoa(e.Quantity),
			strconv.FormatFloat(e.Price*float64(e.Quantity), 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
