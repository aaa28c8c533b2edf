package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"grid-buy-planner/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallPlan(t *testing.T, reserve float64) *grid.Result {
	res, err := grid.NewPlanner().CalculateWithReserve(grid.Request{
		Funds: 1000 / (1 - reserve/100), InitialPrice: 10, StopLossPrice: 9, NumGrids: 5, Method: grid.MethodEqual,
	}, reserve)
	require.NoError(t, err)
	return res
}

func TestWriteText(t *testing.T) {
	t.Run("Plan without reserve", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, "AAPL", smallPlan(t, 0)))
		out := buf.String()

		assert.Contains(t, out, "Symbol: AAPL\n")
		assert.Contains(t, out, "Total funds: 1000.00\n")
		assert.NotContains(t, out, "Reserved funds")
		assert.Contains(t, out, "Allocation: equal shares (about 200 per grid)")
		assert.Contains(t, out, "Total shares: 105\n")
		assert.Contains(t, out, "Total cost: 997.50\n")
		assert.Contains(t, out, "Average price: 9.50\n")
		assert.Contains(t, out, "Maximum loss: 52.50")
		assert.NotContains(t, out, "Warning:")
		assert.Equal(t, 5, strings.Count(out, "shares       21"))
	})

	t.Run("Reserve lines", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, "", smallPlan(t, 20)))
		out := buf.String()

		assert.NotContains(t, out, "Symbol:")
		assert.Contains(t, out, "Total funds: 1250.00\n")
		assert.Contains(t, out, "Reserved funds: 250.00\n")
		assert.Contains(t, out, "Available funds: 1000.00\n")
	})

	t.Run("Warnings and large plan notice", func(t *testing.T) {
		res := &grid.Result{
			Request:  grid.Request{Funds: 1e7, InitialPrice: 10, StopLossPrice: 5, NumGrids: 2, Method: grid.MethodLinear},
			Entries:  []grid.Entry{{Price: 10, Quantity: 300000}, {Price: 5, Quantity: 600000}},
			Warnings: []string{"first", "second"},
			Summary:  grid.Summary{TotalShares: 900000},
		}
		var buf bytes.Buffer
		require.NoError(t, WriteText(&buf, "", res))
		out := buf.String()

		assert.Contains(t, out, "Allocation: linear weighted")
		assert.Contains(t, out, "weighs 2 times the highest")
		assert.Contains(t, out, "Warning: first\n")
		assert.Contains(t, out, "Warning: second\n")
		assert.Contains(t, out, "Note: this plan buys a very large number of shares.")
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteText_WriteError(t *testing.T) {
	err := WriteText(failingWriter{}, "AAPL", smallPlan(t, 0))
	assert.EqualError(t, err, "broken pipe")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, smallPlan(t, 0)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "price,quantity,amount", lines[0])
	assert.Equal(t, "10.00,21,210.00", lines[1])
	assert.Equal(t, "9.75,21,204.75", lines[2])
	assert.Equal(t, "9.00,21,189.00", lines[5])
}
