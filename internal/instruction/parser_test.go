package instruction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestParse(t *testing.T) {
	testCases := []struct {
		name               string
		instruction        string
		expectedSymbol     string
		expectedPrice      float64
		expectedStopLoss   float64
		expectedRange      PriceRange
		expectedResistance *float64
	}{
		{
			name:               "Range with stop-loss and resistance",
			instruction:        "AAPL 150-155 止损145 压力160",
			expectedSymbol:     "AAPL",
			expectedPrice:      155,
			expectedStopLoss:   145,
			expectedRange:      PriceRange{Low: 150, High: 155},
			expectedResistance: floatPtr(160),
		},
		{
			name:               "Intraday marker is dropped",
			instruction:        "日内SOXL 现价到30之间分批入，压力31.5，止损29.5",
			expectedSymbol:     "SOXL",
			expectedPrice:      30,
			expectedStopLoss:   29.5,
			expectedRange:      PriceRange{Low: 30, High: 30},
			expectedResistance: floatPtr(31.5),
		},
		{
			name:             "Single price with stop-loss",
			instruction:      "AAPL 现价150区间买入，止损145",
			expectedSymbol:   "AAPL",
			expectedPrice:    150,
			expectedStopLoss: 145,
			expectedRange:    PriceRange{Low: 150, High: 150},
		},
		{
			name:             "Range uses its high as the current price",
			instruction:      "TSLA 230-240之间建仓，止损220",
			expectedSymbol:   "TSLA",
			expectedPrice:    240,
			expectedStopLoss: 220,
			expectedRange:    PriceRange{Low: 230, High: 240},
		},
		{
			name:               "Single price without stop-loss falls back to 95%",
			instruction:        "GOOGL 2800附近买入，压力2900",
			expectedSymbol:     "GOOGL",
			expectedPrice:      2800,
			expectedStopLoss:   2660,
			expectedRange:      PriceRange{Low: 2800, High: 2800},
			expectedResistance: floatPtr(2900),
		},
		{
			name:             "Range without stop-loss falls back to its low",
			instruction:      "OXY 日内区间56.4-57，我待会通知大家如何做财报",
			expectedSymbol:   "OXY",
			expectedPrice:    57,
			expectedStopLoss: 56.4,
			expectedRange:    PriceRange{Low: 56.4, High: 57},
		},
		{
			name:               "English markers",
			instruction:        "intraday soxl 30 to 31 SL 29.5 resistance 32",
			expectedSymbol:     "SOXL",
			expectedPrice:      31,
			expectedStopLoss:   29.5,
			expectedRange:      PriceRange{Low: 30, High: 31},
			expectedResistance: floatPtr(32),
		},
		{
			name:             "Stop-loss before the price",
			instruction:      "STOP LOSS: 95 NVDA 100~104",
			expectedSymbol:   "NVDA",
			expectedPrice:    104,
			expectedStopLoss: 95,
			expectedRange:    PriceRange{Low: 100, High: 104},
		},
		{
			name:             "NEAR separator",
			instruction:      "AAPL 150 NEAR 155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
		{
			name:             "BETWEEN and AND",
			instruction:      "AAPL BETWEEN 150 AND 155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
		{
			name:             "附近 separator",
			instruction:      "AAPL 150附近155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
		{
			name:             "之间 separator",
			instruction:      "AAPL 150之间155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
		{
			name:             "TO without spaces",
			instruction:      "AAPL 150TO155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
		{
			name:             "Lowercase to",
			instruction:      "aapl 150 to 155",
			expectedSymbol:   "AAPL",
			expectedPrice:    155,
			expectedStopLoss: 150,
			expectedRange:    PriceRange{Low: 150, High: 155},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.instruction, nil)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedSymbol, p.Symbol)
			assert.InDelta(t, tc.expectedPrice, p.CurrentPrice, 0.001)
			assert.InDelta(t, tc.expectedStopLoss, p.StopLoss, 0.001)
			require.NotNil(t, p.PriceRange)
			assert.InDelta(t, tc.expectedRange.Low, p.PriceRange.Low, 0.001)
			assert.InDelta(t, tc.expectedRange.High, p.PriceRange.High, 0.001)
			if tc.expectedResistance == nil {
				assert.Nil(t, p.Resistance)
			} else {
				require.NotNil(t, p.Resistance)
				assert.InDelta(t, *tc.expectedResistance, *p.Resistance, 0.001)
			}
			assert.Empty(t, p.PriceWarning)
			assert.Empty(t, p.StopLossWarning)
		})
	}
}

func TestParse_StopLossAtOrAbovePrice(t *testing.T) {
	p, err := Parse("AAPL 150 止损160", nil)
	require.NoError(t, err)

	assert.InDelta(t, 142.5, p.StopLoss, 0.001)
	assert.Contains(t, p.StopLossWarning, "not below the current price")
}

func TestParse_ExternalPrice(t *testing.T) {
	t.Run("Far from market", func(t *testing.T) {
		p, err := Parse("GOOGL 2800附近买入", floatPtr(3500))
		require.NoError(t, err)
		assert.InDelta(t, 2800, p.CurrentPrice, 0.001)
		assert.NotEmpty(t, p.PriceWarning)
	})

	t.Run("Close to market", func(t *testing.T) {
		p, err := Parse("GOOGL 2800附近买入", floatPtr(2900))
		require.NoError(t, err)
		assert.Empty(t, p.PriceWarning)
	})

	t.Run("Checked after parsing", func(t *testing.T) {
		p, err := Parse("AAPL 100", nil)
		require.NoError(t, err)
		p.CheckPrice(0)
		assert.Empty(t, p.PriceWarning)
		p.CheckPrice(89)
		assert.Contains(t, p.PriceWarning, "more than 10%")
	})
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name        string
		instruction string
		reason      string
	}{
		{name: "No price", instruction: "买入 AAPL", reason: "no price"},
		{name: "Inverted range", instruction: "XYZ 100到90之间买入", reason: "starts above its end"},
		{name: "Word instead of price", instruction: "ABC 现价到stop之间买入", reason: "no price"},
		{name: "No symbol", instruction: "150-155 止损145", reason: "no symbol"},
		{name: "Only a stop-loss", instruction: "AAPL 止损145", reason: "no price"},
		{name: "Empty", instruction: "", reason: "no symbol"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.instruction, nil)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInstructionParse))
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}
