package quote

import (
	"context"
	"fmt"
	"strings"

	"grid-buy-planner/internal/config"

	"go.uber.org/zap"
)

const yahooSourceLabel = "Yahoo Finance"

// YahooClient reads the regular market price from the Yahoo Finance chart API.
type YahooClient struct {
	rest   *restClient
	logger *zap.Logger
}

var _ PriceQuerier = (*YahooClient)(nil)

// NewYahooClient creates a Yahoo Finance client.
func NewYahooClient(cfg *config.Quote, logger *zap.Logger) *YahooClient {
	logger = logger.Named("yahoo")
	return &YahooClient{
		rest:   newRestClient(cfg.YahooBaseURL, cfg, logger),
		logger: logger,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice fetches the latest regular market price of symbol.
func (c *YahooClient) GetPrice(ctx context.Context, symbol string) (float64, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	req := c.rest.client.R().
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{"range": "1d", "interval": "1d"}).
		SetResult(&yahooChartResponse{})

	resp, err := c.rest.doRequest(ctx, "GET", "/v8/finance/chart/{symbol}", req)
	if err != nil {
		c.logger.Error("Failed to get price", zap.String("symbol", symbol), zap.Error(err))
		return 0, yahooSourceLabel, fmt.Errorf("%w: yahoo finance %s: %v", ErrPriceQuery, symbol, err)
	}

	result := resp.Result().(*yahooChartResponse)
	if result.Chart.Error != nil {
		return 0, yahooSourceLabel, fmt.Errorf("%w: yahoo finance %s: %s", ErrPriceQuery, symbol, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || result.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return 0, yahooSourceLabel, fmt.Errorf("%w: yahoo finance returned no data for %s", ErrPriceQuery, symbol)
	}

	price := roundPrice(result.Chart.Result[0].Meta.RegularMarketPrice)
	c.logger.Info("Retrieved price", zap.String("symbol", symbol), zap.Float64("price", price))
	return price, yahooSourceLabel, nil
}
