package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"grid-buy-planner/internal/config"

	"go.uber.org/zap"
)

const alphaVantageSourceLabel = "Alpha Vantage"

// AlphaVantageClient reads prices from the Alpha Vantage GLOBAL_QUOTE endpoint.
type AlphaVantageClient struct {
	rest   *restClient
	apiKey string
	logger *zap.Logger
}

var _ PriceQuerier = (*AlphaVantageClient)(nil)

// NewAlphaVantageClient creates an Alpha Vantage client.
func NewAlphaVantageClient(cfg *config.Quote, logger *zap.Logger) *AlphaVantageClient {
	logger = logger.Named("alpha-vantage")
	return &AlphaVantageClient{
		rest:   newRestClient(cfg.AlphaVantageBaseURL, cfg, logger),
		apiKey: cfg.AlphaVantageKey,
		logger: logger,
	}
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	// Alpha Vantage answers throttled or unauthorised calls with 200 and one of these.
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// GetPrice fetches the latest price of symbol.
func (c *AlphaVantageClient) GetPrice(ctx context.Context, symbol string) (float64, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if c.apiKey == "" {
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage API key is not configured", ErrPriceQuery)
	}

	req := c.rest.client.R().
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		SetResult(&globalQuoteResponse{})

	resp, err := c.rest.doRequest(ctx, "GET", "/query", req)
	if err != nil {
		c.logger.Error("Failed to get price", zap.String("symbol", symbol), zap.Error(err))
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage %s: %v", ErrPriceQuery, symbol, err)
	}

	result := resp.Result().(*globalQuoteResponse)
	switch {
	case result.Note != "" || result.Information != "":
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage request limit reached", ErrPriceQuery)
	case result.ErrorMessage != "":
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage %s: %s", ErrPriceQuery, symbol, result.ErrorMessage)
	case result.GlobalQuote.Price == "":
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage returned no price for %s", ErrPriceQuery, symbol)
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil || price <= 0 {
		return 0, alphaVantageSourceLabel, fmt.Errorf("%w: alpha vantage returned invalid price %q for %s",
			ErrPriceQuery, result.GlobalQuote.Price, symbol)
	}

	c.logger.Info("Retrieved price", zap.String("symbol", symbol), zap.Float64("price", price))
	return price, alphaVantageSourceLabel, nil
}
