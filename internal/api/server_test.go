package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grid-buy-planner/internal/config"
	"grid-buy-planner/internal/metrics"
	"grid-buy-planner/internal/planner"
	"grid-buy-planner/internal/quote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockQuotes is a mock price provider set.
type MockQuotes struct {
	mock.Mock
}

func (m *MockQuotes) GetPrice(ctx context.Context, symbol string) (float64, string, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.String(1), args.Error(2)
}

func (m *MockQuotes) Current() string { return "yahoo" }

func (m *MockQuotes) Providers() []string { return []string{"alpha_vantage", "yahoo"} }

func (m *MockQuotes) Switch(name string) error {
	return m.Called(name).Error(0)
}

func setupServer(t *testing.T, quotes *MockQuotes) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)

	cfg := config.Planner{
		DefaultFunds:            50000,
		DefaultInitialPrice:     50,
		DefaultStopLossPrice:    30,
		DefaultNumGrids:         10,
		DefaultAllocationMethod: "exponential",
		MaxGrids:                100,
		MaxIterations:           1_000_000,
	}

	var source planner.QuoteSource
	var switcher ProviderSwitcher
	if quotes != nil {
		source, switcher = quotes, quotes
	}

	svc := planner.NewService(cfg, source, nil, recorder, zap.NewNop())
	s := NewServer(config.Server{Port: 0}, Options{
		Service:   svc,
		Providers: switcher,
		Recorder:  recorder,
		Gatherer:  reg,
		Logger:    zap.NewNop(),
	})
	return s.Handler()
}

func doRequest(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndDefaults(t *testing.T) {
	h := setupServer(t, nil)

	rec := doRequest(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = doRequest(h, http.MethodGet, "/api/defaults", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d planner.Defaults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 50000.0, d.Funds)
	assert.Equal(t, "exponential", d.AllocationMethod)
}

func TestPlan(t *testing.T) {
	h := setupServer(t, nil)

	t.Run("JSON", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan",
			`{"symbol":"AAPL","funds":1000,"initial_price":10,"stop_loss_price":9,"num_grids":5,"allocation_method":"equal"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Symbol  string `json:"symbol"`
			Source  string `json:"source"`
			Entries []struct {
				Price    float64 `json:"price"`
				Quantity int     `json:"quantity"`
			} `json:"entries"`
			Summary struct {
				TotalShares int     `json:"total_shares"`
				TotalCost   float64 `json:"total_cost"`
			} `json:"summary"`
			Request struct {
				Method string `json:"allocation_method"`
			} `json:"request"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "AAPL", body.Symbol)
		assert.Equal(t, planner.SourceManual, body.Source)
		assert.Len(t, body.Entries, 5)
		assert.Equal(t, 105, body.Summary.TotalShares)
		assert.InDelta(t, 997.5, body.Summary.TotalCost, 1e-9)
		assert.Equal(t, "equal", body.Request.Method)
	})

	t.Run("CSV", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan",
			`{"symbol":"AAPL","funds":1000,"initial_price":10,"stop_loss_price":9,"num_grids":5,"allocation_method":"equal"}`,
			"Accept", "text/csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "aapl_buy_plan.csv")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "price,quantity,amount\n10.00,21,210.00\n"))
	})

	t.Run("Text", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan",
			`{"funds":1000,"initial_price":10,"stop_loss_price":9,"num_grids":5,"allocation_method":"equal"}`,
			"Accept", "text/plain")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Total shares: 105")
	})

	t.Run("Invalid input", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan",
			`{"funds":1000,"initial_price":10,"stop_loss_price":11,"num_grids":5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "stop_loss_price")
	})

	t.Run("Validation failure", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan", `{"funds":-5,"allocation_method":"fibonacci"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation failed", body.Error)
		assert.Equal(t, "gte", body.Fields["Funds"])
		assert.Equal(t, "oneof", body.Fields["Method"])
	})

	t.Run("Malformed body", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan", `{"funds":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unknown field", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/plan", `{"budget":1000}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInstruction(t *testing.T) {
	quotes := new(MockQuotes)
	quotes.On("GetPrice", mock.Anything, "AAPL").Return(152.0, "Yahoo Finance", nil)
	h := setupServer(t, quotes)

	t.Run("Parse", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/instruction/parse", `{"instruction":"AAPL 150-155 止损145 压力160"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"symbol":"AAPL","current_price":155,"stop_loss":145,
			"price_range":{"low":150,"high":155},"resistance":160,
			"market_price":152,"price_source":"Yahoo Finance"
		}`, rec.Body.String())
	})

	t.Run("Parse failure", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/instruction/parse", `{"instruction":"no numbers here"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Missing instruction", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/instruction/parse", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "required")
	})

	t.Run("Plan", func(t *testing.T) {
		rec := doRequest(h, http.MethodPost, "/api/instruction/plan",
			`{"instruction":"AAPL 150-155 止损145","funds":10000,"num_grids":5,"allocation_method":"linear"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Source      string `json:"source"`
			PriceSource string `json:"price_source"`
			Instruction struct {
				Symbol string `json:"symbol"`
			} `json:"instruction"`
			Entries []struct {
				Price float64 `json:"price"`
			} `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, planner.SourceInstruction, body.Source)
		assert.Equal(t, "Yahoo Finance", body.PriceSource)
		assert.Equal(t, "AAPL", body.Instruction.Symbol)
		require.Len(t, body.Entries, 5)
		assert.Equal(t, 155.0, body.Entries[0].Price)
	})
}

func TestQuote(t *testing.T) {
	t.Run("No provider", func(t *testing.T) {
		h := setupServer(t, nil)
		assert.Equal(t, http.StatusServiceUnavailable, doRequest(h, http.MethodGet, "/api/quote/AAPL", "").Code)
		assert.Equal(t, http.StatusServiceUnavailable, doRequest(h, http.MethodGet, "/api/quote/providers", "").Code)
	})

	quotes := new(MockQuotes)
	quotes.On("GetPrice", mock.Anything, "AAPL").Return(190.5, "Yahoo Finance", nil)
	quotes.On("GetPrice", mock.Anything, "NOPE").Return(0.0, "Yahoo Finance", quote.ErrPriceQuery)
	quotes.On("Switch", "alpha_vantage").Return(nil)
	quotes.On("Switch", "bloomberg").Return(quote.ErrUnknownProvider)
	h := setupServer(t, quotes)

	t.Run("Price", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/api/quote/aapl", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"symbol":"AAPL","price":190.5,"source":"Yahoo Finance","provider":"yahoo"}`, rec.Body.String())
	})

	t.Run("Provider failure", func(t *testing.T) {
		assert.Equal(t, http.StatusBadGateway, doRequest(h, http.MethodGet, "/api/quote/NOPE", "").Code)
	})

	t.Run("Providers", func(t *testing.T) {
		rec := doRequest(h, http.MethodGet, "/api/quote/providers", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"current":"yahoo","providers":["alpha_vantage","yahoo"]}`, rec.Body.String())
	})

	t.Run("Switch", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doRequest(h, http.MethodPut, "/api/quote/provider", `{"name":"alpha_vantage"}`).Code)
		assert.Equal(t, http.StatusNotFound, doRequest(h, http.MethodPut, "/api/quote/provider", `{"name":"bloomberg"}`).Code)
	})

	quotes.AssertExpectations(t)
}

func TestMetrics(t *testing.T) {
	h := setupServer(t, nil)
	doRequest(h, http.MethodGet, "/health", "")

	rec := doRequest(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gridplan_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
