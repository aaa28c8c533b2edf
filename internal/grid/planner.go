package grid

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// costTolerance absorbs float noise when comparing a plan's cost with its funds.
const costTolerance = 1e-6

// Request holds the inputs of one plan calculation.
type Request struct {
	Funds         float64 `json:"funds"`
	InitialPrice  float64 `json:"initial_price"`
	StopLossPrice float64 `json:"stop_loss_price"`
	NumGrids      int     `json:"num_grids"`
	Method        Method  `json:"allocation_method"`
}

// Entry is one rung of the plan.
type Entry struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Summary holds the statistics derived from a plan's entries.
type Summary struct {
	TotalShares       int     `json:"total_shares"`
	TotalCost         float64 `json:"total_cost"`
	AveragePrice      float64 `json:"average_price"`
	MaxLoss           float64 `json:"max_loss"`
	MaxLossPercentage float64 `json:"max_loss_percentage"`
	Method            string  `json:"allocation_method"`
}

// Result is a computed buy plan. Request is the effective request: Funds
// excludes any reserve and NumGrids reflects a downgrade.
type Result struct {
	Request  Request  `json:"request"`
	Entries  []Entry  `json:"entries"`
	Warnings []string `json:"warnings,omitempty"`
	Summary  Summary  `json:"summary"`
	Reserved float64  `json:"reserved_funds"`
}

// Warning joins all warnings into one message, or returns "" when there are none.
func (r *Result) Warning() string {
	return strings.Join(r.Warnings, "; ")
}

// Planner computes buy plans. It holds no per-call state and is safe for concurrent use.
type Planner struct {
	logger        *zap.Logger
	maxGrids      int
	maxIterations int
	allocator     *Allocator
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithMaxGrids sets the grid ceiling checked during validation.
func WithMaxGrids(n int) Option {
	return func(p *Planner) { p.maxGrids = n }
}

// WithMaxIterations caps the leftover distribution loop.
func WithMaxIterations(n int) Option {
	return func(p *Planner) { p.maxIterations = n }
}

// NewPlanner creates a Planner with DefaultMaxGrids and DefaultMaxIterations unless overridden.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		logger:   zap.NewNop(),
		maxGrids: DefaultMaxGrids,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.maxGrids <= 0 {
		p.maxGrids = DefaultMaxGrids
	}
	p.allocator = NewAllocator(p.maxIterations, p.logger)
	return p
}

// MaxGrids returns the configured grid ceiling.
func (p *Planner) MaxGrids() int { return p.maxGrids }

// CalculateBuyPlan validates req and computes its buy plan.
func (p *Planner) CalculateBuyPlan(req Request) (*Result, error) {
	l := p.logger.With(
		zap.Float64("funds", req.Funds),
		zap.Float64("initial_price", req.InitialPrice),
		zap.Float64("stop_loss_price", req.StopLossPrice),
		zap.Int("num_grids", req.NumGrids),
		zap.Stringer("method", req.Method),
	)
	l.Debug("Calculating buy plan")

	if err := Validate(req, p.maxGrids); err != nil {
		return nil, err
	}
	strategy, err := req.Method.Strategy()
	if err != nil {
		return nil, err
	}

	var warnings []string

	// 1. Cap the grid count by what the funds can buy at the stop-loss price.
	maxShares := int(math.Floor(req.Funds / req.StopLossPrice))
	if maxShares < req.NumGrids {
		warnings = append(warnings, fmt.Sprintf(
			"funds cover only %d shares at the stop-loss price; grid count reduced from %d to %d",
			maxShares, req.NumGrids, maxShares))
		l.Warn("Reducing grid count to fit funds", zap.Int("max_shares", maxShares))
		req.NumGrids = maxShares
	}

	// 2. Price ladder, rounded before allocation so the budget check sees the reported prices.
	prices := GeneratePrices(req.InitialPrice, req.StopLossPrice, req.NumGrids)
	for i := range prices {
		prices[i] = roundPrice(prices[i])
	}
	l.Debug("Generated price grid", zap.Float64s("prices", prices))

	// 3. Shares.
	shares, err := p.allocator.Allocate(prices, strategy, maxShares, req.Funds)
	if err != nil {
		return nil, fmt.Errorf("allocate shares: %w", err)
	}

	entries := make([]Entry, len(prices))
	for i, price := range prices {
		entries[i] = Entry{Price: price, Quantity: shares[i]}
	}

	// 4. Summary and heuristics.
	summary := Summarize(entries, req.StopLossPrice, strategy.Label())
	if w := thinPlanWarning(entries, req.NumGrids); w != "" {
		warnings = append(warnings, w)
	}
	if summary.TotalCost > req.Funds+costTolerance {
		warnings = append(warnings, fmt.Sprintf(
			"plan costs %.2f which exceeds funds of %.2f because every grid buys at least one share",
			summary.TotalCost, req.Funds))
	}

	l.Debug("Buy plan calculated",
		zap.Int("total_shares", summary.TotalShares),
		zap.Float64("total_cost", summary.TotalCost),
		zap.Strings("warnings", warnings))

	return &Result{
		Request:  req,
		Entries:  entries,
		Warnings: warnings,
		Summary:  summary,
	}, nil
}

// CalculateWithReserve withholds reservePercentage of req.Funds and plans
// with the rest. The withheld amount is reported in Result.Reserved.
func (p *Planner) CalculateWithReserve(req Request, reservePercentage float64) (*Result, error) {
	if reservePercentage < 0 || reservePercentage > 100 {
		return nil, &InvalidInputError{Field: "reserve_percentage", Reason: "must be between 0 and 100"}
	}

	reserved := req.Funds * reservePercentage / 100
	req.Funds -= reserved
	p.logger.Debug("Reserving funds",
		zap.Float64("reserve_percentage", reservePercentage),
		zap.Float64("reserved", reserved),
		zap.Float64("available", req.Funds))

	res, err := p.CalculateBuyPlan(req)
	if err != nil {
		return nil, err
	}
	res.Reserved = reserved
	return res, nil
}
