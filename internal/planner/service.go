// Package planner ties the grid engine and the instruction parser to the
// price providers, the recent-calculation store and the metrics recorder.
package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"grid-buy-planner/internal/config"
	"grid-buy-planner/internal/grid"
	"grid-buy-planner/internal/instruction"
	"grid-buy-planner/internal/metrics"
	"grid-buy-planner/internal/models"

	"go.uber.org/zap"
)

// Plan sources.
const (
	SourceManual      = "manual"
	SourceInstruction = "instruction"
)

// ErrNoQuoteSource is returned by Quote when no price provider is configured.
var ErrNoQuoteSource = errors.New("no price provider configured")

// QuoteSource looks up market prices.
type QuoteSource interface {
	GetPrice(ctx context.Context, symbol string) (float64, string, error)
	Current() string
}

// Store persists the inputs of the most recent calculation.
type Store interface {
	LoadRecent(ctx context.Context) (*models.RecentCalculation, error)
	SaveRecent(ctx context.Context, recent *models.RecentCalculation) error
}

// Defaults are the inputs offered for the next calculation.
type Defaults struct {
	Symbol            string  `json:"symbol,omitempty"`
	Funds             float64 `json:"funds"`
	InitialPrice      float64 `json:"initial_price"`
	StopLossPrice     float64 `json:"stop_loss_price"`
	NumGrids          int     `json:"num_grids"`
	AllocationMethod  string  `json:"allocation_method"`
	ReservePercentage float64 `json:"reserve_percentage"`
	FromRecent        bool    `json:"from_recent"`
}

// PlanInput holds the inputs of a manual plan. Zero fields take their value
// from Defaults; a zero InitialPrice with a Symbol is first looked up.
type PlanInput struct {
	Symbol            string   `json:"symbol" validate:"omitempty,max=12"`
	Funds             float64  `json:"funds" validate:"gte=0"`
	InitialPrice      float64  `json:"initial_price" validate:"gte=0"`
	StopLossPrice     float64  `json:"stop_loss_price" validate:"gte=0"`
	NumGrids          int      `json:"num_grids" validate:"gte=0"`
	Method            string   `json:"allocation_method" validate:"omitempty,oneof=equal exponential exp linear 0 1 2"`
	ReservePercentage *float64 `json:"reserve_percentage" validate:"omitempty,gte=0,lte=100"`
}

// InstructionInput holds an instruction and the plan inputs it does not carry.
type InstructionInput struct {
	Text              string   `json:"instruction" validate:"required"`
	Funds             float64  `json:"funds" validate:"gte=0"`
	NumGrids          int      `json:"num_grids" validate:"gte=0"`
	Method            string   `json:"allocation_method" validate:"omitempty,oneof=equal exponential exp linear 0 1 2"`
	ReservePercentage *float64 `json:"reserve_percentage" validate:"omitempty,gte=0,lte=100"`
}

// Instruction is a parsed instruction together with the market price it was checked against.
type Instruction struct {
	*instruction.Parsed
	MarketPrice *float64 `json:"market_price,omitempty"`
	PriceSource string   `json:"price_source,omitempty"`
}

// Plan is a calculated plan and where its inputs came from.
type Plan struct {
	Symbol      string       `json:"symbol,omitempty"`
	Source      string       `json:"source"`
	PriceSource string       `json:"price_source,omitempty"`
	Instruction *Instruction `json:"instruction,omitempty"`
	*grid.Result
}

// Quote is a market price lookup result.
type Quote struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Source   string  `json:"source"`
	Provider string  `json:"provider"`
}

// Service orchestrates plan calculations. quotes, store and recorder are optional.
type Service struct {
	logger   *zap.Logger
	cfg      config.Planner
	engine   *grid.Planner
	quotes   QuoteSource
	store    Store
	recorder *metrics.Recorder
}

// NewService creates a Service. The grid engine limits come from cfg.
func NewService(cfg config.Planner, quotes QuoteSource, store Store, recorder *metrics.Recorder, logger *zap.Logger) *Service {
	logger = logger.Named("planner")
	return &Service{
		logger: logger,
		cfg:    cfg,
		engine: grid.NewPlanner(
			grid.WithLogger(logger.Named("grid")),
			grid.WithMaxGrids(cfg.MaxGrids),
			grid.WithMaxIterations(cfg.MaxIterations),
		),
		quotes:   quotes,
		store:    store,
		recorder: recorder,
	}
}

// Defaults returns the configured defaults overlaid with the last saved inputs.
// A store failure is logged and the configured defaults are returned.
func (s *Service) Defaults(ctx context.Context) Defaults {
	d := Defaults{
		Funds:             s.cfg.DefaultFunds,
		InitialPrice:      s.cfg.DefaultInitialPrice,
		StopLossPrice:     s.cfg.DefaultStopLossPrice,
		NumGrids:          s.cfg.DefaultNumGrids,
		AllocationMethod:  s.cfg.DefaultAllocationMethod,
		ReservePercentage: s.cfg.ReservePercentage,
	}
	if s.store == nil {
		return d
	}

	recent, err := s.store.LoadRecent(ctx)
	if err != nil {
		s.logger.Warn("Failed to load recent calculation, using configured defaults", zap.Error(err))
		return d
	}
	if recent == nil {
		return d
	}

	d.Symbol = recent.Symbol
	d.FromRecent = true
	if recent.Funds > 0 {
		d.Funds = recent.Funds
	}
	if recent.InitialPrice > 0 {
		d.InitialPrice = recent.InitialPrice
	}
	if recent.StopLossPrice > 0 {
		d.StopLossPrice = recent.StopLossPrice
	}
	if recent.NumGrids > 0 {
		d.NumGrids = recent.NumGrids
	}
	if recent.AllocationMethod != "" {
		d.AllocationMethod = recent.AllocationMethod
	}
	d.ReservePercentage = recent.ReservePercentage
	return d
}

// Plan calculates a plan from manual inputs.
func (s *Service) Plan(ctx context.Context, in PlanInput) (*Plan, error) {
	d := s.Defaults(ctx)
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))

	var priceSource string
	if in.InitialPrice == 0 && symbol != "" && s.quotes != nil {
		if q, err := s.Quote(ctx, symbol); err == nil {
			in.InitialPrice = q.Price
			priceSource = q.Source
		} else {
			s.logger.Warn("Price lookup failed, using default initial price", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	if in.Funds == 0 {
		in.Funds = d.Funds
	}
	if in.InitialPrice == 0 {
		in.InitialPrice = d.InitialPrice
	}
	if in.StopLossPrice == 0 {
		in.StopLossPrice = d.StopLossPrice
	}
	if in.NumGrids == 0 {
		in.NumGrids = d.NumGrids
	}
	if in.Method == "" {
		in.Method = d.AllocationMethod
	}
	reserve := d.ReservePercentage
	if in.ReservePercentage != nil {
		reserve = *in.ReservePercentage
	}

	plan, err := s.calculate(ctx, symbol, SourceManual, in, reserve)
	if err != nil {
		return nil, err
	}
	plan.PriceSource = priceSource
	return plan, nil
}

// ParseInstruction parses text and, when a price provider is available,
// checks the instruction's price against the market. A failed lookup is
// logged and leaves the instruction unchecked.
func (s *Service) ParseInstruction(ctx context.Context, text string) (*Instruction, error) {
	parsed, err := instruction.Parse(text, nil)
	if err != nil {
		s.recordParse(metrics.OutcomeInvalid)
		return nil, err
	}
	s.recordParse(metrics.OutcomeSuccess)

	inst := &Instruction{Parsed: parsed}
	if s.quotes == nil {
		return inst, nil
	}

	q, err := s.Quote(ctx, parsed.Symbol)
	if err != nil {
		s.logger.Warn("Price lookup failed, instruction price left unchecked", zap.String("symbol", parsed.Symbol), zap.Error(err))
		return inst, nil
	}
	parsed.CheckPrice(q.Price)
	inst.MarketPrice = &q.Price
	inst.PriceSource = q.Source
	return inst, nil
}

// PlanFromInstruction parses an instruction and plans with its current
// price and stop-loss.
func (s *Service) PlanFromInstruction(ctx context.Context, in InstructionInput) (*Plan, error) {
	inst, err := s.ParseInstruction(ctx, in.Text)
	if err != nil {
		return nil, err
	}

	d := s.Defaults(ctx)
	pin := PlanInput{
		Symbol:        inst.Symbol,
		Funds:         in.Funds,
		InitialPrice:  inst.CurrentPrice,
		StopLossPrice: inst.StopLoss,
		NumGrids:      in.NumGrids,
		Method:        in.Method,
	}
	if pin.Funds == 0 {
		pin.Funds = d.Funds
	}
	if pin.NumGrids == 0 {
		pin.NumGrids = d.NumGrids
	}
	if pin.Method == "" {
		pin.Method = d.AllocationMethod
	}
	reserve := d.ReservePercentage
	if in.ReservePercentage != nil {
		reserve = *in.ReservePercentage
	}

	plan, err := s.calculate(ctx, inst.Symbol, SourceInstruction, pin, reserve)
	if err != nil {
		return nil, err
	}
	plan.Instruction = inst
	plan.PriceSource = inst.PriceSource
	return plan, nil
}

// Quote looks up the market price of symbol with the current provider.
func (s *Service) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if s.quotes == nil {
		return nil, ErrNoQuoteSource
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	provider := s.quotes.Current()

	start := time.Now()
	price, source, err := s.quotes.GetPrice(ctx, symbol)
	s.recordLatency("quote", start)
	if err != nil {
		s.recordQuote(provider, metrics.OutcomeError)
		return nil, err
	}
	s.recordQuote(provider, metrics.OutcomeSuccess)

	return &Quote{Symbol: symbol, Price: price, Source: source, Provider: provider}, nil
}

func (s *Service) calculate(ctx context.Context, symbol, source string, in PlanInput, reserve float64) (*Plan, error) {
	method, err := grid.ParseMethod(in.Method)
	if err != nil {
		s.recordPlan("unknown", metrics.OutcomeInvalid)
		return nil, err
	}

	req := grid.Request{
		Funds:         in.Funds,
		InitialPrice:  in.InitialPrice,
		StopLossPrice: in.StopLossPrice,
		NumGrids:      in.NumGrids,
		Method:        method,
	}

	start := time.Now()
	res, err := s.engine.CalculateWithReserve(req, reserve)
	s.recordLatency("plan", start)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, grid.ErrInvalidInput) {
			outcome = metrics.OutcomeInvalid
		}
		s.recordPlan(method.String(), outcome)
		return nil, err
	}
	s.recordPlan(method.String(), metrics.OutcomeSuccess)

	s.logger.Info("Calculated buy plan",
		zap.String("symbol", symbol),
		zap.String("source", source),
		zap.String("method", method.String()),
		zap.Int("grids", len(res.Entries)),
		zap.Int("total_shares", res.Summary.TotalShares),
		zap.Float64("total_cost", res.Summary.TotalCost),
	)

	s.remember(ctx, symbol, in, method, reserve)
	return &Plan{Symbol: symbol, Source: source, Result: res}, nil
}

// remember saves the inputs for the next Defaults call. A failure is logged, the plan is still returned.
func (s *Service) remember(ctx context.Context, symbol string, in PlanInput, method grid.Method, reserve float64) {
	if s.store == nil {
		return
	}

	recent := &models.RecentCalculation{
		Symbol:            symbol,
		Funds:             in.Funds,
		InitialPrice:      in.InitialPrice,
		StopLossPrice:     in.StopLossPrice,
		NumGrids:          in.NumGrids,
		AllocationMethod:  method.String(),
		ReservePercentage: reserve,
	}
	if err := s.store.SaveRecent(ctx, recent); err != nil {
		s.logger.Warn("Failed to save recent calculation", zap.Error(err))
	}
}

func (s *Service) recordPlan(method, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordPlan(method, outcome)
	}
}

func (s *Service) recordParse(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordParse(outcome)
	}
}

func (s *Service) recordQuote(provider, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordQuote(provider, outcome)
	}
}

func (s *Service) recordLatency(op string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordLatency(op, time.Since(start).Seconds())
	}
}
