// Command planner calculates a grid buy plan from flags or from a trading
// instruction and prints it as a text report.
//
// Usage:
//
//	planner -funds=10000 -price=150 -stop=140 -grids=8 -method=linear
//	planner -instruction="AAPL 150-155 止损145" -funds=10000 -csv=aapl.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"grid-buy-planner/internal/config"
	"grid-buy-planner/internal/database"
	"grid-buy-planner/internal/logger"
	"grid-buy-planner/internal/planner"
	"grid-buy-planner/internal/quote"
	"grid-buy-planner/internal/report"

	"go.uber.org/zap"
)

// options holds the command-line flags.
type options struct {
	configPath  string
	instruction string
	symbol      string
	funds       float64
	price       float64
	stop        float64
	grids       int
	method      string
	reserve     float64
	csvPath     string
	offline     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("planner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "./configs", "Directory containing config.yml")
	fs.StringVar(&o.instruction, "instruction", "", "Trading instruction, e.g. \"AAPL 150-155 止损145\"")
	fs.StringVar(&o.symbol, "symbol", "", "Symbol; looked up for the initial price when -price is not set")
	fs.Float64Var(&o.funds, "funds", 0, "Total funds (0 uses the default)")
	fs.Float64Var(&o.price, "price", 0, "Initial price (0 uses a quote or the default)")
	fs.Float64Var(&o.stop, "stop", 0, "Stop-loss price (0 uses the default)")
	fs.IntVar(&o.grids, "grids", 0, "Number of grids (0 uses the default)")
	fs.StringVar(&o.method, "method", "", "Allocation method: equal, exponential or linear")
	fs.Float64Var(&o.reserve, "reserve", -1, "Percentage of funds to hold back (negative uses the default)")
	fs.StringVar(&o.csvPath, "csv", "", "Also write the plan as CSV to this file")
	fs.BoolVar(&o.offline, "offline", false, "Do not query price providers")
	err := fs.Parse(args)
	return o, err
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command and returns its exit code. Deferred cleanup,
// including the logger flush, has run by the time it returns.
func execute(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := run(ctx, cfg, opts, stdout, log); err != nil {
		log.Error("Planning failed", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Config, opts options, stdout io.Writer, log *zap.Logger) error {
	var store planner.Store
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Warn("Recent inputs will not be saved", zap.Error(err))
	} else {
		store = database.NewStore(db)
	}

	var quotes planner.QuoteSource
	if !opts.offline {
		manager, err := quote.NewManager(&cfg.Quote, log)
		if err != nil {
			return err
		}
		quotes = manager
	}

	svc := planner.NewService(cfg.Planner, quotes, store, nil, log)

	var reservePct *float64
	if opts.reserve >= 0 {
		reservePct = &opts.reserve
	}

	var plan *planner.Plan
	if opts.instruction != "" {
		plan, err = svc.PlanFromInstruction(ctx, planner.InstructionInput{
			Text:              opts.instruction,
			Funds:             opts.funds,
			NumGrids:          opts.grids,
			Method:            opts.method,
			ReservePercentage: reservePct,
		})
	} else {
		plan, err = svc.Plan(ctx, planner.PlanInput{
			Symbol:            opts.symbol,
			Funds:             opts.funds,
			InitialPrice:      opts.price,
			StopLossPrice:     opts.stop,
			NumGrids:          opts.grids,
			Method:            opts.method,
			ReservePercentage: reservePct,
		})
	}
	if err != nil {
		return err
	}

	if inst := plan.Instruction; inst != nil {
		for _, w := range []string{inst.StopLossWarning, inst.PriceWarning} {
			if w != "" {
				fmt.Fprintf(stdout, "Instruction warning: %s\n", w)
			}
		}
	}
	if plan.PriceSource != "" {
		fmt.Fprintf(stdout, "Price source: %s\n", plan.PriceSource)
	}
	if err := report.WriteText(stdout, plan.Symbol, plan.Result); err != nil {
		return err
	}

	if opts.csvPath != "" {
		return writeCSV(opts.csvPath, plan)
	}
	return nil
}

func writeCSV(path string, plan *planner.Plan) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteCSV(f, plan.Result)
}
