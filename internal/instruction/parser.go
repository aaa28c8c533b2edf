// Package instruction extracts grid plan parameters from free-form trading
// chat messages such as "AAPL 150-155 止损145 压力160" or
// "INTRADAY SOXL 30 TO 31 SL 29.5".
//
// Each field is found by its own extractor; the stop-loss and resistance
// matches are removed before the symbol and the price are looked up, so
// their numbers are never mistaken for the entry price.
package instruction

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// fallbackStopLossRatio places a missing or unusable stop-loss 5% under the current price.
	fallbackStopLossRatio = 0.95
	// priceTolerance is the relative gap to a market price above which a warning is attached.
	priceTolerance = 0.10
)

var ErrInstructionParse = errors.New("instruction parse failed")

// ParseError reports why an instruction could not be turned into plan parameters.
type ParseError struct {
	Instruction string
	Reason      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse instruction %q: %s", e.Instruction, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrInstructionParse
}

// PriceRange is the entry band named by an instruction. Low equals High
// when only one price was given.
type PriceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Parsed holds the fields extracted from one instruction.
type Parsed struct {
	Symbol       string      `json:"symbol"`
	CurrentPrice float64     `json:"current_price"`
	StopLoss     float64     `json:"stop_loss"`
	PriceRange   *PriceRange `json:"price_range,omitempty"`
	Resistance   *float64    `json:"resistance,omitempty"`

	// PriceWarning is set when a market price differs from CurrentPrice by more than 10%.
	PriceWarning string `json:"price_warning,omitempty"`
	// StopLossWarning is set when an explicit stop-loss at or above the current price was replaced.
	StopLossWarning string `json:"stop_loss_warning,omitempty"`
}

const number = `(\d+(?:\.\d+)?)`

var (
	symbolPattern     = regexp.MustCompile(`(?:日内|\bINTRADAY\s*)?([A-Z]+)`)
	stopLossPattern   = regexp.MustCompile(`(?:止损|\bSTOP(?:[\s-]*LOSS)?|\bSL)\s*[:：]?\s*` + number)
	resistancePattern = regexp.MustCompile(`(?:压力|阻力|\bRESISTANCE|\bRES)\s*[:：]?\s*` + number)
	// Range separators: "150-155", "150 TO 155", "150 NEAR 155", "BETWEEN 150 AND 155", "150附近155".
	pricePattern      = regexp.MustCompile(number + `\s*(?:(?:-|~|到|至|之间|附近|TO|NEAR|AND)\s*` + number + `)?`)
)

// Parse extracts the plan parameters from text. externalPrice, when not nil,
// is the market price used to sanity-check the instruction's price.
func Parse(text string, externalPrice *float64) (*Parsed, error) {
	upper := strings.ToUpper(text)

	stopLoss, hasStopLoss := extractNumber(stopLossPattern, upper)
	resistance, hasResistance := extractNumber(resistancePattern, upper)

	rest := stopLossPattern.ReplaceAllString(upper, " ")
	rest = resistancePattern.ReplaceAllString(rest, " ")

	symbol := extractSymbol(rest)
	if symbol == "" {
		return nil, &ParseError{Instruction: text, Reason: "no symbol found"}
	}

	priceRange, ok := extractPriceRange(rest)
	if !ok {
		return nil, &ParseError{Instruction: text, Reason: "no price found"}
	}
	if priceRange.Low > priceRange.High {
		return nil, &ParseError{
			Instruction: text,
			Reason:      fmt.Sprintf("price range %g-%g starts above its end", priceRange.Low, priceRange.High),
		}
	}

	p := &Parsed{
		Symbol:       symbol,
		CurrentPrice: priceRange.High,
		PriceRange:   &priceRange,
	}

	switch {
	case hasStopLoss && stopLoss >= p.CurrentPrice:
		p.StopLoss = p.CurrentPrice * fallbackStopLossRatio
		p.StopLossWarning = fmt.Sprintf(
			"stop-loss %g is not below the current price %g; using %.2f instead", stopLoss, p.CurrentPrice, p.StopLoss)
	case hasStopLoss:
		p.StopLoss = stopLoss
	case priceRange.Low < priceRange.High:
		p.StopLoss = priceRange.Low
	default:
		p.StopLoss = p.CurrentPrice * fallbackStopLossRatio
	}

	if hasResistance {
		p.Resistance = &resistance
	}

	if externalPrice != nil {
		p.CheckPrice(*externalPrice)
	}
	return p, nil
}

// CheckPrice compares the instruction's price with a market price and sets
// PriceWarning when they differ by more than 10%. Non-positive prices are ignored.
func (p *Parsed) CheckPrice(marketPrice float64) {
	if marketPrice <= 0 || p.CurrentPrice <= 0 {
		return
	}
	diff := math.Abs(marketPrice-p.CurrentPrice) / p.CurrentPrice
	if diff > priceTolerance {
		p.PriceWarning = fmt.Sprintf(
			"instruction price %.2f differs from market price %.2f by %.1f%%, more than %.0f%%",
			p.CurrentPrice, marketPrice, diff*100, priceTolerance*100)
	}
}

func extractSymbol(text string) string {
	m := symbolPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractPriceRange(text string) (PriceRange, bool) {
	m := pricePattern.FindStringSubmatch(text)
	if m == nil {
		return PriceRange{}, false
	}
	low, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return PriceRange{}, false
	}
	high := low
	if m[2] != "" {
		if high, err = strconv.ParseFloat(m[2], 64); err != nil {
			return PriceRange{}, false
		}
	}
	return PriceRange{Low: low, High: high}, true
}

func extractNumber(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
