package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	SpreadTypeBullPut  = "Bull Put"
	SpreadTypeBearCall = "Bear Call"
)

// ErrInvalidParameters is returned when trade parameters cannot form a
// well-defined credit spread (non-positive sigma/principal, inverted strikes,
// or a credit that exceeds the strike width).
var ErrInvalidParameters = errors.New("invalid spread parameters")

// TradeParameters holds the caller-supplied inputs for one vertical credit
// spread evaluation. Credit is the total premium collected across all lots.
type TradeParameters struct {
	Principal   float64 `json:"principal"`
	StockPrice  float64 `json:"stock_price"`
	Sigma       float64 `json:"sigma"`
	ShortStrike float64 `json:"short_strike"`
	LongStrike  float64 `json:"long_strike"`
	Credit      float64 `json:"credit"`
	Lots        int     `json:"lots"`
	NumTrades   int     `json:"num_trades"`
}

// Spread is the fully derived analytic model of one credit spread. All fields
// are computed once at construction from TradeParameters and never mutated.
//
// The probability decomposition splits the price-at-expiration distribution
// into four regions: P2 (full credit retained), P1 (partial profit between the
// short strike and breakeven), Q1 (partial loss between breakeven and the long
// strike) and Q2 (full max loss beyond the long strike). P1+P2+Q1+Q2 covers the
// whole distribution up to negligible opposite-tail mass.
type Spread struct {
	Params     TradeParameters `json:"params"`
	SpreadType string          `json:"spread_type"`

	Breakeven float64 `json:"breakeven"`
	POP       float64 `json:"pop"`
	P1        float64 `json:"p1"`
	P2        float64 `json:"p2"`
	Q1        float64 `json:"q1"`
	Q2        float64 `json:"q2"`
	MaxLoss   float64 `json:"max_loss"`
	Slope     float64 `json:"slope"`
	Odds      float64 `json:"odds"`
	Kelly     float64 `json:"kelly"`
	EV        float64 `json:"ev"`
}

// NewSpread derives a Spread of the given type from the parameters.
func NewSpread(p TradeParameters, spreadType string) (Spread, error) {
	switch spreadType {
	case SpreadTypeBullPut:
		return NewPutSpread(p)
	case SpreadTypeBearCall:
		return NewCallSpread(p)
	default:
		return Spread{}, fmt.Errorf("%w: unknown spread type %q", ErrInvalidParameters, spreadType)
	}
}

// NewPutSpread derives the analytic model for a vertical put credit spread
// (sell the short put, buy the long put below it).
func NewPutSpread(p TradeParameters) (Spread, error) {
	if err := validate(p); err != nil {
		return Spread{}, err
	}
	if p.LongStrike >= p.ShortStrike {
		return Spread{}, fmt.Errorf("%w: put spread requires long strike %.2f < short strike %.2f",
			ErrInvalidParameters, p.LongStrike, p.ShortStrike)
	}

	creditPerShare := p.Credit / (100 * float64(p.Lots))
	maxLoss := (p.ShortStrike - p.LongStrike - creditPerShare) * 100 * float64(p.Lots)
	if maxLoss <= 0 {
		return Spread{}, fmt.Errorf("%w: credit %.2f is not below the strike width, max loss %.2f",
			ErrInvalidParameters, p.Credit, maxLoss)
	}

	dist := distuv.Normal{Mu: p.StockPrice, Sigma: p.Sigma}

	s := Spread{
		Params:     p,
		SpreadType: SpreadTypeBullPut,
		Breakeven:  p.ShortStrike - creditPerShare,
		MaxLoss:    maxLoss,
	}
	s.POP = dist.Survival(s.Breakeven)
	s.P1 = dist.CDF(p.ShortStrike) - dist.CDF(s.Breakeven)
	s.P2 = s.POP - s.P1
	s.Q1 = dist.CDF(s.Breakeven) - dist.CDF(p.LongStrike)
	s.Q2 = dist.CDF(s.Breakeven) - s.Q1
	s.Slope = p.Credit / (p.ShortStrike - s.Breakeven)
	s.Odds = odds(p.Credit, maxLoss, s.P1, s.P2, s.Q1, s.Q2)
	s.Kelly = KellyFraction(s.POP, s.Odds)
	s.EV = expectedValue(p.Credit, maxLoss, s.P1, s.P2, s.Q1, s.Q2)
	return s, nil
}

// NewCallSpread derives the analytic model for a vertical call credit spread
// (sell the short call, buy the long call above it).
func NewCallSpread(p TradeParameters) (Spread, error) {
	if err := validate(p); err != nil {
		return Spread{}, err
	}
	if p.ShortStrike >= p.LongStrike {
		return Spread{}, fmt.Errorf("%w: call spread requires short strike %.2f < long strike %.2f",
			ErrInvalidParameters, p.ShortStrike, p.LongStrike)
	}

	creditPerShare := p.Credit / (100 * float64(p.Lots))
	maxLoss := (p.LongStrike - p.ShortStrike - creditPerShare) * 100 * float64(p.Lots)
	if maxLoss <= 0 {
		return Spread{}, fmt.Errorf("%w: credit %.2f is not below the strike width, max loss %.2f",
			ErrInvalidParameters, p.Credit, maxLoss)
	}

	dist := distuv.Normal{Mu: p.StockPrice, Sigma: p.Sigma}

	s := Spread{
		Params:     p,
		SpreadType: SpreadTypeBearCall,
		Breakeven:  p.ShortStrike + creditPerShare,
		MaxLoss:    maxLoss,
	}
	s.POP = dist.CDF(s.Breakeven)
	s.P1 = dist.CDF(s.Breakeven) - dist.CDF(p.ShortStrike)
	s.P2 = s.POP - s.P1
	s.Q1 = dist.CDF(p.LongStrike) - dist.CDF(s.Breakeven)
	s.Q2 = dist.Survival(p.LongStrike)
	s.Slope = p.Credit / (s.Breakeven - p.ShortStrike)
	s.Odds = odds(p.Credit, maxLoss, s.P1, s.P2, s.Q1, s.Q2)
	s.Kelly = KellyFraction(s.POP, s.Odds)
	s.EV = expectedValue(p.Credit, maxLoss, s.P1, s.P2, s.Q1, s.Q2)
	return s, nil
}

// Payoff evaluates the trade P&L for one realized price at expiration. The
// full-credit branch owns both strike boundaries, so the piecewise function is
// continuous across the partial zone.
func (s Spread) Payoff(price float64) float64 {
	if s.SpreadType == SpreadTypeBullPut {
		switch {
		case price >= s.Params.ShortStrike:
			return s.Params.Credit
		case price > s.Params.LongStrike:
			return s.Params.Credit - s.Slope*(s.Params.ShortStrike-price)
		default:
			return -s.MaxLoss
		}
	}
	switch {
	case price <= s.Params.ShortStrike:
		return s.Params.Credit
	case price < s.Params.LongStrike:
		return s.Params.Credit - s.Slope*(price-s.Params.ShortStrike)
	default:
		return -s.MaxLoss
	}
}

// Allocation is the fraction of the account the spread puts at risk.
func (s Spread) Allocation() float64 {
	return s.MaxLoss / s.Params.Principal
}

// KellyFraction computes the Kelly criterion allocation for a win probability
// and a win/loss odds ratio. A degenerate odds of zero yields a non-finite
// fraction, which downstream recommendation logic treats as "do not enter".
func KellyFraction(pop, odds float64) float64 {
	return (pop*(odds+1) - 1) / odds
}

// odds is the probability-weighted expected-win to expected-loss ratio used as
// the Kelly "b" parameter. Partial zones contribute half their boundary value.
func odds(credit, maxLoss, p1, p2, q1, q2 float64) float64 {
	return (0.5*credit*p1 + credit*p2) / (0.5*maxLoss*q1 + maxLoss*q2)
}

// expectedValue is the expected single-trade P&L under the same triangular
// half-value treatment of the partial zones.
func expectedValue(credit, maxLoss, p1, p2, q1, q2 float64) float64 {
	return p2*credit + p1*0.5*credit - q2*maxLoss - q1*0.5*maxLoss
}

func validate(p TradeParameters) error {
	if p.Principal <= 0 {
		return fmt.Errorf("%w: principal %.2f must be positive", ErrInvalidParameters, p.Principal)
	}
	if p.StockPrice <= 0 {
		return fmt.Errorf("%w: stock price %.2f must be positive", ErrInvalidParameters, p.StockPrice)
	}
	if p.Sigma <= 0 {
		return fmt.Errorf("%w: sigma %.4f must be positive", ErrInvalidParameters, p.Sigma)
	}
	if p.Credit <= 0 {
		return fmt.Errorf("%w: credit %.2f must be positive", ErrInvalidParameters, p.Credit)
	}
	if p.Lots < 1 {
		return fmt.Errorf("%w: lots %d must be at least 1", ErrInvalidParameters, p.Lots)
	}
	if p.NumTrades < 1 {
		return fmt.Errorf("%w: number of trades %d must be at least 1", ErrInvalidParameters, p.NumTrades)
	}
	return nil
}
