package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenPutParams() TradeParameters {
	return TradeParameters{
		Principal:   10000,
		StockPrice:  98,
		Sigma:       5,
		ShortStrike: 95,
		LongStrike:  93,
		Credit:      55,
		Lots:        1,
		NumTrades:   100000,
	}
}

func TestNewPutSpreadGoldenValues(t *testing.T) {
	s, err := NewPutSpread(goldenPutParams())
	require.NoError(t, err)

	assert.Equal(t, SpreadTypeBullPut, s.SpreadType)
	assert.InDelta(t, 94.45, s.Breakeven, 1e-12)
	assert.InDelta(t, 145.0, s.MaxLoss, 1e-9)
	assert.InDelta(t, 100.0, s.Slope, 1e-9)
	assert.InDelta(t, 0.7611479319100132, s.POP, 1e-9)
	assert.InDelta(t, 0.03540104966008667, s.P1, 1e-9)
	assert.InDelta(t, 0.7257468822499265, s.P2, 1e-9)
	assert.InDelta(t, 0.0801968141585298, s.Q1, 1e-9)
	assert.InDelta(t, 0.15865525393145707, s.Q2, 1e-9)
	assert.InDelta(t, 1.4188281660153446, s.Odds, 1e-9)
	assert.InDelta(t, 0.5928033262621129, s.Kelly, 1e-9)
	assert.InDelta(t, 12.070326542843649, s.EV, 1e-9)
	assert.InDelta(t, 0.0145, s.Allocation(), 1e-12)
}

func TestProbabilityMassSumsToOne(t *testing.T) {
	cases := []struct {
		name       string
		spreadType string
		params     TradeParameters
	}{
		{"golden put", SpreadTypeBullPut, goldenPutParams()},
		{"wide put", SpreadTypeBullPut, TradeParameters{
			Principal: 50000, StockPrice: 420, Sigma: 18,
			ShortStrike: 400, LongStrike: 390, Credit: 220, Lots: 2, NumTrades: 1000,
		}},
		{"call", SpreadTypeBearCall, TradeParameters{
			Principal: 10000, StockPrice: 98, Sigma: 5,
			ShortStrike: 101, LongStrike: 103, Credit: 55, Lots: 1, NumTrades: 1000,
		}},
		{"tight call", SpreadTypeBearCall, TradeParameters{
			Principal: 25000, StockPrice: 150, Sigma: 3.5,
			ShortStrike: 152, LongStrike: 153, Credit: 30, Lots: 1, NumTrades: 1000,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSpread(tc.params, tc.spreadType)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, s.P1+s.P2+s.Q1+s.Q2, 1e-6)
			assert.Greater(t, s.MaxLoss, 0.0)
		})
	}
}

func TestCallSpreadMirrorsPut(t *testing.T) {
	// A call spread placed symmetrically above the stock price should produce
	// the same probability decomposition as the put spread below it.
	put, err := NewPutSpread(goldenPutParams())
	require.NoError(t, err)

	callParams := goldenPutParams()
	callParams.ShortStrike = 101 // 98 + (98-95)
	callParams.LongStrike = 103  // 98 + (98-93)
	call, err := NewCallSpread(callParams)
	require.NoError(t, err)

	assert.InDelta(t, put.POP, call.POP, 1e-9)
	assert.InDelta(t, put.P1, call.P1, 1e-9)
	assert.InDelta(t, put.P2, call.P2, 1e-9)
	assert.InDelta(t, put.Q1, call.Q1, 1e-9)
	assert.InDelta(t, put.Q2, call.Q2, 1e-9)
	assert.InDelta(t, put.MaxLoss, call.MaxLoss, 1e-9)
	assert.InDelta(t, put.Kelly, call.Kelly, 1e-9)
	assert.InDelta(t, put.EV, call.EV, 1e-9)
}

func TestPutPayoffBranches(t *testing.T) {
	s, err := NewPutSpread(goldenPutParams())
	require.NoError(t, err)

	// Full credit at and above the short strike.
	assert.InDelta(t, 55.0, s.Payoff(95), 1e-12)
	assert.InDelta(t, 55.0, s.Payoff(120), 1e-12)

	// Linear degradation inside the partial zone.
	assert.InDelta(t, 55.0-100.0*(95-94.5), s.Payoff(94.5), 1e-9)
	assert.InDelta(t, 0.0, s.Payoff(s.Breakeven), 1e-9)
	assert.InDelta(t, 55.0-100.0*(95-93.5), s.Payoff(93.5), 1e-9)

	// Max loss at and below the long strike.
	assert.InDelta(t, -145.0, s.Payoff(93), 1e-12)
	assert.InDelta(t, -145.0, s.Payoff(50), 1e-12)

	// Continuity across the branch boundaries.
	assert.InDelta(t, s.Payoff(95), s.Payoff(95-1e-9), 1e-6)
	assert.InDelta(t, s.Payoff(93), s.Payoff(93+1e-9), 1e-6)
}

func TestCallPayoffBranches(t *testing.T) {
	params := goldenPutParams()
	params.ShortStrike = 101
	params.LongStrike = 103
	s, err := NewCallSpread(params)
	require.NoError(t, err)

	assert.InDelta(t, 55.0, s.Payoff(101), 1e-12)
	assert.InDelta(t, 55.0, s.Payoff(80), 1e-12)
	assert.InDelta(t, 55.0-s.Slope*0.5, s.Payoff(101.5), 1e-9)
	assert.InDelta(t, 0.0, s.Payoff(s.Breakeven), 1e-9)
	assert.InDelta(t, -s.MaxLoss, s.Payoff(103), 1e-12)
	assert.InDelta(t, -s.MaxLoss, s.Payoff(140), 1e-12)

	assert.InDelta(t, s.Payoff(101), s.Payoff(101+1e-9), 1e-6)
	assert.InDelta(t, s.Payoff(103), s.Payoff(103-1e-9), 1e-6)
}

func TestKellyFraction(t *testing.T) {
	// pop=0.6, odds=1.0 -> (0.6*2 - 1)/1 = 0.2
	assert.InDelta(t, 0.2, KellyFraction(0.6, 1.0), 1e-12)

	// Negative edge gives a negative fraction.
	assert.Less(t, KellyFraction(0.4, 1.0), 0.0)

	// Degenerate odds propagate as a non-finite value, not an error.
	k := KellyFraction(0.6, 0)
	assert.True(t, math.IsInf(k, -1) || math.IsNaN(k))
}

func TestConstructionValidation(t *testing.T) {
	base := goldenPutParams()

	cases := []struct {
		name   string
		mutate func(*TradeParameters)
	}{
		{"zero sigma", func(p *TradeParameters) { p.Sigma = 0 }},
		{"negative sigma", func(p *TradeParameters) { p.Sigma = -1 }},
		{"zero principal", func(p *TradeParameters) { p.Principal = 0 }},
		{"zero credit", func(p *TradeParameters) { p.Credit = 0 }},
		{"zero lots", func(p *TradeParameters) { p.Lots = 0 }},
		{"zero trades", func(p *TradeParameters) { p.NumTrades = 0 }},
		{"inverted strikes", func(p *TradeParameters) { p.ShortStrike, p.LongStrike = p.LongStrike, p.ShortStrike }},
		{"credit above strike width", func(p *TradeParameters) { p.Credit = 250 }},
		{"credit equal to strike width", func(p *TradeParameters) { p.Credit = 200 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := NewPutSpread(p)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}

	t.Run("call inverted strikes", func(t *testing.T) {
		p := base // short 95 > long 93 is inverted for a call
		_, err := NewCallSpread(p)
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("unknown spread type", func(t *testing.T) {
		_, err := NewSpread(base, "Iron Condor")
		require.ErrorIs(t, err, ErrInvalidParameters)
	})
}
