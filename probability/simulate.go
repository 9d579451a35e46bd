package probability

import (
	"context"
	"runtime"
	"sync"

	"github.com/carlosbrown2/credit-spreads/models"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const drawBatchSize = 1000

// Simulator runs repeated independent spread trades against prices drawn from
// Normal(stockPrice, sigma). The seed is explicit so results are reproducible
// for a fixed seed and worker count; worker k draws from source seed+k.
type Simulator struct {
	// Workers caps the number of parallel draw workers. Zero means NumCPU.
	Workers int
	Seed    uint64
}

// SimulationResult is the output of one Run. Outcomes holds every per-trade
// P&L so callers can compute empirical risk statistics over the sample.
type SimulationResult struct {
	InitialPrincipal float64
	FinalPrincipal   float64
	MeanOutcome      float64
	Outcomes         []float64
}

// Run draws NumTrades independent prices, maps each through the spread payoff
// and folds the outcomes into a running principal. Each worker accumulates a
// partial sum over a disjoint slice segment; the sums are combined after the
// pool drains, so accumulation order never changes the result beyond float
// rounding. onProgress, if non-nil, is called from worker goroutines with the
// number of draws completed per batch and must be safe for concurrent use.
func (sim Simulator) Run(ctx context.Context, spread models.Spread, onProgress func(completed int)) (SimulationResult, error) {
	total := spread.Params.NumTrades
	workers := sim.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > total {
		workers = total
	}

	outcomes := make([]float64, total)
	partials := make([]float64, workers)

	var wg sync.WaitGroup
	per := total / workers
	extra := total % workers
	start := 0
	for w := 0; w < workers; w++ {
		count := per
		if w < extra {
			count++
		}
		wg.Add(1)
		go func(w, start, count int) {
			defer wg.Done()
			dist := distuv.Normal{
				Mu:    spread.Params.StockPrice,
				Sigma: spread.Params.Sigma,
				Src:   rand.NewSource(sim.Seed + uint64(w)),
			}
			sum := 0.0
			for done := 0; done < count; {
				if ctx.Err() != nil {
					return
				}
				batch := drawBatchSize
				if remaining := count - done; remaining < batch {
					batch = remaining
				}
				for i := 0; i < batch; i++ {
					outcome := spread.Payoff(dist.Rand())
					outcomes[start+done+i] = outcome
					sum += outcome
				}
				done += batch
				if onProgress != nil {
					onProgress(batch)
				}
			}
			partials[w] = sum
		}(w, start, count)
		start += count
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return SimulationResult{}, err
	}

	change := 0.0
	for _, p := range partials {
		change += p
	}

	return SimulationResult{
		InitialPrincipal: spread.Params.Principal,
		FinalPrincipal:   spread.Params.Principal + change,
		MeanOutcome:      change / float64(total),
		Outcomes:         outcomes,
	}, nil
}
