package probability

import "github.com/carlosbrown2/credit-spreads/models"

const (
	RecommendationEnter = "Enter Trade"
	RecommendationSkip  = "Do not enter trade"
)

// Recommend applies the entry rule: probability of profit above a coin flip, a
// positive Kelly fraction, an actual allocation strictly between zero and the
// Kelly fraction, and a simulated account that ended above where it started.
// A NaN or infinite Kelly fails the comparisons and yields a skip.
func Recommend(spread models.Spread, result SimulationResult) string {
	allocation := spread.Allocation()
	if spread.POP > 0.5 &&
		spread.Kelly > 0 &&
		allocation < spread.Kelly &&
		allocation > 0 &&
		result.FinalPrincipal > result.InitialPrincipal {
		return RecommendationEnter
	}
	return RecommendationSkip
}
