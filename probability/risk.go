package probability

import "sort"

// ValueAtRisk computes the empirical Value at Risk of the simulated outcomes
// at the given confidence level, as a positive loss amount.
func ValueAtRisk(outcomes []float64, confidenceLevel float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	losses := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		losses[i] = -outcome // Convert profit to loss
	}
	sort.Float64s(losses)

	index := int(float64(len(losses)) * confidenceLevel)
	if index >= len(losses) {
		index = len(losses) - 1
	}
	return losses[index]
}

// ExpectedShortfall computes the mean loss in the tail at and beyond the VaR
// cutoff for the given confidence level.
func ExpectedShortfall(outcomes []float64, confidenceLevel float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	losses := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		losses[i] = -outcome
	}
	sort.Float64s(losses)

	index := int(float64(len(losses)) * confidenceLevel)
	if index >= len(losses) {
		index = len(losses) - 1
	}

	sum := 0.0
	for _, loss := range losses[index:] {
		sum += loss
	}
	return sum / float64(len(losses)-index)
}
