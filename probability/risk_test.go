package probability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueAtRisk(t *testing.T) {
	outcomes := []float64{10, -20, 30, -40, 50, -60, 70, -80, 90, -100}
	// Losses sorted ascending: -90 -70 -50 -30 -10 20 40 60 80 100

	assert.InDelta(t, 100.0, ValueAtRisk(outcomes, 0.9), 1e-12)
	assert.InDelta(t, 20.0, ValueAtRisk(outcomes, 0.5), 1e-12)
	assert.InDelta(t, -90.0, ValueAtRisk(outcomes, 0.0), 1e-12)
}

func TestValueAtRiskClampsIndex(t *testing.T) {
	outcomes := []float64{-5, 5}
	assert.InDelta(t, 5.0, ValueAtRisk(outcomes, 1.0), 1e-12)
}

func TestExpectedShortfall(t *testing.T) {
	outcomes := []float64{10, -20, 30, -40, 50, -60, 70, -80, 90, -100}

	// Tail at 0.8 confidence: losses 80 and 100.
	assert.InDelta(t, 90.0, ExpectedShortfall(outcomes, 0.8), 1e-12)
	// Tail at 0.9 confidence: the single worst loss.
	assert.InDelta(t, 100.0, ExpectedShortfall(outcomes, 0.9), 1e-12)
}

func TestRiskStatisticsEmptySample(t *testing.T) {
	assert.Zero(t, ValueAtRisk(nil, 0.95))
	assert.Zero(t, ExpectedShortfall(nil, 0.95))
}
