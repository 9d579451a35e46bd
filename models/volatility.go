package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Bar is one daily OHLC bar, used only to suggest a sigma input for the
// price-at-expiration distribution.
type Bar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// CloseToCloseSigma estimates the standard deviation of the price at
// expiration from daily log returns, projected over a horizon in trading days
// and scaled back to price terms from the last close.
func CloseToCloseSigma(bars []Bar, horizonDays int) (float64, error) {
	if len(bars) < 2 {
		return 0, fmt.Errorf("close-to-close estimate needs at least 2 bars, got %d", len(bars))
	}
	if horizonDays < 1 {
		return 0, fmt.Errorf("horizon must be at least 1 trading day, got %d", horizonDays)
	}

	returns := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		returns[i-1] = math.Log(bars[i].Close / bars[i-1].Close)
	}

	dailyVol := stat.StdDev(returns, nil)
	spot := bars[len(bars)-1].Close
	return spot * dailyVol * math.Sqrt(float64(horizonDays)), nil
}

// GarmanKlassSigma estimates the price-at-expiration standard deviation using
// the Garman-Klass OHLC range estimator, which converges faster than
// close-to-close on the same number of bars.
func GarmanKlassSigma(bars []Bar, horizonDays int) (float64, error) {
	if len(bars) < 1 {
		return 0, fmt.Errorf("garman-klass estimate needs at least 1 bar")
	}
	if horizonDays < 1 {
		return 0, fmt.Errorf("horizon must be at least 1 trading day, got %d", horizonDays)
	}

	sum := 0.0
	for _, b := range bars {
		if b.Low <= 0 || b.Open <= 0 {
			return 0, fmt.Errorf("garman-klass estimate needs positive OHLC values on %s", b.Date)
		}
		hl := 0.5 * math.Pow(math.Log(b.High/b.Low), 2)
		co := (2*math.Log(2) - 1) * math.Pow(math.Log(b.Close/b.Open), 2)
		sum += hl - co
	}

	dailyVar := sum / float64(len(bars))
	spot := bars[len(bars)-1].Close
	return spot * math.Sqrt(dailyVar*float64(horizonDays)), nil
}
