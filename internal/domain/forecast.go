package domain

import (
	"math"
	"time"
)

// Price is one quote returned by the market data provider.
type Price struct {
	Product string    `json:"product" yaml:"product"`
	Region  string    `json:"region" yaml:"region"`
	Value   float64   `json:"value" yaml:"value"`
	Unit    string    `json:"unit" yaml:"unit"`
	AsOf    time.Time `json:"as_of" yaml:"as_of"`
}

// Forecast builds the price forecast for one product under a scenario profile.
// Pure and deterministic: same inputs, same forecast.
func Forecast(product string, basePrice, multiplier float64, profile ScenarioProfile, horizonDays int) PriceForecast {
	forecast := basePrice * multiplier
	change := 0.0
	if basePrice > 0 {
		change = (forecast - basePrice) / basePrice * 100
	}
	return PriceForecast{
		Product:       product,
		CurrentPrice:  basePrice,
		ForecastPrice: forecast,
		ChangePct:     change,
		Confidence:    profile.Confidence,
		HorizonDays:   horizonDays,
		Volatility:    profile.Volatility,
	}
}

// HistoricalVolatility returns the annualized standard deviation of daily log
// returns of a most-recent-last price series. Series with fewer than three
// positive prices return 0.
func HistoricalVolatility(history []Price) float64 {
	var returns []float64
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1].Value, history[i].Value
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	daily := math.Sqrt(ss / float64(len(returns)-1))
	return daily * math.Sqrt(365)
}

// ZScore returns the two-sided standard normal quantile for confidence c,
// e.g. 1.96 for 0.95.
func ZScore(c float64) float64 {
	if c <= 0 || c >= 1 {
		return 0
	}
	return math.Sqrt2 * math.Erfinv(c)
}

// NormalIntervals builds symmetric confidence intervals around mean.
func NormalIntervals(mean, stdDev float64, levels []float64) []ConfidenceInterval {
	out := make([]ConfidenceInterval, 0, len(levels))
	for _, c := range levels {
		half := ZScore(c) * stdDev
		out = append(out, ConfidenceInterval{Level: c, Lower: mean - half, Upper: mean + half})
	}
	return out
}
