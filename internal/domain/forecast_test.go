package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(values ...float64) []Price {
	out := make([]Price, len(values))
	for i, v := range values {
		out[i] = Price{Product: "urea", Value: v}
	}
	return out
}

func TestForecast(t *testing.T) {
	p, ok := ScenarioBullMarket.Profile()
	require.True(t, ok)

	f := Forecast("urea", 400, 1.1, p, 90)
	assert.InDelta(t, 440.0, f.ForecastPrice, 1e-9)
	assert.InDelta(t, 10.0, f.ChangePct, 1e-9)
	assert.Equal(t, 90, f.HorizonDays)

	zero := Forecast("urea", 0, 1.1, p, 90)
	assert.Zero(t, zero.ChangePct)
}

// --- HistoricalVolatility ---

func TestHistoricalVolatility_Alternating(t *testing.T) {
	// Retornos ±ln(1.1): varianza muestral 4/3·ln(1.1)².
	want := math.Log(1.1) * math.Sqrt(4.0/3) * math.Sqrt(365)
	assert.InDelta(t, want, HistoricalVolatility(series(100, 110, 100, 110)), 1e-9)
}

func TestHistoricalVolatility_ConstantGrowth(t *testing.T) {
	assert.InDelta(t, 0.0, HistoricalVolatility(series(100, 110, 121, 133.1)), 1e-9)
}

func TestHistoricalVolatility_TooShort(t *testing.T) {
	assert.Zero(t, HistoricalVolatility(nil))
	assert.Zero(t, HistoricalVolatility(series(100, 105)))
	// Los precios no positivos no cuentan.
	assert.Zero(t, HistoricalVolatility(series(100, 0, 105)))
}

// --- ZScore / NormalIntervals ---

func TestZScore(t *testing.T) {
	assert.InDelta(t, 1.6449, ZScore(0.90), 1e-4)
	assert.InDelta(t, 1.9600, ZScore(0.95), 1e-4)
	assert.InDelta(t, 2.5758, ZScore(0.99), 1e-4)
	assert.Zero(t, ZScore(0))
	assert.Zero(t, ZScore(1))
}

func TestNormalIntervals(t *testing.T) {
	ci := NormalIntervals(100, 10, []float64{0.95, 0.99})
	require.Len(t, ci, 2)
	assert.InDelta(t, 80.4, ci[0].Lower, 1e-3)
	assert.InDelta(t, 119.6, ci[0].Upper, 1e-3)
	assert.Less(t, ci[1].Lower, ci[0].Lower)
	assert.Equal(t, 0.99, ci[1].Level)
}

// --- ClassifyTrend ---

func TestClassifyTrend(t *testing.T) {
	assert.Equal(t, TrendStable, ClassifyTrend(5))
	assert.Equal(t, TrendStable, ClassifyTrend(-5))
	assert.Equal(t, TrendIncreasing, ClassifyTrend(5.1))
	assert.Equal(t, TrendDecreasing, ClassifyTrend(-6))
}

func TestStochasticPath_Final(t *testing.T) {
	assert.Zero(t, StochasticPath{}.Final())
	assert.Equal(t, 3.0, StochasticPath{Prices: []float64{1, 2, 3}}.Final())
}

// --- AnalysisResult ---

func TestAnalysisResult_BestWorstSummary(t *testing.T) {
	r := AnalysisResult{
		ID:      "a1",
		Status:  StatusCompleted,
		Request: OptimizationRequest{CropType: "corn", Region: "midwest", FieldAcres: 160},
		Scenarios: []EconomicScenario{
			{ID: "baseline", Metrics: ScenarioMetrics{NetProfit: 100}},
			{ID: "bull_market", Metrics: ScenarioMetrics{NetProfit: 300}},
			{ID: "bear_market", Metrics: ScenarioMetrics{NetProfit: -50}},
		},
	}

	best, ok := r.BestScenario()
	require.True(t, ok)
	assert.Equal(t, "bull_market", best.ID)
	worst, _ := r.WorstScenario()
	assert.Equal(t, "bear_market", worst.ID)

	s := r.Summarize()
	assert.Equal(t, 3, s.ScenarioCount)
	assert.Equal(t, "bull_market", s.BestScenario)
	assert.InDelta(t, 300.0, s.BestProfit, 1e-12)

	_, ok = AnalysisResult{}.BestScenario()
	assert.False(t, ok)
}
