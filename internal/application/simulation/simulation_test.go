package simulation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/agrisim/internal/application/scenario"
	"github.com/alejandrodnm/agrisim/internal/application/simulation"
	"github.com/alejandrodnm/agrisim/internal/domain"
)

func cornRequest() domain.OptimizationRequest {
	seed := uint64(42)
	return domain.OptimizationRequest{
		Region:               "midwest",
		FieldAcres:           160,
		CropType:             "corn",
		ExpectedYieldPerAcre: 200,
		CropPrice:            5.25,
		Fertilizers: []domain.FertilizerRequirement{
			{Product: "urea", RateLbsPerAcre: 180, PriceUnit: "ton", PricePerUnit: 450},
			{Product: "dap", RateLbsPerAcre: 80, PriceUnit: "ton", PricePerUnit: 650},
		},
		Iterations:  2000,
		HorizonDays: 30,
		Seed:        &seed,
	}.WithDefaults()
}

func generate(t *testing.T, req domain.OptimizationRequest) []domain.EconomicScenario {
	t.Helper()
	scenarios, err := scenario.New(scenario.Config{}, nil).Generate(context.Background(), req)
	require.NoError(t, err)
	return scenarios
}

// flatScenario is a single scenario with zero volatility.
func flatScenario(t *testing.T) (domain.OptimizationRequest, []domain.EconomicScenario) {
	t.Helper()
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBaseline}
	req.Iterations = 1000
	scenarios := generate(t, req)
	for i := range scenarios[0].Forecasts {
		scenarios[0].Forecasts[i].Volatility = 0
	}
	scenarios[0].CropForecast.Volatility = 0
	return req, scenarios
}

type countingMetrics struct {
	mu         sync.Mutex
	iterations int
	clamped    int
}

func (m *countingMetrics) ObserveAnalysis(string, time.Duration) {}
func (m *countingMetrics) ObserveStage(string, time.Duration)    {}
func (m *countingMetrics) CacheHit()                             {}
func (m *countingMetrics) CacheMiss()                            {}
func (m *countingMetrics) AddIterations(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations += n
}
func (m *countingMetrics) AddClampedDraws(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clamped += n
}

// --- Monte Carlo ---

func TestRunMonteCarlo_DistributionInvariants(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)

	res, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Workers: 3, Seed: 7})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, len(scenarios))
	assert.Equal(t, 2000, res.Iterations)

	for i, d := range res.Scenarios {
		assert.Equal(t, scenarios[i].ID, d.ScenarioID, "order must follow generation order")
		assert.LessOrEqual(t, d.Min, d.Median)
		assert.LessOrEqual(t, d.Median, d.Max)
		assert.LessOrEqual(t, d.Min, d.Mean)
		assert.LessOrEqual(t, d.Mean, d.Max)
		assert.GreaterOrEqual(t, d.StdDev, 0.0)
		require.Len(t, d.ConfidenceIntervals, 3)
		for _, ci := range d.ConfidenceIntervals {
			assert.LessOrEqual(t, ci.Lower, ci.Upper)
		}
		// Intervalos más amplios a mayor confianza.
		assert.LessOrEqual(t, d.ConfidenceIntervals[2].Lower, d.ConfidenceIntervals[0].Lower)
		assert.GreaterOrEqual(t, d.ConfidenceIntervals[2].Upper, d.ConfidenceIntervals[0].Upper)
	}
	assert.LessOrEqual(t, res.Aggregate.WorstCase, res.Aggregate.ExpectedProfit)
	assert.GreaterOrEqual(t, res.Aggregate.BestCase, res.Aggregate.ExpectedProfit)
	assert.Equal(t, domain.WeightEqual, res.Aggregate.Weighting)
}

func TestRunMonteCarlo_ZeroVolatility(t *testing.T) {
	req, scenarios := flatScenario(t)

	res, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Seed: 1})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, 1)

	d := res.Scenarios[0]
	assert.Equal(t, 0.0, d.StdDev)
	assert.Equal(t, d.Min, d.Max)
	assert.Equal(t, d.Min, d.Mean)
	assert.Equal(t, d.Min, d.Median)
	assert.InDelta(t, scenarios[0].Metrics.NetProfit, d.Mean, 1e-6)
	assert.Equal(t, 1.0, d.ProbabilityOfProfit)
}

func TestRunMonteCarlo_SeedReproducible(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)

	a, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Workers: 4, Seed: 99})
	require.NoError(t, err)
	b, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Workers: 1, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Seed: 100})
	require.NoError(t, err)
	assert.NotEqual(t, a.Scenarios[0].Mean, c.Scenarios[0].Mean)
}

func TestRunMonteCarlo_ScenariosUseIndependentStreams(t *testing.T) {
	req, scenarios := flatScenario(t)
	for i := range scenarios[0].Forecasts {
		scenarios[0].Forecasts[i].Volatility = 0.2
	}
	scenarios[0].CropForecast.Volatility = 0.2
	twin := scenarios[0]
	twin.ID = "twin"
	scenarios = append(scenarios, twin)

	res, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Seed: 5})
	require.NoError(t, err)
	assert.NotEqual(t, res.Scenarios[0].Mean, res.Scenarios[1].Mean)
}

func TestRunMonteCarlo_ClampsNegativeDraws(t *testing.T) {
	req, scenarios := flatScenario(t)
	for i := range scenarios[0].Forecasts {
		scenarios[0].Forecasts[i].Volatility = 3
	}
	scenarios[0].CropForecast.Volatility = 3
	m := &countingMetrics{}

	res, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Seed: 3, Metrics: m})
	require.NoError(t, err)

	d := res.Scenarios[0]
	assert.Greater(t, d.ClampedDraws, 0)
	assert.Equal(t, d.ClampedDraws, m.clamped)
	assert.Equal(t, 1000, m.iterations)
	// Cultivo recortado a 0 y coste >= 0: beneficio <= 0.
	assert.LessOrEqual(t, d.Min, 0.0)
}

func TestRunMonteCarlo_ProbabilityWeighting(t *testing.T) {
	req := cornRequest()
	req.WeightByProbability = true
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBullMarket, domain.ScenarioSeasonal}
	scenarios := generate(t, req)

	res, err := simulation.RunMonteCarlo(context.Background(), req, scenarios, simulation.Options{Seed: 11})
	require.NoError(t, err)

	assert.Equal(t, domain.WeightProbability, res.Aggregate.Weighting)
	// bull 0.20, seasonal 0.30
	want := (0.20*res.Scenarios[0].Mean + 0.30*res.Scenarios[1].Mean) / 0.50
	assert.InDelta(t, want, res.Aggregate.ExpectedProfit, 1e-6)
}

func TestRunMonteCarlo_Cancelled(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulation.RunMonteCarlo(ctx, req, scenarios, simulation.Options{Seed: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Stochastic paths ---

func TestRunStochastic_PathInvariants(t *testing.T) {
	req := cornRequest()
	req.PathsPerProduct = 20
	scenarios := generate(t, req)

	res, err := simulation.RunStochastic(context.Background(), req, scenarios, simulation.Options{Seed: 8})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, len(scenarios))
	assert.Equal(t, 30, res.HorizonDays)

	for i, sp := range res.Scenarios {
		assert.Equal(t, scenarios[i].ID, sp.ScenarioID)
		// urea, dap y el cultivo.
		require.Len(t, sp.Products, 3)
		for _, pp := range sp.Products {
			require.Len(t, pp.Paths, 20)
			for _, path := range pp.Paths {
				require.Len(t, path.Prices, 31)
				assert.Equal(t, pp.CurrentPrice, path.Prices[0])
				for _, p := range path.Prices {
					assert.Greater(t, p, 0.0)
				}
			}
		}
	}
}

func TestRunStochastic_ZeroVolatilityHitsForecast(t *testing.T) {
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBullMarket}
	req.PathsPerProduct = 3
	scenarios := generate(t, req)
	for i := range scenarios[0].Forecasts {
		scenarios[0].Forecasts[i].Volatility = 0
	}
	scenarios[0].CropForecast.Volatility = 0

	res, err := simulation.RunStochastic(context.Background(), req, scenarios, simulation.Options{Seed: 2})
	require.NoError(t, err)

	sp := res.Scenarios[0]
	for _, pp := range sp.Products {
		assert.InDelta(t, pp.ForecastPrice, pp.AverageFinalPrice, 1e-6*pp.ForecastPrice)
		assert.InDelta(t, 0, pp.PathVolatility, 1e-9)
		assert.Equal(t, domain.TrendIncreasing, pp.Trend)
	}
	assert.Equal(t, domain.TrendIncreasing, sp.Metrics.Trend)
}

func TestRunStochastic_Reproducible(t *testing.T) {
	req := cornRequest()
	req.PathsPerProduct = 5
	scenarios := generate(t, req)

	a, err := simulation.RunStochastic(context.Background(), req, scenarios, simulation.Options{Seed: 21, Workers: 2})
	require.NoError(t, err)
	b, err := simulation.RunStochastic(context.Background(), req, scenarios, simulation.Options{Seed: 21, Workers: 6})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunStochastic_Cancelled(t *testing.T) {
	req := cornRequest()
	req.PathsPerProduct = 500
	scenarios := generate(t, req)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulation.RunStochastic(ctx, req, scenarios, simulation.Options{Seed: 3})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunStochastic_InvalidHorizon(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)
	req.HorizonDays = 0

	_, err := simulation.RunStochastic(context.Background(), req, scenarios, simulation.Options{})
	require.Error(t, err)
	assert.True(t, domain.IsInputError(err))
}

// --- Sensitivity ---

func TestNormalizeGrid(t *testing.T) {
	assert.Equal(t, simulation.DefaultGrid, simulation.NormalizeGrid(nil))
	assert.Equal(t, []float64{-30, -10, 0, 10, 30}, simulation.NormalizeGrid([]float64{10, -30}))
	assert.Equal(t, []float64{-5, 0, 5}, simulation.NormalizeGrid([]float64{5, -5, 0, 5, 150}))
}

func TestRunSensitivity_ZeroVariationIsBaseline(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)

	res, err := simulation.RunSensitivity(context.Background(), req, scenarios, simulation.SensitivityOptions{})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, len(scenarios))

	for i, ss := range res.Scenarios {
		assert.Equal(t, scenarios[i].ID, ss.ScenarioID)
		assert.Equal(t, scenarios[i].Metrics.NetProfit, ss.BaselineProfit)
		for _, ps := range ss.Parameters {
			for _, pt := range ps.Points {
				if pt.VariationPct == 0 {
					assert.Equal(t, ss.BaselineProfit, pt.Profit)
					assert.Equal(t, 0.0, pt.ProfitChange)
				}
			}
		}
	}
}

func TestRunSensitivity_FertilizerPriceSymmetric(t *testing.T) {
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBaseline}
	req.SensitivityGrid = []float64{10}
	scenarios := generate(t, req)

	res, err := simulation.RunSensitivity(context.Background(), req, scenarios, simulation.SensitivityOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{-10, 0, 10}, res.Variations)

	fert := res.Scenarios[0].Parameters[0]
	require.Equal(t, domain.ParamFertilizerPrice, fert.Parameter)
	down, up := fert.Points[0], fert.Points[2]
	// cost = 10,640 → ±1,064
	assert.InDelta(t, -1064, up.ProfitChange, 1e-6)
	assert.InDelta(t, -down.ProfitChange, up.ProfitChange, 1e-6)
}

func TestRunSensitivity_CriticalParameters(t *testing.T) {
	req := cornRequest()
	scenarios := generate(t, req)

	res, err := simulation.RunSensitivity(context.Background(), req, scenarios, simulation.SensitivityOptions{})
	require.NoError(t, err)

	// baseline: profit 157,360; ±20% crop/yield/acres mueve ≥ 31,472 > 15%.
	// fertilizante ±20% = 2,128, no material.
	assert.Equal(t, "baseline", res.ReferenceScenarioID)
	assert.Equal(t, simulation.DefaultMateriality, res.Materiality)
	assert.Equal(t, []domain.Parameter{domain.ParamCropPrice, domain.ParamYield, domain.ParamFieldSize}, res.CriticalParameters)
	assert.Len(t, res.Recommendations, 3)

	var crop domain.ParameterSensitivity
	for _, ss := range res.Scenarios {
		if ss.ScenarioID == "baseline" {
			crop = ss.Parameters[1]
		}
	}
	assert.InDelta(t, 33600.0/157360.0*100/20, crop.Elasticity, 1e-9)
	assert.InDelta(t, 84000, crop.MaxAbsChange, 1e-6)
}

func TestRunSensitivity_ReferenceFallsBackToFirst(t *testing.T) {
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBearMarket, domain.ScenarioVolatile}
	req.SensitivityGrid = []float64{5}
	scenarios := generate(t, req)

	res, err := simulation.RunSensitivity(context.Background(), req, scenarios, simulation.SensitivityOptions{Materiality: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "bear_market", res.ReferenceScenarioID)
	assert.Empty(t, res.CriticalParameters)
	assert.Len(t, res.Recommendations, 1)
}
