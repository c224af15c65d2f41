package scenario_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/agrisim/internal/application/scenario"
	"github.com/alejandrodnm/agrisim/internal/domain"
)

// fakeMarket is a map-backed MarketDataProvider.
type fakeMarket struct {
	prices   map[string]domain.Price
	history  map[string][]domain.Price
	crops    map[string]domain.Price
	priceErr error
	cropErr  error
}

func (f *fakeMarket) CurrentPrice(_ context.Context, product, _ string) (domain.Price, bool, error) {
	if f.priceErr != nil {
		return domain.Price{}, false, f.priceErr
	}
	p, ok := f.prices[product]
	return p, ok, nil
}

func (f *fakeMarket) PriceHistory(_ context.Context, product, _ string, _ int) ([]domain.Price, error) {
	return f.history[product], nil
}

func (f *fakeMarket) CommodityPrices(_ context.Context, crops []string, _ string) (map[string]domain.Price, error) {
	if f.cropErr != nil {
		return nil, f.cropErr
	}
	out := make(map[string]domain.Price)
	for _, c := range crops {
		if p, ok := f.crops[c]; ok {
			out[c] = p
		}
	}
	return out, nil
}

func cornRequest() domain.OptimizationRequest {
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
	}.WithDefaults()
}

func byID(t *testing.T, scenarios []domain.EconomicScenario, id string) domain.EconomicScenario {
	t.Helper()
	for _, s := range scenarios {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("scenario %q not found", id)
	return domain.EconomicScenario{}
}

func TestGenerate_BullMarketEconomics(t *testing.T) {
	g := scenario.New(scenario.Config{}, nil)

	scenarios, err := g.Generate(context.Background(), cornRequest())
	require.NoError(t, err)
	require.Len(t, scenarios, 6)

	bull := byID(t, scenarios, "bull_market")
	// (180/2000·450 + 80/2000·650)·160 = 10,640
	assert.InDelta(t, 10640, bull.Metrics.TotalCost, 0.01)
	// 200·(5.25·1.3)·160 = 218,400
	assert.InDelta(t, 218400, bull.Metrics.TotalRevenue, 0.01)
	assert.InDelta(t, 207760, bull.Metrics.NetProfit, 0.01)
	assert.Equal(t, domain.RiskLow, bull.Risk.Level)
	require.Len(t, bull.Forecasts, 2)
	assert.InDelta(t, 540, bull.Forecasts[0].ForecastPrice, 1e-9)
	assert.InDelta(t, 20, bull.Forecasts[0].ChangePct, 1e-9)
}

func TestGenerate_ProfitIsRevenueMinusCost(t *testing.T) {
	g := scenario.New(scenario.Config{}, nil)

	scenarios, err := g.Generate(context.Background(), cornRequest())
	require.NoError(t, err)

	for _, s := range scenarios {
		assert.InDelta(t, s.Metrics.TotalRevenue-s.Metrics.TotalCost, s.Metrics.NetProfit, 1e-6, s.ID)
		assert.GreaterOrEqual(t, s.Distribution.Probability, 0.0)
		assert.LessOrEqual(t, s.Distribution.Probability, 1.0)
		for _, ci := range s.Distribution.ConfidenceIntervals {
			assert.LessOrEqual(t, ci.Lower, ci.Upper)
		}
	}
}

func TestGenerate_OrderAndIDs(t *testing.T) {
	req := cornRequest()
	req.CustomScenarios = []domain.CustomScenario{
		{Name: "Drought Year", FertilizerMultiplier: 1.1, CropMultiplier: 1.5, Probability: 0.05, RiskLevel: domain.RiskHigh},
	}
	g := scenario.New(scenario.Config{}, nil)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	ids := make([]string, len(scenarios))
	for i, s := range scenarios {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{
		"bull_market", "bear_market", "volatile", "seasonal",
		"supply_disruption", "baseline", "custom_drought_year",
	}, ids)

	custom := scenarios[6]
	assert.Equal(t, domain.ScenarioCustom, custom.Type)
	assert.Equal(t, domain.RiskHigh, custom.Risk.Level)
	assert.InDelta(t, domain.CustomDefaultVolatility, custom.Volatility(), 1e-12)
	assert.InDelta(t, domain.CustomConfidence, custom.Confidence(), 1e-12)
}

func TestGenerate_Idempotent(t *testing.T) {
	g := scenario.New(scenario.Config{}, nil)
	req := cornRequest()

	first, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Metrics, second[i].Metrics)
		assert.Equal(t, first[i].Distribution, second[i].Distribution)
	}
}

func TestGenerate_MissingProductExcluded(t *testing.T) {
	req := cornRequest()
	req.Fertilizers = append(req.Fertilizers, domain.FertilizerRequirement{
		Product: "potash", RateLbsPerAcre: 100, PriceUnit: "ton",
	})
	market := &fakeMarket{prices: map[string]domain.Price{}}
	g := scenario.New(scenario.Config{}, market)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		assert.Equal(t, []string{"potash"}, s.Excluded)
		assert.Len(t, s.Forecasts, 2)
	}
	// El producto excluido no aporta coste.
	bull := byID(t, scenarios, "bull_market")
	assert.InDelta(t, 10640, bull.Metrics.TotalCost, 0.01)
}

func TestGenerate_ProviderErrorExcludesProduct(t *testing.T) {
	req := cornRequest()
	req.Fertilizers[1].PricePerUnit = 0
	market := &fakeMarket{priceErr: errors.New("upstream down")}
	g := scenario.New(scenario.Config{HistoryDays: -1}, market)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"dap"}, scenarios[0].Excluded)
}

func TestGenerate_NonFiniteProviderPriceExcluded(t *testing.T) {
	req := cornRequest()
	req.Fertilizers[0].PricePerUnit = 0
	market := &fakeMarket{prices: map[string]domain.Price{
		"urea": {Product: "urea", Value: math.Inf(1), Unit: "ton"},
	}}
	g := scenario.New(scenario.Config{HistoryDays: -1}, market)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)
	for _, s := range scenarios {
		assert.Equal(t, []string{"urea"}, s.Excluded)
		assert.False(t, math.IsInf(s.Metrics.TotalCost, 0) || math.IsNaN(s.Metrics.TotalCost))
	}
}

func TestGenerate_PricesFromProvider(t *testing.T) {
	req := cornRequest()
	req.CropPrice = 0
	for i := range req.Fertilizers {
		req.Fertilizers[i].PricePerUnit = 0
	}
	market := &fakeMarket{
		prices: map[string]domain.Price{
			"urea": {Product: "urea", Value: 450, Unit: "ton"},
			"dap":  {Product: "dap", Value: 650, Unit: "ton"},
		},
		crops: map[string]domain.Price{"corn": {Product: "corn", Value: 5.25}},
		history: map[string][]domain.Price{
			"urea": {{Value: 440}, {Value: 445}, {Value: 450}, {Value: 448}},
		},
	}
	g := scenario.New(scenario.Config{}, market)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	bull := byID(t, scenarios, "bull_market")
	assert.InDelta(t, 207760, bull.Metrics.NetProfit, 0.01)
	assert.Greater(t, bull.Forecasts[0].HistoricalVolatility, 0.0)
	assert.Equal(t, 0.0, bull.Forecasts[1].HistoricalVolatility)
}

func TestGenerate_MissingCropPriceIsFatal(t *testing.T) {
	req := cornRequest()
	req.CropPrice = 0

	t.Run("no provider", func(t *testing.T) {
		_, err := scenario.New(scenario.Config{}, nil).Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, domain.IsDataUnavailable(err))
	})

	t.Run("provider without crop", func(t *testing.T) {
		market := &fakeMarket{crops: map[string]domain.Price{}}
		_, err := scenario.New(scenario.Config{}, market).Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, domain.IsDataUnavailable(err))
	})

	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("boom")
		market := &fakeMarket{cropErr: boom}
		_, err := scenario.New(scenario.Config{}, market).Generate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, domain.IsDataUnavailable(err))
		assert.ErrorIs(t, err, boom)
	})
}

func TestGenerate_SubsetOfTypes(t *testing.T) {
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{domain.ScenarioBaseline}
	g := scenario.New(scenario.Config{}, nil)

	scenarios, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "baseline", scenarios[0].ID)
	assert.Equal(t, domain.ConditionStable, scenarios[0].Condition)
}

func TestGenerate_NoScenarios(t *testing.T) {
	req := cornRequest()
	req.ScenarioTypes = []domain.ScenarioType{"unknown"}
	g := scenario.New(scenario.Config{}, nil)

	_, err := g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNoScenarios)
}
