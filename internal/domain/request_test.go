package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() OptimizationRequest {
	return OptimizationRequest{
		Region:               "midwest",
		FieldAcres:           100,
		CropType:             " Corn ",
		ExpectedYieldPerAcre: 180,
		Fertilizers: []FertilizerRequirement{
			{Product: "urea", RateLbsPerAcre: 150, PriceUnit: "ton"},
		},
	}.WithDefaults()
}

func TestWithDefaults(t *testing.T) {
	r := validRequest()

	assert.Equal(t, "corn", r.CropType)
	assert.Equal(t, DefaultHorizonDays, r.HorizonDays)
	assert.Equal(t, DefaultIterations, r.Iterations)
	assert.Equal(t, DefaultPathsPerProduct, r.PathsPerProduct)
	assert.Equal(t, DefaultConfidenceLevels, r.ConfidenceLevels)
	assert.Equal(t, RiskToleranceMedium, r.RiskTolerance)
	assert.Equal(t, DefaultObjectiveWeights(), r.Objectives)
	assert.Equal(t, BuiltinScenarioTypes(), r.ScenarioTypes)
	assert.NoError(t, r.Validate())
}

func TestWithDefaults_CustomOnly(t *testing.T) {
	r := OptimizationRequest{
		CustomScenarios: []CustomScenario{{Name: "drought", FertilizerMultiplier: 1, CropMultiplier: 1.2, RiskLevel: RiskHigh}},
	}.WithDefaults()
	assert.Empty(t, r.ScenarioTypes)
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(r *OptimizationRequest)
	}{
		{"field_acres", func(r *OptimizationRequest) { r.FieldAcres = 0 }},
		{"crop_type", func(r *OptimizationRequest) { r.CropType = "  " }},
		{"expected_yield_per_acre", func(r *OptimizationRequest) { r.ExpectedYieldPerAcre = -1 }},
		{"crop_price", func(r *OptimizationRequest) { r.CropPrice = -5 }},
		{"fertilizers", func(r *OptimizationRequest) { r.Fertilizers = nil }},
		{"fertilizers[0].price_unit", func(r *OptimizationRequest) { r.Fertilizers[0].PriceUnit = "bushel" }},
		{"fertilizers[0].nitrogen_content", func(r *OptimizationRequest) { r.Fertilizers[0].NitrogenContent = 1.5 }},
		{"objectives", func(r *OptimizationRequest) { r.Objectives.Risk = -0.1 }},
		{"risk_tolerance", func(r *OptimizationRequest) { r.RiskTolerance = "reckless" }},
		{"horizon_days", func(r *OptimizationRequest) { r.HorizonDays = MaxHorizonDays + 1 }},
		{"iterations", func(r *OptimizationRequest) { r.Iterations = MinIterations - 1 }},
		{"paths_per_product", func(r *OptimizationRequest) { r.PathsPerProduct = MaxPathsPerProduct + 1 }},
		{"confidence_levels", func(r *OptimizationRequest) { r.ConfidenceLevels = []float64{0.95, 1} }},
		{"scenario_types", func(r *OptimizationRequest) { r.ScenarioTypes = []ScenarioType{"meteor"} }},
		{"custom_scenarios[1].name", func(r *OptimizationRequest) {
			c := CustomScenario{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1, RiskLevel: RiskLow}
			r.CustomScenarios = []CustomScenario{c, c}
		}},
		{"custom_scenarios[0].risk_level", func(r *OptimizationRequest) {
			r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1}}
		}},
		{"sensitivity_grid", func(r *OptimizationRequest) { r.SensitivityGrid = []float64{10, -100} }},

		// NaN e Inf llegan desde YAML (.nan, .inf) y no deben pasar.
		{"field_acres", func(r *OptimizationRequest) { r.FieldAcres = math.NaN() }},
		{"expected_yield_per_acre", func(r *OptimizationRequest) { r.ExpectedYieldPerAcre = math.Inf(1) }},
		{"crop_price", func(r *OptimizationRequest) { r.CropPrice = math.NaN() }},
		{"fertilizers[0].rate_lbs_per_acre", func(r *OptimizationRequest) { r.Fertilizers[0].RateLbsPerAcre = math.NaN() }},
		{"fertilizers[0].rate_lbs_per_acre", func(r *OptimizationRequest) { r.Fertilizers[0].RateLbsPerAcre = math.Inf(1) }},
		{"fertilizers[0].price_per_unit", func(r *OptimizationRequest) { r.Fertilizers[0].PricePerUnit = math.Inf(1) }},
		{"fertilizers[0].nitrogen_content", func(r *OptimizationRequest) { r.Fertilizers[0].NitrogenContent = math.NaN() }},
		{"objectives", func(r *OptimizationRequest) { r.Objectives.Profit = math.Inf(1) }},
		{"budget_limit", func(r *OptimizationRequest) { r.BudgetLimit = math.Inf(1) }},
		{"max_nitrogen_lbs_per_acre", func(r *OptimizationRequest) { r.MaxNitrogenLbsPerAcre = math.NaN() }},
		{"custom_scenarios[0]", func(r *OptimizationRequest) {
			r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: math.Inf(1), CropMultiplier: 1, RiskLevel: RiskLow}}
		}},
		{"custom_scenarios[0].probability", func(r *OptimizationRequest) {
			r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1, Probability: math.NaN(), RiskLevel: RiskLow}}
		}},
		{"custom_scenarios[0].volatility", func(r *OptimizationRequest) {
			r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1, RiskLevel: RiskLow, Volatility: MaxCustomVolatility + 1}}
		}},
		{"custom_scenarios[0].volatility", func(r *OptimizationRequest) {
			r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1, RiskLevel: RiskLow, Volatility: math.NaN()}}
		}},
		{"sensitivity_grid", func(r *OptimizationRequest) { r.SensitivityGrid = []float64{math.Inf(1)} }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			r := validRequest()
			r.Fertilizers = append([]FertilizerRequirement(nil), r.Fertilizers...)
			tc.mutate(&r)

			err := r.Validate()
			var ie *InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestValidate_CustomVolatilityAtBound(t *testing.T) {
	r := validRequest()
	r.CustomScenarios = []CustomScenario{{Name: "x", FertilizerMultiplier: 1, CropMultiplier: 1, RiskLevel: RiskHigh, Volatility: MaxCustomVolatility}}
	assert.NoError(t, r.Validate())
}

func TestObjectiveWeights_Normalized(t *testing.T) {
	w := ObjectiveWeights{Profit: 2, Cost: 2}.Normalized()
	assert.InDelta(t, 0.5, w.Profit, 1e-12)
	assert.InDelta(t, 0.5, w.Cost, 1e-12)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)

	assert.Equal(t, DefaultObjectiveWeights(), ObjectiveWeights{}.Normalized())
}

func TestEffectiveBudget(t *testing.T) {
	r := validRequest()
	assert.InDelta(t, 15000.0, r.EffectiveBudget(150), 1e-9)
	r.BudgetLimit = 9000
	assert.InDelta(t, 9000.0, r.EffectiveBudget(150), 1e-9)
}

func TestSortedConfidenceLevels(t *testing.T) {
	r := OptimizationRequest{ConfidenceLevels: []float64{0.99, 0.9, 0.95, 0.9}}
	assert.Equal(t, []float64{0.9, 0.95, 0.99}, r.SortedConfidenceLevels())
	assert.Equal(t, []float64{0.99, 0.9, 0.95, 0.9}, r.ConfidenceLevels)
}

// --- errors ---

func TestErrorHelpers(t *testing.T) {
	in := fmt.Errorf("engine.Analyze: %w", &InputError{Field: "field_acres", Reason: "must be > 0"})
	assert.True(t, IsInputError(in))
	assert.False(t, IsDataUnavailable(in))
	assert.Contains(t, in.Error(), "field_acres")

	du := fmt.Errorf("generate: %w", &DataUnavailableError{Product: "corn", Region: "midwest"})
	assert.True(t, IsDataUnavailable(du))
	assert.Contains(t, du.Error(), `"midwest"`)
	assert.Equal(t, `price unavailable for "corn"`, (&DataUnavailableError{Product: "corn"}).Error())

	assert.False(t, IsInputError(errors.New("boom")))
}
