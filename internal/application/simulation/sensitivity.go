package simulation

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

const (
	// DefaultMateriality is the share of |baseline profit| a swing must exceed
	// for a parameter to be critical.
	DefaultMateriality = 0.15
	// referenceVariation is where criticality and elasticity are measured.
	referenceVariation = 20.0
)

// DefaultGrid is the variation grid in percent used when the request has none.
var DefaultGrid = []float64{-50, -25, -20, -10, -5, 0, 5, 10, 20, 25, 50}

// SensitivityOptions controls RunSensitivity.
type SensitivityOptions struct {
	Workers     int
	Materiality float64 // 0 = DefaultMateriality
}

// NormalizeGrid makes a variation grid symmetric around 0: every value is
// mirrored, 0 is added, duplicates dropped, result sorted ascending.
// Magnitudes of 100% or more have no mirror and are dropped. An empty grid
// yields DefaultGrid.
func NormalizeGrid(grid []float64) []float64 {
	if len(grid) == 0 {
		return slices.Clone(DefaultGrid)
	}
	out := []float64{0}
	for _, v := range grid {
		a := math.Abs(v)
		if a == 0 || a >= 100 {
			continue
		}
		out = append(out, a, -a)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// RunSensitivity perturbs one parameter at a time across the variation grid
// for every scenario, holding the rest of the scenario model fixed.
func RunSensitivity(ctx context.Context, req domain.OptimizationRequest, scenarios []domain.EconomicScenario, opts SensitivityOptions) (domain.SensitivityResult, error) {
	materiality := opts.Materiality
	if materiality <= 0 {
		materiality = DefaultMateriality
	}
	grid := NormalizeGrid(req.SensitivityGrid)
	ref := referenceFor(grid)

	out := make([]domain.ScenarioSensitivity, len(scenarios))
	err := forEachScenario(ctx, "sensitivity", len(scenarios), opts.Workers, func(_ context.Context, i int) error {
		out[i] = sweepScenario(scenarios[i], grid, ref, materiality)
		return nil
	})
	if err != nil {
		return domain.SensitivityResult{}, fmt.Errorf("simulation.RunSensitivity: %w", err)
	}

	res := domain.SensitivityResult{
		Variations:  grid,
		Materiality: materiality,
		Scenarios:   out,
	}
	if len(out) == 0 {
		return res, nil
	}

	refIdx := 0
	for i, s := range scenarios {
		if s.Type == domain.ScenarioBaseline {
			refIdx = i
			break
		}
	}
	res.ReferenceScenarioID = out[refIdx].ScenarioID
	for _, p := range out[refIdx].Parameters {
		if p.Critical {
			res.CriticalParameters = append(res.CriticalParameters, p.Parameter)
		}
	}
	res.Recommendations = sensitivityRecommendations(res.CriticalParameters, ref)
	return res, nil
}

// referenceFor returns 20 when the grid tests ±20%, else its largest magnitude.
func referenceFor(grid []float64) float64 {
	var largest float64
	for _, v := range grid {
		if v == referenceVariation {
			return referenceVariation
		}
		largest = max(largest, math.Abs(v))
	}
	return largest
}

func sweepScenario(s domain.EconomicScenario, grid []float64, ref, materiality float64) domain.ScenarioSensitivity {
	baseline := s.Model.Evaluate().NetProfit

	params := make([]domain.ParameterSensitivity, 0, len(domain.SensitivityParameters))
	for _, param := range domain.SensitivityParameters {
		ps := domain.ParameterSensitivity{Parameter: param, Points: make([]domain.SensitivityPoint, 0, len(grid))}
		var refSwing float64
		for _, v := range grid {
			profit := baseline
			if v != 0 {
				profit = perturb(s.Model, param, 1+v/100).Evaluate().NetProfit
			}
			change := profit - baseline
			pt := domain.SensitivityPoint{
				VariationPct:    v,
				Profit:          profit,
				ProfitChange:    change,
				ProfitChangePct: changePct(change, baseline),
			}
			ps.Points = append(ps.Points, pt)
			ps.MaxAbsChange = max(ps.MaxAbsChange, math.Abs(change))
			if math.Abs(v) == ref {
				refSwing = max(refSwing, math.Abs(change))
				if v > 0 {
					ps.Elasticity = pt.ProfitChangePct / v
				}
			}
		}
		ps.Critical = refSwing > materiality*math.Abs(baseline)
		params = append(params, ps)
	}

	return domain.ScenarioSensitivity{ScenarioID: s.ID, BaselineProfit: baseline, Parameters: params}
}

// perturb returns a copy of the model with one parameter scaled by factor.
func perturb(m domain.CostModel, p domain.Parameter, factor float64) domain.CostModel {
	m.Inputs = slices.Clone(m.Inputs)
	switch p {
	case domain.ParamFertilizerPrice:
		for i := range m.Inputs {
			m.Inputs[i].PricePerUnit *= factor
		}
	case domain.ParamCropPrice:
		m.CropPrice *= factor
	case domain.ParamYield:
		m.Farm.ExpectedYieldPerAcre *= factor
	case domain.ParamFieldSize:
		m.Farm.FieldAcres *= factor
	}
	return m
}

func changePct(change, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return change / math.Abs(baseline) * 100
}

var criticalAdvice = map[domain.Parameter]string{
	domain.ParamFertilizerPrice: "Fertilizer price is a critical driver: lock in input prices early or stage purchases",
	domain.ParamCropPrice:       "Crop price is a critical driver: forward-sell part of the crop or buy revenue insurance",
	domain.ParamYield:           "Yield is a critical driver: protect it with timely application and split nitrogen",
	domain.ParamFieldSize:       "Planted area scales profit directly: review the acreage plan against margins",
}

func sensitivityRecommendations(critical []domain.Parameter, ref float64) []string {
	if len(critical) == 0 {
		return []string{fmt.Sprintf("No single parameter moves profit past the materiality threshold at ±%.0f%%", ref)}
	}
	out := make([]string, 0, len(critical))
	for _, p := range critical {
		out = append(out, criticalAdvice[p])
	}
	return out
}
