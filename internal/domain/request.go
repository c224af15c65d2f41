package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	MinIterations  = 1_000
	MaxIterations  = 100_000
	MaxHorizonDays = 730

	DefaultHorizonDays     = 90
	DefaultIterations      = 10_000
	DefaultPathsPerProduct = 50
	MaxPathsPerProduct     = 1_000

	// MaxCustomVolatility is the upper bound for a custom scenario volatility.
	MaxCustomVolatility = 5.0
)

// DefaultConfidenceLevels are used when the request does not specify any.
var DefaultConfidenceLevels = []float64{0.90, 0.95, 0.99}

// RiskTolerance is the farmer's declared appetite for risk.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "low"
	RiskToleranceMedium RiskTolerance = "medium"
	RiskToleranceHigh   RiskTolerance = "high"
)

// FertilizerRequirement is one input product applied to the field.
type FertilizerRequirement struct {
	Product        string  `yaml:"product" json:"product"`
	RateLbsPerAcre float64 `yaml:"rate_lbs_per_acre" json:"rate_lbs_per_acre"`
	Method         string  `yaml:"method" json:"method"`
	// PriceUnit is the unit the product is priced in: ton | cwt | lb | kg | tonne.
	PriceUnit string `yaml:"price_unit" json:"price_unit"`
	// PricePerUnit overrides the market data provider when > 0.
	PricePerUnit float64 `yaml:"price_per_unit" json:"price_per_unit,omitempty"`
	// NitrogenContent is the N fraction of the product (0.46 for urea).
	// 0 = look it up in the nutrient table.
	NitrogenContent float64 `yaml:"nitrogen_content" json:"nitrogen_content,omitempty"`
}

// ObjectiveWeights prioritizes the optimization goals. Weights are normalized
// before use, so only their ratios matter.
type ObjectiveWeights struct {
	Profit        float64 `yaml:"profit" json:"profit"`
	Cost          float64 `yaml:"cost" json:"cost"`
	Risk          float64 `yaml:"risk" json:"risk"`
	Environmental float64 `yaml:"environmental" json:"environmental"`
}

// Sum devuelve la suma de todos los pesos.
func (w ObjectiveWeights) Sum() float64 {
	return w.Profit + w.Cost + w.Risk + w.Environmental
}

// Normalized returns the weights scaled to sum 1. Zero weights fall back to
// the defaults.
func (w ObjectiveWeights) Normalized() ObjectiveWeights {
	s := w.Sum()
	if s <= 0 {
		return DefaultObjectiveWeights()
	}
	return ObjectiveWeights{
		Profit:        w.Profit / s,
		Cost:          w.Cost / s,
		Risk:          w.Risk / s,
		Environmental: w.Environmental / s,
	}
}

// DefaultObjectiveWeights favours profit, then cost, risk and environment.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{Profit: 0.4, Cost: 0.3, Risk: 0.2, Environmental: 0.1}
}

// CustomScenario is a caller-defined market condition.
type CustomScenario struct {
	Name                 string    `yaml:"name" json:"name"`
	FertilizerMultiplier float64   `yaml:"fertilizer_multiplier" json:"fertilizer_multiplier"`
	CropMultiplier       float64   `yaml:"crop_multiplier" json:"crop_multiplier"`
	Probability          float64   `yaml:"probability" json:"probability"`
	RiskLevel            RiskLevel `yaml:"risk_level" json:"risk_level"`
	// Volatility is optional; 0 uses the custom default.
	Volatility float64 `yaml:"volatility" json:"volatility,omitempty"`
}

// OptimizationRequest is one analysis request.
type OptimizationRequest struct {
	AnalysisID string `yaml:"analysis_id" json:"analysis_id,omitempty"`
	Region     string `yaml:"region" json:"region"`

	FieldAcres           float64 `yaml:"field_acres" json:"field_acres"`
	CropType             string  `yaml:"crop_type" json:"crop_type"`
	ExpectedYieldPerAcre float64 `yaml:"expected_yield_per_acre" json:"expected_yield_per_acre"`
	// CropPrice is price per bushel/unit; 0 = ask the market data provider.
	CropPrice float64 `yaml:"crop_price" json:"crop_price,omitempty"`

	Fertilizers []FertilizerRequirement `yaml:"fertilizers" json:"fertilizers"`
	Objectives  ObjectiveWeights        `yaml:"objectives" json:"objectives"`

	BudgetLimit           float64       `yaml:"budget_limit" json:"budget_limit,omitempty"`
	MaxNitrogenLbsPerAcre float64       `yaml:"max_nitrogen_lbs_per_acre" json:"max_nitrogen_lbs_per_acre,omitempty"`
	RiskTolerance         RiskTolerance `yaml:"risk_tolerance" json:"risk_tolerance"`

	HorizonDays      int       `yaml:"horizon_days" json:"horizon_days"`
	Iterations       int       `yaml:"iterations" json:"iterations"`
	PathsPerProduct  int       `yaml:"paths_per_product" json:"paths_per_product"`
	ConfidenceLevels []float64 `yaml:"confidence_levels" json:"confidence_levels"`

	ScenarioTypes   []ScenarioType   `yaml:"scenario_types" json:"scenario_types,omitempty"`
	CustomScenarios []CustomScenario `yaml:"custom_scenarios" json:"custom_scenarios,omitempty"`
	SensitivityGrid []float64        `yaml:"sensitivity_grid" json:"sensitivity_grid,omitempty"`

	// Seed makes Monte Carlo and stochastic stages reproducible when set.
	Seed                *uint64 `yaml:"seed" json:"seed,omitempty"`
	WeightByProbability bool    `yaml:"weight_by_probability" json:"weight_by_probability"`
}

// WithDefaults returns a copy of the request with zero-valued optional fields
// filled in. It does not validate.
func (r OptimizationRequest) WithDefaults() OptimizationRequest {
	if r.HorizonDays == 0 {
		r.HorizonDays = DefaultHorizonDays
	}
	if r.Iterations == 0 {
		r.Iterations = DefaultIterations
	}
	if r.PathsPerProduct == 0 {
		r.PathsPerProduct = DefaultPathsPerProduct
	}
	if len(r.ConfidenceLevels) == 0 {
		r.ConfidenceLevels = append([]float64(nil), DefaultConfidenceLevels...)
	}
	if r.Objectives.Sum() == 0 {
		r.Objectives = DefaultObjectiveWeights()
	}
	if r.RiskTolerance == "" {
		r.RiskTolerance = RiskToleranceMedium
	}
	if len(r.ScenarioTypes) == 0 && len(r.CustomScenarios) == 0 {
		r.ScenarioTypes = BuiltinScenarioTypes()
	}
	r.CropType = strings.ToLower(strings.TrimSpace(r.CropType))
	return r
}

// Validate checks every field bound. The first violation is returned as an
// *InputError.
func (r OptimizationRequest) Validate() error {
	if !(r.FieldAcres > 0) || !finite(r.FieldAcres) {
		return &InputError{Field: "field_acres", Reason: "must be > 0"}
	}
	if strings.TrimSpace(r.CropType) == "" {
		return &InputError{Field: "crop_type", Reason: "required"}
	}
	if !(r.ExpectedYieldPerAcre > 0) || !finite(r.ExpectedYieldPerAcre) {
		return &InputError{Field: "expected_yield_per_acre", Reason: "must be > 0"}
	}
	if r.CropPrice < 0 || !finite(r.CropPrice) {
		return &InputError{Field: "crop_price", Reason: "must be a finite number >= 0"}
	}
	if len(r.Fertilizers) == 0 {
		return &InputError{Field: "fertilizers", Reason: "at least one fertilizer requirement is required"}
	}
	for i, f := range r.Fertilizers {
		field := fmt.Sprintf("fertilizers[%d]", i)
		if strings.TrimSpace(f.Product) == "" {
			return &InputError{Field: field + ".product", Reason: "required"}
		}
		if f.RateLbsPerAcre < 0 || !finite(f.RateLbsPerAcre) {
			return &InputError{Field: field + ".rate_lbs_per_acre", Reason: "must be a finite number >= 0"}
		}
		if _, ok := UnitToLbs(f.PriceUnit); !ok {
			return &InputError{Field: field + ".price_unit", Reason: fmt.Sprintf("unknown unit %q", f.PriceUnit)}
		}
		if f.PricePerUnit < 0 || !finite(f.PricePerUnit) {
			return &InputError{Field: field + ".price_per_unit", Reason: "must be a finite number >= 0"}
		}
		if !(f.NitrogenContent >= 0 && f.NitrogenContent <= 1) {
			return &InputError{Field: field + ".nitrogen_content", Reason: "must be in [0,1]"}
		}
	}
	w := r.Objectives
	for _, v := range []float64{w.Profit, w.Cost, w.Risk, w.Environmental} {
		if v < 0 || !finite(v) {
			return &InputError{Field: "objectives", Reason: "weights must be finite numbers >= 0"}
		}
	}
	if r.BudgetLimit < 0 || !finite(r.BudgetLimit) {
		return &InputError{Field: "budget_limit", Reason: "must be a finite number >= 0"}
	}
	if r.MaxNitrogenLbsPerAcre < 0 || !finite(r.MaxNitrogenLbsPerAcre) {
		return &InputError{Field: "max_nitrogen_lbs_per_acre", Reason: "must be a finite number >= 0"}
	}
	switch r.RiskTolerance {
	case RiskToleranceLow, RiskToleranceMedium, RiskToleranceHigh:
	default:
		return &InputError{Field: "risk_tolerance", Reason: fmt.Sprintf("unknown tolerance %q", r.RiskTolerance)}
	}
	if r.HorizonDays < 1 || r.HorizonDays > MaxHorizonDays {
		return &InputError{Field: "horizon_days", Reason: fmt.Sprintf("must be in [1,%d]", MaxHorizonDays)}
	}
	if r.Iterations < MinIterations || r.Iterations > MaxIterations {
		return &InputError{Field: "iterations", Reason: fmt.Sprintf("must be in [%d,%d]", MinIterations, MaxIterations)}
	}
	if r.PathsPerProduct < 1 || r.PathsPerProduct > MaxPathsPerProduct {
		return &InputError{Field: "paths_per_product", Reason: fmt.Sprintf("must be in [1,%d]", MaxPathsPerProduct)}
	}
	if len(r.ConfidenceLevels) == 0 {
		return &InputError{Field: "confidence_levels", Reason: "at least one level is required"}
	}
	for _, c := range r.ConfidenceLevels {
		if !(c > 0 && c < 1) {
			return &InputError{Field: "confidence_levels", Reason: fmt.Sprintf("level %v must be in (0,1)", c)}
		}
	}
	for _, t := range r.ScenarioTypes {
		if _, ok := scenarioProfiles[t]; !ok {
			return &InputError{Field: "scenario_types", Reason: fmt.Sprintf("unknown scenario type %q", t)}
		}
	}
	seen := make(map[string]bool, len(r.CustomScenarios))
	for i, c := range r.CustomScenarios {
		field := fmt.Sprintf("custom_scenarios[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			return &InputError{Field: field + ".name", Reason: "required"}
		}
		if seen[c.Name] {
			return &InputError{Field: field + ".name", Reason: fmt.Sprintf("duplicate name %q", c.Name)}
		}
		seen[c.Name] = true
		if !(c.FertilizerMultiplier > 0) || !(c.CropMultiplier > 0) ||
			!finite(c.FertilizerMultiplier) || !finite(c.CropMultiplier) {
			return &InputError{Field: field, Reason: "multipliers must be finite numbers > 0"}
		}
		if !(c.Probability >= 0 && c.Probability <= 1) {
			return &InputError{Field: field + ".probability", Reason: "must be in [0,1]"}
		}
		if !c.RiskLevel.Valid() {
			return &InputError{Field: field + ".risk_level", Reason: fmt.Sprintf("unknown risk level %q", c.RiskLevel)}
		}
		if !(c.Volatility >= 0 && c.Volatility <= MaxCustomVolatility) {
			return &InputError{Field: field + ".volatility", Reason: fmt.Sprintf("must be in [0,%v]", MaxCustomVolatility)}
		}
	}
	for _, v := range r.SensitivityGrid {
		if v <= -100 || !finite(v) {
			return &InputError{Field: "sensitivity_grid", Reason: fmt.Sprintf("variation %v%% must be finite and > -100", v)}
		}
	}
	return nil
}

// finite rechaza NaN y ±Inf, que YAML acepta como .nan y .inf.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EffectiveBudget devuelve el presupuesto del request o el default por acre.
func (r OptimizationRequest) EffectiveBudget(defaultPerAcre float64) float64 {
	if r.BudgetLimit > 0 {
		return r.BudgetLimit
	}
	return defaultPerAcre * r.FieldAcres
}

// SortedConfidenceLevels returns the confidence levels ascending, deduplicated.
func (r OptimizationRequest) SortedConfidenceLevels() []float64 {
	out := append([]float64(nil), r.ConfidenceLevels...)
	sort.Float64s(out)
	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c == out[i-1] {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}
