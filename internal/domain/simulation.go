package domain

// --- Monte Carlo ---

// ScenarioDistribution is the simulated profit distribution of one scenario.
type ScenarioDistribution struct {
	ScenarioID          string               `json:"scenario_id"`
	Iterations          int                  `json:"iterations"`
	Mean                float64              `json:"mean"`
	Median              float64              `json:"median"`
	StdDev              float64              `json:"std_dev"`
	Min                 float64              `json:"min"`
	Max                 float64              `json:"max"`
	ProbabilityOfProfit float64              `json:"probability_of_profit"`
	ValueAtRisk95       float64              `json:"value_at_risk_95"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals"`
	// ClampedDraws counts random prices that came out negative and were
	// clamped to zero before entering the cost model.
	ClampedDraws int `json:"clamped_draws"`
}

// Weighting is how per-scenario means are combined into the aggregate.
type Weighting string

const (
	WeightEqual       Weighting = "equal"
	WeightProbability Weighting = "probability"
)

// AggregateStatistics summarizes the Monte Carlo run across scenarios.
type AggregateStatistics struct {
	Weighting           Weighting `json:"weighting"`
	ExpectedProfit      float64   `json:"expected_profit"`
	WorstCase           float64   `json:"worst_case"`
	BestCase            float64   `json:"best_case"`
	ProbabilityOfProfit float64   `json:"probability_of_profit"`
	MeanStdDev          float64   `json:"mean_std_dev"`
}

// MonteCarloResult is the profit distribution per scenario plus the aggregate.
type MonteCarloResult struct {
	Iterations int                    `json:"iterations"`
	Seed       uint64                 `json:"seed"`
	Scenarios  []ScenarioDistribution `json:"scenarios"`
	Aggregate  AggregateStatistics    `json:"aggregate"`
}

// Scenario busca la distribución de un escenario por ID.
func (r MonteCarloResult) Scenario(id string) (ScenarioDistribution, bool) {
	for _, s := range r.Scenarios {
		if s.ScenarioID == id {
			return s, true
		}
	}
	return ScenarioDistribution{}, false
}

// --- Stochastic paths ---

// Trend classifies the direction of simulated prices.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrendBandPct is the ±% band inside which a price change counts as stable.
const TrendBandPct = 5.0

// ClassifyTrend maps a % change to a Trend using the ±5% band.
func ClassifyTrend(changePct float64) Trend {
	switch {
	case changePct > TrendBandPct:
		return TrendIncreasing
	case changePct < -TrendBandPct:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// StochasticPath is one simulated daily price trajectory.
// len(Prices) == horizon+1 and Prices[0] is the current price.
type StochasticPath struct {
	Prices []float64 `json:"prices"`
}

// Final devuelve el último precio del path.
func (p StochasticPath) Final() float64 {
	if len(p.Prices) == 0 {
		return 0
	}
	return p.Prices[len(p.Prices)-1]
}

// ProductPaths holds the simulated paths of one product in one scenario.
type ProductPaths struct {
	Product           string           `json:"product"`
	CurrentPrice      float64          `json:"current_price"`
	ForecastPrice     float64          `json:"forecast_price"`
	Drift             float64          `json:"drift"`
	Volatility        float64          `json:"volatility"`
	Paths             []StochasticPath `json:"paths"`
	AverageFinalPrice float64          `json:"average_final_price"`
	PathVolatility    float64          `json:"path_volatility"`
	Trend             Trend            `json:"trend"`
}

// PathMetrics aggregates every product path of a scenario.
type PathMetrics struct {
	AverageFinalChangePct float64 `json:"average_final_change_pct"`
	AveragePathVolatility float64 `json:"average_path_volatility"`
	Trend                 Trend   `json:"trend"`
}

// ScenarioPaths is the stochastic output for one scenario.
type ScenarioPaths struct {
	ScenarioID string         `json:"scenario_id"`
	Products   []ProductPaths `json:"products"`
	Metrics    PathMetrics    `json:"metrics"`
}

// StochasticResult holds the paths of every scenario.
type StochasticResult struct {
	HorizonDays int             `json:"horizon_days"`
	Seed        uint64          `json:"seed"`
	Scenarios   []ScenarioPaths `json:"scenarios"`
}

// --- Sensitivity ---

// Parameter is a model input the sensitivity analyzer perturbs.
type Parameter string

const (
	ParamFertilizerPrice Parameter = "fertilizer_price"
	ParamCropPrice       Parameter = "crop_price"
	ParamYield           Parameter = "yield"
	ParamFieldSize       Parameter = "field_size"
)

// SensitivityParameters is the fixed sweep order.
var SensitivityParameters = []Parameter{ParamFertilizerPrice, ParamCropPrice, ParamYield, ParamFieldSize}

// SensitivityPoint is the outcome of one variation of one parameter.
type SensitivityPoint struct {
	VariationPct    float64 `json:"variation_pct"`
	Profit          float64 `json:"profit"`
	ProfitChange    float64 `json:"profit_change"`
	ProfitChangePct float64 `json:"profit_change_pct"`
}

// ParameterSensitivity is the sweep result of one parameter.
type ParameterSensitivity struct {
	Parameter Parameter          `json:"parameter"`
	Points    []SensitivityPoint `json:"points"`
	// Elasticity is %Δprofit / %Δparameter at the reference variation.
	Elasticity   float64 `json:"elasticity"`
	MaxAbsChange float64 `json:"max_abs_change"`
	Critical     bool    `json:"critical"`
}

// ScenarioSensitivity is the full sweep of one scenario.
type ScenarioSensitivity struct {
	ScenarioID     string                 `json:"scenario_id"`
	BaselineProfit float64                `json:"baseline_profit"`
	Parameters     []ParameterSensitivity `json:"parameters"`
}

// SensitivityResult collects the sweeps of every scenario.
type SensitivityResult struct {
	Variations          []float64             `json:"variations"`
	ReferenceScenarioID string                `json:"reference_scenario_id"`
	Materiality         float64               `json:"materiality"`
	Scenarios           []ScenarioSensitivity `json:"scenarios"`
	CriticalParameters  []Parameter           `json:"critical_parameters"`
	Recommendations     []string              `json:"recommendations"`
}
