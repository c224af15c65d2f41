package domain

// ScenarioType is the closed set of market scenarios. Adding a type means one
// new constant plus one row in scenarioProfiles.
type ScenarioType string

const (
	ScenarioBullMarket       ScenarioType = "bull_market"
	ScenarioBearMarket       ScenarioType = "bear_market"
	ScenarioVolatile         ScenarioType = "volatile"
	ScenarioSeasonal         ScenarioType = "seasonal"
	ScenarioSupplyDisruption ScenarioType = "supply_disruption"
	ScenarioBaseline         ScenarioType = "baseline"
	ScenarioCustom           ScenarioType = "custom"
)

// MarketCondition labels the market state a scenario represents.
type MarketCondition string

const (
	ConditionBullish   MarketCondition = "bullish"
	ConditionBearish   MarketCondition = "bearish"
	ConditionVolatile  MarketCondition = "volatile"
	ConditionSeasonal  MarketCondition = "seasonal"
	ConditionDisrupted MarketCondition = "disrupted"
	ConditionStable    MarketCondition = "stable"
	ConditionCustom    MarketCondition = "custom"
)

// ScenarioProfile is the constant table row for one scenario type.
type ScenarioProfile struct {
	Name                 string
	Description          string
	Condition            MarketCondition
	FertilizerMultiplier float64
	CropMultiplier       float64
	Probability          float64
	Confidence           float64
	Volatility           float64
	RiskLevel            RiskLevel
	SupplyChainRisk      float64
	MarketDemandRisk     float64
	EconomicRisk         float64
}

const (
	// CustomDefaultVolatility applies to custom scenarios without an explicit volatility.
	CustomDefaultVolatility = 0.25
	// CustomConfidence is the forecast confidence of custom scenarios.
	CustomConfidence = 0.70
)

var scenarioProfiles = map[ScenarioType]ScenarioProfile{
	ScenarioBullMarket: {
		Name: "Bull Market", Description: "Strong commodity demand lifts crop prices faster than input costs",
		Condition: ConditionBullish, FertilizerMultiplier: 1.2, CropMultiplier: 1.3,
		Probability: 0.20, Confidence: 0.75, Volatility: 0.15, RiskLevel: RiskLow,
		SupplyChainRisk: 0.1, MarketDemandRisk: 0.1, EconomicRisk: 0.3,
	},
	ScenarioBearMarket: {
		Name: "Bear Market", Description: "Weak demand pushes crop prices down more than input costs",
		Condition: ConditionBearish, FertilizerMultiplier: 0.8, CropMultiplier: 0.7,
		Probability: 0.20, Confidence: 0.75, Volatility: 0.20, RiskLevel: RiskHigh,
		SupplyChainRisk: 0.1, MarketDemandRisk: 0.2, EconomicRisk: 0.3,
	},
	ScenarioVolatile: {
		Name: "Volatile Market", Description: "Wide price swings in both inputs and crop",
		Condition: ConditionVolatile, FertilizerMultiplier: 1.1, CropMultiplier: 0.9,
		Probability: 0.10, Confidence: 0.60, Volatility: 0.35, RiskLevel: RiskHigh,
		SupplyChainRisk: 0.1, MarketDemandRisk: 0.2, EconomicRisk: 0.3,
	},
	ScenarioSeasonal: {
		Name: "Seasonal Pattern", Description: "Typical pre-planting input price rise with flat crop prices",
		Condition: ConditionSeasonal, FertilizerMultiplier: 1.05, CropMultiplier: 1.0,
		Probability: 0.30, Confidence: 0.85, Volatility: 0.15, RiskLevel: RiskMedium,
		SupplyChainRisk: 0.1, MarketDemandRisk: 0.1, EconomicRisk: 0.3,
	},
	ScenarioSupplyDisruption: {
		Name: "Supply Disruption", Description: "Input supply shock drives fertilizer prices sharply higher",
		Condition: ConditionDisrupted, FertilizerMultiplier: 1.4, CropMultiplier: 1.0,
		Probability: 0.10, Confidence: 0.50, Volatility: 0.40, RiskLevel: RiskCritical,
		SupplyChainRisk: 0.8, MarketDemandRisk: 0.1, EconomicRisk: 0.3,
	},
	ScenarioBaseline: {
		Name: "Baseline", Description: "Current prices hold through the horizon",
		Condition: ConditionStable, FertilizerMultiplier: 1.0, CropMultiplier: 1.0,
		Probability: 0.10, Confidence: 0.95, Volatility: 0.10, RiskLevel: RiskLow,
		SupplyChainRisk: 0.1, MarketDemandRisk: 0.1, EconomicRisk: 0.1,
	},
}

// builtinOrder fixes generation order for the built-in scenarios.
var builtinOrder = []ScenarioType{
	ScenarioBullMarket,
	ScenarioBearMarket,
	ScenarioVolatile,
	ScenarioSeasonal,
	ScenarioSupplyDisruption,
	ScenarioBaseline,
}

// BuiltinScenarioTypes devuelve los tipos built-in en orden de generación.
func BuiltinScenarioTypes() []ScenarioType {
	return append([]ScenarioType(nil), builtinOrder...)
}

// Profile returns the constant table row for a built-in type.
func (t ScenarioType) Profile() (ScenarioProfile, bool) {
	p, ok := scenarioProfiles[t]
	return p, ok
}

// CustomProfile builds a profile row from caller-supplied values.
func CustomProfile(c CustomScenario) ScenarioProfile {
	vol := c.Volatility
	if vol <= 0 {
		vol = CustomDefaultVolatility
	}
	return ScenarioProfile{
		Name:                 c.Name,
		Description:          "Caller-defined scenario",
		Condition:            ConditionCustom,
		FertilizerMultiplier: c.FertilizerMultiplier,
		CropMultiplier:       c.CropMultiplier,
		Probability:          c.Probability,
		Confidence:           CustomConfidence,
		Volatility:           vol,
		RiskLevel:            c.RiskLevel,
		SupplyChainRisk:      0.1,
		MarketDemandRisk:     0.1,
		EconomicRisk:         0.3,
	}
}

// PriceForecast is the forecast for one product under one scenario.
type PriceForecast struct {
	Product       string  `json:"product"`
	Unit          string  `json:"unit,omitempty"`
	CurrentPrice  float64 `json:"current_price"`
	ForecastPrice float64 `json:"forecast_price"`
	ChangePct     float64 `json:"change_pct"`
	Confidence    float64 `json:"confidence"`
	HorizonDays   int     `json:"horizon_days"`
	Volatility    float64 `json:"volatility"`
	// HistoricalVolatility is the annualized volatility of the provider's
	// price history, 0 when no history was available. Informational only.
	HistoricalVolatility float64 `json:"historical_volatility,omitempty"`
}

// ScenarioMetrics is the financial summary of a scenario.
type ScenarioMetrics struct {
	TotalCost      float64 `json:"total_cost"`
	TotalRevenue   float64 `json:"total_revenue"`
	NetProfit      float64 `json:"net_profit"`
	MarginPct      float64 `json:"margin_pct"`
	ROIPct         float64 `json:"roi_pct"`
	CostPerAcre    float64 `json:"cost_per_acre"`
	RevenuePerAcre float64 `json:"revenue_per_acre"`
}

// ConfidenceInterval is a [Lower, Upper] range at a confidence Level.
type ConfidenceInterval struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ProbabilityDistribution is the analytic profit distribution attached to a scenario.
type ProbabilityDistribution struct {
	Probability         float64              `json:"probability"`
	ProfitStdDev        float64              `json:"profit_std_dev"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals"`
}

// CostModel is the priced input of the shared cost/revenue formula for one
// scenario. Inputs are priced at the quoted (current) input price; the crop
// multiplier is applied to revenue.
type CostModel struct {
	Farm           FarmModel   `json:"farm"`
	Inputs         []CostInput `json:"inputs"`
	CropPrice      float64     `json:"crop_price"`
	CropMultiplier float64     `json:"crop_multiplier"`
}

// Evaluate runs the shared formula on the model.
func (m CostModel) Evaluate() Economics {
	return m.Farm.Evaluate(m.Inputs, m.CropPrice, m.CropMultiplier)
}

// EconomicScenario is one named market condition with its forecasts and metrics.
type EconomicScenario struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Type                 ScenarioType    `json:"type"`
	Condition            MarketCondition `json:"market_condition"`
	Description          string          `json:"description"`
	FertilizerMultiplier float64         `json:"fertilizer_multiplier"`
	CropMultiplier       float64         `json:"crop_multiplier"`
	// Forecasts[i] is the forecast for Model.Inputs[i].
	Forecasts    []PriceForecast         `json:"forecasts"`
	CropForecast PriceForecast           `json:"crop_forecast"`
	Model        CostModel               `json:"model"`
	Metrics      ScenarioMetrics         `json:"metrics"`
	Distribution ProbabilityDistribution `json:"distribution"`
	Risk         RiskAssessment          `json:"risk"`
	Assumptions  []string                `json:"assumptions"`
	// Excluded lists products dropped because no price was available.
	Excluded []string `json:"excluded,omitempty"`
}

// Volatility devuelve el factor de volatilidad del escenario.
func (s EconomicScenario) Volatility() float64 {
	return s.CropForecast.Volatility
}

// Confidence is the forecast confidence of the scenario.
func (s EconomicScenario) Confidence() float64 {
	return s.CropForecast.Confidence
}

// ForecastInputs returns the cost lines priced at the scenario's forecast
// prices instead of the quoted ones.
func (s EconomicScenario) ForecastInputs() []CostInput {
	out := make([]CostInput, len(s.Model.Inputs))
	copy(out, s.Model.Inputs)
	for i := range out {
		if i < len(s.Forecasts) {
			out[i].PricePerUnit = s.Forecasts[i].ForecastPrice
		}
	}
	return out
}
