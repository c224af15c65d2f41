package domain

// RiskLevel clasifica el riesgo global de un escenario.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether l is one of the known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Severity orders levels: low=1 … critical=4, unknown=0.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// Component weights of the overall risk score.
const (
	weightPriceVolatility = 0.35
	weightSupplyChain     = 0.25
	weightMarketDemand    = 0.20
	weightEconomic        = 0.20
)

// Factor thresholds: a component above its threshold becomes a RiskFactor.
const (
	ThresholdPriceVolatility = 0.3
	ThresholdSupplyChain     = 0.5
	ThresholdMarketDemand    = 0.3
	ThresholdEconomic        = 0.3
)

// RiskFactor names one identified risk.
type RiskFactor string

const (
	FactorPriceVolatility RiskFactor = "price_volatility"
	FactorSupplyChain     RiskFactor = "supply_chain"
	FactorMarketDemand    RiskFactor = "market_demand"
	FactorEconomic        RiskFactor = "economic"
	FactorBudgetOverrun   RiskFactor = "budget_overrun"
	FactorEnvironmental   RiskFactor = "environmental_limit"
)

// RiskComponents are the individual risk scores, each in [0,1].
type RiskComponents struct {
	PriceVolatility float64 `json:"price_volatility"`
	SupplyChain     float64 `json:"supply_chain"`
	MarketDemand    float64 `json:"market_demand"`
	Economic        float64 `json:"economic"`
}

// Overall is the weighted score of the components, clamped to [0,1].
func (c RiskComponents) Overall() float64 {
	s := weightPriceVolatility*c.PriceVolatility +
		weightSupplyChain*c.SupplyChain +
		weightMarketDemand*c.MarketDemand +
		weightEconomic*c.Economic
	return Clamp01(s)
}

// Factors returns the components above their thresholds, in fixed order.
func (c RiskComponents) Factors() []RiskFactor {
	var out []RiskFactor
	if c.PriceVolatility > ThresholdPriceVolatility {
		out = append(out, FactorPriceVolatility)
	}
	if c.SupplyChain > ThresholdSupplyChain {
		out = append(out, FactorSupplyChain)
	}
	if c.MarketDemand > ThresholdMarketDemand {
		out = append(out, FactorMarketDemand)
	}
	if c.Economic > ThresholdEconomic {
		out = append(out, FactorEconomic)
	}
	return out
}

// RiskAssessment is the risk profile of one scenario.
type RiskAssessment struct {
	ScenarioID          string               `json:"scenario_id"`
	Level               RiskLevel            `json:"level"`
	OverallScore        float64              `json:"overall_score"`
	Components          RiskComponents       `json:"components"`
	Factors             []RiskFactor         `json:"factors"`
	Mitigations         []string             `json:"mitigations"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals,omitempty"`
}

// mitigationTemplates es el texto fijo por factor de riesgo.
var mitigationTemplates = map[RiskFactor][]string{
	FactorPriceVolatility: {
		"Lock in part of the input purchase with forward contracts",
		"Review input and crop prices weekly until application",
	},
	FactorSupplyChain: {
		"Diversify suppliers and secure product ahead of the application window",
		"Keep an alternative nitrogen source approved for the field",
	},
	FactorMarketDemand: {
		"Forward-sell a portion of expected production",
		"Consider revenue protection crop insurance",
	},
	FactorEconomic: {
		"Keep operating credit headroom for input price spikes",
		"Review the plan monthly against updated market conditions",
	},
	FactorBudgetOverrun: {
		"Phase purchases or reduce rates on lower-response zones to stay within budget",
	},
	FactorEnvironmental: {
		"Split nitrogen applications or switch to a stabilized product to stay under the limit",
	},
}

// MitigationsFor returns the templated strategies for the given factors, in
// factor order, without duplicates.
func MitigationsFor(factors []RiskFactor) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range factors {
		for _, m := range mitigationTemplates[f] {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "Standard monitoring: review prices before each input purchase")
	}
	return out
}

// AssessProfile builds the deterministic risk assessment for a scenario
// profile. The level comes from the profile table; the score from the
// components.
func AssessProfile(scenarioID string, p ScenarioProfile) RiskAssessment {
	c := RiskComponents{
		PriceVolatility: Clamp01(p.Volatility),
		SupplyChain:     p.SupplyChainRisk,
		MarketDemand:    p.MarketDemandRisk,
		Economic:        p.EconomicRisk,
	}
	factors := c.Factors()
	return RiskAssessment{
		ScenarioID:   scenarioID,
		Level:        p.RiskLevel,
		OverallScore: c.Overall(),
		Components:   c,
		Factors:      factors,
		Mitigations:  MitigationsFor(factors),
	}
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
