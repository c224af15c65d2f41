package domain

// BaseResult is the raw economics of a scenario.
type BaseResult struct {
	Profit         float64 `json:"profit"`
	Cost           float64 `json:"cost"`
	Revenue        float64 `json:"revenue"`
	ROIPct         float64 `json:"roi_pct"`
	MarginPct      float64 `json:"margin_pct"`
	BreakEvenYield float64 `json:"break_even_yield"`
}

// WeightedResult combines objective scores with the request priorities.
type WeightedResult struct {
	Weights        ObjectiveWeights `json:"weights"`
	Score          float64          `json:"score"`
	WeightedProfit float64          `json:"weighted_profit"`
}

// ConstraintResult reports budget and environmental compliance.
type ConstraintResult struct {
	Budget                 float64 `json:"budget"`
	BudgetViolation        bool    `json:"budget_violation"`
	NitrogenLbsPerAcre     float64 `json:"nitrogen_lbs_per_acre"`
	NitrogenLimit          float64 `json:"nitrogen_limit,omitempty"`
	EnvironmentalViolation bool    `json:"environmental_violation"`
	ComplianceScore        float64 `json:"compliance_score"`
}

// Violated reports whether any constraint is broken.
func (c ConstraintResult) Violated() bool {
	return c.BudgetViolation || c.EnvironmentalViolation
}

// RiskAdjustedResult is profit discounted by the scenario risk score.
type RiskAdjustedResult struct {
	RiskScore          float64 `json:"risk_score"`
	Discount           float64 `json:"discount"`
	RiskAdjustedProfit float64 `json:"risk_adjusted_profit"`
	RiskAdjustedROIPct float64 `json:"risk_adjusted_roi_pct"`
}

// Objective names one optimization goal.
type Objective string

const (
	ObjectiveProfit        Objective = "maximize_profit"
	ObjectiveCost          Objective = "minimize_cost"
	ObjectiveRisk          Objective = "minimize_risk"
	ObjectiveEnvironmental Objective = "minimize_environmental_impact"
)

// ObjectiveScore is one normalized objective value in [0,1].
type ObjectiveScore struct {
	Objective Objective `json:"objective"`
	Weight    float64   `json:"weight"`
	Score     float64   `json:"score"`
}

// ConstraintCheck is one evaluated constraint.
type ConstraintCheck struct {
	Name      string  `json:"name"`
	Limit     float64 `json:"limit"`
	Actual    float64 `json:"actual"`
	Satisfied bool    `json:"satisfied"`
}

// Optimization methods reported in MultiObjectiveOptimizationResult.Methods.
const (
	MethodBase         = "base"
	MethodWeightedSum  = "weighted_sum"
	MethodConstraint   = "constraint_check"
	MethodRiskAdjusted = "risk_adjusted"
)

// MultiObjectiveOptimizationResult is the optimizer output for one scenario.
type MultiObjectiveOptimizationResult struct {
	ScenarioID   string             `json:"scenario_id"`
	Base         BaseResult         `json:"base"`
	Weighted     WeightedResult     `json:"weighted"`
	Constraint   ConstraintResult   `json:"constraint"`
	RiskAdjusted RiskAdjustedResult `json:"risk_adjusted"`
	Objectives   []ObjectiveScore   `json:"objectives"`
	Constraints  []ConstraintCheck  `json:"constraints"`
	Methods      []string           `json:"methods"`
}
