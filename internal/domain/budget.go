package domain

// BudgetCategory is one line of the budget split.
type BudgetCategory string

const (
	CategoryYieldPotential BudgetCategory = "yield_potential"
	CategoryCostEfficiency BudgetCategory = "cost_efficiency"
	CategoryEnvironmental  BudgetCategory = "environmental_impact"
	CategoryRiskManagement BudgetCategory = "risk_management"
	CategorySustainability BudgetCategory = "sustainability"
)

// BudgetCategories is the fixed category order.
var BudgetCategories = []BudgetCategory{
	CategoryYieldPotential,
	CategoryCostEfficiency,
	CategoryEnvironmental,
	CategoryRiskManagement,
	CategorySustainability,
}

// CategoryAllocation is the amount assigned to one category.
type CategoryAllocation struct {
	Category BudgetCategory `json:"category"`
	Weight   float64        `json:"weight"`
	Amount   float64        `json:"amount"`
}

// BudgetAllocation is the budget split for one optimization result.
type BudgetAllocation struct {
	ScenarioID   string               `json:"scenario_id"`
	TotalBudget  float64              `json:"total_budget"`
	Breakdown    []CategoryAllocation `json:"breakdown"`
	PerAcre      float64              `json:"per_acre"`
	PlannedSpend float64              `json:"planned_spend"`
	Utilization  float64              `json:"utilization"`
	Remaining    float64              `json:"remaining"`
	// Overcommitted is set when planned spend exceeds the budget; Utilization
	// is then capped at 1.
	Overcommitted bool `json:"overcommitted"`
}

// Allocated returns Σ breakdown amounts.
func (b BudgetAllocation) Allocated() float64 {
	var s float64
	for _, c := range b.Breakdown {
		s += c.Amount
	}
	return s
}

// PriorityLevel is the investment priority bucket.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
	PriorityDefer  PriorityLevel = "defer"
)

// Priority score thresholds.
const (
	ThresholdHigh   = 0.8
	ThresholdMedium = 0.6
	ThresholdLow    = 0.4
)

// PriorityLevelFor maps a score to its level with the fixed thresholds.
func PriorityLevelFor(score float64) PriorityLevel {
	switch {
	case score >= ThresholdHigh:
		return PriorityHigh
	case score >= ThresholdMedium:
		return PriorityMedium
	case score >= ThresholdLow:
		return PriorityLow
	default:
		return PriorityDefer
	}
}

// InvestmentPriority ranks one optimization result.
type InvestmentPriority struct {
	ScenarioID         string        `json:"scenario_id"`
	Rank               int           `json:"rank"`
	Score              float64       `json:"score"`
	Level              PriorityLevel `json:"level"`
	RiskAdjustedReturn float64       `json:"risk_adjusted_return"`
	PaybackMonths      float64       `json:"payback_months"`
	PaybackReachable   bool          `json:"payback_reachable"`
	OpportunityCost    float64       `json:"opportunity_cost"`
	Confidence         float64       `json:"confidence"`
	Recommendations    []string      `json:"recommendations"`
}
