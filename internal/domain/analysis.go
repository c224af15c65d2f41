package domain

import "time"

// AnalysisStatus is owned by the orchestrating call; nothing else mutates it.
type AnalysisStatus string

const (
	StatusCompleted AnalysisStatus = "completed"
	// StatusPartial means some products or stages could not be computed; see Errors.
	StatusPartial AnalysisStatus = "partial"
	StatusFailed  AnalysisStatus = "failed"
)

// AnalysisResult es la respuesta completa de un análisis.
type AnalysisResult struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Status    AnalysisStatus      `json:"status"`
	Duration  time.Duration       `json:"duration"`
	Request   OptimizationRequest `json:"request"`

	Scenarios       []EconomicScenario                 `json:"scenarios"`
	MonteCarlo      MonteCarloResult                   `json:"monte_carlo"`
	Stochastic      StochasticResult                   `json:"stochastic"`
	Sensitivity     SensitivityResult                  `json:"sensitivity"`
	Optimizations   []MultiObjectiveOptimizationResult `json:"optimizations"`
	Risks           []RiskAssessment                   `json:"risks"`
	Budgets         []BudgetAllocation                 `json:"budgets"`
	Priorities      []InvestmentPriority               `json:"priorities"`
	Recommendations []string                           `json:"recommendations"`

	// Errors lists everything that could not be computed (excluded products,
	// missing history). Fatal errors are returned, not listed.
	Errors []string `json:"errors,omitempty"`
}

// BestScenario returns the scenario with the highest net profit.
func (r AnalysisResult) BestScenario() (EconomicScenario, bool) {
	return pickScenario(r.Scenarios, func(a, b float64) bool { return a > b })
}

// WorstScenario returns the scenario with the lowest net profit.
func (r AnalysisResult) WorstScenario() (EconomicScenario, bool) {
	return pickScenario(r.Scenarios, func(a, b float64) bool { return a < b })
}

func pickScenario(scenarios []EconomicScenario, better func(a, b float64) bool) (EconomicScenario, bool) {
	if len(scenarios) == 0 {
		return EconomicScenario{}, false
	}
	best := scenarios[0]
	for _, s := range scenarios[1:] {
		if better(s.Metrics.NetProfit, best.Metrics.NetProfit) {
			best = s
		}
	}
	return best, true
}

// AnalysisSummary is the lightweight row listed from storage.
type AnalysisSummary struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Status         AnalysisStatus `json:"status"`
	CropType       string         `json:"crop_type"`
	Region         string         `json:"region"`
	FieldAcres     float64        `json:"field_acres"`
	ScenarioCount  int            `json:"scenario_count"`
	BestScenario   string         `json:"best_scenario"`
	BestProfit     float64        `json:"best_profit"`
	ExpectedProfit float64        `json:"expected_profit"`
}

// Summarize builds the storage summary row of a result.
func (r AnalysisResult) Summarize() AnalysisSummary {
	s := AnalysisSummary{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt,
		Status:         r.Status,
		CropType:       r.Request.CropType,
		Region:         r.Request.Region,
		FieldAcres:     r.Request.FieldAcres,
		ScenarioCount:  len(r.Scenarios),
		ExpectedProfit: r.MonteCarlo.Aggregate.ExpectedProfit,
	}
	if best, ok := r.BestScenario(); ok {
		s.BestScenario = best.ID
		s.BestProfit = best.Metrics.NetProfit
	}
	return s
}

// AnalysisFilter narrows List queries. Zero values mean no filter.
type AnalysisFilter struct {
	CropType string
	Region   string
	From     time.Time
	To       time.Time
	Limit    int
}
