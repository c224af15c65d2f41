package optimization

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// Findings is everything the synthesizer reads. Every field is optional.
type Findings struct {
	Scenarios   []domain.EconomicScenario
	MonteCarlo  domain.MonteCarloResult
	Stochastic  domain.StochasticResult
	Sensitivity domain.SensitivityResult
	Risks       []domain.RiskAssessment
	Budgets     []domain.BudgetAllocation
	Priorities  []domain.InvestmentPriority
}

// bestPractices is the fixed tail of every recommendation list.
var bestPractices = []string{
	"Soil test before finalizing rates and credit residual nitrogen",
	"Match application timing to crop uptake to reduce losses",
	"Re-run this analysis when input or crop prices move more than 10%",
}

// SynthesizeRecommendations assembles the ordered recommendation list:
// best and worst scenario, high-risk warnings, Monte Carlo outlook, price
// trend, sensitivity advice, top priority, budget warnings, then the fixed
// best-practice tail. Pure aggregation; the same findings give the same list.
func SynthesizeRecommendations(f Findings) []string {
	var out []string

	if best, worst, ok := extremes(f.Scenarios); ok {
		out = append(out, fmt.Sprintf("Best case: %s with net profit $%.0f (ROI %.1f%%)",
			best.Name, best.Metrics.NetProfit, best.Metrics.ROIPct))
		if worst.ID != best.ID {
			out = append(out, fmt.Sprintf("Worst case: %s with net profit $%.0f (ROI %.1f%%)",
				worst.Name, worst.Metrics.NetProfit, worst.Metrics.ROIPct))
		}
	}

	var highRisk []string
	for _, r := range f.Risks {
		if r.Level.Severity() >= domain.RiskHigh.Severity() {
			highRisk = append(highRisk, fmt.Sprintf("%s (%s)", r.ScenarioID, r.Level))
		}
	}
	if len(highRisk) > 0 {
		out = append(out, "High-risk scenarios: "+strings.Join(highRisk, ", ")+"; prepare the listed mitigations")
	}

	if mc := f.MonteCarlo; len(mc.Scenarios) > 0 {
		agg := mc.Aggregate
		out = append(out, fmt.Sprintf("Monte Carlo (%d iterations): %.0f%% probability of profit, expected profit $%.0f (range $%.0f to $%.0f)",
			mc.Iterations, agg.ProbabilityOfProfit*100, agg.ExpectedProfit, agg.WorstCase, agg.BestCase))
		if agg.ProbabilityOfProfit < 0.6 {
			out = append(out, "Profitability is uncertain across scenarios; consider revenue protection before committing")
		}
	}

	if trend, ok := dominantTrend(f.Stochastic); ok {
		switch trend {
		case domain.TrendIncreasing:
			out = append(out, "Simulated price paths trend upward over the horizon; consider buying inputs early")
		case domain.TrendDecreasing:
			out = append(out, "Simulated price paths trend downward over the horizon; staged purchases may pay off")
		}
	}

	out = append(out, f.Sensitivity.Recommendations...)

	if len(f.Priorities) > 0 {
		top := f.Priorities[0]
		out = append(out, fmt.Sprintf("Top investment priority: %s (score %.2f, %s)", top.ScenarioID, top.Score, top.Level))
	}

	var over []string
	for _, b := range f.Budgets {
		if b.Overcommitted {
			over = append(over, b.ScenarioID)
		}
	}
	if len(over) > 0 {
		out = append(out, "Planned spend exceeds budget in: "+strings.Join(over, ", "))
	}

	return append(out, bestPractices...)
}

func extremes(scenarios []domain.EconomicScenario) (best, worst domain.EconomicScenario, ok bool) {
	r := domain.AnalysisResult{Scenarios: scenarios}
	best, ok = r.BestScenario()
	if !ok {
		return best, worst, false
	}
	worst, _ = r.WorstScenario()
	return best, worst, true
}

// dominantTrend is the most common scenario trend; ties go to stable.
func dominantTrend(res domain.StochasticResult) (domain.Trend, bool) {
	if len(res.Scenarios) == 0 {
		return "", false
	}
	counts := make(map[domain.Trend]int)
	for _, s := range res.Scenarios {
		counts[s.Metrics.Trend]++
	}
	up, down := counts[domain.TrendIncreasing], counts[domain.TrendDecreasing]
	switch {
	case up > down && up > counts[domain.TrendStable]:
		return domain.TrendIncreasing, true
	case down > up && down > counts[domain.TrendStable]:
		return domain.TrendDecreasing, true
	default:
		return domain.TrendStable, true
	}
}
