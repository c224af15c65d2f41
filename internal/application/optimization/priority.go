package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// Priority score coefficients.
const (
	roiNormalizer     = 200.0
	riskPenalty       = 0.3
	compliancePenalty = 0.2
	monthsPerYear     = 12.0
	defaultConfidence = 0.5
	longPaybackMonths = 24.0
)

// PriorityScore is clamp(min(ROI%/200, 1) − 0.3·risk + 0.2·(1 − compliance), 0, 1).
func PriorityScore(roiPct, riskScore, compliance float64) float64 {
	roi := math.Min(roiPct/roiNormalizer, 1)
	return domain.Clamp01(roi - riskPenalty*riskScore + compliancePenalty*(1-compliance))
}

// PrioritizeInvestments ranks the optimization results by priority score,
// highest first; ties keep scenario order. Payback and opportunity cost are
// heuristics on the risk-adjusted profit, not a cash-flow model, and carry a
// confidence equal to the scenario's forecast confidence times its compliance.
func PrioritizeInvestments(optimizations []domain.MultiObjectiveOptimizationResult, risks []domain.RiskAssessment, scenarios []domain.EconomicScenario) []domain.InvestmentPriority {
	riskByID := make(map[string]domain.RiskAssessment, len(risks))
	for _, r := range risks {
		riskByID[r.ScenarioID] = r
	}
	confByID := make(map[string]float64, len(scenarios))
	for _, s := range scenarios {
		confByID[s.ID] = s.Confidence()
	}

	bestRA := math.Inf(-1)
	for _, o := range optimizations {
		bestRA = math.Max(bestRA, o.RiskAdjusted.RiskAdjustedProfit)
	}

	out := make([]domain.InvestmentPriority, 0, len(optimizations))
	for _, o := range optimizations {
		riskScore := o.RiskAdjusted.RiskScore
		if r, ok := riskByID[o.ScenarioID]; ok {
			riskScore = r.OverallScore
		}
		conf, ok := confByID[o.ScenarioID]
		if !ok {
			conf = defaultConfidence
		}

		score := PriorityScore(o.Base.ROIPct, riskScore, o.Constraint.ComplianceScore)
		ra := o.RiskAdjusted.RiskAdjustedProfit
		p := domain.InvestmentPriority{
			ScenarioID:         o.ScenarioID,
			Score:              score,
			Level:              domain.PriorityLevelFor(score),
			RiskAdjustedReturn: o.RiskAdjusted.RiskAdjustedROIPct,
			OpportunityCost:    bestRA - ra,
			Confidence:         domain.Clamp01(conf * o.Constraint.ComplianceScore),
		}
		if ra > 0 {
			p.PaybackMonths = o.Base.Cost / (ra / monthsPerYear)
			p.PaybackReachable = true
		}
		p.Recommendations = priorityRecommendations(p, o)
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func priorityRecommendations(p domain.InvestmentPriority, o domain.MultiObjectiveOptimizationResult) []string {
	var out []string
	switch p.Level {
	case domain.PriorityHigh:
		out = append(out, "Proceed with the full input program under this scenario")
	case domain.PriorityMedium:
		out = append(out, "Proceed, reviewing input prices before each purchase")
	case domain.PriorityLow:
		out = append(out, "Proceed only with the inputs that carry the best yield response")
	default:
		out = append(out, "Defer discretionary input spend until conditions improve")
	}
	if o.Constraint.BudgetViolation {
		out = append(out, fmt.Sprintf("Planned spend $%.2f exceeds the $%.2f budget", o.Base.Cost, o.Constraint.Budget))
	}
	if o.Constraint.EnvironmentalViolation {
		out = append(out, fmt.Sprintf("Nitrogen %.1f lb/acre exceeds the %.1f lb/acre limit", o.Constraint.NitrogenLbsPerAcre, o.Constraint.NitrogenLimit))
	}
	switch {
	case !p.PaybackReachable:
		out = append(out, "Input spend is not recovered under this scenario")
	case p.PaybackMonths > longPaybackMonths:
		out = append(out, fmt.Sprintf("Payback of %.0f months is long; stage the spend", p.PaybackMonths))
	}
	return out
}
