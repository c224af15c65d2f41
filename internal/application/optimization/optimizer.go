package optimization

import "github.com/alejandrodnm/agrisim/internal/domain"

// Optimize produces exactly one result per scenario, in scenario order, from
// the shared cost/revenue model:
//
//	base          raw profit, cost, ROI, margin and break-even yield
//	weighted      objective scores in [0,1] combined by the request weights
//	constraint    budget and nitrogen checks with a compliance score
//	risk_adjusted profit discounted by the scenario risk score
func Optimize(req domain.OptimizationRequest, scenarios []domain.EconomicScenario, policy Policy) []domain.MultiObjectiveOptimizationResult {
	policy = policy.withDefaults()
	out := make([]domain.MultiObjectiveOptimizationResult, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, optimizeScenario(req, s, policy))
	}
	return out
}

func optimizeScenario(req domain.OptimizationRequest, s domain.EconomicScenario, policy Policy) domain.MultiObjectiveOptimizationResult {
	econ := s.Model.Evaluate()
	base := domain.BaseResult{
		Profit:         econ.NetProfit,
		Cost:           econ.TotalCost,
		Revenue:        econ.TotalRevenue,
		ROIPct:         domain.ROIPct(econ.NetProfit, econ.TotalCost),
		MarginPct:      domain.MarginPct(econ.NetProfit, econ.TotalRevenue),
		BreakEvenYield: domain.BreakEvenYield(econ.CostPerAcre, s.Model.CropPrice*s.Model.CropMultiplier),
	}

	nitrogen := domain.NitrogenLbsPerAcre(s.Model.Inputs)
	constraint, checks := checkConstraints(req, base, nitrogen, policy)

	objectives := scoreObjectives(req, base, constraint.Budget, s.Risk.OverallScore, nitrogen, policy)
	weights := req.Objectives.Normalized()
	var score float64
	for _, o := range objectives {
		score += o.Weight * o.Score
	}
	score = domain.Clamp01(score)

	return domain.MultiObjectiveOptimizationResult{
		ScenarioID: s.ID,
		Base:       base,
		Weighted: domain.WeightedResult{
			Weights:        weights,
			Score:          score,
			WeightedProfit: base.Profit * score,
		},
		Constraint:   constraint,
		RiskAdjusted: riskAdjust(base, s.Risk.OverallScore, policy.RiskDiscount),
		Objectives:   objectives,
		Constraints:  checks,
		Methods: []string{
			domain.MethodBase,
			domain.MethodWeightedSum,
			domain.MethodConstraint,
			domain.MethodRiskAdjusted,
		},
	}
}

// scoreObjectives maps each objective to [0,1], higher is better: margin for
// profit, unspent budget share for cost, 1 − risk score, and nitrogen headroom
// against the limit for the environment.
func scoreObjectives(req domain.OptimizationRequest, base domain.BaseResult, budget, risk, nitrogen float64, policy Policy) []domain.ObjectiveScore {
	w := req.Objectives.Normalized()

	costScore := 0.0
	if budget > 0 {
		costScore = domain.Clamp01(1 - base.Cost/budget)
	}
	limit := req.MaxNitrogenLbsPerAcre
	if limit <= 0 {
		limit = policy.NitrogenReference
	}

	return []domain.ObjectiveScore{
		{Objective: domain.ObjectiveProfit, Weight: w.Profit, Score: domain.Clamp01(base.MarginPct / 100)},
		{Objective: domain.ObjectiveCost, Weight: w.Cost, Score: costScore},
		{Objective: domain.ObjectiveRisk, Weight: w.Risk, Score: domain.Clamp01(1 - risk)},
		{Objective: domain.ObjectiveEnvironmental, Weight: w.Environmental, Score: domain.Clamp01(1 - nitrogen/limit)},
	}
}

// checkConstraints evaluates the budget and, when the request sets one, the
// nitrogen limit. Compliance is the mean of min(1, limit/actual) over the
// evaluated constraints.
func checkConstraints(req domain.OptimizationRequest, base domain.BaseResult, nitrogen float64, policy Policy) (domain.ConstraintResult, []domain.ConstraintCheck) {
	budget := req.EffectiveBudget(policy.DefaultBudgetPerAcre)
	res := domain.ConstraintResult{
		Budget:             budget,
		BudgetViolation:    base.Cost > budget,
		NitrogenLbsPerAcre: nitrogen,
	}
	checks := []domain.ConstraintCheck{
		{Name: "budget", Limit: budget, Actual: base.Cost, Satisfied: !res.BudgetViolation},
	}
	compliance := []float64{ratioCompliance(budget, base.Cost)}

	if limit := req.MaxNitrogenLbsPerAcre; limit > 0 {
		res.NitrogenLimit = limit
		res.EnvironmentalViolation = nitrogen > limit
		checks = append(checks, domain.ConstraintCheck{
			Name: "nitrogen_lbs_per_acre", Limit: limit, Actual: nitrogen, Satisfied: !res.EnvironmentalViolation,
		})
		compliance = append(compliance, ratioCompliance(limit, nitrogen))
	}

	var sum float64
	for _, c := range compliance {
		sum += c
	}
	res.ComplianceScore = domain.Clamp01(sum / float64(len(compliance)))
	return res, checks
}

func ratioCompliance(limit, actual float64) float64 {
	if actual <= limit || actual <= 0 {
		return 1
	}
	return domain.Clamp01(limit / actual)
}

// riskAdjust discounts gains and amplifies losses; the adjusted profit is
// monotone in the risk score in both cases.
func riskAdjust(base domain.BaseResult, risk, discount float64) domain.RiskAdjustedResult {
	d := discount * domain.Clamp01(risk)
	adjusted := base.Profit * (1 - d)
	if base.Profit < 0 {
		adjusted = base.Profit * (1 + d)
	}
	return domain.RiskAdjustedResult{
		RiskScore:          risk,
		Discount:           d,
		RiskAdjustedProfit: adjusted,
		RiskAdjustedROIPct: domain.ROIPct(adjusted, base.Cost),
	}
}
