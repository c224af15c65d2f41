package optimization

import "github.com/alejandrodnm/agrisim/internal/domain"

// AssessRisk returns one assessment per scenario, in scenario order. The
// scenario's profile assessment is extended with the constraint violations
// found by the optimizer; level and overall score stay those of the profile.
func AssessRisk(scenarios []domain.EconomicScenario, optimizations []domain.MultiObjectiveOptimizationResult) []domain.RiskAssessment {
	byID := make(map[string]domain.MultiObjectiveOptimizationResult, len(optimizations))
	for _, o := range optimizations {
		byID[o.ScenarioID] = o
	}

	out := make([]domain.RiskAssessment, 0, len(scenarios))
	for _, s := range scenarios {
		ra := s.Risk
		ra.ScenarioID = s.ID
		ra.Factors = append([]domain.RiskFactor(nil), s.Risk.Factors...)
		if len(ra.ConfidenceIntervals) == 0 {
			ra.ConfidenceIntervals = s.Distribution.ConfidenceIntervals
		}
		if o, ok := byID[s.ID]; ok {
			if o.Constraint.BudgetViolation {
				ra.Factors = append(ra.Factors, domain.FactorBudgetOverrun)
			}
			if o.Constraint.EnvironmentalViolation {
				ra.Factors = append(ra.Factors, domain.FactorEnvironmental)
			}
		}
		ra.Mitigations = domain.MitigationsFor(ra.Factors)
		out = append(out, ra)
	}
	return out
}
