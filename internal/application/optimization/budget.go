package optimization

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// AllocateBudget splits the request budget (or the per-acre default) across
// the fixed categories for every optimization result. Category amounts are
// rounded down to cents so their sum never exceeds the total.
func AllocateBudget(req domain.OptimizationRequest, optimizations []domain.MultiObjectiveOptimizationResult, policy Policy) []domain.BudgetAllocation {
	policy = policy.withDefaults()
	total := cents(req.EffectiveBudget(policy.DefaultBudgetPerAcre))
	breakdown := splitBudget(total, policy.BudgetWeights)

	perAcre := decimal.Zero
	if req.FieldAcres > 0 {
		perAcre = total.Div(decimal.NewFromFloat(req.FieldAcres)).RoundDown(2)
	}

	out := make([]domain.BudgetAllocation, 0, len(optimizations))
	for _, o := range optimizations {
		spend := cents(o.Base.Cost)
		a := domain.BudgetAllocation{
			ScenarioID:   o.ScenarioID,
			TotalBudget:  total.InexactFloat64(),
			Breakdown:    append([]domain.CategoryAllocation(nil), breakdown...),
			PerAcre:      perAcre.InexactFloat64(),
			PlannedSpend: spend.InexactFloat64(),
		}
		switch {
		case total.IsZero():
			a.Overcommitted = spend.IsPositive()
			if a.Overcommitted {
				a.Utilization = 1
			}
		case spend.GreaterThan(total):
			a.Overcommitted = true
			a.Utilization = 1
		default:
			a.Utilization = spend.Div(total).InexactFloat64()
			a.Remaining = total.Sub(spend).InexactFloat64()
		}
		out = append(out, a)
	}
	return out
}

// splitBudget assigns total·weight to each category. Weights that do not
// already sum to 1 are normalized.
func splitBudget(total decimal.Decimal, weights map[domain.BudgetCategory]float64) []domain.CategoryAllocation {
	var sum float64
	for _, c := range domain.BudgetCategories {
		if w := weights[c]; w > 0 && !math.IsInf(w, 0) {
			sum += w
		}
	}
	normalize := math.Abs(sum-1) > 1e-9
	out := make([]domain.CategoryAllocation, 0, len(domain.BudgetCategories))
	for _, c := range domain.BudgetCategories {
		w := weights[c]
		switch {
		case !(w > 0) || math.IsInf(w, 0) || sum <= 0:
			w = 0
		case normalize:
			w /= sum
		}
		amount := total.Mul(decimal.NewFromFloat(w)).RoundDown(2)
		out = append(out, domain.CategoryAllocation{Category: c, Weight: w, Amount: amount.InexactFloat64()})
	}
	return out
}

// cents redondea a centavos. Negativos y no finitos cuentan 0.
func cents(v float64) decimal.Decimal {
	if !(v >= 0) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).RoundDown(2)
}
