// Package optimization turns simulated scenarios into optimization results,
// risk assessments, budget allocations, investment priorities and the final
// recommendation list. Everything here is deterministic.
package optimization

import "github.com/alejandrodnm/agrisim/internal/domain"

// Policy defaults.
const (
	DefaultRiskDiscount         = 0.5
	DefaultBudgetPerAcre        = 150.0
	DefaultNitrogenLimitPerAcre = 200.0
)

// Policy holds the tunable coefficients of the optimizer and the allocator.
// Zero values fall back to the defaults.
type Policy struct {
	// RiskDiscount scales how hard the risk score discounts profit:
	// profit·(1 − RiskDiscount·risk) for gains, profit·(1 + RiskDiscount·risk) for losses.
	RiskDiscount float64
	// DefaultBudgetPerAcre applies when the request has no budget limit.
	DefaultBudgetPerAcre float64
	// NitrogenReference scores the environmental objective when the request
	// sets no nitrogen limit.
	NitrogenReference float64
	// BudgetWeights split the budget across categories; normalized before use.
	BudgetWeights map[domain.BudgetCategory]float64
}

// DefaultBudgetWeights is the category split used when none is configured.
func DefaultBudgetWeights() map[domain.BudgetCategory]float64 {
	return map[domain.BudgetCategory]float64{
		domain.CategoryYieldPotential: 0.30,
		domain.CategoryCostEfficiency: 0.25,
		domain.CategoryEnvironmental:  0.15,
		domain.CategoryRiskManagement: 0.15,
		domain.CategorySustainability: 0.15,
	}
}

// DefaultPolicy returns the policy with every default filled in.
func DefaultPolicy() Policy {
	return Policy{}.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.RiskDiscount <= 0 {
		p.RiskDiscount = DefaultRiskDiscount
	}
	if p.DefaultBudgetPerAcre <= 0 {
		p.DefaultBudgetPerAcre = DefaultBudgetPerAcre
	}
	if p.NitrogenReference <= 0 {
		p.NitrogenReference = DefaultNitrogenLimitPerAcre
	}
	var sum float64
	for _, w := range p.BudgetWeights {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		p.BudgetWeights = DefaultBudgetWeights()
	}
	return p
}
