package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

func TestScenarioOutcomes_JoinsByScenarioID(t *testing.T) {
	r := domain.AnalysisResult{
		Scenarios: []domain.EconomicScenario{
			{ID: "bull_market", Metrics: domain.ScenarioMetrics{NetProfit: 100}},
			{ID: "bear_market", Metrics: domain.ScenarioMetrics{NetProfit: -50}},
		},
		// Orden distinto y sin distribución para bear_market.
		MonteCarlo: domain.MonteCarloResult{Scenarios: []domain.ScenarioDistribution{
			{ScenarioID: "baseline", Mean: 7},
			{ScenarioID: "bull_market", Mean: 90, ProbabilityOfProfit: 0.8},
		}},
		Risks:      []domain.RiskAssessment{{ScenarioID: "bear_market", Level: domain.RiskHigh}},
		Priorities: []domain.InvestmentPriority{{ScenarioID: "bull_market", Score: 0.7}},
	}

	out := scenarioOutcomes(r)
	require.Len(t, out, 2)
	assert.Equal(t, outcome{scenarioID: "bull_market", netProfit: 100, expectedProfit: 90, probOfProfit: 0.8, priority: 0.7}, out[0])
	assert.Equal(t, outcome{scenarioID: "bear_market", netProfit: -50, riskLevel: "high"}, out[1])
}
