package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/agrisim/internal/domain"
	"github.com/alejandrodnm/agrisim/internal/ports"
)

// cancelCheckEvery is how many iterations run between context checks.
const cancelCheckEvery = 1000

// Options controls the randomized stages.
type Options struct {
	Workers int
	Seed    uint64
	Metrics ports.Metrics // nil = discard
}

func (o Options) metrics() ports.Metrics {
	if o.Metrics == nil {
		return ports.NopMetrics{}
	}
	return o.Metrics
}

// RunMonteCarlo samples req.Iterations randomized price sets around each
// scenario's forecast and returns the profit distribution per scenario, in
// scenario order, plus the aggregate across scenarios.
//
// Every fertilizer price and the crop price are drawn as
// forecast·(1 + N(0, volatility)); negative draws are clamped to zero.
func RunMonteCarlo(ctx context.Context, req domain.OptimizationRequest, scenarios []domain.EconomicScenario, opts Options) (domain.MonteCarloResult, error) {
	n := req.Iterations
	if n <= 0 {
		n = domain.DefaultIterations
	}
	if n > domain.MaxIterations {
		n = domain.MaxIterations
	}
	levels := req.SortedConfidenceLevels()
	m := opts.metrics()

	dists := make([]domain.ScenarioDistribution, len(scenarios))
	err := forEachScenario(ctx, "monte_carlo", len(scenarios), opts.Workers, func(ctx context.Context, i int) error {
		d, err := simulateScenario(ctx, scenarios[i], n, levels, newRand(opts.Seed, i, stageMonteCarlo))
		if err != nil {
			return fmt.Errorf("scenario %s: %w", scenarios[i].ID, err)
		}
		m.AddIterations(n)
		if d.ClampedDraws > 0 {
			m.AddClampedDraws(d.ClampedDraws)
			slog.Debug("negative price draws clamped to zero",
				"scenario", d.ScenarioID, "count", d.ClampedDraws)
		}
		dists[i] = d
		return nil
	})
	if err != nil {
		return domain.MonteCarloResult{}, fmt.Errorf("simulation.RunMonteCarlo: %w", err)
	}

	weighting := domain.WeightEqual
	if req.WeightByProbability {
		weighting = domain.WeightProbability
	}
	return domain.MonteCarloResult{
		Iterations: n,
		Seed:       opts.Seed,
		Scenarios:  dists,
		Aggregate:  aggregate(dists, scenarios, weighting),
	}, nil
}

// randSource is the part of *rand.Rand the samplers use.
type randSource interface {
	NormFloat64() float64
}

func simulateScenario(ctx context.Context, s domain.EconomicScenario, n int, levels []float64, rng randSource) (domain.ScenarioDistribution, error) {
	vol := s.Volatility()
	base := s.ForecastInputs()
	work := make([]domain.CostInput, len(base))
	copy(work, base)
	cropBase := s.CropForecast.ForecastPrice
	farm := s.Model.Farm

	clamped := 0
	draw := func(price float64) float64 {
		p := price * (1 + vol*rng.NormFloat64())
		if p < 0 {
			clamped++
			return 0
		}
		return p
	}

	samples := make([]float64, n)
	for it := 0; it < n; it++ {
		if it%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return domain.ScenarioDistribution{}, err
			}
		}
		for j := range work {
			work[j].PricePerUnit = draw(base[j].PricePerUnit)
		}
		// El multiplicador del cultivo ya está en el precio pronosticado.
		samples[it] = farm.Evaluate(work, draw(cropBase), 1).NetProfit
	}

	st := summarize(samples, levels)
	return domain.ScenarioDistribution{
		ScenarioID:          s.ID,
		Iterations:          n,
		Mean:                st.mean,
		Median:              st.median,
		StdDev:              st.stdDev,
		Min:                 st.min,
		Max:                 st.max,
		ProbabilityOfProfit: st.probPositive,
		ValueAtRisk95:       st.var95,
		ConfidenceIntervals: st.intervals,
		ClampedDraws:        clamped,
	}, nil
}

// aggregate combines per-scenario distributions. With probability weighting
// and all-zero probabilities it falls back to equal weights.
func aggregate(dists []domain.ScenarioDistribution, scenarios []domain.EconomicScenario, weighting domain.Weighting) domain.AggregateStatistics {
	if len(dists) == 0 {
		return domain.AggregateStatistics{Weighting: weighting}
	}

	weights := make([]float64, len(dists))
	var total float64
	if weighting == domain.WeightProbability {
		for i := range dists {
			weights[i] = scenarios[i].Distribution.Probability
			total += weights[i]
		}
	}
	if total <= 0 {
		weighting = domain.WeightEqual
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	agg := domain.AggregateStatistics{
		Weighting: weighting,
		WorstCase: dists[0].Min,
		BestCase:  dists[0].Max,
	}
	for i, d := range dists {
		w := weights[i] / total
		agg.ExpectedProfit += w * d.Mean
		agg.ProbabilityOfProfit += w * d.ProbabilityOfProfit
		agg.MeanStdDev += w * d.StdDev
		agg.WorstCase = min(agg.WorstCase, d.Min)
		agg.BestCase = max(agg.BestCase, d.Max)
	}
	return agg
}
