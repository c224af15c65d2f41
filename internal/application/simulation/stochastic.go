package simulation

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

const dt = 1.0 / 365

// RunStochastic simulates req.PathsPerProduct daily price paths over
// req.HorizonDays for every fertilizer and the crop of each scenario.
//
//	drift       = ln(forecast/current) / (horizon/365)
//	price[t+1]  = price[t] · exp(drift·dt + volatility·√dt·Z)
func RunStochastic(ctx context.Context, req domain.OptimizationRequest, scenarios []domain.EconomicScenario, opts Options) (domain.StochasticResult, error) {
	horizon := req.HorizonDays
	if horizon < 1 {
		return domain.StochasticResult{}, fmt.Errorf("simulation.RunStochastic: %w",
			&domain.InputError{Field: "horizon_days", Reason: "must be >= 1"})
	}
	paths := req.PathsPerProduct
	if paths <= 0 {
		paths = domain.DefaultPathsPerProduct
	}

	out := make([]domain.ScenarioPaths, len(scenarios))
	err := forEachScenario(ctx, "stochastic", len(scenarios), opts.Workers, func(ctx context.Context, i int) error {
		sp, err := simulatePaths(ctx, scenarios[i], horizon, paths, newRand(opts.Seed, i, stageStochastic))
		if err != nil {
			return fmt.Errorf("scenario %s: %w", scenarios[i].ID, err)
		}
		out[i] = sp
		return nil
	})
	if err != nil {
		return domain.StochasticResult{}, fmt.Errorf("simulation.RunStochastic: %w", err)
	}

	return domain.StochasticResult{HorizonDays: horizon, Seed: opts.Seed, Scenarios: out}, nil
}

func simulatePaths(ctx context.Context, s domain.EconomicScenario, horizon, n int, rng randSource) (domain.ScenarioPaths, error) {
	forecasts := append(append([]domain.PriceForecast(nil), s.Forecasts...), s.CropForecast)

	products := make([]domain.ProductPaths, 0, len(forecasts))
	var changes, vols []float64
	for _, f := range forecasts {
		if !(f.CurrentPrice > 0) || !(f.ForecastPrice > 0) {
			continue
		}
		pp, err := simulateProduct(ctx, f, horizon, n, rng)
		if err != nil {
			return domain.ScenarioPaths{}, fmt.Errorf("product %s: %w", f.Product, err)
		}
		products = append(products, pp)
		changes = append(changes, (pp.AverageFinalPrice-pp.CurrentPrice)/pp.CurrentPrice*100)
		vols = append(vols, pp.PathVolatility)
	}

	avgChange := average(changes)
	return domain.ScenarioPaths{
		ScenarioID: s.ID,
		Products:   products,
		Metrics: domain.PathMetrics{
			AverageFinalChangePct: avgChange,
			AveragePathVolatility: average(vols),
			Trend:                 domain.ClassifyTrend(avgChange),
		},
	}, nil
}

// simulateProduct comprueba ctx antes de cada trayectoria; cada una cuesta
// horizon draws.
func simulateProduct(ctx context.Context, f domain.PriceForecast, horizon, n int, rng randSource) (domain.ProductPaths, error) {
	drift := math.Log(f.ForecastPrice/f.CurrentPrice) / (float64(horizon) / 365)
	step := drift * dt
	shock := f.Volatility * math.Sqrt(dt)

	paths := make([]domain.StochasticPath, n)
	finals := make([]float64, n)
	vols := make([]float64, n)
	for p := range paths {
		if err := ctx.Err(); err != nil {
			return domain.ProductPaths{}, err
		}
		prices := make([]float64, horizon+1)
		prices[0] = f.CurrentPrice
		for t := 0; t < horizon; t++ {
			prices[t+1] = prices[t] * math.Exp(step+shock*rng.NormFloat64())
		}
		paths[p] = domain.StochasticPath{Prices: prices}
		finals[p] = prices[horizon]
		vols[p] = pathVolatility(prices)
	}

	avgFinal := average(finals)
	return domain.ProductPaths{
		Product:           f.Product,
		CurrentPrice:      f.CurrentPrice,
		ForecastPrice:     f.ForecastPrice,
		Drift:             drift,
		Volatility:        f.Volatility,
		Paths:             paths,
		AverageFinalPrice: avgFinal,
		PathVolatility:    average(vols),
		Trend:             domain.ClassifyTrend((avgFinal - f.CurrentPrice) / f.CurrentPrice * 100),
	}, nil
}
