package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/agrisim/internal/domain"
	"github.com/alejandrodnm/agrisim/internal/ports"
)

const (
	// DefaultHistoryDays is how much price history is requested per product.
	DefaultHistoryDays = 30
	// fetchConcurrency limita las llamadas simultáneas al proveedor de precios.
	fetchConcurrency = 4
)

// Config controls the generator.
type Config struct {
	HistoryDays int // 0 = DefaultHistoryDays, <0 disables history lookups
}

// Generator builds economic scenarios from market quotes.
type Generator struct {
	cfg    Config
	market ports.MarketDataProvider
}

// New crea un Generator. market may be nil when every price comes from the request.
func New(cfg Config, market ports.MarketDataProvider) *Generator {
	if cfg.HistoryDays == 0 {
		cfg.HistoryDays = DefaultHistoryDays
	}
	return &Generator{cfg: cfg, market: market}
}

// quote is a resolved input price.
type quote struct {
	req     domain.FertilizerRequirement
	price   float64
	unitLbs float64
	unit    string
	histVol float64
	ok      bool
}

// Generate builds one scenario per requested built-in type plus one per custom
// scenario, in that order. The request must already be validated.
//
// A fertilizer without a price is dropped from every scenario and listed in
// EconomicScenario.Excluded. A missing crop price is fatal.
func (g *Generator) Generate(ctx context.Context, req domain.OptimizationRequest) ([]domain.EconomicScenario, error) {
	cropPrice, cropVol, err := g.resolveCropPrice(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scenario.Generate: %w", err)
	}

	quotes, err := g.resolveQuotes(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scenario.Generate: %w", err)
	}

	var priced []quote
	var excluded []string
	for _, q := range quotes {
		if !q.ok {
			excluded = append(excluded, q.req.Product)
			continue
		}
		priced = append(priced, q)
	}

	farm := domain.FarmModel{FieldAcres: req.FieldAcres, ExpectedYieldPerAcre: req.ExpectedYieldPerAcre}
	inputs := make([]domain.CostInput, 0, len(priced))
	for _, q := range priced {
		inputs = append(inputs, domain.CostInput{
			Product:        q.req.Product,
			RateLbsPerAcre: q.req.RateLbsPerAcre,
			PricePerUnit:   q.price,
			UnitLbs:        q.unitLbs,
			NitrogenFrac:   q.req.NitrogenFraction(),
		})
	}

	b := builder{
		req:       req,
		farm:      farm,
		inputs:    inputs,
		quotes:    priced,
		excluded:  excluded,
		cropPrice: cropPrice,
		cropVol:   cropVol,
		levels:    req.SortedConfidenceLevels(),
		ids:       make(map[string]int),
	}

	scenarios := make([]domain.EconomicScenario, 0, len(req.ScenarioTypes)+len(req.CustomScenarios))
	for _, t := range req.ScenarioTypes {
		profile, ok := t.Profile()
		if !ok {
			slog.Warn("unknown scenario type skipped", "type", t)
			continue
		}
		scenarios = append(scenarios, b.build(t, profile))
	}
	for _, c := range req.CustomScenarios {
		scenarios = append(scenarios, b.build(domain.ScenarioCustom, domain.CustomProfile(c)))
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("scenario.Generate: %w", domain.ErrNoScenarios)
	}

	slog.Debug("scenarios generated",
		"count", len(scenarios),
		"priced_inputs", len(inputs),
		"excluded", len(excluded),
		"crop_price", cropPrice,
	)
	return scenarios, nil
}

// resolveCropPrice uses the request price or asks the provider. Any failure
// here is a DataUnavailableError.
func (g *Generator) resolveCropPrice(ctx context.Context, req domain.OptimizationRequest) (float64, float64, error) {
	if req.CropPrice > 0 {
		return req.CropPrice, g.historicalVolatility(ctx, req.CropType, req.Region), nil
	}
	missing := &domain.DataUnavailableError{Product: req.CropType, Region: req.Region}
	if g.market == nil {
		return 0, 0, missing
	}
	prices, err := g.market.CommodityPrices(ctx, []string{req.CropType}, req.Region)
	if err != nil {
		return 0, 0, fmt.Errorf("commodity prices: %w (%w)", missing, err)
	}
	p, ok := prices[req.CropType]
	if !ok || !usablePrice(p.Value) {
		return 0, 0, missing
	}
	return p.Value, g.historicalVolatility(ctx, req.CropType, req.Region), nil
}

// resolveQuotes fetches fertilizer prices concurrently. Provider errors are
// absorbed: the product is marked unpriced. Only context cancellation aborts.
func (g *Generator) resolveQuotes(ctx context.Context, req domain.OptimizationRequest) ([]quote, error) {
	quotes := make([]quote, len(req.Fertilizers))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for i, f := range req.Fertilizers {
		eg.Go(func() error {
			quotes[i] = g.resolveQuote(ectx, f, req.Region)
			return ectx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("resolve quotes: %w", err)
	}
	return quotes, nil
}

func (g *Generator) resolveQuote(ctx context.Context, f domain.FertilizerRequirement, region string) quote {
	q := quote{req: f, unit: f.PriceUnit}

	switch {
	case f.PricePerUnit > 0:
		q.price = f.PricePerUnit
	case g.market != nil:
		p, found, err := g.market.CurrentPrice(ctx, f.Product, region)
		if err != nil {
			slog.Warn("price lookup failed, product excluded",
				"product", f.Product, "region", region, "err", err)
			return q
		}
		if !found || !usablePrice(p.Value) {
			slog.Warn("no price for product, excluded", "product", f.Product, "region", region)
			return q
		}
		q.price = p.Value
		if q.unit == "" {
			q.unit = p.Unit
		}
	default:
		return q
	}

	lbs, ok := domain.UnitToLbs(q.unit)
	if !ok {
		slog.Warn("unknown price unit, product excluded", "product", f.Product, "unit", q.unit)
		return q
	}
	q.unitLbs = lbs
	if q.unit == "" {
		q.unit = "ton"
	}
	q.histVol = g.historicalVolatility(ctx, f.Product, region)
	q.ok = true
	return q
}

// historicalVolatility returns 0 when history is disabled or unavailable.
func (g *Generator) historicalVolatility(ctx context.Context, product, region string) float64 {
	if g.market == nil || g.cfg.HistoryDays < 0 {
		return 0
	}
	history, err := g.market.PriceHistory(ctx, product, region, g.cfg.HistoryDays)
	if err != nil {
		slog.Debug("price history unavailable", "product", product, "err", err)
		return 0
	}
	return domain.HistoricalVolatility(history)
}

// builder holds everything shared by the scenarios of one request.
type builder struct {
	req       domain.OptimizationRequest
	farm      domain.FarmModel
	inputs    []domain.CostInput
	quotes    []quote
	excluded  []string
	cropPrice float64
	cropVol   float64
	levels    []float64
	ids       map[string]int
}

func (b *builder) build(t domain.ScenarioType, p domain.ScenarioProfile) domain.EconomicScenario {
	id := b.uniqueID(t, p)
	horizon := b.req.HorizonDays

	forecasts := make([]domain.PriceForecast, 0, len(b.quotes))
	for _, q := range b.quotes {
		f := domain.Forecast(q.req.Product, q.price, p.FertilizerMultiplier, p, horizon)
		f.Unit = q.unit
		f.HistoricalVolatility = q.histVol
		forecasts = append(forecasts, f)
	}
	crop := domain.Forecast(b.req.CropType, b.cropPrice, p.CropMultiplier, p, horizon)
	crop.HistoricalVolatility = b.cropVol

	model := domain.CostModel{
		Farm:           b.farm,
		Inputs:         append([]domain.CostInput(nil), b.inputs...),
		CropPrice:      b.cropPrice,
		CropMultiplier: p.CropMultiplier,
	}
	metrics := model.Evaluate().Metrics()

	// Precio incierto en ambos lados: ingresos y costes varían con la volatilidad.
	stdDev := p.Volatility * math.Hypot(metrics.TotalRevenue, metrics.TotalCost)
	intervals := domain.NormalIntervals(metrics.NetProfit, stdDev, b.levels)

	risk := domain.AssessProfile(id, p)
	risk.ConfidenceIntervals = intervals

	return domain.EconomicScenario{
		ID:                   id,
		Name:                 p.Name,
		Type:                 t,
		Condition:            p.Condition,
		Description:          p.Description,
		FertilizerMultiplier: p.FertilizerMultiplier,
		CropMultiplier:       p.CropMultiplier,
		Forecasts:            forecasts,
		CropForecast:         crop,
		Model:                model,
		Metrics:              metrics,
		Distribution: domain.ProbabilityDistribution{
			Probability:         domain.Clamp01(p.Probability),
			ProfitStdDev:        stdDev,
			ConfidenceIntervals: intervals,
		},
		Risk:        risk,
		Assumptions: b.assumptions(p),
		Excluded:    append([]string(nil), b.excluded...),
	}
}

func (b *builder) assumptions(p domain.ScenarioProfile) []string {
	out := []string{
		fmt.Sprintf("Fertilizer prices move to %.0f%% of current quotes over %d days", p.FertilizerMultiplier*100, b.req.HorizonDays),
		fmt.Sprintf("Crop (%s) price moves to %.0f%% of $%.2f", b.req.CropType, p.CropMultiplier*100, b.cropPrice),
		fmt.Sprintf("Yield held at %.1f per acre on %.1f acres", b.req.ExpectedYieldPerAcre, b.req.FieldAcres),
		fmt.Sprintf("Price volatility factor %.2f", p.Volatility),
	}
	if len(b.excluded) > 0 {
		out = append(out, "Excluded for missing prices: "+strings.Join(b.excluded, ", "))
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// uniqueID devuelve el tipo como ID para built-ins y custom_<slug> para los demás.
func (b *builder) uniqueID(t domain.ScenarioType, p domain.ScenarioProfile) string {
	id := string(t)
	if t == domain.ScenarioCustom {
		slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(p.Name), "_"), "_")
		if slug == "" {
			slug = "scenario"
		}
		id = "custom_" + slug
	}
	b.ids[id]++
	if n := b.ids[id]; n > 1 {
		id = fmt.Sprintf("%s_%d", id, n)
	}
	return id
}

// usablePrice descarta cotizaciones <= 0, NaN o infinitas.
func usablePrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
