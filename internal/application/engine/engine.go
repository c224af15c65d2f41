package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alejandrodnm/agrisim/internal/application/optimization"
	"github.com/alejandrodnm/agrisim/internal/application/scenario"
	"github.com/alejandrodnm/agrisim/internal/application/simulation"
	"github.com/alejandrodnm/agrisim/internal/domain"
	"github.com/alejandrodnm/agrisim/internal/ports"
)

// Stage names reported to metrics and traces.
const (
	StageGenerate        = "generate"
	StageMonteCarlo      = "monte_carlo"
	StageStochastic      = "stochastic"
	StageSensitivity     = "sensitivity"
	StageOptimize        = "optimize"
	StageRisk            = "risk"
	StageBudget          = "budget"
	StagePriority        = "priority"
	StageRecommendations = "recommendations"
)

// TracerName identifies the engine spans.
const TracerName = "github.com/alejandrodnm/agrisim/engine"

// Config contiene la configuración del engine.
type Config struct {
	Workers     int           // goroutines por etapa (0 = NumCPU)
	Timeout     time.Duration // 0 = sin límite
	CacheTTL    time.Duration // 0 = cache desactivada
	CacheBucket time.Duration // 0 = DefaultCacheBucket
	HistoryDays int           // price history per product; <0 disables
	Materiality float64       // sensitivity threshold; 0 = default
	Policy      optimization.Policy
}

// Engine runs the full analysis pipeline:
//
//	request → scenarios → {monte carlo, stochastic, sensitivity}
//	        → optimize → risk → budget/priority → recommendations
type Engine struct {
	cfg       Config
	generator *scenario.Generator
	storage   ports.AnalysisStorage
	notifier  ports.Notifier
	metrics   ports.Metrics
	cache     *resultCache
	tracer    trace.Tracer
	now       func() time.Time
}

// New crea un Engine con todas las dependencias inyectadas. storage, notifier
// and metrics may be nil.
func New(
	cfg Config,
	market ports.MarketDataProvider,
	storage ports.AnalysisStorage,
	notifier ports.Notifier,
	metrics ports.Metrics,
) *Engine {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	e := &Engine{
		cfg:       cfg,
		generator: scenario.New(scenario.Config{HistoryDays: cfg.HistoryDays}, market),
		storage:   storage,
		notifier:  notifier,
		metrics:   metrics,
		tracer:    otel.Tracer(TracerName),
		now:       time.Now,
	}
	if cfg.CacheTTL > 0 {
		e.cache = newResultCache(cfg.CacheTTL, cfg.CacheBucket)
	}
	return e
}

// Analyze validates the request and runs every stage. InputError and a
// missing crop price are returned as errors; anything else that could not be
// computed is listed in AnalysisResult.Errors with Status partial.
func (e *Engine) Analyze(ctx context.Context, req domain.OptimizationRequest) (domain.AnalysisResult, error) {
	start := e.now()
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		e.metrics.ObserveAnalysis(string(domain.StatusFailed), time.Since(start))
		return domain.AnalysisResult{}, fmt.Errorf("engine.Analyze: %w", err)
	}

	cacheKey := ""
	if e.cache != nil && req.Seed != nil {
		key, err := e.cache.key(req, start)
		if err != nil {
			slog.Warn("result cache disabled for request", "err", err)
		} else if cached, ok := e.cache.get(key, start); ok {
			e.metrics.CacheHit()
			res := e.reissue(cached, req, start)
			e.publish(ctx, res)
			e.metrics.ObserveAnalysis(string(res.Status), res.Duration)
			slog.Debug("analysis served from cache", "id", res.ID, "source_id", cached.ID)
			return res, nil
		} else {
			e.metrics.CacheMiss()
			cacheKey = key
		}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "engine.Analyze", trace.WithAttributes(
		attribute.String("crop_type", req.CropType),
		attribute.String("region", req.Region),
		attribute.Int("iterations", req.Iterations),
	))
	defer span.End()

	result, err := e.run(ctx, req, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.ObserveAnalysis(string(domain.StatusFailed), time.Since(start))
		return domain.AnalysisResult{}, fmt.Errorf("engine.Analyze: %w", err)
	}
	span.SetAttributes(
		attribute.String("analysis_id", result.ID),
		attribute.String("status", string(result.Status)),
		attribute.Int("scenarios", len(result.Scenarios)),
	)

	e.publish(ctx, result)
	if cacheKey != "" {
		e.cache.put(cacheKey, result, e.now())
	}
	e.metrics.ObserveAnalysis(string(result.Status), result.Duration)

	slog.Info("analysis complete",
		"id", result.ID,
		"status", result.Status,
		"scenarios", len(result.Scenarios),
		"expected_profit", fmt.Sprintf("%.0f", result.MonteCarlo.Aggregate.ExpectedProfit),
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// reissue convierte un resultado cacheado en el de esta petición: its own ID,
// request and timestamps. The simulated figures are reused as-is.
func (e *Engine) reissue(cached domain.AnalysisResult, req domain.OptimizationRequest, start time.Time) domain.AnalysisResult {
	res := cached
	res.ID = newAnalysisID(req)
	res.Request = req
	res.CreatedAt = start.UTC()
	res.Duration = e.now().Sub(start)
	return res
}

func newAnalysisID(req domain.OptimizationRequest) string {
	if req.AnalysisID != "" {
		return req.AnalysisID
	}
	return uuid.NewString()
}

func (e *Engine) run(ctx context.Context, req domain.OptimizationRequest, start time.Time) (domain.AnalysisResult, error) {
	res := domain.AnalysisResult{
		ID:        newAnalysisID(req),
		CreatedAt: start.UTC(),
		Status:    domain.StatusCompleted,
		Request:   req,
	}

	var scenarios []domain.EconomicScenario
	err := e.stage(ctx, StageGenerate, func(ctx context.Context) error {
		var err error
		scenarios, err = e.generator.Generate(ctx, req)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Scenarios = scenarios
	for _, p := range scenarios[0].Excluded {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: price unavailable, excluded from every scenario", p))
	}

	seed := simulation.ResolveSeed(req)
	simOpts := simulation.Options{Workers: e.cfg.Workers, Seed: seed, Metrics: e.metrics}

	// Las tres etapas por escenario corren en paralelo; un fallo en una no
	// cancela las otras.
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	record := func(stage string, err error) {
		if err == nil {
			return
		}
		slog.Warn("stage failed", "stage", stage, "err", err)
		mu.Lock()
		failed = append(failed, fmt.Sprintf("%s: %v", stage, err))
		mu.Unlock()
	}
	wg.Go(func() {
		record(StageMonteCarlo, e.stage(ctx, StageMonteCarlo, func(ctx context.Context) error {
			var err error
			res.MonteCarlo, err = simulation.RunMonteCarlo(ctx, req, scenarios, simOpts)
			return err
		}))
	})
	wg.Go(func() {
		record(StageStochastic, e.stage(ctx, StageStochastic, func(ctx context.Context) error {
			var err error
			res.Stochastic, err = simulation.RunStochastic(ctx, req, scenarios, simOpts)
			return err
		}))
	})
	wg.Go(func() {
		record(StageSensitivity, e.stage(ctx, StageSensitivity, func(ctx context.Context) error {
			var err error
			res.Sensitivity, err = simulation.RunSensitivity(ctx, req, scenarios, simulation.SensitivityOptions{
				Workers:     e.cfg.Workers,
				Materiality: e.cfg.Materiality,
			})
			return err
		}))
	})
	wg.Wait()

	// Un timeout del llamador aborta el análisis entero.
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Errors = append(res.Errors, failed...)

	e.step(ctx, StageOptimize, func() {
		res.Optimizations = optimization.Optimize(req, scenarios, e.cfg.Policy)
	})
	e.step(ctx, StageRisk, func() {
		res.Risks = optimization.AssessRisk(scenarios, res.Optimizations)
	})
	e.step(ctx, StageBudget, func() {
		res.Budgets = optimization.AllocateBudget(req, res.Optimizations, e.cfg.Policy)
	})
	e.step(ctx, StagePriority, func() {
		res.Priorities = optimization.PrioritizeInvestments(res.Optimizations, res.Risks, scenarios)
	})
	e.step(ctx, StageRecommendations, func() {
		res.Recommendations = optimization.SynthesizeRecommendations(optimization.Findings{
			Scenarios:   scenarios,
			MonteCarlo:  res.MonteCarlo,
			Stochastic:  res.Stochastic,
			Sensitivity: res.Sensitivity,
			Risks:       res.Risks,
			Budgets:     res.Budgets,
			Priorities:  res.Priorities,
		})
	})

	if len(res.Errors) > 0 {
		res.Status = domain.StatusPartial
	}
	res.Duration = e.now().Sub(start)
	return res, nil
}

// stage runs fn inside a child span and reports its duration.
func (e *Engine) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	e.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// step is stage for the pure stages, which cannot fail.
func (e *Engine) step(ctx context.Context, name string, fn func()) {
	_, span := e.tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	fn()
	e.metrics.ObserveStage(name, time.Since(start))
}

// publish persiste y notifica el resultado. Failures are logged, never returned:
// the analysis itself succeeded.
func (e *Engine) publish(ctx context.Context, res domain.AnalysisResult) {
	if e.storage != nil {
		if err := e.storage.Store(ctx, res); err != nil {
			slog.Warn("storage error", "id", res.ID, "err", err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, res); err != nil {
			slog.Warn("notifier error", "id", res.ID, "err", err)
		}
	}
}

// Fetch returns a stored analysis.
func (e *Engine) Fetch(ctx context.Context, id string) (domain.AnalysisResult, bool, error) {
	if e.storage == nil {
		return domain.AnalysisResult{}, false, errors.New("engine.Fetch: no storage configured")
	}
	r, ok, err := e.storage.Fetch(ctx, id)
	if err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("engine.Fetch: %w", err)
	}
	return r, ok, nil
}

// History lists stored analyses matching the filter.
func (e *Engine) History(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisSummary, error) {
	if e.storage == nil {
		return nil, errors.New("engine.History: no storage configured")
	}
	out, err := e.storage.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("engine.History: %w", err)
	}
	return out, nil
}
