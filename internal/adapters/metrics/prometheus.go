// Package metrics exposes engine telemetry as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agrisim"

// Prometheus implementa ports.Metrics sobre un registry propio.
type Prometheus struct {
	registry *prometheus.Registry

	analyses      *prometheus.CounterVec
	analysisTime  *prometheus.HistogramVec
	stageTime     *prometheus.HistogramVec
	iterations    prometheus.Counter
	clampedDraws  prometheus.Counter
	cacheRequests *prometheus.CounterVec
}

// NewPrometheus crea y registra los collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Analyses run, by final status",
			},
			[]string{"status"},
		),
		analysisTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Wall time of a full analysis",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		stageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of each pipeline stage",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monte_carlo_iterations_total",
			Help:      "Monte Carlo iterations simulated across all scenarios",
		}),
		clampedDraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clamped_draws_total",
			Help:      "Random prices that came out negative and were clamped to zero",
		}),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Result cache lookups, by outcome",
			},
			[]string{"outcome"},
		),
	}

	p.registry.MustRegister(
		p.analyses,
		p.analysisTime,
		p.stageTime,
		p.iterations,
		p.clampedDraws,
		p.cacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) ObserveAnalysis(status string, d time.Duration) {
	p.analyses.WithLabelValues(status).Inc()
	p.analysisTime.WithLabelValues(status).Observe(d.Seconds())
}

func (p *Prometheus) ObserveStage(stage string, d time.Duration) {
	p.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prometheus) AddIterations(n int) {
	if n > 0 {
		p.iterations.Add(float64(n))
	}
}

func (p *Prometheus) AddClampedDraws(n int) {
	if n > 0 {
		p.clampedDraws.Add(float64(n))
	}
}

func (p *Prometheus) CacheHit()  { p.cacheRequests.WithLabelValues("hit").Inc() }
func (p *Prometheus) CacheMiss() { p.cacheRequests.WithLabelValues("miss").Inc() }

// Handler sirve /metrics para el registry propio.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry expone el registry para tests y para registrar collectors extra.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
