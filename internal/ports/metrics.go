package ports

import "time"

// Metrics receives engine telemetry. Implementations must be safe for
// concurrent use; scenario workers report from their own goroutines.
type Metrics interface {
	ObserveAnalysis(status string, duration time.Duration)
	ObserveStage(stage string, duration time.Duration)
	AddIterations(n int)
	AddClampedDraws(n int)
	CacheHit()
	CacheMiss()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveAnalysis(string, time.Duration) {}
func (NopMetrics) ObserveStage(string, time.Duration)    {}
func (NopMetrics) AddIterations(int)                     {}
func (NopMetrics) AddClampedDraws(int)                   {}
func (NopMetrics) CacheHit()                             {}
func (NopMetrics) CacheMiss()                            {}
