package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process counters. A nil *Collector discards everything.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	totalDurationMs uint64

	generationRuns     uint64
	generationFailures uint64
	payslipsCreated    uint64
	payslipsSkipped    uint64
	employeeWarnings   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordGeneration(created, skipped, warnings int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.generationRuns, 1)
	atomic.AddUint64(&c.payslipsCreated, uint64(created))
	atomic.AddUint64(&c.payslipsSkipped, uint64(skipped))
	atomic.AddUint64(&c.employeeWarnings, uint64(warnings))
}

func (c *Collector) RecordGenerationFailure() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.generationFailures, 1)
}

func (c *Collector) Snapshot() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":           total,
		"errorsTotal":             atomic.LoadUint64(&c.errorRequests),
		"avgDurationMs":           avg,
		"totalDurationMs":         totalMs,
		"payrollRunsTotal":        atomic.LoadUint64(&c.generationRuns),
		"payrollRunFailuresTotal": atomic.LoadUint64(&c.generationFailures),
		"payslipsCreatedTotal":    atomic.LoadUint64(&c.payslipsCreated),
		"payslipsSkippedTotal":    atomic.LoadUint64(&c.payslipsSkipped),
		"employeeWarningsTotal":   atomic.LoadUint64(&c.employeeWarnings),
	}
}
