package metrics

import (
	"sync/atomic"
	"time"

	"perfdash/internal/domain/dashboard"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	dashboardLoaded   uint64
	dashboardFallback uint64
	aggregateOK       uint64
	aggregateFailed   uint64
	streamsOpen       int64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordDashboard counts how a dashboard mount settled.
func (c *Collector) RecordDashboard(phase dashboard.Phase) {
	switch phase {
	case dashboard.PhaseLoaded:
		atomic.AddUint64(&c.dashboardLoaded, 1)
	case dashboard.PhaseFailed:
		atomic.AddUint64(&c.dashboardFallback, 1)
	}
}

func (c *Collector) RecordAggregate(err error) {
	if err != nil {
		atomic.AddUint64(&c.aggregateFailed, 1)
		return
	}
	atomic.AddUint64(&c.aggregateOK, 1)
}

func (c *Collector) StreamOpened() {
	atomic.AddInt64(&c.streamsOpen, 1)
}

func (c *Collector) StreamClosed() {
	atomic.AddInt64(&c.streamsOpen, -1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            errs,
		"rateLimitedTotal":       limited,
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"dashboardLoadedTotal":   atomic.LoadUint64(&c.dashboardLoaded),
		"dashboardFallbackTotal": atomic.LoadUint64(&c.dashboardFallback),
		"aggregateOkTotal":       atomic.LoadUint64(&c.aggregateOK),
		"aggregateFailedTotal":   atomic.LoadUint64(&c.aggregateFailed),
		"streamsOpen":            atomic.LoadInt64(&c.streamsOpen),
	}
}
