package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   atomic.Uint64
	errorRequests   atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64
	computations    atomic.Uint64
	previewHits     atomic.Uint64
	transitions     atomic.Uint64
	documents       atomic.Uint64
	jobsFailed      atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.totalRequests.Add(1)
	if status >= 500 {
		c.errorRequests.Add(1)
	}
	if status == 429 {
		c.rateLimited.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
}

// RecordComputation counts calculator runs; cached previews count as hits.
func (c *Collector) RecordComputation(n int, cached bool) {
	if c == nil || n <= 0 {
		return
	}
	if cached {
		c.previewHits.Add(uint64(n))
		return
	}
	c.computations.Add(uint64(n))
}

func (c *Collector) RecordTransition() {
	if c != nil {
		c.transitions.Add(1)
	}
}

func (c *Collector) RecordDocument() {
	if c != nil {
		c.documents.Add(1)
	}
}

func (c *Collector) RecordJobFailure() {
	if c != nil {
		c.jobsFailed.Add(1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := c.totalRequests.Load()
	totalMs := c.totalDurationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       c.errorRequests.Load(),
		"rateLimitedTotal":  c.rateLimited.Load(),
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"computationsTotal": c.computations.Load(),
		"previewHitsTotal":  c.previewHits.Load(),
		"transitionsTotal":  c.transitions.Load(),
		"documentsTotal":    c.documents.Load(),
		"jobsFailedTotal":   c.jobsFailed.Load(),
	}
}
