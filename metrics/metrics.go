// Package metrics records per-request latency and outcome counts for
// callers that want client-side visibility. Attach it with Collect:
//
//	col := metrics.NewCollector()
//	ctx = courier.WithExtraMiddleware(ctx, metrics.Collect(col))
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	courier "github.com/corvid-labs/courier"
)

// Collector aggregates request latencies and outcomes. Safe for
// concurrent use.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
}

// Stats is a snapshot of aggregated request metrics.
type Stats struct {
	Total       int64
	Successes   int64
	Failures    int64
	MinLatency  time.Duration
	MaxLatency  time.Duration
	MeanLatency time.Duration
	P50Latency  time.Duration
	P90Latency  time.Duration
	P99Latency  time.Duration
	Errors      map[string]int64
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &Collector{
		hist:         hdrhistogram.New(1, 60_000_000, 3),
		errorsByType: make(map[string]int64),
	}
}

// Record registers one request's latency and error state.
func (c *Collector) Record(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || (latency > 0 && latency < c.minLatency) {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err == nil {
		c.successes++
		return
	}
	c.failures++
	c.errorsByType[fmt.Sprintf("%T", err)]++
}

// Stats returns the current aggregate snapshot.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Errors:     make(map[string]int64, len(c.errorsByType)),
	}
	for k, v := range c.errorsByType {
		stats.Errors[k] = v
	}
	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	return stats
}

// Collect returns a middleware feeding the collector. Successful calls
// record the transport-reported request time; failures record the error
// type with whatever elapsed time the response carried, if any.
func Collect(c *Collector) courier.Middleware {
	return func(next courier.Executor) courier.Executor {
		return func(req *courier.Request, respond func(*courier.Response), raise func(error)) {
			next(req,
				func(resp *courier.Response) {
					if resp != nil {
						c.Record(resp.RequestTime, nil)
					}
					respond(resp)
				},
				func(err error) {
					c.Record(0, err)
					raise(err)
				})
		}
	}
}
