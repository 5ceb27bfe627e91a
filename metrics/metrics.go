// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps github.com/prometheus/client_golang into the
// Counter/Gauge/Averager/Histogram shapes every substrate component
// registers against a caller-supplied prometheus.Registerer, per
// spec.md §6's observability surface (sent/received/dropped/errors
// counters, active-peer/session/graph-size gauges, per-layer processing
// and end-to-end latency histograms).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corticalmesh/substrate/utils/wrappers"
)

// Counter tracks a monotonic count, backed by a prometheus.Counter.
type Counter interface {
	Inc()
	Add(delta float64)
	Read() float64
}

type counter struct {
	mu    sync.RWMutex
	value float64
	prom  prometheus.Counter
}

// NewCounter registers and returns a new Counter. On registration failure
// it is added to errs (if non-nil) and a functioning, unregistered
// Counter is returned so callers never need a nil check.
func NewCounter(name, help string, reg prometheus.Registerer, errs *wrappers.Errs) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if reg != nil {
		if err := reg.Register(c); err != nil {
			if errs != nil {
				errs.Add(err)
			}
		}
	}
	return &counter{prom: c}
}

func (c *counter) Inc() { c.Add(1) }

func (c *counter) Add(delta float64) {
	c.mu.Lock()
	c.value += delta
	c.mu.Unlock()
	if c.prom != nil {
		c.prom.Add(delta)
	}
}

func (c *counter) Read() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Gauge tracks a value that can move in either direction.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
	Read() float64
}

type gauge struct {
	mu    sync.RWMutex
	value float64
	prom  prometheus.Gauge
}

// NewGauge registers and returns a new Gauge.
func NewGauge(name, help string, reg prometheus.Registerer, errs *wrappers.Errs) Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if reg != nil {
		if err := reg.Register(g); err != nil {
			if errs != nil {
				errs.Add(err)
			}
		}
	}
	return &gauge{prom: g}
}

func (g *gauge) Set(value float64) {
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
	if g.prom != nil {
		g.prom.Set(value)
	}
}

func (g *gauge) Add(delta float64) {
	g.mu.Lock()
	g.value += delta
	g.mu.Unlock()
	if g.prom != nil {
		g.prom.Add(delta)
	}
}

func (g *gauge) Read() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Averager tracks a running mean, e.g. boundary emergence_activity EMA
// inputs or per-layer mean processing time.
type Averager interface {
	Observe(value float64)
	Read() float64
}

type averager struct {
	mu        sync.RWMutex
	sum       float64
	count     float64
	promCount prometheus.Counter
	promSum   prometheus.Gauge
}

// NewAverager registers and returns a new Averager.
func NewAverager(name, help string, reg prometheus.Registerer, errs *wrappers.Errs) Averager {
	count := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name + "_count",
		Help: "total observations of " + help,
	})
	sum := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name + "_sum",
		Help: "sum of " + help,
	})
	if reg != nil {
		if err := reg.Register(count); err != nil && errs != nil {
			errs.Add(err)
		}
		if err := reg.Register(sum); err != nil && errs != nil {
			errs.Add(err)
		}
	}
	return &averager{promCount: count, promSum: sum}
}

func (a *averager) Observe(value float64) {
	a.mu.Lock()
	a.sum += value
	a.count++
	a.mu.Unlock()
	if a.promCount != nil {
		a.promCount.Inc()
	}
	if a.promSum != nil {
		a.promSum.Add(value)
	}
}

func (a *averager) Read() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / a.count
}

// Histogram wraps prometheus.Histogram for latency distributions: per-layer
// processing time, end-to-end latency by path length.
type Histogram interface {
	Observe(value float64)
}

type histogram struct {
	prom prometheus.Histogram
}

// NewHistogram registers and returns a new Histogram with the given
// bucket boundaries (caller picks units — spec.md uses milliseconds
// throughout).
func NewHistogram(name, help string, buckets []float64, reg prometheus.Registerer, errs *wrappers.Errs) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	})
	if reg != nil {
		if err := reg.Register(h); err != nil && errs != nil {
			errs.Add(err)
		}
	}
	return &histogram{prom: h}
}

func (h *histogram) Observe(value float64) {
	if h.prom != nil {
		h.prom.Observe(value)
	}
}

// Set bundles the standard per-component metric quadruple named in
// spec.md §6: sent/received/dropped/errors counters plus a retries
// counter, registered under a shared name prefix.
type Set struct {
	Sent     Counter
	Received Counter
	Dropped  Counter
	Errors   Counter
	Retries  Counter
}

// NewSet registers the standard counter quintuple under prefix.
func NewSet(prefix string, reg prometheus.Registerer, errs *wrappers.Errs) *Set {
	return &Set{
		Sent:     NewCounter(prefix+"_sent_total", prefix+" messages sent", reg, errs),
		Received: NewCounter(prefix+"_received_total", prefix+" messages received", reg, errs),
		Dropped:  NewCounter(prefix+"_dropped_total", prefix+" messages dropped", reg, errs),
		Errors:   NewCounter(prefix+"_errors_total", prefix+" errors", reg, errs),
		Retries:  NewCounter(prefix+"_retries_total", prefix+" retries", reg, errs),
	}
}
