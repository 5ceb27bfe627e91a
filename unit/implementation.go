// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"strconv"
	"time"

	"github.com/corticalmesh/substrate/gradient"
)

// executionRecord is one entry in an Implementation unit's bounded
// history ring buffer.
type executionRecord struct {
	at       time.Time
	duration time.Duration
	ok       bool
}

// Implementation is the L2 unit: executes concrete operations and keeps
// a fixed-size ring buffer of recent execution outcomes for introspection
// and for the self-organizing layer's specialization scoring.
type Implementation struct {
	base

	execute func(Input) (Output, error)

	historyCapacity int
	history         []executionRecord
	historyHead     int
	historyLen      int
}

// NewImplementation constructs an L2 unit retaining the last
// historyCapacity execution outcomes.
func NewImplementation(descriptor Descriptor, historyCapacity int, execute func(Input) (Output, error)) *Implementation {
	if historyCapacity <= 0 {
		historyCapacity = 1
	}
	return &Implementation{
		base:            newBase(L2, descriptor),
		execute:         execute,
		historyCapacity: historyCapacity,
		history:         make([]executionRecord, historyCapacity),
	}
}

func (im *Implementation) pushHistory(r executionRecord) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.historyLen < im.historyCapacity {
		idx := (im.historyHead + im.historyLen) % im.historyCapacity
		im.history[idx] = r
		im.historyLen++
		return
	}
	im.history[im.historyHead] = r
	im.historyHead = (im.historyHead + 1) % im.historyCapacity
}

func (im *Implementation) Process(in Input) (Output, error) {
	start := time.Now()
	out, err := im.execute(in)
	elapsed := time.Since(start)
	im.recordProcess(elapsed, err)
	im.pushHistory(executionRecord{at: start, duration: elapsed, ok: err == nil})
	return out, err
}

// Learn has no adjustable weights at L2 beyond a force_healthy override
// with which a caller marks the unit degraded (0) or healthy (non-zero)
// from outside (spec.md §4.D: a
// Process error rate observed externally can force Healthy=false).
func (im *Implementation) Learn(g gradient.Gradient) error {
	im.recordLearn()
	if v, ok := applyAdjustment(g, "force_healthy"); ok {
		im.setHealthy(v != 0)
	}
	return nil
}

func (im *Implementation) successRate() float64 {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.historyLen == 0 {
		return 1
	}
	ok := 0
	for i := 0; i < im.historyLen; i++ {
		idx := (im.historyHead + i) % im.historyCapacity
		if im.history[idx].ok {
			ok++
		}
	}
	return float64(ok) / float64(im.historyLen)
}

func (im *Implementation) Introspect() Snapshot {
	rate := im.successRate()
	im.mu.Lock()
	histLen := im.historyLen
	im.mu.Unlock()
	const estimatedBytesPerRecord = 32
	return im.snapshot(uint64(im.historyCapacity*estimatedBytesPerRecord), map[string]string{
		"history_entries":  strconv.Itoa(histLen),
		"history_capacity": strconv.Itoa(im.historyCapacity),
		"success_rate":     strconv.FormatFloat(rate, 'f', 4, 64),
	})
}

func (im *Implementation) Reset() {
	im.mu.Lock()
	im.historyHead, im.historyLen = 0, 0
	im.mu.Unlock()
	im.reset()
}

var _ Unit = (*Implementation)(nil)
