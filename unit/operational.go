// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/substraterr"
)

// operationalQueueHealthLimit is the queue depth at or above which an
// Operational unit reports itself unhealthy (spec.md §4.D).
const operationalQueueHealthLimit = 100

// Component is one node of an Operational unit's decomposition: a named
// responsibility plus the other components it directs work to
// (spec.md §4.D: "a set of components with named responsibilities and
// directed interactions").
type Component struct {
	Name           string   `json:"name"`
	Responsibility string   `json:"responsibility"`
	DependsOn      []string `json:"depends_on,omitempty"`
}

// Operational is the L3 unit: coordinates a bounded task queue across
// units it supervises, decomposing every accepted task into the fixed
// Component graph it supervises. Process enqueues work and reports that
// decomposition back immediately; a caller-supplied worker drains the
// queue to actually run each task independently.
type Operational struct {
	base

	components    []Component
	queueCapacity int
	queue         []Input
	handle        func(Input) (Output, error)
}

// NewOperational constructs an L3 unit with a bounded task queue of
// queueCapacity, a fixed decomposition into components, and a handler
// invoked as tasks are drained.
func NewOperational(descriptor Descriptor, queueCapacity int, components []Component, handle func(Input) (Output, error)) *Operational {
	if queueCapacity <= 0 {
		queueCapacity = 1
	}
	return &Operational{
		base:          newBase(L3, descriptor),
		components:    append([]Component(nil), components...),
		queueCapacity: queueCapacity,
		handle:        handle,
	}
}

// Process enqueues in for draining and reports the unit's decomposition
// as Content (JSON-encoded []Component) alongside the queue depth,
// matching spec.md §4.D's L3 output; the actual task outcome reaches
// callers through Drain, since the unit itself coordinates rather than
// runs tasks.
func (o *Operational) Process(in Input) (Output, error) {
	start := time.Now()
	o.mu.Lock()
	if len(o.queue) >= o.queueCapacity {
		o.mu.Unlock()
		err := substraterr.New(substraterr.Overloaded, "Operational.Process", "task queue full")
		o.recordProcess(time.Since(start), err)
		return Output{}, err
	}
	o.queue = append(o.queue, in)
	depth := len(o.queue)
	components := o.components
	o.mu.Unlock()

	o.setHealthy(depth < operationalQueueHealthLimit)

	decomposition, err := json.Marshal(components)
	if err != nil {
		o.recordProcess(time.Since(start), err)
		return Output{}, substraterr.Wrap(substraterr.Internal, "Operational.Process", "encode decomposition", err)
	}

	o.recordProcess(time.Since(start), nil)
	return Output{
		Content:    decomposition,
		Confidence: 1,
		Metadata:   map[string]string{"queue_depth": strconv.Itoa(depth)},
	}, nil
}

// Drain pops and runs up to max queued tasks through the unit's handler,
// returning their outputs in FIFO order.
func (o *Operational) Drain(max int) []Output {
	o.mu.Lock()
	n := max
	if n > len(o.queue) || n < 0 {
		n = len(o.queue)
	}
	batch := append([]Input(nil), o.queue[:n]...)
	o.queue = o.queue[n:]
	depth := len(o.queue)
	o.mu.Unlock()

	o.setHealthy(depth < operationalQueueHealthLimit)

	outputs := make([]Output, 0, len(batch))
	for _, in := range batch {
		out, err := o.handle(in)
		o.recordProcess(0, err)
		if err == nil {
			outputs = append(outputs, out)
		}
	}
	return outputs
}

// QueueDepth returns the current number of queued, undrained tasks.
func (o *Operational) QueueDepth() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Learn adjusts nothing structural; L3 has no learned parameters beyond
// the handler closure supplied at construction.
func (o *Operational) Learn(g gradient.Gradient) error {
	o.recordLearn()
	return nil
}

func (o *Operational) Introspect() Snapshot {
	depth := o.QueueDepth()
	const estimatedBytesPerTask = 128
	return o.snapshot(uint64(depth*estimatedBytesPerTask), map[string]string{
		"queue_depth":    strconv.Itoa(depth),
		"queue_capacity": strconv.Itoa(o.queueCapacity),
	})
}

func (o *Operational) Reset() {
	o.mu.Lock()
	o.queue = nil
	o.mu.Unlock()
	o.setHealthy(true)
	o.reset()
}

var _ Unit = (*Operational)(nil)
