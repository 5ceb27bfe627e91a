// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrator composes the topology, router, protocol manager,
// transport, and self-organizing network into the substrate's public
// surface of spec.md §4.I: submit a signal, observe reorganization and
// error events, snapshot the topology, and shut down cleanly.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/config"
	"github.com/corticalmesh/substrate/consensus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/log"
	"github.com/corticalmesh/substrate/metrics"
	"github.com/corticalmesh/substrate/networking/benchlist"
	"github.com/corticalmesh/substrate/protocol/consensusproto"
	"github.com/corticalmesh/substrate/protocol/gradientproto"
	"github.com/corticalmesh/substrate/protocol/signalproto"
	"github.com/corticalmesh/substrate/protocolmgr"
	"github.com/corticalmesh/substrate/router"
	"github.com/corticalmesh/substrate/selforganize"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/topology"
	"github.com/corticalmesh/substrate/transport"
	"github.com/corticalmesh/substrate/unit"
	"github.com/corticalmesh/substrate/utils/wrappers"
)

// consensusModeOf maps config.ConsensusMode to consensus.Mode; the two
// packages define the tallying policy independently (config as a
// serializable knob, consensus as the voting engine's own enum) so the
// orchestrator is the one place that must know both.
func consensusModeOf(m config.ConsensusMode) consensus.Mode {
	if m == config.ByzantineTolerant {
		return consensus.ModeByzantineTolerant
	}
	return consensus.ModeSimpleMajority
}

// addressFor derives the transport address a unit receives Signal
// traffic on, per the "peer:{id}:..." convention of spec.md §6.
func addressFor(id ids.UnitID) string { return fmt.Sprintf("peer:%s:signal", id.String()) }

// gradientAddressFor derives the transport address a unit receives
// Gradient traffic on, per the same "peer:{id}:..." convention.
func gradientAddressFor(id ids.UnitID) string { return fmt.Sprintf("peer:%s:gradient", id.String()) }

// EventKind names the stream multiplexed by Observe, per spec.md §4.I.
type EventKind int

const (
	EventReorganization EventKind = iota
	EventError
)

// Event is one item on the Observe() stream.
type Event struct {
	Kind         EventKind
	Selforganize selforganize.Event
	Err          error
}

// localCapabilities is the substrate's own advertised capability set,
// used to negotiate with itself when a unit is both sender and
// receiver on the same in-process orchestrator.
func localCapabilities(maxMessageSize uint64) codec.Capabilities {
	return codec.Capabilities{
		MaxMessageSize:  maxMessageSize,
		Streaming:       false,
		Bidirectional:   true,
		OrderedDelivery: false,
	}
}

// Orchestrator composes every fabric component behind spec.md §4.I's
// four public operations.
type Orchestrator struct {
	cfg       config.Config
	log       log.Logger
	metrics   *metrics.Set
	transport transport.Transport

	graph  *topology.Graph
	router *router.Router
	social *selforganize.Network

	registry  *protocolmgr.Registry
	protomgr  *protocolmgr.Manager
	consensus *consensusproto.Protocol
	gradient  *gradientproto.Protocol
	bench     benchlist.Manager

	mu    sync.RWMutex
	units map[ids.UnitID]unit.Unit

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	shutdownOnce sync.Once
}

// New constructs an Orchestrator over transportImpl, wiring the Signal,
// Gradient, and Consensus protocols into a fresh registry and starting
// the protocol manager's negotiation janitor in the background.
func New(cfg config.Config, logger log.Logger, reg prometheus.Registerer, transportImpl transport.Transport) *Orchestrator {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	graph := topology.New()
	r := router.New(graph, cfg.RouterCacheSize)
	social := selforganize.New(graph, cfg, logger)

	consensusProto := consensusproto.New(cfg.MaxMessageSize, consensusModeOf(cfg.ConsensusMode))
	gradientProto := gradientproto.New(cfg.MaxMessageSize, cfg.GradientMagnitudeClip, cfg.GradientBatchSize, cfg.GradientFlushInterval)
	registry := protocolmgr.NewRegistry()
	registry.Register(signalproto.New(cfg.MaxMessageSize))
	registry.Register(gradientProto)
	registry.Register(consensusProto)
	mgr := protocolmgr.NewManager(registry, cfg.SessionTTL)
	bench := benchlist.NewManager(benchlist.Config{
		Threshold:              cfg.BenchThreshold,
		Duration:               cfg.BenchDuration,
		MinimumFailingDuration: cfg.BenchMinimumFailingDuration,
	})

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		log:       log.Component(logger, "orchestrator"),
		metrics:   metrics.NewSet("orchestrator", reg, &wrappers.Errs{}),
		transport: transportImpl,
		graph:     graph,
		router:    r,
		social:    social,
		registry:  registry,
		protomgr:  mgr,
		consensus: consensusProto,
		gradient:  gradientProto,
		bench:     bench,
		units:     make(map[ids.UnitID]unit.Unit),
		events:    make(chan Event, 256),
		ctx:       ctx,
		cancel:    cancel,
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		mgr.RunJanitor(ctx, cfg.JanitorInterval)
	}()
	o.wg.Add(1)
	go o.runBackgroundTicks()
	o.wg.Add(1)
	go o.drainSocialEvents()
	o.wg.Add(1)
	go o.runConsensusSubscriber()

	return o
}

// runBackgroundTicks drives the self-organizing network's periodic jobs
// (spec.md §5: "one [task] per background job (cluster detection, decay
// tick, negotiation janitor)") plus the Gradient protocol's timer-
// triggered flush (spec.md §4.B: "flush is triggered by batch fill or by
// a timer").
func (o *Orchestrator) runBackgroundTicks() {
	defer o.wg.Done()
	decay := time.NewTicker(o.cfg.DecayInterval)
	cluster := time.NewTicker(o.cfg.ClusterDetectInterval)
	deadlines := time.NewTicker(o.cfg.ConsensusDeadlineDefault)
	gradientFlush := time.NewTicker(o.cfg.GradientFlushInterval)
	defer decay.Stop()
	defer cluster.Stop()
	defer deadlines.Stop()
	defer gradientFlush.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-decay.C:
			o.social.DecayTick()
		case <-cluster.C:
			o.social.ClusterDetect()
		case <-gradientFlush.C:
			o.flushAllGradientBatches(o.ctx)
		case now := <-deadlines.C:
			for _, id := range o.consensus.SweepDeadlines(now) {
				o.reportError("consensus.deadline", substraterr.New(substraterr.Validation, "consensus", fmt.Sprintf("proposal %s timed out", id)))
			}
		}
	}
}

func (o *Orchestrator) drainSocialEvents() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case ev, ok := <-o.social.Events():
			if !ok {
				return
			}
			o.emit(Event{Kind: EventReorganization, Selforganize: ev})
		}
	}
}

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
		o.log.Warn("orchestrator event dropped, channel full", "kind", e.Kind)
	}
}

func (o *Orchestrator) reportError(op string, err error) {
	o.metrics.Errors.Inc()
	o.log.Error("orchestrator error", "op", op, "error", err)
	o.emit(Event{Kind: EventError, Err: err})
}

// RegisterUnit admits descriptor's unit into the topology and starts its
// single inbound-processing task (spec.md §4.I/§5). Every other unit is
// offered discovery of the new descriptor via the self-organizing
// network's compatibility prefilter (spec.md §4.H.1).
func (o *Orchestrator) RegisterUnit(u unit.Unit) error {
	descriptor := u.Descriptor()
	o.mu.Lock()
	if _, exists := o.units[descriptor.ID]; exists {
		o.mu.Unlock()
		return substraterr.New(substraterr.Validation, "RegisterUnit", "unit already registered")
	}
	existing := make([]unit.Unit, 0, len(o.units))
	for _, other := range o.units {
		existing = append(existing, other)
	}
	o.units[descriptor.ID] = u
	o.mu.Unlock()

	o.graph.AddUnit(descriptor)

	for _, other := range existing {
		o.social.OnUnitAdded(other.Descriptor(), descriptor)
		o.social.OnUnitAdded(descriptor, other.Descriptor())
	}

	o.wg.Add(1)
	go o.runUnitLoop(u)
	o.wg.Add(1)
	go o.runGradientLoop(u)
	return nil
}

// UnregisterUnit removes id from the topology, triggering self-healing
// for its former downstream consumers (spec.md §4.H.6), and stops
// routing traffic to it. The unit's own inbound loop exits the next time
// its receive stream is closed or the orchestrator's context is done.
func (o *Orchestrator) UnregisterUnit(id ids.UnitID) {
	o.mu.Lock()
	u, ok := o.units[id]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.units, id)
	o.mu.Unlock()

	if ev := o.social.OnUnitRemoved(u.Descriptor()); ev != nil {
		o.emit(Event{Kind: EventReorganization, Selforganize: *ev})
	}
}

// TopologySnapshot returns the current graph metrics for diagnostics
// (spec.md §4.I "frozen view").
func (o *Orchestrator) TopologySnapshot() topology.Metrics {
	return o.graph.Metrics()
}

// Observe returns the multiplexed reorganization/emergence/error event
// stream (spec.md §4.I).
func (o *Orchestrator) Observe() <-chan Event { return o.events }

// Shutdown drains in-flight sends, cancels background tasks, and closes
// the transport (spec.md §4.I). Safe to call more than once.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	var shutdownErr error
	o.shutdownOnce.Do(func() {
		o.cancel()

		done := make(chan struct{})
		go func() {
			o.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			shutdownErr = ctx.Err()
		}

		if err := o.transport.Close(); err != nil {
			shutdownErr = err
		}
		close(o.events)
	})
	return shutdownErr
}
