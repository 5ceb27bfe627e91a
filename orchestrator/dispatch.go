// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/protocol/signalproto"
	"github.com/corticalmesh/substrate/router"
	"github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/unit"
)

// Submit validates, routes, and dispatches s, per spec.md §4.I. The
// returned Future completes once every targeted unit has received the
// signal (fan-out sends run concurrently via errgroup).
func (o *Orchestrator) Submit(ctx context.Context, s signal.Signal) (*Future, error) {
	if !s.ShouldPropagate(o.cfg.SignalStrengthFloor, o.cfg.SignalMaxDepth) {
		return nil, substraterr.New(substraterr.Validation, "Submit", "signal expired: below strength floor or past max depth")
	}

	sourceDesc, ok := o.graph.Descriptor(s.Source)
	if !ok {
		return nil, substraterr.New(substraterr.Validation, "Submit", "unknown source unit")
	}

	targets, err := o.resolveTargets(s, sourceDesc)
	if err != nil {
		return nil, err
	}

	future := newFuture()
	if len(targets) == 0 {
		future.complete(nil)
		return future, nil
	}

	go func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, target := range targets {
			target := target
			g.Go(func() error { return o.deliver(gctx, s, sourceDesc, target) })
		}
		future.complete(g.Wait())
	}()
	return future, nil
}

// resolveTargets expands s into the concrete unit IDs it must reach: its
// single addressed target (validated within ±1 layer, spec.md §4.D), or
// every current graph neighbor of the source when s is a broadcast.
func (o *Orchestrator) resolveTargets(s signal.Signal, sourceDesc unit.Descriptor) ([]ids.UnitID, error) {
	if s.IsBroadcast() {
		neighbors := o.graph.Neighbors(s.Source)
		targets := make([]ids.UnitID, 0, len(neighbors))
		for to := range neighbors {
			if o.bench.IsBenched(to) {
				continue
			}
			targets = append(targets, to)
		}
		return targets, nil
	}

	targetDesc, ok := o.graph.Descriptor(s.Target)
	if !ok {
		return nil, substraterr.New(substraterr.Validation, "Submit", "unknown target unit")
	}
	if !sourceDesc.Layer.Adjacent(targetDesc.Layer) {
		return nil, substraterr.New(substraterr.Validation, "Submit", "target layer is more than ±1 from source")
	}
	if o.bench.IsBenched(s.Target) {
		return nil, substraterr.New(substraterr.Overloaded, "Submit", "target unit is benched after repeated delivery failures")
	}
	return []ids.UnitID{s.Target}, nil
}

// deliver encodes and sends s to target over the Signal protocol. A
// router lookup runs first purely to keep the path cache warm for
// diagnostics; delivery itself always goes direct, point-to-point.
func (o *Orchestrator) deliver(ctx context.Context, s signal.Signal, sourceDesc unit.Descriptor, target ids.UnitID) error {
	if _, err := o.router.Route(s.Source, target, router.QoS{}); err != nil {
		o.log.Debug("deliver: no QoS path cached for diagnostics", "source", s.Source, "target", target, "error", err)
	}

	next := s
	next.Target = target
	peerCaps := localCapabilities(o.cfg.MaxMessageSize)
	if err := o.protomgr.SendVersioned(ctx, o.transport, target, addressFor(target), signalproto.ProtocolID, peerCaps, next); err != nil {
		o.metrics.Errors.Inc()
		o.bench.RegisterFailure(target)
		return err
	}
	o.metrics.Sent.Inc()
	o.bench.RegisterResponse(target)
	o.social.OnSignalSent(sourceDesc.ID, target)
	return nil
}

// runUnitLoop is u's single inbound-processing task (spec.md §5): it
// owns u's receive stream exclusively, so u.Process is never called
// concurrently with itself.
func (o *Orchestrator) runUnitLoop(u unit.Unit) {
	defer o.wg.Done()
	descriptor := u.Descriptor()
	address := addressFor(descriptor.ID)

	stream, err := o.transport.ReceiveRaw(o.ctx, address)
	if err != nil {
		o.reportError("runUnitLoop.ReceiveRaw", err)
		return
	}
	defer stream.Close()

	peerCaps := localCapabilities(o.cfg.MaxMessageSize)
	for {
		msg, err := stream.Recv(o.ctx)
		if err != nil {
			if o.ctx.Err() != nil {
				return
			}
			o.reportError("runUnitLoop.Recv", err)
			return
		}

		negotiated, err := o.protomgr.NegotiateWithPeer(descriptor.ID, signalproto.ProtocolID, peerCaps, time.Now())
		if err != nil {
			o.reportError("runUnitLoop.Negotiate", err)
			continue
		}
		var s signal.Signal
		if err := o.protomgr.ReceiveVersioned(negotiated, msg.Bytes, &s); err != nil {
			o.reportError("runUnitLoop.ReceiveVersioned", err)
			continue
		}

		o.metrics.Received.Inc()
		o.social.OnSignalReceived(descriptor.ID, categoryOf(s))
		o.processSignal(u, descriptor, s)
	}
}

// processSignal runs one unit's process/learn-triggering step and
// refires any produced output to the layers it names, per spec.md §4.D.
func (o *Orchestrator) processSignal(u unit.Unit, descriptor unit.Descriptor, s signal.Signal) {
	input := unit.Input{Content: s.Activation.Content, Context: s.Metadata}
	if srcDesc, ok := o.graph.Descriptor(s.Source); ok {
		l := srcDesc.Layer
		input.SourceLayer = &l
	}

	out, err := u.Process(input)
	if err != nil {
		o.reportError("processSignal", substraterr.Wrap(substraterr.Internal, "unit.Process", "unit returned an error", err))
		return
	}
	if err := unit.ValidateOutputLayers(descriptor.Layer, out); err != nil {
		o.reportError("processSignal", substraterr.Wrap(substraterr.Validation, "unit.Process", "output targets an invalid layer", err))
		return
	}

	base := s.Forward(ids.EmptyUnitID)
	base.Source = descriptor.ID
	base.Activation.Content = out.Content
	base.Metadata = out.Metadata
	base.Path = append(append([]ids.UnitID(nil), s.Path...), descriptor.ID)

	refired := 0
	for to, desc := range o.neighborDescriptors(descriptor.ID) {
		if !layerTargeted(desc.Layer, out.TargetLayers) {
			continue
		}
		next := base
		next.Target = to
		if _, err := o.Submit(o.ctx, next); err != nil {
			o.reportError("processSignal.refire", err)
			continue
		}
		refired++
	}

	if refired == 0 {
		o.emitGradient(o.ctx, u, descriptor, base, out)
	}
}

func (o *Orchestrator) neighborDescriptors(from ids.UnitID) map[ids.UnitID]unit.Descriptor {
	neighbors := o.graph.Neighbors(from)
	out := make(map[ids.UnitID]unit.Descriptor, len(neighbors))
	for to := range neighbors {
		if d, ok := o.graph.Descriptor(to); ok {
			out[to] = d
		}
	}
	return out
}

// layerTargeted reports whether l is among targets, treating an empty
// target list as "propagate to every adjacent layer" (spec.md §4.D's
// default fan-out when a unit's output names no explicit targets).
func layerTargeted(l unit.Layer, targets []unit.Layer) bool {
	if len(targets) == 0 {
		return true
	}
	for _, t := range targets {
		if t == l {
			return true
		}
	}
	return false
}

// categoryOf derives the coarse output category the self-organizing
// network's specialization tracking keys on (spec.md §4.H.5), falling
// back to "default" when the signal carries no explicit one.
func categoryOf(s signal.Signal) string {
	if c, ok := s.Metadata["category"]; ok && c != "" {
		return c
	}
	return "default"
}
