// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"time"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/protocol/gradientproto"
	"github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/unit"
)

// emitGradient turns a terminal hop's output into a Gradient walking s's
// path in reverse, per spec.md §4.D's "output signals re-enter via the
// Orchestrator" and §3's Gradient definition. The producing unit learns
// from its own output immediately; every earlier hop on the path learns
// once the Gradient protocol's batch reaches it.
func (o *Orchestrator) emitGradient(ctx context.Context, u unit.Unit, descriptor unit.Descriptor, s signal.Signal, out unit.Output) {
	g := gradient.New(descriptor.ID, s.Path, out.Confidence, adjustmentsFrom(out.Metadata))
	if err := u.Learn(g); err != nil {
		o.reportError("emitGradient.Learn", err)
		return
	}
	o.sendGradientUpstream(ctx, g, 1)
}

// adjustmentsFrom lifts a unit output's string metadata into the opaque
// adjustments map a Gradient carries (spec.md §3: "adjustments (opaque
// map)").
func adjustmentsFrom(meta map[string]string) map[string]interface{} {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// sendGradientUpstream queues g for the hopsConsumed-th unit back along
// its path (gradient.Target), flushing the Gradient protocol's batch for
// that target immediately if Offer reports it is full.
func (o *Orchestrator) sendGradientUpstream(ctx context.Context, g gradient.Gradient, hopsConsumed int) {
	target, ok := g.Target(hopsConsumed)
	if !ok {
		return
	}
	if o.gradient.Offer(target, g) {
		o.flushGradientBatch(ctx, target)
	}
}

// flushGradientBatch drains and sends target's pending Gradient batch
// synchronously on the caller's goroutine. It does not wait for buffer
// space at the receiver: delivery follows the transport's own rules, and
// the in-memory transport drops the message when the receiver's buffer
// is full or no receiver is registered. A send error is counted and
// reported; the batch is not re-queued.
func (o *Orchestrator) flushGradientBatch(ctx context.Context, target ids.UnitID) {
	batch := o.gradient.Flush(target)
	if len(batch) == 0 {
		return
	}
	peerCaps := localCapabilities(o.cfg.MaxMessageSize)
	if err := o.protomgr.SendVersioned(ctx, o.transport, target, gradientAddressFor(target), gradientproto.ProtocolID, peerCaps, batch); err != nil {
		o.metrics.Errors.Inc()
		o.reportError("flushGradientBatch", err)
	}
}

// flushAllGradientBatches is the timer-triggered flush spec.md §4.B
// names alongside fill-triggered flushing.
func (o *Orchestrator) flushAllGradientBatches(ctx context.Context) {
	for target, batch := range o.gradient.FlushAll() {
		if len(batch) == 0 {
			continue
		}
		peerCaps := localCapabilities(o.cfg.MaxMessageSize)
		if err := o.protomgr.SendVersioned(ctx, o.transport, target, gradientAddressFor(target), gradientproto.ProtocolID, peerCaps, batch); err != nil {
			o.metrics.Errors.Inc()
			o.reportError("flushAllGradientBatches", err)
		}
	}
}

// runGradientLoop is u's single inbound Gradient-processing task,
// mirroring runUnitLoop's ownership of the Signal stream: each received
// batch is applied via Learn, then re-queued toward the next hop back
// along each gradient's path, if any remains.
func (o *Orchestrator) runGradientLoop(u unit.Unit) {
	defer o.wg.Done()
	descriptor := u.Descriptor()
	address := gradientAddressFor(descriptor.ID)

	stream, err := o.transport.ReceiveRaw(o.ctx, address)
	if err != nil {
		o.reportError("runGradientLoop.ReceiveRaw", err)
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
			o.reportError("runGradientLoop.Recv", err)
			return
		}

		negotiated, err := o.protomgr.NegotiateWithPeer(descriptor.ID, gradientproto.ProtocolID, peerCaps, time.Now())
		if err != nil {
			o.reportError("runGradientLoop.Negotiate", err)
			continue
		}
		var batch []gradient.Gradient
		if err := o.protomgr.ReceiveVersioned(negotiated, msg.Bytes, &batch); err != nil {
			o.reportError("runGradientLoop.ReceiveVersioned", err)
			continue
		}

		for _, g := range batch {
			if err := u.Learn(g); err != nil {
				o.reportError("runGradientLoop.Learn", err)
				continue
			}
			if hopsConsumed, ok := gradientHopsConsumed(g.Path, descriptor.ID); ok {
				o.sendGradientUpstream(o.ctx, g, hopsConsumed+1)
			}
		}
	}
}

// gradientHopsConsumed locates current's position on path and returns
// the hopsConsumed value at which gradient.Target addresses current
// itself (callers add one to reach the unit one step further back), or
// ok=false if current isn't on path.
func gradientHopsConsumed(path []ids.UnitID, current ids.UnitID) (int, bool) {
	for i, id := range path {
		if id == current {
			return len(path) - 1 - i, true
		}
	}
	return 0, false
}
