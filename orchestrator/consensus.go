// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/consensus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/protocol/consensusproto"
	"github.com/corticalmesh/substrate/substraterr"
)

// consensusTopic is the broadcast topic proposals and votes travel on,
// per spec.md §4.B/§4.I ("consensus protocols traverse the same fabric").
const consensusTopic = "broadcast:" + consensusproto.ProtocolID

// Propose opens proposal locally and broadcasts it to every subscriber
// on the consensus topic (spec.md §4.I composes the orchestrator with
// the Consensus protocol of §4.B).
func (o *Orchestrator) Propose(ctx context.Context, proposal consensus.Proposal) error {
	o.consensus.Open(proposal)
	return o.broadcastConsensus(ctx, consensusproto.ProposalMessage{Proposal: proposal})
}

// Vote records voter's decision locally and broadcasts it, returning the
// outcome after recording (consensus.Pending if still collecting).
func (o *Orchestrator) Vote(ctx context.Context, proposalID ids.ID, voter ids.UnitID, vote consensus.Vote) (consensus.Outcome, error) {
	outcome := o.consensus.RecordVote(proposalID, voter, vote)
	err := o.broadcastConsensus(ctx, consensusproto.VoteMessage{ProposalID: proposalID, Voter: voter, Vote: vote})
	return outcome, err
}

func (o *Orchestrator) broadcastConsensus(ctx context.Context, message interface{}) error {
	negotiated := o.consensus.Negotiate(o.consensus.Capabilities())
	payload, err := o.consensus.Encode(negotiated, message)
	if err != nil {
		return substraterr.Wrap(substraterr.Internal, "broadcastConsensus", "encode failed", err)
	}
	envelope := codec.EncodeEnvelope(codec.Envelope{
		ProtocolID: consensusproto.ProtocolID,
		Version:    o.consensus.Version(),
		Payload:    payload,
	})
	return o.transport.PublishRaw(ctx, consensusTopic, envelope)
}

// runConsensusSubscriber applies every inbound proposal/vote broadcast to
// the local consensus protocol state, so every unit observing the
// consensus topic converges on the same outcome (spec.md §5: "the
// decision is deterministic in the ordered set, not in arrival order").
func (o *Orchestrator) runConsensusSubscriber() {
	defer o.wg.Done()
	stream, err := o.transport.SubscribeRaw(o.ctx, consensusTopic)
	if err != nil {
		o.reportError("runConsensusSubscriber.Subscribe", err)
		return
	}
	defer stream.Close()

	negotiated := o.consensus.Negotiate(o.consensus.Capabilities())
	for {
		msg, err := stream.Recv(o.ctx)
		if err != nil {
			if o.ctx.Err() != nil {
				return
			}
			o.reportError("runConsensusSubscriber.Recv", err)
			return
		}
		envelope, err := codec.DecodeEnvelope(msg.Bytes)
		if err != nil {
			o.reportError("runConsensusSubscriber.DecodeEnvelope", err)
			continue
		}
		var decoded interface{}
		if err := o.consensus.Decode(negotiated, envelope.Payload, &decoded); err != nil {
			o.reportError("runConsensusSubscriber.Decode", err)
			continue
		}
		switch m := decoded.(type) {
		case consensusproto.ProposalMessage:
			o.consensus.Open(m.Proposal)
		case consensusproto.VoteMessage:
			o.consensus.RecordVote(m.ProposalID, m.Voter, m.Vote)
		}
	}
}
