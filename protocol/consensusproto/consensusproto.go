// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensusproto implements the Consensus protocol of spec.md
// §4.B: ordered, bidirectional, collecting votes against a proposal
// until required_votes is reached or the deadline passes, with
// SimpleMajority and Byzantine-tolerant tallying modes.
package consensusproto

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/codec/compress"
	"github.com/corticalmesh/substrate/consensus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/utils/set"
	"github.com/corticalmesh/substrate/utils/version"
)

const ProtocolID = "substrate.consensus"

var currentVersion = version.Semantic{Major: 1, Minor: 0, Patch: 0}

// Protocol implements protocol.Protocol for Consensus messages, and owns
// the live Set for every in-flight proposal this unit is collecting
// votes for.
type Protocol struct {
	maxMessageSize uint64
	mode           consensus.Mode

	mu   sync.Mutex
	sets map[ids.ID]*consensus.Set
}

// New constructs a Consensus protocol instance tallying under mode.
func New(maxMessageSize uint64, mode consensus.Mode) *Protocol {
	return &Protocol{
		maxMessageSize: maxMessageSize,
		mode:           mode,
		sets:           make(map[ids.ID]*consensus.Set),
	}
}

func (p *Protocol) ID() string                { return ProtocolID }
func (p *Protocol) Version() version.Semantic { return currentVersion }

func (p *Protocol) Capabilities() codec.Capabilities {
	return codec.Capabilities{
		Compression:     set.Of(codec.CompressionNone, codec.CompressionGzip, codec.CompressionLz4, codec.CompressionZstd),
		Encryption:      set.Of(codec.EncryptionNone, codec.EncryptionTLS, codec.EncryptionAES256),
		MaxMessageSize:  p.maxMessageSize,
		Streaming:       false,
		Bidirectional:   true,
		OrderedDelivery: true,
	}
}

func (p *Protocol) Negotiate(peerCaps codec.Capabilities) codec.NegotiatedProtocol {
	return codec.Negotiate(p.Capabilities(), peerCaps, currentVersion, time.Now(), 24*time.Hour)
}

// Open begins collecting votes for proposal, returning its Set. Calling
// Open again for an already-open proposal ID returns the existing Set
// rather than resetting it.
func (p *Protocol) Open(proposal consensus.Proposal) *consensus.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sets[proposal.ID]; ok {
		return s
	}
	s := consensus.NewSet(proposal, p.mode)
	p.sets[proposal.ID] = s
	return s
}

// RecordVote applies voter's vote to the named proposal's Set, returning
// the outcome after recording. Voting on an unknown proposal is a no-op
// returning consensus.Pending.
func (p *Protocol) RecordVote(proposalID ids.ID, voter ids.UnitID, vote consensus.Vote) consensus.Outcome {
	p.mu.Lock()
	s, ok := p.sets[proposalID]
	p.mu.Unlock()
	if !ok {
		return consensus.Pending
	}
	return s.Vote(voter, vote)
}

// SweepDeadlines marks every still-pending set whose deadline has passed
// as TimedOut, returning the IDs that transitioned.
func (p *Protocol) SweepDeadlines(now time.Time) []ids.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var timedOut []ids.ID
	for id, s := range p.sets {
		if s.Outcome() == consensus.Pending && s.CheckDeadline(now) == consensus.TimedOut {
			timedOut = append(timedOut, id)
		}
	}
	return timedOut
}

// Forget discards a proposal's Set once its outcome has been consumed.
func (p *Protocol) Forget(proposalID ids.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sets, proposalID)
}

// wireMessage is the wire envelope for both proposal announcements and
// individual votes, discriminated by Kind.
type wireMessage struct {
	Kind          string `json:"kind"` // "proposal" | "vote"
	ProposalID    string `json:"proposal_id"`
	Proposer      string `json:"proposer,omitempty"`
	Value         []byte `json:"value,omitempty"`
	RequiredVotes int    `json:"required_votes,omitempty"`
	DeadlineUnix  int64  `json:"deadline_unix,omitempty"`
	Voter         string `json:"voter,omitempty"`
	Vote          string `json:"vote,omitempty"`
}

// ProposalMessage and VoteMessage are the Go-side values Encode/Decode
// operate on.
type ProposalMessage struct {
	Proposal consensus.Proposal
}

type VoteMessage struct {
	ProposalID ids.ID
	Voter      ids.UnitID
	Vote       consensus.Vote
}

func voteString(v consensus.Vote) string {
	if v == consensus.VoteAccept {
		return "accept"
	}
	return "reject"
}

func parseVote(s string) consensus.Vote {
	if s == "accept" {
		return consensus.VoteAccept
	}
	return consensus.VoteReject
}

// Encode serializes a ProposalMessage or VoteMessage.
func (p *Protocol) Encode(negotiated codec.NegotiatedProtocol, message interface{}) ([]byte, error) {
	var w wireMessage
	switch m := message.(type) {
	case ProposalMessage:
		w = wireMessage{
			Kind:          "proposal",
			ProposalID:    m.Proposal.ID.String(),
			Proposer:      m.Proposal.Proposer.String(),
			Value:         m.Proposal.Value,
			RequiredVotes: m.Proposal.RequiredVotes,
			DeadlineUnix:  m.Proposal.Deadline.UnixNano(),
		}
	case VoteMessage:
		w = wireMessage{
			Kind:       "vote",
			ProposalID: m.ProposalID.String(),
			Voter:      m.Voter.String(),
			Vote:       voteString(m.Vote),
		}
	default:
		return nil, fmt.Errorf("consensusproto: encode expects ProposalMessage or VoteMessage, got %T", message)
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("consensusproto: marshal: %w", err)
	}
	return compress.Compress(negotiated.Compression, raw)
}

// Decode reverses Encode into *interface{}, yielding either a
// ProposalMessage or a VoteMessage depending on the wire Kind.
func (p *Protocol) Decode(negotiated codec.NegotiatedProtocol, data []byte, out interface{}) error {
	raw, err := compress.Decompress(negotiated.Compression, data)
	if err != nil {
		return fmt.Errorf("consensusproto: decompress: %w", err)
	}
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("consensusproto: unmarshal: %w", err)
	}
	dst, ok := out.(*interface{})
	if !ok {
		return fmt.Errorf("consensusproto: decode expects *interface{}, got %T", out)
	}

	proposalID, err := ids.FromString(w.ProposalID)
	if err != nil {
		return fmt.Errorf("consensusproto: bad proposal id: %w", err)
	}

	switch w.Kind {
	case "proposal":
		proposerID, err := ids.FromString(w.Proposer)
		if err != nil {
			return fmt.Errorf("consensusproto: bad proposer: %w", err)
		}
		*dst = ProposalMessage{Proposal: consensus.Proposal{
			ID:            proposalID,
			Proposer:      ids.UnitID(proposerID),
			Value:         w.Value,
			RequiredVotes: w.RequiredVotes,
			Deadline:      time.Unix(0, w.DeadlineUnix),
		}}
	case "vote":
		voterID, err := ids.FromString(w.Voter)
		if err != nil {
			return fmt.Errorf("consensusproto: bad voter: %w", err)
		}
		*dst = VoteMessage{
			ProposalID: proposalID,
			Voter:      ids.UnitID(voterID),
			Vote:       parseVote(w.Vote),
		}
	default:
		return fmt.Errorf("consensusproto: unknown message kind %q", w.Kind)
	}
	return nil
}
