// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package consensus defines the consensus proposal of spec.md §3 and the
// vote-set bookkeeping described in §4.B, adapted from the kept
// poll.Set/Poll pattern: votes accumulate until either required_votes is
// reached (accepted) or the deadline passes (rejected with timeout),
// duplicate votes from the same voter are idempotent, and the decision
// is deterministic in the collected set regardless of arrival order.
package consensus

import (
	"time"

	"github.com/corticalmesh/substrate/ids"
)

// Vote is a voter's decision on a proposal.
type Vote int

const (
	VoteAccept Vote = iota
	VoteReject
)

// Outcome is the terminal state of a Proposal.
type Outcome int

const (
	Pending Outcome = iota
	Accepted
	Rejected
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// Proposal is a consensus proposal as described by spec.md §3.
type Proposal struct {
	ID            ids.ID
	Proposer      ids.UnitID
	Value         []byte
	RequiredVotes int
	Deadline      time.Time
}

// Set tracks the in-flight vote collection for one Proposal. It mirrors
// the kept poll.earlyTermPoll's vote map plus finished flag, generalized
// from NodeID/ids.ID voting to UnitID/Vote voting and SimpleMajority /
// Byzantine-tolerant tallying.
type Set struct {
	proposal Proposal
	mode     Mode
	votes    map[ids.UnitID]Vote
	outcome  Outcome
}

// Mode selects the tallying rule.
type Mode int

const (
	ModeSimpleMajority Mode = iota
	ModeByzantineTolerant
)

// NewSet creates a vote collector for proposal under mode.
func NewSet(proposal Proposal, mode Mode) *Set {
	return &Set{
		proposal: proposal,
		mode:     mode,
		votes:    make(map[ids.UnitID]Vote),
		outcome:  Pending,
	}
}

// Vote records voter's decision. Duplicate votes from the same voter are
// idempotent: the later vote simply overwrites the stored one without
// double-counting, and re-voting after the set is finished is a no-op.
// Returns the outcome after recording (Pending if still collecting).
func (s *Set) Vote(voter ids.UnitID, vote Vote) Outcome {
	if s.outcome != Pending {
		return s.outcome
	}
	s.votes[voter] = vote
	s.outcome = s.evaluate()
	return s.outcome
}

// CheckDeadline marks the set TimedOut if now is at or past the
// proposal's deadline and no decision has been reached yet.
func (s *Set) CheckDeadline(now time.Time) Outcome {
	if s.outcome == Pending && !now.Before(s.proposal.Deadline) {
		s.outcome = TimedOut
	}
	return s.outcome
}

func (s *Set) evaluate() Outcome {
	accept, reject := 0, 0
	for _, v := range s.votes {
		if v == VoteAccept {
			accept++
		} else {
			reject++
		}
	}

	threshold := s.proposal.RequiredVotes
	switch s.mode {
	case ModeByzantineTolerant:
		// Two thirds of required_votes, rounded up; this never exceeds
		// the SimpleMajority threshold of required_votes itself.
		threshold = (2*s.proposal.RequiredVotes + 2) / 3
	}

	if accept >= threshold {
		return Accepted
	}
	// There is no early rejection: voters are not bounded here, so a set
	// below threshold stays Pending and only its deadline resolves it.
	_ = reject
	return Pending
}

// Outcome returns the set's current outcome without side effects.
func (s *Set) Outcome() Outcome { return s.outcome }

// Tally returns the accept/reject counts observed so far.
func (s *Set) Tally() (accept, reject int) {
	for _, v := range s.votes {
		if v == VoteAccept {
			accept++
		} else {
			reject++
		}
	}
	return accept, reject
}

// Len returns the number of distinct voters recorded.
func (s *Set) Len() int { return len(s.votes) }
