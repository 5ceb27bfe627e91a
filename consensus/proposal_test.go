// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/ids"
)

func newProposal(required int) Proposal {
	return Proposal{
		ID:            ids.GenerateID(),
		Proposer:      ids.GenerateUnitID(),
		Value:         []byte("v"),
		RequiredVotes: required,
		Deadline:      time.Now().Add(time.Hour),
	}
}

func TestVoteAcceptsOnceThresholdReached(t *testing.T) {
	p := newProposal(2)
	s := NewSet(p, ModeSimpleMajority)

	require.Equal(t, Pending, s.Vote(ids.GenerateUnitID(), VoteAccept))
	require.Equal(t, Accepted, s.Vote(ids.GenerateUnitID(), VoteAccept))
}

func TestVoteIsIdempotentPerVoter(t *testing.T) {
	p := newProposal(2)
	s := NewSet(p, ModeSimpleMajority)

	voter := ids.GenerateUnitID()
	s.Vote(voter, VoteAccept)
	s.Vote(voter, VoteAccept) // same voter voting again must not double-count
	require.Equal(t, 1, s.Len())

	accept, _ := s.Tally()
	require.Equal(t, 1, accept)
}

func TestVoteAfterOutcomeIsNoOp(t *testing.T) {
	p := newProposal(1)
	s := NewSet(p, ModeSimpleMajority)

	require.Equal(t, Accepted, s.Vote(ids.GenerateUnitID(), VoteAccept))
	outcome := s.Vote(ids.GenerateUnitID(), VoteReject)
	require.Equal(t, Accepted, outcome, "outcome must not change once decided")
	require.Equal(t, 1, s.Len())
}

func TestCheckDeadlineTimesOutPendingSet(t *testing.T) {
	p := newProposal(5)
	p.Deadline = time.Now().Add(-time.Minute)
	s := NewSet(p, ModeSimpleMajority)

	require.Equal(t, TimedOut, s.CheckDeadline(time.Now()))
}

func TestCheckDeadlineDoesNotOverrideDecidedOutcome(t *testing.T) {
	p := newProposal(1)
	p.Deadline = time.Now().Add(-time.Minute)
	s := NewSet(p, ModeSimpleMajority)

	s.Vote(ids.GenerateUnitID(), VoteAccept)
	require.Equal(t, Accepted, s.CheckDeadline(time.Now()))
}

func TestByzantineTolerantRequiresSupermajority(t *testing.T) {
	p := newProposal(3)
	s := NewSet(p, ModeByzantineTolerant)

	// threshold = (2*3+2)/3 = 2 (integer division)
	require.Equal(t, Pending, s.Vote(ids.GenerateUnitID(), VoteAccept))
	require.Equal(t, Accepted, s.Vote(ids.GenerateUnitID(), VoteAccept))
}

func TestTallyCountsAcceptAndReject(t *testing.T) {
	p := newProposal(10)
	s := NewSet(p, ModeSimpleMajority)

	s.Vote(ids.GenerateUnitID(), VoteAccept)
	s.Vote(ids.GenerateUnitID(), VoteReject)
	s.Vote(ids.GenerateUnitID(), VoteReject)

	accept, reject := s.Tally()
	require.Equal(t, 1, accept)
	require.Equal(t, 2, reject)
}

func TestOutcomeStringer(t *testing.T) {
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "accepted", Accepted.String())
	require.Equal(t, "rejected", Rejected.String())
	require.Equal(t, "timed_out", TimedOut.String())
}
