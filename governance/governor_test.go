// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package governance_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/internal/test/testutil"
	"github.com/blinklabs-io/tally/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const treasury token.Account = "treasury"

var startTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type holding struct {
	account token.Account
	amount  uint64
}

// standardHoldings splits a supply of 100 as 25/40/35
var standardHoldings = []holding{
	{"alice", 25},
	{"bob", 40},
	{"carol", 35},
}

// newGovernor mints the sum of the holdings to the treasury and hands them
// out before any proposal exists
func newGovernor(
	t *testing.T,
	cfg governance.GovernorConfig,
	holdings ...holding,
) (*governance.Governor, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: startTime}
	cfg.Clock = clock.Now
	g, err := governance.NewGovernor(cfg)
	require.NoError(t, err)
	if len(holdings) == 0 {
		return g, clock
	}
	var total uint64
	for _, h := range holdings {
		total += h.amount
	}
	ctx := context.Background()
	require.NoError(t, g.Mint(ctx, treasury, total))
	for _, h := range holdings {
		require.NoError(t, g.Transfer(ctx, treasury, h.account, h.amount))
	}
	return g, clock
}

func fingerprint(b byte) governance.Fingerprint {
	var ret governance.Fingerprint
	for i := range ret {
		ret[i] = b
	}
	return ret
}

func getProposal(
	t *testing.T,
	g *governance.Governor,
	id governance.ProposalID,
) governance.Proposal {
	t.Helper()
	p, err := g.Proposal(id)
	require.NoError(t, err)
	return p
}

func metricValue(
	t *testing.T,
	reg *prometheus.Registry,
	name string,
	labels ...string,
) float64 {
	t.Helper()
	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range mf.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
						found = true
						break
					}
				}
				if !found {
					continue metricLoop
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func TestMajorityAccepts(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(1))
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(1), id)
	assert.Equal(t, uint64(1), g.ProposalCount())

	require.NoError(t, g.Vote(ctx, "bob", id, governance.Yes))
	p := getProposal(t, g, id)
	assert.Equal(t, governance.StatusPending, p.Status())
	assert.Equal(t, uint64(40), p.Yes)

	require.NoError(t, g.Vote(ctx, "carol", id, governance.Yes))
	p = getProposal(t, g, id)
	assert.Equal(t, governance.StatusAccepted, p.Status())
	assert.Equal(t, uint64(75), p.Yes)
	assert.Equal(t, uint64(0), p.No)
	assert.Equal(t, governance.Accepted{DecidedAt: startTime}, p.State)

	// The slot is released
	assert.Empty(t, g.ActiveProposals())
	assert.Equal(
		t,
		[governance.MaxActiveProposals]governance.ProposalID{},
		g.Slots(),
	)

	choice, err := g.GetVote(id, "carol")
	require.NoError(t, err)
	assert.Equal(t, governance.Yes, choice)

	require.ErrorIs(
		t,
		g.Vote(ctx, "alice", id, governance.No),
		governance.ErrNotPending,
	)
}

func TestMajorityRejects(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "carol", fingerprint(2))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "bob", id, governance.No))
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	assert.Equal(t, governance.StatusPending, getProposal(t, g, id).Status())
	require.NoError(t, g.Vote(ctx, "carol", id, governance.No))

	p := getProposal(t, g, id)
	assert.Equal(t, governance.StatusRejected, p.Status())
	assert.Equal(t, uint64(25), p.Yes)
	assert.Equal(t, uint64(75), p.No)
}

func TestStrictlyAboveHalf(t *testing.T) {
	g, _ := newGovernor(
		t,
		governance.GovernorConfig{},
		holding{"whale", 50},
		holding{"minnow", 1},
		holding{"rest", 49},
	)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "minnow", fingerprint(3))
	require.NoError(t, err)

	// Exactly half of supply is not a majority
	require.NoError(t, g.Vote(ctx, "whale", id, governance.Yes))
	p := getProposal(t, g, id)
	assert.Equal(t, governance.StatusPending, p.Status())
	assert.Equal(t, uint64(50), p.Yes)

	require.NoError(t, g.Vote(ctx, "minnow", id, governance.Yes))
	p = getProposal(t, g, id)
	assert.Equal(t, governance.StatusAccepted, p.Status())
	assert.Equal(t, uint64(51), p.Yes)
}

func TestOddSupplyThreshold(t *testing.T) {
	g, _ := newGovernor(
		t,
		governance.GovernorConfig{},
		holding{"a", 50},
		holding{"b", 51},
	)
	ctx := context.Background()

	// floor(101/2) = 50, so 51 decides alone
	id, err := g.CreateProposal(ctx, "a", fingerprint(4))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "a", id, governance.No))
	assert.Equal(t, governance.StatusPending, getProposal(t, g, id).Status())
	require.NoError(t, g.Vote(ctx, "b", id, governance.Yes))
	assert.Equal(t, governance.StatusAccepted, getProposal(t, g, id).Status())
}

func TestTransferAllForcesAbstain(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(5))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "bob", id, governance.Yes))
	assert.Equal(t, uint64(40), getProposal(t, g, id).Yes)

	require.NoError(t, g.Transfer(ctx, "bob", "dave", 40))
	p := getProposal(t, g, id)
	assert.Equal(t, uint64(0), p.Yes)
	assert.Equal(t, uint64(0), p.No)
	assert.Equal(t, governance.StatusPending, p.Status())

	choice, err := g.GetVote(id, "bob")
	require.NoError(t, err)
	assert.Equal(t, governance.Abstain, choice)
	choice, err = g.GetVote(id, "dave")
	require.NoError(t, err)
	assert.Equal(t, governance.Abstain, choice)

	votes, err := g.Votes(id)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, token.Account("bob"), votes[0].Account)
	assert.True(t, votes[0].Forced)

	// Regaining tokens does not restore the vote
	require.NoError(t, g.Transfer(ctx, "dave", "bob", 10))
	choice, err = g.GetVote(id, "bob")
	require.NoError(t, err)
	assert.Equal(t, governance.Abstain, choice)
	assert.Equal(t, uint64(0), getProposal(t, g, id).Yes)
}

func TestTransferMovesWeight(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(6))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	require.NoError(t, g.Vote(ctx, "bob", id, governance.No))

	// Sender keeps a balance so its vote stays
	require.NoError(t, g.Transfer(ctx, "alice", "bob", 10))
	p := getProposal(t, g, id)
	assert.Equal(t, uint64(15), p.Yes)
	assert.Equal(t, uint64(50), p.No)
	assert.Equal(t, governance.StatusPending, p.Status())

	// Transfers between abstaining holders change nothing
	require.NoError(t, g.Transfer(ctx, "carol", "dave", 5))
	p = getProposal(t, g, id)
	assert.Equal(t, uint64(15), p.Yes)
	assert.Equal(t, uint64(50), p.No)

	// Pushing the recipient's side over half decides the proposal
	require.NoError(t, g.Transfer(ctx, "alice", "bob", 1))
	p = getProposal(t, g, id)
	assert.Equal(t, governance.StatusRejected, p.Status())
	assert.Equal(t, uint64(14), p.Yes)
	assert.Equal(t, uint64(51), p.No)
	assert.Empty(t, g.ActiveProposals())

	// Decided proposals no longer follow transfers
	require.NoError(t, g.Transfer(ctx, "bob", "alice", 30))
	p = getProposal(t, g, id)
	assert.Equal(t, uint64(14), p.Yes)
	assert.Equal(t, uint64(51), p.No)
}

func TestStaleProposalIsFrozen(t *testing.T) {
	g, clock := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(7))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	require.NoError(t, g.Vote(ctx, "bob", id, governance.No))

	clock.Advance(governance.DefaultVotingPeriod + time.Nanosecond)
	require.NoError(t, g.Transfer(ctx, "bob", "alice", 20))
	require.NoError(t, g.Transfer(ctx, "alice", "carol", 45))

	p := getProposal(t, g, id)
	assert.Equal(t, uint64(25), p.Yes)
	assert.Equal(t, uint64(40), p.No)
	// Expiry is only recorded on eviction
	assert.Equal(t, governance.StatusPending, p.Status())
	choice, err := g.GetVote(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, governance.Yes, choice)

	require.ErrorIs(
		t,
		g.Vote(ctx, "carol", id, governance.Yes),
		governance.ErrExpired,
	)
}

func TestDeadlineIsInclusive(t *testing.T) {
	g, clock := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(8))
	require.NoError(t, err)
	p := getProposal(t, g, id)
	assert.Equal(t, startTime.Add(72*time.Hour), p.Deadline)

	clock.Advance(governance.DefaultVotingPeriod)
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	require.NoError(t, g.Transfer(ctx, "alice", "carol", 5))
	assert.Equal(t, uint64(20), getProposal(t, g, id).Yes)

	clock.Advance(time.Nanosecond)
	require.ErrorIs(
		t,
		g.Vote(ctx, "bob", id, governance.Yes),
		governance.ErrExpired,
	)
	require.NoError(t, g.Transfer(ctx, "alice", "carol", 5))
	assert.Equal(t, uint64(20), getProposal(t, g, id).Yes)
}

func TestCapacityAndEviction(t *testing.T) {
	g, clock := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	for i := range governance.MaxActiveProposals {
		id, err := g.CreateProposal(ctx, "alice", fingerprint(byte(i)))
		require.NoError(t, err)
		assert.Equal(t, governance.ProposalID(i+1), id)
	}
	assert.Equal(
		t,
		[governance.MaxActiveProposals]governance.ProposalID{1, 2, 3},
		g.Slots(),
	)

	_, err := g.CreateProposal(ctx, "bob", fingerprint(9))
	require.ErrorIs(t, err, governance.ErrCapacityReached)
	assert.Equal(t, uint64(3), g.ProposalCount())

	// Slot 0 is still live at its deadline
	clock.Advance(governance.DefaultVotingPeriod)
	_, err = g.CreateProposal(ctx, "bob", fingerprint(9))
	require.ErrorIs(t, err, governance.ErrCapacityReached)

	clock.Advance(time.Nanosecond)
	id, err := g.CreateProposal(ctx, "bob", fingerprint(9))
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(4), id)
	assert.Equal(
		t,
		[governance.MaxActiveProposals]governance.ProposalID{4, 2, 3},
		g.Slots(),
	)
	evicted := getProposal(t, g, 1)
	assert.Equal(t, governance.StatusExpired, evicted.Status())
	assert.Equal(t, governance.Expired{ExpiredAt: clock.Now()}, evicted.State)

	// Proposals 2 and 3 are past their deadline too, but only slot 0 is
	// considered for eviction
	assert.Equal(t, governance.StatusPending, getProposal(t, g, 2).Status())
	_, err = g.CreateProposal(ctx, "bob", fingerprint(10))
	require.ErrorIs(t, err, governance.ErrCapacityReached)
	assert.Equal(t, uint64(4), g.ProposalCount())
}

func TestDecisionFreesSlot(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	for i := range governance.MaxActiveProposals {
		_, err := g.CreateProposal(ctx, "alice", fingerprint(byte(i)))
		require.NoError(t, err)
	}
	require.NoError(t, g.Vote(ctx, "bob", 2, governance.Yes))
	require.NoError(t, g.Vote(ctx, "carol", 2, governance.Yes))
	assert.Equal(
		t,
		[governance.MaxActiveProposals]governance.ProposalID{1, 0, 3},
		g.Slots(),
	)

	id, err := g.CreateProposal(ctx, "carol", fingerprint(20))
	require.NoError(t, err)
	assert.Equal(
		t,
		[governance.MaxActiveProposals]governance.ProposalID{1, id, 3},
		g.Slots(),
	)
	active := g.ActiveProposals()
	require.Len(t, active, 3)
	assert.Equal(t, governance.ProposalID(1), active[0].ID)
	assert.Equal(t, id, active[1].ID)
}

func TestVoteRetractAndChange(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(11))
	require.NoError(t, err)

	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	require.ErrorIs(
		t,
		g.Vote(ctx, "alice", id, governance.Yes),
		governance.ErrNoOpVote,
	)
	require.NoError(t, g.Vote(ctx, "alice", id, governance.No))
	p := getProposal(t, g, id)
	assert.Equal(t, uint64(0), p.Yes)
	assert.Equal(t, uint64(25), p.No)

	require.NoError(t, g.Vote(ctx, "alice", id, governance.Abstain))
	p = getProposal(t, g, id)
	assert.Equal(t, uint64(0), p.Yes)
	assert.Equal(t, uint64(0), p.No)
	choice, err := g.GetVote(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, governance.Abstain, choice)

	// Never voting is the same as abstaining
	require.ErrorIs(
		t,
		g.Vote(ctx, "bob", id, governance.Abstain),
		governance.ErrNoOpVote,
	)
}

func TestVoteErrorOrder(t *testing.T) {
	g, clock := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	decided, err := g.CreateProposal(ctx, "alice", fingerprint(12))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "bob", decided, governance.Yes))
	require.NoError(t, g.Vote(ctx, "carol", decided, governance.Yes))
	open, err := g.CreateProposal(ctx, "alice", fingerprint(13))
	require.NoError(t, err)
	clock.Advance(governance.DefaultVotingPeriod + time.Hour)

	testDefs := []struct {
		name   string
		voter  token.Account
		id     governance.ProposalID
		choice governance.Choice
		err    error
	}{
		{"invalid choice first", "nobody", 99, governance.Choice(7), governance.ErrInvalidChoice},
		{"unknown proposal", "nobody", 99, governance.Yes, governance.ErrNotFound},
		{"no proposal", "alice", governance.NoProposal, governance.Yes, governance.ErrNotFound},
		{"non-holder on decided", "nobody", decided, governance.Yes, governance.ErrUnauthorized},
		{"decided after deadline", "alice", decided, governance.No, governance.ErrNotPending},
		{"expired before no-op", "alice", open, governance.Abstain, governance.ErrExpired},
		{"expired", "alice", open, governance.Yes, governance.ErrExpired},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := g.Vote(ctx, testDef.voter, testDef.id, testDef.choice)
			require.ErrorIs(t, err, testDef.err)
		})
	}
}

func TestCreateProposalErrors(t *testing.T) {
	ctx := context.Background()

	g, _ := newGovernor(t, governance.GovernorConfig{})
	_, err := g.CreateProposal(ctx, "alice", fingerprint(1))
	require.ErrorIs(t, err, governance.ErrNotMinted)
	require.ErrorIs(t, g.Transfer(ctx, "alice", "bob", 1), governance.ErrNotMinted)

	require.NoError(t, g.Mint(ctx, "alice", 10))
	require.ErrorIs(t, g.Mint(ctx, "bob", 10), token.ErrAlreadyMinted)
	_, err = g.CreateProposal(ctx, "bob", fingerprint(1))
	require.ErrorIs(t, err, governance.ErrUnauthorized)
	assert.Equal(t, uint64(0), g.ProposalCount())

	_, err = g.GetVote(1, "alice")
	require.ErrorIs(t, err, governance.ErrNotFound)
	_, err = g.Proposal(1)
	require.ErrorIs(t, err, governance.ErrNotFound)
}

func TestTransferErrors(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	require.ErrorIs(t, g.Transfer(ctx, "alice", "bob", 0), token.ErrZeroAmount)
	require.ErrorIs(
		t,
		g.Transfer(ctx, "alice", "bob", 26),
		token.ErrInsufficientBalance,
	)
	require.ErrorIs(t, g.Transfer(ctx, "alice", "", 1), token.ErrInvalidAccount)
	assert.Equal(t, uint64(25), g.BalanceOf("alice"))
	assert.Equal(t, uint64(40), g.BalanceOf("bob"))
	assert.Equal(t, uint64(100), g.TotalSupply())
}

func TestSelfTransfer(t *testing.T) {
	g, _ := newGovernor(t, governance.GovernorConfig{}, standardHoldings...)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(14))
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))
	require.NoError(t, g.Transfer(ctx, "alice", "alice", 25))

	assert.Equal(t, uint64(25), g.BalanceOf("alice"))
	assert.Equal(t, uint64(25), getProposal(t, g, id).Yes)
	choice, err := g.GetVote(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, governance.Yes, choice)
}

func TestInvalidVotingPeriod(t *testing.T) {
	_, err := governance.NewGovernor(governance.GovernorConfig{
		VotingPeriod: -time.Second,
	})
	require.Error(t, err)
}

func TestCustomVotingPeriod(t *testing.T) {
	g, clock := newGovernor(
		t,
		governance.GovernorConfig{VotingPeriod: time.Hour},
		standardHoldings...,
	)
	ctx := context.Background()
	id, err := g.CreateProposal(ctx, "alice", fingerprint(15))
	require.NoError(t, err)
	clock.Advance(time.Hour + time.Nanosecond)
	require.ErrorIs(
		t,
		g.Vote(ctx, "alice", id, governance.Yes),
		governance.ErrExpired,
	)
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	return testutil.RequireReceive(t, ch, time.Second, "governance event")
}

func assertNoEvent(t *testing.T, ch <-chan event.Event) {
	t.Helper()
	testutil.RequireNoReceive(t, ch, 0, "governance event")
}

func TestNotifications(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()

	channels := make(map[event.EventType]<-chan event.Event)
	for _, eventType := range governance.EventTypes {
		_, ch := bus.Subscribe(eventType)
		channels[eventType] = ch
	}
	g, clock := newGovernor(
		t,
		governance.GovernorConfig{EventBus: bus},
		standardHoldings...,
	)
	ctx := context.Background()

	evt := receive(t, channels[token.MintEventType])
	assert.Equal(t, token.MintEvent{To: treasury, Amount: 100}, evt.Data)
	for _, h := range standardHoldings {
		evt = receive(t, channels[token.TransferEventType])
		assert.Equal(
			t,
			token.TransferEvent{From: treasury, To: h.account, Amount: h.amount},
			evt.Data,
		)
	}

	id, err := g.CreateProposal(ctx, "alice", fingerprint(16))
	require.NoError(t, err)
	evt = receive(t, channels[governance.ProposalCreatedEventType])
	assert.Equal(t, governance.ProposalCreatedEventType, evt.Type)
	assert.Equal(t, clock.Now(), evt.Timestamp)
	assert.Equal(
		t,
		governance.ProposalCreatedEvent{
			ID:          id,
			Creator:     "alice",
			Fingerprint: fingerprint(16),
			CreatedAt:   startTime,
			Deadline:    startTime.Add(governance.DefaultVotingPeriod),
			Slot:        0,
		},
		evt.Data,
	)

	require.NoError(t, g.Vote(ctx, "bob", id, governance.Yes))
	evt = receive(t, channels[governance.VoteCastEventType])
	assert.Equal(
		t,
		governance.VoteCastEvent{
			ID:       id,
			Voter:    "bob",
			Previous: governance.Abstain,
			Choice:   governance.Yes,
			Weight:   40,
		},
		evt.Data,
	)

	// Rejected calls publish nothing
	require.ErrorIs(
		t,
		g.Vote(ctx, "bob", id, governance.Yes),
		governance.ErrNoOpVote,
	)
	assertNoEvent(t, channels[governance.VoteCastEventType])

	require.NoError(t, g.Transfer(ctx, "bob", "carol", 40))
	evt = receive(t, channels[token.TransferEventType])
	assert.Equal(t, token.TransferEvent{From: "bob", To: "carol", Amount: 40}, evt.Data)
	evt = receive(t, channels[governance.VoteCastEventType])
	assert.Equal(
		t,
		governance.VoteCastEvent{
			ID:       id,
			Voter:    "bob",
			Previous: governance.Yes,
			Choice:   governance.Abstain,
			Weight:   40,
			Forced:   true,
		},
		evt.Data,
	)

	require.NoError(t, g.Vote(ctx, "carol", id, governance.No))
	receive(t, channels[governance.VoteCastEventType])
	evt = receive(t, channels[governance.ProposalRejectedEventType])
	assert.Equal(
		t,
		governance.ProposalDecidedEvent{
			ID:        id,
			Status:    governance.StatusRejected,
			DecidedAt: startTime,
			Yes:       0,
			No:        75,
		},
		evt.Data,
	)

	// Fill the slots and evict the oldest
	for i := range governance.MaxActiveProposals {
		_, err := g.CreateProposal(ctx, "alice", fingerprint(byte(30+i)))
		require.NoError(t, err)
		receive(t, channels[governance.ProposalCreatedEventType])
	}
	clock.Advance(governance.DefaultVotingPeriod + time.Nanosecond)
	_, err = g.CreateProposal(ctx, "alice", fingerprint(40))
	require.NoError(t, err)
	evt = receive(t, channels[governance.ProposalExpiredEventType])
	assert.Equal(
		t,
		governance.ProposalExpiredEvent{
			ID:        2,
			ExpiredAt: clock.Now(),
			Deadline:  startTime.Add(governance.DefaultVotingPeriod),
		},
		evt.Data,
	)
	evt = receive(t, channels[governance.ProposalCreatedEventType])
	assert.Equal(t, 0, evt.Data.(governance.ProposalCreatedEvent).Slot)
	assertNoEvent(t, channels[governance.ProposalAcceptedEventType])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, _ := newGovernor(
		t,
		governance.GovernorConfig{PromRegistry: reg},
		standardHoldings...,
	)
	ctx := context.Background()

	id, err := g.CreateProposal(ctx, "alice", fingerprint(17))
	require.NoError(t, err)
	assert.Equal(t, 1.0, metricValue(t, reg, "tally_governance_proposals_created_total"))
	assert.Equal(t, 1.0, metricValue(t, reg, "tally_governance_active_proposals"))

	require.NoError(t, g.Vote(ctx, "bob", id, governance.Yes))
	require.ErrorIs(
		t,
		g.Vote(ctx, "bob", id, governance.Yes),
		governance.ErrNoOpVote,
	)
	require.NoError(t, g.Transfer(ctx, "bob", "alice", 40))
	require.NoError(t, g.Vote(ctx, "alice", id, governance.Yes))

	assert.Equal(
		t,
		1.0,
		metricValue(t, reg, "tally_governance_votes_cast_total", "forced", "true"),
	)
	assert.Equal(
		t,
		2.0,
		metricValue(t, reg, "tally_governance_votes_cast_total", "forced", "false"),
	)
	assert.Equal(
		t,
		1.0,
		metricValue(t, reg, "tally_governance_proposals_closed_total", "status", "accepted"),
	)
	assert.Equal(
		t,
		1.0,
		metricValue(t, reg, "tally_governance_rollbacks_total", "operation", "vote"),
	)
	assert.Equal(t, 0.0, metricValue(t, reg, "tally_governance_active_proposals"))
	assert.Equal(t, 100.0, metricValue(t, reg, "tally_token_total_supply"))
}
