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
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/token"
	"github.com/stretchr/testify/require"
)

// checkInvariants compares the governor's public state against the rules
// that must hold after every call
func checkInvariants(
	t *testing.T,
	g *governance.Governor,
	accounts []token.Account,
	now time.Time,
) {
	t.Helper()
	supply := g.TotalSupply()
	var sum uint64
	for _, account := range accounts {
		sum += g.BalanceOf(account)
	}
	require.Equal(t, supply, sum, "balances must add up to supply")

	proposals := g.Proposals()
	require.Equal(t, g.ProposalCount(), uint64(len(proposals)))
	for i, p := range proposals {
		require.Equal(t, governance.ProposalID(i+1), p.ID)
		require.LessOrEqual(t, p.Yes, supply-p.No, "tallies exceed supply")
		switch p.Status() {
		case governance.StatusPending:
			require.LessOrEqual(t, p.Yes, supply/2)
			require.LessOrEqual(t, p.No, supply/2)
		case governance.StatusAccepted:
			require.Greater(t, p.Yes, supply/2)
		case governance.StatusRejected:
			require.Greater(t, p.No, supply/2)
		}
	}

	seen := make(map[governance.ProposalID]bool)
	for _, id := range g.Slots() {
		if id == governance.NoProposal {
			continue
		}
		require.False(t, seen[id], "proposal %d holds two slots", id)
		seen[id] = true
		p, err := g.Proposal(id)
		require.NoError(t, err)
		require.Equal(t, governance.StatusPending, p.Status())
		if now.After(p.Deadline) {
			continue
		}
		// A live proposal's tallies match the balances of its voters
		var yes, no uint64
		for _, account := range accounts {
			choice, err := g.GetVote(id, account)
			require.NoError(t, err)
			switch choice {
			case governance.Yes:
				yes += g.BalanceOf(account)
			case governance.No:
				no += g.BalanceOf(account)
			}
		}
		require.Equal(t, yes, p.Yes, "yes tally of proposal %d", id)
		require.Equal(t, no, p.No, "no tally of proposal %d", id)
	}
	for _, p := range proposals {
		if p.Status() == governance.StatusPending {
			continue
		}
		require.False(t, seen[p.ID], "closed proposal %d holds a slot", p.ID)
	}
}

func TestRandomizedInvariants(t *testing.T) {
	accounts := []token.Account{"a", "b", "c", "d", "e", "f"}
	for seed := range uint64(20) {
		rng := rand.New(rand.NewPCG(seed, 0x7a11))
		holdings := make([]holding, 0, len(accounts)-1)
		for _, account := range accounts[:len(accounts)-1] {
			holdings = append(holdings, holding{account, 1 + rng.Uint64N(200)})
		}
		g, clock := newGovernor(t, governance.GovernorConfig{}, holdings...)
		allAccounts := append([]token.Account{treasury}, accounts...)
		ctx := context.Background()

		for range 400 {
			var err error
			switch op := rng.IntN(10); {
			case op < 2:
				creator := accounts[rng.IntN(len(accounts))]
				_, err = g.CreateProposal(ctx, creator, fingerprint(byte(rng.Uint32())))
			case op < 6:
				voter := accounts[rng.IntN(len(accounts))]
				id := governance.ProposalID(rng.Uint64N(g.ProposalCount() + 2))
				choice := governance.Choice(rng.IntN(3))
				err = g.Vote(ctx, voter, id, choice)
			case op < 9:
				from := accounts[rng.IntN(len(accounts))]
				to := accounts[rng.IntN(len(accounts))]
				balance := g.BalanceOf(from)
				amount := uint64(1)
				if balance > 0 {
					amount = 1 + rng.Uint64N(balance)
					// Favor emptying the account to exercise forced abstention
					if rng.IntN(3) == 0 {
						amount = balance
					}
				}
				err = g.Transfer(ctx, from, to, amount)
			default:
				clock.Advance(time.Duration(rng.Int64N(int64(30 * time.Hour))))
			}
			if errors.Is(err, governance.ErrInvariantViolation) {
				require.FailNow(t, "invariant violation", "seed %d: %s", seed, err)
			}
			checkInvariants(t, g, allAccounts, clock.Now())
		}
	}
}
