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

package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/tally/token"
)

// OnTransfer implements token.TransferHook. The ledger has already applied
// the debit and credit, so the sender's balance is the post-transfer one.
// It only runs inside a Governor call, which holds the lock.
func (g *Governor) OnTransfer(
	_ context.Context,
	from token.Account,
	to token.Account,
	amount uint64,
	at time.Time,
) error {
	j := g.active
	if j == nil {
		return invariantf(NoProposal, "transfer observed outside a governor call")
	}
	// Deciding a proposal vacates its slot, so walk a copy
	slots := g.store.slots
	for _, id := range slots {
		if id == NoProposal {
			continue
		}
		p, ok := g.store.get(id)
		if !ok {
			return invariantf(id, "active slot refers to unknown proposal")
		}
		if !p.pending() {
			return invariantf(id, "active slot holds %s proposal", p.state.Status())
		}
		// Tallies of a proposal past its deadline stay frozen until eviction
		if !p.live(at) {
			continue
		}
		if err := g.reweigh(j, p, from, to, amount, at); err != nil {
			return err
		}
	}
	return nil
}

func (g *Governor) reweigh(
	j *journal,
	p *proposal,
	from token.Account,
	to token.Account,
	amount uint64,
	at time.Time,
) error {
	senderChoice := p.votes.choice(from)
	if senderChoice != Abstain && g.ledger.BalanceOf(from) == 0 {
		// The whole pre-transfer balance was amount
		if err := g.forceAbstain(j, p, from, senderChoice, amount, at); err != nil {
			return err
		}
		senderChoice = Abstain
	}
	recipientChoice := p.votes.choice(to)
	if senderChoice == recipientChoice {
		return nil
	}
	return g.applyVoteChange(j, p, from, senderChoice, recipientChoice, amount, at)
}

func (g *Governor) forceAbstain(
	j *journal,
	p *proposal,
	account token.Account,
	previous Choice,
	weight uint64,
	at time.Time,
) error {
	p.votes.set(j, p.id, account, voteRecord{
		choice:    Abstain,
		forced:    true,
		changedAt: at,
	})
	j.emit(VoteCastEventType, VoteCastEvent{
		ID:       p.id,
		Voter:    account,
		Previous: previous,
		Choice:   Abstain,
		Weight:   weight,
		Forced:   true,
	})
	g.logger.Debug(
		fmt.Sprintf(
			"vote of %s on proposal %d reset to abstain after emptying balance",
			account,
			p.id,
		),
	)
	return g.applyVoteChange(j, p, account, previous, Abstain, weight, at)
}
