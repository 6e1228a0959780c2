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
	"fmt"
	"math"
	"time"

	"github.com/blinklabs-io/tally/token"
)

// applyVoteChange moves weight from the old choice's bucket to the new
// choice's bucket and checks whether the side that gained has won
func (g *Governor) applyVoteChange(
	j *journal,
	p *proposal,
	voter token.Account,
	oldChoice Choice,
	newChoice Choice,
	weight uint64,
	at time.Time,
) error {
	if !p.pending() {
		return invariantf(
			p.id,
			"vote change for %s on %s proposal",
			voter,
			p.state.Status(),
		)
	}
	if oldChoice == newChoice || weight == 0 {
		return nil
	}
	if oldChoice != Abstain {
		current := p.tally(oldChoice)
		if current < weight {
			return invariantf(
				p.id,
				"%s tally %d underflows removing %d for %s",
				oldChoice,
				current,
				weight,
				voter,
			)
		}
		p.setTally(j, oldChoice, current-weight)
	}
	if newChoice == Abstain {
		return nil
	}
	current := p.tally(newChoice)
	if current > math.MaxUint64-weight {
		return invariantf(
			p.id,
			"%s tally %d overflows adding %d for %s",
			newChoice,
			current,
			weight,
			voter,
		)
	}
	p.setTally(j, newChoice, current+weight)
	if supply := g.ledger.TotalSupply(); p.yes > supply || p.no > supply-p.yes {
		return invariantf(
			p.id,
			"tallies %d/%d exceed total supply %d",
			p.yes,
			p.no,
			supply,
		)
	}
	return g.evaluateDecision(j, p, newChoice, at)
}

// evaluateDecision closes the proposal when side holds a strict majority of
// the total supply
func (g *Governor) evaluateDecision(
	j *journal,
	p *proposal,
	side Choice,
	at time.Time,
) error {
	tally := p.tally(side)
	if tally <= g.ledger.TotalSupply()/2 {
		return nil
	}
	if tally == 0 {
		return invariantf(p.id, "decision with zero %s weight", side)
	}
	if other := p.tally(side.opposite()); tally <= other {
		return invariantf(
			p.id,
			"%s majority %d does not exceed %s tally %d",
			side,
			tally,
			side.opposite(),
			other,
		)
	}
	var (
		to        State
		eventType = ProposalAcceptedEventType
	)
	switch side {
	case Yes:
		to = Accepted{DecidedAt: at}
	case No:
		to = Rejected{DecidedAt: at}
		eventType = ProposalRejectedEventType
	default:
		return invariantf(p.id, "decision for %s", side)
	}
	if err := p.setState(j, to); err != nil {
		return err
	}
	if err := g.releaseSlot(j, p.id); err != nil {
		return err
	}
	j.emit(eventType, ProposalDecidedEvent{
		ID:        p.id,
		Status:    to.Status(),
		DecidedAt: at,
		Yes:       p.yes,
		No:        p.no,
	})
	g.logger.Info(
		fmt.Sprintf(
			"proposal %d %s with %d yes / %d no",
			p.id,
			to.Status(),
			p.yes,
			p.no,
		),
	)
	return nil
}

func (g *Governor) releaseSlot(j *journal, id ProposalID) error {
	idx, ok := g.store.slotOf(id)
	if !ok {
		return invariantf(id, "closing proposal does not hold a slot")
	}
	g.store.setSlot(j, idx, NoProposal)
	return nil
}
