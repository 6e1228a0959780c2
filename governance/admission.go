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
	"time"

	"github.com/blinklabs-io/tally/token"
)

// admit finds a slot for a new proposal. When every slot is taken only
// slot 0 is considered for expiry, even if a later slot has passed its
// deadline.
func (g *Governor) admit(j *journal, at time.Time) (int, error) {
	if idx, ok := g.store.freeSlot(); ok {
		return idx, nil
	}
	oldest, ok := g.store.get(g.store.slots[0])
	if !ok {
		return 0, invariantf(g.store.slots[0], "slot 0 refers to unknown proposal")
	}
	if oldest.live(at) {
		return 0, ErrCapacityReached
	}
	if err := oldest.setState(j, Expired{ExpiredAt: at}); err != nil {
		return 0, err
	}
	g.store.setSlot(j, 0, NoProposal)
	j.emit(ProposalExpiredEventType, ProposalExpiredEvent{
		ID:        oldest.id,
		ExpiredAt: at,
		Deadline:  oldest.deadline,
		Yes:       oldest.yes,
		No:        oldest.no,
	})
	g.logger.Info(
		fmt.Sprintf("proposal %d expired undecided", oldest.id),
	)
	return 0, nil
}

func (g *Governor) createProposal(
	j *journal,
	creator token.Account,
	fingerprint Fingerprint,
) (ProposalID, error) {
	if !g.ledger.Minted() {
		return NoProposal, ErrNotMinted
	}
	if g.ledger.BalanceOf(creator) == 0 {
		return NoProposal, fmt.Errorf("%w: %s", ErrUnauthorized, creator)
	}
	at := j.at
	idx, err := g.admit(j, at)
	if err != nil {
		return NoProposal, err
	}
	p := &proposal{
		id:          g.store.nextID(),
		fingerprint: fingerprint,
		creator:     creator,
		createdAt:   at,
		deadline:    at.Add(g.votingPeriod),
		state:       Pending{},
		votes:       newVoteLedger(),
	}
	g.store.append(j, p)
	g.store.setSlot(j, idx, p.id)
	j.emit(ProposalCreatedEventType, ProposalCreatedEvent{
		ID:          p.id,
		Creator:     creator,
		Fingerprint: fingerprint,
		CreatedAt:   at,
		Deadline:    p.deadline,
		Slot:        idx,
	})
	g.logger.Info(
		fmt.Sprintf(
			"proposal %d created by %s in slot %d",
			p.id,
			creator,
			idx,
		),
		"deadline", p.deadline,
	)
	return p.id, nil
}
