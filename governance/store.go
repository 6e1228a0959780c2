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
	"time"

	"github.com/blinklabs-io/tally/token"
)

// Proposal is a read-only copy of a proposal's state
type Proposal struct {
	CreatedAt   time.Time
	Deadline    time.Time
	State       State
	Creator     token.Account
	ID          ProposalID
	Yes         uint64
	No          uint64
	Fingerprint Fingerprint
}

// Status returns the flat status of the proposal's state
func (p Proposal) Status() Status {
	return p.State.Status()
}

type proposal struct {
	createdAt   time.Time
	deadline    time.Time
	state       State
	votes       *voteLedger
	creator     token.Account
	id          ProposalID
	yes         uint64
	no          uint64
	fingerprint Fingerprint
}

func (p *proposal) pending() bool {
	_, ok := p.state.(Pending)
	return ok
}

// live reports whether the voting period still includes at
func (p *proposal) live(at time.Time) bool {
	return !at.After(p.deadline)
}

func (p *proposal) tally(side Choice) uint64 {
	switch side {
	case Yes:
		return p.yes
	case No:
		return p.no
	default:
		return 0
	}
}

func (p *proposal) setTally(j *journal, side Choice, value uint64) {
	var field *uint64
	switch side {
	case Yes:
		field = &p.yes
	case No:
		field = &p.no
	default:
		return
	}
	prev := *field
	*field = value
	j.touchProposal(p.id)
	j.record(func() { *field = prev })
}

func (p *proposal) setState(j *journal, to State) error {
	if err := transition(p.id, p.state, to); err != nil {
		return err
	}
	prev := p.state
	p.state = to
	j.touchProposal(p.id)
	j.record(func() { p.state = prev })
	return nil
}

func (p *proposal) view() Proposal {
	return Proposal{
		ID:          p.id,
		Fingerprint: p.fingerprint,
		Creator:     p.creator,
		CreatedAt:   p.createdAt,
		Deadline:    p.deadline,
		Yes:         p.yes,
		No:          p.no,
		State:       p.state,
	}
}

// proposalStore is the append-only proposal log plus the active slots. An
// occupied slot always refers to a pending proposal.
type proposalStore struct {
	log   []*proposal
	slots [MaxActiveProposals]ProposalID
}

func (s *proposalStore) get(id ProposalID) (*proposal, bool) {
	if id == NoProposal || uint64(id) > uint64(len(s.log)) {
		return nil, false
	}
	return s.log[id-1], true
}

func (s *proposalStore) count() uint64 {
	return uint64(len(s.log))
}

func (s *proposalStore) nextID() ProposalID {
	return ProposalID(len(s.log) + 1)
}

func (s *proposalStore) append(j *journal, p *proposal) {
	s.log = append(s.log, p)
	j.touchProposal(p.id)
	j.record(func() {
		s.log[len(s.log)-1] = nil
		s.log = s.log[:len(s.log)-1]
	})
}

// freeSlot returns the lowest empty slot index
func (s *proposalStore) freeSlot() (int, bool) {
	for i, id := range s.slots {
		if id == NoProposal {
			return i, true
		}
	}
	return 0, false
}

func (s *proposalStore) slotOf(id ProposalID) (int, bool) {
	for i, slotId := range s.slots {
		if slotId == id {
			return i, true
		}
	}
	return 0, false
}

func (s *proposalStore) setSlot(j *journal, idx int, id ProposalID) {
	prev := s.slots[idx]
	s.slots[idx] = id
	j.slots = true
	j.record(func() { s.slots[idx] = prev })
}

func (s *proposalStore) occupied() int {
	var ret int
	for _, id := range s.slots {
		if id != NoProposal {
			ret++
		}
	}
	return ret
}
