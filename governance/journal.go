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

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/token"
)

type voteKey struct {
	account  token.Account
	proposal ProposalID
}

// journal collects the undo steps, pending notifications and touched
// records of a single Governor call
type journal struct {
	undo      []func()
	events    []event.Event
	proposals map[ProposalID]struct{}
	votes     map[voteKey]struct{}
	accounts  map[token.Account]struct{}
	at        time.Time
	slots     bool
	supply    bool
}

func newJournal(at time.Time) *journal {
	return &journal{
		at:        at,
		proposals: make(map[ProposalID]struct{}),
		votes:     make(map[voteKey]struct{}),
		accounts:  make(map[token.Account]struct{}),
	}
}

// record registers a step that undoes a mutation just made
func (j *journal) record(undo func()) {
	j.undo = append(j.undo, undo)
}

// emit queues a notification for publishing after commit
func (j *journal) emit(eventType event.EventType, data any) {
	evt := event.NewEvent(eventType, data)
	evt.Timestamp = j.at
	j.events = append(j.events, evt)
}

func (j *journal) touchProposal(id ProposalID) {
	j.proposals[id] = struct{}{}
}

func (j *journal) touchVote(id ProposalID, account token.Account) {
	j.votes[voteKey{proposal: id, account: account}] = struct{}{}
}

func (j *journal) touchAccount(account token.Account) {
	j.accounts[account] = struct{}{}
}

// revert undoes every recorded mutation, newest first
func (j *journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.events = nil
}

func (j *journal) empty() bool {
	return len(j.proposals) == 0 &&
		len(j.votes) == 0 &&
		len(j.accounts) == 0 &&
		!j.slots &&
		!j.supply
}
