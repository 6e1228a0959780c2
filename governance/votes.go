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
	"slices"
	"strings"
	"time"

	"github.com/blinklabs-io/tally/token"
)

// Vote is an explicit vote record. Accounts without a record abstain.
type Vote struct {
	ChangedAt time.Time
	Account   token.Account
	Choice    Choice
	// Forced is set when the choice was reset to Abstain because the
	// account transferred away its whole balance
	Forced bool
}

type voteRecord struct {
	changedAt time.Time
	choice    Choice
	forced    bool
}

// voteLedger maps accounts to their choice on one proposal. Lookups never
// create entries; a missing entry reads as Abstain.
type voteLedger struct {
	records map[token.Account]voteRecord
}

func newVoteLedger() *voteLedger {
	return &voteLedger{
		records: make(map[token.Account]voteRecord),
	}
}

func (v *voteLedger) choice(account token.Account) Choice {
	return v.records[account].choice
}

func (v *voteLedger) set(
	j *journal,
	id ProposalID,
	account token.Account,
	rec voteRecord,
) {
	prev, existed := v.records[account]
	v.records[account] = rec
	j.touchVote(id, account)
	j.record(func() {
		if existed {
			v.records[account] = prev
		} else {
			delete(v.records, account)
		}
	})
}

func (v *voteLedger) get(account token.Account) (Vote, bool) {
	rec, ok := v.records[account]
	if !ok {
		return Vote{}, false
	}
	return Vote{
		Account:   account,
		Choice:    rec.choice,
		Forced:    rec.forced,
		ChangedAt: rec.changedAt,
	}, true
}

// list returns the explicit records ordered by account
func (v *voteLedger) list() []Vote {
	ret := make([]Vote, 0, len(v.records))
	for account := range v.records {
		vote, _ := v.get(account)
		ret = append(ret, vote)
	}
	slices.SortFunc(ret, func(a, b Vote) int {
		return strings.Compare(string(a.Account), string(b.Account))
	})
	return ret
}
