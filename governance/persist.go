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
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/blinklabs-io/tally/database"
	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"github.com/blinklabs-io/tally/token"
)

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func (p *proposal) model() *models.Proposal {
	return &models.Proposal{
		ID:          uint64(p.id),
		Fingerprint: p.fingerprint[:],
		Creator:     string(p.creator),
		Status:      uint8(p.state.Status()),
		Created:     unixNano(p.createdAt),
		Deadline:    unixNano(p.deadline),
		Closed:      unixNano(p.state.ClosedAt()),
		Yes:         types.Uint64(p.yes),
		No:          types.Uint64(p.no),
	}
}

// persist writes everything the call touched in one database transaction
func (g *Governor) persist(j *journal) error {
	if g.db == nil || j.empty() {
		return nil
	}
	txn := g.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		for _, id := range slices.Sorted(maps.Keys(j.proposals)) {
			p, ok := g.store.get(id)
			if !ok {
				return invariantf(id, "touched proposal missing from log")
			}
			if err := g.db.SetProposal(p.model(), txn); err != nil {
				return err
			}
		}
		keys := slices.SortedFunc(maps.Keys(j.votes), func(a, b voteKey) int {
			return cmp.Or(
				cmp.Compare(a.proposal, b.proposal),
				cmp.Compare(a.account, b.account),
			)
		})
		for _, key := range keys {
			p, ok := g.store.get(key.proposal)
			if !ok {
				return invariantf(key.proposal, "vote on proposal missing from log")
			}
			rec, ok := p.votes.records[key.account]
			if !ok {
				continue
			}
			err := g.db.SetProposalVote(&models.ProposalVote{
				ProposalID: uint64(key.proposal),
				Account:    string(key.account),
				Choice:     uint8(rec.choice),
				Forced:     rec.forced,
				Changed:    unixNano(rec.changedAt),
			}, txn)
			if err != nil {
				return err
			}
		}
		if j.slots {
			slots := make([]uint64, 0, len(g.store.slots))
			for _, id := range g.store.slots {
				slots = append(slots, uint64(id))
			}
			if err := g.db.SetActiveSlots(slots, txn); err != nil {
				return err
			}
		}
		for _, account := range slices.Sorted(maps.Keys(j.accounts)) {
			if err := g.db.SetBalance(string(account), g.ledger.BalanceOf(account), txn); err != nil {
				return err
			}
		}
		if j.supply {
			if err := g.db.SetSupply(g.ledger.TotalSupply(), txn); err != nil {
				return err
			}
		}
		return nil
	})
}

// load rebuilds the ledger and proposal state from the database
func (g *Governor) load() error {
	supply, minted, err := g.db.GetSupply(nil)
	if err != nil {
		return err
	}
	if minted {
		stored, err := g.db.GetBalances(nil)
		if err != nil {
			return err
		}
		balances := make(map[token.Account]uint64, len(stored))
		for account, balance := range stored {
			balances[token.Account(account)] = balance
		}
		if err := g.ledger.Load(balances, supply); err != nil {
			return fmt.Errorf("load balances: %w", err)
		}
	}
	proposals, err := g.db.GetProposals(nil)
	if err != nil {
		return err
	}
	for i, row := range proposals {
		if row.ID != uint64(i+1) {
			return fmt.Errorf("proposal log has a gap at %d (found %d)", i+1, row.ID)
		}
		if len(row.Fingerprint) != FingerprintSize {
			return fmt.Errorf("proposal %d: bad fingerprint length %d", row.ID, len(row.Fingerprint))
		}
		state, err := stateFor(Status(row.Status), fromUnixNano(row.Closed))
		if err != nil {
			return fmt.Errorf("proposal %d: %w", row.ID, err)
		}
		p := &proposal{
			id:        ProposalID(row.ID),
			creator:   token.Account(row.Creator),
			createdAt: fromUnixNano(row.Created),
			deadline:  fromUnixNano(row.Deadline),
			yes:       uint64(row.Yes),
			no:        uint64(row.No),
			state:     state,
			votes:     newVoteLedger(),
		}
		copy(p.fingerprint[:], row.Fingerprint)
		g.store.log = append(g.store.log, p)
	}
	votes, err := g.db.GetVotes(nil)
	if err != nil {
		return err
	}
	for _, row := range votes {
		p, ok := g.store.get(ProposalID(row.ProposalID))
		if !ok {
			return fmt.Errorf("vote of %s refers to unknown proposal %d", row.Account, row.ProposalID)
		}
		choice := Choice(row.Choice)
		if !choice.Valid() {
			return fmt.Errorf("vote of %s on proposal %d: %w", row.Account, row.ProposalID, ErrInvalidChoice)
		}
		p.votes.records[token.Account(row.Account)] = voteRecord{
			choice:    choice,
			forced:    row.Forced,
			changedAt: fromUnixNano(row.Changed),
		}
	}
	slots, err := g.db.GetActiveSlots(nil)
	if err != nil {
		return err
	}
	if slots != nil && len(slots) != MaxActiveProposals {
		return fmt.Errorf("stored slot array has %d entries", len(slots))
	}
	for i, raw := range slots {
		id := ProposalID(raw)
		if id != NoProposal {
			p, ok := g.store.get(id)
			if !ok || !p.pending() {
				return fmt.Errorf("slot %d refers to proposal %d which is not pending", i, id)
			}
		}
		g.store.slots[i] = id
	}
	return nil
}
