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

package database

import (
	"fmt"

	"github.com/blinklabs-io/tally/database/models"
)

// GetProposal returns a stored proposal, or nil if there is none with that ID
func (d *Database) GetProposal(id uint64, txn *Txn) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(id, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposal %d: %w", id, err)
	}
	return ret, nil
}

// GetProposals returns all stored proposals ordered by ID
func (d *Database) GetProposals(txn *Txn) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposals(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposals: %w", err)
	}
	return ret, nil
}

// SetProposal creates or updates a proposal
func (d *Database) SetProposal(p *models.Proposal, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetProposal(p, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set proposal %d: %w", p.ID, err)
	}
	return nil
}

// GetProposalVotes returns the explicit vote records of one proposal
func (d *Database) GetProposalVotes(
	proposalId uint64,
	txn *Txn,
) ([]models.ProposalVote, error) {
	var ret []models.ProposalVote
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposalVotes(proposalId, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get votes for proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// GetVotes returns every vote record
func (d *Database) GetVotes(txn *Txn) ([]models.ProposalVote, error) {
	var ret []models.ProposalVote
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVotes(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get votes: %w", err)
	}
	return ret, nil
}

// SetProposalVote creates or replaces an account's vote record
func (d *Database) SetProposalVote(v *models.ProposalVote, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetProposalVote(v, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf(
			"set vote of %s on proposal %d: %w",
			v.Account,
			v.ProposalID,
			err,
		)
	}
	return nil
}
