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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/tally/database/models"
	"github.com/blinklabs-io/tally/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetProposal returns the proposal with the given ID, or nil if there is none
func (s *Store) GetProposal(id uint64, txn types.Txn) (*models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Proposal
	result := db.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetProposals returns every stored proposal ordered by ID
func (s *Store) GetProposals(txn types.Txn) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	if result := db.Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposal inserts a proposal or updates its mutable columns
func (s *Store) SetProposal(p *models.Proposal, txn types.Txn) error {
	if p == nil {
		return errors.New("nil proposal")
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"status", "closed", "yes", "no"},
		),
	}).Create(p)
	return result.Error
}

// GetProposalVotes returns the explicit vote records for a proposal ordered
// by account
func (s *Store) GetProposalVotes(
	proposalId uint64,
	txn types.Txn,
) ([]models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalVote
	result := db.Where("proposal_id = ?", proposalId).
		Order("account ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetVotes returns every vote record ordered by proposal and account
func (s *Store) GetVotes(txn types.Txn) ([]models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalVote
	result := db.Order("proposal_id ASC").Order("account ASC").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposalVote records an account's choice, replacing any earlier record
// for the same proposal
func (s *Store) SetProposalVote(v *models.ProposalVote, txn types.Txn) error {
	if v == nil {
		return errors.New("nil vote")
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "account"},
		},
		DoUpdates: clause.AssignmentColumns(
			[]string{"choice", "forced", "changed"},
		),
	}).Create(v)
	return result.Error
}
