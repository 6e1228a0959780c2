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

package models

import "github.com/blinklabs-io/tally/database/types"

// Proposal is the persisted form of a governance proposal. Times are unix
// nanoseconds and Closed is zero while the proposal is pending.
type Proposal struct {
	ID          uint64       `gorm:"primarykey;autoIncrement:false"`
	Fingerprint []byte       `gorm:"size:32;not null"`
	Creator     string       `gorm:"size:128;index;not null"`
	Status      uint8        `gorm:"index;not null"`
	Created     int64        `gorm:"not null"`
	Deadline    int64        `gorm:"index;not null"`
	Closed      int64        `gorm:"not null"`
	Yes         types.Uint64 `gorm:"not null"`
	No          types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// ProposalVote is an explicit vote record. An account without a record
// counts as abstaining.
type ProposalVote struct {
	ID         uint   `gorm:"primarykey"`
	ProposalID uint64 `gorm:"index:idx_proposal_vote_proposal;uniqueIndex:idx_proposal_vote_unique,priority:1;not null"`
	Account    string `gorm:"uniqueIndex:idx_proposal_vote_unique,priority:2;size:128;not null"`
	Choice     uint8  `gorm:"not null"` // 0=Abstain, 1=Yes, 2=No
	Forced     bool   `gorm:"not null"`
	Changed    int64  `gorm:"not null"`
}

// TableName returns the table name
func (ProposalVote) TableName() string {
	return "proposal_vote"
}
