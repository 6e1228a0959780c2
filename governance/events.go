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

const (
	ProposalCreatedEventType  event.EventType = "governance.proposal.created"
	ProposalExpiredEventType  event.EventType = "governance.proposal.expired"
	ProposalAcceptedEventType event.EventType = "governance.proposal.accepted"
	ProposalRejectedEventType event.EventType = "governance.proposal.rejected"
	VoteCastEventType         event.EventType = "governance.vote.cast"
)

// EventTypes lists every notification type published by the Governor
var EventTypes = []event.EventType{
	ProposalCreatedEventType,
	ProposalExpiredEventType,
	ProposalAcceptedEventType,
	ProposalRejectedEventType,
	VoteCastEventType,
	token.MintEventType,
	token.TransferEventType,
}

type ProposalCreatedEvent struct {
	CreatedAt   time.Time     `json:"created_at"`
	Deadline    time.Time     `json:"deadline"`
	Creator     token.Account `json:"creator"`
	ID          ProposalID    `json:"id"`
	Slot        int           `json:"slot"`
	Fingerprint Fingerprint   `json:"fingerprint"`
}

type ProposalExpiredEvent struct {
	ExpiredAt time.Time  `json:"expired_at"`
	Deadline  time.Time  `json:"deadline"`
	ID        ProposalID `json:"id"`
	Yes       uint64     `json:"yes,string"`
	No        uint64     `json:"no,string"`
}

// ProposalDecidedEvent is published for both accepted and rejected proposals
type ProposalDecidedEvent struct {
	DecidedAt time.Time  `json:"decided_at"`
	ID        ProposalID `json:"id"`
	Yes       uint64     `json:"yes,string"`
	No        uint64     `json:"no,string"`
	Status    Status     `json:"status"`
}

type VoteCastEvent struct {
	Voter    token.Account `json:"voter"`
	ID       ProposalID    `json:"id"`
	Weight   uint64        `json:"weight,string"`
	Previous Choice        `json:"previous"`
	Choice   Choice        `json:"choice"`
	Forced   bool          `json:"forced"`
}
