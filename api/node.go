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

package api

import (
	"context"

	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/token"
)

// Node is the governance state the API serves. *governance.Governor
// implements it.
type Node interface {
	Minted() bool
	TotalSupply() uint64
	BalanceOf(account token.Account) uint64
	Transfer(ctx context.Context, from, to token.Account, amount uint64) error

	CreateProposal(
		ctx context.Context,
		creator token.Account,
		fingerprint governance.Fingerprint,
	) (governance.ProposalID, error)
	Vote(
		ctx context.Context,
		voter token.Account,
		id governance.ProposalID,
		choice governance.Choice,
	) error
	GetVote(id governance.ProposalID, account token.Account) (governance.Choice, error)
	Votes(id governance.ProposalID) ([]governance.Vote, error)
	Proposal(id governance.ProposalID) (governance.Proposal, error)
	Proposals() []governance.Proposal
	ActiveProposals() []governance.Proposal
	ProposalCount() uint64
}

var _ Node = (*governance.Governor)(nil)
