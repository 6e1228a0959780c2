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
	"time"

	"github.com/blinklabs-io/tally/governance"
)

type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type SupplyResponse struct {
	Total  string `json:"total"`
	Minted bool   `json:"minted"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

// TransferRequest is the body of POST /api/v1/transfers. Amount is a
// decimal string.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type ProposalResponse struct {
	ClosedAt    *int64 `json:"closed_at"`
	Fingerprint string `json:"fingerprint"`
	Creator     string `json:"creator"`
	Status      string `json:"status"`
	Yes         string `json:"yes"`
	No          string `json:"no"`
	ID          uint64 `json:"id"`
	CreatedAt   int64  `json:"created_at"`
	Deadline    int64  `json:"deadline"`
}

type ProposalCountResponse struct {
	Count uint64 `json:"count"`
}

// CreateProposalRequest is the body of POST /api/v1/proposals. Fingerprint
// is hex encoded.
type CreateProposalRequest struct {
	Creator     string `json:"creator"`
	Fingerprint string `json:"fingerprint"`
}

type CreateProposalResponse struct {
	ID uint64 `json:"id"`
}

type VoteRequest struct {
	Voter  string `json:"voter"`
	Choice string `json:"choice"`
}

type VoteResponse struct {
	ChangedAt  *int64 `json:"changed_at"`
	Account    string `json:"account"`
	Choice     string `json:"choice"`
	ProposalID uint64 `json:"proposal_id"`
	Forced     bool   `json:"forced"`
}

type EventResponse struct {
	Data      any    `json:"data"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func unixOrNil(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ret := t.Unix()
	return &ret
}

// NewProposalResponse converts a proposal to its wire form
func NewProposalResponse(p governance.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:          uint64(p.ID),
		Fingerprint: p.Fingerprint.String(),
		Creator:     string(p.Creator),
		Status:      p.Status().String(),
		CreatedAt:   p.CreatedAt.Unix(),
		Deadline:    p.Deadline.Unix(),
		ClosedAt:    unixOrNil(p.State.ClosedAt()),
		Yes:         formatAmount(p.Yes),
		No:          formatAmount(p.No),
	}
}
