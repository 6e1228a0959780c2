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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/internal/version"
	"github.com/blinklabs-io/tally/token"
)

const maxRequestBodySize = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusForError maps governance and ledger errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, governance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrNotPending),
		errors.Is(err, governance.ErrExpired),
		errors.Is(err, governance.ErrNoOpVote),
		errors.Is(err, governance.ErrCapacityReached),
		errors.Is(err, governance.ErrNotMinted),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrAlreadyMinted):
		return http.StatusConflict
	case errors.Is(err, governance.ErrInvalidChoice),
		errors.Is(err, token.ErrInvalidAccount),
		errors.Is(err, token.ErrZeroAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeNodeError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			fmt.Sprintf("failed to %s", op),
			"error", err,
		)
		writeError(w, status, fmt.Sprintf("failed to %s", op))
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func proposalID(w http.ResponseWriter, r *http.Request) (governance.ProposalID, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return governance.NoProposal, false
	}
	return governance.ProposalID(id), true
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "tally",
		Version: version.GetVersionString(),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

func (a *API) handleSupply(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SupplyResponse{
		Total:  formatAmount(a.node.TotalSupply()),
		Minted: a.node.Minted(),
	})
}

func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := token.Account(r.PathValue("account"))
	if !account.Valid() {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: string(account),
		Balance: formatAmount(a.node.BalanceOf(account)),
	})
}

func (a *API) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	err = a.node.Transfer(
		r.Context(),
		token.Account(req.From),
		token.Account(req.To),
		amount,
	)
	if err != nil {
		a.writeNodeError(w, "transfer tokens", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: req.From,
		Balance: formatAmount(a.node.BalanceOf(token.Account(req.From))),
	})
}

func (a *API) writeProposals(
	w http.ResponseWriter,
	r *http.Request,
	proposals []governance.Proposal,
) {
	params, err := ParsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := paginate(w, proposals, params)
	ret := make([]ProposalResponse, 0, len(page))
	for _, p := range page {
		ret = append(ret, NewProposalResponse(p))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleProposals(w http.ResponseWriter, r *http.Request) {
	a.writeProposals(w, r, a.node.Proposals())
}

func (a *API) handleActiveProposals(w http.ResponseWriter, r *http.Request) {
	a.writeProposals(w, r, a.node.ActiveProposals())
}

func (a *API) handleProposalCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ProposalCountResponse{
		Count: a.node.ProposalCount(),
	})
}

func (a *API) handleProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	p, err := a.node.Proposal(id)
	if err != nil {
		a.writeNodeError(w, "get proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, NewProposalResponse(p))
}

func (a *API) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fingerprint, err := governance.ParseFingerprint(req.Fingerprint)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := a.node.CreateProposal(
		r.Context(),
		token.Account(req.Creator),
		fingerprint,
	)
	if err != nil {
		a.writeNodeError(w, "create proposal", err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/proposals/%d", id))
	writeJSON(w, http.StatusCreated, CreateProposalResponse{ID: uint64(id)})
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	choice, err := governance.ParseChoice(req.Choice)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	voter := token.Account(req.Voter)
	if err := a.node.Vote(r.Context(), voter, id, choice); err != nil {
		a.writeNodeError(w, "record vote", err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResponse{
		ProposalID: uint64(id),
		Account:    req.Voter,
		Choice:     choice.String(),
	})
}

func (a *API) handleVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	params, err := ParsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	votes, err := a.node.Votes(id)
	if err != nil {
		a.writeNodeError(w, "list votes", err)
		return
	}
	page := paginate(w, votes, params)
	ret := make([]VoteResponse, 0, len(page))
	for _, vote := range page {
		ret = append(ret, VoteResponse{
			ProposalID: uint64(id),
			Account:    string(vote.Account),
			Choice:     vote.Choice.String(),
			Forced:     vote.Forced,
			ChangedAt:  unixOrNil(vote.ChangedAt),
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

func (a *API) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(w, r)
	if !ok {
		return
	}
	account := r.PathValue("account")
	choice, err := a.node.GetVote(id, token.Account(account))
	if err != nil {
		a.writeNodeError(w, "get vote", err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResponse{
		ProposalID: uint64(id),
		Account:    account,
		Choice:     choice.String(),
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := paginate(w, a.events.list(), params)
	ret := make([]EventResponse, 0, len(page))
	for _, evt := range page {
		ret = append(ret, EventResponse{
			Type:      string(evt.Type),
			Timestamp: evt.Timestamp.Unix(),
			Data:      evt.Data,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}
