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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
	"github.com/blinklabs-io/tally/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFingerprint = strings.Repeat("ab", governance.FingerprintSize)

func newTestGovernor(t *testing.T, bus *event.EventBus) *governance.Governor {
	t.Helper()
	now := time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC)
	g, err := governance.NewGovernor(governance.GovernorConfig{
		EventBus: bus,
		Clock:    func() time.Time { return now },
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, g.Mint(ctx, "alice", 100))
	require.NoError(t, g.Transfer(ctx, "alice", "bob", 40))
	require.NoError(t, g.Transfer(ctx, "alice", "carol", 35))
	return g
}

func newTestAPI(node Node, bus *event.EventBus) *API {
	return New(
		APIConfig{ListenAddress: "127.0.0.1:0"},
		node,
		bus,
		nil,
	)
}

func doRequest(
	t *testing.T,
	h http.Handler,
	method string,
	path string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ret))
	return ret
}

func TestStartStop(t *testing.T) {
	a := newTestAPI(newTestGovernor(t, nil), nil)
	require.NoError(t, a.Start(t.Context()))
	require.NotNil(t, a.Addr())

	resp, err := http.Get("http://" + a.Addr().String() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	err = a.Start(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx))
	assert.Nil(t, a.Addr())
	// Stopping twice is harmless
	require.NoError(t, a.Stop(stopCtx))
}

func TestRootAndHealth(t *testing.T) {
	h := newTestAPI(newTestGovernor(t, nil), nil).Handler()

	rec := doRequest(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "tally", decode[RootResponse](t, rec).Name)

	rec = doRequest(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[HealthResponse](t, rec).IsHealthy)

	rec = doRequest(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupplyAndTransfer(t *testing.T) {
	h := newTestAPI(newTestGovernor(t, nil), nil).Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/v1/supply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, SupplyResponse{Total: "100", Minted: true}, decode[SupplyResponse](t, rec))

	rec = doRequest(t, h, http.MethodPost, "/api/v1/transfers", TransferRequest{
		From:   "bob",
		To:     "dave",
		Amount: "15",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "25", decode[BalanceResponse](t, rec).Balance)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/accounts/dave/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(
		t,
		BalanceResponse{Account: "dave", Balance: "15"},
		decode[BalanceResponse](t, rec),
	)
}

func TestProposalFlow(t *testing.T) {
	h := newTestAPI(newTestGovernor(t, nil), nil).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/v1/proposals", CreateProposalRequest{
		Creator:     "alice",
		Fingerprint: testFingerprint,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/proposals/1", rec.Header().Get("Location"))
	assert.Equal(t, uint64(1), decode[CreateProposalResponse](t, rec).ID)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:  "bob",
		Choice: "yes",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yes", decode[VoteResponse](t, rec).Choice)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[[]ProposalResponse](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, "pending", active[0].Status)
	assert.Equal(t, "40", active[0].Yes)
	assert.Equal(t, testFingerprint, active[0].Fingerprint)
	assert.Nil(t, active[0].ClosedAt)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:  "carol",
		Choice: "Yes",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[ProposalResponse](t, rec)
	assert.Equal(t, "accepted", p.Status)
	assert.Equal(t, "75", p.Yes)
	require.NotNil(t, p.ClosedAt)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ProposalResponse](t, rec))

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), decode[ProposalCountResponse](t, rec).Count)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/1/votes/carol", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "yes", decode[VoteResponse](t, rec).Choice)
	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/1/votes/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abstain", decode[VoteResponse](t, rec).Choice)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals/1/votes?order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Pagination-Count-Total"))
	votes := decode[[]VoteResponse](t, rec)
	require.Len(t, votes, 2)
	assert.Equal(t, "carol", votes[0].Account)
	assert.Equal(t, "bob", votes[1].Account)
	assert.NotNil(t, votes[0].ChangedAt)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/proposals?count=1&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Pagination-Page-Total"))
	assert.Empty(t, decode[[]ProposalResponse](t, rec))
}

func TestRequestErrors(t *testing.T) {
	g := newTestGovernor(t, nil)
	h := newTestAPI(g, nil).Handler()
	ctx := context.Background()
	for i := range governance.MaxActiveProposals {
		_, err := g.CreateProposal(ctx, "alice", governance.Fingerprint{byte(i)})
		require.NoError(t, err)
	}

	testDefs := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad proposal id", http.MethodGet, "/api/v1/proposals/abc", nil, http.StatusBadRequest},
		{"unknown proposal", http.MethodGet, "/api/v1/proposals/42", nil, http.StatusNotFound},
		{"unknown proposal vote", http.MethodGet, "/api/v1/proposals/42/votes/bob", nil, http.StatusNotFound},
		{"bad pagination", http.MethodGet, "/api/v1/proposals?order=sideways", nil, http.StatusBadRequest},
		{
			"unknown field",
			http.MethodPost,
			"/api/v1/transfers",
			map[string]string{"from": "bob", "amount": "1", "memo": "x"},
			http.StatusBadRequest,
		},
		{"bad amount", http.MethodPost, "/api/v1/transfers", TransferRequest{From: "bob", To: "carol", Amount: "-1"}, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/api/v1/transfers", TransferRequest{From: "bob", To: "carol", Amount: "0"}, http.StatusBadRequest},
		{"overdraft", http.MethodPost, "/api/v1/transfers", TransferRequest{From: "bob", To: "carol", Amount: "41"}, http.StatusConflict},
		{"bad fingerprint", http.MethodPost, "/api/v1/proposals", CreateProposalRequest{Creator: "bob", Fingerprint: "abcd"}, http.StatusBadRequest},
		{"non-holder proposal", http.MethodPost, "/api/v1/proposals", CreateProposalRequest{Creator: "zed", Fingerprint: testFingerprint}, http.StatusForbidden},
		{"capacity", http.MethodPost, "/api/v1/proposals", CreateProposalRequest{Creator: "bob", Fingerprint: testFingerprint}, http.StatusConflict},
		{"bad choice", http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{Voter: "bob", Choice: "maybe"}, http.StatusBadRequest},
		{"non-holder vote", http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{Voter: "zed", Choice: "yes"}, http.StatusForbidden},
		{"no-op vote", http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{Voter: "bob", Choice: "abstain"}, http.StatusConflict},
		{"wrong method", http.MethodDelete, "/api/v1/proposals/1", nil, http.StatusMethodNotAllowed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			rec := doRequest(t, h, testDef.method, testDef.path, testDef.body)
			require.Equal(t, testDef.status, rec.Code, rec.Body.String())
			if testDef.status == http.StatusMethodNotAllowed {
				return
			}
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, testDef.status, resp.StatusCode)
			assert.Equal(t, http.StatusText(testDef.status), resp.Error)
		})
	}
}

func TestStatusForError(t *testing.T) {
	testDefs := []struct {
		err    error
		status int
	}{
		{governance.ErrNotFound, http.StatusNotFound},
		{governance.ErrUnauthorized, http.StatusForbidden},
		{governance.ErrNotPending, http.StatusConflict},
		{governance.ErrExpired, http.StatusConflict},
		{governance.ErrNoOpVote, http.StatusConflict},
		{governance.ErrCapacityReached, http.StatusConflict},
		{token.ErrInsufficientBalance, http.StatusConflict},
		{governance.ErrInvalidChoice, http.StatusBadRequest},
		{token.ErrInvalidAccount, http.StatusBadRequest},
		{&governance.InvariantViolationError{Reason: "test"}, http.StatusInternalServerError},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.status, statusForError(testDef.err), testDef.err.Error())
	}
}

func TestEvents(t *testing.T) {
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	g := newTestGovernor(t, bus)
	a := New(
		APIConfig{ListenAddress: "127.0.0.1:0", EventBufferSize: 4},
		g,
		bus,
		nil,
	)
	require.NoError(t, a.Start(t.Context()))
	defer a.Stop(context.Background()) //nolint:errcheck
	h := a.Handler()

	ctx := context.Background()
	id, err := g.CreateProposal(ctx, "alice", governance.Fingerprint{1})
	require.NoError(t, err)
	require.NoError(t, g.Vote(ctx, "bob", id, governance.No))

	require.Eventually(t, func() bool {
		rec := doRequest(t, h, http.MethodGet, "/api/v1/events", nil)
		return len(decode[[]EventResponse](t, rec)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	for range 5 {
		require.NoError(t, g.Transfer(ctx, "carol", "dave", 1))
	}
	require.Eventually(t, func() bool {
		rec := doRequest(t, h, http.MethodGet, "/api/v1/events", nil)
		events := decode[[]EventResponse](t, rec)
		if len(events) != 4 {
			return false
		}
		for _, evt := range events {
			if evt.Type != string(token.TransferEventType) {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventLogWraps(t *testing.T) {
	l := newEventLog(3)
	assert.Empty(t, l.list())
	for i := range 5 {
		l.add(event.Event{Data: i})
	}
	events := l.list()
	require.Len(t, events, 3)
	assert.Equal(t, 2, events[0].Data)
	assert.Equal(t, 4, events[2].Data)
}
