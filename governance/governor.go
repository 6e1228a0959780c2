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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/tally/database"
	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/token"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/blinklabs-io/tally/governance")

type GovernorConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	EventBus     *event.EventBus
	// Database is optional. Without one all state lives in memory only.
	Database *database.Database
	Clock    func() time.Time
	// VotingPeriod defaults to DefaultVotingPeriod
	VotingPeriod time.Duration
}

// Governor owns the token ledger and all proposal state. Every call runs
// to completion under one lock and either commits fully or leaves no trace.
type Governor struct {
	logger       *slog.Logger
	metrics      *governanceMetrics
	eventBus     *event.EventBus
	db           *database.Database
	ledger       *token.Ledger
	clock        func() time.Time
	active       *journal
	store        proposalStore
	votingPeriod time.Duration
	mu           sync.Mutex
}

// NewGovernor creates a Governor and loads any state stored in the database
func NewGovernor(cfg GovernorConfig) (*Governor, error) {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.VotingPeriod == 0 {
		cfg.VotingPeriod = DefaultVotingPeriod
	}
	if cfg.VotingPeriod < 0 {
		return nil, fmt.Errorf("invalid voting period %s", cfg.VotingPeriod)
	}
	g := &Governor{
		logger:       cfg.Logger.With("component", "governance"),
		eventBus:     cfg.EventBus,
		db:           cfg.Database,
		clock:        cfg.Clock,
		votingPeriod: cfg.VotingPeriod,
	}
	g.ledger = token.NewLedger(token.LedgerConfig{
		Logger:       cfg.Logger,
		PromRegistry: cfg.PromRegistry,
		Clock:        g.now,
		Hook:         g,
	})
	if cfg.PromRegistry != nil {
		g.metrics = &governanceMetrics{}
		g.metrics.init(cfg.PromRegistry)
	}
	if g.db != nil {
		if err := g.load(); err != nil {
			return nil, fmt.Errorf("load governance state: %w", err)
		}
		g.logger.Info(
			fmt.Sprintf(
				"loaded %d proposals, %d active",
				g.store.count(),
				g.store.occupied(),
			),
			"total_supply", g.ledger.TotalSupply(),
		)
	}
	if g.metrics != nil {
		g.metrics.activeProposals.Set(float64(g.store.occupied()))
	}
	return g, nil
}

// now is the clock seen by the ledger. Within a call it is the call's time.
func (g *Governor) now() time.Time {
	if g.active != nil {
		return g.active.at
	}
	return g.clock()
}

// execute runs fn as one atomic call. Any error, including a failure to
// persist, reverts every mutation fn made. Notifications are published
// after the lock is released.
func (g *Governor) execute(
	ctx context.Context,
	op string,
	fn func(context.Context, *journal) error,
) error {
	ctx, span := tracer.Start(ctx, "governance."+op)
	defer span.End()
	events, active, err := g.run(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if g.metrics != nil {
			g.metrics.rollbacks.WithLabelValues(op).Inc()
		}
		var invErr *InvariantViolationError
		if errors.As(err, &invErr) {
			g.logger.Error(
				fmt.Sprintf("%s rolled back: %s", op, err),
			)
		} else {
			g.logger.Debug(
				fmt.Sprintf("%s rejected: %s", op, err),
			)
		}
		return err
	}
	span.SetAttributes(attribute.Int("tally.events", len(events)))
	if g.metrics != nil {
		g.metrics.observe(events, active)
	}
	if g.eventBus != nil {
		for _, evt := range events {
			g.eventBus.Publish(evt.Type, evt)
		}
	}
	return nil
}

func (g *Governor) run(
	ctx context.Context,
	fn func(context.Context, *journal) error,
) ([]event.Event, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	j := newJournal(g.clock())
	g.active = j
	defer func() { g.active = nil }()
	err := fn(ctx, j)
	if err == nil {
		err = g.persist(j)
	}
	if err != nil {
		j.revert()
		return nil, 0, err
	}
	return j.events, g.store.occupied(), nil
}

// CreateProposal opens a new proposal in a free active slot, expiring the
// proposal in slot 0 if every slot is taken and it is past its deadline
func (g *Governor) CreateProposal(
	ctx context.Context,
	creator token.Account,
	fingerprint Fingerprint,
) (ProposalID, error) {
	var id ProposalID
	err := g.execute(ctx, "create_proposal", func(_ context.Context, j *journal) error {
		var err error
		id, err = g.createProposal(j, creator, fingerprint)
		return err
	})
	if err != nil {
		return NoProposal, err
	}
	return id, nil
}

// Vote records the voter's choice on a proposal with the voter's current
// balance as weight. Voting for Abstain retracts an earlier vote.
func (g *Governor) Vote(
	ctx context.Context,
	voter token.Account,
	id ProposalID,
	choice Choice,
) error {
	return g.execute(ctx, "vote", func(_ context.Context, j *journal) error {
		return g.castVote(j, voter, id, choice)
	})
}

func (g *Governor) castVote(
	j *journal,
	voter token.Account,
	id ProposalID,
	choice Choice,
) error {
	if !choice.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidChoice, uint8(choice))
	}
	p, ok := g.store.get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	weight := g.ledger.BalanceOf(voter)
	if weight == 0 {
		return fmt.Errorf("%w: %s", ErrUnauthorized, voter)
	}
	if !p.pending() {
		return fmt.Errorf("%w: proposal %d is %s", ErrNotPending, id, p.state.Status())
	}
	at := j.at
	if !p.live(at) {
		return fmt.Errorf("%w: proposal %d closed at %s", ErrExpired, id, p.deadline)
	}
	previous := p.votes.choice(voter)
	if previous == choice {
		return fmt.Errorf("%w: %s already voted %s", ErrNoOpVote, voter, choice)
	}
	p.votes.set(j, id, voter, voteRecord{choice: choice, changedAt: at})
	j.emit(VoteCastEventType, VoteCastEvent{
		ID:       id,
		Voter:    voter,
		Previous: previous,
		Choice:   choice,
		Weight:   weight,
	})
	g.logger.Debug(
		fmt.Sprintf(
			"%s voted %s on proposal %d with weight %d",
			voter,
			choice,
			id,
			weight,
		),
	)
	return g.applyVoteChange(j, p, voter, previous, choice, weight, at)
}

// Transfer moves tokens and reweighs every live active proposal
func (g *Governor) Transfer(
	ctx context.Context,
	from token.Account,
	to token.Account,
	amount uint64,
) error {
	return g.execute(ctx, "transfer", func(ctx context.Context, j *journal) error {
		return g.transfer(ctx, j, from, to, amount)
	})
}

func (g *Governor) transfer(
	ctx context.Context,
	j *journal,
	from token.Account,
	to token.Account,
	amount uint64,
) error {
	if !g.ledger.Minted() {
		return ErrNotMinted
	}
	snap := g.ledger.Snapshot(from, to)
	// Queued first so it precedes the events the hook emits
	j.emit(token.TransferEventType, token.TransferEvent{
		From:   from,
		To:     to,
		Amount: amount,
	})
	if err := g.ledger.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	j.record(func() { g.ledger.Restore(snap) })
	j.touchAccount(from)
	j.touchAccount(to)
	return nil
}

// Mint allocates the whole fixed supply to one holder. It succeeds once.
func (g *Governor) Mint(
	ctx context.Context,
	to token.Account,
	amount uint64,
) error {
	return g.execute(ctx, "mint", func(_ context.Context, j *journal) error {
		snap := g.ledger.Snapshot(to)
		if err := g.ledger.Mint(to, amount); err != nil {
			return err
		}
		j.record(func() { g.ledger.Restore(snap) })
		j.touchAccount(to)
		j.supply = true
		j.emit(token.MintEventType, token.MintEvent{To: to, Amount: amount})
		return nil
	})
}

// GetVote returns an account's current choice. Accounts that never voted
// abstain.
func (g *Governor) GetVote(id ProposalID, account token.Account) (Choice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.store.get(id)
	if !ok {
		return Abstain, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p.votes.choice(account), nil
}

// Votes returns the explicit vote records of a proposal
func (g *Governor) Votes(id ProposalID) ([]Vote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.store.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p.votes.list(), nil
}

// ProposalCount returns the number of proposals ever created
func (g *Governor) ProposalCount() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.count()
}

func (g *Governor) Proposal(id ProposalID) (Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.store.get(id)
	if !ok {
		return Proposal{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return p.view(), nil
}

// Proposals returns every proposal in creation order
func (g *Governor) Proposals() []Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	ret := make([]Proposal, 0, len(g.store.log))
	for _, p := range g.store.log {
		ret = append(ret, p.view())
	}
	return ret
}

// ActiveProposals returns the proposals in occupied slots, in slot order
func (g *Governor) ActiveProposals() []Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	var ret []Proposal
	for _, id := range g.store.slots {
		if p, ok := g.store.get(id); ok {
			ret = append(ret, p.view())
		}
	}
	return ret
}

// Slots returns the active slot array. Empty slots hold NoProposal.
func (g *Governor) Slots() [MaxActiveProposals]ProposalID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store.slots
}

func (g *Governor) BalanceOf(account token.Account) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ledger.BalanceOf(account)
}

func (g *Governor) TotalSupply() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ledger.TotalSupply()
}

func (g *Governor) Minted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ledger.Minted()
}
