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

package token

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxAccountLength is the longest account identifier accepted by the ledger
const MaxAccountLength = 128

// Account identifies a token holder
type Account string

// Valid reports whether the account identifier is usable
func (a Account) Valid() bool {
	return len(a) > 0 && len(a) <= MaxAccountLength
}

// TransferHook observes every balance-changing transfer. It runs after the
// debit and credit have been applied. Returning an error reverts the transfer.
type TransferHook interface {
	OnTransfer(
		ctx context.Context,
		from Account,
		to Account,
		amount uint64,
		at time.Time,
	) error
}

// TransferHookFunc adapts a function to the TransferHook interface
type TransferHookFunc func(context.Context, Account, Account, uint64, time.Time) error

func (f TransferHookFunc) OnTransfer(
	ctx context.Context,
	from Account,
	to Account,
	amount uint64,
	at time.Time,
) error {
	return f(ctx, from, to, amount, at)
}

type LedgerConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        func() time.Time
	Hook         TransferHook
}

// Ledger is a fixed-supply fungible token ledger. It is not safe for
// concurrent use; callers serialize access.
type Ledger struct {
	config   LedgerConfig
	logger   *slog.Logger
	metrics  *ledgerMetrics
	balances map[Account]uint64
	supply   uint64
	minted   bool
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	l := &Ledger{
		config:   cfg,
		logger:   cfg.Logger.With("component", "token"),
		balances: make(map[Account]uint64),
	}
	if cfg.PromRegistry != nil {
		l.metrics = &ledgerMetrics{}
		l.metrics.init(cfg.PromRegistry)
	}
	return l
}

// SetTransferHook replaces the hook invoked by Transfer
func (l *Ledger) SetTransferHook(hook TransferHook) {
	l.config.Hook = hook
}

// Minted reports whether the one-time mint has happened
func (l *Ledger) Minted() bool {
	return l.minted
}

// TotalSupply returns the fixed total supply, or zero before the mint
func (l *Ledger) TotalSupply() uint64 {
	return l.supply
}

// BalanceOf returns the balance held by an account
func (l *Ledger) BalanceOf(account Account) uint64 {
	return l.balances[account]
}

// Balances returns a copy of all positive balances
func (l *Ledger) Balances() map[Account]uint64 {
	return maps.Clone(l.balances)
}

// Mint allocates the entire supply to a single holder. It can only succeed once.
func (l *Ledger) Mint(to Account, amount uint64) error {
	if l.minted {
		return ErrAlreadyMinted
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, to)
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	l.balances[to] = amount
	l.supply = amount
	l.minted = true
	l.updateGauges()
	l.logger.Info(
		fmt.Sprintf("minted %d tokens to %s", amount, to),
	)
	return nil
}

// Load restores previously persisted balances. The balances must add up to
// the supply.
func (l *Ledger) Load(balances map[Account]uint64, supply uint64) error {
	if l.minted {
		return ErrAlreadyMinted
	}
	var sum uint64
	for account, balance := range balances {
		if !account.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidAccount, account)
		}
		if balance > supply-sum {
			return ErrSupplyOverflow
		}
		sum += balance
	}
	if sum != supply {
		return fmt.Errorf(
			"%w: balances sum to %d, supply is %d",
			ErrSupplyOverflow,
			sum,
			supply,
		)
	}
	l.balances = make(map[Account]uint64, len(balances))
	for account, balance := range balances {
		if balance > 0 {
			l.balances[account] = balance
		}
	}
	l.supply = supply
	l.minted = supply > 0
	l.updateGauges()
	return nil
}

// Transfer moves tokens between two accounts and then invokes the transfer
// hook. A hook failure restores both balances and is returned to the caller.
func (l *Ledger) Transfer(
	ctx context.Context,
	from Account,
	to Account,
	amount uint64,
) error {
	if !from.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, to)
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	fromBalance := l.balances[from]
	if fromBalance < amount {
		return fmt.Errorf(
			"%w: %s holds %d, needs %d",
			ErrInsufficientBalance,
			from,
			fromBalance,
			amount,
		)
	}
	snap := l.Snapshot(from, to)
	l.setBalance(from, fromBalance-amount)
	l.setBalance(to, l.balances[to]+amount)
	if l.config.Hook != nil {
		if err := l.config.Hook.OnTransfer(ctx, from, to, amount, l.config.Clock()); err != nil {
			l.Restore(snap)
			if l.metrics != nil {
				l.metrics.hookFailures.Inc()
			}
			return err
		}
	}
	if l.metrics != nil {
		l.metrics.transfersTotal.Inc()
		l.metrics.transferVolume.Add(float64(amount))
	}
	l.updateGauges()
	l.logger.Debug(
		fmt.Sprintf("transferred %d tokens from %s to %s", amount, from, to),
	)
	return nil
}

func (l *Ledger) setBalance(account Account, balance uint64) {
	if balance == 0 {
		delete(l.balances, account)
		return
	}
	l.balances[account] = balance
}

func (l *Ledger) updateGauges() {
	if l.metrics == nil {
		return
	}
	l.metrics.totalSupply.Set(float64(l.supply))
	l.metrics.holders.Set(float64(len(l.balances)))
}

// Snapshot captures the ledger state touched by an operation on the given
// accounts
type Snapshot struct {
	balances map[Account]uint64
	supply   uint64
	minted   bool
}

// Snapshot records the current balances of the given accounts along with
// the supply so that a later Restore can undo changes to them
func (l *Ledger) Snapshot(accounts ...Account) Snapshot {
	s := Snapshot{
		balances: make(map[Account]uint64, len(accounts)),
		supply:   l.supply,
		minted:   l.minted,
	}
	for _, account := range accounts {
		s.balances[account] = l.balances[account]
	}
	return s
}

// Restore puts back the state captured by Snapshot
func (l *Ledger) Restore(s Snapshot) {
	for account, balance := range s.balances {
		l.setBalance(account, balance)
	}
	l.supply = s.supply
	l.minted = s.minted
	l.updateGauges()
}
