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
	"errors"
	"fmt"
)

var (
	ErrUnauthorized    = errors.New("caller holds no tokens")
	ErrNotFound        = errors.New("proposal not found")
	ErrNotPending      = errors.New("proposal is no longer pending")
	ErrExpired         = errors.New("proposal voting period has ended")
	ErrNoOpVote        = errors.New("choice matches the current vote")
	ErrCapacityReached = errors.New("all active proposal slots are in use")
	ErrInvalidChoice   = errors.New("invalid choice")
	ErrNotMinted       = errors.New("token supply has not been minted")

	// ErrInvariantViolation is wrapped by InvariantViolationError
	ErrInvariantViolation = errors.New("governance invariant violation")
)

// InvariantViolationError reports internal state that should be
// unreachable. The call that hit it is rolled back.
type InvariantViolationError struct {
	Reason   string
	Proposal ProposalID
}

func (e *InvariantViolationError) Error() string {
	if e.Proposal == NoProposal {
		return fmt.Sprintf("%s: %s", ErrInvariantViolation, e.Reason)
	}
	return fmt.Sprintf(
		"%s: proposal %d: %s",
		ErrInvariantViolation,
		e.Proposal,
		e.Reason,
	)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

func invariantf(id ProposalID, format string, args ...any) error {
	return &InvariantViolationError{
		Proposal: id,
		Reason:   fmt.Sprintf(format, args...),
	}
}
