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
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxActiveProposals is the number of proposals that can be open at once
	MaxActiveProposals = 3
	// DefaultVotingPeriod is the time between creation and deadline
	DefaultVotingPeriod = 72 * time.Hour
	FingerprintSize     = 32
)

// ProposalID is the sequence number of a proposal. The first proposal is 1.
type ProposalID uint64

// NoProposal marks an empty active slot
const NoProposal ProposalID = 0

// Fingerprint is an opaque content hash supplied by the proposal creator
type Fingerprint [FingerprintSize]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fingerprint) UnmarshalText(data []byte) error {
	tmp, err := ParseFingerprint(string(data))
	if err != nil {
		return err
	}
	*f = tmp
	return nil
}

// ParseFingerprint decodes a hex-encoded fingerprint
func ParseFingerprint(s string) (Fingerprint, error) {
	var ret Fingerprint
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return ret, fmt.Errorf("invalid fingerprint: %w", err)
	}
	if len(b) != FingerprintSize {
		return ret, fmt.Errorf(
			"invalid fingerprint length: got %d bytes, want %d",
			len(b),
			FingerprintSize,
		)
	}
	copy(ret[:], b)
	return ret, nil
}

// Choice is the side an account takes on a proposal
type Choice uint8

const (
	Abstain Choice = iota
	Yes
	No
)

func (c Choice) String() string {
	switch c {
	case Abstain:
		return "abstain"
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return fmt.Sprintf("choice(%d)", uint8(c))
	}
}

func (c Choice) Valid() bool {
	return c <= No
}

// opposite returns the competing side of Yes or No
func (c Choice) opposite() Choice {
	switch c {
	case Yes:
		return No
	case No:
		return Yes
	default:
		return Abstain
	}
}

// ParseChoice accepts the names returned by Choice.String
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abstain":
		return Abstain, nil
	case "yes":
		return Yes, nil
	case "no":
		return No, nil
	default:
		return Abstain, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

func (c Choice) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChoice, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Choice) UnmarshalText(data []byte) error {
	tmp, err := ParseChoice(string(data))
	if err != nil {
		return err
	}
	*c = tmp
	return nil
}

// Status is the flat form of a proposal State
type Status uint8

const (
	StatusPending Status = iota
	StatusAccepted
	StatusRejected
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the lifecycle state of a proposal. The variants are Pending,
// Accepted, Rejected and Expired.
type State interface {
	Status() Status
	// ClosedAt returns when the proposal left Pending, or the zero time
	ClosedAt() time.Time
	isState()
}

type Pending struct{}

type Accepted struct {
	DecidedAt time.Time
}

type Rejected struct {
	DecidedAt time.Time
}

type Expired struct {
	ExpiredAt time.Time
}

func (Pending) Status() Status { return StatusPending }

func (Pending) ClosedAt() time.Time { return time.Time{} }

func (Pending) isState() {}

func (Accepted) Status() Status { return StatusAccepted }

func (s Accepted) ClosedAt() time.Time { return s.DecidedAt }

func (Accepted) isState() {}

func (Rejected) Status() Status { return StatusRejected }

func (s Rejected) ClosedAt() time.Time { return s.DecidedAt }

func (Rejected) isState() {}

func (Expired) Status() Status { return StatusExpired }

func (s Expired) ClosedAt() time.Time { return s.ExpiredAt }

func (Expired) isState() {}

// stateFor rebuilds a State from its stored form
func stateFor(status Status, closedAt time.Time) (State, error) {
	switch status {
	case StatusPending:
		return Pending{}, nil
	case StatusAccepted:
		return Accepted{DecidedAt: closedAt}, nil
	case StatusRejected:
		return Rejected{DecidedAt: closedAt}, nil
	case StatusExpired:
		return Expired{ExpiredAt: closedAt}, nil
	default:
		return nil, fmt.Errorf("unknown proposal status %d", uint8(status))
	}
}

// transition checks that a proposal may move from one state to another.
// Only Pending has successors and nothing leads back to Pending.
func transition(id ProposalID, from State, to State) error {
	if _, ok := from.(Pending); !ok {
		return invariantf(
			id,
			"transition from %s to %s",
			from.Status(),
			to.Status(),
		)
	}
	if _, ok := to.(Pending); ok {
		return invariantf(id, "transition back to pending")
	}
	return nil
}
