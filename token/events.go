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

import "github.com/blinklabs-io/tally/event"

const (
	TransferEventType event.EventType = "token.transfer"
	MintEventType     event.EventType = "token.mint"
)

type TransferEvent struct {
	From   Account `json:"from"`
	To     Account `json:"to"`
	Amount uint64  `json:"amount,string"`
}

type MintEvent struct {
	To     Account `json:"to"`
	Amount uint64  `json:"amount,string"`
}
