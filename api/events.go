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
	"sync"

	"github.com/blinklabs-io/tally/event"
)

const DefaultEventBufferSize = 256

// eventLog keeps the most recent notifications in a fixed-size ring
type eventLog struct {
	buf  []event.Event
	next int
	full bool
	mu   sync.Mutex
}

func newEventLog(size int) *eventLog {
	if size <= 0 {
		size = DefaultEventBufferSize
	}
	return &eventLog{buf: make([]event.Event, size)}
}

func (l *eventLog) add(evt event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = evt
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

// list returns the buffered events, oldest first
func (l *eventLog) list() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]event.Event(nil), l.buf[:l.next]...)
	}
	ret := make([]event.Event, 0, len(l.buf))
	ret = append(ret, l.buf[l.next:]...)
	return append(ret, l.buf[:l.next]...)
}
