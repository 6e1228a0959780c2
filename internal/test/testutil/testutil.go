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

// Package testutil holds channel helpers shared by the tally tests
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireReceive returns the next value from ch. The test fails if ch is
// closed or nothing arrives before timeout.
func RequireReceive[T any](
	t testing.TB,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed: %s", msg)
		return v
	case <-timer.C:
		require.FailNow(t, "timeout waiting for channel receive", msg)
	}
	var zero T
	return zero
}

// RequireNoReceive fails the test if ch yields a value within wait. A zero
// wait only checks what is already buffered.
func RequireNoReceive[T any](
	t testing.TB,
	ch <-chan T,
	wait time.Duration,
	msg string,
) {
	t.Helper()
	if wait <= 0 {
		select {
		case v := <-ch:
			require.FailNow(t, "unexpected value received", "%v: %s", v, msg)
		default:
		}
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case v := <-ch:
		require.FailNow(t, "unexpected value received", "%v: %s", v, msg)
	case <-timer.C:
	}
}

// RequireClosed waits for ch to be closed, discarding any values sent first
func RequireClosed[T any](
	t testing.TB,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timer.C:
			require.FailNow(t, "timeout waiting for channel close", msg)
		}
	}
}
