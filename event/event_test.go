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

package event_test

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/internal/test/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEvtType event.EventType = "test.event"

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	return testutil.RequireReceive(t, ch, time.Second, "bus event")
}

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, 999, evt.Data)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "hello"))
	assert.Equal(t, "hello", receive(t, sub1Ch).Data)
	assert.Equal(t, "hello", receive(t, sub2Ch).Data)
	select {
	case <-otherCh:
		t.Fatal("subscriber of another type received event")
	default:
	}
}

func TestEventBusPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	for i := range event.EventQueueSize {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	for i := range event.EventQueueSize {
		assert.Equal(t, i, receive(t, subCh).Data)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	_, ok := <-subCh
	assert.False(t, ok, "subscriber channel was not closed after Unsubscribe")
	// Unknown subscriptions are ignored
	eb.Unsubscribe(testEvtType, subId)
	eb.Unsubscribe("missing", 42)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int64
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		count.Add(int64(evt.Data.(int)))
	})
	for i := 1; i <= 4; i++ {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	require.Eventually(
		t,
		func() bool { return count.Load() == 10 },
		time.Second,
		5*time.Millisecond,
	)
	eb.Stop()
}

func TestEventBusPublishAsync(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 7)))
	assert.Equal(t, 7, receive(t, subCh).Data)
}

func TestEventBusStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok)
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 1)))
	// Publishing without subscribers and stopping twice are both harmless
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	eb.Stop()
}

func TestEventBusStopUnblocksPublisher(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	eb.Subscribe(testEvtType)
	done := make(chan struct{})
	go func() {
		defer close(done)
		// One more than the queue holds, so the last publish blocks
		for i := range event.EventQueueSize + 1 {
			eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
		}
	}()
	time.Sleep(50 * time.Millisecond)
	eb.Stop()
	testutil.RequireClosed(t, done, time.Second, "publisher still blocked after Stop")
}

func TestEventBusMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	receive(t, subCh)

	expected := `
# HELP tally_event_published_total total events published by type
# TYPE tally_event_published_total counter
tally_event_published_total{type="test.event"} 1
# HELP tally_event_subscribers current subscribers by event type
# TYPE tally_event_subscribers gauge
tally_event_subscribers{type="test.event"} 1
`
	require.NoError(t, promtestutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"tally_event_published_total",
		"tally_event_subscribers",
	))
	eb.Unsubscribe(testEvtType, subId)
}
