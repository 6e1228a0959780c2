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
	"strconv"

	"github.com/blinklabs-io/tally/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governanceMetrics struct {
	proposalsCreated prometheus.Counter
	proposalsClosed  *prometheus.CounterVec
	votesCast        *prometheus.CounterVec
	activeProposals  prometheus.Gauge
	rollbacks        *prometheus.CounterVec
}

func (m *governanceMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.proposalsCreated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_governance_proposals_created_total",
			Help: "total proposals created",
		},
	)
	m.proposalsClosed = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_proposals_closed_total",
			Help: "total proposals closed, by final status",
		},
		[]string{"status"},
	)
	m.votesCast = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_votes_cast_total",
			Help: "total votes recorded, including forced abstentions",
		},
		[]string{"forced"},
	)
	m.activeProposals = promautoFactory.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_governance_active_proposals",
			Help: "number of occupied active proposal slots",
		},
	)
	m.rollbacks = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_rollbacks_total",
			Help: "total calls rolled back, by operation",
		},
		[]string{"operation"},
	)
}

// observe updates the counters from the notifications of a committed call
func (m *governanceMetrics) observe(events []event.Event, active int) {
	for _, evt := range events {
		switch data := evt.Data.(type) {
		case ProposalCreatedEvent:
			m.proposalsCreated.Inc()
		case ProposalExpiredEvent:
			m.proposalsClosed.WithLabelValues(StatusExpired.String()).Inc()
		case ProposalDecidedEvent:
			m.proposalsClosed.WithLabelValues(data.Status.String()).Inc()
		case VoteCastEvent:
			m.votesCast.WithLabelValues(strconv.FormatBool(data.Forced)).Inc()
		}
	}
	m.activeProposals.Set(float64(active))
}
