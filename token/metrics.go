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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	transfersTotal prometheus.Counter
	transferVolume prometheus.Counter
	hookFailures   prometheus.Counter
	totalSupply    prometheus.Gauge
	holders        prometheus.Gauge
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.transfersTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "tally_token_transfers_total",
		Help: "total number of completed token transfers",
	})
	m.transferVolume = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "tally_token_transfer_volume_total",
		Help: "total amount of tokens moved by completed transfers",
	})
	m.hookFailures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "tally_token_transfer_hook_failures_total",
		Help: "number of transfers reverted because the transfer hook failed",
	})
	m.totalSupply = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "tally_token_total_supply",
		Help: "total token supply",
	})
	m.holders = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "tally_token_holders",
		Help: "number of accounts holding a positive balance",
	})
}
