// Copyright 2026 VirtualConnekt
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

package roomhq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type coordinatorMetrics struct {
	roomsCreated   prometheus.Counter
	submissions    prometheus.Counter
	votesCommitted *prometheus.CounterVec
	votesRevealed  *prometheus.CounterVec
	settlements    *prometheus.CounterVec
}

func (c *Coordinator) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	c.metrics = &coordinatorMetrics{
		roomsCreated: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "roomhq_rooms_created_total",
				Help: "total number of rooms created",
			},
		),
		submissions: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "roomhq_submissions_total",
				Help: "total number of accepted submissions",
			},
		),
		votesCommitted: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roomhq_votes_committed_total",
				Help: "total number of vote commitments per scoring mode",
			},
			[]string{"mode"},
		),
		votesRevealed: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roomhq_votes_revealed_total",
				Help: "total number of vote reveals per scoring mode",
			},
			[]string{"mode"},
		),
		settlements: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roomhq_settlements_total",
				Help: "total number of settled rooms per outcome",
			},
			[]string{"outcome"},
		),
	}
}
