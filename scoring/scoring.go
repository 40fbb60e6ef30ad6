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

// Package scoring reduces valid juror inputs to final scores. All
// arithmetic is integer arithmetic with explicit floor semantics; these
// exact rounding rules are part of the protocol.
package scoring

import "slices"

const (
	// MaxScore is the upper bound for client and juror scores
	MaxScore = 100

	// clientWeight/juryWeight is the fixed 60/40 combination of client and
	// jury scores
	clientWeight = 60
	juryWeight   = 40
)

// Tier is a tier-mode ranking bucket. Smaller is better: tier A beats tier
// B beats tier C.
type Tier int

const (
	TierA Tier = 1
	TierB Tier = 2
	TierC Tier = 3
)

// tierScores maps a contributor's majority tier to its fixed jury score
var tierScores = map[Tier]uint64{
	TierA: 40,
	TierB: 30,
	TierC: 20,
}

// Median returns the median of the given scores: the middle element for an
// odd count, the floor of the average of the two middle elements for an
// even count, and zero for an empty set. A zero from an empty set signals
// the refund path.
func Median(scores []uint64) uint64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// FinalScore combines the client's score and the jury score under the
// fixed 60/40 weighting, flooring the result
func FinalScore(clientScore, juryScore uint64) uint64 {
	return (clientScore*clientWeight + juryScore*juryWeight) / 100
}

// TierScore returns the fixed jury score for a majority tier
func TierScore(tier Tier) uint64 {
	return tierScores[tier]
}

// TierFinalScore combines the client's score with a contributor's majority
// tier score
func TierFinalScore(clientScore uint64, tier Tier) uint64 {
	return clientScore*clientWeight/100 + TierScore(tier)
}

// TierSlots returns how many contributors a juror must promote to tier A
// and tier B, scaled by the room's contributor count
func TierSlots(contributorCount int) (tierA, tierB int) {
	switch {
	case contributorCount <= 10:
		return 1, 2
	case contributorCount <= 20:
		return 3, 4
	default:
		return 5, 7
	}
}

// MajorityTier returns the most-assigned tier from a set of juror
// assignments. Ties resolve toward the numerically smaller (higher) tier.
// An empty assignment set yields tier C.
func MajorityTier(assigned []Tier) Tier {
	if len(assigned) == 0 {
		return TierC
	}
	counts := make(map[Tier]int)
	for _, tier := range assigned {
		counts[tier]++
	}
	majority := TierC
	best := counts[TierC]
	for _, tier := range []Tier{TierB, TierA} {
		if counts[tier] >= best {
			majority = tier
			best = counts[tier]
		}
	}
	return majority
}
