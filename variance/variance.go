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

// Package variance flags juror inputs that disagree too much with their
// peers. Flagged jurors are excluded from aggregation and the flag is
// recorded on their reputation record. Only this package holds the
// flag-recording capability.
package variance

import (
	"io"
	"log/slog"
	"slices"

	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/scoring"
)

// FlatDistanceThreshold is the nearest-neighbor distance above which a
// flat-mode score is an outlier. The comparison is strict: a juror whose
// closest peer is exactly this far away is not flagged.
const FlatDistanceThreshold = 15

// TierDistanceThreshold is the tier-step distance from the majority at
// which a tier assignment is an outlier. Only A-vs-C mismatches reach it.
const TierDistanceThreshold = 2

// FlatFlags returns, for each score, whether its minimum absolute distance
// to any other score strictly exceeds the threshold. With fewer than two
// scores there is no reference point and nothing is flagged.
func FlatFlags(scores []uint64) []bool {
	flags := make([]bool, len(scores))
	if len(scores) < 2 {
		return flags
	}
	for i, score := range scores {
		minDistance := uint64(0)
		first := true
		for j, other := range scores {
			if i == j {
				continue
			}
			distance := absDiff(score, other)
			if first || distance < minDistance {
				minDistance = distance
				first = false
			}
		}
		flags[i] = minDistance > FlatDistanceThreshold
	}
	return flags
}

// TierFlagged reports whether a single tier assignment is too far from the
// majority tier
func TierFlagged(assigned, majority scoring.Tier) bool {
	return absDiff(uint64(assigned), uint64(majority)) >= TierDistanceThreshold
}

// AssignedTier returns the tier a revealed tier vote gives a contributor.
// Contributors named in neither set are tier C.
func AssignedTier(vote *database.TierVote, contributor string) scoring.Tier {
	if slices.Contains(vote.TierA, contributor) {
		return scoring.TierA
	}
	if slices.Contains(vote.TierB, contributor) {
		return scoring.TierB
	}
	return scoring.TierC
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

type DetectorConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	Identity identity.FlagRecorder
}

// Detector applies variance filtering to a room's revealed votes and
// records flags on vote rows and reputation records
type Detector struct {
	config DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Detector{config: cfg}
}

// FlatResult is the outcome of flat-mode filtering
type FlatResult struct {
	// ValidScores are the revealed scores of unflagged jurors
	ValidScores []uint64
	// Flagged are the jurors excluded as outliers
	Flagged []string
}

// FilterFlat flags outlier flat votes for a room and returns the valid
// score set. Runs inside the caller's transaction so flags commit together
// with the aggregation they gate.
func (d *Detector) FilterFlat(
	roomId uint64,
	txn *database.Txn,
) (FlatResult, error) {
	result := FlatResult{}
	votes, err := d.config.Database.GetVotesByRoom(roomId, txn)
	if err != nil {
		return result, err
	}
	revealed := make([]database.Vote, 0, len(votes))
	for _, vote := range votes {
		if vote.Revealed {
			revealed = append(revealed, vote)
		}
	}
	scores := make([]uint64, len(revealed))
	for i, vote := range revealed {
		scores[i] = vote.Score
	}
	flags := FlatFlags(scores)
	for i, flagged := range flags {
		if flagged {
			if err := d.flag(&revealed[i], txn); err != nil {
				return result, err
			}
			result.Flagged = append(result.Flagged, revealed[i].Juror)
			continue
		}
		result.ValidScores = append(result.ValidScores, revealed[i].Score)
	}
	return result, nil
}

// TierResult is the outcome of tier-mode filtering
type TierResult struct {
	// ValidVotes are the revealed tier votes of unflagged jurors
	ValidVotes []database.TierVote
	// Flagged are the jurors excluded as outliers
	Flagged []string
}

// FilterTier flags outlier tier votes for a room. For each contributor the
// majority tier is computed over all revealed votes; a juror whose
// assignment sits two or more steps from any of those majorities is
// flagged.
func (d *Detector) FilterTier(
	roomId uint64,
	txn *database.Txn,
) (TierResult, error) {
	result := TierResult{}
	votes, err := d.config.Database.GetTierVotesByRoom(roomId, txn)
	if err != nil {
		return result, err
	}
	revealed := make([]database.TierVote, 0, len(votes))
	for _, vote := range votes {
		if vote.Revealed {
			revealed = append(revealed, vote)
		}
	}
	submissions, err := d.config.Database.GetSubmissionsByRoom(roomId, txn)
	if err != nil {
		return result, err
	}
	outliers := make(map[string]bool)
	for _, submission := range submissions {
		assigned := make([]scoring.Tier, len(revealed))
		for i := range revealed {
			assigned[i] = AssignedTier(&revealed[i], submission.Contributor)
		}
		majority := scoring.MajorityTier(assigned)
		for i := range revealed {
			if TierFlagged(assigned[i], majority) {
				outliers[revealed[i].Juror] = true
			}
		}
	}
	for i := range revealed {
		if outliers[revealed[i].Juror] {
			if err := d.flagTier(&revealed[i], txn); err != nil {
				return result, err
			}
			result.Flagged = append(result.Flagged, revealed[i].Juror)
			continue
		}
		result.ValidVotes = append(result.ValidVotes, revealed[i])
	}
	return result, nil
}

func (d *Detector) flag(vote *database.Vote, txn *database.Txn) error {
	vote.Flagged = true
	if err := d.config.Database.UpdateVote(vote, txn); err != nil {
		return err
	}
	d.config.Logger.Info(
		"juror flagged",
		"component", "variance",
		"room", vote.RoomID,
		"juror", vote.Juror,
	)
	return d.config.Identity.IncrementVarianceFlags(vote.Juror, txn)
}

func (d *Detector) flagTier(vote *database.TierVote, txn *database.Txn) error {
	vote.Flagged = true
	if err := d.config.Database.UpdateTierVote(vote, txn); err != nil {
		return err
	}
	d.config.Logger.Info(
		"juror flagged",
		"component", "variance",
		"room", vote.RoomID,
		"juror", vote.Juror,
	)
	return d.config.Identity.IncrementVarianceFlags(vote.Juror, txn)
}
