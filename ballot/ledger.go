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

// Package ballot records jurors' hash commitments and their later revealed
// openings. A reveal must cryptographically match the prior commitment or
// it is rejected outright; there is no partial credit. Commitments are
// gated on the room's jury phase, reveals on its reveal phase.
package ballot

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/event"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/room"
	"github.com/virtualconnekt/roomhq/scoring"
)

var (
	// duplication
	ErrAlreadyCommitted = errors.New("juror already committed")
	ErrAlreadyRevealed  = errors.New("juror already revealed")

	// not-found / authorization
	ErrNotCommitted = errors.New("juror has not committed")
	ErrNotJuror     = errors.New("caller is not in the jury pool")

	// integrity: the reveal does not open the stored commitment
	ErrCommitMismatch = errors.New("reveal does not match commitment")

	// range / tier reveal validation
	ErrTierSlotCount  = errors.New("tier set size does not match slot count")
	ErrTierOverlap    = errors.New("tier sets are not disjoint")
	ErrNotContributor = errors.New("tier set names a non-contributor")
)

type LedgerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	EventBus *event.EventBus
	Identity identity.ParticipationRecorder
	Now      func() time.Time
}

// Ledger is the commit-reveal ledger for both scoring modes
type Ledger struct {
	config LedgerConfig
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{config: cfg}
}

// Commit records a flat-mode commitment hash for a juror
func (l *Ledger) Commit(
	juror string,
	roomId uint64,
	commitHash []byte,
) error {
	err := l.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		if err := l.checkCommitPhase(
			roomId, juror, room.ModeFlat, txn,
		); err != nil {
			return err
		}
		if _, err := l.config.Database.GetVote(roomId, juror, txn); err == nil {
			return ErrAlreadyCommitted
		} else if !errors.Is(err, database.ErrVoteNotFound) {
			return err
		}
		return l.config.Database.AddVote(
			&database.Vote{
				RoomID:      roomId,
				Juror:       juror,
				CommitHash:  commitHash,
				CommittedAt: l.config.Now(),
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	l.publishCommitted(roomId, juror, false)
	return nil
}

// Reveal opens a flat-mode commitment. The ledger recomputes the
// commitment from the claimed score and salt and rejects the reveal if it
// does not equal the stored hash. A successful reveal counts toward the
// juror's participation record.
func (l *Ledger) Reveal(
	juror string,
	roomId uint64,
	score uint64,
	salt []byte,
) error {
	if score > 100 {
		return room.ErrScoreOutOfRange
	}
	err := l.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		if err := l.checkRevealPhase(roomId, room.ModeFlat, txn); err != nil {
			return err
		}
		tmpVote, err := l.config.Database.GetVote(roomId, juror, txn)
		if err != nil {
			if errors.Is(err, database.ErrVoteNotFound) {
				return ErrNotCommitted
			}
			return err
		}
		if tmpVote.Revealed {
			return ErrAlreadyRevealed
		}
		if !bytes.Equal(ScoreCommitment(score, salt), tmpVote.CommitHash) {
			return ErrCommitMismatch
		}
		tmpVote.Revealed = true
		tmpVote.Score = score
		tmpVote.Salt = salt
		tmpVote.RevealedAt = l.config.Now()
		if err := l.config.Database.UpdateVote(&tmpVote, txn); err != nil {
			return err
		}
		return l.config.Identity.IncrementJuryParticipation(juror, txn)
	})
	if err != nil {
		return err
	}
	l.publishRevealed(roomId, juror, score, false)
	return nil
}

// CommitTier records a tier-mode commitment hash for a juror
func (l *Ledger) CommitTier(
	juror string,
	roomId uint64,
	commitHash []byte,
) error {
	err := l.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		if err := l.checkCommitPhase(
			roomId, juror, room.ModeTier, txn,
		); err != nil {
			return err
		}
		if _, err := l.config.Database.GetTierVote(
			roomId, juror, txn,
		); err == nil {
			return ErrAlreadyCommitted
		} else if !errors.Is(err, database.ErrVoteNotFound) {
			return err
		}
		return l.config.Database.AddTierVote(
			&database.TierVote{
				RoomID:      roomId,
				Juror:       juror,
				CommitHash:  commitHash,
				CommittedAt: l.config.Now(),
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	l.publishCommitted(roomId, juror, true)
	return nil
}

// RevealTier opens a tier-mode commitment. Beyond the hash check, the tier
// sets must exactly fill the slot counts for the room's contributor count,
// name only contributors, and be disjoint. Contributors named in neither
// set are implicitly tier C.
func (l *Ledger) RevealTier(
	juror string,
	roomId uint64,
	tierA []string,
	tierB []string,
	salt []byte,
) error {
	err := l.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		if err := l.checkRevealPhase(roomId, room.ModeTier, txn); err != nil {
			return err
		}
		tmpVote, err := l.config.Database.GetTierVote(roomId, juror, txn)
		if err != nil {
			if errors.Is(err, database.ErrVoteNotFound) {
				return ErrNotCommitted
			}
			return err
		}
		if tmpVote.Revealed {
			return ErrAlreadyRevealed
		}
		if err := l.validateTierSets(roomId, tierA, tierB, txn); err != nil {
			return err
		}
		if !bytes.Equal(
			TierCommitment(tierA, tierB, salt), tmpVote.CommitHash,
		) {
			return ErrCommitMismatch
		}
		tmpVote.Revealed = true
		tmpVote.TierA = tierA
		tmpVote.TierB = tierB
		tmpVote.Salt = salt
		tmpVote.RevealedAt = l.config.Now()
		if err := l.config.Database.UpdateTierVote(&tmpVote, txn); err != nil {
			return err
		}
		return l.config.Identity.IncrementJuryParticipation(juror, txn)
	})
	if err != nil {
		return err
	}
	l.publishRevealed(roomId, juror, 0, true)
	return nil
}

// AllCommitted reports whether every juror in the room's pool has
// committed
func (l *Ledger) AllCommitted(roomId uint64, txn *database.Txn) (bool, error) {
	return l.progressComplete(roomId, false, txn)
}

// AllRevealed reports whether every juror in the room's pool has revealed
func (l *Ledger) AllRevealed(roomId uint64, txn *database.Txn) (bool, error) {
	return l.progressComplete(roomId, true, txn)
}

func (l *Ledger) progressComplete(
	roomId uint64,
	countRevealed bool,
	txn *database.Txn,
) (bool, error) {
	if txn == nil {
		txn = l.config.Database.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	tmpRoom, err := l.config.Database.GetRoom(roomId, txn)
	if err != nil {
		return false, err
	}
	jurors, err := l.config.Database.GetJuryPool(roomId, txn)
	if err != nil {
		return false, err
	}
	var count int
	switch room.Mode(tmpRoom.Mode) {
	case room.ModeTier:
		votes, err := l.config.Database.GetTierVotesByRoom(roomId, txn)
		if err != nil {
			return false, err
		}
		for _, vote := range votes {
			if !countRevealed || vote.Revealed {
				count++
			}
		}
	default:
		votes, err := l.config.Database.GetVotesByRoom(roomId, txn)
		if err != nil {
			return false, err
		}
		for _, vote := range votes {
			if !countRevealed || vote.Revealed {
				count++
			}
		}
	}
	return len(jurors) > 0 && count >= len(jurors), nil
}

func (l *Ledger) checkCommitPhase(
	roomId uint64,
	juror string,
	mode room.Mode,
	txn *database.Txn,
) error {
	tmpRoom, err := l.config.Database.GetRoom(roomId, txn)
	if err != nil {
		return err
	}
	if room.State(tmpRoom.State) != room.StateJuryActive {
		return room.ErrWrongPhase
	}
	if room.Mode(tmpRoom.Mode) != mode {
		return room.ErrModeMismatch
	}
	jurors, err := l.config.Database.GetJuryPool(roomId, txn)
	if err != nil {
		return err
	}
	if !slices.Contains(jurors, juror) {
		return ErrNotJuror
	}
	return nil
}

func (l *Ledger) checkRevealPhase(
	roomId uint64,
	mode room.Mode,
	txn *database.Txn,
) error {
	tmpRoom, err := l.config.Database.GetRoom(roomId, txn)
	if err != nil {
		return err
	}
	if room.State(tmpRoom.State) != room.StateJuryReveal {
		return room.ErrWrongPhase
	}
	if room.Mode(tmpRoom.Mode) != mode {
		return room.ErrModeMismatch
	}
	return nil
}

func (l *Ledger) validateTierSets(
	roomId uint64,
	tierA []string,
	tierB []string,
	txn *database.Txn,
) error {
	submissions, err := l.config.Database.GetSubmissionsByRoom(roomId, txn)
	if err != nil {
		return err
	}
	contributors := make(map[string]bool, len(submissions))
	for _, submission := range submissions {
		contributors[submission.Contributor] = true
	}
	slotsA, slotsB := scoring.TierSlots(len(submissions))
	if len(tierA) != slotsA || len(tierB) != slotsB {
		return ErrTierSlotCount
	}
	seen := make(map[string]bool, len(tierA)+len(tierB))
	for _, address := range slices.Concat(tierA, tierB) {
		if !contributors[address] {
			return ErrNotContributor
		}
		if seen[address] {
			return ErrTierOverlap
		}
		seen[address] = true
	}
	return nil
}

func (l *Ledger) publishCommitted(roomId uint64, juror string, tier bool) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(
		event.VoteCommittedEventType,
		event.NewEvent(
			event.VoteCommittedEventType,
			event.VoteCommittedEvent{
				RoomId:    roomId,
				Juror:     juror,
				Tier:      tier,
				Timestamp: l.config.Now(),
			},
		),
	)
}

func (l *Ledger) publishRevealed(
	roomId uint64,
	juror string,
	score uint64,
	tier bool,
) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(
		event.VoteRevealedEventType,
		event.NewEvent(
			event.VoteRevealedEventType,
			event.VoteRevealedEvent{
				RoomId:    roomId,
				Juror:     juror,
				Score:     score,
				Tier:      tier,
				Timestamp: l.config.Now(),
			},
		),
	)
}
