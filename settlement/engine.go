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

// Package settlement closes out finalized rooms. Payout needs both keys:
// a computed jury score (silver) and the client's explicit approval
// (gold). Both are read from room state, never accepted from the caller.
// The zero-valid-votes path skips settlement entirely and refunds the
// escrow.
package settlement

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/event"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/room"
	"github.com/virtualconnekt/roomhq/scoring"
	"github.com/virtualconnekt/roomhq/variance"
	"github.com/virtualconnekt/roomhq/vault"
)

var (
	// ErrAlreadyApproved is returned on a second approval attempt,
	// distinctly from a first-time rejection
	ErrAlreadyApproved = errors.New("settlement already approved")
	// ErrApprovalMissing is the missing gold key
	ErrApprovalMissing = errors.New("client approval not given")
	// ErrAlreadyComputed is returned when scores were already computed for
	// the room
	ErrAlreadyComputed = errors.New("scores already computed")
	// ErrNoSubmissions is returned when settlement finds no contributor to
	// pay
	ErrNoSubmissions = errors.New("room has no submissions")

	// errNoValidVotes aborts score computation so variance flags roll back
	// before the refund path runs
	errNoValidVotes = errors.New("no valid votes after variance filtering")
)

// RevealChecker reports whether a room's jury has fully revealed. The
// ballot ledger implements it.
type RevealChecker interface {
	AllRevealed(roomId uint64, txn *database.Txn) (bool, error)
}

type EngineConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	EventBus *event.EventBus
	Vault    *vault.Vault
	Variance *variance.Detector
	Identity identity.CompletionRecorder
	Ballot   RevealChecker
	Now      func() time.Time
}

// Engine computes final scores and executes dual-key settlement
type Engine struct {
	config EngineConfig
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{config: cfg}
}

// ComputeScores runs variance filtering and aggregation for a room in its
// reveal phase, writing per-contributor final scores. Scoring waits out
// the reveal window: it runs only once the reveal deadline has passed or
// every juror has revealed. With an empty valid vote set the room is
// refunded in full instead: the escrow returns to the client, no
// reputation record is touched, and the room moves straight to its
// settled state with no winner.
func (e *Engine) ComputeScores(roomId uint64) error {
	var flagged []string
	var juryScore uint64
	var validVotes int
	err := e.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := e.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if room.State(tmpRoom.State) != room.StateJuryReveal {
			return room.ErrWrongPhase
		}
		if tmpRoom.ScoresComputed {
			return ErrAlreadyComputed
		}
		if !e.config.Now().After(tmpRoom.RevealDeadline) {
			revealed, err := e.config.Ballot.AllRevealed(roomId, txn)
			if err != nil {
				return err
			}
			if !revealed {
				return room.ErrRevealsOutstanding
			}
		}
		submissions, err := e.config.Database.GetSubmissionsByRoom(
			roomId, txn,
		)
		if err != nil {
			return err
		}
		switch room.Mode(tmpRoom.Mode) {
		case room.ModeTier:
			result, err := e.config.Variance.FilterTier(roomId, txn)
			if err != nil {
				return err
			}
			if len(result.ValidVotes) == 0 {
				return errNoValidVotes
			}
			flagged = result.Flagged
			validVotes = len(result.ValidVotes)
			for i := range submissions {
				assigned := make([]scoring.Tier, len(result.ValidVotes))
				for j := range result.ValidVotes {
					assigned[j] = variance.AssignedTier(
						&result.ValidVotes[j],
						submissions[i].Contributor,
					)
				}
				majority := scoring.MajorityTier(assigned)
				submissions[i].FinalScore = scoring.TierFinalScore(
					submissions[i].ClientScore, majority,
				)
				submissions[i].FinalScored = true
				if err := e.config.Database.UpdateSubmission(
					&submissions[i], txn,
				); err != nil {
					return err
				}
			}
		default:
			result, err := e.config.Variance.FilterFlat(roomId, txn)
			if err != nil {
				return err
			}
			if len(result.ValidScores) == 0 {
				return errNoValidVotes
			}
			flagged = result.Flagged
			validVotes = len(result.ValidScores)
			juryScore = scoring.Median(result.ValidScores)
			tmpRoom.JuryScore = juryScore
			for i := range submissions {
				submissions[i].FinalScore = scoring.FinalScore(
					submissions[i].ClientScore, juryScore,
				)
				submissions[i].FinalScored = true
				if err := e.config.Database.UpdateSubmission(
					&submissions[i], txn,
				); err != nil {
					return err
				}
			}
		}
		tmpRoom.ScoresComputed = true
		return e.config.Database.UpdateRoom(&tmpRoom, txn)
	})
	if err != nil {
		if errors.Is(err, errNoValidVotes) {
			return e.refund(roomId)
		}
		return err
	}
	for _, juror := range flagged {
		e.publish(
			event.VoteFlaggedEventType,
			event.VoteFlaggedEvent{RoomId: roomId, Juror: juror},
		)
	}
	e.publish(
		event.ScoresComputedEventType,
		event.ScoresComputedEvent{
			RoomId:     roomId,
			JuryScore:  juryScore,
			ValidVotes: validVotes,
		},
	)
	return nil
}

// Approve grants the client's settlement approval. Valid only once the
// room is finalized, and only once.
func (e *Engine) Approve(client string, roomId uint64) error {
	err := e.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := e.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if client != tmpRoom.Client {
			return room.ErrNotAuthorized
		}
		switch room.State(tmpRoom.State) {
		case room.StateFinalized:
			// expected
		case room.StateSettled:
			return room.ErrTerminalState
		default:
			return room.ErrWrongPhase
		}
		if tmpRoom.ClientApproved {
			return ErrAlreadyApproved
		}
		tmpRoom.ClientApproved = true
		return e.config.Database.UpdateRoom(&tmpRoom, txn)
	})
	if err != nil {
		return err
	}
	e.publish(
		event.SettlementApprovedEventType,
		event.SettlementApprovedEvent{
			RoomId:    roomId,
			Client:    client,
			Timestamp: e.config.Now(),
		},
	)
	return nil
}

// Execute settles a finalized room. Anyone may call it; both keys are
// checked against room state. The winner is the contributor with the
// strictly highest final score, with ties broken toward the earliest
// submission. The full reward is released from escrow and every
// contributor's reputation record absorbs their final score.
func (e *Engine) Execute(caller string, roomId uint64) error {
	var winner database.Submission
	var reward uint64
	err := e.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := e.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		switch room.State(tmpRoom.State) {
		case room.StateFinalized:
			// expected
		case room.StateSettled:
			return room.ErrTerminalState
		default:
			return room.ErrWrongPhase
		}
		// Silver key: jury score computed
		if !tmpRoom.ScoresComputed {
			return room.ErrScoresNotComputed
		}
		// Gold key: client approval
		if !tmpRoom.ClientApproved {
			return ErrApprovalMissing
		}
		submissions, err := e.config.Database.GetSubmissionsByRoom(
			roomId, txn,
		)
		if err != nil {
			return err
		}
		if len(submissions) == 0 {
			return ErrNoSubmissions
		}
		// Submissions come back in submission order, so strict comparison
		// leaves the earliest submission as the tie winner
		winner = submissions[0]
		for _, submission := range submissions[1:] {
			if submission.FinalScore > winner.FinalScore {
				winner = submission
			}
		}
		for _, submission := range submissions {
			if err := e.config.Identity.AddTaskCompletion(
				submission.Contributor, submission.FinalScore, txn,
			); err != nil {
				return err
			}
		}
		reward = tmpRoom.Reward
		if err := e.config.Vault.Unlock(roomId, txn); err != nil {
			return err
		}
		if err := e.config.Vault.ReleaseToWinner(
			roomId, winner.Contributor, reward, txn,
		); err != nil {
			return err
		}
		tmpRoom.Winner = winner.Contributor
		tmpRoom.State = string(room.StateSettled)
		return e.config.Database.UpdateRoom(&tmpRoom, txn)
	})
	if err != nil {
		return err
	}
	e.config.Logger.Info(
		"room settled",
		"component", "settlement",
		"room", roomId,
		"winner", winner.Contributor,
		"reward", reward,
	)
	e.publish(
		event.RoomStateEventType,
		event.RoomStateEvent{
			RoomId:    roomId,
			FromState: string(room.StateFinalized),
			ToState:   string(room.StateSettled),
		},
	)
	e.publish(
		event.RoomSettledEventType,
		event.RoomSettledEvent{
			RoomId:     roomId,
			Winner:     winner.Contributor,
			Reward:     reward,
			FinalScore: winner.FinalScore,
			Timestamp:  e.config.Now(),
		},
	)
	return nil
}

// refund drains the vault back to the client and settles the room with no
// winner. Reputation records are deliberately left untouched.
func (e *Engine) refund(roomId uint64) error {
	var client string
	var amount uint64
	err := e.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := e.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if room.State(tmpRoom.State) != room.StateJuryReveal {
			return room.ErrWrongPhase
		}
		refunded, err := e.config.Vault.RefundToClient(roomId, txn)
		if err != nil {
			return err
		}
		client = tmpRoom.Client
		amount = refunded
		tmpRoom.State = string(room.StateSettled)
		return e.config.Database.UpdateRoom(&tmpRoom, txn)
	})
	if err != nil {
		return err
	}
	e.config.Logger.Info(
		"room refunded",
		"component", "settlement",
		"room", roomId,
		"client", client,
		"amount", amount,
	)
	e.publish(
		event.RoomStateEventType,
		event.RoomStateEvent{
			RoomId:    roomId,
			FromState: string(room.StateJuryReveal),
			ToState:   string(room.StateSettled),
		},
	)
	e.publish(
		event.RoomRefundedEventType,
		event.RoomRefundedEvent{
			RoomId:    roomId,
			Client:    client,
			Amount:    amount,
			Timestamp: e.config.Now(),
		},
	)
	return nil
}

func (e *Engine) publish(eventType event.EventType, data any) {
	if e.config.EventBus == nil {
		return
	}
	e.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}
