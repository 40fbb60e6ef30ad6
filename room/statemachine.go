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

// Package room owns the room lifecycle: a strict forward state machine
// over escrowed task rooms. Every operation checks all of its guards
// before mutating anything and runs as a single database transaction, so a
// failed guard leaves the room untouched. Phase advancement is driven by
// callers checking wall-clock deadlines at call time; there are no timers.
package room

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/event"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/vault"
)

type StateMachineConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	EventBus *event.EventBus
	Vault    *vault.Vault
	Identity identity.Checker
	// Now is the wall clock consulted for deadline guards
	Now func() time.Time
}

// StateMachine validates and applies room lifecycle transitions
type StateMachine struct {
	config StateMachineConfig
}

func NewStateMachine(cfg StateMachineConfig) *StateMachine {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StateMachine{config: cfg}
}

// CreateRoomParams carries everything a client supplies at room creation
type CreateRoomParams struct {
	Client         string
	Category       string
	TaskHash       []byte
	Reward         uint64
	Mode           Mode
	SubmitDeadline time.Time
	CommitDeadline time.Time
	RevealDeadline time.Time
}

// Create validates the client, withdraws the reward into a locked vault,
// and creates the room in its initial state. Room and vault are created in
// the same transaction.
func (s *StateMachine) Create(params CreateRoomParams) (uint64, error) {
	if !params.Mode.Valid() {
		return 0, ErrInvalidMode
	}
	if !params.SubmitDeadline.Before(params.CommitDeadline) ||
		!params.CommitDeadline.Before(params.RevealDeadline) {
		return 0, ErrDeadlineOrder
	}
	var tmpRoom database.Room
	err := s.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		ok, err := s.config.Identity.HasIdentity(params.Client, txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrIdentityRequired
		}
		tmpRoom = database.Room{
			Client:         params.Client,
			Category:       params.Category,
			TaskHash:       params.TaskHash,
			Reward:         params.Reward,
			Mode:           string(params.Mode),
			State:          string(StateInit),
			SubmitDeadline: params.SubmitDeadline,
			CommitDeadline: params.CommitDeadline,
			RevealDeadline: params.RevealDeadline,
			CreatedAt:      s.config.Now(),
		}
		if err := s.config.Database.CreateRoom(&tmpRoom, txn); err != nil {
			return err
		}
		return s.config.Vault.CreateAndLock(
			tmpRoom.ID,
			params.Client,
			params.Reward,
			txn,
		)
	})
	if err != nil {
		return 0, err
	}
	s.config.Logger.Info(
		"room created",
		"component", "room",
		"room", tmpRoom.ID,
		"client", params.Client,
		"reward", params.Reward,
		"mode", params.Mode,
	)
	s.publish(
		event.RoomCreatedEventType,
		event.RoomCreatedEvent{
			RoomId:    tmpRoom.ID,
			Client:    params.Client,
			Category:  params.Category,
			Reward:    params.Reward,
			Mode:      string(params.Mode),
			Timestamp: tmpRoom.CreatedAt,
		},
	)
	return tmpRoom.ID, nil
}

// Open moves a room from its initial state into the submission phase.
// Client only.
func (s *StateMachine) Open(caller string, roomId uint64) error {
	return s.advance(
		roomId,
		StateOpen,
		func(tmpRoom *database.Room) error {
			if caller != tmpRoom.Client {
				return ErrNotAuthorized
			}
			return nil
		},
	)
}

// Submit records a contributor's entry. Valid only while the room is open
// and before the submission deadline; one submission per contributor,
// enforced by key presence. A non-nil payload is stored content-addressed
// after verifying it matches the declared hash.
func (s *StateMachine) Submit(
	caller string,
	roomId uint64,
	contentHash []byte,
	payload []byte,
) error {
	var submittedAt time.Time
	err := s.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := s.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if State(tmpRoom.State) != StateOpen {
			return ErrWrongPhase
		}
		now := s.config.Now()
		if now.After(tmpRoom.SubmitDeadline) {
			return ErrDeadlinePassed
		}
		ok, err := s.config.Identity.HasIdentity(caller, txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrIdentityRequired
		}
		if _, err := s.config.Database.GetSubmission(
			roomId, caller, txn,
		); err == nil {
			return ErrAlreadySubmitted
		} else if !errors.Is(err, database.ErrSubmissionNotFound) {
			return err
		}
		if payload != nil {
			digest := sha256.Sum256(payload)
			if !bytes.Equal(digest[:], contentHash) {
				return ErrContentMismatch
			}
			if err := s.config.Database.PutBlob(
				contentHash, payload, txn,
			); err != nil {
				return err
			}
		}
		submittedAt = now
		return s.config.Database.AddSubmission(
			&database.Submission{
				RoomID:      roomId,
				Contributor: caller,
				ContentHash: contentHash,
				SubmittedAt: now,
			},
			txn,
		)
	})
	if err != nil {
		return err
	}
	s.publish(
		event.SubmissionEventType,
		event.SubmissionEvent{
			RoomId:      roomId,
			Contributor: caller,
			ContentHash: contentHash,
			Timestamp:   submittedAt,
		},
	)
	return nil
}

// Close ends the submission phase. The client may close at any time;
// anyone may close once the submission deadline has passed.
func (s *StateMachine) Close(caller string, roomId uint64) error {
	return s.advance(
		roomId,
		StateClosed,
		func(tmpRoom *database.Room) error {
			if caller == tmpRoom.Client {
				return nil
			}
			if s.config.Now().After(tmpRoom.SubmitDeadline) {
				// Permissionless once overdue
				return nil
			}
			return ErrNotAuthorized
		},
	)
}

// AssignJury binds an ordered jury pool to a closed room, replacing any
// prior pool. Jury assignment happens between closing submissions and
// starting the jury phase.
func (s *StateMachine) AssignJury(roomId uint64, jurors []string) error {
	if len(jurors) == 0 {
		return ErrEmptyJury
	}
	err := s.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := s.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if State(tmpRoom.State) != StateClosed {
			return ErrWrongPhase
		}
		return s.config.Database.SetJuryPool(roomId, jurors, txn)
	})
	if err != nil {
		return err
	}
	s.publish(
		event.JuryAssignedEventType,
		event.JuryAssignedEvent{
			RoomId: roomId,
			Jurors: jurors,
		},
	)
	return nil
}

// StartJury opens the jury commit phase. Requires a jury pool to already
// be assigned.
func (s *StateMachine) StartJury(caller string, roomId uint64) error {
	return s.advance(
		roomId,
		StateJuryActive,
		func(tmpRoom *database.Room) error {
			return nil
		},
		func(tmpRoom *database.Room, txn *database.Txn) error {
			jurors, err := s.config.Database.GetJuryPool(roomId, txn)
			if err != nil {
				return err
			}
			if len(jurors) == 0 {
				return ErrEmptyJury
			}
			return nil
		},
	)
}

// StartReveal opens the reveal phase. Requires the commit deadline to have
// passed, or every selected juror to have committed.
func (s *StateMachine) StartReveal(caller string, roomId uint64) error {
	return s.advance(
		roomId,
		StateJuryReveal,
		func(tmpRoom *database.Room) error {
			return nil
		},
		func(tmpRoom *database.Room, txn *database.Txn) error {
			if s.config.Now().After(tmpRoom.CommitDeadline) {
				return nil
			}
			committed, total, err := s.commitProgress(tmpRoom, txn)
			if err != nil {
				return err
			}
			if committed < total {
				return ErrCommitsOutstanding
			}
			return nil
		},
	)
}

// SetClientScore records the client's 0-100 score for a contributor's
// submission. Must precede finalization; the score may be revised until
// then.
func (s *StateMachine) SetClientScore(
	caller string,
	roomId uint64,
	contributor string,
	score uint64,
) error {
	if score > 100 {
		return ErrScoreOutOfRange
	}
	return s.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := s.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		if caller != tmpRoom.Client {
			return ErrNotAuthorized
		}
		switch State(tmpRoom.State) {
		case StateFinalized:
			return ErrWrongPhase
		case StateSettled:
			return ErrTerminalState
		}
		tmpSubmission, err := s.config.Database.GetSubmission(
			roomId, contributor, txn,
		)
		if err != nil {
			return err
		}
		tmpSubmission.ClientScore = score
		tmpSubmission.ClientScored = true
		return s.config.Database.UpdateSubmission(&tmpSubmission, txn)
	})
}

// Finalize records that scoring is complete and advances the room. It does
// not compute scores itself; variance detection and aggregation must have
// already run.
func (s *StateMachine) Finalize(caller string, roomId uint64) error {
	return s.advance(
		roomId,
		StateFinalized,
		func(tmpRoom *database.Room) error {
			if !tmpRoom.ScoresComputed {
				return ErrScoresNotComputed
			}
			return nil
		},
	)
}

// Get returns a room's current record
func (s *StateMachine) Get(roomId uint64) (database.Room, error) {
	return s.config.Database.GetRoom(roomId, nil)
}

// advance applies a single forward transition. The transition validity
// check runs first, so settled rooms always report their terminal state,
// then the authorization guard, then any extra guards; only when
// everything passes is the room row updated.
func (s *StateMachine) advance(
	roomId uint64,
	to State,
	authGuard func(*database.Room) error,
	extraGuards ...func(*database.Room, *database.Txn) error,
) error {
	var fromState State
	err := s.config.Database.Transaction(true).Do(func(txn *database.Txn) error {
		tmpRoom, err := s.config.Database.GetRoom(roomId, txn)
		if err != nil {
			return err
		}
		fromState = State(tmpRoom.State)
		if err := fromState.CheckAdvance(to); err != nil {
			return err
		}
		if err := authGuard(&tmpRoom); err != nil {
			return err
		}
		for _, guard := range extraGuards {
			if err := guard(&tmpRoom, txn); err != nil {
				return err
			}
		}
		tmpRoom.State = string(to)
		return s.config.Database.UpdateRoom(&tmpRoom, txn)
	})
	if err != nil {
		return err
	}
	s.config.Logger.Info(
		"room state changed",
		"component", "room",
		"room", roomId,
		"from", fromState,
		"to", to,
	)
	s.publish(
		event.RoomStateEventType,
		event.RoomStateEvent{
			RoomId:    roomId,
			FromState: string(fromState),
			ToState:   string(to),
		},
	)
	return nil
}

// commitProgress counts commitments against the jury pool size for the
// room's scoring mode
func (s *StateMachine) commitProgress(
	tmpRoom *database.Room,
	txn *database.Txn,
) (int, int, error) {
	jurors, err := s.config.Database.GetJuryPool(tmpRoom.ID, txn)
	if err != nil {
		return 0, 0, err
	}
	var committed int
	switch Mode(tmpRoom.Mode) {
	case ModeTier:
		votes, err := s.config.Database.GetTierVotesByRoom(tmpRoom.ID, txn)
		if err != nil {
			return 0, 0, err
		}
		committed = len(votes)
	default:
		votes, err := s.config.Database.GetVotesByRoom(tmpRoom.ID, txn)
		if err != nil {
			return 0, 0, err
		}
		committed = len(votes)
	}
	return committed, len(jurors), nil
}

func (s *StateMachine) publish(eventType event.EventType, data any) {
	if s.config.EventBus == nil {
		return
	}
	s.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
}
