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

// Package roomhq coordinates paid task rooms: escrowed rewards,
// contributor submissions, commit-reveal jury voting, variance filtering,
// score aggregation, and dual-key settlement. The Coordinator is the
// public entry surface; each operation executes as a single atomic
// transaction against the room it targets, and operations on the same
// room are serialized.
package roomhq

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/virtualconnekt/roomhq/ballot"
	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/event"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/jury"
	"github.com/virtualconnekt/roomhq/registry"
	"github.com/virtualconnekt/roomhq/room"
	"github.com/virtualconnekt/roomhq/settlement"
	"github.com/virtualconnekt/roomhq/variance"
	"github.com/virtualconnekt/roomhq/vault"
)

type Coordinator struct {
	config     Config
	db         *database.Database
	eventBus   *event.EventBus
	identity   *identity.Ledger
	registry   registry.Registry
	vault      *vault.Vault
	rooms      *room.StateMachine
	ballots    *ballot.Ledger
	variance   *variance.Detector
	settlement *settlement.Engine
	metrics    *coordinatorMetrics
	roomLocks  sync.Map
}

// New wires up the full coordinator: database, event bus, identity
// ledger, and the protocol engines. The identity ledger is initialized
// exactly once here.
func New(cfg Config) (*Coordinator, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.jurySize <= 0 {
		cfg.jurySize = DefaultJurySize
	}
	if cfg.registry == nil {
		cfg.registry = registry.NewMemberList()
	}
	db, err := database.New(&database.Config{
		Logger:  cfg.logger,
		DataDir: cfg.dataDir,
	})
	if err != nil {
		return nil, err
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	identityLedger := identity.NewLedger(identity.LedgerConfig{
		Logger:   cfg.logger,
		Database: db,
	})
	if err := identityLedger.Initialize(); err != nil {
		return nil, err
	}
	escrow := vault.New(vault.VaultConfig{
		Logger:   cfg.logger,
		Database: db,
	})
	detector := variance.NewDetector(variance.DetectorConfig{
		Logger:   cfg.logger,
		Database: db,
		Identity: identityLedger,
	})
	ballots := ballot.NewLedger(ballot.LedgerConfig{
		Logger:   cfg.logger,
		Database: db,
		EventBus: eventBus,
		Identity: identityLedger,
		Now:      cfg.now,
	})
	c := &Coordinator{
		config:   cfg,
		db:       db,
		eventBus: eventBus,
		identity: identityLedger,
		registry: cfg.registry,
		vault:    escrow,
		variance: detector,
		ballots:  ballots,
		rooms: room.NewStateMachine(room.StateMachineConfig{
			Logger:   cfg.logger,
			Database: db,
			EventBus: eventBus,
			Vault:    escrow,
			Identity: identityLedger,
			Now:      cfg.now,
		}),
		settlement: settlement.NewEngine(settlement.EngineConfig{
			Logger:   cfg.logger,
			Database: db,
			EventBus: eventBus,
			Vault:    escrow,
			Variance: detector,
			Identity: identityLedger,
			Ballot:   ballots,
			Now:      cfg.now,
		}),
	}
	if cfg.promRegistry != nil {
		c.initMetrics(cfg.promRegistry)
	}
	return c, nil
}

// Close shuts down the event bus and closes the database
func (c *Coordinator) Close() error {
	c.eventBus.Stop()
	return c.db.Close()
}

// EventBus returns the coordinator's event bus for subscribing to
// protocol events
func (c *Coordinator) EventBus() *event.EventBus {
	return c.eventBus
}

// Identity returns the identity ledger
func (c *Coordinator) Identity() *identity.Ledger {
	return c.identity
}

// Registry returns the juror eligibility registry
func (c *Coordinator) Registry() registry.Registry {
	return c.registry
}

// Database returns the underlying database
func (c *Coordinator) Database() *database.Database {
	return c.db
}

// lockRoom serializes operations that target the same room
func (c *Coordinator) lockRoom(roomId uint64) func() {
	value, _ := c.roomLocks.LoadOrStore(roomId, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

// Deposit credits spendable funds to an address
func (c *Coordinator) Deposit(address string, amount uint64) error {
	return c.db.CreditAccount(address, amount, nil)
}

// Balance returns an address's spendable balance. An address with no
// account has a zero balance.
func (c *Coordinator) Balance(address string) (uint64, error) {
	account, err := c.db.GetAccount(address, nil)
	if err != nil {
		if errors.Is(err, database.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// CreateRoom escrows the reward and creates a room in its initial state
func (c *Coordinator) CreateRoom(
	params room.CreateRoomParams,
) (uint64, error) {
	roomId, err := c.rooms.Create(params)
	if err != nil {
		return 0, err
	}
	if c.metrics != nil {
		c.metrics.roomsCreated.Inc()
	}
	return roomId, nil
}

// OpenRoom opens a room for submissions. Client only.
func (c *Coordinator) OpenRoom(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.rooms.Open(caller, roomId)
}

// SubmitEntry records a contributor's entry, optionally storing its
// payload body content-addressed
func (c *Coordinator) SubmitEntry(
	caller string,
	roomId uint64,
	contentHash []byte,
	payload []byte,
) error {
	defer c.lockRoom(roomId)()
	if err := c.rooms.Submit(caller, roomId, contentHash, payload); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.submissions.Inc()
	}
	return nil
}

// CloseRoom ends the submission phase
func (c *Coordinator) CloseRoom(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.rooms.Close(caller, roomId)
}

// AssignJury samples a jury from the room's category pool and binds it to
// the room
func (c *Coordinator) AssignJury(roomId uint64) error {
	defer c.lockRoom(roomId)()
	tmpRoom, err := c.rooms.Get(roomId)
	if err != nil {
		return err
	}
	pool, err := c.registry.EligibleJurors(tmpRoom.Category)
	if err != nil {
		return err
	}
	jurors, err := jury.Select(roomId, pool, c.config.jurySize)
	if err != nil {
		return err
	}
	return c.rooms.AssignJury(roomId, jurors)
}

// StartJuryPhase opens the jury commit phase
func (c *Coordinator) StartJuryPhase(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.rooms.StartJury(caller, roomId)
}

// CommitVote records a flat-mode vote commitment
func (c *Coordinator) CommitVote(
	juror string,
	roomId uint64,
	commitHash []byte,
) error {
	defer c.lockRoom(roomId)()
	if err := c.ballots.Commit(juror, roomId, commitHash); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.votesCommitted.WithLabelValues(string(room.ModeFlat)).Inc()
	}
	return nil
}

// CommitTierVote records a tier-mode vote commitment
func (c *Coordinator) CommitTierVote(
	juror string,
	roomId uint64,
	commitHash []byte,
) error {
	defer c.lockRoom(roomId)()
	if err := c.ballots.CommitTier(juror, roomId, commitHash); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.votesCommitted.WithLabelValues(string(room.ModeTier)).Inc()
	}
	return nil
}

// StartRevealPhase opens the reveal phase
func (c *Coordinator) StartRevealPhase(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.rooms.StartReveal(caller, roomId)
}

// RevealVote opens a flat-mode commitment
func (c *Coordinator) RevealVote(
	juror string,
	roomId uint64,
	score uint64,
	salt []byte,
) error {
	defer c.lockRoom(roomId)()
	if err := c.ballots.Reveal(juror, roomId, score, salt); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.votesRevealed.WithLabelValues(string(room.ModeFlat)).Inc()
	}
	return nil
}

// RevealTierVote opens a tier-mode commitment
func (c *Coordinator) RevealTierVote(
	juror string,
	roomId uint64,
	tierA []string,
	tierB []string,
	salt []byte,
) error {
	defer c.lockRoom(roomId)()
	if err := c.ballots.RevealTier(juror, roomId, tierA, tierB, salt); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.votesRevealed.WithLabelValues(string(room.ModeTier)).Inc()
	}
	return nil
}

// SetClientScore records the client's score for a contributor
func (c *Coordinator) SetClientScore(
	caller string,
	roomId uint64,
	contributor string,
	score uint64,
) error {
	defer c.lockRoom(roomId)()
	return c.rooms.SetClientScore(caller, roomId, contributor, score)
}

// ComputeScores runs variance filtering and aggregation for a room. With
// no valid votes the room refunds and settles immediately.
func (c *Coordinator) ComputeScores(roomId uint64) error {
	defer c.lockRoom(roomId)()
	if err := c.settlement.ComputeScores(roomId); err != nil {
		return err
	}
	if c.metrics != nil {
		tmpRoom, err := c.rooms.Get(roomId)
		if err == nil && room.State(tmpRoom.State) == room.StateSettled {
			c.metrics.settlements.WithLabelValues("refunded").Inc()
		}
	}
	return nil
}

// FinalizeRoom records that scoring is complete and advances the room
func (c *Coordinator) FinalizeRoom(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.rooms.Finalize(caller, roomId)
}

// ApproveSettlement grants the client's settlement approval
func (c *Coordinator) ApproveSettlement(client string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	return c.settlement.Approve(client, roomId)
}

// ExecuteSettlement settles a finalized room, releasing the reward to the
// winner
func (c *Coordinator) ExecuteSettlement(caller string, roomId uint64) error {
	defer c.lockRoom(roomId)()
	if err := c.settlement.Execute(caller, roomId); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.settlements.WithLabelValues("paid").Inc()
	}
	return nil
}

// GetRoom returns a room's current record
func (c *Coordinator) GetRoom(roomId uint64) (database.Room, error) {
	return c.rooms.Get(roomId)
}
