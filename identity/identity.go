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

// Package identity tracks per-principal keycards: mint-once identity
// records carrying reputation counters. Keycards are non-transferable as a
// matter of API surface: they are keyed by owner and no operation here or
// anywhere else rebinds one to a different owner.
//
// Mutation is segregated into narrow interfaces so each protocol engine
// only receives the capability it needs: the ballot ledger records jury
// participation, variance detection records flags, and settlement records
// task completions.
package identity

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/virtualconnekt/roomhq/database"
)

var (
	ErrAlreadyInitialized = errors.New("identity ledger already initialized")
	ErrNotInitialized     = errors.New("identity ledger not initialized")
	ErrAlreadyMinted      = errors.New("keycard already minted for owner")
)

// Checker reports whether a principal holds a keycard
type Checker interface {
	HasIdentity(address string, txn *database.Txn) (bool, error)
}

// ParticipationRecorder bumps a juror's participation counter. Only the
// commit-reveal ledger holds this capability.
type ParticipationRecorder interface {
	IncrementJuryParticipation(address string, txn *database.Txn) error
}

// FlagRecorder bumps a juror's variance-flag counter. Only variance
// detection holds this capability.
type FlagRecorder interface {
	IncrementVarianceFlags(address string, txn *database.Txn) error
}

// CompletionRecorder records a finished task and folds the score into the
// owner's running average. Only settlement holds this capability.
type CompletionRecorder interface {
	AddTaskCompletion(address string, score uint64, txn *database.Txn) error
}

type LedgerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
}

// Ledger is the database-backed identity ledger implementing all of the
// capability interfaces above.
type Ledger struct {
	config      LedgerConfig
	initialized bool
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{config: cfg}
}

// Initialize bootstraps the ledger. It is called exactly once at process
// startup; a second call fails.
func (l *Ledger) Initialize() error {
	if l.initialized {
		return ErrAlreadyInitialized
	}
	l.initialized = true
	l.config.Logger.Info(
		"identity ledger initialized",
		"component", "identity",
	)
	return nil
}

// Mint creates a keycard for an owner that does not yet hold one
func (l *Ledger) Mint(owner string, txn *database.Txn) error {
	if !l.initialized {
		return ErrNotInitialized
	}
	_, err := l.config.Database.GetKeycard(owner, txn)
	if err == nil {
		return ErrAlreadyMinted
	}
	if !errors.Is(err, database.ErrKeycardNotFound) {
		return err
	}
	return l.config.Database.CreateKeycard(
		&database.Keycard{
			Owner:    owner,
			MintedAt: time.Now(),
		},
		txn,
	)
}

// Get returns an owner's keycard
func (l *Ledger) Get(owner string, txn *database.Txn) (database.Keycard, error) {
	return l.config.Database.GetKeycard(owner, txn)
}

func (l *Ledger) HasIdentity(address string, txn *database.Txn) (bool, error) {
	_, err := l.config.Database.GetKeycard(address, txn)
	if err != nil {
		if errors.Is(err, database.ErrKeycardNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *Ledger) IncrementJuryParticipation(
	address string,
	txn *database.Txn,
) error {
	keycard, err := l.config.Database.GetKeycard(address, txn)
	if err != nil {
		return err
	}
	keycard.JuryParticipations++
	return l.config.Database.UpdateKeycard(&keycard, txn)
}

func (l *Ledger) IncrementVarianceFlags(
	address string,
	txn *database.Txn,
) error {
	keycard, err := l.config.Database.GetKeycard(address, txn)
	if err != nil {
		return err
	}
	keycard.VarianceFlags++
	return l.config.Database.UpdateKeycard(&keycard, txn)
}

func (l *Ledger) AddTaskCompletion(
	address string,
	score uint64,
	txn *database.Txn,
) error {
	keycard, err := l.config.Database.GetKeycard(address, txn)
	if err != nil {
		return err
	}
	// Integer running average weighted by completed task count
	keycard.AverageScore = (keycard.AverageScore*keycard.TasksCompleted + score) /
		(keycard.TasksCompleted + 1)
	keycard.TasksCompleted++
	return l.config.Database.UpdateKeycard(&keycard, txn)
}
