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

// Package vault implements escrow custody for room rewards. A vault is
// created locked, atomically with its room, and stays locked until
// settlement or the zero-valid-votes refund. Every fund-moving operation
// checks the lock before touching a balance; the lock is the single safety
// property the rest of the protocol protects.
package vault

import (
	"errors"
	"io"
	"log/slog"

	"github.com/virtualconnekt/roomhq/database"
)

var (
	ErrLocked        = errors.New("vault is locked")
	ErrNotLocked     = errors.New("vault is not locked")
	ErrBalanceTooLow = errors.New("vault balance too low")
	// ErrUnderfunded is returned when the client cannot cover the escrow
	// deposit at room creation
	ErrUnderfunded = errors.New("escrow deposit underfunded")
)

type VaultConfig struct {
	Logger   *slog.Logger
	Database *database.Database
}

// Vault is the escrow engine. All operations expect to run inside the
// caller's transaction so fund movement commits together with the state
// transition that authorized it.
type Vault struct {
	config VaultConfig
}

func New(cfg VaultConfig) *Vault {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Vault{config: cfg}
}

// CreateAndLock debits the escrow deposit from the client and stores it as
// the locked balance of a new vault tied to the room
func (v *Vault) CreateAndLock(
	roomId uint64,
	client string,
	amount uint64,
	txn *database.Txn,
) error {
	if err := v.config.Database.DebitAccount(client, amount, txn); err != nil {
		if errors.Is(err, database.ErrInsufficientBalance) {
			return ErrUnderfunded
		}
		return err
	}
	tmpVault := database.Vault{
		RoomID:  roomId,
		Client:  client,
		Balance: amount,
		Reward:  amount,
		Locked:  true,
	}
	if err := v.config.Database.CreateVault(&tmpVault, txn); err != nil {
		return err
	}
	v.config.Logger.Debug(
		"vault created",
		"component", "vault",
		"room", roomId,
		"amount", amount,
	)
	return nil
}

// Unlock flips the custody gate open. It is only called once the room has
// reached its settled state.
func (v *Vault) Unlock(roomId uint64, txn *database.Txn) error {
	tmpVault, err := v.config.Database.GetVault(roomId, txn)
	if err != nil {
		return err
	}
	if !tmpVault.Locked {
		return ErrNotLocked
	}
	tmpVault.Locked = false
	return v.config.Database.UpdateVault(&tmpVault, txn)
}

// ReleaseToWinner moves the reward from the vault balance to the winner's
// account. The vault must already be unlocked.
func (v *Vault) ReleaseToWinner(
	roomId uint64,
	winner string,
	amount uint64,
	txn *database.Txn,
) error {
	tmpVault, err := v.config.Database.GetVault(roomId, txn)
	if err != nil {
		return err
	}
	if tmpVault.Locked {
		return ErrLocked
	}
	if amount > tmpVault.Balance {
		return ErrBalanceTooLow
	}
	tmpVault.Balance -= amount
	if err := v.config.Database.UpdateVault(&tmpVault, txn); err != nil {
		return err
	}
	return v.config.Database.CreditAccount(winner, amount, txn)
}

// RefundToClient unlocks the vault and drains the entire remaining balance
// back to the client. Used only for the zero-valid-votes path.
func (v *Vault) RefundToClient(
	roomId uint64,
	txn *database.Txn,
) (uint64, error) {
	tmpVault, err := v.config.Database.GetVault(roomId, txn)
	if err != nil {
		return 0, err
	}
	refunded := tmpVault.Balance
	tmpVault.Balance = 0
	tmpVault.Locked = false
	if err := v.config.Database.UpdateVault(&tmpVault, txn); err != nil {
		return 0, err
	}
	if err := v.config.Database.CreditAccount(
		tmpVault.Client, refunded, txn,
	); err != nil {
		return 0, err
	}
	v.config.Logger.Debug(
		"vault refunded",
		"component", "vault",
		"room", roomId,
		"amount", refunded,
	)
	return refunded, nil
}

// Balance returns a vault's current balance and lock state
func (v *Vault) Balance(
	roomId uint64,
	txn *database.Txn,
) (uint64, bool, error) {
	tmpVault, err := v.config.Database.GetVault(roomId, txn)
	if err != nil {
		return 0, false, err
	}
	return tmpVault.Balance, tmpVault.Locked, nil
}
