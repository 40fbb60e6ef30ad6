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

package database

import (
	"errors"

	"gorm.io/gorm"
)

var ErrVaultNotFound = errors.New("vault not found")

// Vault holds one room's escrowed funds. The Locked flag is the custody
// gate: fund-moving accessors live in the vault package and every one of
// them checks Locked before touching the balance.
type Vault struct {
	ID      uint   `gorm:"primarykey"`
	RoomID  uint64 `gorm:"uniqueIndex"`
	Client  string `gorm:"size:64"`
	Balance uint64
	Reward  uint64
	Locked  bool
}

func (Vault) TableName() string {
	return "vault"
}

func (d *Database) CreateVault(
	vault *Vault,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(vault).Error
}

func (d *Database) GetVault(
	roomId uint64,
	txn *Txn,
) (Vault, error) {
	tmpVault := Vault{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		First(&tmpVault)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpVault, ErrVaultNotFound
		}
		return tmpVault, result.Error
	}
	return tmpVault, nil
}

func (d *Database) UpdateVault(
	vault *Vault,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(vault).Error
}
