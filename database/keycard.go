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
	"time"

	"gorm.io/gorm"
)

var ErrKeycardNotFound = errors.New("keycard not found")

// Keycard is one principal's identity and reputation record. Keycards are
// keyed by owner with a uniqueness constraint and no accessor anywhere
// rebinds Owner, which is what makes them non-transferable.
type Keycard struct {
	ID                 uint   `gorm:"primarykey"`
	Owner              string `gorm:"uniqueIndex;size:64"`
	TasksCompleted     uint64
	AverageScore       uint64
	JuryParticipations uint64
	VarianceFlags      uint64
	MintedAt           time.Time
}

func (Keycard) TableName() string {
	return "keycard"
}

func (d *Database) CreateKeycard(
	keycard *Keycard,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(keycard).Error
}

func (d *Database) GetKeycard(
	owner string,
	txn *Txn,
) (Keycard, error) {
	tmpKeycard := Keycard{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("owner = ?", owner).
		First(&tmpKeycard)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpKeycard, ErrKeycardNotFound
		}
		return tmpKeycard, result.Error
	}
	return tmpKeycard, nil
}

func (d *Database) UpdateKeycard(
	keycard *Keycard,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(keycard).Error
}
