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

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient account balance")
)

// Account tracks the spendable balance of one address. Escrow deposits are
// debited from here at room creation and settlement/refund payouts are
// credited back.
type Account struct {
	ID      uint   `gorm:"primarykey"`
	Address string `gorm:"uniqueIndex;size:64"`
	Balance uint64
}

func (Account) TableName() string {
	return "account"
}

func (d *Database) GetAccount(
	address string,
	txn *Txn,
) (Account, error) {
	tmpAccount := Account{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("address = ?", address).
		First(&tmpAccount)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpAccount, ErrAccountNotFound
		}
		return tmpAccount, result.Error
	}
	return tmpAccount, nil
}

// CreditAccount adds funds to an address, creating the account row on first
// use
func (d *Database) CreditAccount(
	address string,
	amount uint64,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	account, err := d.GetAccount(address, txn)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		account = Account{Address: address}
	}
	account.Balance += amount
	if account.ID == 0 {
		return txn.Metadata().Create(&account).Error
	}
	return txn.Metadata().Save(&account).Error
}

// DebitAccount removes funds from an address. It fails with
// ErrInsufficientBalance when the account cannot cover the amount, without
// changing anything.
func (d *Database) DebitAccount(
	address string,
	amount uint64,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	account, err := d.GetAccount(address, txn)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInsufficientBalance
		}
		return err
	}
	if account.Balance < amount {
		return ErrInsufficientBalance
	}
	account.Balance -= amount
	return txn.Metadata().Save(&account).Error
}
