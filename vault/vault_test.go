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

package vault_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/vault"
)

func testVault(t *testing.T) (*vault.Vault, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	return vault.New(vault.VaultConfig{Database: db}), db
}

func TestCreateAndLock(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-1", 1000, nil))
	require.NoError(t, escrow.CreateAndLock(101, "vault-client-1", 600, nil))
	account, err := db.GetAccount("vault-client-1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), account.Balance)
	balance, locked, err := escrow.Balance(101, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), balance)
	assert.True(t, locked)
}

func TestCreateAndLockUnderfunded(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-2", 100, nil))
	err := escrow.CreateAndLock(102, "vault-client-2", 101, nil)
	assert.ErrorIs(t, err, vault.ErrUnderfunded)
	// Failed escrow leaves the client account untouched
	account, err := db.GetAccount("vault-client-2", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), account.Balance)
}

func TestReleaseRequiresUnlock(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-3", 500, nil))
	require.NoError(t, escrow.CreateAndLock(103, "vault-client-3", 500, nil))
	err := escrow.ReleaseToWinner(103, "vault-winner-3", 500, nil)
	assert.ErrorIs(t, err, vault.ErrLocked)
	require.NoError(t, escrow.Unlock(103, nil))
	require.NoError(t, escrow.ReleaseToWinner(103, "vault-winner-3", 500, nil))
	account, err := db.GetAccount("vault-winner-3", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), account.Balance)
	balance, locked, err := escrow.Balance(103, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
	assert.False(t, locked)
}

func TestUnlockTwice(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-4", 100, nil))
	require.NoError(t, escrow.CreateAndLock(104, "vault-client-4", 100, nil))
	require.NoError(t, escrow.Unlock(104, nil))
	assert.ErrorIs(t, escrow.Unlock(104, nil), vault.ErrNotLocked)
}

func TestReleaseBalanceTooLow(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-5", 100, nil))
	require.NoError(t, escrow.CreateAndLock(105, "vault-client-5", 100, nil))
	require.NoError(t, escrow.Unlock(105, nil))
	err := escrow.ReleaseToWinner(105, "vault-winner-5", 101, nil)
	assert.ErrorIs(t, err, vault.ErrBalanceTooLow)
}

func TestRefundToClient(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	require.NoError(t, db.CreditAccount("vault-client-6", 1000, nil))
	require.NoError(t, escrow.CreateAndLock(106, "vault-client-6", 750, nil))
	refunded, err := escrow.RefundToClient(106, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), refunded)
	account, err := db.GetAccount("vault-client-6", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), account.Balance)
	balance, locked, err := escrow.Balance(106, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
	assert.False(t, locked)
}

func TestVaultNotFound(t *testing.T) {
	escrow, db := testVault(t)
	defer db.Close()
	_, _, err := escrow.Balance(9107, nil)
	assert.ErrorIs(t, err, database.ErrVaultNotFound)
	assert.ErrorIs(t, escrow.Unlock(9107, nil), database.ErrVaultNotFound)
}
