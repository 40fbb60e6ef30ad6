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

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtualconnekt/roomhq/registry"
)

func TestEnrollWithdraw(t *testing.T) {
	members := registry.NewMemberList()
	members.Enroll("design", "alice")
	members.Enroll("design", "bob")
	members.Enroll("audit", "carol")

	pool, err := members.EligibleJurors("design")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, pool)
	count, err := members.Count("design")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Duplicate enrollment is a no-op
	members.Enroll("design", "alice")
	count, err = members.Count("design")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	members.Withdraw("design", "alice")
	pool, err = members.EligibleJurors("design")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, pool)

	// Categories are independent
	count, err = members.Count("audit")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmptyCategory(t *testing.T) {
	members := registry.NewMemberList()
	pool, err := members.EligibleJurors("nothing")
	require.NoError(t, err)
	assert.Empty(t, pool)
	count, err := members.Count("nothing")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPoolIsolation(t *testing.T) {
	members := registry.NewMemberList()
	members.Enroll("design", "alice")
	pool, err := members.EligibleJurors("design")
	require.NoError(t, err)
	// Mutating the returned slice must not affect the registry
	pool[0] = "mallory"
	pool2, err := members.EligibleJurors("design")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, pool2)
}
