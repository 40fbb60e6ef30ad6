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

package jury_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtualconnekt/roomhq/jury"
)

func testPool(size int) []string {
	pool := make([]string, size)
	for i := range pool {
		pool[i] = fmt.Sprintf("juror-%02d", i)
	}
	return pool
}

func TestSelectDeterministic(t *testing.T) {
	pool := testPool(20)
	first, err := jury.Select(42, pool, 5)
	require.NoError(t, err)
	second, err := jury.Select(42, pool, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelectVariesByRoom(t *testing.T) {
	pool := testPool(20)
	a, err := jury.Select(1, pool, 5)
	require.NoError(t, err)
	b, err := jury.Select(2, pool, 5)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSelectSubsetWithoutRepeats(t *testing.T) {
	pool := testPool(12)
	selected, err := jury.Select(7, pool, 5)
	require.NoError(t, err)
	require.Len(t, selected, 5)
	seen := make(map[string]bool)
	for _, member := range selected {
		assert.Contains(t, pool, member)
		assert.False(t, seen[member], "duplicate juror %s", member)
		seen[member] = true
	}
}

func TestSelectWholePool(t *testing.T) {
	pool := testPool(5)
	selected, err := jury.Select(3, pool, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, pool, selected)
}

func TestSelectPoolTooSmall(t *testing.T) {
	_, err := jury.Select(1, testPool(4), 5)
	assert.ErrorIs(t, err, jury.ErrPoolTooSmall)
	_, err = jury.Select(1, nil, 5)
	assert.ErrorIs(t, err, jury.ErrPoolTooSmall)
	_, err = jury.Select(1, testPool(4), 0)
	assert.ErrorIs(t, err, jury.ErrPoolTooSmall)
}

func TestSelectDoesNotMutatePool(t *testing.T) {
	pool := testPool(10)
	original := testPool(10)
	_, err := jury.Select(9, pool, 4)
	require.NoError(t, err)
	assert.Equal(t, original, pool)
}
