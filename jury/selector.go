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

// Package jury samples a fixed-size jury from an eligible pool. Selection
// is deterministic for a given room so any observer can recompute and
// audit it, but the index sequence is derived from the room id through a
// cryptographic hash, which a client cannot choose, so the outcome cannot
// be biased toward particular jurors at creation time.
package jury

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"slices"
)

// ErrPoolTooSmall is returned when the eligible pool cannot fill the jury
var ErrPoolTooSmall = errors.New("eligible pool smaller than jury size")

// Select runs a Fisher-Yates shuffle over the eligible pool and returns
// the first jurySize elements. The swap index at shuffle step i is
// SHA-256(roomId, i) reduced modulo (i+1).
func Select(
	roomId uint64,
	eligiblePool []string,
	jurySize int,
) ([]string, error) {
	if jurySize <= 0 {
		return nil, ErrPoolTooSmall
	}
	if len(eligiblePool) < jurySize {
		return nil, ErrPoolTooSmall
	}
	shuffled := slices.Clone(eligiblePool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := shuffleIndex(roomId, i) % uint64(i+1) //nolint:gosec // i is positive
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:jurySize], nil
}

// shuffleIndex derives the pseudo-random index for one shuffle step
func shuffleIndex(roomId uint64, step int) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], roomId)
	binary.BigEndian.PutUint64(buf[8:16], uint64(step)) //nolint:gosec // step is positive
	digest := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(digest[:8])
}
