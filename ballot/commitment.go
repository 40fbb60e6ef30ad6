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

package ballot

import (
	"crypto/sha256"
	"encoding/binary"
	"slices"
)

// ScoreCommitment computes the commitment hash for a flat-mode vote:
// SHA-256 over the big-endian score followed by the salt. Jurors compute
// the same hash client-side when committing.
func ScoreCommitment(score uint64, salt []byte) []byte {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], score)
	h.Write(buf[:])
	h.Write(salt)
	return h.Sum(nil)
}

// TierCommitment computes the commitment hash for a tier-mode vote. Both
// tier sets are serialized sorted so the hash does not depend on the order
// a juror happens to list addresses in.
func TierCommitment(tierA, tierB []string, salt []byte) []byte {
	h := sha256.New()
	writeTierSet(h.Write, tierA)
	h.Write([]byte{0x01})
	writeTierSet(h.Write, tierB)
	h.Write(salt)
	return h.Sum(nil)
}

func writeTierSet(write func([]byte) (int, error), addresses []string) {
	sorted := slices.Clone(addresses)
	slices.Sort(sorted)
	for _, address := range sorted {
		write([]byte(address)) //nolint:errcheck
		write([]byte{0x00})    //nolint:errcheck
	}
}
