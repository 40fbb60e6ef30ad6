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

package event

import "time"

// VoteCommittedEventType is the event type for vote commitments
const VoteCommittedEventType = EventType("vote.committed")

// VoteCommittedEvent is emitted when a juror commits a vote hash, in either
// scoring mode
type VoteCommittedEvent struct {
	// RoomId is the room the vote belongs to
	RoomId uint64
	// Juror is the committing juror's address
	Juror string
	// Tier indicates a tier-mode commitment
	Tier bool
	// Timestamp is when the commitment was recorded
	Timestamp time.Time
}

// VoteRevealedEventType is the event type for vote reveals
const VoteRevealedEventType = EventType("vote.revealed")

// VoteRevealedEvent is emitted when a juror successfully opens a prior
// commitment
type VoteRevealedEvent struct {
	// RoomId is the room the vote belongs to
	RoomId uint64
	// Juror is the revealing juror's address
	Juror string
	// Score is the revealed score (flat mode only)
	Score uint64
	// Tier indicates a tier-mode reveal
	Tier bool
	// Timestamp is when the reveal was accepted
	Timestamp time.Time
}

// VoteFlaggedEventType is the event type for variance flags
const VoteFlaggedEventType = EventType("vote.flagged")

// VoteFlaggedEvent is emitted when variance detection flags a juror's input
// as an outlier
type VoteFlaggedEvent struct {
	// RoomId is the room the flagged vote belongs to
	RoomId uint64
	// Juror is the flagged juror's address
	Juror string
}
