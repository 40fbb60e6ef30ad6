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

// RoomCreatedEventType is the event type for newly created rooms
const RoomCreatedEventType = EventType("room.created")

// RoomCreatedEvent is emitted when a client opens escrow and creates a room
type RoomCreatedEvent struct {
	// RoomId is the identifier assigned to the new room
	RoomId uint64
	// Client is the address of the room's client
	Client string
	// Category is the task category tag used for juror eligibility
	Category string
	// Reward is the escrowed reward amount
	Reward uint64
	// Mode is the scoring mode chosen at creation
	Mode string
	// Timestamp is when the room was created
	Timestamp time.Time
}

// RoomStateEventType is the event type for room state transitions
const RoomStateEventType = EventType("room.state")

// RoomStateEvent is emitted on every room state transition
type RoomStateEvent struct {
	// RoomId is the room that transitioned
	RoomId uint64
	// FromState is the state before the transition
	FromState string
	// ToState is the state after the transition
	ToState string
}

// SubmissionEventType is the event type for contributor submissions
const SubmissionEventType = EventType("room.submission")

// SubmissionEvent is emitted when a contributor submits an entry
type SubmissionEvent struct {
	// RoomId is the room the entry was submitted to
	RoomId uint64
	// Contributor is the submitting address
	Contributor string
	// ContentHash is the content address of the entry
	ContentHash []byte
	// Timestamp is when the entry was accepted
	Timestamp time.Time
}

// JuryAssignedEventType is the event type for jury pool assignment
const JuryAssignedEventType = EventType("room.jury")

// JuryAssignedEvent is emitted when a jury pool is bound to a room
type JuryAssignedEvent struct {
	// RoomId is the room the jury was assigned to
	RoomId uint64
	// Jurors is the ordered list of selected juror addresses
	Jurors []string
}

// ScoresComputedEventType is the event type for completed score aggregation
const ScoresComputedEventType = EventType("room.scored")

// ScoresComputedEvent is emitted once variance filtering and aggregation
// have produced final scores for a room
type ScoresComputedEvent struct {
	// RoomId is the scored room
	RoomId uint64
	// JuryScore is the room-wide jury score (flat mode only)
	JuryScore uint64
	// ValidVotes is the number of votes that survived variance filtering
	ValidVotes int
}
