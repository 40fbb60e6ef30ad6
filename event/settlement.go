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

// SettlementApprovedEventType is the event type for client settlement approval
const SettlementApprovedEventType = EventType("settlement.approved")

// SettlementApprovedEvent is emitted when the client grants their settlement
// approval (the gold key)
type SettlementApprovedEvent struct {
	// RoomId is the approved room
	RoomId uint64
	// Client is the approving client address
	Client string
	// Timestamp is when approval was granted
	Timestamp time.Time
}

// RoomSettledEventType is the event type for executed settlements
const RoomSettledEventType = EventType("settlement.executed")

// RoomSettledEvent is emitted when settlement releases the escrowed reward
// to the winning contributor
type RoomSettledEvent struct {
	// RoomId is the settled room
	RoomId uint64
	// Winner is the winning contributor's address
	Winner string
	// Reward is the amount released from escrow
	Reward uint64
	// FinalScore is the winner's combined final score
	FinalScore uint64
	// Timestamp is when settlement executed
	Timestamp time.Time
}

// RoomRefundedEventType is the event type for zero-valid-votes refunds
const RoomRefundedEventType = EventType("settlement.refunded")

// RoomRefundedEvent is emitted when a room with no valid votes refunds its
// full escrow back to the client
type RoomRefundedEvent struct {
	// RoomId is the refunded room
	RoomId uint64
	// Client is the refunded client address
	Client string
	// Amount is the refunded balance
	Amount uint64
	// Timestamp is when the refund executed
	Timestamp time.Time
}
