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

package room

// State is a room's lifecycle phase. States advance in strict forward
// order with no skipping and no going back; Settled is terminal.
type State string

const (
	StateInit       State = "INIT"
	StateOpen       State = "OPEN"
	StateClosed     State = "CLOSED"
	StateJuryActive State = "JURY_ACTIVE"
	StateJuryReveal State = "JURY_REVEAL"
	StateFinalized  State = "FINALIZED"
	StateSettled    State = "SETTLED"
)

// nextState is the fixed transition graph
var nextState = map[State]State{
	StateInit:       StateOpen,
	StateOpen:       StateClosed,
	StateClosed:     StateJuryActive,
	StateJuryActive: StateJuryReveal,
	StateJuryReveal: StateFinalized,
	StateFinalized:  StateSettled,
}

// Terminal returns true for the terminal state
func (s State) Terminal() bool {
	return s == StateSettled
}

// CheckAdvance validates a transition from s to the given state. A
// transition out of the terminal state fails with ErrTerminalState so
// callers can tell "already done" apart from "wrong order".
func (s State) CheckAdvance(to State) error {
	if s.Terminal() {
		return ErrTerminalState
	}
	if nextState[s] != to {
		return TransitionError{From: s, To: to}
	}
	return nil
}

// Mode is a room's scoring mode, chosen at creation
type Mode string

const (
	// ModeFlat scores by single 0-100 votes reduced to a median
	ModeFlat Mode = "flat"
	// ModeTier scores by slot-limited tier assignments reduced by majority
	ModeTier Mode = "tier"
)

// Valid returns true for a known scoring mode
func (m Mode) Valid() bool {
	switch m {
	case ModeFlat, ModeTier:
		return true
	default:
		return false
	}
}
