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

import (
	"errors"
	"fmt"
)

// Every guard failure maps to a distinct error value so callers always see
// which condition rejected the operation, never a generic failure.
var (
	// state violations
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrTerminalState      = errors.New("room state is terminal")
	ErrWrongPhase         = errors.New("operation not valid in current room state")
	ErrDeadlinePassed     = errors.New("deadline has passed")
	ErrCommitsOutstanding = errors.New("commit phase still open")
	ErrRevealsOutstanding = errors.New("reveal phase still open")
	ErrScoresNotComputed  = errors.New("scores not computed")
	ErrModeMismatch       = errors.New("operation does not match room scoring mode")

	// authorization
	ErrNotAuthorized    = errors.New("caller not authorized")
	ErrIdentityRequired = errors.New("caller has no identity record")

	// integrity
	ErrContentMismatch = errors.New("payload does not match declared content hash")

	// range
	ErrScoreOutOfRange = errors.New("score out of range")
	ErrInvalidMode     = errors.New("unknown scoring mode")
	ErrDeadlineOrder   = errors.New("deadlines out of order")

	// duplication
	ErrAlreadySubmitted = errors.New("contributor already submitted")

	// state violations around jury assignment
	ErrEmptyJury = errors.New("jury pool is empty")
)

// TransitionError reports an attempted transition that is not the next
// step in the fixed graph. It matches ErrInvalidTransition under
// errors.Is.
type TransitionError struct {
	From State
	To   State
}

func (e TransitionError) Error() string {
	return fmt.Sprintf(
		"invalid state transition: %s -> %s",
		e.From,
		e.To,
	)
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
