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

package room_test

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtualconnekt/roomhq/database"
	"github.com/virtualconnekt/roomhq/identity"
	"github.com/virtualconnekt/roomhq/room"
	"github.com/virtualconnekt/roomhq/vault"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type testHarness struct {
	db     *database.Database
	ledger *identity.Ledger
	clock  *testClock
	sm     *room.StateMachine
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ledger := identity.NewLedger(identity.LedgerConfig{Database: db})
	require.NoError(t, ledger.Initialize())
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sm := room.NewStateMachine(room.StateMachineConfig{
		Database: db,
		Vault:    vault.New(vault.VaultConfig{Database: db}),
		Identity: ledger,
		Now:      clock.Now,
	})
	return &testHarness{db: db, ledger: ledger, clock: clock, sm: sm}
}

func (h *testHarness) mintFunded(t *testing.T, address string, amount uint64) {
	t.Helper()
	require.NoError(t, h.ledger.Mint(address, nil))
	if amount > 0 {
		require.NoError(t, h.db.CreditAccount(address, amount, nil))
	}
}

func (h *testHarness) createParams(client string, mode room.Mode) room.CreateRoomParams {
	return room.CreateRoomParams{
		Client:         client,
		Category:       "design",
		TaskHash:       []byte("task-hash"),
		Reward:         1000,
		Mode:           mode,
		SubmitDeadline: h.clock.now.Add(time.Hour),
		CommitDeadline: h.clock.now.Add(2 * time.Hour),
		RevealDeadline: h.clock.now.Add(3 * time.Hour),
	}
}

func (h *testHarness) requireState(t *testing.T, roomId uint64, expected room.State) {
	t.Helper()
	tmpRoom, err := h.sm.Get(roomId)
	require.NoError(t, err)
	require.Equal(t, string(expected), tmpRoom.State)
}

func TestCreateGuards(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-create-client", 2000)

	params := h.createParams("sm-create-client", room.Mode("bogus"))
	_, err := h.sm.Create(params)
	assert.ErrorIs(t, err, room.ErrInvalidMode)

	params = h.createParams("sm-create-client", room.ModeFlat)
	params.CommitDeadline = params.SubmitDeadline
	_, err = h.sm.Create(params)
	assert.ErrorIs(t, err, room.ErrDeadlineOrder)

	_, err = h.sm.Create(h.createParams("sm-create-nobody", room.ModeFlat))
	assert.ErrorIs(t, err, room.ErrIdentityRequired)

	h.mintFunded(t, "sm-create-poor", 999)
	_, err = h.sm.Create(h.createParams("sm-create-poor", room.ModeFlat))
	assert.ErrorIs(t, err, vault.ErrUnderfunded)
	// Failed creation must not leave a room behind with a drained account
	account, err := h.db.GetAccount("sm-create-poor", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), account.Balance)
}

func TestCreateEscrowsReward(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-escrow-client", 1500)
	roomId, err := h.sm.Create(h.createParams("sm-escrow-client", room.ModeFlat))
	require.NoError(t, err)
	h.requireState(t, roomId, room.StateInit)
	account, err := h.db.GetAccount("sm-escrow-client", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), account.Balance)
	tmpVault, err := h.db.GetVault(roomId, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tmpVault.Balance)
	assert.True(t, tmpVault.Locked)
}

func TestOpenAuthorization(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-open-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-open-client", room.ModeFlat))
	require.NoError(t, err)
	assert.ErrorIs(
		t,
		h.sm.Open("sm-open-stranger", roomId),
		room.ErrNotAuthorized,
	)
	require.NoError(t, h.sm.Open("sm-open-client", roomId))
	h.requireState(t, roomId, room.StateOpen)
	// A second open is no longer the next transition
	assert.ErrorIs(
		t,
		h.sm.Open("sm-open-client", roomId),
		room.ErrInvalidTransition,
	)
}

func TestSettledRoomIsTerminalForAnyCaller(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-term-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-term-client", room.ModeFlat))
	require.NoError(t, err)
	tmpRoom, err := h.db.GetRoom(roomId, nil)
	require.NoError(t, err)
	tmpRoom.State = string(room.StateSettled)
	require.NoError(t, h.db.UpdateRoom(&tmpRoom, nil))

	// The terminal state is reported before any authorization check, so
	// strangers and the client see the same error
	assert.ErrorIs(
		t,
		h.sm.Open("sm-term-stranger", roomId),
		room.ErrTerminalState,
	)
	assert.ErrorIs(
		t,
		h.sm.Open("sm-term-client", roomId),
		room.ErrTerminalState,
	)
	assert.ErrorIs(
		t,
		h.sm.Close("sm-term-stranger", roomId),
		room.ErrTerminalState,
	)
}

func TestSubmitLifecycle(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-submit-client", 1000)
	h.mintFunded(t, "sm-submit-alice", 0)
	roomId, err := h.sm.Create(h.createParams("sm-submit-client", room.ModeFlat))
	require.NoError(t, err)

	payload := []byte("entry body")
	digest := sha256.Sum256(payload)

	// Submissions require the open phase
	err = h.sm.Submit("sm-submit-alice", roomId, digest[:], payload)
	assert.ErrorIs(t, err, room.ErrWrongPhase)
	require.NoError(t, h.sm.Open("sm-submit-client", roomId))

	// Identity and payload integrity are both checked
	err = h.sm.Submit("sm-submit-nobody", roomId, digest[:], payload)
	assert.ErrorIs(t, err, room.ErrIdentityRequired)
	err = h.sm.Submit("sm-submit-alice", roomId, digest[:], []byte("other"))
	assert.ErrorIs(t, err, room.ErrContentMismatch)

	require.NoError(t, h.sm.Submit("sm-submit-alice", roomId, digest[:], payload))
	stored, err := h.db.GetBlob(digest[:], nil)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	// One submission per contributor
	err = h.sm.Submit("sm-submit-alice", roomId, digest[:], payload)
	assert.ErrorIs(t, err, room.ErrAlreadySubmitted)

	// Late submissions are rejected
	h.mintFunded(t, "sm-submit-bob", 0)
	h.clock.now = h.clock.now.Add(2 * time.Hour)
	err = h.sm.Submit("sm-submit-bob", roomId, digest[:], nil)
	assert.ErrorIs(t, err, room.ErrDeadlinePassed)
}

func TestCloseAuthorization(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-close-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-close-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-close-client", roomId))

	// Strangers cannot close before the deadline
	assert.ErrorIs(
		t,
		h.sm.Close("sm-close-stranger", roomId),
		room.ErrNotAuthorized,
	)

	// Anyone once the submission deadline has passed
	h.clock.now = h.clock.now.Add(90 * time.Minute)
	require.NoError(t, h.sm.Close("sm-close-stranger", roomId))
	h.requireState(t, roomId, room.StateClosed)
}

func TestClientMayCloseEarly(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-early-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-early-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-early-client", roomId))
	require.NoError(t, h.sm.Close("sm-early-client", roomId))
	h.requireState(t, roomId, room.StateClosed)
}

func TestAssignJuryGuards(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-jury-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-jury-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-jury-client", roomId))

	assert.ErrorIs(t, h.sm.AssignJury(roomId, nil), room.ErrEmptyJury)
	// Only a closed room takes a jury
	err = h.sm.AssignJury(roomId, []string{"sm-jury-1"})
	assert.ErrorIs(t, err, room.ErrWrongPhase)

	require.NoError(t, h.sm.Close("sm-jury-client", roomId))
	require.NoError(
		t,
		h.sm.AssignJury(roomId, []string{"sm-jury-1", "sm-jury-2"}),
	)
	pool, err := h.db.GetJuryPool(roomId, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sm-jury-1", "sm-jury-2"}, pool)
}

func TestStartJuryRequiresPool(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-start-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-start-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-start-client", roomId))

	// Skipping straight to the jury phase is not the next transition
	assert.ErrorIs(
		t,
		h.sm.StartJury("sm-start-client", roomId),
		room.ErrInvalidTransition,
	)

	require.NoError(t, h.sm.Close("sm-start-client", roomId))
	assert.ErrorIs(
		t,
		h.sm.StartJury("sm-start-client", roomId),
		room.ErrEmptyJury,
	)
	require.NoError(t, h.sm.AssignJury(roomId, []string{"sm-start-juror"}))
	require.NoError(t, h.sm.StartJury("sm-start-client", roomId))
	h.requireState(t, roomId, room.StateJuryActive)
}

func TestStartRevealWaitsForCommits(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-reveal-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-reveal-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-reveal-client", roomId))
	require.NoError(t, h.sm.Close("sm-reveal-client", roomId))
	require.NoError(
		t,
		h.sm.AssignJury(roomId, []string{"sm-reveal-j1", "sm-reveal-j2"}),
	)
	require.NoError(t, h.sm.StartJury("sm-reveal-client", roomId))

	// Before the commit deadline with no commitments in
	err = h.sm.StartReveal("sm-reveal-client", roomId)
	assert.ErrorIs(t, err, room.ErrCommitsOutstanding)

	// One of two commitments is still outstanding
	require.NoError(
		t,
		h.db.AddVote(
			&database.Vote{
				RoomID:     roomId,
				Juror:      "sm-reveal-j1",
				CommitHash: []byte("commit-1"),
			},
			nil,
		),
	)
	err = h.sm.StartReveal("sm-reveal-client", roomId)
	assert.ErrorIs(t, err, room.ErrCommitsOutstanding)

	// Deadline expiry unblocks the reveal phase regardless
	h.clock.now = h.clock.now.Add(3 * time.Hour)
	require.NoError(t, h.sm.StartReveal("sm-reveal-client", roomId))
	h.requireState(t, roomId, room.StateJuryReveal)
}

func TestStartRevealAllCommitted(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-full-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-full-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-full-client", roomId))
	require.NoError(t, h.sm.Close("sm-full-client", roomId))
	require.NoError(t, h.sm.AssignJury(roomId, []string{"sm-full-j1"}))
	require.NoError(t, h.sm.StartJury("sm-full-client", roomId))
	require.NoError(
		t,
		h.db.AddVote(
			&database.Vote{
				RoomID:     roomId,
				Juror:      "sm-full-j1",
				CommitHash: []byte("commit"),
			},
			nil,
		),
	)
	// All jurors committed, so no need to wait for the deadline
	require.NoError(t, h.sm.StartReveal("sm-full-client", roomId))
}

func TestSetClientScoreGuards(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-score-client", 1000)
	h.mintFunded(t, "sm-score-alice", 0)
	roomId, err := h.sm.Create(h.createParams("sm-score-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-score-client", roomId))
	payload := []byte("scored entry")
	digest := sha256.Sum256(payload)
	require.NoError(
		t,
		h.sm.Submit("sm-score-alice", roomId, digest[:], payload),
	)

	err = h.sm.SetClientScore("sm-score-client", roomId, "sm-score-alice", 101)
	assert.ErrorIs(t, err, room.ErrScoreOutOfRange)
	err = h.sm.SetClientScore("sm-score-alice", roomId, "sm-score-alice", 90)
	assert.ErrorIs(t, err, room.ErrNotAuthorized)
	err = h.sm.SetClientScore("sm-score-client", roomId, "sm-score-nobody", 90)
	assert.ErrorIs(t, err, database.ErrSubmissionNotFound)

	require.NoError(
		t,
		h.sm.SetClientScore("sm-score-client", roomId, "sm-score-alice", 85),
	)
	// Revisable until finalization
	require.NoError(
		t,
		h.sm.SetClientScore("sm-score-client", roomId, "sm-score-alice", 90),
	)
	tmpSubmission, err := h.db.GetSubmission(roomId, "sm-score-alice", nil)
	require.NoError(t, err)
	assert.True(t, tmpSubmission.ClientScored)
	assert.Equal(t, uint64(90), tmpSubmission.ClientScore)
}

func TestFinalizeRequiresComputedScores(t *testing.T) {
	h := newTestHarness(t)
	h.mintFunded(t, "sm-final-client", 1000)
	roomId, err := h.sm.Create(h.createParams("sm-final-client", room.ModeFlat))
	require.NoError(t, err)
	require.NoError(t, h.sm.Open("sm-final-client", roomId))
	require.NoError(t, h.sm.Close("sm-final-client", roomId))
	require.NoError(t, h.sm.AssignJury(roomId, []string{"sm-final-j1"}))
	require.NoError(t, h.sm.StartJury("sm-final-client", roomId))
	h.clock.now = h.clock.now.Add(3 * time.Hour)
	require.NoError(t, h.sm.StartReveal("sm-final-client", roomId))

	err = h.sm.Finalize("sm-final-client", roomId)
	assert.ErrorIs(t, err, room.ErrScoresNotComputed)

	// Mark scores computed the way the aggregation engine does
	tmpRoom, err := h.db.GetRoom(roomId, nil)
	require.NoError(t, err)
	tmpRoom.ScoresComputed = true
	require.NoError(t, h.db.UpdateRoom(&tmpRoom, nil))
	require.NoError(t, h.sm.Finalize("sm-final-client", roomId))
	h.requireState(t, roomId, room.StateFinalized)
}
