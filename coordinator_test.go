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

package roomhq_test

import (
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	roomhq "github.com/virtualconnekt/roomhq"
	"github.com/virtualconnekt/roomhq/ballot"
	"github.com/virtualconnekt/roomhq/event"
	"github.com/virtualconnekt/roomhq/registry"
	"github.com/virtualconnekt/roomhq/room"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type testSetup struct {
	coordinator *roomhq.Coordinator
	members     *registry.MemberList
	clock       *testClock
}

func newTestSetup(t *testing.T, jurySize int) *testSetup {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	members := registry.NewMemberList()
	coordinator, err := roomhq.New(roomhq.NewConfig(
		roomhq.WithJurySize(jurySize),
		roomhq.WithRegistry(members),
		roomhq.WithClock(clock.Now),
	))
	require.NoError(t, err)
	t.Cleanup(func() { coordinator.Close() })
	return &testSetup{
		coordinator: coordinator,
		members:     members,
		clock:       clock,
	}
}

func (s *testSetup) mint(t *testing.T, addresses ...string) {
	t.Helper()
	for _, address := range addresses {
		require.NoError(t, s.coordinator.Identity().Mint(address, nil))
	}
}

func (s *testSetup) createParams(
	client string,
	mode room.Mode,
	reward uint64,
) room.CreateRoomParams {
	return room.CreateRoomParams{
		Client:         client,
		Category:       "design",
		TaskHash:       []byte("task-spec-hash"),
		Reward:         reward,
		Mode:           mode,
		SubmitDeadline: s.clock.now.Add(time.Hour),
		CommitDeadline: s.clock.now.Add(2 * time.Hour),
		RevealDeadline: s.clock.now.Add(3 * time.Hour),
	}
}

func (s *testSetup) submit(t *testing.T, contributor string, roomId uint64) {
	t.Helper()
	payload := []byte(contributor + " entry payload")
	digest := sha256.Sum256(payload)
	require.NoError(
		t,
		s.coordinator.SubmitEntry(contributor, roomId, digest[:], payload),
	)
}

func TestFlatRoomFullLifecycle(t *testing.T) {
	s := newTestSetup(t, 5)
	c := s.coordinator

	client := "e2e-flat-client"
	contributors := []string{"e2e-flat-alice", "e2e-flat-bob"}
	jurors := make([]string, 5)
	for i := range jurors {
		jurors[i] = fmt.Sprintf("e2e-flat-juror-%d", i)
		s.members.Enroll("design", jurors[i])
	}
	s.mint(t, client)
	s.mint(t, contributors...)
	s.mint(t, jurors...)

	require.NoError(t, c.Deposit(client, 1_000_000))
	roomId, err := c.CreateRoom(s.createParams(client, room.ModeFlat, 1_000_000))
	require.NoError(t, err)
	balance, err := c.Balance(client)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)

	require.NoError(t, c.OpenRoom(client, roomId))
	for _, contributor := range contributors {
		s.submit(t, contributor, roomId)
	}
	require.NoError(t, c.CloseRoom(client, roomId))
	require.NoError(t, c.AssignJury(roomId))
	require.NoError(t, c.StartJuryPhase(client, roomId))

	// The selected jury is the whole enrolled pool in shuffled order
	pool, err := c.Database().GetJuryPool(roomId, nil)
	require.NoError(t, err)
	require.Len(t, pool, 5)
	assert.ElementsMatch(t, jurors, pool)

	scores := []uint64{80, 82, 85, 87, 90}
	for i, juror := range pool {
		salt := []byte("salt-" + juror)
		commit := ballot.ScoreCommitment(scores[i], salt)
		require.NoError(t, c.CommitVote(juror, roomId, commit))
	}
	require.NoError(t, c.StartRevealPhase(client, roomId))
	for i, juror := range pool {
		salt := []byte("salt-" + juror)
		require.NoError(t, c.RevealVote(juror, roomId, scores[i], salt))
	}

	require.NoError(t, c.SetClientScore(client, roomId, "e2e-flat-alice", 90))
	require.NoError(t, c.SetClientScore(client, roomId, "e2e-flat-bob", 70))
	require.NoError(t, c.ComputeScores(roomId))
	require.NoError(t, c.FinalizeRoom(client, roomId))

	// Settlement needs the client's approval first
	err = c.ExecuteSettlement("anyone", roomId)
	require.Error(t, err)
	require.NoError(t, c.ApproveSettlement(client, roomId))

	_, settledCh := c.EventBus().Subscribe(event.RoomSettledEventType)
	require.NoError(t, c.ExecuteSettlement("anyone", roomId))

	tmpRoom, err := c.GetRoom(roomId)
	require.NoError(t, err)
	assert.Equal(t, string(room.StateSettled), tmpRoom.State)
	assert.Equal(t, "e2e-flat-alice", tmpRoom.Winner)
	assert.Equal(t, uint64(85), tmpRoom.JuryScore)

	// The winner received the full escrow
	balance, err = c.Balance("e2e-flat-alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), balance)

	// Reputation records absorbed the final scores
	winner, err := c.Identity().Get("e2e-flat-alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), winner.TasksCompleted)
	// (90*60 + 85*40) / 100
	assert.Equal(t, uint64(88), winner.AverageScore)
	for _, juror := range jurors {
		keycard, err := c.Identity().Get(juror, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), keycard.JuryParticipations, "%s", juror)
		assert.Equal(t, uint64(0), keycard.VarianceFlags, "%s", juror)
	}

	select {
	case evt := <-settledCh:
		settled := evt.Data.(event.RoomSettledEvent)
		assert.Equal(t, roomId, settled.RoomId)
		assert.Equal(t, "e2e-flat-alice", settled.Winner)
		assert.Equal(t, uint64(1_000_000), settled.Reward)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for settled event")
	}

	// Everything past the terminal state fails
	assert.ErrorIs(
		t,
		c.ExecuteSettlement("anyone", roomId),
		room.ErrTerminalState,
	)
	assert.ErrorIs(
		t,
		c.FinalizeRoom(client, roomId),
		room.ErrTerminalState,
	)
}

func TestFlatRoomZeroValidVotesRefund(t *testing.T) {
	s := newTestSetup(t, 3)
	c := s.coordinator

	client := "e2e-refund-client"
	jurors := []string{"e2e-refund-j1", "e2e-refund-j2", "e2e-refund-j3"}
	for _, juror := range jurors {
		s.members.Enroll("design", juror)
	}
	s.mint(t, client, "e2e-refund-alice")
	s.mint(t, jurors...)

	require.NoError(t, c.Deposit(client, 5000))
	roomId, err := c.CreateRoom(s.createParams(client, room.ModeFlat, 5000))
	require.NoError(t, err)
	require.NoError(t, c.OpenRoom(client, roomId))
	s.submit(t, "e2e-refund-alice", roomId)
	require.NoError(t, c.CloseRoom(client, roomId))
	require.NoError(t, c.AssignJury(roomId))
	require.NoError(t, c.StartJuryPhase(client, roomId))

	// Scores so far apart that every juror is an outlier
	pool, err := c.Database().GetJuryPool(roomId, nil)
	require.NoError(t, err)
	scores := []uint64{0, 50, 100}
	for i, juror := range pool {
		salt := []byte("salt-" + juror)
		require.NoError(
			t,
			c.CommitVote(juror, roomId, ballot.ScoreCommitment(scores[i], salt)),
		)
	}
	require.NoError(t, c.StartRevealPhase(client, roomId))
	for i, juror := range pool {
		salt := []byte("salt-" + juror)
		require.NoError(t, c.RevealVote(juror, roomId, scores[i], salt))
	}

	_, refundCh := c.EventBus().Subscribe(event.RoomRefundedEventType)
	require.NoError(t, c.ComputeScores(roomId))

	tmpRoom, err := c.GetRoom(roomId)
	require.NoError(t, err)
	assert.Equal(t, string(room.StateSettled), tmpRoom.State)
	assert.Empty(t, tmpRoom.Winner)
	balance, err := c.Balance(client)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance)

	// Reveal participations survive, but the aborted aggregation's
	// variance flags do not
	for _, juror := range jurors {
		keycard, err := c.Identity().Get(juror, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), keycard.JuryParticipations, "%s", juror)
		assert.Equal(t, uint64(0), keycard.VarianceFlags, "%s", juror)
	}

	select {
	case evt := <-refundCh:
		refunded := evt.Data.(event.RoomRefundedEvent)
		assert.Equal(t, roomId, refunded.RoomId)
		assert.Equal(t, client, refunded.Client)
		assert.Equal(t, uint64(5000), refunded.Amount)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for refund event")
	}

	assert.ErrorIs(
		t,
		c.FinalizeRoom(client, roomId),
		room.ErrTerminalState,
	)
}

func TestTierRoomFullLifecycle(t *testing.T) {
	s := newTestSetup(t, 1)
	c := s.coordinator

	client := "e2e-tier-client"
	juror := "e2e-tier-juror"
	s.members.Enroll("design", juror)
	contributors := make([]string, 5)
	for i := range contributors {
		contributors[i] = fmt.Sprintf("e2e-tier-c%d", i)
	}
	s.mint(t, client, juror)
	s.mint(t, contributors...)

	require.NoError(t, c.Deposit(client, 10_000))
	roomId, err := c.CreateRoom(s.createParams(client, room.ModeTier, 10_000))
	require.NoError(t, err)
	require.NoError(t, c.OpenRoom(client, roomId))
	for _, contributor := range contributors {
		s.submit(t, contributor, roomId)
	}
	require.NoError(t, c.CloseRoom(client, roomId))
	require.NoError(t, c.AssignJury(roomId))
	require.NoError(t, c.StartJuryPhase(client, roomId))

	// Flat votes are rejected in a tier room
	salt := []byte("tier-salt")
	err = c.CommitVote(juror, roomId, ballot.ScoreCommitment(80, salt))
	assert.ErrorIs(t, err, room.ErrModeMismatch)

	tierA := []string{contributors[0]}
	tierB := []string{contributors[1], contributors[2]}
	commit := ballot.TierCommitment(tierA, tierB, salt)
	require.NoError(t, c.CommitTierVote(juror, roomId, commit))
	require.NoError(t, c.StartRevealPhase(client, roomId))
	require.NoError(t, c.RevealTierVote(juror, roomId, tierA, tierB, salt))

	for _, contributor := range contributors {
		require.NoError(t, c.SetClientScore(client, roomId, contributor, 80))
	}
	require.NoError(t, c.ComputeScores(roomId))
	require.NoError(t, c.FinalizeRoom(client, roomId))
	require.NoError(t, c.ApproveSettlement(client, roomId))
	require.NoError(t, c.ExecuteSettlement("anyone", roomId))

	// The tier A contributor carries the highest final score
	tmpRoom, err := c.GetRoom(roomId)
	require.NoError(t, err)
	assert.Equal(t, contributors[0], tmpRoom.Winner)
	balance, err := c.Balance(contributors[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), balance)
	// 80 at 60% weight plus the tier A score of 40
	winner, err := c.Identity().Get(contributors[0], nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(88), winner.AverageScore)
}

func TestAssignJuryNeedsPool(t *testing.T) {
	s := newTestSetup(t, 5)
	c := s.coordinator
	client := "e2e-pool-client"
	s.mint(t, client)
	require.NoError(t, c.Deposit(client, 100))
	roomId, err := c.CreateRoom(s.createParams(client, room.ModeFlat, 100))
	require.NoError(t, err)
	require.NoError(t, c.OpenRoom(client, roomId))
	require.NoError(t, c.CloseRoom(client, roomId))
	// Only two eligible jurors for a jury of five
	s.members.Enroll("design", "e2e-pool-j1")
	s.members.Enroll("design", "e2e-pool-j2")
	require.Error(t, c.AssignJury(roomId))
}

func TestBalanceUnknownAddress(t *testing.T) {
	s := newTestSetup(t, 5)
	balance, err := s.coordinator.Balance("e2e-nobody")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}
