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

package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrVoteNotFound = errors.New("vote not found")

// Vote is one juror's flat-mode commitment and its later revealed opening.
// The (room, juror) pair is unique: exactly one commit per juror per room.
type Vote struct {
	ID          uint   `gorm:"primarykey"`
	RoomID      uint64 `gorm:"uniqueIndex:idx_vote_room_juror"`
	Juror       string `gorm:"uniqueIndex:idx_vote_room_juror;size:64"`
	CommitHash  []byte `gorm:"size:32"`
	Revealed    bool
	Score       uint64
	Salt        []byte
	Flagged     bool
	CommittedAt time.Time
	RevealedAt  time.Time
}

func (Vote) TableName() string {
	return "vote"
}

// TierVote is one juror's tier-mode commitment and its revealed tier
// assignment sets. Contributors named in neither set are implicitly tier C.
type TierVote struct {
	ID          uint   `gorm:"primarykey"`
	RoomID      uint64 `gorm:"uniqueIndex:idx_tier_vote_room_juror"`
	Juror       string `gorm:"uniqueIndex:idx_tier_vote_room_juror;size:64"`
	CommitHash  []byte `gorm:"size:32"`
	Revealed    bool
	TierA       []string `gorm:"serializer:json"`
	TierB       []string `gorm:"serializer:json"`
	Salt        []byte
	Flagged     bool
	CommittedAt time.Time
	RevealedAt  time.Time
}

func (TierVote) TableName() string {
	return "tier_vote"
}

func (d *Database) AddVote(
	vote *Vote,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(vote).Error
}

func (d *Database) GetVote(
	roomId uint64,
	juror string,
	txn *Txn,
) (Vote, error) {
	tmpVote := Vote{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ? AND juror = ?", roomId, juror).
		First(&tmpVote)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpVote, ErrVoteNotFound
		}
		return tmpVote, result.Error
	}
	return tmpVote, nil
}

func (d *Database) UpdateVote(
	vote *Vote,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(vote).Error
}

// GetVotesByRoom returns a room's flat votes in commit order
func (d *Database) GetVotesByRoom(
	roomId uint64,
	txn *Txn,
) ([]Vote, error) {
	var tmpVotes []Vote
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		Order("id").
		Find(&tmpVotes)
	if result.Error != nil {
		return nil, result.Error
	}
	return tmpVotes, nil
}

func (d *Database) AddTierVote(
	vote *TierVote,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(vote).Error
}

func (d *Database) GetTierVote(
	roomId uint64,
	juror string,
	txn *Txn,
) (TierVote, error) {
	tmpVote := TierVote{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ? AND juror = ?", roomId, juror).
		First(&tmpVote)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpVote, ErrVoteNotFound
		}
		return tmpVote, result.Error
	}
	return tmpVote, nil
}

func (d *Database) UpdateTierVote(
	vote *TierVote,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(vote).Error
}

// GetTierVotesByRoom returns a room's tier votes in commit order
func (d *Database) GetTierVotesByRoom(
	roomId uint64,
	txn *Txn,
) ([]TierVote, error) {
	var tmpVotes []TierVote
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		Order("id").
		Find(&tmpVotes)
	if result.Error != nil {
		return nil, result.Error
	}
	return tmpVotes, nil
}
