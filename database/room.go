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

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Room is one task's full lifecycle record. Room IDs are assigned
// monotonically by the metadata store.
type Room struct {
	ID             uint64 `gorm:"primarykey"`
	Client         string `gorm:"index;size:64"`
	Category       string `gorm:"index;size:32"`
	TaskHash       []byte `gorm:"size:32"`
	Reward         uint64
	Mode           string `gorm:"size:8"`
	State          string `gorm:"index;size:16"`
	SubmitDeadline time.Time
	CommitDeadline time.Time
	RevealDeadline time.Time
	ClientApproved bool
	ScoresComputed bool
	JuryScore      uint64
	Winner         string `gorm:"size:64"`
	CreatedAt      time.Time
}

func (Room) TableName() string {
	return "room"
}

// Submission is one contributor's entry in a room. The (room, contributor)
// pair is unique, which is what enforces one submission per contributor.
type Submission struct {
	ID           uint   `gorm:"primarykey"`
	RoomID       uint64 `gorm:"uniqueIndex:idx_submission_room_contributor"`
	Contributor  string `gorm:"uniqueIndex:idx_submission_room_contributor;size:64"`
	ContentHash  []byte `gorm:"size:32"`
	SubmittedAt  time.Time
	ClientScore  uint64
	ClientScored bool
	FinalScore   uint64
	FinalScored  bool
}

func (Submission) TableName() string {
	return "submission"
}

// JuryMember is one juror's slot in a room's ordered jury pool
type JuryMember struct {
	ID       uint   `gorm:"primarykey"`
	RoomID   uint64 `gorm:"uniqueIndex:idx_jury_room_juror"`
	Juror    string `gorm:"uniqueIndex:idx_jury_room_juror;size:64"`
	Position int    `gorm:"index"`
}

func (JuryMember) TableName() string {
	return "jury_member"
}

func (d *Database) CreateRoom(
	room *Room,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(room).Error
}

func (d *Database) GetRoom(
	roomId uint64,
	txn *Txn,
) (Room, error) {
	tmpRoom := Room{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("id = ?", roomId).
		First(&tmpRoom)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpRoom, ErrRoomNotFound
		}
		return tmpRoom, result.Error
	}
	return tmpRoom, nil
}

func (d *Database) UpdateRoom(
	room *Room,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(room).Error
}

func (d *Database) AddSubmission(
	submission *Submission,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Create(submission).Error
}

func (d *Database) GetSubmission(
	roomId uint64,
	contributor string,
	txn *Txn,
) (Submission, error) {
	tmpSubmission := Submission{}
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ? AND contributor = ?", roomId, contributor).
		First(&tmpSubmission)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tmpSubmission, ErrSubmissionNotFound
		}
		return tmpSubmission, result.Error
	}
	return tmpSubmission, nil
}

func (d *Database) UpdateSubmission(
	submission *Submission,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Metadata().Save(submission).Error
}

// GetSubmissionsByRoom returns a room's submissions in insertion order,
// which is also submission-time order
func (d *Database) GetSubmissionsByRoom(
	roomId uint64,
	txn *Txn,
) ([]Submission, error) {
	var tmpSubmissions []Submission
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		Order("id").
		Find(&tmpSubmissions)
	if result.Error != nil {
		return nil, result.Error
	}
	return tmpSubmissions, nil
}

// SetJuryPool replaces a room's jury pool with the given ordered juror list
func (d *Database) SetJuryPool(
	roomId uint64,
	jurors []string,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		Delete(&JuryMember{})
	if result.Error != nil {
		return result.Error
	}
	for position, juror := range jurors {
		tmpMember := JuryMember{
			RoomID:   roomId,
			Juror:    juror,
			Position: position,
		}
		if err := txn.Metadata().Create(&tmpMember).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetJuryPool returns a room's jury pool in selection order
func (d *Database) GetJuryPool(
	roomId uint64,
	txn *Txn,
) ([]string, error) {
	var tmpMembers []JuryMember
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	result := txn.Metadata().
		Where("room_id = ?", roomId).
		Order("position").
		Find(&tmpMembers)
	if result.Error != nil {
		return nil, result.Error
	}
	jurors := make([]string, 0, len(tmpMembers))
	for _, member := range tmpMembers {
		jurors = append(jurors, member.Juror)
	}
	return jurors, nil
}
