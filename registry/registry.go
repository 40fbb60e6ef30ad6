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

// Package registry provides the juror eligibility registry: category-keyed
// membership lists consulted by jury selection. The protocol core treats
// the registry as an external collaborator behind the Registry interface.
package registry

import (
	"slices"
	"sync"
)

// Registry answers which addresses are eligible to serve as jurors for a
// task category
type Registry interface {
	EligibleJurors(category string) ([]string, error)
	Count(category string) (int, error)
}

// MemberList is an in-memory Registry implementation with explicit
// enrollment
type MemberList struct {
	mu      sync.RWMutex
	members map[string][]string
}

func NewMemberList() *MemberList {
	return &MemberList{
		members: make(map[string][]string),
	}
}

// Enroll adds an address to a category's eligible pool. Enrolling the same
// address twice is a no-op.
func (m *MemberList) Enroll(category, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.members[category], address) {
		return
	}
	m.members[category] = append(m.members[category], address)
}

// Withdraw removes an address from a category's eligible pool
func (m *MemberList) Withdraw(category, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[category] = slices.DeleteFunc(
		m.members[category],
		func(a string) bool { return a == address },
	)
}

func (m *MemberList) EligibleJurors(category string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.members[category]), nil
}

func (m *MemberList) Count(category string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members[category]), nil
}
