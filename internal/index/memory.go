/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package index

import (
	"context"
	"sync"
)

// MemoryStore keeps the index in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	snap        *Snapshot
	invalidated bool
	building    bool
}

func (m *MemoryStore) State(context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.snap == nil:
		return StateAbsent, nil
	case m.invalidated:
		return StateInvalidated, nil
	default:
		return StateCurrent, nil
	}
}

func (m *MemoryStore) Write(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	if m.building {
		m.mu.Unlock()
		return ErrBuildInProgress
	}
	m.building = true
	m.mu.Unlock()

	cp := &Snapshot{Manifest: snap.Manifest, Entries: append([]Entry(nil), snap.Entries...)}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.building = false
	if err := ctx.Err(); err != nil {
		return err
	}
	m.snap = cp
	m.invalidated = false
	return nil
}

func (m *MemoryStore) Load(context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return nil, ErrNotFound
	}
	return m.snap, nil
}

func (m *MemoryStore) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap != nil {
		m.invalidated = true
	}
	return nil
}
