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
	"time"
)

// Reader caches the loaded snapshot of a Store for up to MaxAge.
type Reader struct {
	Store  Store
	MaxAge time.Duration

	mu       sync.RWMutex
	snap     *Snapshot
	loadedAt time.Time
}

func (r *Reader) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	snap, loadedAt := r.snap, r.loadedAt
	r.mu.RUnlock()

	if snap != nil && (r.MaxAge <= 0 || time.Since(loadedAt) < r.MaxAge) {
		return snap, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap != nil && r.snap != snap {
		return r.snap, nil
	}

	snap, err := r.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	r.snap, r.loadedAt = snap, time.Now()
	return snap, nil
}

// Reset drops the cached snapshot so the next call reloads it.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = nil
}
