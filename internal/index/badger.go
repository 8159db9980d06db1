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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const (
	manifestKey  = "manifest"
	staleMarker  = "STALE"
	insertBatch  = 1000
	lockSuffix   = ".lock"
	buildSuffix  = ".build-"
	retireSuffix = ".old-"
)

// DefaultStaleLockAfter is how old a lock file must be before a new build
// may take it over.
const DefaultStaleLockAfter = 6 * time.Hour

// BadgerStore keeps the index in a badgerhold database under Dir. Builds are
// written to a sibling directory and promoted by rename.
type BadgerStore struct {
	Dir            string
	StaleLockAfter time.Duration
}

func openBadger(dir string) (*badgerhold.Store, error) {
	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database %s: %w", dir, err)
	}
	return store, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (b *BadgerStore) State(context.Context) (State, error) {
	ok, err := exists(b.Dir)
	if err != nil {
		return StateAbsent, fmt.Errorf("failed to stat index %s: %w", b.Dir, err)
	}
	if !ok {
		return StateAbsent, nil
	}

	stale, err := exists(filepath.Join(b.Dir, staleMarker))
	if err != nil {
		return StateAbsent, fmt.Errorf("failed to stat index marker: %w", err)
	}
	if stale {
		return StateInvalidated, nil
	}
	return StateCurrent, nil
}

func (b *BadgerStore) Invalidate(ctx context.Context) error {
	st, err := b.State(ctx)
	if err != nil || st == StateAbsent {
		return err
	}
	return os.WriteFile(filepath.Join(b.Dir, staleMarker), []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

func (b *BadgerStore) lock() (func(), error) {
	path := b.Dir + lockSuffix
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index parent directory: %w", err)
	}

	staleAfter := b.StaleLockAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleLockAfter
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create index lock: %w", err)
		}

		fi, statErr := os.Stat(path)
		if statErr != nil || time.Since(fi.ModTime()) < staleAfter {
			return nil, fmt.Errorf("%w: %s", ErrBuildInProgress, path)
		}
		_ = os.Remove(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrBuildInProgress, path)
}

// Write builds snap into a temporary directory and swaps it into place.
// Another Write on the same Dir fails with ErrBuildInProgress.
func (b *BadgerStore) Write(ctx context.Context, snap *Snapshot) error {
	unlock, err := b.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp := b.Dir + buildSuffix + strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := b.writeDir(ctx, tmp, snap); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}

	return promote(tmp, b.Dir)
}

func (b *BadgerStore) writeDir(ctx context.Context, dir string, snap *Snapshot) error {
	store, err := openBadger(dir)
	if err != nil {
		return err
	}

	for start := 0; start < len(snap.Entries); start += insertBatch {
		if err := ctx.Err(); err != nil {
			_ = store.Close()
			return err
		}
		end := start + insertBatch
		if end > len(snap.Entries) {
			end = len(snap.Entries)
		}

		err := store.Badger().Update(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				e := snap.Entries[i]
				if err := store.TxInsert(tx, e.ID, &e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			_ = store.Close()
			return fmt.Errorf("failed to write index entries [%d:%d]: %w", start, end, err)
		}
	}

	// the manifest goes last; a directory without one is incomplete
	manifest := snap.Manifest
	if err := store.Upsert(manifestKey, &manifest); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to write index manifest: %w", err)
	}

	if err := store.Close(); err != nil {
		return fmt.Errorf("failed to close index database: %w", err)
	}
	return nil
}

// promote moves tmp to dir, retiring any previous dir first.
func promote(tmp, dir string) error {
	old := dir + retireSuffix + strconv.FormatInt(time.Now().UnixNano(), 10)
	had, err := exists(dir)
	if err != nil {
		return fmt.Errorf("failed to stat index %s: %w", dir, err)
	}

	if had {
		if err := os.Rename(dir, old); err != nil {
			_ = os.RemoveAll(tmp)
			return fmt.Errorf("failed to retire previous index: %w", err)
		}
	}

	if err := os.Rename(tmp, dir); err != nil {
		if had {
			_ = os.Rename(old, dir)
		}
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to promote new index: %w", err)
	}

	if had {
		_ = os.RemoveAll(old)
	}
	return nil
}

func (b *BadgerStore) Load(ctx context.Context) (*Snapshot, error) {
	st, err := b.State(ctx)
	if err != nil {
		return nil, err
	}
	if st == StateAbsent {
		return nil, ErrNotFound
	}

	store, err := openBadger(b.Dir)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var manifest Manifest
	err = store.Get(manifestKey, &manifest)
	switch {
	case errors.Is(err, badgerhold.ErrNotFound):
		return nil, fmt.Errorf("%w: %s has no manifest", ErrNotFound, b.Dir)
	case err != nil:
		return nil, fmt.Errorf("failed to read index manifest: %w", err)
	}

	var entries []Entry
	if err := store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to read index entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	if len(entries) != manifest.Count {
		return nil, fmt.Errorf("index %s holds %d entries, manifest expects %d", b.Dir, len(entries), manifest.Count)
	}
	return &Snapshot{Manifest: manifest, Entries: entries}, nil
}
