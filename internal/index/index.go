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

// Package index persists embedded corpus entries and ranks them against a
// query vector.
package index

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"
)

var (
	// ErrNotFound is returned when no index has been written yet.
	ErrNotFound = errors.New("index not found")
	// ErrBuildInProgress is returned when another build holds the location.
	ErrBuildInProgress = errors.New("index build already in progress")
)

type State int

const (
	StateAbsent State = iota
	StateCurrent
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCurrent:
		return "current"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

type Entry struct {
	ID     uint64
	Text   string
	Tag    map[string]string
	Vector []float32
}

type Manifest struct {
	Count     int
	Model     string
	Dimension int
	BuiltAt   time.Time
}

// Snapshot is a complete, immutable index.
type Snapshot struct {
	Manifest Manifest
	Entries  []Entry
}

// Store owns one index location. Write replaces the whole index so that Load
// observes either the previous or the new snapshot, never a mix.
type Store interface {
	State(ctx context.Context) (State, error)
	Write(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Invalidate(ctx context.Context) error
}

type Result struct {
	Entry
	Score float32
}

// Search returns the k entries most similar to query by cosine similarity,
// best first. Ties keep corpus order.
func (s *Snapshot) Search(query []float32, k int) []Result {
	if k <= 0 || len(s.Entries) == 0 {
		return nil
	}

	qn := norm(query)
	results := make([]Result, 0, len(s.Entries))
	for _, e := range s.Entries {
		if len(e.Vector) != len(query) {
			continue
		}
		results = append(results, Result{Entry: e, Score: cosine(query, e.Vector, qn)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(q, v []float32, qn float64) float32 {
	vn := norm(v)
	if qn == 0 || vn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return float32(dot / (qn * vn))
}
