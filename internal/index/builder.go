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
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ajjensen13/stockqa/internal/corpus"
	"github.com/ajjensen13/stockqa/internal/embed"
	"github.com/ajjensen13/stockqa/internal/model"
	"github.com/ajjensen13/stockqa/internal/util"
)

// Policy decides when a rebuild replaces the persisted index.
type Policy string

const (
	// PolicyAlways rebuilds on every request.
	PolicyAlways Policy = "always"
	// PolicyMissing rebuilds only when no index exists.
	PolicyMissing Policy = "missing"
	// PolicyInvalidated rebuilds when no index exists or it was invalidated.
	PolicyInvalidated Policy = "invalidated"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAlways, nil
	case PolicyAlways, PolicyMissing, PolicyInvalidated:
		return p, nil
	default:
		return "", fmt.Errorf("unknown index policy %q", s)
	}
}

// Allows reports whether an index in state st should be rebuilt.
func (p Policy) Allows(st State) bool {
	switch p {
	case PolicyMissing:
		return st == StateAbsent
	case PolicyInvalidated:
		return st != StateCurrent
	default:
		return true
	}
}

type Builder struct {
	Store    Store
	Embedder embed.Embedder
	Policy   Policy
	Now      func() time.Time
}

// Outcome describes what a rebuild did.
type Outcome struct {
	Built   bool
	Entries int
	Reason  string
}

// Rebuild applies the policy, then builds the corpus from src and writes it.
// force skips the policy.
func (b *Builder) Rebuild(ctx context.Context, src corpus.Source, force bool) (Outcome, error) {
	if !force {
		st, err := b.Store.State(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if !b.Policy.Allows(st) {
			util.Logf(ctx, logging.Info, "index is %s, policy %q skips rebuild", st, b.Policy)
			return Outcome{Reason: fmt.Sprintf("index is %s and policy is %q", st, b.Policy)}, nil
		}
	}

	entries, err := corpus.Build(ctx, src)
	if err != nil {
		return Outcome{}, err
	}
	return b.Build(ctx, entries)
}

// Build embeds entries and replaces the index. An empty corpus leaves any
// existing index untouched.
func (b *Builder) Build(ctx context.Context, entries []model.CorpusEntry) (Outcome, error) {
	if len(entries) == 0 {
		util.Logf(ctx, logging.Info, "corpus is empty, index not written")
		return Outcome{Reason: "corpus is empty"}, nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	util.Logf(ctx, logging.Default, "embedding %d corpus entries with %s", len(texts), b.Embedder.Model())
	vectors, err := b.Embedder.Embed(ctx, texts)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(entries) {
		return Outcome{}, fmt.Errorf("failed to embed corpus: got %d vectors for %d entries", len(vectors), len(entries))
	}

	dim := len(vectors[0])
	snap := &Snapshot{Entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if len(vectors[i]) != dim {
			return Outcome{}, fmt.Errorf("failed to embed corpus: entry %d has dimension %d, want %d", i, len(vectors[i]), dim)
		}
		snap.Entries[i] = Entry{ID: uint64(i), Text: e.Text, Tag: e.Tag, Vector: vectors[i]}
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	snap.Manifest = Manifest{Count: len(entries), Model: b.Embedder.Model(), Dimension: dim, BuiltAt: now().UTC()}

	if err := b.Store.Write(ctx, snap); err != nil {
		return Outcome{}, fmt.Errorf("failed to write index: %w", err)
	}

	util.Logf(ctx, logging.Default, "wrote index with %d entries", len(entries))
	return Outcome{Built: true, Entries: len(entries)}, nil
}
