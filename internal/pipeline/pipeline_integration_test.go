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

package pipeline_test

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stockqa/internal/answer"
	"github.com/ajjensen13/stockqa/internal/db"
	"github.com/ajjensen13/stockqa/internal/dbtest"
	"github.com/ajjensen13/stockqa/internal/embed"
	"github.com/ajjensen13/stockqa/internal/index"
	"github.com/ajjensen13/stockqa/internal/model"
	"github.com/ajjensen13/stockqa/internal/pipeline"
	"github.com/ajjensen13/stockqa/internal/prices"
	"github.com/ajjensen13/stockqa/internal/schema"
	"github.com/ajjensen13/stockqa/internal/symbols"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func aapl(d int, open, high, low, cls string, vol int64) model.PriceBar {
	p := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	return model.PriceBar{Symbol: "AAPL", Date: day(d), Open: p(open), High: p(high), Low: p(low), Close: p(cls), Volume: &vol}
}

var aaplBars = []model.PriceBar{
	aapl(2, "187.15", "188.44", "183.885", "185.64", 82488700),
	aapl(3, "184.22", "185.88", "183.43", "184.25", 58414500),
	aapl(4, "182.15", "183.0872", "180.88", "181.91", 71983600),
	aapl(5, "181.99", "182.76", "180.17", "181.18", 62303300),
}

type recordedFetcher struct{ bars []model.PriceBar }

func (f recordedFetcher) Fetch(_ context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	var out []model.PriceBar
	for _, b := range f.bars {
		if b.Symbol == symbol && !b.Date.Before(start) && b.Date.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

var (
	dateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	closeRe = regexp.MustCompile(`close=([0-9.]+)`)
)

type contextModel struct{}

func (contextModel) Generate(_ context.Context, _, prompt string) (string, error) {
	parts := strings.SplitN(prompt, "\nQuestion: ", 2)
	date := dateRe.FindString(parts[1])
	for _, line := range strings.Split(parts[0], "\n") {
		if date != "" && strings.Contains(line, date) {
			if c := closeRe.FindStringSubmatch(line); c != nil {
				return c[1], nil
			}
		}
	}
	return "I do not know.", nil
}

func TestRefreshIndexAndAnswer(t *testing.T) {
	d := dbtest.Start(t)
	ctx := context.Background()

	mgr, err := schema.New(d.URL, nil)
	require.NoError(t, err)
	defer mgr.Close()

	store := &db.Store{Pool: d.Pool, BatchSize: 2}
	name, city := "Apple Inc.", "Cupertino"
	refresher := &pipeline.Refresher{
		Symbols: symbols.Static{"AAPL"},
		Schema:  mgr,
		Store:   store,
		Fetcher: recordedFetcher{bars: aaplBars},
		Window:  prices.Window{Start: day(2), End: day(5)},

		MetadataFile: "hq.xlsx",
		ReadMetadata: func(string) ([]model.CompanyMetadata, error) {
			return []model.CompanyMetadata{{Symbol: "AAPL", Name: &name, City: &city}}, nil
		},
	}

	report, err := refresher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Inserted)
	assert.Equal(t, int64(3), d.Count(t, schema.PriceHistoryTable))
	assert.Equal(t, int64(1), d.Count(t, schema.CompanyMetadataTable))

	// running the same refresh again changes nothing
	report, err = refresher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Inserted)
	assert.Equal(t, int64(3), d.Count(t, schema.PriceHistoryTable))

	idx := &index.BadgerStore{Dir: filepath.Join(t.TempDir(), "vector_store")}
	embedder := embed.Hash{Dimension: 512}
	builder := &index.Builder{Store: idx, Embedder: embedder, Policy: index.PolicyAlways}

	out, err := builder.Rebuild(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Entries)

	snap, err := idx.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AAPL (Apple Inc., Cupertino) on 2024-01-02: open=187.15, high=188.44, low=183.885, close=185.64, volume=82488700", snap.Entries[0].Text)

	svc := &answer.Service{Index: &index.Reader{Store: idx}, Embedder: embedder, Model: contextModel{}}
	a, err := svc.Answer(ctx, "What was the closing price of AAPL on 2024-01-03?")
	require.NoError(t, err)
	assert.Equal(t, "184.25", a.Text)

	// an overlapping fetch adds only the new trading day
	refresher.Window = prices.Window{Start: day(3), End: day(6)}
	report, err = refresher.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Attempted)
	assert.Equal(t, int64(1), report.Inserted)
	assert.Equal(t, int64(4), d.Count(t, schema.PriceHistoryTable))

	out, err = builder.Rebuild(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Entries)
}

func TestIndexBuildOnEmptyTableIsNoOp(t *testing.T) {
	d := dbtest.Setup(t)
	ctx := context.Background()

	idx := &index.BadgerStore{Dir: filepath.Join(t.TempDir(), "vector_store")}
	out, err := (&index.Builder{Store: idx, Embedder: embed.Hash{}}).Rebuild(ctx, &db.Store{Pool: d.Pool}, false)
	require.NoError(t, err)
	assert.False(t, out.Built)

	st, err := idx.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, index.StateAbsent, st)

	svc := &answer.Service{Index: &index.Reader{Store: idx}, Embedder: embed.Hash{}, Model: contextModel{}}
	_, err = svc.Answer(ctx, "What was AAPL's close on 2024-01-03?")
	assert.ErrorIs(t, err, answer.ErrNoData)
}
