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

// Package pipeline runs the refresh: symbols, prices and company metadata.
package pipeline

import (
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajjensen13/stockqa/internal/db"
	"github.com/ajjensen13/stockqa/internal/metadata"
	"github.com/ajjensen13/stockqa/internal/model"
	"github.com/ajjensen13/stockqa/internal/prices"
	"github.com/ajjensen13/stockqa/internal/symbols"
	"github.com/ajjensen13/stockqa/internal/util"
)

type Store interface {
	LatestDates(ctx context.Context) (map[string]time.Time, error)
	UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (db.Upserted, error)
	UpsertMetadata(ctx context.Context, rows []model.CompanyMetadata) (int64, error)
}

type Schema interface {
	Ensure(ctx context.Context) error
}

type Refresher struct {
	Symbols symbols.Source
	Schema  Schema
	Store   Store
	Fetcher prices.Fetcher
	Window  prices.Window

	// MetadataFile is optional. A missing file is skipped.
	MetadataFile string
	ReadMetadata func(path string) ([]model.CompanyMetadata, error)
}

type Report struct {
	Symbols   int               `json:"symbols"`
	Fetched   int               `json:"fetched"`
	UpToDate  []string          `json:"up_to_date,omitempty"`
	NoData    []string          `json:"no_data,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
	Attempted int64             `json:"bars_attempted"`
	Inserted  int64             `json:"bars_inserted"`

	MetadataRows    int64  `json:"metadata_rows"`
	MetadataSkipped string `json:"metadata_skipped,omitempty"`
}

// Run refreshes stored prices and metadata. Configuration problems (no
// symbols, malformed metadata) fail before anything is written. Per-symbol
// provider failures are logged and skipped. Database failures abort the run.
func (r *Refresher) Run(ctx context.Context) (Report, error) {
	report := Report{Failed: map[string]string{}}

	ss, err := r.Symbols.Symbols(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to resolve symbols: %w", err)
	}
	report.Symbols = len(ss)
	util.Logf(ctx, logging.Default, "resolved %d symbols", len(ss))

	md, skipped, err := r.readMetadata(ctx)
	if err != nil {
		return report, err
	}
	report.MetadataSkipped = skipped

	if err := r.Schema.Ensure(ctx); err != nil {
		return report, fmt.Errorf("failed to ensure schema: %w", err)
	}

	latest, err := r.Store.LatestDates(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to read latest dates: %w", err)
	}

	for i, symbol := range ss {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("aborting refresh at %q: %w", symbol, err)
		}
		ctx := util.WithLoggerValue(ctx, "symbol", symbol)

		start, end, ok := r.Window.Range(latest[symbol])
		if !ok {
			util.Logf(ctx, logging.Debug, "[%d/%d] %s is up to date", i+1, len(ss), symbol)
			report.UpToDate = append(report.UpToDate, symbol)
			continue
		}

		bars, err := r.Fetcher.Fetch(ctx, symbol, start, end)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, fmt.Errorf("aborting refresh at %q: %w", symbol, err)
			}
			util.Logf(ctx, logging.Warning, "[%d/%d] %s failed: %v", i+1, len(ss), symbol, err)
			report.Failed[symbol] = err.Error()
			continue
		}
		if len(bars) == 0 {
			util.Logf(ctx, logging.Info, "[%d/%d] %s no data for %s to %s", i+1, len(ss), symbol, start.Format(model.DateLayout), end.Format(model.DateLayout))
			report.NoData = append(report.NoData, symbol)
			continue
		}

		res, err := r.Store.UpsertPriceBars(ctx, bars)
		report.Attempted += res.Attempted
		report.Inserted += res.Inserted
		if err != nil {
			return report, fmt.Errorf("failed to store prices for %q: %w", symbol, err)
		}
		report.Fetched++
		util.Logf(ctx, logging.Default, "[%d/%d] %s upserted %d bars, %d new", i+1, len(ss), symbol, res.Attempted, res.Inserted)
	}

	if md != nil {
		n, err := r.Store.UpsertMetadata(ctx, md)
		if err != nil {
			return report, fmt.Errorf("failed to store company metadata: %w", err)
		}
		report.MetadataRows = n
		util.Logf(ctx, logging.Default, "upserted %d company metadata rows", n)
	}

	return report, nil
}

func (r *Refresher) readMetadata(ctx context.Context) ([]model.CompanyMetadata, string, error) {
	if r.MetadataFile == "" {
		return nil, "no metadata file configured", nil
	}

	read := r.ReadMetadata
	if read == nil {
		read = metadata.Read
	}

	md, err := read(r.MetadataFile)
	switch {
	case errors.Is(err, metadata.ErrFileNotFound):
		util.Logf(ctx, logging.Warning, "skipping company metadata: %v", err)
		return nil, err.Error(), nil
	case err != nil:
		return nil, "", fmt.Errorf("failed to read company metadata: %w", err)
	}
	return md, "", nil
}
