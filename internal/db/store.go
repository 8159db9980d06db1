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

// Package db binds the extract, load and corpus queries to a connection pool.
package db

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"time"

	"github.com/ajjensen13/stockqa/internal/corpus"
	"github.com/ajjensen13/stockqa/internal/extract"
	"github.com/ajjensen13/stockqa/internal/load"
	"github.com/ajjensen13/stockqa/internal/model"
	"github.com/ajjensen13/stockqa/internal/util"
)

// DefaultBatchSize bounds how many bars share one transaction.
const DefaultBatchSize = 500

type Store struct {
	Pool      *pgxpool.Pool
	BatchSize int
	BackOff   func() backoff.BackOff
	Notify    backoff.Notify
}

// Upserted reports the outcome of a price bar upsert.
type Upserted struct {
	Attempted int64
	Inserted  int64
}

func (s *Store) retry(ctx context.Context, timeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	bo := backoff.BackOff(&backoff.StopBackOff{})
	if s.BackOff != nil {
		bo = s.BackOff()
	}
	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return util.RunTx(ctx, s.Pool, f)
	}, backoff.WithContext(bo, ctx), s.Notify)
}

func (s *Store) LatestDates(ctx context.Context) (map[string]time.Time, error) {
	var result map[string]time.Time
	err := s.retry(ctx, util.ShortReqTimeout, func(ctx context.Context, tx pgx.Tx) (err error) {
		result, err = extract.LatestDates(ctx, tx)
		return err
	})
	return result, err
}

// UpsertPriceBars writes bars in bounded chunks, one transaction per chunk.
// A failed chunk leaves earlier chunks committed.
func (s *Store) UpsertPriceBars(ctx context.Context, bars []model.PriceBar) (Upserted, error) {
	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var result Upserted
	for start := 0; start < len(bars); start += size {
		end := start + size
		if end > len(bars) {
			end = len(bars)
		}
		chunk := bars[start:end]

		var inserted int64
		err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) (err error) {
			inserted, err = load.PriceBars(ctx, tx, chunk)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to upsert price bars [%d:%d]: %w", start, end, err)
		}

		result.Attempted += int64(len(chunk))
		result.Inserted += inserted
		util.Logf(ctx, logging.Debug, "upserted price bars [%d:%d]: %d new", start, end, inserted)
	}
	return result, nil
}

func (s *Store) UpsertMetadata(ctx context.Context, rows []model.CompanyMetadata) (int64, error) {
	var affected int64
	err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) (err error) {
		affected, err = load.CompanyMetadata(ctx, tx, rows)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert company metadata: %w", err)
	}
	return affected, nil
}

func (s *Store) CorpusRows(ctx context.Context) ([]corpus.Row, error) {
	var result []corpus.Row
	err := s.retry(ctx, util.MedReqTimeout, func(ctx context.Context, tx pgx.Tx) (err error) {
		result, err = corpus.QueryRows(ctx, tx)
		return err
	})
	return result, err
}
