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

package load

import (
	"context"
	"fmt"
	"github.com/jackc/pgtype"
	numeric "github.com/jackc/pgtype/ext/shopspring-numeric"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
	"time"

	"github.com/ajjensen13/stockqa/internal/model"
)

const insertPriceBar = `INSERT INTO price_history (symbol, date, open, high, low, close, volume) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (symbol, date) DO NOTHING`

const upsertCompanyMetadata = `INSERT INTO company_metadata (symbol, company_name, city, address) VALUES ($1, $2, $3, $4) ON CONFLICT (symbol) DO UPDATE SET company_name = EXCLUDED.company_name, city = EXCLUDED.city, address = EXCLUDED.address`

// PriceBars inserts bars that are not already stored and returns how many
// rows were new. Existing (symbol, date) rows are left untouched.
func PriceBars(ctx context.Context, tx pgx.Tx, bars []model.PriceBar) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(insertPriceBar, b.Symbol, date(b.Date), nullNumeric(b.Open), nullNumeric(b.High), nullNumeric(b.Low), nullNumeric(b.Close), b.Volume)
	}

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for _, b := range bars {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to load price bar %q %s: %w", b.Symbol, b.Date.Format(model.DateLayout), err)
		}
		inserted += tag.RowsAffected()
	}

	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close price bar batch: %w", err)
	}
	return inserted, nil
}

// CompanyMetadata upserts rows keyed by symbol. A later row for the same
// symbol replaces every field of the earlier one.
func CompanyMetadata(ctx context.Context, tx pgx.Tx, rows []model.CompanyMetadata) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertCompanyMetadata, r.Symbol, r.Name, r.City, r.Address)
	}

	results := tx.SendBatch(ctx, batch)
	var affected int64
	for _, r := range rows {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to load company metadata %q: %w", r.Symbol, err)
		}
		affected += tag.RowsAffected()
	}

	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close company metadata batch: %w", err)
	}
	return affected, nil
}

func date(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Status: pgtype.Present}
}

func nullNumeric(d decimal.NullDecimal) *numeric.Numeric {
	if !d.Valid {
		return &numeric.Numeric{Status: pgtype.Null}
	}
	return &numeric.Numeric{Decimal: d.Decimal, Status: pgtype.Present}
}
