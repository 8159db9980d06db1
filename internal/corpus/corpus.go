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

// Package corpus renders stored price rows into the text entries that are
// embedded into the search index.
package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgtype"
	numeric "github.com/jackc/pgtype/ext/shopspring-numeric"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"github.com/ajjensen13/stockqa/internal/model"
)

// Row is a stored price bar joined with its company metadata, if any.
type Row struct {
	model.PriceBar
	Name    *string
	City    *string
	Address *string
}

// Source provides every stored row ordered by date then symbol.
type Source interface {
	CorpusRows(ctx context.Context) ([]Row, error)
}

const selectRows = `SELECT p.symbol, p.date, p.open, p.high, p.low, p.close, p.volume, m.company_name, m.city, m.address
FROM price_history p
LEFT JOIN company_metadata m ON m.symbol = p.symbol
ORDER BY p.date, p.symbol`

// QueryRows reads all rows inside tx.
func QueryRows(ctx context.Context, tx pgx.Tx) ([]Row, error) {
	rows, err := tx.Query(ctx, selectRows)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus rows: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		var date pgtype.Date
		var open, high, low, cls numeric.Numeric
		err := rows.Scan(&r.Symbol, &date, &open, &high, &low, &cls, &r.Volume, &r.Name, &r.City, &r.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to parse corpus row: %w", err)
		}
		r.Date = model.Day(date.Time)
		r.Open, r.High, r.Low, r.Close = nullDecimal(open), nullDecimal(high), nullDecimal(low), nullDecimal(cls)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus rows: %w", err)
	}
	return result, nil
}

func nullDecimal(n numeric.Numeric) decimal.NullDecimal {
	if n.Status != pgtype.Present {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(n.Decimal)
}

// Render produces the entry for one row. The output depends only on the row.
func Render(r Row) model.CorpusEntry {
	var sb strings.Builder
	sb.WriteString(r.Symbol)

	var about []string
	for _, p := range []*string{r.Name, r.City, r.Address} {
		if p != nil && strings.TrimSpace(*p) != "" {
			about = append(about, strings.TrimSpace(*p))
		}
	}
	if len(about) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(about, ", "))
		sb.WriteString(")")
	}

	date := r.Date.Format(model.DateLayout)
	sb.WriteString(" on ")
	sb.WriteString(date)
	sb.WriteString(":")

	var fields []string
	for _, f := range []struct {
		name string
		val  decimal.NullDecimal
	}{{"open", r.Open}, {"high", r.High}, {"low", r.Low}, {"close", r.Close}} {
		if f.val.Valid {
			fields = append(fields, f.name+"="+f.val.Decimal.String())
		}
	}
	if r.Volume != nil {
		fields = append(fields, fmt.Sprintf("volume=%d", *r.Volume))
	}
	if len(fields) == 0 {
		sb.WriteString(" no trading data")
	} else {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(fields, ", "))
	}

	tag := map[string]string{
		model.TagSymbol: r.Symbol,
		model.TagDate:   date,
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) != "" {
		tag[model.TagCompany] = strings.TrimSpace(*r.Name)
	}

	return model.CorpusEntry{Text: sb.String(), Tag: tag}
}

// RenderAll renders rows in order.
func RenderAll(rows []Row) []model.CorpusEntry {
	result := make([]model.CorpusEntry, len(rows))
	for i, r := range rows {
		result[i] = Render(r)
	}
	return result
}

// Build reads every row from src and renders it. An empty table yields an
// empty corpus.
func Build(ctx context.Context, src Source) ([]model.CorpusEntry, error) {
	rows, err := src.CorpusRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus: %w", err)
	}
	return RenderAll(rows), nil
}
