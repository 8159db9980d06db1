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

package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stockqa/internal/model"
)

func str(s string) *string { return &s }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func aaplRow() Row {
	vol := int64(58414500)
	return Row{
		PriceBar: model.PriceBar{
			Symbol: "AAPL",
			Date:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:   dec("184.22"),
			High:   dec("185.88"),
			Low:    dec("183.43"),
			Close:  dec("184.25"),
			Volume: &vol,
		},
		Name:    str("Apple Inc."),
		City:    str("Cupertino"),
		Address: str("One Apple Park Way"),
	}
}

func TestRender(t *testing.T) {
	e := Render(aaplRow())
	assert.Equal(t, "AAPL (Apple Inc., Cupertino, One Apple Park Way) on 2024-01-03: open=184.22, high=185.88, low=183.43, close=184.25, volume=58414500", e.Text)
	assert.Equal(t, map[string]string{"symbol": "AAPL", "date": "2024-01-03", "company": "Apple Inc."}, e.Tag)
}

func TestRenderWithoutMetadata(t *testing.T) {
	r := aaplRow()
	r.Name, r.City, r.Address = nil, nil, str("  ")

	e := Render(r)
	assert.Equal(t, "AAPL on 2024-01-03: open=184.22, high=185.88, low=183.43, close=184.25, volume=58414500", e.Text)
	assert.NotContains(t, e.Tag, "company")
}

func TestRenderOmitsNullFields(t *testing.T) {
	r := aaplRow()
	r.Name, r.City, r.Address = nil, nil, nil
	r.High = decimal.NullDecimal{}
	r.Volume = nil

	e := Render(r)
	assert.Equal(t, "AAPL on 2024-01-03: open=184.22, low=183.43, close=184.25", e.Text)

	r.Open, r.Low, r.Close = decimal.NullDecimal{}, decimal.NullDecimal{}, decimal.NullDecimal{}
	assert.Equal(t, "AAPL on 2024-01-03: no trading data", Render(r).Text)
}

func TestRenderDeterministic(t *testing.T) {
	rows := []Row{aaplRow(), aaplRow()}
	rows[1].Symbol = "MSFT"

	first := RenderAll(rows)
	second := RenderAll(rows)
	assert.Equal(t, first, second)
}

type fakeSource struct {
	rows []Row
	err  error
}

func (f fakeSource) CorpusRows(context.Context) ([]Row, error) {
	return f.rows, f.err
}

func TestBuild(t *testing.T) {
	entries, err := Build(context.Background(), fakeSource{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = Build(context.Background(), fakeSource{rows: []Row{aaplRow()}})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	boom := errors.New("boom")
	_, err = Build(context.Background(), fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}
