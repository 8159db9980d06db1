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

package transform

import (
	"fmt"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/shopspring/decimal"
	"math"
	"time"

	"github.com/ajjensen13/stockqa/internal/extract"
	"github.com/ajjensen13/stockqa/internal/model"
)

// PricePlaces is the number of decimal places prices are rounded to.
const PricePlaces = 4

// TradingDate maps a provider timestamp to its trading date in the exchange
// timezone tz.
func TradingDate(ts int64, tz *time.Location) time.Time {
	return model.Day(time.Unix(ts, 0).In(tz))
}

func Candles(symbol string, in finnhub.StockCandles, tz *time.Location) ([]model.PriceBar, error) {
	l := len(in.T)
	switch {
	case l == 0:
		return nil, nil
	case len(in.O) != l:
		return nil, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(in.O), l, symbol)
	case len(in.H) != l:
		return nil, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(in.H), l, symbol)
	case len(in.L) != l:
		return nil, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(in.L), l, symbol)
	case len(in.C) != l:
		return nil, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(in.C), l, symbol)
	case len(in.V) != l:
		return nil, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(in.V), l, symbol)
	}

	result := make([]model.PriceBar, l)
	for ndx, ts := range in.T {
		v := int64(math.Round(float64(in.V[ndx])))
		result[ndx] = model.PriceBar{
			Symbol: symbol,
			Date:   TradingDate(ts, tz),
			Open:   price32(in.O[ndx]),
			High:   price32(in.H[ndx]),
			Low:    price32(in.L[ndx]),
			Close:  price32(in.C[ndx]),
			Volume: &v,
		}
	}

	return dedupe(result), nil
}

func Chart(symbol string, in extract.Chart, tz *time.Location) ([]model.PriceBar, error) {
	if len(in.Chart.Result) == 0 {
		return nil, nil
	}
	r := in.Chart.Result[0]

	l := len(r.Timestamp)
	if l == 0 {
		return nil, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart for stock %q has %d timestamps but no quotes", symbol, l)
	}

	q := r.Indicators.Quote[0]
	switch {
	case len(q.Open) != l:
		return nil, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(q.Open), l, symbol)
	case len(q.High) != l:
		return nil, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(q.High), l, symbol)
	case len(q.Low) != l:
		return nil, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(q.Low), l, symbol)
	case len(q.Close) != l:
		return nil, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(q.Close), l, symbol)
	case len(q.Volume) != l:
		return nil, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(q.Volume), l, symbol)
	}

	result := make([]model.PriceBar, 0, l)
	for ndx, ts := range r.Timestamp {
		bar := model.PriceBar{
			Symbol: symbol,
			Date:   TradingDate(ts, tz),
			Open:   price64(q.Open[ndx]),
			High:   price64(q.High[ndx]),
			Low:    price64(q.Low[ndx]),
			Close:  price64(q.Close[ndx]),
		}
		if v := q.Volume[ndx]; v != nil {
			vol := *v
			bar.Volume = &vol
		}
		result = append(result, bar)
	}

	return dedupe(result), nil
}

// InWindow drops bars dated outside [start, end).
func InWindow(bars []model.PriceBar, start, end time.Time) []model.PriceBar {
	result := bars[:0]
	for _, b := range bars {
		if b.Date.Before(start) || !b.Date.Before(end) {
			continue
		}
		result = append(result, b)
	}
	return result
}

// dedupe keeps the last bar reported for each date.
func dedupe(bars []model.PriceBar) []model.PriceBar {
	seen := make(map[time.Time]int, len(bars))
	result := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		if ndx, ok := seen[b.Date]; ok {
			result[ndx] = b
			continue
		}
		seen[b.Date] = len(result)
		result = append(result, b)
	}
	return result
}

func price32(f float32) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat32(f).Round(PricePlaces))
}

func price64(f *float64) decimal.NullDecimal {
	if f == nil || math.IsNaN(*f) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f).Round(PricePlaces))
}
