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

package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajjensen13/stockqa/internal/extract"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWindowRange(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-01-05 03:00 UTC is still Jan 4th in New York.
	w := Window{LookbackDays: 1825, Location: tz, Now: func() time.Time { return time.Date(2024, 1, 5, 3, 0, 0, 0, time.UTC) }}

	start, end, ok := w.Range(day(2024, 1, 3))
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 4), start)
	assert.Equal(t, day(2024, 1, 5), end)

	start, end, ok = w.Range(time.Time{})
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 4).AddDate(0, 0, -1825), start)
	assert.Equal(t, day(2024, 1, 5), end)

	_, _, ok = w.Range(day(2024, 1, 4))
	assert.False(t, ok, "symbol is up to date")
}

func TestWindowExcludesOpenSession(t *testing.T) {
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 10:00 in New York on 2024-01-04, the session is still trading.
	w := Window{LookbackDays: 10, Location: tz, Now: func() time.Time { return time.Date(2024, 1, 4, 15, 0, 0, 0, time.UTC) }}

	start, end, ok := w.Range(day(2024, 1, 2))
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 3), start)
	assert.Equal(t, day(2024, 1, 4), end)

	_, _, ok = w.Range(day(2024, 1, 3))
	assert.False(t, ok, "today's bar waits for the close")

	w.Now = func() time.Time { return time.Date(2024, 1, 4, 21, 0, 0, 0, time.UTC) }
	_, end, ok = w.Range(day(2024, 1, 3))
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 5), end)
}

func TestWindowOverrides(t *testing.T) {
	w := Window{Start: day(2024, 1, 2), End: day(2024, 1, 5)}
	start, end, ok := w.Range(day(2024, 1, 3))
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 2), start)
	assert.Equal(t, day(2024, 1, 5), end)
}

const aaplChart = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[187.15,184.22,182.15],"high":[188.44,185.88,183.0872],
"low":[183.885,183.43,180.88],"close":[185.64,184.25,181.91],"volume":[82488700,58414500,71983600]}]}}],"error":null}}`

func testRetry() Retry {
	return Retry{BackOff: func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	}}
}

func newYahoo(t *testing.T, h http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return &Yahoo{Client: extract.NewYahooClient(5 * time.Second), BaseURL: srv.URL, Location: tz, Retry: testRetry()}
}

func TestYahooFetch(t *testing.T) {
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(aaplChart))
	})

	bars, err := y.Fetch(context.Background(), "AAPL", day(2024, 1, 3), day(2024, 1, 5))
	require.NoError(t, err)
	require.Len(t, bars, 2, "bars outside the window are dropped")
	assert.Equal(t, day(2024, 1, 3), bars[0].Date)
	assert.Equal(t, day(2024, 1, 4), bars[1].Date)
}

func TestYahooFetchUnknownSymbol(t *testing.T) {
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	bars, err := y.Fetch(context.Background(), "GONE", day(2024, 1, 3), day(2024, 1, 5))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestYahooFetchRetriesRateLimit(t *testing.T) {
	var calls int32
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(aaplChart))
	})

	bars, err := y.Fetch(context.Background(), "AAPL", day(2024, 1, 2), day(2024, 1, 5))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestYahooFetchClientErrorIsPermanent(t *testing.T) {
	var calls int32
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := y.Fetch(context.Background(), "AAPL", day(2024, 1, 2), day(2024, 1, 5))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func newFinnhub(t *testing.T, h http.HandlerFunc) *Finnhub {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := finnhub.NewConfiguration()
	cfg.BasePath = srv.URL

	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return &Finnhub{Client: finnhub.NewAPIClient(cfg).DefaultApi, APIKey: "test", Location: tz, Retry: testRetry()}
}

func TestFinnhubFetch(t *testing.T) {
	f := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"ok","t":[1704205800,1704292200,1704378600],"o":[187.15,184.22,182.15],"h":[188.44,185.88,183.0872],"l":[183.885,183.43,180.88],"c":[185.64,184.25,181.91],"v":[82488700,58414500,71983600]}`))
	})

	bars, err := f.Fetch(context.Background(), "AAPL", day(2024, 1, 3), day(2024, 1, 5))
	require.NoError(t, err)
	require.Len(t, bars, 2, "bars outside the window are dropped")
	assert.Equal(t, day(2024, 1, 3), bars[0].Date)
	assert.Equal(t, "184.25", bars[0].Close.Decimal.String())
	assert.Equal(t, int64(58414500), *bars[0].Volume)
}

func TestFinnhubFetchNoData(t *testing.T) {
	f := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	})

	bars, err := f.Fetch(context.Background(), "GONE", day(2024, 1, 3), day(2024, 1, 5))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFinnhubFetchClientErrorIsPermanent(t *testing.T) {
	var calls int32
	f := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := f.Fetch(context.Background(), "AAPL", day(2024, 1, 3), day(2024, 1, 5))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
