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

package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFinnhub(t *testing.T, h http.HandlerFunc) *finnhub.DefaultApiService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := finnhub.NewConfiguration()
	cfg.BasePath = srv.URL
	return finnhub.NewAPIClient(cfg).DefaultApi
}

func retries(n uint64) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), n)
}

func TestCandlesToIsInclusive(t *testing.T) {
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	client := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/stock/candle", r.URL.Path)
		assert.Equal(t, "AAPL", q.Get("symbol"))
		assert.Equal(t, DailyResolution, q.Get("resolution"))
		assert.Equal(t, strconv.FormatInt(start.Unix(), 10), q.Get("from"))
		assert.Equal(t, strconv.FormatInt(end.Unix()-1, 10), q.Get("to"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"ok","t":[1704292200],"o":[184.22],"h":[185.88],"l":[183.43],"c":[184.25],"v":[58414500]}`))
	})

	c, err := Candles(context.Background(), client, &backoff.StopBackOff{}, nil, "AAPL", start, end)
	require.NoError(t, err)
	assert.Equal(t, []int64{1704292200}, c.T)
	assert.Equal(t, []float32{184.25}, c.C)
}

func TestCandlesRetriesRateLimit(t *testing.T) {
	var calls int32
	client := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	})

	var notified []error
	bon := func(err error, _ time.Duration) { notified = append(notified, err) }

	c, err := Candles(context.Background(), client, retries(3), bon, "AAPL", time.Unix(0, 0), time.Unix(86400, 0))
	require.NoError(t, err)
	assert.Empty(t, c.T)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Len(t, notified, 1)
	assert.True(t, errors.Is(notified[0], ErrToManyRequests))
}

func TestCandlesClientErrorIsPermanent(t *testing.T) {
	var calls int32
	client := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"You don't have access to this resource."}`))
	})

	_, err := Candles(context.Background(), client, retries(3), nil, "AAPL", time.Unix(0, 0), time.Unix(86400, 0))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCandlesServerErrorIsRetried(t *testing.T) {
	var calls int32
	client := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := Candles(context.Background(), client, retries(2), nil, "AAPL", time.Unix(0, 0), time.Unix(86400, 0))
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHandleErr(t *testing.T) {
	cause := errors.New("boom")

	err := handleErr("no response", nil, cause)
	assert.ErrorIs(t, err, cause)

	err = handleErr("limited", &http.Response{StatusCode: http.StatusTooManyRequests}, cause)
	assert.ErrorIs(t, err, ErrToManyRequests)

	var permanent *backoff.PermanentError
	err = handleErr("bad request", &http.Response{StatusCode: http.StatusBadRequest}, cause)
	assert.True(t, errors.As(err, &permanent))
	assert.ErrorIs(t, err, cause)

	err = handleErr("unavailable", &http.Response{StatusCode: http.StatusServiceUnavailable}, cause)
	assert.False(t, errors.As(err, &permanent))
}

func TestStocks(t *testing.T) {
	client := newFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/symbol", r.URL.Path)
		assert.Equal(t, "US", r.URL.Query().Get("exchange"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","description":"APPLE INC"},{"symbol":"MSFT","description":"MICROSOFT CORP"}]`))
	})

	ss, err := Stocks(context.Background(), client, &backoff.StopBackOff{}, nil, "US")
	require.NoError(t, err)
	require.Len(t, ss, 2)
	assert.Equal(t, "AAPL", ss[0].Symbol)
}
