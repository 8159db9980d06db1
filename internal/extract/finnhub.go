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
	"fmt"
	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"io"
	"net/http"
	"time"
)

// DailyResolution is the finnhub candle resolution for one bar per day.
const DailyResolution = "D"

// Stocks lists every symbol traded on exchange.
func Stocks(ctx context.Context, client *finnhub.DefaultApiService, bo backoff.BackOff, bon backoff.Notify, exchange string) ([]finnhub.Stock, error) {
	var result []finnhub.Stock
	err := backoff.RetryNotify(func() error {
		ss, resp, err := client.StockSymbols(ctx, exchange)
		if err != nil {
			return handleErr(fmt.Sprintf("error while getting %q stocks", exchange), resp, err)
		}
		result = ss
		return nil
	}, backoff.WithContext(bo, ctx), bon)

	return result, err
}

// Candles requests daily candles for symbol in [startDate, endDate).
func Candles(ctx context.Context, client *finnhub.DefaultApiService, bo backoff.BackOff, bon backoff.Notify, symbol string, startDate, endDate time.Time) (finnhub.StockCandles, error) {
	var result finnhub.StockCandles
	err := backoff.RetryNotify(func() error {
		// finnhub treats "to" as inclusive
		c, resp, err := client.StockCandles(ctx, symbol, DailyResolution, startDate.Unix(), endDate.Add(-time.Second).Unix(), nil)
		if err != nil {
			return handleErr(fmt.Sprintf("error while getting candles for stock %q", symbol), resp, err)
		}
		result = c
		return nil
	}, backoff.WithContext(bo, ctx), bon)

	return result, err
}

var ErrToManyRequests = errors.New("error: too many requests")

// handleErr classifies a failed provider call. Rate limiting is retryable,
// other client errors are permanent.
func handleErr(msg string, resp *http.Response, err error) error {
	switch {
	case resp == nil:
		return fmt.Errorf("%s: %w", msg, err)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, ErrToManyRequests)
	}

	if resp.Body != nil {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			msg = fmt.Sprintf("error while to parsing error response %v. %s", readErr, msg)
		} else if len(body) > 0 {
			msg = fmt.Sprintf("%s (%s)", msg, body)
		}
	}

	err = fmt.Errorf("%s: %w", msg, err)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}
