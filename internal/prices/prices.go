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

// Package prices fetches daily price bars from a market data provider.
package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/ajjensen13/stockqa/internal/extract"
	"github.com/ajjensen13/stockqa/internal/model"
	"github.com/ajjensen13/stockqa/internal/transform"
)

// Fetcher returns the daily bars of symbol dated in [start, end). A symbol
// without data in the window yields an empty slice and a nil error.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error)
}

// Retry holds what a fetcher needs to retry provider calls.
type Retry struct {
	BackOff func() backoff.BackOff
	Notify  backoff.Notify
	Limiter *rate.Limiter
}

func (r Retry) wait(ctx context.Context) error {
	if r.Limiter == nil {
		return nil
	}
	return r.Limiter.Wait(ctx)
}

func (r Retry) backOff() backoff.BackOff {
	if r.BackOff == nil {
		return &backoff.StopBackOff{}
	}
	return r.BackOff()
}

// localMidnight returns the start of date's calendar day in tz.
func localMidnight(date time.Time, tz *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, tz)
}

type Yahoo struct {
	Client   *resty.Client
	BaseURL  string
	Location *time.Location
	Retry    Retry
}

func (y *Yahoo) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	if err := y.Retry.wait(ctx); err != nil {
		return nil, err
	}

	chart, err := extract.YahooChart(ctx, y.Client, y.BaseURL, y.Retry.backOff(), y.Retry.Notify, symbol, localMidnight(start, y.Location), localMidnight(end, y.Location))
	if err != nil {
		return nil, err
	}

	bars, err := transform.Chart(symbol, chart, y.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to transform chart for stock %q: %w", symbol, err)
	}
	return transform.InWindow(bars, start, end), nil
}

type Finnhub struct {
	Client   *finnhub.DefaultApiService
	APIKey   string
	Location *time.Location
	Retry    Retry
}

func (f *Finnhub) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	if err := f.Retry.wait(ctx); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: f.APIKey})
	candles, err := extract.Candles(ctx, f.Client, f.Retry.backOff(), f.Retry.Notify, symbol, localMidnight(start, f.Location), localMidnight(end, f.Location))
	if err != nil {
		return nil, err
	}

	bars, err := transform.Candles(symbol, candles, f.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to transform candles for stock %q: %w", symbol, err)
	}
	return transform.InWindow(bars, start, end), nil
}
