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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// Chart is the subset of the Yahoo chart API response used for daily bars.
// Quote values are nullable; Yahoo reports null for sessions without trades.
type Chart struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type ChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []ChartQuote `json:"quote"`
	} `json:"indicators"`
}

type ChartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *ChartError) Error() string {
	return e.Code + ": " + e.Description
}

// NewYahooClient returns a resty client configured for the chart API.
func NewYahooClient(timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; stockqa/1.0)")
	client.SetHeader("Accept", "application/json")
	return client
}

// YahooChart requests daily bars for symbol in [startDate, endDate). An
// unknown or delisted symbol yields an empty chart rather than an error.
func YahooChart(ctx context.Context, client *resty.Client, baseURL string, bo backoff.BackOff, bon backoff.Notify, symbol string, startDate, endDate time.Time) (Chart, error) {
	var result Chart
	endpoint := strings.TrimRight(baseURL, "/") + "/v8/finance/chart/" + url.PathEscape(symbol)

	err := backoff.RetryNotify(func() error {
		var chart Chart
		resp, err := client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"period1":  strconv.FormatInt(startDate.Unix(), 10),
				"period2":  strconv.FormatInt(endDate.Unix(), 10),
				"interval": "1d",
				"events":   "history",
			}).
			SetResult(&chart).
			SetError(&chart).
			Get(endpoint)
		if err != nil {
			return fmt.Errorf("error while getting chart for stock %q: %w", symbol, err)
		}

		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			return fmt.Errorf("error while getting chart for stock %q: %w", symbol, ErrToManyRequests)
		case resp.StatusCode() == http.StatusNotFound:
			result = Chart{}
			return nil
		case resp.IsError():
			err = fmt.Errorf("error while getting chart for stock %q: status %d (%s)", symbol, resp.StatusCode(), resp.Body())
			if resp.StatusCode() < 500 {
				return backoff.Permanent(err)
			}
			return err
		case chart.Chart.Error != nil:
			return backoff.Permanent(fmt.Errorf("error while getting chart for stock %q: %w", symbol, chart.Chart.Error))
		}

		result = chart
		return nil
	}, backoff.WithContext(bo, ctx), bon)

	return result, err
}
