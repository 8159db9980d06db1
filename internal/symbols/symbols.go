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

// Package symbols resolves the list of ticker symbols a refresh covers.
package symbols

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/ajjensen13/stockqa/internal/extract"
	"github.com/ajjensen13/stockqa/internal/model"
)

// ErrUnavailable is returned when the symbol reference cannot be read or
// holds no usable symbols.
var ErrUnavailable = errors.New("symbol source unavailable")

// Column is the header that identifies the symbol column of a CSV manifest.
const Column = "Symbol"

type Source interface {
	Symbols(ctx context.Context) ([]string, error)
}

type Static []string

func (s Static) Symbols(context.Context) ([]string, error) {
	return finish("static list", s)
}

// File reads a local CSV manifest.
type File struct {
	Path string
}

func (f File) Symbols(context.Context) ([]string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer fh.Close()

	ss, err := parseCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, f.Path, err)
	}
	return finish(f.Path, ss)
}

// Remote fetches a CSV manifest over HTTP.
type Remote struct {
	Client *resty.Client
	URL    string
}

func (r Remote) Symbols(ctx context.Context) ([]string, error) {
	resp, err := r.Client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(r.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.URL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnavailable, r.URL, resp.StatusCode())
	}

	ss, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, r.URL, err)
	}
	return finish(r.URL, ss)
}

// Exchange lists every symbol finnhub reports for an exchange.
type Exchange struct {
	Client   *finnhub.DefaultApiService
	APIKey   string
	Exchange string
	BackOff  backoff.BackOff
	Notify   backoff.Notify
}

func (e Exchange) Symbols(ctx context.Context) ([]string, error) {
	ctx = context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: e.APIKey})
	bo := e.BackOff
	if bo == nil {
		bo = &backoff.StopBackOff{}
	}

	stocks, err := extract.Stocks(ctx, e.Client, bo, e.Notify, e.Exchange)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ss := make([]string, 0, len(stocks))
	for _, s := range stocks {
		ss = append(ss, s.Symbol)
	}
	return finish("exchange "+e.Exchange, ss)
}

func parseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), Column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no %q column in header %v", Column, header)
	}

	var result []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if col < len(rec) {
			result = append(result, rec[col])
		}
	}
	return result, nil
}

// finish canonicalises, drops blanks and duplicates while keeping
// first-seen order.
func finish(origin string, in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	result := make([]string, 0, len(in))
	for _, s := range in {
		s = model.Symbol(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s lists no symbols", ErrUnavailable, origin)
	}
	return result, nil
}
