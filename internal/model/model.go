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

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical rendering of a trading date.
const DateLayout = "2006-01-02"

// PriceBar is one daily OHLCV observation. Date is a calendar date held at
// UTC midnight.
type PriceBar struct {
	Symbol string              `json:"symbol"`
	Date   time.Time           `json:"date"`
	Open   decimal.NullDecimal `json:"open"`
	High   decimal.NullDecimal `json:"high"`
	Low    decimal.NullDecimal `json:"low"`
	Close  decimal.NullDecimal `json:"close"`
	Volume *int64              `json:"volume,omitempty"`
}

// Day truncates t to its calendar date in t's own location and returns that
// date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Symbol returns the canonical form of a ticker. Prices and metadata are
// both keyed by it.
func Symbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CompanyMetadata is descriptive company information keyed by symbol.
type CompanyMetadata struct {
	Symbol  string  `json:"symbol"`
	Name    *string `json:"name,omitempty"`
	City    *string `json:"city,omitempty"`
	Address *string `json:"address,omitempty"`
}

// CorpusEntry is the text rendering of one price row together with its tag.
type CorpusEntry struct {
	Text string            `json:"text"`
	Tag  map[string]string `json:"tag"`
}

const (
	TagSymbol  = "symbol"
	TagDate    = "date"
	TagCompany = "company"
)
