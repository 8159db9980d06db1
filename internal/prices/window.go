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
	"time"

	"github.com/ajjensen13/stockqa/internal/model"
)

// DefaultSessionClose is the exchange-local time of day after which the
// current session counts as complete.
const DefaultSessionClose = 16 * time.Hour

// Window computes the incremental fetch range of a symbol. The range ends
// after the last completed session, so a bar is never stored while its
// session is still trading.
type Window struct {
	LookbackDays int
	Location     *time.Location
	Now          func() time.Time

	// SessionClose is measured from local midnight. Zero means DefaultSessionClose.
	SessionClose time.Duration

	// Start and End override the computed bounds when non-zero.
	Start, End time.Time
}

// Range returns [start, end) for a symbol whose latest stored date is
// latest. A zero latest means nothing is stored yet. ok is false when the
// symbol is already up to date.
func (w Window) Range(latest time.Time) (start, end time.Time, ok bool) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	tz := w.Location
	if tz == nil {
		tz = time.UTC
	}
	local := now().In(tz)
	today := model.Day(local)

	closeAt := w.SessionClose
	if closeAt <= 0 {
		closeAt = DefaultSessionClose
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)

	end = today
	if !local.Before(midnight.Add(closeAt)) {
		end = today.AddDate(0, 0, 1)
	}
	if !w.End.IsZero() {
		end = model.Day(w.End)
	}

	switch {
	case !w.Start.IsZero():
		start = model.Day(w.Start)
	case latest.IsZero():
		start = today.AddDate(0, 0, -w.LookbackDays)
	default:
		start = model.Day(latest).AddDate(0, 0, 1)
	}

	return start, end, start.Before(end)
}
