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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", Symbol(" aapl "))
	assert.Equal(t, "BRK.B", Symbol("brk.b"))
	assert.Equal(t, "", Symbol("  "))
}

func TestDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	// 23:30 in New York is already the next day in UTC.
	local := time.Date(2024, 1, 3, 23, 30, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Day(local))
}
