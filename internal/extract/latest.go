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
	"github.com/jackc/pgx/v4"
	"time"
)

// LatestDates returns the most recent stored trading date per symbol.
func LatestDates(ctx context.Context, tx pgx.Tx) (map[string]time.Time, error) {
	rows, err := tx.Query(ctx, `SELECT symbol, MAX(date) FROM price_history GROUP BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest dates: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var symbol string
		var date time.Time
		err := rows.Scan(&symbol, &date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse latest dates: %w", err)
		}
		result[symbol] = date
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read latest dates: %w", err)
	}
	return result, nil
}
