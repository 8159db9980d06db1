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

// Package metadata reads company metadata from a spreadsheet.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ajjensen13/stockqa/internal/model"
)

var (
	// ErrFileNotFound is returned when the workbook does not exist.
	ErrFileNotFound = errors.New("metadata file not found")
	// ErrNoSymbolColumn is returned when no header identifies the symbol column.
	ErrNoSymbolColumn = errors.New("metadata has no symbol column")
)

type field int

const (
	fieldSymbol field = iota
	fieldName
	fieldCity
	fieldAddress
)

var headers = map[string]field{
	"symbol":       fieldSymbol,
	"ticker":       fieldSymbol,
	"company":      fieldName,
	"companyname":  fieldName,
	"name":         fieldName,
	"city":         fieldCity,
	"hqcity":       fieldCity,
	"address":      fieldAddress,
	"addr":         fieldAddress,
	"hqaddress":    fieldAddress,
	"headquarters": fieldAddress,
}

func normalize(h string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-', '.', '\t':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Read loads the first sheet of the workbook at path.
func Read(path string) ([]model.CompanyMetadata, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrNoSymbolColumn, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata sheet %q: %w", sheets[0], err)
	}
	return Parse(rows)
}

// Parse maps spreadsheet rows, the first being the header, to metadata.
// Rows with a blank symbol are skipped.
func Parse(rows [][]string) ([]model.CompanyMetadata, error) {
	if len(rows) == 0 {
		return nil, ErrNoSymbolColumn
	}

	cols := map[field]int{}
	for i, h := range rows[0] {
		f, ok := headers[normalize(h)]
		if !ok {
			continue
		}
		if _, dup := cols[f]; !dup {
			cols[f] = i
		}
	}
	if _, ok := cols[fieldSymbol]; !ok {
		return nil, fmt.Errorf("%w: header %v", ErrNoSymbolColumn, rows[0])
	}

	cell := func(row []string, f field) *string {
		i, ok := cols[f]
		if !ok || i >= len(row) {
			return nil
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return nil
		}
		return &v
	}

	result := make([]model.CompanyMetadata, 0, len(rows)-1)
	for _, row := range rows[1:] {
		symbol := cell(row, fieldSymbol)
		if symbol == nil {
			continue
		}
		result = append(result, model.CompanyMetadata{
			Symbol:  model.Symbol(*symbol),
			Name:    cell(row, fieldName),
			City:    cell(row, fieldCity),
			Address: cell(row, fieldAddress),
		})
	}
	return result, nil
}
