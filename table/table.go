// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table renders small tables as aligned text or CSV.
package table

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockparfait/errors"
)

// Table container. When present, the header is expected to have as many cells
// as every row.
//
// A typical use:
//
//	t := NewTable("Window", "Rows")
//	t.AddRow("[1900-01-01, 1900-01-08)", "12")
//	t.WriteText(os.Stdout, Params{})
type Table struct {
	Header []string // optional, may be nil
	Rows   [][]string
}

// NewTable creates a new Table instance with optional column headers.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds a row of cells to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// rows to write, including the header.
func (t *Table) rows(p Params) [][]string {
	var res [][]string
	if !p.NoHeader && len(t.Header) > 0 {
		res = append(res, t.Header)
	}
	body := t.Rows
	if p.Rows > 0 && len(body) > p.Rows {
		body = body[:p.Rows]
	}
	return append(res, body...)
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.rows(p)); err != nil {
		return errors.Annotate(err, "failed to write CSV")
	}
	return nil
}

// WriteText writes the table as right-aligned columns separated by " | ", with
// a dashed line under the header. Cells wider than MaxColWidth are truncated
// with "..".
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	rows := t.rows(p)
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(rows[0]))
	for i, row := range rows {
		if len(row) != len(widths) {
			return errors.Reason("row %d size [%d] != expected size [%d]",
				i, len(row), len(widths))
		}
		for j, cell := range row {
			n := len([]rune(cell))
			if p.MaxColWidth > 0 && n > p.MaxColWidth {
				n = p.MaxColWidth
			}
			if n > widths[j] {
				widths[j] = n
			}
		}
	}
	line := func(row []string) error {
		cells := make([]string, len(row))
		for j, cell := range row {
			if r := []rune(cell); len(r) > widths[j] {
				cell = string(r[:widths[j]-2]) + ".."
			}
			cells[j] = fmt.Sprintf("%*s", widths[j], cell)
		}
		_, err := fmt.Fprintln(w, strings.Join(cells, " | "))
		return err
	}
	for i, row := range rows {
		if err := line(row); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
		if i == 0 && !p.NoHeader && len(t.Header) > 0 {
			dashes := make([]string, len(widths))
			for j, n := range widths {
				dashes[j] = strings.Repeat("-", n)
			}
			if err := line(dashes); err != nil {
				return errors.Annotate(err, "failed to write header separator")
			}
		}
	}
	return nil
}

// format a scanned SQL value as a cell.
func format(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case float64:
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Query runs an SQL query and collects the result into a table, with column
// names as the header.
func Query(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Annotate(err, "failed to run query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read columns")
	}
	t := NewTable(cols...)
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Annotate(err, "failed to scan row %d", len(t.Rows))
		}
		cells := make([]string, len(cols))
		for i, v := range values {
			cells[i] = format(v)
		}
		t.AddRow(cells...)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotate(err, "failed to read rows")
	}
	return t, nil
}
