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

package db

import (
	"fmt"
	"strings"

	"github.com/stockparfait/errors"

	"github.com/stockparfait/neows/flatten"
)

// ErrSchemaMismatch is returned when a batch does not fit the table, or the
// rows of a batch disagree on their columns.
var ErrSchemaMismatch = errors.Reason("schema mismatch")

// Column types used by the store.
const (
	TypeVarchar = "VARCHAR"
	TypeDouble  = "DOUBLE"
	TypeBoolean = "BOOLEAN"
)

// Column is the schema definition for a single table column.
type Column struct {
	Name string
	Type string
}

// Schema definition for a table, in column order.
type Schema []Column

// String prints a string representation of the schema.
func (s Schema) String() string {
	fields := []string{}
	for _, c := range s {
		fields = append(fields, fmt.Sprintf("%s: %s", c.Name, c.Type))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// MapColumns creates a map of {column name -> type}.
func (s Schema) MapColumns() map[string]string {
	res := make(map[string]string)
	for _, c := range s {
		res[c.Name] = c.Type
	}
	return res
}

// Compatible checks that the batch schema b can be appended to the table with
// schema s: the same set of column names with the same types. A batch column
// with an empty type fits any type. Column order is irrelevant, since inserts
// name their columns.
func (s Schema) Compatible(b Schema) error {
	if len(s) != len(b) {
		return errors.Annotate(ErrSchemaMismatch,
			"table has %d columns, batch has %d: table %s, batch %s",
			len(s), len(b), s, b)
	}
	m := s.MapColumns()
	for _, c := range b {
		tp, ok := m[c.Name]
		if !ok {
			return errors.Annotate(ErrSchemaMismatch, "table has no column '%s'", c.Name)
		}
		if c.Type != "" && tp != c.Type {
			return errors.Annotate(ErrSchemaMismatch,
				"column '%s' is %s in the table, %s in the batch", c.Name, tp, c.Type)
		}
	}
	return nil
}

// valueType maps a cell value to a column type. The empty string means the
// value (nil) fits any type.
func valueType(v flatten.Value) (string, error) {
	switch v.(type) {
	case nil:
		return "", nil
	case string:
		return TypeVarchar, nil
	case float64:
		return TypeDouble, nil
	case bool:
		return TypeBoolean, nil
	default:
		return "", errors.Reason("unsupported value type %T", v)
	}
}

// InferSchema derives the schema of a batch from its first row. All rows must
// have the same column names in the same order and agree on the types of
// non-null values. A column with only null values has an empty type.
func InferSchema(rows []flatten.Row) (Schema, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	s := make(Schema, len(rows[0]))
	for i, f := range rows[0] {
		s[i].Name = f.Name
	}
	for r, row := range rows {
		if len(row) != len(s) {
			return nil, errors.Annotate(ErrSchemaMismatch,
				"row %d has %d columns, expected %d", r, len(row), len(s))
		}
		for i, f := range row {
			if f.Name != s[i].Name {
				return nil, errors.Annotate(ErrSchemaMismatch,
					"row %d column %d is '%s', expected '%s'", r, i, f.Name, s[i].Name)
			}
			tp, err := valueType(f.Value)
			if err != nil {
				return nil, errors.Annotate(err, "row %d column '%s'", r, f.Name)
			}
			if tp == "" {
				continue
			}
			if s[i].Type != "" && s[i].Type != tp {
				return nil, errors.Annotate(ErrSchemaMismatch,
					"row %d column '%s' is %s, expected %s", r, f.Name, tp, s[i].Type)
			}
			s[i].Type = tp
		}
	}
	return s, nil
}

// Quote an SQL identifier, such as a table or column name. Column names contain
// dots.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
