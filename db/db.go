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

// Package db is the append-only DuckDB sink for flattened feed rows.
//
// The table is created from the schema of the first batch ever written to it.
// After that, batches are only appended, and every batch must have exactly the
// table's columns and types. There is no key and no deduplication: writing the
// same rows twice stores them twice.
package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/stockparfait/neows/flatten"

	_ "github.com/marcboeker/go-duckdb"
)

// DefaultTable is the name of the table for the feed rows.
const DefaultTable = "asteroids"

// Store is a handle to the table in a DuckDB database file.
type Store struct {
	db    *sql.DB
	table string
}

// Open the database at path, creating the file if necessary. An empty path
// opens an in-memory database. An empty table name defaults to DefaultTable.
func Open(path, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open database '%s'", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to connect to database '%s'", path)
	}
	return &Store{db: db, table: table}, nil
}

// Close the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB is the underlying database, e.g. for reports.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Table name.
func (s *Store) Table() string {
	return s.table
}

// Schema of the table, or nil if the table doesn't exist yet.
func (s *Store) Schema(ctx context.Context) (Schema, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT column_name, data_type FROM information_schema.columns
WHERE table_name = ? ORDER BY ordinal_position`, s.table)
	if err != nil {
		return nil, errors.Annotate(err, "failed to query schema of '%s'", s.table)
	}
	defer rows.Close()

	var schema Schema
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, errors.Annotate(err, "failed to read schema of '%s'", s.table)
		}
		schema = append(schema, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotate(err, "failed to read schema of '%s'", s.table)
	}
	return schema, nil
}

// Count the rows in the table. A missing table has 0 rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	schema, err := s.Schema(ctx)
	if err != nil {
		return 0, err
	}
	if schema == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+Quote(s.table)).Scan(&n); err != nil {
		return 0, errors.Annotate(err, "failed to count rows in '%s'", s.table)
	}
	return n, nil
}

func (s *Store) create(ctx context.Context, tx *sql.Tx, schema Schema) error {
	cols := make([]string, len(schema))
	for i, c := range schema {
		tp := c.Type
		if tp == "" {
			tp = TypeVarchar
		}
		cols[i] = Quote(c.Name) + " " + tp
	}
	q := "CREATE TABLE IF NOT EXISTS " + Quote(s.table) + " (" + strings.Join(cols, ", ") + ")"
	if _, err := tx.ExecContext(ctx, q); err != nil {
		return errors.Annotate(err, "failed to create table '%s'", s.table)
	}
	logging.Infof(ctx, "created table %s with %d columns", s.table, len(schema))
	return nil
}

// Write appends the batch of rows to the table, creating the table from the
// batch's schema if it doesn't exist. The batch is committed in a single
// transaction. Returns the number of rows written.
func (s *Store) Write(ctx context.Context, rows []flatten.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	batch, err := InferSchema(rows)
	if err != nil {
		return 0, errors.Annotate(err, "invalid batch")
	}
	existing, err := s.Schema(ctx)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if err := existing.Compatible(batch); err != nil {
			return 0, errors.Annotate(err, "cannot append to '%s'", s.table)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Annotate(err, "failed to start transaction")
	}
	defer tx.Rollback() // no-op after Commit

	if existing == nil {
		if err := s.create(ctx, tx, batch); err != nil {
			return 0, err
		}
	}
	cols := make([]string, len(batch))
	params := make([]string, len(batch))
	for i, c := range batch {
		cols[i] = Quote(c.Name)
		params[i] = "?"
	}
	q := "INSERT INTO " + Quote(s.table) + " (" + strings.Join(cols, ", ") +
		") VALUES (" + strings.Join(params, ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, errors.Annotate(err, "failed to prepare insert into '%s'", s.table)
	}
	defer stmt.Close()

	args := make([]interface{}, len(batch))
	for r, row := range rows {
		for i, f := range row {
			args[i] = f.Value
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errors.Annotate(err, "failed to insert row %d", r)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Annotate(err, "failed to commit %d rows", len(rows))
	}
	return len(rows), nil
}
