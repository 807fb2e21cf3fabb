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

package ingest

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/stockparfait/neows/table"
	"github.com/stockparfait/neows/window"
)

// BatchResult is the outcome of flattening and writing one date of a window.
type BatchResult struct {
	Date string
	Rows int   // rows written
	Err  error // nil on success
}

// WindowResult is the outcome of one window. Err is set when the fetch failed,
// in which case there are no batches.
type WindowResult struct {
	Window  window.Window
	Err     error
	Batches []BatchResult
}

// OK is true if the window and all of its batches succeeded.
func (r WindowResult) OK() bool {
	if r.Err != nil {
		return false
	}
	for _, b := range r.Batches {
		if b.Err != nil {
			return false
		}
	}
	return true
}

// Rows written for the window.
func (r WindowResult) Rows() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Rows
	}
	return n
}

// Status is a short description of the outcome.
func (r WindowResult) Status() string {
	if r.Err != nil {
		return "fetch failed: " + r.Err.Error()
	}
	failed := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Sprintf("%d of %d dates failed", failed, len(r.Batches))
	}
	return "ok"
}

// Summary of an ingestion run.
type Summary struct {
	Results []WindowResult
	Total   int // rows in the table after the run
}

// Rows written during the run.
func (s *Summary) Rows() int {
	n := 0
	for _, r := range s.Results {
		n += r.Rows()
	}
	return n
}

// Failed windows, including those with only some failed dates.
func (s *Summary) Failed() []WindowResult {
	res := []WindowResult{}
	for _, r := range s.Results {
		if !r.OK() {
			res = append(res, r)
		}
	}
	return res
}

// RowsPerDate for all successfully written dates.
func (s *Summary) RowsPerDate() []float64 {
	res := []float64{}
	for _, r := range s.Results {
		for _, b := range r.Batches {
			if b.Err == nil {
				res = append(res, float64(b.Rows))
			}
		}
	}
	return res
}

// Table with one row per window.
func (s *Summary) Table() *table.Table {
	t := table.NewTable("Start", "End", "Dates", "Rows", "Status")
	for _, r := range s.Results {
		t.AddRow(r.Window.Start.String(), r.Window.End.String(),
			fmt.Sprintf("%d", len(r.Batches)), fmt.Sprintf("%d", r.Rows()), r.Status())
	}
	return t
}

// String is a one-paragraph account of the run.
func (s *Summary) String() string {
	res := fmt.Sprintf("windows: %d, failed: %d, rows written: %d, rows in table: %d",
		len(s.Results), len(s.Failed()), s.Rows(), s.Total)
	if perDate := s.RowsPerDate(); len(perDate) > 0 {
		mean, std := stat.MeanStdDev(perDate, nil)
		if len(perDate) == 1 {
			std = 0
		}
		res += fmt.Sprintf(", rows per date: %.2f ± %.2f", mean, std)
	}
	return res
}
