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

// Package ingest drives the download of the feed into the store.
//
// Windows are processed strictly in order, one at a time: fetch, flatten each
// date, write each date's rows. A failed window is logged and skipped; the run
// continues with the next window. Every window's outcome is recorded in a
// Summary.
package ingest

import (
	"context"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"

	"github.com/stockparfait/neows/config"
	"github.com/stockparfait/neows/db"
	"github.com/stockparfait/neows/feed"
	"github.com/stockparfait/neows/flatten"
	"github.com/stockparfait/neows/window"
)

// State of the Ingester.
type State int

const (
	Planning State = iota
	Fetching
	Flattening
	Writing
	Done
)

func (s State) String() string {
	switch s {
	case Planning:
		return "PLANNING"
	case Fetching:
		return "FETCHING"
	case Flattening:
		return "FLATTENING"
	case Writing:
		return "WRITING"
	case Done:
		return "DONE"
	}
	return "UNKNOWN"
}

// Fetcher retrieves the feed for a window, e.g. *feed.Client.
type Fetcher interface {
	Fetch(ctx context.Context, w window.Window) (*feed.Document, error)
}

// Writer appends a batch of rows, e.g. *db.Store.
type Writer interface {
	Write(ctx context.Context, rows []flatten.Row) (int, error)
}

var _ Fetcher = &feed.Client{}
var _ Writer = &db.Store{}

// Ingester runs the windows through the pipeline.
type Ingester struct {
	Feed             Fetcher
	Store            Writer
	OnSchemaMismatch config.Policy // default: config.Skip
	// End is the last date of the range, ingested even when it falls on the
	// end boundary of the final window. Zero means windows are strictly
	// half-open.
	End   window.Date
	state State
}

// State of the ingester, for monitoring and tests.
func (g *Ingester) State() State {
	return g.state
}

func (g *Ingester) setState(ctx context.Context, s State) {
	logging.Debugf(ctx, "%s -> %s", g.state, s)
	g.state = s
}

// includes reports whether the date key d of the window's document is to be
// written. The feed's end_date is inclusive, so each document also carries the
// next window's first day.
func (g *Ingester) includes(w window.Window, d window.Date) bool {
	if w.Contains(d) {
		return true
	}
	return !g.End.IsZero() && d == g.End && w.End == g.End
}

// writeDate flattens and writes the rows for one date of the document.
func (g *Ingester) writeDate(ctx context.Context, doc *feed.Document, date string) BatchResult {
	res := BatchResult{Date: date}
	g.setState(ctx, Flattening)
	rows, err := flatten.Flatten(doc, date)
	if err != nil {
		res.Err = errors.Annotate(err, "failed to flatten %s", date)
		return res
	}
	if ids, err := flatten.NoApproaches(doc, date); err == nil && len(ids) > 0 {
		logging.Warningf(ctx, "%s: %d objects without close approaches produce no rows: %v",
			date, len(ids), ids)
	}
	g.setState(ctx, Writing)
	if res.Rows, err = g.Store.Write(ctx, rows); err != nil {
		res.Err = errors.Annotate(err, "failed to write %s", date)
	}
	return res
}

// processWindow processes a single window. The error is non-nil only when the
// run must stop.
func (g *Ingester) processWindow(ctx context.Context, w window.Window) (WindowResult, error) {
	res := WindowResult{Window: w}
	g.setState(ctx, Fetching)
	doc, err := g.Feed.Fetch(ctx, w)
	if err != nil {
		res.Err = err
		logging.Warningf(ctx, "skipping window %s: %s", w, err.Error())
		return res, nil
	}
	for _, date := range doc.Dates() {
		d, err := window.NewDateFromString(date)
		if err != nil {
			res.Batches = append(res.Batches, BatchResult{Date: date, Err: err})
			logging.Warningf(ctx, "window %s: skipping invalid date key '%s'", w, date)
			continue
		}
		if !w.Contains(d) {
			logging.Debugf(ctx, "window %s: skipping %s outside of the window", w, date)
			continue
		}
		b := g.writeDate(ctx, doc, date)
		res.Batches = append(res.Batches, b)
		if b.Err == nil {
			continue
		}
		logging.Warningf(ctx, "window %s: %s", w, b.Err.Error())
		if errors.Is(b.Err, db.ErrSchemaMismatch) && g.OnSchemaMismatch == config.Abort {
			return res, errors.Annotate(b.Err, "aborting in window %s", w)
		}
	}
	logging.Infof(ctx, "window %s: wrote %d rows for %d dates",
		w, res.Rows(), len(res.Batches))
	return res, nil
}

// Run processes all the windows in order. On a fatal error, it returns the
// summary so far and the error.
func (g *Ingester) Run(ctx context.Context, windows iterator.Iterator[window.Window]) (*Summary, error) {
	s := &Summary{}
	for {
		g.setState(ctx, Planning)
		w, ok := windows.Next()
		if !ok {
			break
		}
		res, err := g.processWindow(ctx, w)
		s.Results = append(s.Results, res)
		if err != nil {
			g.setState(ctx, Done)
			return s, err
		}
	}
	g.setState(ctx, Done)
	return s, nil
}

// Run an ingestion according to the config. The key is read before any network
// activity; the store is open for the duration of the run. The HTTP client is
// taken from the context (see fetch.UseClient), defaulting to
// http.DefaultClient without a timeout.
func Run(ctx context.Context, c *config.Config) (*Summary, error) {
	key, err := config.ReadKey(c.KeyFile)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read the API key")
	}
	store, err := db.Open(c.Database, c.Table)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open the store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Errorf(ctx, "failed to close the store: %s", err.Error())
		}
	}()

	end := c.EndDate
	if end.IsZero() {
		end = window.Today(time.Now())
	}
	logging.Infof(ctx, "ingesting %s to %s into %s", c.StartDate, end, c.Database)
	g := &Ingester{
		Feed:             feed.NewClient(c.BaseURL, key),
		Store:            store,
		OnSchemaMismatch: c.OnSchemaMismatch,
		End:              end,
	}
	s, err := g.Run(ctx, window.Plan(c.StartDate, end, c.WindowDays))
	if err != nil {
		return s, err
	}
	if s.Total, err = store.Count(ctx); err != nil {
		return s, errors.Annotate(err, "failed to count rows")
	}
	return s, nil
}
