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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	"github.com/stockparfait/neows/config"
	"github.com/stockparfait/neows/db"
	"github.com/stockparfait/neows/ingest"
	"github.com/stockparfait/neows/table"
)

type Flags struct {
	ConfigDir string // default: ~/.stockparfait/neows
	LogLevel  logging.Level
	Start     string // overrides the config, YYYY-MM-DD
	End       string // overrides the config, YYYY-MM-DD
	Show      int    // print this many rows of the table after the run
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("neows", flag.ExitOnError)
	fs.StringVar(&flags.ConfigDir, "config",
		filepath.Join(os.Getenv("HOME"), ".stockparfait", "neows"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Start, "start", "", "first date to ingest, YYYY-MM-DD")
	fs.StringVar(&flags.End, "end", "", "end of the date range, YYYY-MM-DD (default: today)")
	fs.IntVar(&flags.Show, "show", 0, "print the first N rows of the table")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Show < 0 {
		return nil, errors.Reason("-show must be non-negative")
	}
	return &flags, nil
}

func loadConfig(flags *Flags) (*config.Config, error) {
	c, err := config.Load(flags.ConfigDir)
	if err != nil {
		return nil, err
	}
	if flags.Start != "" {
		c.Start = flags.Start
	}
	if flags.End != "" {
		c.End = flags.End
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Annotate(err, "invalid -start or -end")
	}
	return c, nil
}

func show(ctx context.Context, c *config.Config, n int, w io.Writer) error {
	store, err := db.Open(c.Database, c.Table)
	if err != nil {
		return errors.Annotate(err, "failed to open the store")
	}
	defer store.Close()

	schema, err := store.Schema(ctx)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}
	t, err := table.Query(ctx, store.DB(),
		fmt.Sprintf("SELECT * FROM %s LIMIT %d", db.Quote(c.Table), n))
	if err != nil {
		return errors.Annotate(err, "failed to read the table")
	}
	return t.WriteText(w, table.Params{MaxColWidth: 24})
}

func run(ctx context.Context, args []string, w io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return errors.Annotate(err, "failed to parse flags")
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))
	c, err := loadConfig(flags)
	if err != nil {
		return errors.Annotate(err, "failed to load config")
	}
	s, err := ingest.Run(ctx, c)
	if s != nil {
		if err := s.Table().WriteText(w, table.Params{MaxColWidth: 60}); err != nil {
			return errors.Annotate(err, "failed to print the summary")
		}
		fmt.Fprintln(w, s.String())
	}
	if err != nil {
		return errors.Annotate(err, "ingestion failed")
	}
	if flags.Show > 0 {
		if err := show(ctx, c, flags.Show, w); err != nil {
			return errors.Annotate(err, "failed to show the table")
		}
	}
	return nil
}

// main is not tested, keep it short.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		ctx := context.Background()
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
