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

// Package config reads the ingestion configuration and the API key.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/stockparfait/errors"

	"github.com/stockparfait/neows/db"
	"github.com/stockparfait/neows/feed"
	"github.com/stockparfait/neows/window"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrFileAccess is returned when the key file cannot be read.
var ErrFileAccess = errors.Reason("cannot access file")

// Environment variables overriding the config file.
const (
	EnvKeyFile  = "NEOWS_KEY_FILE"
	EnvDatabase = "NEOWS_DATABASE"
)

// Policy of handling a batch incompatible with the table.
type Policy string

const (
	Skip  = Policy("skip")  // log and skip the batch, continue the run
	Abort = Policy("abort") // stop the run
)

// FileName of the config in the config directory.
const FileName = "config.toml"

const sample = `key_file = "/path/to/nasa/key.txt"
database = "/path/to/neows.duckdb"
start = "1900-01-01"
on_schema_mismatch = "skip"
`

// Config of an ingestion run.
type Config struct {
	KeyFile          string `toml:"key_file"`           // required
	BaseURL          string `toml:"base_url"`           // default: feed.URL
	Database         string `toml:"database"`           // default: <dir>/neows.duckdb
	Table            string `toml:"table"`              // default: asteroids
	Start            string `toml:"start"`              // default: 1900-01-01
	End              string `toml:"end"`                // default: today
	WindowDays       int    `toml:"window_days"`        // default: 7
	OnSchemaMismatch Policy `toml:"on_schema_mismatch"` // default: skip

	StartDate window.Date `toml:"-"`
	EndDate   window.Date `toml:"-"` // zero means today
}

// Default config for the directory.
func Default(dir string) *Config {
	return &Config{
		BaseURL:          feed.URL,
		Database:         filepath.Join(dir, "neows.duckdb"),
		Table:            db.DefaultTable,
		Start:            window.Epoch.String(),
		WindowDays:       window.DefaultDays,
		OnSchemaMismatch: Skip,
	}
}

// Validate the config, set the parsed dates and check the values.
func (c *Config) Validate() error {
	if c.KeyFile == "" {
		return errors.Reason("key_file is required")
	}
	var err error
	if c.StartDate, err = window.NewDateFromString(c.Start); err != nil {
		return errors.Annotate(err, "invalid start")
	}
	c.EndDate = window.Date{}
	if c.End != "" {
		if c.EndDate, err = window.NewDateFromString(c.End); err != nil {
			return errors.Annotate(err, "invalid end")
		}
	}
	if c.WindowDays < 1 || c.WindowDays > window.DefaultDays {
		return errors.Reason("window_days = %d must be in [1..%d]",
			c.WindowDays, window.DefaultDays)
	}
	switch c.OnSchemaMismatch {
	case Skip, Abort:
	default:
		return errors.Reason("on_schema_mismatch = '%s' must be '%s' or '%s'",
			c.OnSchemaMismatch, Skip, Abort)
	}
	return nil
}

// Load the config from the config directory. An optional .env file in the same
// directory sets environment variables, and NEOWS_KEY_FILE and NEOWS_DATABASE
// override the corresponding config values.
func Load(dir string) (*Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, errors.Annotate(err, "failed to load '%s'", envPath)
		}
	}
	filePath := filepath.Join(dir, FileName)
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
		}
		return nil, errors.Annotate(err,
			"cannot check config file for existence: '%s'", filePath)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	c := Default(dir)
	d := toml.NewDecoder(f)
	d.DisallowUnknownFields()
	if err := d.Decode(c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	if v := os.Getenv(EnvKeyFile); v != "" {
		c.KeyFile = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Annotate(err, "invalid config file %s", filePath)
	}
	return c, nil
}

// ReadKey reads the API key from the file, trimming surrounding whitespace.
func ReadKey(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Annotate(ErrFileAccess, "failed to read key file '%s': %s",
			path, err.Error())
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", errors.Annotate(ErrFileAccess, "key file '%s' is empty", path)
	}
	return key, nil
}
