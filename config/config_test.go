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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/errors"

	"github.com/stockparfait/neows/feed"
	"github.com/stockparfait/neows/window"

	. "github.com/smartystreets/goconvey/convey"
)

func writeFile(fileName, content string) error {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write([]byte(content))
	return err
}

// Not parallel: the tests modify the environment.
func TestConfig(t *testing.T) {
	tmpdir, tmpdirErr := os.MkdirTemp("", "test_config")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("ReadKey", t, func() {
		keyFile := filepath.Join(tmpdir, "key.txt")

		Convey("trims the key", func() {
			So(writeFile(keyFile, "  DEMO_KEY\n\n"), ShouldBeNil)
			key, err := ReadKey(keyFile)
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "DEMO_KEY")
		})

		Convey("missing file", func() {
			_, err := ReadKey(filepath.Join(tmpdir, "nope.txt"))
			So(errors.Is(err, ErrFileAccess), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "nope.txt")
		})

		Convey("empty file", func() {
			So(writeFile(keyFile, " \n"), ShouldBeNil)
			_, err := ReadKey(keyFile)
			So(errors.Is(err, ErrFileAccess), ShouldBeTrue)
		})
	})

	Convey("Load", t, func() {
		dir, err := os.MkdirTemp(tmpdir, "conf")
		So(err, ShouldBeNil)
		fileName := filepath.Join(dir, FileName)

		Convey("missing config prints a sample", func() {
			_, err := Load(dir)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "key_file =")
		})

		Convey("defaults", func() {
			So(writeFile(fileName, `key_file = "/keys/nasa.txt"`+"\n"), ShouldBeNil)
			c, err := Load(dir)
			So(err, ShouldBeNil)
			So(c.KeyFile, ShouldEqual, "/keys/nasa.txt")
			So(c.BaseURL, ShouldEqual, feed.URL)
			So(c.Database, ShouldEqual, filepath.Join(dir, "neows.duckdb"))
			So(c.Table, ShouldEqual, "asteroids")
			So(c.StartDate, ShouldResemble, window.Epoch)
			So(c.EndDate.IsZero(), ShouldBeTrue)
			So(c.WindowDays, ShouldEqual, 7)
			So(c.OnSchemaMismatch, ShouldEqual, Skip)
		})

		Convey("all values", func() {
			So(writeFile(fileName, `
key_file = "/keys/nasa.txt"
base_url = "http://localhost:8080/neo"
database = "/data/neo.duckdb"
table = "neo"
start = "2015-09-07"
end = "2015-10-01"
window_days = 3
on_schema_mismatch = "abort"
`), ShouldBeNil)
			c, err := Load(dir)
			So(err, ShouldBeNil)
			So(c.BaseURL, ShouldEqual, "http://localhost:8080/neo")
			So(c.Database, ShouldEqual, "/data/neo.duckdb")
			So(c.Table, ShouldEqual, "neo")
			So(c.StartDate, ShouldResemble, window.NewDate(2015, 9, 7))
			So(c.EndDate, ShouldResemble, window.NewDate(2015, 10, 1))
			So(c.WindowDays, ShouldEqual, 3)
			So(c.OnSchemaMismatch, ShouldEqual, Abort)
		})

		Convey("invalid values", func() {
			So(writeFile(fileName, `
key_file = "/keys/nasa.txt"
on_schema_mismatch = "ignore"
`), ShouldBeNil)
			_, err := Load(dir)
			So(err, ShouldNotBeNil)

			So(writeFile(fileName, `
key_file = "/keys/nasa.txt"
window_days = 8
`), ShouldBeNil)
			_, err = Load(dir)
			So(err, ShouldNotBeNil)

			So(writeFile(fileName, `start = "1900-01-01"`), ShouldBeNil)
			_, err = Load(dir)
			So(err, ShouldNotBeNil)

			So(writeFile(fileName, `
key_file = "/keys/nasa.txt"
unknown = 1
`), ShouldBeNil)
			_, err = Load(dir)
			So(err, ShouldNotBeNil)
		})

		Convey("environment overrides", func() {
			So(writeFile(fileName, `key_file = "/keys/nasa.txt"`+"\n"), ShouldBeNil)
			So(writeFile(filepath.Join(dir, ".env"),
				EnvKeyFile+"=/env/key.txt\n"), ShouldBeNil)
			t.Setenv(EnvDatabase, "/env/neo.duckdb")
			defer os.Unsetenv(EnvKeyFile)

			c, err := Load(dir)
			So(err, ShouldBeNil)
			So(c.KeyFile, ShouldEqual, "/env/key.txt")
			So(c.Database, ShouldEqual, "/env/neo.duckdb")
		})
	})
}
