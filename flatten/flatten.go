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

// Package flatten converts feed objects into flat rows.
//
// Nested JSON objects become dot-separated column names, e.g.
// "estimated_diameter.kilometers.estimated_diameter_min". The list of close
// approaches of each object is exploded: every approach yields one row carrying
// all the object's columns plus the approach's own "close_approach_data.*"
// columns. An object without close approaches yields no rows.
package flatten

import (
	"encoding/json"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/stockparfait/neows/feed"
)

// ApproachesKey is the object field holding the list of close approaches.
const ApproachesKey = "close_approach_data"

// Excluded columns are never present in the output.
var Excluded = map[string]bool{
	"nasa_jpl_url": true,
	"links.self":   true,
}

var (
	// ErrMissingDate is returned when the requested date is not in the document.
	ErrMissingDate = errors.Reason("date is missing from the feed document")
	// ErrMalformed is returned when the close approaches are not a list of
	// objects.
	ErrMalformed = errors.Reason("malformed close approach data")
)

// Value is a scalar cell value: string, float64, bool or nil.
type Value = interface{}

// Field is a named cell of a Row.
type Field struct {
	Name  string
	Value Value
}

// Row is one close approach of one object. Field order is deterministic:
// object columns sorted by name, followed by sorted approach columns.
type Row []Field

// Names of the row's columns, in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Get the value of the named column.
func (r Row) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// appendFields flattens v under the column name prefix.
func appendFields(fields []Field, prefix string, v interface{}) ([]Field, error) {
	switch x := v.(type) {
	case map[string]interface{}:
		keys := maps.Keys(x)
		slices.Sort(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			if Excluded[name] {
				continue
			}
			var err error
			if fields, err = appendFields(fields, name, x[k]); err != nil {
				return nil, err
			}
		}
		return fields, nil
	case []interface{}:
		// Lists other than close approaches are kept as JSON text.
		b, err := json.Marshal(x)
		if err != nil {
			return nil, errors.Annotate(err, "failed to encode list '%s'", prefix)
		}
		return append(fields, Field{Name: prefix, Value: string(b)}), nil
	default:
		return append(fields, Field{Name: prefix, Value: v}), nil
	}
}

// approaches extracts the close approach list of an object. Absent or null list
// means no approaches.
func approaches(obj feed.Object) ([]map[string]interface{}, error) {
	raw, ok := obj[ApproachesKey]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Annotate(ErrMalformed, "%s is %T, not a list", ApproachesKey, raw)
	}
	res := make([]map[string]interface{}, len(list))
	for i, a := range list {
		if res[i], ok = a.(map[string]interface{}); !ok {
			return nil, errors.Annotate(ErrMalformed, "%s[%d] is %T, not an object",
				ApproachesKey, i, a)
		}
	}
	return res, nil
}

// Object flattens a single object into one row per close approach.
func Object(obj feed.Object) ([]Row, error) {
	objFields := []Field{}
	keys := maps.Keys(obj)
	slices.Sort(keys)
	for _, k := range keys {
		if k == ApproachesKey || Excluded[k] {
			continue
		}
		var err error
		if objFields, err = appendFields(objFields, k, obj[k]); err != nil {
			return nil, err
		}
	}
	as, err := approaches(obj)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(as))
	for _, a := range as {
		row := make(Row, len(objFields), len(objFields)+len(a))
		copy(row, objFields)
		if row, err = appendFields(row, ApproachesKey, a); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func objectsFor(doc *feed.Document, date string) ([]feed.Object, error) {
	objs, ok := doc.NearEarthObjects[date]
	if !ok {
		return nil, errors.Annotate(ErrMissingDate, "no objects for %s", date)
	}
	return objs, nil
}

// Flatten the objects of the given date in the document. The number of rows is
// the total number of close approaches of these objects.
func Flatten(doc *feed.Document, date string) ([]Row, error) {
	objs, err := objectsFor(doc, date)
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	for i, obj := range objs {
		r, err := Object(obj)
		if err != nil {
			return nil, errors.Annotate(err, "failed to flatten object %d for %s", i, date)
		}
		rows = append(rows, r...)
	}
	return rows, nil
}

// NoApproaches returns the ids of the objects of the date which have no close
// approaches, and therefore contribute no rows.
func NoApproaches(doc *feed.Document, date string) ([]string, error) {
	objs, err := objectsFor(doc, date)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, obj := range objs {
		as, err := approaches(obj)
		if err != nil {
			return nil, err
		}
		if len(as) == 0 {
			id, _ := obj["id"].(string)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
