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

// Package window splits a date range into fixed-size request windows.
//
// The feed refuses date ranges longer than a week, so a long history is
// requested as a sequence of contiguous, non-overlapping windows [Start, End).
// The sequence is lazy: windows are computed on demand by Iterator.
package window

import (
	"fmt"

	"github.com/stockparfait/iterator"
)

// DefaultDays is the size of a window in days.
const DefaultDays = 7

// Window is a half-open date range [Start, End).
type Window struct {
	Start Date
	End   Date
}

// Contains checks if d is in [Start, End).
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && d.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

// Iterator produces the windows of a date range. It is finite and can be
// restarted with Reset.
type Iterator struct {
	start Date
	end   Date
	days  int
	next  Date
}

var _ iterator.Iterator[Window] = &Iterator{}

// Plan creates an Iterator over [start, end) in windows of the given number of
// days (DefaultDays if days <= 0). The first window starts at start, each
// subsequent window starts at the previous window's end, and the last window
// is the first one whose end is at or past end.
func Plan(start, end Date, days int) *Iterator {
	if days <= 0 {
		days = DefaultDays
	}
	return &Iterator{start: start, end: end, days: days, next: start}
}

// Next implements iterator.Iterator.
func (it *Iterator) Next() (Window, bool) {
	if !it.next.Before(it.end) {
		return Window{}, false
	}
	w := Window{Start: it.next, End: it.next.AddDays(it.days)}
	it.next = w.End
	return w, true
}

// Reset restarts the iteration from the first window.
func (it *Iterator) Reset() {
	it.next = it.start
}
