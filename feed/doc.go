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

// Package feed implements a client for the NASA NeoWs "feed" API.
//
// Official documentation is at https://api.nasa.gov (Asteroids - NeoWs).
//
// The feed returns all near-Earth objects with a close approach in a date range
// of at most 7 days, grouped by the calendar date of the approach:
//
//	{"element_count": 25,
//	 "near_earth_objects": {"2015-09-08": [{...}, ...], "2015-09-07": [...]}}
//
// Objects are kept as generic JSON values, since their shape is only consumed by
// the flattening step and stored as-is.
//
// A Client makes exactly one request per window. Failures of any kind, whether
// transport or HTTP status, are reported as a *FetchError matching
// ErrRemoteFetch.
package feed
