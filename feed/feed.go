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

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/stockparfait/neows/window"
)

// URL is the default base URL of the server.
var URL = "https://api.nasa.gov/neo/rest/v1"

// ErrRemoteFetch is matched by every error returned from Client.Fetch.
var ErrRemoteFetch = errors.Reason("remote fetch failed")

// FetchError is a failed request for a window. Status is the HTTP status code,
// or 0 when the request did not get a response.
type FetchError struct {
	Status int
	Err    error // underlying cause, if any
}

var _ error = &FetchError{}

func (e *FetchError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("request failed: %s", e.Err.Error())
	case e.Err != nil:
		return fmt.Sprintf("status %d: %s", e.Status, e.Err.Error())
	default:
		return fmt.Sprintf("unexpected status %d %s", e.Status, http.StatusText(e.Status))
	}
}

// Is makes every FetchError match ErrRemoteFetch.
func (e *FetchError) Is(target error) bool {
	return target == ErrRemoteFetch
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Object is a single near-Earth object record as a generic JSON object.
type Object = map[string]interface{}

// Document is the parsed feed response for one window.
type Document struct {
	ElementCount     int                 `json:"element_count"`
	NearEarthObjects map[string][]Object `json:"near_earth_objects"`
}

// Dates returns the date keys of the document in ascending order.
func (d *Document) Dates() []string {
	dates := maps.Keys(d.NearEarthObjects)
	slices.Sort(dates)
	return dates
}

// Client for querying the feed. The HTTP client comes from the context, see
// fetch.UseClient.
type Client struct {
	baseURL string // the base URL of the server
	apiKey  string // your very own secret key
}

// NewClient creates a new client. An empty baseURL defaults to URL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = URL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c *Client) query(w window.Window) url.Values {
	return url.Values{
		"start_date": []string{w.Start.String()},
		"end_date":   []string{w.End.String()},
		"api_key":    []string{c.apiKey},
	}
}

// URL of the feed request for the window. It contains the API key, so it should
// not be logged.
func (c *Client) URL(w window.Window) string {
	return fmt.Sprintf("%s/feed?start_date=%s&end_date=%s&api_key=%s",
		c.baseURL, w.Start, w.End, url.QueryEscape(c.apiKey))
}

// Fetch retrieves the feed document for the window. There are no retries.
func (c *Client) Fetch(ctx context.Context, w window.Window) (*Document, error) {
	resp, err := fetch.Get(ctx, c.baseURL+"/feed", c.query(w))
	if resp == nil {
		// The URL in *url.Error would leak the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Status: resp.StatusCode}
	}
	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &FetchError{
			Status: resp.StatusCode,
			Err:    errors.Annotate(err, "failed to decode response"),
		}
	}
	return &doc, nil
}
