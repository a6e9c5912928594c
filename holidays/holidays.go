/*
Package holidays looks up public holidays from a remote JSON endpoint.

PURPOSE:
  The endpoint is described by a URL template with a {year} placeholder.
  Each response must be a JSON array of objects carrying a string "date".

CACHE:
  Results are cached per year, on success only. The cache belongs to the
  Client and is invalidated wholesale when the template changes or when
  Invalidate is called. Concurrent lookups of the same year share one request.

ERRORS:
  Non-2xx responses and network failures wrap ErrFetchFailed; payloads that
  are not an array, or whose first element lacks a string date, wrap
  ErrInvalidPayload. The last error is also kept in Status() for callers that
  surface it as a flag. Nothing here blocks the projection.

USAGE:
  c := holidays.NewClient(&http.Client{Timeout: 10 * time.Second})
  days, err := c.Lookup(ctx, "https://example.test/holidays/{year}.json", 2025)
*/
package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// YearPlaceholder is replaced by the requested year in URL templates.
const YearPlaceholder = "{year}"

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

var (
	// ErrFetchFailed covers transport failures and non-2xx responses.
	ErrFetchFailed = errors.New("failed to fetch public holidays")

	// ErrInvalidPayload is returned when the response is not a holiday list.
	ErrInvalidPayload = errors.New("invalid holiday data format")
)

// FetchError carries the request details of a failed lookup.
type FetchError struct {
	Year       int
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("holidays %d: %s: status %d", e.Year, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("holidays %d: %s: %v", e.Year, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Holiday is one entry of the remote list. Fields keeps every raw field.
type Holiday struct {
	Date   string         `json:"date"`
	Name   string         `json:"name,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Status reports the state of the most recent lookup.
type Status struct {
	Loading bool   `json:"loading"`
	Err     string `json:"error,omitempty"`
}

// Client performs lookups and owns the per-year cache.
type Client struct {
	http *http.Client

	mu       sync.Mutex
	template string
	cache    map[int][]Holiday
	inflight int
	lastErr  string

	group singleflight.Group
}

// NewClient uses http.DefaultClient when hc is nil.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc, cache: make(map[int][]Holiday)}
}

// Invalidate drops every cached year.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[int][]Holiday)
}

// Status returns the loading flag and the last error message.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Loading: c.inflight > 0, Err: c.lastErr}
}

// Cached reports whether year is in the cache.
func (c *Client) Cached(year int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache[year]
	return ok
}

// Lookup returns the holidays for year. An empty template means lookups are
// disabled and yields no holidays and no error.
func (c *Client) Lookup(ctx context.Context, template string, year int) ([]Holiday, error) {
	if template == "" {
		return nil, nil
	}

	c.mu.Lock()
	if template != c.template {
		c.template = template
		c.cache = make(map[int][]Holiday)
	}
	if cached, ok := c.cache[year]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	key := template + "|" + strconv.Itoa(year)
	// The shared fetch outlives any single caller; the http.Client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		return c.fetch(fetchCtx, template, year)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Holiday), nil
	}
}

func (c *Client) fetch(ctx context.Context, template string, year int) ([]Holiday, error) {
	c.mu.Lock()
	c.inflight++
	c.lastErr = ""
	c.mu.Unlock()

	list, err := c.get(ctx, template, year)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if err != nil {
		c.lastErr = err.Error()
		return nil, err
	}
	// Only cache if the template is still current
	if template == c.template {
		c.cache[year] = list
	}
	return list, nil
}

func (c *Client) get(ctx context.Context, template string, year int) ([]Holiday, error) {
	url := strings.ReplaceAll(template, YearPlaceholder, strconv.Itoa(year))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Year: year, URL: url, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Year: year, URL: url, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Year: year, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrFetchFailed, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &FetchError{Year: year, URL: url, Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
	}

	list, err := Parse(body)
	if err != nil {
		return nil, &FetchError{Year: year, URL: url, Err: err}
	}
	return list, nil
}

// Parse validates and decodes a holiday list. Only the first element's date
// is type-checked; later elements without a string date get an empty Date.
func Parse(body []byte) ([]Holiday, error) {
	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an array", ErrInvalidPayload)
	}
	if len(raw) > 0 {
		if _, ok := raw[0]["date"].(string); !ok {
			return nil, fmt.Errorf("%w: first entry has no string date", ErrInvalidPayload)
		}
	}

	list := make([]Holiday, 0, len(raw))
	for _, fields := range raw {
		h := Holiday{Fields: fields}
		h.Date, _ = fields["date"].(string)
		h.Name = nameOf(fields)
		list = append(list, h)
	}
	return list, nil
}

func nameOf(fields map[string]any) string {
	for _, k := range []string{"name", "localName", "title"} {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
