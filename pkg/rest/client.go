// Package rest is a small query builder for the hosted data API (PostgREST).
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/visitdesk/pkg/backend"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
)

type Options struct {
	URL     string
	AnonKey string
	// TokenSource supplies the bearer token for each request, normally the
	// auth client.
	TokenSource oauth2.TokenSource
	// Base is the transport under the auth layer; defaults to
	// http.DefaultTransport.
	Base   http.RoundTripper
	Logger logr.Logger
}

type Client struct {
	base    string
	anonKey string
	hc      *http.Client
	log     logr.Logger
}

func NewClient(opts Options) (*Client, error) {
	if _, err := backend.Endpoint(opts.URL); err != nil {
		return nil, err
	}
	if opts.AnonKey == "" {
		return nil, errors.New("rest: anon key is required")
	}
	ts := opts.TokenSource
	if ts == nil {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AnonKey, TokenType: "bearer"})
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Client{
		base:    opts.URL,
		anonKey: opts.AnonKey,
		hc: &http.Client{
			Transport: &oauth2.Transport{Source: ts, Base: base},
			Timeout:   30 * time.Second,
		},
		log: log.WithName("rest"),
	}, nil
}

// Count asks the server for a total row count alongside the page.
type Count int

const (
	NoCount Count = iota
	ExactCount
)

func (c Count) prefer() string {
	if c == ExactCount {
		return "count=exact"
	}
	return ""
}

type Nulls int

const (
	NullsDefault Nulls = iota
	NullsFirst
	NullsLast
)

type OrderOpts struct {
	Ascending bool
	Nulls     Nulls
}

// Query is built fluently and run with Execute. It is not safe for
// concurrent use.
type Query struct {
	c       *Client
	table   string
	filters url.Values
	columns string
	orders  []string
	count   Count
	single  bool
	limited bool
	from    int64
	to      int64
}

// From starts a query against table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, filters: url.Values{}, columns: "*"}
}

func (q *Query) Select(columns string, count Count) *Query {
	if columns != "" {
		q.columns = columns
	}
	q.count = count
	return q
}

// ILike filters column by a case-insensitive pattern where % matches any
// run of characters.
func (q *Query) ILike(column, pattern string) *Query {
	q.filters.Add(column, "ilike."+pattern)
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.filters.Add(column, "eq."+filterValue(value))
	return q
}

// Order may be called repeatedly; earlier calls take precedence.
func (q *Query) Order(column string, opts OrderOpts) *Query {
	dir := "desc"
	if opts.Ascending {
		dir = "asc"
	}
	term := column + "." + dir
	switch opts.Nulls {
	case NullsFirst:
		term += ".nullsfirst"
	case NullsLast:
		term += ".nullslast"
	}
	q.orders = append(q.orders, term)
	return q
}

// Range limits the result to rows from..to inclusive (zero based).
func (q *Query) Range(from, to int64) *Query {
	q.limited = true
	q.from, q.to = from, to
	return q
}

// Single expects exactly one row; zero or several rows is an error.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// URL is the request URL the query will send.
func (q *Query) URL() (*url.URL, error) {
	u, err := backend.Endpoint(q.c.base, "rest", "v1", q.table)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	for k, vs := range q.filters {
		params[k] = append([]string(nil), vs...)
	}
	params.Set("select", q.columns)
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limited {
		params.Set("offset", strconv.FormatInt(q.from, 10))
		params.Set("limit", strconv.FormatInt(q.to-q.from+1, 10))
	}
	u.RawQuery = params.Encode()
	return u, nil
}

type Result struct {
	Rows   []fields.Record
	Count  *int64
	Status int
}

// Execute runs the query.
func (q *Query) Execute(ctx context.Context) (*Result, error) {
	u, err := q.URL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", q.c.anonKey)
	req.Header.Set("X-Client-Info", backend.ClientInfo)
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if p := q.count.prefer(); p != "" {
		req.Header.Set("Prefer", p)
	}

	q.c.log.V(2).Info("query", "table", q.table, "url", u.String())
	resp, err := q.c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backend.DecodeError(resp)
	}

	res := &Result{Status: resp.StatusCode}
	if n, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
		res.Count = &n
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", q.table, err)
	}
	if q.single {
		var rec fields.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", q.table, err)
		}
		res.Rows = []fields.Record{rec}
		return res, nil
	}
	if err := json.Unmarshal(data, &res.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", q.table, err)
	}
	return res, nil
}

// parseContentRange extracts the total from "0-49/1234". An unknown total
// ("*") is reported as absent.
func parseContentRange(h string) (int64, bool) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(h[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func filterValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}
