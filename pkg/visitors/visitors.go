// Package visitors fetches visitor pages and single records from the data
// API and shapes them for display.
package visitors

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/fields"
	"github.com/harrisonrobin/visitdesk/pkg/rest"
)

const (
	PageSize = 50
	// ListColumns are the columns a list row needs.
	ListColumns = "Record_Id,Visitor_Name,Phone,Center,Date_of_visit,Reference,Hearing_aid_status"
	// DefaultTable is used when no table is configured.
	DefaultTable = "visitors"
	// DefaultIDColumn identifies a record unless the caller names another.
	DefaultIDColumn = "Record_Id"
	SearchDebounce  = 300 * time.Millisecond
)

// fallbackTables are tried after the configured table when looking up a
// single record.
var fallbackTables = []string{"visitors", "Visitors", "zoho_visitor_table"}

// DebounceFor is the delay before a search for text is sent. Clearing the
// search fetches immediately.
func DebounceFor(search string) time.Duration {
	if search == "" {
		return 0
	}
	return SearchDebounce
}

// Querier starts a data API query.
type Querier interface {
	From(table string) *rest.Query
}

type Service struct {
	db    Querier
	table string
	log   logr.Logger
}

func NewService(db Querier, table string, log logr.Logger) *Service {
	if table == "" {
		table = DefaultTable
	}
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Service{db: db, table: table, log: log.WithName("visitors")}
}

// Query selects a page of the list.
type Query struct {
	Search     string
	Descending bool
}

// Page is one fetched slice of the list. Total is nil when the server did
// not report a count.
type Page struct {
	Rows  []fields.Record
	Total *int64
}

// List fetches the first page matching q: a case-insensitive partial match
// on the visitor name, newest (or oldest) visit first with undated rows last,
// ties broken by record id.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	query := s.db.From(s.table).
		Select(ListColumns, rest.ExactCount).
		Order("Date_of_visit", rest.OrderOpts{Ascending: !q.Descending, Nulls: rest.NullsLast}).
		Order("Record_Id", rest.OrderOpts{Ascending: true}).
		Range(0, PageSize-1)
	if term := strings.TrimSpace(q.Search); term != "" {
		query = query.ILike("Visitor_Name", "%"+term+"%")
	}

	res, err := query.Execute(ctx)
	if err != nil {
		return nil, apperr.New(apperr.Fetch, err)
	}
	s.log.V(1).Info("listed visitors", "rows", len(res.Rows), "search", q.Search, "descending", q.Descending)
	return &Page{Rows: res.Rows, Total: res.Count}, nil
}

// Candidates is the ordered, de-duplicated list of tables Get tries.
func (s *Service) Candidates() []string {
	seen := make(map[string]bool, len(fallbackTables)+1)
	var out []string
	for _, t := range append([]string{s.table}, fallbackTables...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IDValue converts an all-digit id to a number; anything else is sent as is.
func IDValue(id string) any {
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return id
	}
	return n
}

// Get finds the record whose idCol equals id, trying each candidate table in
// turn. idCol defaults to DefaultIDColumn.
func (s *Service) Get(ctx context.Context, id, idCol string) (fields.Record, error) {
	if idCol == "" {
		idCol = DefaultIDColumn
	}
	value := IDValue(id)
	for _, table := range s.Candidates() {
		res, err := s.db.From(table).Select("*", rest.NoCount).Eq(idCol, value).Single().Execute(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fields.Record{}, apperr.New(apperr.Fetch, err)
			}
			s.log.V(1).Info("lookup missed", "table", table, "column", idCol, "error", err.Error())
			continue
		}
		if len(res.Rows) == 0 || res.Rows[0].Len() == 0 {
			continue
		}
		s.log.V(1).Info("found visitor", "table", table, "id", id)
		return res.Rows[0], nil
	}
	s.log.Info("visitor not found", "id", id, "column", idCol, "tables", strings.Join(s.Candidates(), ","))
	return fields.Record{}, apperr.New(apperr.NotFound, nil)
}
