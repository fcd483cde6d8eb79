package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/visitdesk/pkg/backend"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{
		URL:         srv.URL,
		AnonKey:     "anon",
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "user-jwt", TokenType: "bearer"}),
		Base:        srv.Client().Transport,
	})
	require.NoError(t, err)
	return c
}

func TestQueryURL(t *testing.T) {
	c, err := NewClient(Options{URL: "https://abc.supabase.co", AnonKey: "anon"})
	require.NoError(t, err)

	u, err := c.From("visitors").
		Select("Record_Id,Visitor_Name", ExactCount).
		Order("Date_of_visit", OrderOpts{Ascending: false, Nulls: NullsLast}).
		Order("Record_Id", OrderOpts{Ascending: true}).
		Range(0, 49).
		ILike("Visitor_Name", "%asha%").
		URL()
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/visitors", u.Path)
	q := u.Query()
	assert.Equal(t, "Record_Id,Visitor_Name", q.Get("select"))
	assert.Equal(t, "Date_of_visit.desc.nullslast,Record_Id.asc", q.Get("order"))
	assert.Equal(t, "0", q.Get("offset"))
	assert.Equal(t, "50", q.Get("limit"))
	assert.Equal(t, "ilike.%asha%", q.Get("Visitor_Name"))
}

func TestExecuteList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-1/120")
		w.Write([]byte(`[{"Record_Id":7,"Visitor_Name":"Asha Rao"},{"Record_Id":8,"Visitor_Name":"Kiran"}]`))
	})

	res, err := c.From("visitors").Select("*", ExactCount).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.NotNil(t, res.Count)
	assert.Equal(t, int64(120), *res.Count)
	assert.Equal(t, []string{"Record_Id", "Visitor_Name"}, res.Rows[0].Keys())
}

func TestExecuteSingle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		assert.Equal(t, "eq.42", r.URL.Query().Get("Record_Id"))
		w.Write([]byte(`{"Record_Id":42,"phone":"98765 43210"}`))
	})

	res, err := c.From("visitors").Select("*", NoCount).Eq("Record_Id", int64(42)).Single().Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Count)
	assert.Equal(t, "98765 43210", res.Rows[0].Get("phone"))
}

func TestExecuteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned","details":"The result contains 0 rows","hint":null}`))
	})

	_, err := c.From("visitors").Eq("Record_Id", "x").Single().Execute(context.Background())
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotAcceptable, apiErr.Status)
	assert.Equal(t, "PGRST116", apiErr.Code)
}

func TestParseContentRange(t *testing.T) {
	n, ok := parseContentRange("0-49/1234")
	assert.True(t, ok)
	assert.Equal(t, int64(1234), n)

	_, ok = parseContentRange("0-49/*")
	assert.False(t, ok)

	n, ok = parseContentRange("*/0")
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)

	_, ok = parseContentRange("")
	assert.False(t, ok)
}
