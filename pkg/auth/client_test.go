package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
)

type memStorage struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemStorage() *memStorage { return &memStorage{items: map[string]string{}} }

func (m *memStorage) GetItem(k string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[k]
	return v, ok
}

func (m *memStorage) SetItem(k, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[k] = v
}

func (m *memStorage) RemoveItem(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, k)
}

// fakeAuth is a minimal stand-in for the hosted auth API.
type fakeAuth struct {
	t             *testing.T
	mu            sync.Mutex
	otpEmails     []string
	refreshCalls  int
	rejectRefresh bool
	logouts       int
}

func (f *fakeAuth) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAuth) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func (f *fakeAuth) emails() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.otpEmails...)
}

func (f *fakeAuth) setRejectRefresh(v bool) {
	f.mu.Lock()
	f.rejectRefresh = v
	f.mu.Unlock()
}

func (f *fakeAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/otp", func(w http.ResponseWriter, r *http.Request) {
		var req otpRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "anon", r.Header.Get("apikey"))
		if req.Email == "blocked@example.com" {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code":429,"error_code":"over_email_send_rate_limit","msg":"Email rate limit exceeded"}`))
			return
		}
		f.mu.Lock()
		f.otpEmails = append(f.otpEmails, req.Email)
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/auth/v1/verify", func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Token != "123456" || req.Type != "email" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":403,"error_code":"otp_expired","msg":"Token has expired or is invalid"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
			"user":          map[string]any{"id": "u-1", "email": req.Email},
		})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "refresh_token", r.URL.Query().Get("grant_type"))
		f.mu.Lock()
		f.refreshCalls++
		reject := f.rejectRefresh
		f.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-2",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-2",
		})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logouts++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, store Storage) (*Client, *fakeAuth, *clock) {
	t.Helper()
	fake := &fakeAuth{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c, err := NewClient(Options{
		URL:        srv.URL,
		AnonKey:    "anon",
		Storage:    store,
		HTTPClient: srv.Client(),
		Now:        clk.Now,
	})
	require.NoError(t, err)
	return c, fake, clk
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Options{URL: "", AnonKey: "x"})
	assert.Error(t, err)
	_, err = NewClient(Options{URL: "https://abc.supabase.co"})
	assert.Error(t, err)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "sb-abc-auth-token", StorageKey("https://abc.supabase.co"))
	assert.Equal(t, "sb-127-auth-token", StorageKey("http://127.0.0.1:54321"))
}

func TestSignInWithOTPNormalizesEmail(t *testing.T) {
	c, fake, _ := newTestClient(t, nil)

	require.NoError(t, c.SignInWithOTP(context.Background(), "  Asha@Example.COM ", true))
	assert.Equal(t, []string{"asha@example.com"}, fake.emails())
}

func TestSignInWithOTPFailure(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	err := c.SignInWithOTP(context.Background(), "blocked@example.com", true)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.AuthRequest))
	assert.Equal(t, "Email rate limit exceeded", apperr.Message(err, "Failed to send sign-in link."))

	err = c.SignInWithOTP(context.Background(), "   ", true)
	assert.True(t, apperr.Is(err, apperr.AuthRequest))
}

func TestVerifyOTPSignsInAndPersists(t *testing.T) {
	store := newMemStorage()
	c, _, clk := newTestClient(t, store)

	var events []Event
	sub := c.Subscribe(func(ev Event, s *Session) { events = append(events, ev) })
	defer sub.Unsubscribe()

	sess, err := c.VerifyOTP(context.Background(), "asha@example.com", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.Equal(t, clk.Now().Add(time.Hour).Unix(), sess.ExpiresAt)
	assert.Equal(t, []Event{SignedIn}, events)

	_, ok := store.GetItem(StorageKey(c.base))
	assert.True(t, ok)

	tok, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}

func TestVerifyOTPBadCode(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "000000")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.AuthVerify))
	assert.Equal(t, "Token has expired or is invalid", apperr.Message(err, "Invalid code."))

	sess, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSessionRestoresFromStorage(t *testing.T) {
	store := newMemStorage()
	first, _, _ := newTestClient(t, store)
	_, err := first.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	second, _, _ := newTestClient(t, store)
	second.storageKey = first.storageKey

	sess, err := second.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-1", sess.AccessToken)
}

func TestStoredSessionUsedWithoutGetSession(t *testing.T) {
	store := newMemStorage()
	first, _, _ := newTestClient(t, store)
	_, err := first.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	second, fake, _ := newTestClient(t, store)
	second.storageKey = first.storageKey

	tok, err := second.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)

	require.NoError(t, second.SignOut(context.Background()))
	assert.Equal(t, 1, fake.logoutCount())
	assert.Empty(t, store.items)
}

func TestGetSessionRefreshesExpired(t *testing.T) {
	store := newMemStorage()
	c, fake, clk := newTestClient(t, store)
	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	var events []Event
	sub := c.Subscribe(func(ev Event, s *Session) { events = append(events, ev) })
	defer sub.Unsubscribe()

	clk.Advance(2 * time.Hour)
	sess, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, "u-1", sess.User.ID, "user carried over from the previous session")
	assert.Equal(t, 1, fake.refreshes())
	assert.Equal(t, []Event{TokenRefreshed}, events)
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	c, fake, clk := newTestClient(t, nil)
	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	clk.Advance(time.Hour - time.Minute)
	tok, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)

	tok, err = c.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)
	assert.Equal(t, 1, fake.refreshes())
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	store := newMemStorage()
	c, fake, clk := newTestClient(t, store)
	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	var got []Event
	sub := c.Subscribe(func(ev Event, s *Session) {
		got = append(got, ev)
		assert.Nil(t, s)
	})
	defer sub.Unsubscribe()

	fake.setRejectRefresh(true)
	clk.Advance(2 * time.Hour)
	sess, err := c.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, []Event{SignedOut}, got)

	_, ok := store.GetItem(StorageKey(c.base))
	assert.False(t, ok)

	tok, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "anon", tok.AccessToken)
}

func TestSignOut(t *testing.T) {
	store := newMemStorage()
	c, fake, _ := newTestClient(t, store)
	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)

	var got []Event
	sub := c.Subscribe(func(ev Event, s *Session) { got = append(got, ev) })
	defer sub.Unsubscribe()

	require.NoError(t, c.SignOut(context.Background()))
	assert.Equal(t, []Event{SignedOut}, got)
	assert.Equal(t, 1, fake.logoutCount())
	assert.Empty(t, store.items)

	require.NoError(t, c.SignOut(context.Background()), "signing out twice is a no-op")
	assert.Equal(t, 1, fake.logoutCount())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	calls := 0
	sub := c.Subscribe(func(Event, *Session) { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, c.subs.len())
}

func TestAutoRefreshStopsWithContext(t *testing.T) {
	c, fake, clk := newTestClient(t, nil)
	_, err := c.VerifyOTP(context.Background(), "asha@example.com", "123456")
	require.NoError(t, err)
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.AutoRefresh(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fake.refreshes() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
