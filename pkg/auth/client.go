// Package auth talks to the hosted auth API: passwordless email sign-in with
// a one-time code, session persistence and automatic token refresh.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/backend"
)

const (
	// refreshMargin is how long before expiry a session is refreshed.
	refreshMargin = 90 * time.Second
	// AutoRefreshInterval is how often AutoRefresh checks the session.
	AutoRefreshInterval = 30 * time.Second
)

var errEmptySession = errors.New("stored session has no access token")

// Storage persists the session between runs. Implementations swallow their
// own failures.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

type Options struct {
	URL        string
	AnonKey    string
	Storage    Storage
	HTTPClient *http.Client
	Logger     logr.Logger
	// Now is used for expiry checks; defaults to time.Now.
	Now func() time.Time
}

// Client is safe for concurrent use. It is the single writer of the session;
// readers get copies through GetSession, Token and Subscribe.
type Client struct {
	base       string
	anonKey    string
	storage    Storage
	storageKey string
	hc         *http.Client
	log        logr.Logger
	now        func() time.Time

	mu      sync.Mutex
	session *Session
	loaded  bool

	refreshMu sync.Mutex
	subs      *registry
}

func NewClient(opts Options) (*Client, error) {
	if _, err := backend.Endpoint(opts.URL); err != nil {
		return nil, err
	}
	if opts.AnonKey == "" {
		return nil, errors.New("auth: anon key is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Client{
		base:       opts.URL,
		anonKey:    opts.AnonKey,
		storage:    opts.Storage,
		storageKey: StorageKey(opts.URL),
		hc:         hc,
		log:        log.WithName("auth"),
		now:        now,
		subs:       newRegistry(),
	}, nil
}

// StorageKey is the item name the session is persisted under, derived from
// the project host ("sb-<ref>-auth-token").
func StorageKey(base string) string {
	ref := "local"
	if u, err := url.Parse(base); err == nil && u.Hostname() != "" {
		ref = strings.SplitN(u.Hostname(), ".", 2)[0]
	}
	return "sb-" + ref + "-auth-token"
}

func (c *Client) endpoint(segments ...string) (*url.URL, error) {
	return backend.Endpoint(c.base, append([]string{"auth", "v1"}, segments...)...)
}

func (c *Client) header(bearer string) http.Header {
	h := http.Header{}
	h.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	h.Set("Authorization", "Bearer "+bearer)
	return h
}

// NormalizeEmail trims and lowercases an address the way it is sent to the
// auth API.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe registers fn for session changes until the returned
// subscription is released.
func (c *Client) Subscribe(fn Listener) *Subscription {
	return c.subs.add(fn)
}

// current is the live session, restored from storage on first use.
func (c *Client) current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.loaded = true
		c.session = c.restore()
	}
	return c.session
}

// GetSession returns the current session, restoring it from storage on first
// use. An expired stored session is refreshed; if that fails the user is
// treated as signed out. A nil session with a nil error means signed out.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	sess := c.current()
	if sess == nil {
		return nil, nil
	}
	if !sess.expiresWithin(c.now(), 0) {
		return sess.clone(), nil
	}

	refreshed, err := c.refresh(ctx)
	if err != nil {
		c.log.Info("stored session could not be refreshed", "error", err.Error())
		return nil, nil
	}
	return refreshed.clone(), nil
}

func (c *Client) restore() *Session {
	if c.storage == nil {
		return nil
	}
	raw, ok := c.storage.GetItem(c.storageKey)
	if !ok {
		return nil
	}
	sess, err := decodeSession(raw)
	if err != nil {
		c.log.V(1).Info("discarding stored session", "error", err.Error())
		c.storage.RemoveItem(c.storageKey)
		return nil
	}
	return sess
}

func (c *Client) persist(sess *Session) {
	if c.storage == nil {
		return
	}
	if sess == nil {
		c.storage.RemoveItem(c.storageKey)
		return
	}
	b, err := json.Marshal(sess)
	if err != nil {
		c.log.V(1).Info("session not persisted", "error", err.Error())
		return
	}
	c.storage.SetItem(c.storageKey, string(b))
}

func (c *Client) setSession(sess *Session, ev Event) {
	c.mu.Lock()
	c.session = sess
	c.loaded = true
	c.persist(sess)
	c.mu.Unlock()
	c.subs.emit(ev, sess)
}

type otpRequest struct {
	Email      string `json:"email"`
	CreateUser bool   `json:"create_user"`
}

// SignInWithOTP asks the auth API to email a one-time code to email.
func (c *Client) SignInWithOTP(ctx context.Context, email string, createUser bool) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperr.New(apperr.AuthRequest, errors.New("email is required"))
	}
	u, err := c.endpoint("otp")
	if err != nil {
		return apperr.New(apperr.AuthRequest, err)
	}
	req := otpRequest{Email: email, CreateUser: createUser}
	if err := backend.DoJSON(ctx, c.hc, http.MethodPost, u, c.header(""), req, nil); err != nil {
		return apperr.New(apperr.AuthRequest, err)
	}
	c.log.Info("one-time code requested", "email", email)
	return nil
}

type verifyRequest struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// VerifyOTP exchanges the emailed code for a session and signs the user in.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, apperr.New(apperr.AuthVerify, errors.New("email and code are required"))
	}
	u, err := c.endpoint("verify")
	if err != nil {
		return nil, apperr.New(apperr.AuthVerify, err)
	}

	var sess Session
	req := verifyRequest{Type: "email", Email: email, Token: code}
	if err := backend.DoJSON(ctx, c.hc, http.MethodPost, u, c.header(""), req, &sess); err != nil {
		return nil, apperr.New(apperr.AuthVerify, err)
	}
	if sess.AccessToken == "" {
		return nil, apperr.New(apperr.AuthVerify, errors.New("no session returned"))
	}
	sess.fillExpiry(c.now())

	c.setSession(&sess, SignedIn)
	c.log.Info("signed in", "user", sess.User.ID)
	return sess.clone(), nil
}

// SignOut revokes the session on the server and forgets it locally. The
// local session is dropped even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	sess := c.current()
	if sess == nil {
		return nil
	}
	c.setSession(nil, SignedOut)

	u, err := c.endpoint("logout")
	if err != nil {
		return err
	}
	if err := backend.DoJSON(ctx, c.hc, http.MethodPost, u, c.header(sess.AccessToken), nil, nil); err != nil {
		return fmt.Errorf("server sign-out failed: %w", err)
	}
	c.log.Info("signed out")
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh trades the refresh token for a new session. Concurrent callers
// share one round trip. A rejected refresh token signs the user out.
func (c *Client) refresh(ctx context.Context) (*Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	sess := c.current()
	if sess == nil {
		return nil, errors.New("not signed in")
	}
	if !sess.expiresWithin(c.now(), refreshMargin) {
		return sess, nil
	}

	u, err := c.endpoint("token")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("grant_type", "refresh_token")
	u.RawQuery = q.Encode()

	var next Session
	err = backend.DoJSON(ctx, c.hc, http.MethodPost, u, c.header(""), refreshRequest{RefreshToken: sess.RefreshToken}, &next)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			c.log.Info("session invalidated by server", "status", apiErr.Status)
			c.setSession(nil, SignedOut)
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	next.fillExpiry(c.now())
	if next.User.ID == "" {
		next.User = sess.User
	}
	c.setSession(&next, TokenRefreshed)
	c.log.V(1).Info("session refreshed", "expires", next.Expiry())
	return &next, nil
}

// Token implements oauth2.TokenSource. Signed-out callers get the anon key;
// a session close to expiry is refreshed first.
func (c *Client) Token() (*oauth2.Token, error) {
	sess := c.current()
	if sess == nil {
		return &oauth2.Token{AccessToken: c.anonKey, TokenType: "bearer"}, nil
	}
	if !sess.expiresWithin(c.now(), refreshMargin) {
		return sess.Token(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	next, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return next.Token(), nil
}

// AutoRefresh keeps the session fresh until ctx is done.
func (c *Client) AutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = AutoRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess := c.current()
			if sess == nil || !sess.expiresWithin(c.now(), refreshMargin) {
				continue
			}
			if _, err := c.refresh(ctx); err != nil {
				c.log.Info("automatic refresh failed", "error", err.Error())
			}
		}
	}
}

var _ oauth2.TokenSource = (*Client)(nil)
