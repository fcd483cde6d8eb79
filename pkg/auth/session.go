package auth

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// User is the part of the auth user record the client cares about.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential issued by the auth API after a verified code.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry is the instant the access token stops being accepted.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// expiresWithin reports whether the access token expires before now+margin.
// A session without an expiry never does.
func (s *Session) expiresWithin(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(margin).Before(exp)
}

// Token exposes the session as an OAuth2 bearer token.
func (s *Session) Token() *oauth2.Token {
	typ := s.TokenType
	if typ == "" {
		typ = "bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    typ,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// fillExpiry derives ExpiresAt from ExpiresIn when the server only sent the
// relative lifetime.
func (s *Session) fillExpiry(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

func decodeSession(raw string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, errEmptySession
	}
	return &s, nil
}
