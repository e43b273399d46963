package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Session states. A session starts unauthenticated, passes through
// loading while a stored token is validated or a login is in flight,
// and settles on authenticated or back on unauthenticated.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateLoading         SessionState = "loading"
	StateAuthenticated   SessionState = "authenticated"
)

// ErrLoginFailed is returned for every failed login regardless of
// cause, so callers cannot probe which emails are registered.
var ErrLoginFailed = errors.New("login failed: check your email and password")

// Session manages the authentication lifecycle on top of a Client
type Session struct {
	client *Client

	mu    sync.RWMutex
	state SessionState
	user  *User
}

// NewSession creates a session in the unauthenticated state
func NewSession(client *Client) *Session {
	return &Session{client: client, state: StateUnauthenticated}
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentUser returns the authenticated user, or nil
func (s *Session) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setState(state SessionState, user *User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
}

// loginResponse is the login payload
type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user"`
}

// Init resumes a stored session by validating its token against the
// server. An invalid or missing token leaves the session
// unauthenticated with credentials cleared; it never returns an error
// for that case.
func (s *Session) Init(ctx context.Context) error {
	s.setState(StateLoading, nil)

	if s.client.token() == "" {
		s.setState(StateUnauthenticated, nil)
		return nil
	}

	var user User
	if err := s.client.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && (apiErr.Code == CodeTimeout || apiErr.Code == CodeNetworkError) {
			// Transient failure: keep the stored credentials so a retry
			// can still resume the session.
			s.setState(StateUnauthenticated, nil)
			return err
		}
		s.client.ClearTokens()
		s.setState(StateUnauthenticated, nil)
		return nil
	}

	s.setState(StateAuthenticated, &user)
	return nil
}

// Login authenticates and stores the session tokens. The access token
// goes to memory and the store; the refresh token is durable-only.
func (s *Session) Login(ctx context.Context, email, password string, rememberMe bool) (*User, error) {
	s.setState(StateLoading, nil)

	body := map[string]any{"email": email, "password": password, "rememberMe": rememberMe}
	var resp loginResponse
	if err := s.client.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		s.setState(StateUnauthenticated, nil)
		return nil, ErrLoginFailed
	}

	s.client.SetAccessToken(resp.AccessToken)
	if creds, err := s.client.creds.Load(); err == nil && creds != nil {
		creds.RefreshToken = resp.RefreshToken
		s.client.creds.Save(creds)
	}

	s.setState(StateAuthenticated, resp.User)
	return resp.User, nil
}

// Refresh exchanges the stored refresh token for a new access token
func (s *Session) Refresh(ctx context.Context) error {
	creds, err := s.client.creds.Load()
	if err != nil || creds == nil || creds.RefreshToken == "" {
		return &Error{Code: "UNAUTHORIZED", Message: "no refresh token available"}
	}

	body := map[string]string{"refreshToken": creds.RefreshToken}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := s.client.do(ctx, http.MethodPost, "/api/auth/refresh", body, &resp); err != nil {
		return err
	}

	s.client.SetAccessToken(resp.AccessToken)
	return nil
}

// Logout revokes the refresh token server-side when possible, then
// clears local state unconditionally. Always leaves the session
// unauthenticated.
func (s *Session) Logout(ctx context.Context) {
	if creds, err := s.client.creds.Load(); err == nil && creds != nil && creds.RefreshToken != "" {
		body := map[string]string{"refreshToken": creds.RefreshToken}
		s.client.do(ctx, http.MethodPost, "/api/auth/logout", body, nil)
	}

	s.client.ClearTokens()
	s.setState(StateUnauthenticated, nil)
}
