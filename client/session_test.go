package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionServer(t *testing.T) (*httptest.Server, *MemStore, *Session) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		if body.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"login failed: check your email and password"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{
			"accessToken":"access-1","refreshToken":"refresh-1","expiresIn":86400,
			"user":{"id":"u1","name":"Admin","email":"admin@example.com","role":"admin"}}}`))
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.RefreshToken != "refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"invalid refresh token"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"accessToken":"access-2","expiresIn":86400}}`))
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":"logged out"}`))
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"invalid or expired token"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"id":"u1","name":"Admin","email":"admin@example.com","role":"admin"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := NewMemStore()
	return srv, store, NewSession(New(srv.URL, WithCredentialStore(store)))
}

func TestSessionLogin(t *testing.T) {
	_, store, session := newSessionServer(t)

	user, err := session.Login(context.Background(), "admin@example.com", "password123", false)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, StateAuthenticated, session.State())
	assert.Equal(t, user, session.CurrentUser())

	creds, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "access-1", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
}

func TestSessionLoginFailure(t *testing.T) {
	_, store, session := newSessionServer(t)

	user, err := session.Login(context.Background(), "admin@example.com", "wrong", false)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Nil(t, user)
	assert.Equal(t, StateUnauthenticated, session.State())

	// a failed login must not leave credentials behind
	creds, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestSessionRefresh(t *testing.T) {
	_, store, session := newSessionServer(t)

	_, err := session.Login(context.Background(), "admin@example.com", "password123", true)
	require.NoError(t, err)

	require.NoError(t, session.Refresh(context.Background()))

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)

	t.Run("no refresh token", func(t *testing.T) {
		_, _, s := newSessionServer(t)
		err := s.Refresh(context.Background())
		require.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", err.(*Error).Code)
	})
}

func TestSessionLogout(t *testing.T) {
	_, store, session := newSessionServer(t)

	_, err := session.Login(context.Background(), "admin@example.com", "password123", false)
	require.NoError(t, err)

	session.Logout(context.Background())
	assert.Equal(t, StateUnauthenticated, session.State())
	assert.Nil(t, session.CurrentUser())

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestSessionInit(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		_, _, session := newSessionServer(t)
		require.NoError(t, session.Init(context.Background()))
		assert.Equal(t, StateUnauthenticated, session.State())
	})

	t.Run("valid stored token resumes", func(t *testing.T) {
		srv, store, _ := newSessionServer(t)
		require.NoError(t, store.Save(&Credentials{AccessToken: "access-1"}))

		session := NewSession(New(srv.URL, WithCredentialStore(store)))
		require.NoError(t, session.Init(context.Background()))
		assert.Equal(t, StateAuthenticated, session.State())
		require.NotNil(t, session.CurrentUser())
		assert.Equal(t, "u1", session.CurrentUser().ID)
	})

	t.Run("rejected token clears credentials without error", func(t *testing.T) {
		srv, store, _ := newSessionServer(t)
		require.NoError(t, store.Save(&Credentials{AccessToken: "stale"}))

		session := NewSession(New(srv.URL, WithCredentialStore(store)))
		require.NoError(t, session.Init(context.Background()))
		assert.Equal(t, StateUnauthenticated, session.State())

		creds, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, creds)
	})

	t.Run("transient failure keeps credentials and reports the error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		store := NewMemStore()
		require.NoError(t, store.Save(&Credentials{AccessToken: "access-1"}))

		session := NewSession(New(srv.URL, WithCredentialStore(store)))
		err := session.Init(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateUnauthenticated, session.State())

		creds, loadErr := store.Load()
		require.NoError(t, loadErr)
		require.NotNil(t, creds)
		assert.Equal(t, "access-1", creds.AccessToken)
	})
}
