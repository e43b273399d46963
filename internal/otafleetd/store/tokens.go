package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenStore handles opaque refresh tokens. Access tokens are
// stateless JWTs; only refresh tokens touch the database.
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Issue creates a refresh token for a user
func (s *TokenStore) Issue(userID string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	_, err := s.db.Exec(
		"INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, time.Now().UTC().Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// Redeem resolves a refresh token to its user ID. Expired tokens are
// deleted on sight.
func (s *TokenStore) Redeem(token string) (string, error) {
	var userID string
	var expiresAt time.Time
	err := s.db.QueryRow(
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("refresh token: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up token: %w", err)
	}

	if time.Now().After(expiresAt) {
		s.db.Exec("DELETE FROM refresh_tokens WHERE token = ?", token)
		return "", fmt.Errorf("refresh token expired: %w", ErrNotFound)
	}
	return userID, nil
}

// Revoke deletes a single refresh token. Revoking an unknown token is
// not an error.
func (s *TokenStore) Revoke(token string) error {
	if _, err := s.db.Exec("DELETE FROM refresh_tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Prune deletes expired tokens
func (s *TokenStore) Prune() error {
	if _, err := s.db.Exec("DELETE FROM refresh_tokens WHERE expires_at < ?", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to prune tokens: %w", err)
	}
	return nil
}
