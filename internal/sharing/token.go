// Package sharing issues and validates share tokens that grant read-only
// access to a single session's export.
package sharing

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coreassist/coreassist/internal/storage"
	"github.com/coreassist/coreassist/pkg/types"
)

// ErrNotFound is returned when a token has no live share record.
var ErrNotFound = errors.New("share not found")

// ErrExpired is returned by Get when the token's TTL has elapsed.
var ErrExpired = errors.New("share expired")

// ErrSecretMismatch is returned by Revoke when the supplied secret does not
// match the stored one.
var ErrSecretMismatch = errors.New("secret mismatch")

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Manager issues, resolves, and revokes share tokens, persisting the
// forward (share/<token>) and reverse (session_share/<session>) index
// entries through storage so shares survive restarts.
type Manager struct {
	storage *storage.Storage
}

// NewManager creates a share token manager backed by the given storage.
func NewManager(store *storage.Storage) *Manager {
	return &Manager{storage: store}
}

func tokenPath(token string) []string {
	return []string{"share", token}
}

func sessionPath(sessionID string) []string {
	return []string{"session_share", sessionID}
}

// Create generates a fresh 8-char lowercase-alphanumeric token and a v4 UUID
// secret for sessionID, stores both index entries, and stamps expiresAt
// when ttl is positive.
func (m *Manager) Create(ctx context.Context, sessionID, projectID string, ttl time.Duration) (*types.ShareToken, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	share := &types.ShareToken{
		Token:     token,
		SessionID: sessionID,
		ProjectID: projectID,
		Secret:    uuid.NewString(),
		CreatedAt: time.Now().UnixMilli(),
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl).UnixMilli()
		share.ExpiresAt = &expires
	}

	if err := m.storage.Put(ctx, tokenPath(token), share); err != nil {
		return nil, err
	}
	if err := m.storage.Put(ctx, sessionPath(sessionID), share); err != nil {
		return nil, err
	}

	return share, nil
}

// Get resolves a token to its share record, failing on missing or expired
// tokens, and bumps AccessCount on success.
func (m *Manager) Get(ctx context.Context, token string) (*types.ShareToken, error) {
	var share types.ShareToken
	err := m.storage.Update(ctx, tokenPath(token), &share, func() error {
		if isExpired(&share) {
			return ErrExpired
		}
		share.AccessCount++
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Keep the reverse index in sync with the bumped access count.
	_ = m.storage.Put(ctx, sessionPath(share.SessionID), &share)

	return &share, nil
}

// GetForSession resolves the live share for a session, if any. An expired
// token found here is best-effort revoked with its own secret before
// returning ErrNotFound, since an expired share is not a live share.
func (m *Manager) GetForSession(ctx context.Context, sessionID string) (*types.ShareToken, error) {
	var share types.ShareToken
	err := m.storage.Get(ctx, sessionPath(sessionID), &share)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if isExpired(&share) {
		_ = m.Revoke(ctx, share.Token, share.Secret)
		return nil, ErrNotFound
	}

	return &share, nil
}

// Revoke deletes a token's forward and reverse index entries. The secret
// must match the stored one under constant-time comparison; a mismatch
// fails the call without deleting anything.
func (m *Manager) Revoke(ctx context.Context, token, secret string) error {
	var share types.ShareToken
	if err := m.storage.Get(ctx, tokenPath(token), &share); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(share.Secret), []byte(secret)) != 1 {
		return ErrSecretMismatch
	}

	if err := m.storage.Delete(ctx, tokenPath(token)); err != nil {
		return err
	}
	return m.storage.Delete(ctx, sessionPath(share.SessionID))
}

func isExpired(share *types.ShareToken) bool {
	return share.ExpiresAt != nil && time.Now().UnixMilli() > *share.ExpiresAt
}

// generateToken returns 8 characters drawn uniformly from [a-z0-9].
func generateToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}
