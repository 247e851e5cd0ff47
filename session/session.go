// Package session maps opaque tokens to authenticated staff identities.
//
// Sessions live in the injected cache without expiry. With the local cache
// they disappear when the process restarts and every client must log in
// again. They are not shared between instances.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/villacheck/server/cache"
)

const (
	keyPrefix   = "session:"
	tokenPrefix = "tk_"
)

// ErrNotFound is returned by Lookup for unknown or destroyed tokens.
var ErrNotFound = errors.New("session: not found")

// Identity is what a token resolves to.
type Identity struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Login   string `json:"login"`
}

// DisplayName is the name recorded as performer: name, else staff_id, else
// login.
func (i Identity) DisplayName() string {
	for _, s := range []string{i.Name, i.StaffID, i.Login} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Store is safe for concurrent use as long as the cache is.
type Store struct {
	cache    cache.Cache
	newToken func() (string, error)
}

// NewStore creates a Store over c.
func NewStore(c cache.Cache) *Store {
	return &Store{cache: c, newToken: NewToken}
}

// NewToken returns "tk_" followed by the hex form of a UUIDv7: a 48-bit
// millisecond timestamp and 74 random bits.
func NewToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return tokenPrefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// Create stores id under a fresh token.
func (s *Store) Create(ctx context.Context, id Identity) (string, error) {
	data, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < 3; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("session: token: %w", err)
		}
		ok, err := s.cache.SetNX(ctx, keyPrefix+token, string(data), 0)
		if err != nil {
			return "", fmt.Errorf("session: store: %w", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", errors.New("session: token collision")
}

// Lookup resolves token. Unknown tokens give ErrNotFound.
func (s *Store) Lookup(ctx context.Context, token string) (Identity, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return Identity{}, ErrNotFound
	}
	data, err := s.cache.Get(ctx, keyPrefix+token)
	if cache.IsNotFound(err) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("session: lookup: %w", err)
	}
	var id Identity
	if err := json.Unmarshal([]byte(data), &id); err != nil {
		return Identity{}, fmt.Errorf("session: decode: %w", err)
	}
	return id, nil
}

// Destroy removes token. Unknown tokens are ignored.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.cache.Del(ctx, keyPrefix+token)
}
