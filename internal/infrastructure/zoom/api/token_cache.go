// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// DefaultTokenExpirySkew is how long before its expiry a token is considered stale.
const DefaultTokenExpirySkew = 60 * time.Second

// ErrTokenNotFound is returned by a TokenStore without a token for the key.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists access tokens between requests, and between processes
// when backed by a shared store.
type TokenStore interface {
	Load(ctx context.Context, key string) (*oauth2.Token, error)
	Save(ctx context.Context, key string, token *oauth2.Token) error
}

// TokenCache hands out a stored token while it is fresh and fetches a new one
// otherwise. Fetches are serialized so concurrent callers share one token.
type TokenCache struct {
	store TokenStore
	key   string
	fetch func(ctx context.Context) (*oauth2.Token, error)
	now   func() time.Time
	skew  time.Duration
	mu    sync.Mutex
}

// NewTokenCache creates a new TokenCache.
func NewTokenCache(store TokenStore, key string, fetch func(ctx context.Context) (*oauth2.Token, error)) *TokenCache {
	return &TokenCache{
		store: store,
		key:   key,
		fetch: fetch,
		now:   time.Now,
		skew:  DefaultTokenExpirySkew,
	}
}

// fresh reports whether the token is usable for at least the skew. A token
// without an expiry never goes stale.
func (c *TokenCache) fresh(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	return token.Expiry.IsZero() || c.now().Add(c.skew).Before(token.Expiry)
}

// Token returns a fresh access token.
func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := c.store.Load(ctx, c.key)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		slog.WarnContext(ctx, "failed to load cached zoom token", logging.ErrKey, err)
	}
	if err == nil && c.fresh(token) {
		return token, nil
	}

	token, err = c.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zoom access token: %w", err)
	}
	if err := c.store.Save(ctx, c.key, token); err != nil {
		slog.WarnContext(ctx, "failed to cache zoom token", logging.ErrKey, err)
	}
	return token, nil
}

// Source adapts the cache to an oauth2.TokenSource bound to ctx.
func (c *TokenCache) Source(ctx context.Context) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) { return c.Token(ctx) })
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*oauth2.Token)}
}

// Load returns the token stored under key.
func (s *MemoryTokenStore) Load(_ context.Context, key string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// Save stores the token under key.
func (s *MemoryTokenStore) Save(_ context.Context, key string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token
	return nil
}

// RedisTokenStore shares tokens between workers through Redis. Entries expire
// with the token.
type RedisTokenStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisTokenStore creates a RedisTokenStore on the given client.
func NewRedisTokenStore(client redis.Cmdable) *RedisTokenStore {
	return &RedisTokenStore{client: client, now: time.Now}
}

// Load returns the token stored under key.
func (s *RedisTokenStore) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return &token, nil
}

// Save stores the token under key until it expires. Expired tokens are not stored.
func (s *RedisTokenStore) Save(ctx context.Context, key string, token *oauth2.Token) error {
	var ttl time.Duration
	if !token.Expiry.IsZero() {
		ttl = token.Expiry.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}
