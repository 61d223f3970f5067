// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store.go provides the namespaced read-through cache. Keys are
// "<namespace>:<key>"; invalidation drops an entire namespace by prefix so
// a category mutation clears every cached tree variant at once.

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// NamespaceCategories keys every cached category read.
	NamespaceCategories = "categories"

	// DefaultReadTTL bounds staleness when an invalidation is missed
	// (crash between write and invalidate). Short relative to how often
	// categories change.
	DefaultReadTTL = 5 * time.Minute
)

// Store is a namespaced read-through cache backed by Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a cache store with the given TTL for cached reads.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = DefaultReadTTL
	}
	return &Store{client: client, ttl: ttl}
}

// WrapRead serves key from the namespace if cached, otherwise invokes fetch
// and stores the result. Cache failures degrade to a direct fetch and a
// warning; only fetch errors propagate.
func (s *Store) WrapRead(ctx context.Context, namespace, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	full := namespace + ":" + key

	val, err := s.client.Get(ctx, full).Bytes()
	if err == nil {
		slog.Debug("cache hit", "key", full)
		return val, nil
	}
	if err != redis.Nil {
		slog.Warn("cache get error", "key", full, "error", err)
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, full, data, s.ttl).Err(); err != nil {
		slog.Warn("cache set error", "key", full, "error", err)
	}
	return data, nil
}

// InvalidateNamespace removes every key in the namespace by scanning for its
// prefix. Failures are logged and swallowed: invalidation is a non-critical
// side effect and the TTL bounds how long stale entries can survive.
func (s *Store) InvalidateNamespace(ctx context.Context, namespace string) {
	pattern := namespace + ":*"
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("cache scan error", "namespace", namespace, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("cache bulk delete error", "namespace", namespace, "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("cache namespace invalidated", "namespace", namespace, "deleted", deleted)
	}
}
