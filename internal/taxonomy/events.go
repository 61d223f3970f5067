// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package taxonomy

import (
	"context"

	"github.com/google/uuid"

	"markethub/internal/cache"
	"markethub/internal/models"
)

// Mutation describes a committed change to the category collection.
type Mutation struct {
	Action   models.AuditAction
	EntityID *uuid.UUID
	Country  string
}

// Events receives mutation notifications after the write and its audit entry
// have both succeeded. The engine emits events instead of calling the cache
// inline so an outbox or retry layer can slot in later without touching the
// mutation paths.
type Events interface {
	MutationCommitted(ctx context.Context, m Mutation)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) MutationCommitted(context.Context, Mutation) {}

// CacheInvalidation drops the category read-through cache on every committed
// mutation. Invalidation failures are logged inside the cache store and never
// fail the operation.
type CacheInvalidation struct {
	cache *cache.Store
}

// NewCacheInvalidation returns an Events sink backed by the given cache.
func NewCacheInvalidation(c *cache.Store) *CacheInvalidation {
	return &CacheInvalidation{cache: c}
}

func (e *CacheInvalidation) MutationCommitted(ctx context.Context, _ Mutation) {
	e.cache.InvalidateNamespace(ctx, cache.NamespaceCategories)
}
