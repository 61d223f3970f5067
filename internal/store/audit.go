// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// audit.go records the immutable before/after trail of every category
// mutation. Unlike best-effort operational logs, an audit write failure
// propagates to the caller: a mutation must never report success while
// silently unaudited.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"markethub/internal/models"
)

// AuditStore manages the append-only category audit log.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore returns a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends one audit entry. before, after, and meta may be nil or any
// JSON-marshalable snapshot; entityID is nil for batch operations.
func (s *AuditStore) Record(ctx context.Context, actorID string, action models.AuditAction, entityID *uuid.UUID, before, after, meta any) error {
	beforeJSON, err := marshalSnapshot(before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}
	metaJSON, err := marshalSnapshot(meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO category_audit_log (actor_id, action, entity_id, before, after, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, actorID, string(action), uuidOrNil(entityID), beforeJSON, afterJSON, metaJSON)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// marshalSnapshot converts a snapshot to JSON, mapping nil to SQL NULL.
func marshalSnapshot(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// AuditFilter narrows an audit log query.
type AuditFilter struct {
	EntityID *uuid.UUID
	Action   models.AuditAction
}

// List returns a page of audit entries, newest first, plus the total count
// for the filter.
func (s *AuditStore) List(ctx context.Context, f AuditFilter, page, perPage int) ([]models.AuditEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	where := squirrel.And{}
	if f.EntityID != nil {
		where = append(where, squirrel.Eq{"entity_id": *f.EntityID})
	}
	if f.Action != "" {
		where = append(where, squirrel.Eq{"action": string(f.Action)})
	}

	countQuery := psql.Select("COUNT(*)").From("category_audit_log")
	listQuery := psql.Select("id", "actor_id", "action", "entity_id", "before", "after", "meta", "created_at").
		From("category_audit_log")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
		listQuery = listQuery.Where(where)
	}

	sqlStr, args, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit count query: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	sqlStr, args, err = listQuery.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		// Nullable jsonb goes through []byte first: a nil driver value
		// cannot land in json.RawMessage directly.
		var before, after, meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityID, &before, &after, &meta, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Before = before
		e.After = after
		e.Meta = meta
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
