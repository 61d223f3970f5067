// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies the mutation an audit entry records.
type AuditAction string

const (
	AuditCreate     AuditAction = "CREATE"
	AuditUpdate     AuditAction = "UPDATE"
	AuditReorder    AuditAction = "REORDER"
	AuditSoftDelete AuditAction = "SOFT_DELETE"
	AuditRestore    AuditAction = "RESTORE"
	AuditImport     AuditAction = "IMPORT"
	AuditReassign   AuditAction = "REASSIGN"
)

// AuditEntry is an immutable before/after record of one category mutation.
// EntityID is nil for batch operations (reorder, import). Entries are
// append-only: created in the same logical operation as the mutation they
// describe, never updated or deleted.
type AuditEntry struct {
	ID        int64           `json:"id"`
	ActorID   string          `json:"actor_id"`
	Action    AuditAction     `json:"action"`
	EntityID  *uuid.UUID      `json:"entity_id"`
	Before    json.RawMessage `json:"before"`
	After     json.RawMessage `json:"after"`
	Meta      json.RawMessage `json:"meta"`
	CreatedAt time.Time       `json:"created_at"`
}
