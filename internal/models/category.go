// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category levels. The hierarchy is fixed at two levels: roots never have a
// parent, children always have a root parent.
const (
	LevelRoot  = 0
	LevelChild = 1
)

// Category represents one node of the marketplace taxonomy.
//
// Path is the materialized slash-joined slug chain ("electronics" or
// "electronics/phones") and doubles as a denormalized lookup and uniqueness
// key. IsDeleted marks soft-deletion and excludes the record from all default
// queries; IsActive controls visibility independently of deletion.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Level       int        `json:"level"`
	SortOrder   int        `json:"sort_order"`
	Path        string     `json:"path"`
	IsActive    bool       `json:"is_active"`
	IsDeleted   bool       `json:"is_deleted"`
	Country     string     `json:"country"`
	Cities      []string   `json:"cities"`
	IconKey     string     `json:"icon_key"`
	ImageURL    string     `json:"image_url"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"created_by"`
	UpdatedBy   string     `json:"updated_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsRoot reports whether the category is a level-0 node.
func (c *Category) IsRoot() bool {
	return c.Level == LevelRoot
}

// Live reports whether the category is not soft-deleted.
func (c *Category) Live() bool {
	return !c.IsDeleted
}
