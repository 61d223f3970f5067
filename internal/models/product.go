// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a foreign entity. The category engine reads it for usage counts
// and bulk-updates only the reference fields below; all other product
// attributes belong to the catalog.
//
// A product carries three independent category signals that historical data
// allows to disagree: the normalized root reference (CategoryID), the child
// reference (SubcategoryID), and the legacy free-text labels predating id
// references. LegacyCategoryName and LegacySubcategoryName preserve the
// pre-migration labels the first time a reassignment overwrites them and are
// never overwritten afterwards.
type Product struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	CategoryID            *uuid.UUID `json:"category_id"`
	SubcategoryID         *uuid.UUID `json:"subcategory_id"`
	Category              string     `json:"category"`
	Subcategory           string     `json:"subcategory"`
	LegacyCategoryName    *string    `json:"legacy_category_name"`
	LegacySubcategoryName *string    `json:"legacy_subcategory_name"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}
