// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements the persistence layer over PostgreSQL. Each
// entity gets its own store struct around *sql.DB; dynamically-composed
// filters use squirrel with dollar placeholders.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// psql is the shared squirrel builder configured for Postgres placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// uuidOrNil converts an optional uuid into a driver-friendly value.
// Passing a nil *uuid.UUID directly would make database/sql call Value on a
// nil receiver.
func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// citiesToJSON marshals a city list for the jsonb column; nil becomes [].
func citiesToJSON(cities []string) ([]byte, error) {
	if cities == nil {
		cities = []string{}
	}
	data, err := json.Marshal(cities)
	if err != nil {
		return nil, fmt.Errorf("marshal cities: %w", err)
	}
	return data, nil
}

// citiesFromJSON unmarshals the jsonb cities column.
func citiesFromJSON(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var cities []string
	if err := json.Unmarshal(data, &cities); err != nil {
		return nil, fmt.Errorf("unmarshal cities: %w", err)
	}
	return cities, nil
}
