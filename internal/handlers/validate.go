// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for category fields.
const (
	maxNameLen        = 200
	maxSlugLen        = 200
	maxDescriptionLen = 2_000
	maxCountryLen     = 8
	maxCityLen        = 100
	maxCities         = 200
	maxImportNodes    = 2_000
	maxReorderItems   = 1_000
)

// validateCategoryFields checks category inputs and returns the first error
// found, or "".
func validateCategoryFields(name, slug, description, country string, cities []string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)."
	}
	if utf8.RuneCountInString(country) > maxCountryLen {
		return "Country code is too long (max 8 characters)."
	}
	return validateCities(cities)
}

// validateUpdate checks only the fields present in a partial update.
func validateUpdate(req updateRequest) string {
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return "Name cannot be blank."
		}
		if utf8.RuneCountInString(*req.Name) > maxNameLen {
			return "Name is too long (max 200 characters)."
		}
	}
	if req.Slug != nil && utf8.RuneCountInString(*req.Slug) > maxSlugLen {
		return "Slug is too long (max 200 characters)."
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)."
	}
	if req.Country != nil && utf8.RuneCountInString(*req.Country) > maxCountryLen {
		return "Country code is too long (max 8 characters)."
	}
	if req.Cities != nil {
		return validateCities(*req.Cities)
	}
	return ""
}

func validateCities(cities []string) string {
	if len(cities) > maxCities {
		return "Too many cities (max 200)."
	}
	for _, city := range cities {
		if strings.TrimSpace(city) == "" {
			return "City names cannot be blank."
		}
		if utf8.RuneCountInString(city) > maxCityLen {
			return "City name is too long (max 100 characters)."
		}
	}
	return ""
}
