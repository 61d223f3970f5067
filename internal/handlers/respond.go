// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON admin API over the category engine.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"markethub/internal/apperr"
)

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Kind    apperr.Kind    `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError maps an application error onto its HTTP status. Untyped
// errors are logged and reported as a generic 500 so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": errorBody{Kind: apperr.KindInternal, Message: "internal server error"},
		})
		return
	}

	if appErr.Kind == apperr.KindInternal {
		slog.Error("internal error", "message", appErr.Message, "error", appErr.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": errorBody{Kind: apperr.KindInternal, Message: "internal server error"},
		})
		return
	}

	writeJSON(w, statusFor(appErr.Kind), map[string]any{
		"error": errorBody{Kind: appErr.Kind, Message: appErr.Message, Details: appErr.Details},
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindInvalidHierarchy:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// badRequest reports a handler-level validation failure.
func badRequest(w http.ResponseWriter, message string) {
	respondError(w, apperr.InvalidRequest(message))
}
