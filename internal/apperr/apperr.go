// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the typed failure taxonomy shared by the category
// engine and its HTTP surface. Guard violations are detected before any
// write; the storage layer's unique indexes are the final backstop and their
// violations are mapped to Conflict here so callers see both paths the same.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a failure.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindInvalidHierarchy Kind = "INVALID_HIERARCHY"
	KindInvalidRequest   Kind = "INVALID_REQUEST"
	KindInvalidState     Kind = "INVALID_STATE"
	KindInternal         Kind = "INTERNAL"
)

// Error is the application error type. Details carries structured context
// for the caller, such as the blocking product count on a refused delete.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a structured detail and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func InvalidHierarchy(message string) *Error {
	return &Error{Kind: KindInvalidHierarchy, Message: message}
}

func InvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool { return IsKind(err, KindConflict) }

// uniqueViolation is the Postgres error code raised when an insert or update
// hits a unique index.
const uniqueViolation = "23505"

// FromStore maps a storage error into the taxonomy. A unique-index violation
// becomes Conflict — two concurrent creates can both pass the advisory guards
// and race to insert; the loser must surface as a duplicate, not a server
// error. Application errors pass through untouched; everything else becomes
// Internal with the operation name as context.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &Error{Kind: KindConflict, Message: "a category with the same slug or path already exists", Err: err}
	}
	return &Error{Kind: KindInternal, Message: op, Err: err}
}
