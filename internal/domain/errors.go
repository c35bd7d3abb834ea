// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking)
// or an illegal state transition.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrForbidden indicates the actor is not authorized for the operation.
var ErrForbidden = errors.New("forbidden")

// ErrValidation indicates malformed or incomplete input.
var ErrValidation = errors.New("validation failed")
