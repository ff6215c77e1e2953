// Package repository defines error values that are reused across
// repositories and the services built on top of them.  These sentinels
// let handlers distinguish failure scenarios with errors.Is and map
// them to HTTP statuses without inspecting error strings.
package repository

import "errors"

// ErrNotFound is returned when an event, inventory, seat or booking
// item lookup yields no rows.  Handlers translate this into 404.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is returned when a requested quantity or seat set
// is larger than the event capacity or the remaining free capacity.
// The failed operation leaves no state change behind.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as every requested seat already being held by
// another user.  Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrValidation is returned for malformed input such as an empty seat
// list, a zero seat number or a quantity of the wrong shape for the
// configured mode.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")
