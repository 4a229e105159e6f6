/*
errors.go - Centralized error types for the booking engine

ERROR CATEGORIES:
  1. Allocation errors - range exhaustion
  2. Registry errors - protected built-in vendors
  3. Validation errors - rejected before any remote call
  4. Remote errors - wrapped store failures during sync or commit

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, booking.ErrRangeExhausted) { ... }

SEE ALSO:
  - allocator.go: returns RangeExhaustedError
  - vendor.go: returns ErrBuiltinVendor
*/
package booking

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRangeExhausted is returned when a vendor has no free number left
	// in its allocatable range.
	ErrRangeExhausted = errors.New("code range exhausted")

	// ErrBuiltinVendor is returned when an operation tries to remove a
	// built-in vendor. Built-ins can be overridden, never deleted.
	ErrBuiltinVendor = errors.New("built-in vendor cannot be removed")

	// ErrVendorNotFound is returned when a referenced vendor key has
	// neither a built-in profile nor an override entry.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrReservationNotFound is returned when a code has no passenger rows.
	ErrReservationNotFound = errors.New("reservation not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RangeExhaustedError reports which vendor ran out of numbers.
type RangeExhaustedError struct {
	Vendor   VendorKey
	Prefix   string
	RangeEnd int
}

func (e *RangeExhaustedError) Error() string {
	return fmt.Sprintf("vendor %q exhausted range (prefix %s, end %d)", e.Vendor, e.Prefix, e.RangeEnd)
}

func (e *RangeExhaustedError) Unwrap() error { return ErrRangeExhausted }

// ValidationError carries the full list of corrective messages for a
// rejected operation. Nothing was written, locally or remotely.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// RemoteError wraps a store failure so callers can distinguish "the
// operation was rejected" from "the remote store was unreachable".
type RemoteError struct {
	Op  string // e.g. "fetch reservations", "insert payment"
	Err error
}

func (e *RemoteError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *RemoteError) Unwrap() error { return e.Err }

// IsClientError reports whether the error is due to invalid input or a
// rejected request, as opposed to an infrastructure failure.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrRangeExhausted) ||
		errors.Is(err, ErrBuiltinVendor) ||
		errors.Is(err, ErrVendorNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}
