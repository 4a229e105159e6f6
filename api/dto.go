/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (JSON shape, decimal parsing) happens in the
  handlers; business validation lives in the desk and comes back as a
  ValidationError with the full message list.

SEE ALSO:
  - handlers.go: Uses these types
  - desk: CommitInput, the domain-side input these map onto
*/
package api

import (
	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/desk"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// VendorDTO is a resolved vendor profile.
type VendorDTO struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Prefix     string `json:"prefix"`
	RangeStart int    `json:"range_start"`
	RangeEnd   int    `json:"range_end"`
	Builtin    bool   `json:"builtin"`
}

// UpsertVendorRequest edits a vendor override. Omitted fields fall
// through to the built-in (or generic) profile.
type UpsertVendorRequest struct {
	Name       *string `json:"name,omitempty"`
	Prefix     *string `json:"prefix,omitempty"`
	RangeStart *int    `json:"range_start,omitempty"`
	RangeEnd   *int    `json:"range_end,omitempty"`
}

// NextCodeDTO is the live allocation preview.
type NextCodeDTO struct {
	Vendor string `json:"vendor"`
	Code   string `json:"code"`
}

// NextGroupDTO is the live group slot preview for a date.
type NextGroupDTO struct {
	Date  string `json:"date"`
	Group string `json:"group"`
}

// CommitReservationRequest carries the full reservation form.
type CommitReservationRequest struct {
	desk.CommitInput
}

// ModifyReservationRequest is the edit form plus the audit reason.
type ModifyReservationRequest struct {
	desk.CommitInput
	Reason string `json:"reason"`
}

// VoidReservationRequest names the acting vendor and the audit reason.
type VoidReservationRequest struct {
	Vendor booking.VendorKey `json:"vendor"`
	Reason string            `json:"reason"`
}

// PaymentRequest records a payment or refund. Amount is a string so a
// non-numeric value is rejected with a clear message instead of a
// generic decode error.
type PaymentRequest struct {
	Vendor  booking.VendorKey `json:"vendor"`
	Code    string            `json:"code"`
	Method  string            `json:"method"`
	Amount  string            `json:"amount"`
	Receipt string            `json:"receipt"`
}

// DayCommentRequest sets the operator note on one day sheet.
type DayCommentRequest struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// DaySheetDTO is one day's printable sheet.
type DaySheetDTO struct {
	Date    string                 `json:"date"`
	Comment string                 `json:"comment,omitempty"`
	Rows    []booking.PassengerRow `json:"rows"`
}

// RetiredDTO lists the retirement ledger.
type RetiredDTO struct {
	Codes []string `json:"codes"`
}

// RefreshResponse acknowledges a manual refresh trigger.
type RefreshResponse struct {
	Triggered bool `json:"triggered"`
}
