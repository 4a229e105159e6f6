/*
Package booking provides the core reservation-code engine.

PURPOSE:
  This package contains the domain types and algorithms for reservation
  code allocation: vendor profiles and prefix ranges, the retirement
  ledger of codes that must never be reused, the lowest-free-number
  allocator, and per-date group numbering.

KEY CONCEPTS IN THIS FILE (types.go):
  - VendorKey: identifier of a salesperson (a vendor issues codes)
  - Category: passenger classification (adult/child/infant)
  - PassengerRow / PaymentRow: the local cache rows the engine scans
  - Cache: the in-process mirror of the remote store

DESIGN PRINCIPLES:
  1. Purity: allocator and assigner recompute from the current cache
     snapshot; no incremental mutation, no internal locking
  2. Precision: uses decimal.Decimal for monetary values
  3. Robustness: malformed legacy ids are skipped, never fatal

SEE ALSO:
  - vendor.go: vendor registry with override merging
  - retired.go: retirement ledger and orphan detection
  - allocator.go: preview/commit code selection
  - groups.go: per-date group numbering
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// VendorKey identifies a salesperson. Keys are runtime-extensible: admins
// may introduce vendors that have no built-in profile.
type VendorKey string

// Category classifies a passenger for pricing.
type Category string

const (
	CategoryAdult  Category = "adult"
	CategoryChild  Category = "child"
	CategoryInfant Category = "infant"
)

// AddonType identifies the optional add-on service tier.
type AddonType string

const (
	AddonNone AddonType = ""
	AddonFM   AddonType = "FM"
	AddonCM   AddonType = "CM"
)

// Status of a cache passenger row.
type Status string

const (
	StatusPreReservation Status = "pre-reservation"
	StatusConfirmed      Status = "confirmed"
)

// GroupPlaceholder marks a passenger row whose reservation has no
// persisted group number yet.
const GroupPlaceholder = "—"

// =============================================================================
// LOCAL CACHE ROWS
// =============================================================================

// PassengerRow is one traveler inside one reservation. Rows are created in
// bulk at commit time, replaced in bulk by the modification flow, and
// deleted in bulk when a reservation is voided.
type PassengerRow struct {
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
	Vendor      string    `json:"vendor"` // display name, not key
	Code        string    `json:"code"`
	Group       string    `json:"group"` // may be GroupPlaceholder
	Name        string    `json:"name"`
	Document    string    `json:"document"`
	Nationality string    `json:"nationality"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Category    Category  `json:"category"`
	Transport   bool      `json:"transport"`

	// Monetary fields are derived from the current rate configuration,
	// never trusted from a remote row.
	TourValue      decimal.Decimal `json:"tour_value"`
	TransportValue decimal.Decimal `json:"transport_value"`
	TourDiscount   decimal.Decimal `json:"tour_discount"` // group-level, duplicated per row

	AddonCategory string          `json:"addon_category"` // "adult", "infant" or ""
	Provider      string          `json:"provider"`
	AddonDate     string          `json:"addon_date"`
	AddonValue    decimal.Decimal `json:"addon_value"`
	AddonDiscount decimal.Decimal `json:"addon_discount"`

	Notes       string `json:"notes"`
	ServiceDate string `json:"service_date"` // YYYY-MM-DD
}

// PaymentRow is one payment or refund movement. Negative amounts are
// refunds. Zero-amount rows are administrative markers (modification and
// deletion log entries). Append-only from the engine's perspective.
type PaymentRow struct {
	CreatedAt time.Time       `json:"created_at"`
	Vendor    string          `json:"vendor"`
	Code      string          `json:"code"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Receipt   string          `json:"receipt"`
}

// =============================================================================
// HISTORY
// =============================================================================

// VoucherSnapshot is the full computation captured at commit time, kept
// for audit and reprint. Not authoritative for allocation; its code does
// count toward used numbers.
type VoucherSnapshot struct {
	Code          string          `json:"code"`
	Vendor        string          `json:"vendor"`
	ServiceDate   string          `json:"service_date"`
	AddonDate     string          `json:"addon_date,omitempty"`
	TourSubtotal  decimal.Decimal `json:"tour_subtotal"`
	TourDiscount  decimal.Decimal `json:"tour_discount"`
	Transport     decimal.Decimal `json:"transport"`
	TourTotal     decimal.Decimal `json:"tour_total"`
	AddonType     AddonType       `json:"addon_type,omitempty"`
	Provider      string          `json:"provider,omitempty"`
	AddonSubtotal decimal.Decimal `json:"addon_subtotal"`
	AddonDiscount decimal.Decimal `json:"addon_discount"`
	AddonTotal    decimal.Decimal `json:"addon_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Paid          decimal.Decimal `json:"paid"`
	Balance       decimal.Decimal `json:"balance"`
	Passengers    int             `json:"passengers"`
	Adults        int             `json:"adults"`
	Children      int             `json:"children"`
	Infants       int             `json:"infants"`
	Notes         string          `json:"notes,omitempty"`
}

// HistoryEntry is one archived voucher snapshot.
type HistoryEntry struct {
	Vendor    VendorKey       `json:"vendor"`
	Code      string          `json:"code"`
	Snapshot  VoucherSnapshot `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryCap bounds the history list; newest entries are kept.
const HistoryCap = 50

// =============================================================================
// CACHE - Local mirror of the remote store
// =============================================================================

// Cache is the in-process mirror that the allocator and the group
// assigner read. It is rebuilt wholesale by the reconciliation sync;
// between syncs the desk appends to it optimistically.
type Cache struct {
	Passengers []PassengerRow `json:"passengers"`
	Payments   []PaymentRow   `json:"payments"`
	History    []HistoryEntry `json:"history"`
}

// Clone returns a deep-enough copy for handing out snapshots. Row structs
// are value types, so copying the slices is sufficient.
func (c *Cache) Clone() Cache {
	out := Cache{
		Passengers: make([]PassengerRow, len(c.Passengers)),
		Payments:   make([]PaymentRow, len(c.Payments)),
		History:    make([]HistoryEntry, len(c.History)),
	}
	copy(out.Passengers, c.Passengers)
	copy(out.Payments, c.Payments)
	copy(out.History, c.History)
	return out
}
