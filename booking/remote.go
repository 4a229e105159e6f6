/*
remote.go - Remote store contract

PURPOSE:
  Defines the record shapes and the RemoteStore interface the engine
  uses to talk to the backing database. The engine never trusts derived
  fields from remote rows; prices and group numbers are recomputed
  locally after every fetch.

IMPLEMENTATIONS:
  - store (memory): in-process map store for tests and dev
  - store/sqlite: production SQLite store
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REMOTE RECORDS
// =============================================================================

// ReservationRecord is one reservation header row. Monetary fields
// hold quantities and selections only; derived amounts are recomputed
// locally from the current rate configuration after every fetch.
type ReservationRecord struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	VendorKey   VendorKey `json:"vendor_key"`
	ServiceDate string    `json:"service_date"`
	Group       int       `json:"group"` // 0 = unassigned
	Status      Status    `json:"status"`

	TourDiscount decimal.Decimal `json:"tour_discount"`

	AddonType     AddonType       `json:"addon_type"`
	Provider      string          `json:"provider"`
	AddonDate     string          `json:"addon_date"`
	AddonDiscount decimal.Decimal `json:"addon_discount"`

	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// PassengerRecord is one traveler row belonging to a reservation.
type PassengerRecord struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Name          string    `json:"name"`
	Document      string    `json:"document"`
	Nationality   string    `json:"nationality"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Category      Category  `json:"category"`
	Transport     bool      `json:"transport"`
	AddonIncluded bool      `json:"addon_included"`
	AddonCategory string    `json:"addon_category"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentRecord is one payment movement row. Payments reference codes,
// not reservation ids, so they survive reservation deletion as an audit
// trail.
type PaymentRecord struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"` // negative = refund
	Receipt   string          `json:"receipt"`
	CreatedAt time.Time       `json:"created_at"`
}

// OverrideRecord mirrors one vendor_overrides row.
type OverrideRecord struct {
	Key      VendorKey      `json:"key"`
	Override VendorOverride `json:"override"`
}

// ConfigRecord is one appended configuration document. The most recent
// row wins; older rows are kept for audit.
type ConfigRecord struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"` // JSON document
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservationBundle groups a reservation header with its detail rows for
// the single-transaction commit path.
type ReservationBundle struct {
	Reservation ReservationRecord
	Passengers  []PassengerRecord
	Payments    []PaymentRecord
}

// =============================================================================
// REMOTE STORE INTERFACE
// =============================================================================

// RemoteStore is the backing database contract. All writes that belong
// to one user action must be atomic within a single call.
type RemoteStore interface {
	// FetchReservations returns every reservation header.
	FetchReservations(ctx context.Context) ([]ReservationRecord, error)

	// FetchPassengers returns the travelers of the given reservations.
	FetchPassengers(ctx context.Context, reservationIDs []string) ([]PassengerRecord, error)

	// FetchPayments returns payment movements for the given codes.
	FetchPayments(ctx context.Context, codes []string) ([]PaymentRecord, error)

	// CommitReservation writes a header with its passengers and any
	// initial payments atomically. Fails whole if the code is taken.
	CommitReservation(ctx context.Context, b ReservationBundle) error

	// ReplaceReservation swaps the passenger rows of an existing
	// reservation and updates its header atomically. The reservation is
	// identified by Reservation.Code; the stored header id and creation
	// time are preserved.
	ReplaceReservation(ctx context.Context, b ReservationBundle) error

	// DeleteReservationByCode removes the header and its passengers.
	// Payment rows for the code are kept.
	DeleteReservationByCode(ctx context.Context, code string) error

	// InsertPayment appends one payment movement.
	InsertPayment(ctx context.Context, p PaymentRecord) error

	// FetchOverrides returns the vendor override mirror.
	FetchOverrides(ctx context.Context) ([]OverrideRecord, error)

	// UpsertOverride inserts or replaces one override row.
	UpsertOverride(ctx context.Context, rec OverrideRecord) error

	// DeleteOverride removes one override row.
	DeleteOverride(ctx context.Context, key VendorKey) error

	// FetchLatestConfig returns the newest configuration document, or
	// (nil, nil) when none has ever been saved.
	FetchLatestConfig(ctx context.Context) (*ConfigRecord, error)

	// AppendConfig stores a new configuration document.
	AppendConfig(ctx context.Context, rec ConfigRecord) error
}
