package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glaciarsur/booking-engine/booking"
)

// =============================================================================
// LIVE PREVIEW
// =============================================================================

func TestNextGroupForDate_LowestFree(t *testing.T) {
	// GIVEN: date D already carries groups 1 and 3
	// WHEN: previewing the next slot for D
	// THEN: "2" is returned

	cache := &booking.Cache{Passengers: []booking.PassengerRow{
		{Code: "A1", ServiceDate: "2026-01-10", Group: "1"},
		{Code: "B1", ServiceDate: "2026-01-10", Group: "3"},
		{Code: "C1", ServiceDate: "2026-01-11", Group: "1"},
	}}

	assert.Equal(t, "2", booking.NextGroupForDate("2026-01-10", cache))
	assert.Equal(t, "2", booking.NextGroupForDate("2026-01-11", cache))
	assert.Equal(t, "1", booking.NextGroupForDate("2026-01-12", cache))
}

func TestNextGroupForDate_IgnoresPlaceholderAndGarbage(t *testing.T) {
	cache := &booking.Cache{Passengers: []booking.PassengerRow{
		{Code: "A1", ServiceDate: "2026-01-10", Group: booking.GroupPlaceholder},
		{Code: "B1", ServiceDate: "2026-01-10", Group: "x"},
		{Code: "C1", ServiceDate: "2026-01-10", Group: "-2"},
	}}

	assert.Equal(t, "1", booking.NextGroupForDate("2026-01-10", cache))
}

// =============================================================================
// RECONCILIATION ASSIGNMENT
// =============================================================================

func TestAssignGroups_PersistedValuesPreserved(t *testing.T) {
	// GIVEN: persisted groups 1 and 3 for a date, one unnumbered reservation
	// WHEN: assigning
	// THEN: persisted values keep their slots; the backfill takes 2

	sources := []booking.GroupSource{
		{Code: "A1", Created: 100, ServiceDate: "2026-01-10", Group: 1, HasPassengers: true},
		{Code: "B1", Created: 200, ServiceDate: "2026-01-10", Group: 3, HasPassengers: true},
		{Code: "C1", Created: 300, ServiceDate: "2026-01-10", Group: 0, HasPassengers: true},
	}

	groups := booking.AssignGroups(sources)
	assert.Equal(t, "1", groups["A1"])
	assert.Equal(t, "3", groups["B1"])
	assert.Equal(t, "2", groups["C1"])

	// Re-running over the same inputs changes nothing.
	again := booking.AssignGroups(sources)
	assert.Equal(t, groups, again)
}

func TestAssignGroups_DeterministicBackfill(t *testing.T) {
	// GIVEN: three unnumbered reservations, two created at the same instant
	// WHEN: assigning
	// THEN: creation time orders the backfill, code breaks the tie

	sources := []booking.GroupSource{
		{Code: "C9", Created: 100, ServiceDate: "2026-02-01", HasPassengers: true},
		{Code: "A2", Created: 50, ServiceDate: "2026-02-01", HasPassengers: true},
		{Code: "A1", Created: 50, ServiceDate: "2026-02-01", HasPassengers: true},
	}

	groups := booking.AssignGroups(sources)
	assert.Equal(t, "1", groups["A1"])
	assert.Equal(t, "2", groups["A2"])
	assert.Equal(t, "3", groups["C9"])
}

func TestAssignGroups_EmptyReservationDoesNotOccupySlot(t *testing.T) {
	// GIVEN: a reservation with zero passengers holding a persisted group
	// WHEN: assigning
	// THEN: it displays the placeholder and its slot is free for others

	sources := []booking.GroupSource{
		{Code: "A1", Created: 100, ServiceDate: "2026-03-01", Group: 1, HasPassengers: false},
		{Code: "B1", Created: 200, ServiceDate: "2026-03-01", Group: 0, HasPassengers: true},
	}

	groups := booking.AssignGroups(sources)
	assert.Equal(t, booking.GroupPlaceholder, groups["A1"])
	assert.Equal(t, "1", groups["B1"])
}

func TestAssignGroups_DatesAreIndependent(t *testing.T) {
	sources := []booking.GroupSource{
		{Code: "A1", Created: 1, ServiceDate: "2026-04-01", HasPassengers: true},
		{Code: "B1", Created: 2, ServiceDate: "2026-04-02", HasPassengers: true},
	}

	groups := booking.AssignGroups(sources)
	assert.Equal(t, "1", groups["A1"])
	assert.Equal(t, "1", groups["B1"])
}
