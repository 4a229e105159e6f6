package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/booking/store"
	"github.com/glaciarsur/booking-engine/reconcile"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestSyncer(t *testing.T) (*reconcile.Syncer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return &reconcile.Syncer{
		Remote:   mem,
		Registry: booking.NewRegistry(),
	}, mem
}

func seedReservation(t *testing.T, mem *store.Memory, code string, vendor booking.VendorKey, date string, created time.Time, names ...string) {
	t.Helper()
	id := "res-" + code
	pax := make([]booking.PassengerRecord, 0, len(names))
	for i, n := range names {
		pax = append(pax, booking.PassengerRecord{
			ID:            id + "-p" + string(rune('a'+i)),
			ReservationID: id,
			Name:          n,
			Category:      booking.CategoryAdult,
			CreatedAt:     created,
		})
	}
	require.NoError(t, mem.CommitReservation(context.Background(), booking.ReservationBundle{
		Reservation: booking.ReservationRecord{
			ID:          id,
			Code:        code,
			VendorKey:   vendor,
			ServiceDate: date,
			Status:      booking.StatusConfirmed,
			CreatedAt:   created,
		},
		Passengers: pax,
	}))
}

// =============================================================================
// ATOMICITY
// =============================================================================

func TestRebuild_PartialFailureProducesNoResult(t *testing.T) {
	// GIVEN: headers fetch fine but the passenger fetch fails
	// WHEN: rebuilding
	// THEN: an error is returned and no snapshot exists to apply

	s, mem := newTestSyncer(t)
	seedReservation(t, mem, "A1", "javier", "2026-01-10", time.Now(), "pax")
	mem.FailPassengers = errors.New("network down")

	res, err := s.Rebuild(context.Background(), reconcile.ReasonTimer)
	require.Error(t, err)
	assert.Nil(t, res)

	var remoteErr *booking.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "fetch passengers", remoteErr.Op)
}

func TestRebuild_EmptyRemoteIsARealState(t *testing.T) {
	// GIVEN: zero reservation headers upstream
	// WHEN: rebuilding
	// THEN: the result is flagged empty, not treated as a failed fetch

	s, _ := newTestSyncer(t)

	res, err := s.Rebuild(context.Background(), reconcile.ReasonStartup)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Empty(t, res.Passengers)
	assert.Empty(t, res.Payments)
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

func TestRebuild_GroupPreservationAndBackfill(t *testing.T) {
	// GIVEN: one reservation with persisted group 2, one without
	// WHEN: rebuilding
	// THEN: the persisted value survives and the other backfills to 1

	s, mem := newTestSyncer(t)
	now := time.Now()

	require.NoError(t, mem.CommitReservation(context.Background(), booking.ReservationBundle{
		Reservation: booking.ReservationRecord{
			ID: "r1", Code: "A1", VendorKey: "javier",
			ServiceDate: "2026-01-10", Group: 2,
			Status: booking.StatusConfirmed, CreatedAt: now,
		},
		Passengers: []booking.PassengerRecord{
			{ID: "p1", ReservationID: "r1", Name: "x", Category: booking.CategoryAdult},
		},
	}))
	seedReservation(t, mem, "B1", "vicente", "2026-01-10", now.Add(time.Second), "y")

	res, err := s.Rebuild(context.Background(), reconcile.ReasonTimer)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Groups["A1"])
	assert.Equal(t, "1", res.Groups["B1"])
}

func TestRebuild_PricesRecomputedFromCurrentConfig(t *testing.T) {
	// GIVEN: an admin document with a changed high adult rate
	// WHEN: rebuilding a January reservation
	// THEN: rows carry the configured rate, not a stored amount

	s, mem := newTestSyncer(t)
	seedReservation(t, mem, "A1", "javier", "2026-01-10", time.Now(), "pax")
	require.NoError(t, mem.AppendConfig(context.Background(), booking.ConfigRecord{
		ID:        "c1",
		Payload:   []byte(`{"high_rates": {"adult": "200000"}}`),
		UpdatedAt: time.Now(),
	}))

	res, err := s.Rebuild(context.Background(), reconcile.ReasonTimer)
	require.NoError(t, err)
	require.Len(t, res.Passengers, 1)
	assert.True(t, res.Passengers[0].TourValue.Equal(decimal.NewFromInt(200000)))
}

func TestRebuild_VendorNamesFromOverrides(t *testing.T) {
	// Freshly fetched overrides shape the rows of the same rebuild.
	s, mem := newTestSyncer(t)
	name := "Vicente R."
	require.NoError(t, mem.UpsertOverride(context.Background(), booking.OverrideRecord{
		Key:      "vicente",
		Override: booking.VendorOverride{Name: &name},
	}))
	seedReservation(t, mem, "B1", "vicente", "2026-01-10", time.Now(), "pax")

	res, err := s.Rebuild(context.Background(), reconcile.ReasonTimer)
	require.NoError(t, err)
	require.Len(t, res.Passengers, 1)
	assert.Equal(t, "Vicente R.", res.Passengers[0].Vendor)
}

// =============================================================================
// PAYMENT VENDOR ATTRIBUTION
// =============================================================================

func TestVendorFromReceipt(t *testing.T) {
	assert.Equal(t, "Vicente", reconcile.VendorFromReceipt("abono inicial · vend: Vicente"))
	assert.Equal(t, "Eli", reconcile.VendorFromReceipt("VEND:  Eli  "))
	assert.Equal(t, "", reconcile.VendorFromReceipt("sin marcador"))
}

func TestRebuild_PaymentVendorMarkerBeatsPrefix(t *testing.T) {
	// GIVEN: a payment on an A-code whose receipt names another seller
	// WHEN: rebuilding
	// THEN: the marker wins; a markerless payment falls back to the prefix

	s, mem := newTestSyncer(t)
	seedReservation(t, mem, "A1", "javier", "2026-01-10", time.Now(), "pax")
	require.NoError(t, mem.InsertPayment(context.Background(), booking.PaymentRecord{
		ID: "pay1", Code: "A1", Method: "cash",
		Amount:  decimal.NewFromInt(10000),
		Receipt: "abono · vend: Vicente",
	}))
	require.NoError(t, mem.InsertPayment(context.Background(), booking.PaymentRecord{
		ID: "pay2", Code: "A1", Method: "cash",
		Amount: decimal.NewFromInt(5000),
	}))

	res, err := s.Rebuild(context.Background(), reconcile.ReasonTimer)
	require.NoError(t, err)
	require.Len(t, res.Payments, 2)

	vendors := map[string]bool{}
	for _, p := range res.Payments {
		vendors[p.Vendor] = true
	}
	assert.True(t, vendors["Vicente"])
	assert.True(t, vendors["Admin"])
}

// =============================================================================
// SIGNAL STREAM
// =============================================================================

func TestRefreshSignal_Coalesces(t *testing.T) {
	sig := reconcile.NewRefreshSignal()
	sig.Emit(reconcile.ReasonManual)
	sig.Emit(reconcile.ReasonTimer) // dropped, one trigger already pending

	select {
	case reason := <-sig.C():
		assert.Equal(t, reconcile.ReasonManual, reason)
	default:
		t.Fatal("expected a pending trigger")
	}

	select {
	case <-sig.C():
		t.Fatal("second emit should have coalesced")
	default:
	}
}

func TestRun_AppliesSuccessfulRebuilds(t *testing.T) {
	s, mem := newTestSyncer(t)
	seedReservation(t, mem, "A1", "javier", "2026-01-10", time.Now(), "pax")

	sig := reconcile.NewRefreshSignal()
	applied := make(chan *reconcile.SyncResult, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, sig, func(res *reconcile.SyncResult) { applied <- res })

	sig.Emit(reconcile.ReasonStartup)

	select {
	case res := <-applied:
		assert.Len(t, res.Passengers, 1)
		assert.Equal(t, reconcile.ReasonStartup, res.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("rebuild was never applied")
	}
}
