/*
sync.go - Full cache rebuild from the remote store

PURPOSE:
  Rebuilds the local passenger/payment cache as one snapshot: fetch all
  reservation headers, then the passengers of those reservations, then
  the payments of those codes. The rebuild is applied only after every
  fetch succeeded; a failed fetch leaves the previous cache untouched.
  Zero reservation headers is a real empty state and clears the cache.

DERIVED FIELDS:
  The remote store is authoritative for quantities, categories and
  dates only. During the rebuild:
  - group numbers are re-derived for reservations that lack one,
    preserving persisted values (see booking.AssignGroups)
  - monetary fields are recomputed from the current rate configuration
  - payment vendor names come from a "vend:" marker in the receipt
    text, falling back to the code prefix via the vendor registry

REENTRANCY:
  Rebuild mutates nothing; it returns a result the owner applies. Runs
  are idempotent and order-independent, so overlapping triggers need no
  locking here.

SEE ALSO:
  - signal.go: the trigger stream Run consumes
  - desk: applies SyncResult to the application state
*/
package reconcile

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/config"
	"github.com/glaciarsur/booking-engine/pricing"
)

// =============================================================================
// SYNC RESULT
// =============================================================================

// SyncResult is one complete rebuilt snapshot.
type SyncResult struct {
	Passengers []booking.PassengerRow
	Payments   []booking.PaymentRow
	Overrides  booking.OverrideMap
	Config     pricing.Config
	Groups     map[string]string // code -> display group
	Empty      bool              // zero reservation headers upstream
	Reason     Reason
	FetchedAt  time.Time
}

// =============================================================================
// SYNCER
// =============================================================================

type Syncer struct {
	Remote   booking.RemoteStore
	Registry *booking.Registry
	Log      zerolog.Logger
}

// vendMarker extracts the acting salesperson from a receipt note, e.g.
// "abono inicial · vend: Vicente".
var vendMarker = regexp.MustCompile(`(?i)vend\s*:\s*([^\n\r·]+)`)

// VendorFromReceipt returns the marker value, or "" when absent.
func VendorFromReceipt(receipt string) string {
	if m := vendMarker.FindStringSubmatch(receipt); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Rebuild fetches everything and assembles a snapshot. It does not
// touch any shared state; the caller applies the result.
func (s *Syncer) Rebuild(ctx context.Context, reason Reason) (*SyncResult, error) {
	started := time.Now()

	overrideRecs, err := s.Remote.FetchOverrides(ctx)
	if err != nil {
		return nil, &booking.RemoteError{Op: "fetch overrides", Err: err}
	}
	overrides := config.OverridesFromRecords(overrideRecs)

	cfgRec, err := s.Remote.FetchLatestConfig(ctx)
	if err != nil {
		return nil, &booking.RemoteError{Op: "fetch config", Err: err}
	}
	var cfg pricing.Config
	if cfgRec == nil {
		cfg = pricing.DefaultConfig()
	} else {
		cfg = config.ParseConfig(cfgRec.Payload)
	}

	reservations, err := s.Remote.FetchReservations(ctx)
	if err != nil {
		return nil, &booking.RemoteError{Op: "fetch reservations", Err: err}
	}

	res := &SyncResult{
		Overrides: overrides,
		Config:    cfg,
		Groups:    map[string]string{},
		Reason:    reason,
		FetchedAt: started,
	}

	if len(reservations) == 0 {
		// Real empty state, not a failure: the cache must clear.
		res.Empty = true
		s.Log.Info().Str("reason", string(reason)).Msg("sync: remote is empty, clearing cache")
		return res, nil
	}

	ids := make([]string, 0, len(reservations))
	codes := make([]string, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
		codes = append(codes, r.Code)
	}

	passengers, err := s.Remote.FetchPassengers(ctx, ids)
	if err != nil {
		return nil, &booking.RemoteError{Op: "fetch passengers", Err: err}
	}
	payments, err := s.Remote.FetchPayments(ctx, codes)
	if err != nil {
		return nil, &booking.RemoteError{Op: "fetch payments", Err: err}
	}

	// Registry view with the freshly fetched overrides, without touching
	// the shared registry before the whole rebuild is known good.
	reg := booking.NewRegistry()
	reg.SetOverrides(overrides)

	byReservation := map[string][]booking.PassengerRecord{}
	for _, p := range passengers {
		byReservation[p.ReservationID] = append(byReservation[p.ReservationID], p)
	}

	// Group numbers: persisted values win, missing ones are backfilled
	// deterministically among reservations that carry passengers.
	sources := make([]booking.GroupSource, 0, len(reservations))
	for _, r := range reservations {
		sources = append(sources, booking.GroupSource{
			Code:          r.Code,
			Created:       r.CreatedAt.UnixMilli(),
			ServiceDate:   r.ServiceDate,
			Group:         r.Group,
			HasPassengers: len(byReservation[r.ID]) > 0,
		})
	}
	res.Groups = booking.AssignGroups(sources)

	for _, r := range reservations {
		season := pricing.Classify(r.ServiceDate, cfg)
		vendorName := reg.Resolve(r.VendorKey).Name
		group := res.Groups[r.Code]
		if group == "" {
			group = booking.GroupPlaceholder
		}
		for _, p := range byReservation[r.ID] {
			tour, transportVal, addonVal := pricing.RowValues(p.Category, p.Transport, r.AddonType, p.AddonIncluded, season, cfg)
			row := booking.PassengerRow{
				CreatedAt:      p.CreatedAt,
				Status:         r.Status,
				Vendor:         vendorName,
				Code:           r.Code,
				Group:          group,
				Name:           p.Name,
				Document:       p.Document,
				Nationality:    p.Nationality,
				Phone:          p.Phone,
				Email:          p.Email,
				Category:       p.Category,
				Transport:      p.Transport,
				TourValue:      tour,
				TransportValue: transportVal,
				TourDiscount:   r.TourDiscount,
				Provider:       r.Provider,
				AddonDate:      r.AddonDate,
				AddonValue:     addonVal,
				AddonDiscount:  r.AddonDiscount,
				Notes:          r.Notes,
				ServiceDate:    r.ServiceDate,
			}
			if p.AddonIncluded {
				row.AddonCategory = p.AddonCategory
			}
			res.Passengers = append(res.Passengers, row)
		}
	}

	for _, p := range payments {
		vendor := VendorFromReceipt(p.Receipt)
		if vendor == "" {
			vendor = reg.NameForCode(p.Code)
		}
		res.Payments = append(res.Payments, booking.PaymentRow{
			CreatedAt: p.CreatedAt,
			Vendor:    vendor,
			Code:      p.Code,
			Method:    p.Method,
			Amount:    p.Amount,
			Receipt:   p.Receipt,
		})
	}

	s.Log.Info().
		Str("reason", string(reason)).
		Int("reservations", len(reservations)).
		Int("passengers", len(res.Passengers)).
		Int("payments", len(res.Payments)).
		Dur("took", time.Since(started)).
		Msg("sync: rebuild complete")
	return res, nil
}

// Run consumes the signal stream until the context ends, applying each
// successful rebuild through apply. A failed rebuild is logged and the
// previous cache stays authoritative until the next trigger.
func (s *Syncer) Run(ctx context.Context, sig *RefreshSignal, apply func(*SyncResult)) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-sig.C():
			res, err := s.Rebuild(ctx, reason)
			if err != nil {
				s.Log.Error().Err(err).Str("reason", string(reason)).Msg("sync: rebuild failed, keeping previous cache")
				continue
			}
			apply(res)
		}
	}
}
