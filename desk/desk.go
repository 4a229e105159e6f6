/*
Package desk coordinates the application state for one station.

PURPOSE:
  Owns the local cache, the vendor registry, the retirement ledger and
  the current rate configuration, and exposes the operations the API
  serves: code preview, reservation commit, payments, modification,
  void, vendor administration and viewer queries.

STATE OWNERSHIP:
  The desk is the single writer of the local cache. Sync results are
  applied wholesale through ApplySync; between syncs, write operations
  append optimistically so operators see their own work immediately.
  Allocation never trusts incremental bookkeeping: every preview and
  commit recomputes the occupied set from the current cache snapshot.

SEE ALSO:
  - booking: allocator, registry, retirement ledger
  - reconcile: the sync whose results land in ApplySync
  - localstate: best-effort persistence between restarts
*/
package desk

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/localstate"
	"github.com/glaciarsur/booking-engine/pricing"
	"github.com/glaciarsur/booking-engine/reconcile"
)

// =============================================================================
// DESK
// =============================================================================

type Desk struct {
	mu sync.Mutex

	remote   booking.RemoteStore
	registry *booking.Registry
	retired  *booking.RetiredSet
	local    *localstate.Store
	cache    booking.Cache
	cfg      pricing.Config
	log      zerolog.Logger
}

// New builds a desk seeded from the local state file. The seeded cache
// is stale by definition; the first sync replaces it.
func New(remote booking.RemoteStore, local *localstate.Store, log zerolog.Logger) *Desk {
	d := &Desk{
		remote:   remote,
		registry: booking.NewRegistry(),
		local:    local,
		cfg:      pricing.DefaultConfig(),
		log:      log,
	}
	st := local.Snapshot()
	d.retired = booking.NewRetiredSet(st.Retired...)
	d.registry.SetOverrides(st.Overrides)
	d.cache = st.Cache.Clone()
	d.retired.RetireOrphans(&d.cache)
	return d
}

// Registry exposes the vendor registry for read-side collaborators.
func (d *Desk) Registry() *booking.Registry { return d.registry }

// Snapshot returns a copy of the current cache.
func (d *Desk) Snapshot() booking.Cache {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cache.Clone()
}

// Config returns the active rate configuration.
func (d *Desk) Config() pricing.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// RetiredCodes returns the retirement ledger, sorted.
func (d *Desk) RetiredCodes() []string {
	return d.retired.All()
}

// =============================================================================
// SYNC APPLICATION
// =============================================================================

// ApplySync replaces the cache with a rebuilt snapshot. History is
// local-only and survives the replace. The orphan scan runs after every
// application so voided-but-paid codes are poisoned immediately.
func (d *Desk) ApplySync(res *reconcile.SyncResult) {
	d.mu.Lock()
	d.cache.Passengers = res.Passengers
	d.cache.Payments = res.Payments
	if res.Empty {
		d.cache.Passengers = nil
		d.cache.Payments = nil
	}
	d.cfg = res.Config
	d.registry.SetOverrides(res.Overrides)
	newlyRetired := d.retired.RetireOrphans(&d.cache)
	snapshot := d.cache.Clone()
	d.mu.Unlock()

	if len(newlyRetired) > 0 {
		d.log.Info().Strs("codes", newlyRetired).Msg("desk: retired orphan codes after sync")
	}
	d.persist(snapshot)
}

// persist writes the durable parts of the state to the local file.
func (d *Desk) persist(cache booking.Cache) {
	retired := d.retired.All()
	overrides := d.registry.Overrides()
	d.local.Update(func(st *localstate.State) {
		st.Retired = retired
		st.Overrides = overrides
		st.Cache = cache
	})
}

// =============================================================================
// ALLOCATION QUERIES
// =============================================================================

// PreviewNextCode is the live "next code" header value. Recomputed on
// every call so it reflects reality even after a stale preview.
func (d *Desk) PreviewNextCode(key booking.VendorKey) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return booking.PreviewNextCode(d.registry, key, &d.cache, d.retired)
}

// NextGroupForDate previews the group slot a new booking would take.
func (d *Desk) NextGroupForDate(date string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return booking.NextGroupForDate(date, &d.cache)
}

// RetireCode explicitly poisons a code (administrative action).
func (d *Desk) RetireCode(code string) {
	d.retired.Add(code)
	d.mu.Lock()
	snapshot := d.cache.Clone()
	d.mu.Unlock()
	d.persist(snapshot)
	d.log.Info().Str("code", code).Msg("desk: code retired by operator")
}

// =============================================================================
// VIEWER QUERIES
// =============================================================================

// DaySheet returns the passenger rows for one service date, ordered by
// group then creation time, the way the printed morning sheet lists
// them.
func (d *Desk) DaySheet(date string) []booking.PassengerRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	var rows []booking.PassengerRow
	for _, r := range d.cache.Passengers {
		if r.ServiceDate == date {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Group != rows[j].Group {
			return rows[i].Group < rows[j].Group
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows
}

// History returns the archived voucher snapshots, newest first.
func (d *Desk) History() []booking.HistoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]booking.HistoryEntry, len(d.cache.History))
	copy(out, d.cache.History)
	return out
}

// SetDayComment stores the operator note shown on one day sheet.
func (d *Desk) SetDayComment(date, text string) {
	d.local.Update(func(st *localstate.State) {
		if text == "" {
			delete(st.DayComments, date)
			return
		}
		st.DayComments[date] = text
	})
}

// DayComment returns the note for one date, or "".
func (d *Desk) DayComment(date string) string {
	var out string
	d.local.View(func(st localstate.State) {
		out = st.DayComments[date]
	})
	return out
}

// SetViewerDate remembers the operator's selected day sheet date.
func (d *Desk) SetViewerDate(date string) {
	d.local.Update(func(st *localstate.State) {
		st.ViewerDate = date
	})
}
