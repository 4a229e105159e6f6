// Package store provides an in-memory RemoteStore for tests and dev.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/glaciarsur/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	reservations map[string]booking.ReservationRecord // by id
	passengers   map[string][]booking.PassengerRecord // by reservation id
	payments     []booking.PaymentRecord
	overrides    map[booking.VendorKey]booking.VendorOverride
	configs      []booking.ConfigRecord

	// Failure injection for sync atomicity tests. A non-nil hook fails
	// the corresponding fetch.
	FailReservations error
	FailPassengers   error
	FailPayments     error
}

func NewMemory() *Memory {
	return &Memory{
		reservations: map[string]booking.ReservationRecord{},
		passengers:   map[string][]booking.PassengerRecord{},
		overrides:    map[booking.VendorKey]booking.VendorOverride{},
	}
}

func (m *Memory) FetchReservations(_ context.Context) ([]booking.ReservationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReservations != nil {
		return nil, m.FailReservations
	}
	out := make([]booking.ReservationRecord, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (m *Memory) FetchPassengers(_ context.Context, reservationIDs []string) ([]booking.PassengerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailPassengers != nil {
		return nil, m.FailPassengers
	}
	var out []booking.PassengerRecord
	for _, id := range reservationIDs {
		out = append(out, m.passengers[id]...)
	}
	return out, nil
}

func (m *Memory) FetchPayments(_ context.Context, codes []string) ([]booking.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailPayments != nil {
		return nil, m.FailPayments
	}
	want := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		want[c] = struct{}{}
	}
	var out []booking.PaymentRecord
	for _, p := range m.payments {
		if _, ok := want[p.Code]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// AllPayments returns every payment row regardless of code. Orphan
// payments are visible here even after their reservation is gone.
func (m *Memory) AllPayments() []booking.PaymentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.PaymentRecord, len(m.payments))
	copy(out, m.payments)
	return out
}

func (m *Memory) CommitReservation(_ context.Context, b booking.ReservationBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.Code == b.Reservation.Code {
			return fmt.Errorf("code %s already committed", b.Reservation.Code)
		}
	}
	m.reservations[b.Reservation.ID] = b.Reservation
	m.passengers[b.Reservation.ID] = append([]booking.PassengerRecord{}, b.Passengers...)
	m.payments = append(m.payments, b.Payments...)
	return nil
}

func (m *Memory) ReplaceReservation(_ context.Context, b booking.ReservationBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reservations {
		if r.Code != b.Reservation.Code {
			continue
		}
		updated := b.Reservation
		updated.ID = id
		updated.CreatedAt = r.CreatedAt
		m.reservations[id] = updated

		pax := make([]booking.PassengerRecord, len(b.Passengers))
		copy(pax, b.Passengers)
		for i := range pax {
			pax[i].ReservationID = id
		}
		m.passengers[id] = pax
		m.payments = append(m.payments, b.Payments...)
		return nil
	}
	return fmt.Errorf("reservation with code %s not found", b.Reservation.Code)
}

func (m *Memory) DeleteReservationByCode(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.reservations {
		if r.Code == code {
			delete(m.reservations, id)
			delete(m.passengers, id)
			return nil
		}
	}
	return fmt.Errorf("reservation with code %s not found", code)
}

func (m *Memory) InsertPayment(_ context.Context, p booking.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
	return nil
}

func (m *Memory) FetchOverrides(_ context.Context) ([]booking.OverrideRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.OverrideRecord, 0, len(m.overrides))
	for k, ov := range m.overrides {
		out = append(out, booking.OverrideRecord{Key: k, Override: ov})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) UpsertOverride(_ context.Context, rec booking.OverrideRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[rec.Key] = rec.Override
	return nil
}

func (m *Memory) DeleteOverride(_ context.Context, key booking.VendorKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, key)
	return nil
}

func (m *Memory) FetchLatestConfig(_ context.Context) (*booking.ConfigRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.configs) == 0 {
		return nil, nil
	}
	latest := m.configs[0]
	for _, c := range m.configs[1:] {
		if c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	out := latest
	out.Payload = append([]byte{}, latest.Payload...)
	return &out, nil
}

func (m *Memory) AppendConfig(_ context.Context, rec booking.ConfigRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = append(m.configs, rec)
	return nil
}
