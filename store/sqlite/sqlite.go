/*
Package sqlite provides the SQLite-backed remote store.

PURPOSE:
  Implements booking.RemoteStore using SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  reservations:     One header per committed reservation
  passengers:       Travelers, bulk-replaced by the modification flow
  payments:         Append-only movement log keyed by code, not by
                    reservation id, so it survives reservation deletion
  vendor_overrides: Per-vendor profile overrides (admin-edited)
  config_admin:     Append-only configuration documents, newest wins

ATOMICITY:
  Commit and replace run inside one database transaction: a reservation
  header never lands without its passenger rows. The UNIQUE index on
  reservations.code is the last line of defense against two stations
  committing the same code in the same instant.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/remote.go: Interface definition
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/booking"
)

// Store implements booking.RemoteStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		vendor_key TEXT NOT NULL,
		service_date TEXT NOT NULL,
		group_number INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		tour_discount TEXT NOT NULL DEFAULT '0',
		addon_type TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		addon_date TEXT NOT NULL DEFAULT '',
		addon_discount TEXT NOT NULL DEFAULT '0',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Two stations must never share one code.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_code
		ON reservations(code);
	CREATE INDEX IF NOT EXISTS idx_reservations_service_date
		ON reservations(service_date);

	CREATE TABLE IF NOT EXISTS passengers (
		id TEXT PRIMARY KEY,
		reservation_id TEXT NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		document TEXT NOT NULL DEFAULT '',
		nationality TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		transport BOOLEAN NOT NULL DEFAULT FALSE,
		addon_included BOOLEAN NOT NULL DEFAULT FALSE,
		addon_category TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_passengers_reservation
		ON passengers(reservation_id);

	-- Payments reference codes, not reservation ids: they are the audit
	-- trail that outlives a voided reservation.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		method TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		receipt TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_code
		ON payments(code);

	CREATE TABLE IF NOT EXISTS vendor_overrides (
		vendor_key TEXT PRIMARY KEY,
		name TEXT,
		prefix TEXT,
		range_start INTEGER,
		range_end INTEGER
	);

	CREATE TABLE IF NOT EXISTS config_admin (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_config_admin_updated
		ON config_admin(updated_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FETCHES
// =============================================================================

// FetchReservations returns every reservation header, oldest first.
func (s *Store) FetchReservations(ctx context.Context) ([]booking.ReservationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, code, vendor_key, service_date, group_number, status,
		       tour_discount, addon_type, provider, addon_date, addon_discount,
		       notes, created_at
		FROM reservations
		ORDER BY created_at ASC, code ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []booking.ReservationRecord
	for rows.Next() {
		var r booking.ReservationRecord
		var tourDiscount, addonDiscount, createdAt string
		if err := rows.Scan(
			&r.ID, &r.Code, &r.VendorKey, &r.ServiceDate, &r.Group, &r.Status,
			&tourDiscount, &r.AddonType, &r.Provider, &r.AddonDate, &addonDiscount,
			&r.Notes, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		r.TourDiscount = parseDecimal(tourDiscount)
		r.AddonDiscount = parseDecimal(addonDiscount)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// FetchPassengers returns the travelers of the given reservations.
func (s *Store) FetchPassengers(ctx context.Context, reservationIDs []string) ([]booking.PassengerRecord, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, reservation_id, name, document, nationality, phone, email,
		       category, transport, addon_included, addon_category, created_at
		FROM passengers
		WHERE reservation_id IN (` + placeholders(len(reservationIDs)) + `)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(reservationIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query passengers: %w", err)
	}
	defer rows.Close()

	var out []booking.PassengerRecord
	for rows.Next() {
		var p booking.PassengerRecord
		var createdAt string
		if err := rows.Scan(
			&p.ID, &p.ReservationID, &p.Name, &p.Document, &p.Nationality,
			&p.Phone, &p.Email, &p.Category, &p.Transport, &p.AddonIncluded,
			&p.AddonCategory, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan passenger: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// FetchPayments returns payment movements for the given codes.
func (s *Store) FetchPayments(ctx context.Context, codes []string) ([]booking.PaymentRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, code, method, amount, receipt, created_at
		FROM payments
		WHERE code IN (` + placeholders(len(codes)) + `)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(codes)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]booking.PaymentRecord, error) {
	var out []booking.PaymentRecord
	for rows.Next() {
		var p booking.PaymentRecord
		var amount, createdAt string
		if err := rows.Scan(&p.ID, &p.Code, &p.Method, &amount, &p.Receipt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = parseDecimal(amount)
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// WRITES
// =============================================================================

// CommitReservation writes a header with its passengers and any initial
// payments in one database transaction. The unique code index rejects a
// concurrent claim of the same code; the whole bundle rolls back.
func (s *Store) CommitReservation(ctx context.Context, b booking.ReservationBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := insertReservation(ctx, sqlTx, b.Reservation); err != nil {
		return err
	}
	for _, p := range b.Passengers {
		if err := insertPassenger(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	for _, p := range b.Payments {
		if err := insertPayment(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// ReplaceReservation updates the header identified by code and swaps
// its passenger rows, atomically. The stored id and creation time are
// preserved.
func (s *Store) ReplaceReservation(ctx context.Context, b booking.ReservationBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var id string
	err = sqlTx.QueryRowContext(ctx,
		"SELECT id FROM reservations WHERE code = ?", b.Reservation.Code,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("reservation with code %s not found", b.Reservation.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to look up reservation: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE reservations
		SET vendor_key = ?, service_date = ?, group_number = ?, status = ?,
		    tour_discount = ?, addon_type = ?, provider = ?, addon_date = ?,
		    addon_discount = ?, notes = ?
		WHERE id = ?`,
		b.Reservation.VendorKey, b.Reservation.ServiceDate, b.Reservation.Group,
		b.Reservation.Status, b.Reservation.TourDiscount.String(),
		b.Reservation.AddonType, b.Reservation.Provider, b.Reservation.AddonDate,
		b.Reservation.AddonDiscount.String(), b.Reservation.Notes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM passengers WHERE reservation_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear passengers: %w", err)
	}
	for _, p := range b.Passengers {
		p.ReservationID = id
		if err := insertPassenger(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	for _, p := range b.Payments {
		if err := insertPayment(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// DeleteReservationByCode removes the header and its passengers.
// Payment rows for the code are deliberately kept.
func (s *Store) DeleteReservationByCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var id string
	err = sqlTx.QueryRowContext(ctx,
		"SELECT id FROM reservations WHERE code = ?", code,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("reservation with code %s not found", code)
	}
	if err != nil {
		return fmt.Errorf("failed to look up reservation: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM passengers WHERE reservation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete passengers: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return sqlTx.Commit()
}

// InsertPayment appends one payment movement.
func (s *Store) InsertPayment(ctx context.Context, p booking.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPayment(ctx, s.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReservation(ctx context.Context, db execer, r booking.ReservationRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reservations
		(id, code, vendor_key, service_date, group_number, status,
		 tour_discount, addon_type, provider, addon_date, addon_discount,
		 notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Code, r.VendorKey, r.ServiceDate, r.Group, r.Status,
		r.TourDiscount.String(), r.AddonType, r.Provider, r.AddonDate,
		r.AddonDiscount.String(), r.Notes, formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("code %s already committed: %w", r.Code, err)
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func insertPassenger(ctx context.Context, db execer, p booking.PassengerRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO passengers
		(id, reservation_id, name, document, nationality, phone, email,
		 category, transport, addon_included, addon_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ReservationID, p.Name, p.Document, p.Nationality, p.Phone,
		p.Email, p.Category, p.Transport, p.AddonIncluded, p.AddonCategory,
		formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert passenger: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, db execer, p booking.PaymentRecord) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, code, method, amount, receipt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Code, p.Method, p.Amount.String(), p.Receipt, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// =============================================================================
// VENDOR OVERRIDES
// =============================================================================

// FetchOverrides returns the vendor override mirror.
func (s *Store) FetchOverrides(ctx context.Context) ([]booking.OverrideRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT vendor_key, name, prefix, range_start, range_end
		FROM vendor_overrides ORDER BY vendor_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var out []booking.OverrideRecord
	for rows.Next() {
		var key string
		var name, prefix sql.NullString
		var rangeStart, rangeEnd sql.NullInt64
		if err := rows.Scan(&key, &name, &prefix, &rangeStart, &rangeEnd); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		rec := booking.OverrideRecord{Key: booking.VendorKey(key)}
		if name.Valid {
			v := name.String
			rec.Override.Name = &v
		}
		if prefix.Valid {
			v := prefix.String
			rec.Override.Prefix = &v
		}
		if rangeStart.Valid {
			v := int(rangeStart.Int64)
			rec.Override.RangeStart = &v
		}
		if rangeEnd.Valid {
			v := int(rangeEnd.Int64)
			rec.Override.RangeEnd = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertOverride inserts or replaces one override row.
func (s *Store) UpsertOverride(ctx context.Context, rec booking.OverrideRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_overrides (vendor_key, name, prefix, range_start, range_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(vendor_key) DO UPDATE SET
			name = excluded.name,
			prefix = excluded.prefix,
			range_start = excluded.range_start,
			range_end = excluded.range_end`,
		rec.Key,
		nullStringPtr(rec.Override.Name),
		nullStringPtr(rec.Override.Prefix),
		nullIntPtr(rec.Override.RangeStart),
		nullIntPtr(rec.Override.RangeEnd),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}
	return nil
}

// DeleteOverride removes one override row.
func (s *Store) DeleteOverride(ctx context.Context, key booking.VendorKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM vendor_overrides WHERE vendor_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// FetchLatestConfig returns the newest configuration document, or
// (nil, nil) when none has ever been saved.
func (s *Store) FetchLatestConfig(ctx context.Context) (*booking.ConfigRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec       booking.ConfigRecord
		payload   string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, payload, updated_at FROM config_admin
		ORDER BY updated_at DESC, id DESC LIMIT 1`,
	).Scan(&rec.ID, &payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	rec.Payload = []byte(payload)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// AppendConfig stores a new configuration document.
func (s *Store) AppendConfig(ctx context.Context, rec booking.ConfigRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_admin (id, payload, updated_at) VALUES (?, ?, ?)`,
		rec.ID, string(rec.Payload), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append config: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStringPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullIntPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
