/*
admin.go - Vendor and configuration administration

PURPOSE:
  Admin edits to the vendor override table and the global rate
  configuration. The remote table is the source of truth; the registry
  and the local mirror are updated optimistically and re-converge on
  the next sync.
*/
package desk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/pricing"
)

// Vendors resolves every known vendor profile.
func (d *Desk) Vendors() []booking.VendorProfile {
	return d.registry.Profiles()
}

// UpsertVendor inserts or edits an override. Keys without a built-in
// profile introduce a new vendor.
func (d *Desk) UpsertVendor(ctx context.Context, key booking.VendorKey, ov booking.VendorOverride) (*RemoteStatus, error) {
	if key == "" {
		return nil, &booking.ValidationError{Messages: []string{"vendor key is required"}}
	}
	d.registry.Upsert(key, ov)
	d.mu.Lock()
	cacheCopy := d.cache.Clone()
	d.mu.Unlock()
	d.persist(cacheCopy)

	if err := d.remote.UpsertOverride(ctx, booking.OverrideRecord{Key: key, Override: ov}); err != nil {
		d.log.Error().Err(err).Str("vendor", string(key)).Msg("desk: override saved locally but failed remotely")
		return &RemoteStatus{RemoteErr: (&booking.RemoteError{Op: "upsert override", Err: err}).Error()}, nil
	}
	d.log.Info().Str("vendor", string(key)).Msg("desk: vendor override saved")
	return &RemoteStatus{RemoteSaved: true}, nil
}

// RemoveVendor deletes an admin-added vendor. Built-in vendors are
// rejected; they can only be overridden.
func (d *Desk) RemoveVendor(ctx context.Context, key booking.VendorKey) (*RemoteStatus, error) {
	if err := d.registry.Remove(key); err != nil {
		return nil, err
	}
	d.mu.Lock()
	cacheCopy := d.cache.Clone()
	d.mu.Unlock()
	d.persist(cacheCopy)

	if err := d.remote.DeleteOverride(ctx, key); err != nil {
		d.log.Error().Err(err).Str("vendor", string(key)).Msg("desk: override removed locally but failed remotely")
		return &RemoteStatus{RemoteErr: (&booking.RemoteError{Op: "delete override", Err: err}).Error()}, nil
	}
	d.log.Info().Str("vendor", string(key)).Msg("desk: vendor removed")
	return &RemoteStatus{RemoteSaved: true}, nil
}

// SetConfig appends a new configuration document remotely and activates
// it locally. Older documents stay in the table for audit; the most
// recent one wins on the next sync.
func (d *Desk) SetConfig(ctx context.Context, cfg pricing.Config) (*RemoteStatus, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, &booking.ValidationError{Messages: []string{"configuration does not encode: " + err.Error()}}
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	rec := booking.ConfigRecord{
		ID:        uuid.NewString(),
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	if err := d.remote.AppendConfig(ctx, rec); err != nil {
		d.log.Error().Err(err).Msg("desk: config activated locally but failed remotely")
		return &RemoteStatus{RemoteErr: (&booking.RemoteError{Op: "append config", Err: err}).Error()}, nil
	}
	d.log.Info().Msg("desk: configuration updated")
	return &RemoteStatus{RemoteSaved: true}, nil
}
