/*
Package config parses persisted configuration documents.

PURPOSE:
  Converts raw JSON payloads (the remote append-only config table, the
  local override mirror, the locally persisted retired-code set) into
  typed values. Everything here is corrupt-tolerant: local persistence
  is a best-effort cache, never a required source of truth, so a
  malformed document degrades to its default value instead of failing
  the caller.

KEY FEATURES:
  - ParseConfig: pricing document with per-field defaults, so a partial
    admin document still yields a complete rate table
  - ParseOverrides / OverridesFromRecords: vendor override map from a
    JSON blob or from remote rows
  - ParseOrDefault: generic corrupt-tolerant JSON decode

SEE ALSO:
  - pricing: the Config type parsed here
  - booking/vendor.go: the OverrideMap type parsed here
*/
package config

import (
	"encoding/json"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/pricing"
)

// =============================================================================
// GENERIC CORRUPT-TOLERANT DECODE
// =============================================================================

// ParseOrDefault decodes raw JSON into T, returning def when the
// payload is empty or malformed. The bool reports whether the payload
// decoded cleanly.
func ParseOrDefault[T any](raw []byte, def T) (T, bool) {
	if len(raw) == 0 {
		return def, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return def, false
	}
	return out, true
}

// =============================================================================
// PRICING DOCUMENT
// =============================================================================

// ParseConfig decodes a pricing document with per-field defaults. A
// field missing from the payload keeps its default value, so older
// documents written before a field existed still parse into a complete
// configuration. A malformed payload yields the full default.
func ParseConfig(raw []byte) pricing.Config {
	def := pricing.DefaultConfig()
	if len(raw) == 0 {
		return def
	}

	// Decode over a copy of the defaults: absent fields stay default,
	// present fields win.
	out := def
	if err := json.Unmarshal(raw, &out); err != nil {
		return def
	}
	if len(out.HighMonths) == 0 {
		out.HighMonths = def.HighMonths
	}
	if len(out.LowMonths) == 0 {
		out.LowMonths = def.LowMonths
	}
	if len(out.Providers) == 0 {
		out.Providers = def.Providers
	}
	if len(out.PayMethods) == 0 {
		out.PayMethods = def.PayMethods
	}
	return out
}

// =============================================================================
// VENDOR OVERRIDES
// =============================================================================

// ParseOverrides decodes a persisted override mirror. Corrupt data
// degrades to "no overrides".
func ParseOverrides(raw []byte) booking.OverrideMap {
	m, _ := ParseOrDefault(raw, booking.OverrideMap{})
	if m == nil {
		return booking.OverrideMap{}
	}
	return m
}

// OverridesFromRecords builds an override map from remote rows.
func OverridesFromRecords(recs []booking.OverrideRecord) booking.OverrideMap {
	out := make(booking.OverrideMap, len(recs))
	for _, r := range recs {
		out[r.Key] = r.Override
	}
	return out
}

// ParseRetired decodes a persisted retired-code array. Corrupt data
// degrades to an empty set.
func ParseRetired(raw []byte) []string {
	codes, _ := ParseOrDefault(raw, []string{})
	return codes
}
