/*
vendor.go - Vendor registry: built-in profiles merged with overrides

PURPOSE:
  Resolves a vendor key to its display name, code prefix and allocatable
  numeric range. A fixed built-in table seeds the registry; an override
  map (mirrored from the remote vendor_overrides table) wins per field.
  Keys with no built-in entry get generic defaults, so admin-added
  vendors work without code changes.

MERGE RULES:
  - override field set     -> override wins
  - override field unset   -> built-in value
  - no built-in entry      -> {name: key, prefix: first char uppercased,
                               range 1..999}
  - the owner key displays as "Admin" unless explicitly overridden

FAILURE:
  Corrupt persisted override data degrades to "no overrides" upstream
  (see config.ParseOverrides); this file only ever sees a valid map.
*/
package booking

import (
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// PROFILES AND OVERRIDES
// =============================================================================

// VendorProfile is the resolved identity of a salesperson.
type VendorProfile struct {
	Key        VendorKey `json:"key"`
	Name       string    `json:"name"`
	Prefix     string    `json:"prefix"`
	RangeStart int       `json:"range_start"`
	RangeEnd   int       `json:"range_end"`
}

// VendorOverride is a partial profile; nil fields fall through to the
// built-in (or generic) value.
type VendorOverride struct {
	Name       *string `json:"name,omitempty"`
	Prefix     *string `json:"prefix,omitempty"`
	RangeStart *int    `json:"range_start,omitempty"`
	RangeEnd   *int    `json:"range_end,omitempty"`
}

// OverrideMap is keyed by vendor key. Keys absent from the built-in table
// introduce new vendors.
type OverrideMap map[VendorKey]VendorOverride

// OwnerKey is the built-in vendor reserved for the system owner. It is
// displayed as "Admin" unless an explicit override renames it.
const OwnerKey VendorKey = "javier"

// builtinVendors is the default seed table. Allocation logic never
// enumerates this directly; it always goes through the registry.
func builtinVendors() map[VendorKey]VendorProfile {
	return map[VendorKey]VendorProfile{
		"javier":  {Key: "javier", Name: "Javier", Prefix: "A", RangeStart: 1, RangeEnd: 1000},
		"vicente": {Key: "vicente", Name: "Vicente", Prefix: "B", RangeStart: 1, RangeEnd: 1000},
		"eli":     {Key: "eli", Name: "Eli", Prefix: "C", RangeStart: 1, RangeEnd: 1000},
		"otro":    {Key: "otro", Name: "Otro", Prefix: "D", RangeStart: 1, RangeEnd: 1000},
	}
}

// IsBuiltin reports whether the key has a built-in profile.
func IsBuiltin(key VendorKey) bool {
	_, ok := builtinVendors()[key]
	return ok
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry resolves vendor keys. Reads are pure; the override map is
// replaced wholesale when the remote mirror refreshes.
type Registry struct {
	mu        sync.RWMutex
	overrides OverrideMap
}

func NewRegistry() *Registry {
	return &Registry{overrides: OverrideMap{}}
}

// SetOverrides replaces the override map (remote mirror refresh).
func (r *Registry) SetOverrides(m OverrideMap) {
	if m == nil {
		m = OverrideMap{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = m
}

// Overrides returns a copy of the current override map.
func (r *Registry) Overrides() OverrideMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(OverrideMap, len(r.overrides))
	for k, v := range r.overrides {
		out[k] = v
	}
	return out
}

// Resolve merges built-in, owner rule, and overrides for one key.
func (r *Registry) Resolve(key VendorKey) VendorProfile {
	r.mu.RLock()
	ov, hasOv := r.overrides[key]
	r.mu.RUnlock()

	base, hasBase := builtinVendors()[key]
	if hasBase {
		// Owner rename applies only when no explicit override exists.
		if key == OwnerKey && !hasOv {
			base.Name = "Admin"
		}
		return applyOverride(base, ov)
	}

	generic := VendorProfile{
		Key:        key,
		Name:       string(key),
		Prefix:     upperFirst(string(key)),
		RangeStart: 1,
		RangeEnd:   999,
	}
	return applyOverride(generic, ov)
}

func applyOverride(p VendorProfile, ov VendorOverride) VendorProfile {
	if ov.Name != nil && *ov.Name != "" {
		p.Name = *ov.Name
	}
	if ov.Prefix != nil && *ov.Prefix != "" {
		p.Prefix = *ov.Prefix
	}
	if ov.RangeStart != nil {
		p.RangeStart = *ov.RangeStart
	}
	if ov.RangeEnd != nil {
		p.RangeEnd = *ov.RangeEnd
	}
	return p
}

func upperFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1])
}

// Keys returns every known vendor key (built-ins plus override-introduced
// vendors), sorted for deterministic iteration.
func (r *Registry) Keys() []VendorKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[VendorKey]struct{}{}
	for k := range builtinVendors() {
		seen[k] = struct{}{}
	}
	for k := range r.overrides {
		seen[k] = struct{}{}
	}

	keys := make([]VendorKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Profiles resolves every known vendor.
func (r *Registry) Profiles() []VendorProfile {
	keys := r.Keys()
	out := make([]VendorProfile, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.Resolve(k))
	}
	return out
}

// NameForCode resolves the display name of the vendor whose prefix
// matches the code. Longest prefix wins so single-letter and multi-letter
// prefixes can coexist. Returns "—" when nothing matches.
func (r *Registry) NameForCode(code string) string {
	if code == "" {
		return GroupPlaceholder
	}
	bestLen := -1
	bestName := ""
	for _, key := range r.Keys() {
		p := r.Resolve(key)
		if p.Prefix == "" {
			continue
		}
		if strings.HasPrefix(code, p.Prefix) && len(p.Prefix) > bestLen {
			bestLen = len(p.Prefix)
			bestName = p.Name
		}
	}
	if bestName == "" {
		return GroupPlaceholder
	}
	return bestName
}

// Upsert inserts or replaces an override entry (admin edit flow).
func (r *Registry) Upsert(key VendorKey, ov VendorOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[key] = ov
}

// Remove deletes an override entry. Removing a built-in vendor is
// rejected; removing an added vendor deletes it entirely.
func (r *Registry) Remove(key VendorKey) error {
	if IsBuiltin(key) {
		return ErrBuiltinVendor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.overrides[key]; !ok {
		return ErrVendorNotFound
	}
	delete(r.overrides, key)
	return nil
}
