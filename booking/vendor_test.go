package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciarsur/booking-engine/booking"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// =============================================================================
// RESOLUTION
// =============================================================================

func TestRegistry_OwnerDisplaysAsAdmin(t *testing.T) {
	// GIVEN: no override for the owner key
	// WHEN: resolving
	// THEN: the display name is "Admin", the prefix stays A

	reg := booking.NewRegistry()
	p := reg.Resolve(booking.OwnerKey)
	assert.Equal(t, "Admin", p.Name)
	assert.Equal(t, "A", p.Prefix)

	// An explicit override wins over the owner rule.
	reg.Upsert(booking.OwnerKey, booking.VendorOverride{Name: strPtr("Javier P.")})
	assert.Equal(t, "Javier P.", reg.Resolve(booking.OwnerKey).Name)
}

func TestRegistry_GenericDefaultsForUnknownKey(t *testing.T) {
	// GIVEN: a key with no built-in profile and no override
	// WHEN: resolving
	// THEN: generic defaults apply

	reg := booking.NewRegistry()
	p := reg.Resolve("marta")
	assert.Equal(t, "marta", p.Name)
	assert.Equal(t, "M", p.Prefix)
	assert.Equal(t, 1, p.RangeStart)
	assert.Equal(t, 999, p.RangeEnd)
}

func TestRegistry_OverrideWinsPerField(t *testing.T) {
	// Unset override fields fall through to the built-in value.
	reg := booking.NewRegistry()
	reg.Upsert("vicente", booking.VendorOverride{Prefix: strPtr("V"), RangeEnd: intPtr(500)})

	p := reg.Resolve("vicente")
	assert.Equal(t, "Vicente", p.Name)
	assert.Equal(t, "V", p.Prefix)
	assert.Equal(t, 1, p.RangeStart)
	assert.Equal(t, 500, p.RangeEnd)
}

func TestRegistry_OverrideIntroducesNewVendor(t *testing.T) {
	reg := booking.NewRegistry()
	reg.Upsert("nueva", booking.VendorOverride{Name: strPtr("Nueva"), Prefix: strPtr("N")})

	assert.Contains(t, reg.Keys(), booking.VendorKey("nueva"))
	assert.Equal(t, "N", reg.Resolve("nueva").Prefix)
}

// =============================================================================
// CODE PREFIX LOOKUP
// =============================================================================

func TestRegistry_NameForCode_LongestPrefixWins(t *testing.T) {
	reg := booking.NewRegistry()
	reg.Upsert("anexo", booking.VendorOverride{Name: strPtr("Anexo"), Prefix: strPtr("AX")})

	assert.Equal(t, "Admin", reg.NameForCode("A7"))
	assert.Equal(t, "Anexo", reg.NameForCode("AX7"))
	assert.Equal(t, booking.GroupPlaceholder, reg.NameForCode("Z9"))
	assert.Equal(t, booking.GroupPlaceholder, reg.NameForCode(""))
}

// =============================================================================
// REMOVAL
// =============================================================================

func TestRegistry_RemoveBuiltinRejected(t *testing.T) {
	reg := booking.NewRegistry()
	err := reg.Remove("javier")
	assert.ErrorIs(t, err, booking.ErrBuiltinVendor)
}

func TestRegistry_RemoveAddedVendor(t *testing.T) {
	reg := booking.NewRegistry()
	reg.Upsert("temp", booking.VendorOverride{Prefix: strPtr("T")})

	require.NoError(t, reg.Remove("temp"))
	assert.NotContains(t, reg.Keys(), booking.VendorKey("temp"))

	err := reg.Remove("temp")
	assert.ErrorIs(t, err, booking.ErrVendorNotFound)
}
