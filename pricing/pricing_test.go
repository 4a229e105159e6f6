package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/pricing"
)

func money(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// =============================================================================
// SEASON CLASSIFICATION
// =============================================================================

func TestClassify_HighAndLowMonths(t *testing.T) {
	cfg := pricing.DefaultConfig()

	assert.Equal(t, pricing.SeasonHigh, pricing.Classify("2026-01-15", cfg))
	assert.Equal(t, pricing.SeasonHigh, pricing.Classify("2026-02-28", cfg))
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("2026-11-05", cfg))
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("2026-04-01", cfg))

	// Months outside both lists default to low.
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("2026-07-10", cfg))
}

func TestClassify_TimezoneSuffixCannotShiftDate(t *testing.T) {
	// GIVEN: a late-evening UTC timestamp on the last day of a high month
	// WHEN: classifying
	// THEN: the typed calendar month is used, never a locally shifted one

	cfg := pricing.DefaultConfig()
	assert.Equal(t, pricing.SeasonHigh, pricing.Classify("2026-02-28T23:00:00Z", cfg))
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("2026-03-01T01:00:00-05:00", cfg))
}

func TestClassify_UnparsableDateIsLow(t *testing.T) {
	cfg := pricing.DefaultConfig()
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("not-a-date", cfg))
	assert.Equal(t, pricing.SeasonLow, pricing.Classify("", cfg))
}

// =============================================================================
// QUOTE COMPUTATION
// =============================================================================

func TestCompute_BasicHighSeason(t *testing.T) {
	// GIVEN: 2 adults + 1 child in January, 2 with transport
	// WHEN: quoting
	// THEN: 2*155000 + 90000 = 400000 tour, 50000 transport

	q := pricing.Compute(pricing.QuoteInput{
		ServiceDate: "2026-01-20",
		Adults:      2,
		Children:    1,
		Transport:   2,
	}, pricing.DefaultConfig())

	assert.Equal(t, pricing.SeasonHigh, q.Season)
	assert.True(t, q.TourSubtotal.Equal(money(400000)))
	assert.True(t, q.Transport.Equal(money(50000)))
	assert.True(t, q.TourTotal.Equal(money(450000)))
	assert.True(t, q.GrandTotal.Equal(money(450000)))
}

func TestCompute_InfantRule(t *testing.T) {
	// GIVEN: 1 adult and 3 infants in low season
	// WHEN: quoting
	// THEN: one infant rides free, the other two bill at the child rate

	q := pricing.Compute(pricing.QuoteInput{
		ServiceDate: "2026-11-10",
		Adults:      1,
		Infants:     3,
	}, pricing.DefaultConfig())

	// 145000 + 2*80000
	assert.True(t, q.TourSubtotal.Equal(money(305000)), "got %s", q.TourSubtotal)
}

func TestCompute_SingleInfantFree(t *testing.T) {
	q := pricing.Compute(pricing.QuoteInput{
		ServiceDate: "2026-11-10",
		Adults:      2,
		Infants:     1,
	}, pricing.DefaultConfig())

	assert.True(t, q.TourSubtotal.Equal(money(290000)))
}

func TestCompute_DiscountClamping(t *testing.T) {
	// GIVEN: discounts larger than the subtotal and negative discounts
	// WHEN: quoting
	// THEN: both are clamped; totals never go negative

	cfg := pricing.DefaultConfig()

	q := pricing.Compute(pricing.QuoteInput{
		ServiceDate:  "2026-11-10",
		Adults:       1,
		TourDiscount: money(999999),
	}, cfg)
	assert.True(t, q.TourDiscount.Equal(money(145000)))
	assert.True(t, q.TourTotal.Equal(decimal.Zero))

	q = pricing.Compute(pricing.QuoteInput{
		ServiceDate:  "2026-11-10",
		Adults:       1,
		TourDiscount: money(-500),
	}, cfg)
	assert.True(t, q.TourDiscount.Equal(decimal.Zero))
}

func TestCompute_AddonIndependentOfSeason(t *testing.T) {
	// The add-on is a flat per-passenger rate; season only moves tour rates.
	cfg := pricing.DefaultConfig()

	high := pricing.Compute(pricing.QuoteInput{
		ServiceDate:   "2026-01-10",
		Adults:        1,
		AddonType:     booking.AddonFM,
		AddonIncluded: 3,
	}, cfg)
	low := pricing.Compute(pricing.QuoteInput{
		ServiceDate:   "2026-11-10",
		Adults:        1,
		AddonType:     booking.AddonFM,
		AddonIncluded: 3,
	}, cfg)

	assert.True(t, high.AddonSubtotal.Equal(money(84000)))
	assert.True(t, low.AddonSubtotal.Equal(high.AddonSubtotal))
}

func TestCompute_AddonDiscountClamped(t *testing.T) {
	q := pricing.Compute(pricing.QuoteInput{
		ServiceDate:   "2026-11-10",
		Adults:        1,
		AddonType:     booking.AddonCM,
		AddonIncluded: 1,
		AddonDiscount: money(50000),
	}, pricing.DefaultConfig())

	assert.True(t, q.AddonDiscount.Equal(money(15000)))
	assert.True(t, q.AddonTotal.Equal(decimal.Zero))
}

// =============================================================================
// PER-ROW VALUES
// =============================================================================

func TestRowValues_RawCategoryRates(t *testing.T) {
	// Per-row values use the raw category rate; the infant rule is a
	// composition concern and never leaks into rows.
	cfg := pricing.DefaultConfig()

	tour, transport, addon := pricing.RowValues(booking.CategoryInfant, true, booking.AddonFM, true, pricing.SeasonHigh, cfg)
	assert.True(t, tour.Equal(decimal.Zero))
	assert.True(t, transport.Equal(money(25000)))
	assert.True(t, addon.Equal(money(28000)))

	tour, transport, addon = pricing.RowValues(booking.CategoryChild, false, booking.AddonFM, false, pricing.SeasonLow, cfg)
	assert.True(t, tour.Equal(money(80000)))
	assert.True(t, transport.Equal(decimal.Zero))
	assert.True(t, addon.Equal(decimal.Zero))
}
