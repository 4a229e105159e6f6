/*
quote.go - Composition-level quote computation

PURPOSE:
  Turns a reservation composition (counts per category, transport
  count, add-on selection, discounts) into the full monetary breakdown
  shown on the voucher. This is where the cross-cutting infant rule and
  discount clamping live; per-category rates stay a plain lookup.
*/
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/booking"
)

// QuoteInput is a reservation composition. Counts, never rows; the
// caller derives them from its form or cache state.
type QuoteInput struct {
	ServiceDate string
	Adults      int
	Children    int
	Infants     int
	Transport   int // passengers with the transport flag

	TourDiscount decimal.Decimal

	AddonType     booking.AddonType
	AddonIncluded int // passengers taking the add-on
	AddonDate     string
	AddonDiscount decimal.Decimal
}

// Quote is the full monetary breakdown for one reservation.
type Quote struct {
	Season Season
	Rates  Rates

	TourSubtotal  decimal.Decimal
	TourDiscount  decimal.Decimal
	Transport     decimal.Decimal
	TourTotal     decimal.Decimal
	AddonSubtotal decimal.Decimal
	AddonDiscount decimal.Decimal
	AddonTotal    decimal.Decimal
	GrandTotal    decimal.Decimal
}

// clampDiscount bounds a discount to [0, subtotal].
func clampDiscount(d, subtotal decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// Compute builds the quote. At most one infant is billed at the infant
// rate; extra infants are billed at the child rate, regardless of
// input ordering. Discounts are clamped so no total goes negative.
func Compute(in QuoteInput, cfg Config) Quote {
	season := Classify(in.ServiceDate, cfg)
	rates := cfg.RatesFor(season)

	freeInfants := in.Infants
	if freeInfants > 1 {
		freeInfants = 1
	}
	paidInfants := in.Infants - freeInfants

	tourSubtotal := rates.Adult.Mul(decimal.NewFromInt(int64(in.Adults))).
		Add(rates.Child.Mul(decimal.NewFromInt(int64(in.Children + paidInfants)))).
		Add(rates.Infant.Mul(decimal.NewFromInt(int64(freeInfants))))

	tourDiscount := clampDiscount(in.TourDiscount, tourSubtotal)
	transport := cfg.Transport.Mul(decimal.NewFromInt(int64(in.Transport)))
	tourTotal := tourSubtotal.Sub(tourDiscount).Add(transport)

	addonSubtotal := cfg.AddonRate(in.AddonType).Mul(decimal.NewFromInt(int64(in.AddonIncluded)))
	addonDiscount := clampDiscount(in.AddonDiscount, addonSubtotal)
	addonTotal := addonSubtotal.Sub(addonDiscount)

	return Quote{
		Season:        season,
		Rates:         rates,
		TourSubtotal:  tourSubtotal,
		TourDiscount:  tourDiscount,
		Transport:     transport,
		TourTotal:     tourTotal,
		AddonSubtotal: addonSubtotal,
		AddonDiscount: addonDiscount,
		AddonTotal:    addonTotal,
		GrandTotal:    tourTotal.Add(addonTotal),
	}
}

// RowValues returns the per-row monetary fields for one passenger in a
// composition: the raw category tour rate, the transport value when the
// flag is set, and the flat add-on value when included. The infant rule
// does not apply per row.
func RowValues(category booking.Category, transport bool, addon booking.AddonType, addonIncluded bool, season Season, cfg Config) (tour, transportVal, addonVal decimal.Decimal) {
	rates := cfg.RatesFor(season)
	tour = rates.ByCategory(category)
	if transport {
		transportVal = cfg.Transport
	} else {
		transportVal = decimal.Zero
	}
	if addonIncluded {
		addonVal = cfg.AddonRate(addon)
	} else {
		addonVal = decimal.Zero
	}
	return tour, transportVal, addonVal
}
