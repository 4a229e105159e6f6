/*
Package pricing computes seasonal tour prices.

PURPOSE:
  Pure functions from (service date, passenger composition, rate
  configuration) to monetary subtotals. Nothing here touches the remote
  store; the rate configuration is injected by the caller and the most
  recent admin document wins.

KEY CONCEPTS:
  - Season: high or low, derived from the calendar month of the service
    date. Month extraction is string-based so a timezone suffix can
    never shift the calendar date.
  - Rates: per-category tour rate table, one per season.
  - Infant rule: at most one infant per reservation travels free; extra
    infants are billed at the child rate. This is a composition-level
    rule, so it lives in the quote, not in the per-category lookup.

SEE ALSO:
  - quote.go: composition-level quote computation
  - booking: category and add-on types
*/
package pricing

import (
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/booking"
)

// =============================================================================
// SEASONS AND RATES
// =============================================================================

type Season string

const (
	SeasonHigh Season = "high"
	SeasonLow  Season = "low"
)

// Rates is the per-category tour rate table for one season.
type Rates struct {
	Adult  decimal.Decimal `json:"adult"`
	Child  decimal.Decimal `json:"child"`
	Infant decimal.Decimal `json:"infant"`
}

// ByCategory looks up the raw rate for one passenger in isolation. The
// infant rule is applied at quote level, not here.
func (r Rates) ByCategory(c booking.Category) decimal.Decimal {
	switch c {
	case booking.CategoryAdult:
		return r.Adult
	case booking.CategoryChild:
		return r.Child
	case booking.CategoryInfant:
		return r.Infant
	}
	return decimal.Zero
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config is the global pricing document. Stored as an append-only JSON
// payload in the remote config table; most recent row wins.
type Config struct {
	HighMonths []int `json:"high_months"`
	LowMonths  []int `json:"low_months"`

	HighRates Rates `json:"high_rates"`
	LowRates  Rates `json:"low_rates"`

	Transport decimal.Decimal `json:"transport"` // per passenger with the flag

	// Flat per-passenger add-on rates by tier.
	AddonFM decimal.Decimal `json:"addon_fm"`
	AddonCM decimal.Decimal `json:"addon_cm"`

	Providers  []string `json:"providers"`
	PayMethods []string `json:"pay_methods"`
}

// DefaultConfig returns the built-in rate table used until an admin
// document exists.
func DefaultConfig() Config {
	return Config{
		HighMonths: []int{1, 2},
		LowMonths:  []int{10, 11, 12, 3, 4},
		HighRates: Rates{
			Adult:  decimal.NewFromInt(155000),
			Child:  decimal.NewFromInt(90000),
			Infant: decimal.Zero,
		},
		LowRates: Rates{
			Adult:  decimal.NewFromInt(145000),
			Child:  decimal.NewFromInt(80000),
			Infant: decimal.Zero,
		},
		Transport:  decimal.NewFromInt(25000),
		AddonFM:    decimal.NewFromInt(28000),
		AddonCM:    decimal.NewFromInt(15000),
		Providers:  []string{"Catamarán", "Lancha"},
		PayMethods: []string{"Efectivo", "Transferencia", "Tarjeta", "WebPay"},
	}
}

// RatesFor returns the tour rate table for a season.
func (c Config) RatesFor(s Season) Rates {
	if s == SeasonHigh {
		return c.HighRates
	}
	return c.LowRates
}

// AddonRate returns the flat per-passenger rate for an add-on tier.
func (c Config) AddonRate(t booking.AddonType) decimal.Decimal {
	switch t {
	case booking.AddonFM:
		return c.AddonFM
	case booking.AddonCM:
		return c.AddonCM
	}
	return decimal.Zero
}

// =============================================================================
// SEASON CLASSIFICATION
// =============================================================================

// isoDatePrefix matches the leading YYYY-MM-DD of a date string,
// tolerating any time-of-day or timezone suffix after it.
var isoDatePrefix = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// Classify maps a service date to its season. The month is extracted
// from the string itself; a trailing timezone marker cannot shift the
// calendar date the operator typed.
func Classify(date string, cfg Config) Season {
	month := 0
	if m := isoDatePrefix.FindStringSubmatch(date); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil {
			month = n
		}
	} else if t, err := time.Parse("2006-01-02", date); err == nil {
		month = int(t.Month())
	}
	for _, hm := range cfg.HighMonths {
		if hm == month {
			return SeasonHigh
		}
	}
	return SeasonLow
}
