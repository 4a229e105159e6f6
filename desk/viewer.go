/*
viewer.go - Month totals and operator preferences

PURPOSE:
  The aggregate queries behind the monthly overview and the persisted
  per-station viewer preferences (last opened code, column widths,
  hidden months). Preferences are convenience state: lost preferences
  cost nothing but a re-click, so everything here is best effort.
*/
package desk

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/localstate"
)

// =============================================================================
// MONTH TOTALS
// =============================================================================

// DayTotal is one service date's aggregate inside a month summary.
type DayTotal struct {
	Date         string          `json:"date"`
	Reservations int             `json:"reservations"`
	Passengers   int             `json:"passengers"`
	Gross        decimal.Decimal `json:"gross"`
}

// MonthSummary aggregates one calendar month of service dates. Gross is
// the sum of row values (tour, transport, add-on) before discounts;
// Paid sums every payment against that month's codes.
type MonthSummary struct {
	Month        string          `json:"month"` // YYYY-MM
	Days         []DayTotal      `json:"days"`
	Reservations int             `json:"reservations"`
	Passengers   int             `json:"passengers"`
	Gross        decimal.Decimal `json:"gross"`
	Paid         decimal.Decimal `json:"paid"`
}

// MonthSummary computes the per-day and whole-month totals for one
// YYYY-MM month from the current cache.
func (d *Desk) MonthSummary(month string) MonthSummary {
	prefix := month + "-"

	d.mu.Lock()
	defer d.mu.Unlock()

	out := MonthSummary{Month: month, Gross: decimal.Zero, Paid: decimal.Zero}

	byDate := map[string]*DayTotal{}
	codesByDate := map[string]map[string]struct{}{}
	monthCodes := map[string]struct{}{}

	for _, r := range d.cache.Passengers {
		if !strings.HasPrefix(r.ServiceDate, prefix) {
			continue
		}
		day := byDate[r.ServiceDate]
		if day == nil {
			day = &DayTotal{Date: r.ServiceDate, Gross: decimal.Zero}
			byDate[r.ServiceDate] = day
			codesByDate[r.ServiceDate] = map[string]struct{}{}
		}
		day.Passengers++
		day.Gross = day.Gross.Add(r.TourValue).Add(r.TransportValue).Add(r.AddonValue)
		codesByDate[r.ServiceDate][r.Code] = struct{}{}
		monthCodes[r.Code] = struct{}{}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day := byDate[date]
		day.Reservations = len(codesByDate[date])
		out.Days = append(out.Days, *day)
		out.Passengers += day.Passengers
		out.Reservations += day.Reservations
		out.Gross = out.Gross.Add(day.Gross)
	}

	for _, p := range d.cache.Payments {
		if _, ok := monthCodes[p.Code]; ok {
			out.Paid = out.Paid.Add(p.Amount)
		}
	}
	return out
}

// =============================================================================
// OPERATOR PREFERENCES
// =============================================================================

// Preferences is the persisted per-station viewer state. ViewerDate and
// LastOpened are written by the viewer and summary flows; the rest is
// edited directly through SetPreferences.
type Preferences struct {
	ViewerDate   string            `json:"viewer_date"`
	LastOpened   string            `json:"last_opened_code"`
	ColumnWidths map[string]int    `json:"column_widths"`
	HiddenMonths []string          `json:"hidden_months"`
	DayComments  map[string]string `json:"day_comments"`
}

// Preferences returns the current viewer preferences.
func (d *Desk) Preferences() Preferences {
	var out Preferences
	d.local.View(func(st localstate.State) {
		out = Preferences{
			ViewerDate:   st.ViewerDate,
			LastOpened:   st.LastOpened,
			ColumnWidths: st.ColumnWidths,
			HiddenMonths: st.HiddenMonths,
			DayComments:  st.DayComments,
		}
	})
	if out.ColumnWidths == nil {
		out.ColumnWidths = map[string]int{}
	}
	if out.HiddenMonths == nil {
		out.HiddenMonths = []string{}
	}
	if out.DayComments == nil {
		out.DayComments = map[string]string{}
	}
	return out
}

// SetPreferences replaces the editable preference fields. ViewerDate,
// LastOpened and day comments are owned by their flows and ignored here.
func (d *Desk) SetPreferences(p Preferences) {
	d.local.Update(func(st *localstate.State) {
		if p.ColumnWidths != nil {
			st.ColumnWidths = p.ColumnWidths
		}
		if p.HiddenMonths != nil {
			st.HiddenMonths = p.HiddenMonths
		}
	})
}

// SetLastOpened remembers the code the operator last pulled up.
func (d *Desk) SetLastOpened(code string) {
	d.local.Update(func(st *localstate.State) {
		st.LastOpened = code
	})
}
