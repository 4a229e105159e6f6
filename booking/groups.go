/*
groups.go - Per-date group numbering

PURPOSE:
  Every reservation that carries passengers on a given service date gets
  a small positive group number, unique within that date. Group numbers
  order the day sheet the operators print each morning.

RULES:
  1. Lowest free positive integer per service date
  2. A persisted group number is never reassigned while its reservation
     still has passengers on that date
  3. Backfill of unnumbered reservations is deterministic: ordered by
     creation time, ties broken by code
  4. Reservations without passengers do not occupy a slot
*/
package booking

import (
	"sort"
	"strconv"
)

// GroupSource is the per-reservation view the assigner works on. Built
// by the sync from remote reservation headers joined with passenger
// counts.
type GroupSource struct {
	Code          string
	Created       int64 // unix millis of the reservation header
	ServiceDate   string
	Group         int // persisted value, 0 = unassigned
	HasPassengers bool
}

// NextGroupForDate returns the display string of the lowest free group
// number on the given date, computed from the cache. Used by the desk to
// stamp rows at commit time before the next sync runs.
func NextGroupForDate(date string, c *Cache) string {
	taken := map[int]struct{}{}
	for _, row := range c.Passengers {
		if row.ServiceDate != date {
			continue
		}
		if n, err := strconv.Atoi(row.Group); err == nil && n > 0 {
			taken[n] = struct{}{}
		}
	}
	n := 1
	for {
		if _, ok := taken[n]; !ok {
			return strconv.Itoa(n)
		}
		n++
	}
}

// AssignGroups resolves group numbers for a full set of reservation
// sources, keyed by code. Persisted numbers are preserved; unnumbered
// reservations with passengers are backfilled in creation order.
func AssignGroups(sources []GroupSource) map[string]string {
	out := make(map[string]string, len(sources))

	byDate := map[string][]GroupSource{}
	for _, s := range sources {
		byDate[s.ServiceDate] = append(byDate[s.ServiceDate], s)
	}

	for _, group := range byDate {
		taken := map[int]struct{}{}

		// Pass 1: persisted numbers keep their slots.
		for _, s := range group {
			if s.Group > 0 && s.HasPassengers {
				taken[s.Group] = struct{}{}
				out[s.Code] = strconv.Itoa(s.Group)
			}
		}

		// Pass 2: deterministic backfill.
		var pending []GroupSource
		for _, s := range group {
			if s.Group <= 0 && s.HasPassengers {
				pending = append(pending, s)
			}
		}
		sort.Slice(pending, func(i, j int) bool {
			if pending[i].Created != pending[j].Created {
				return pending[i].Created < pending[j].Created
			}
			return pending[i].Code < pending[j].Code
		})
		next := 1
		for _, s := range pending {
			for {
				if _, ok := taken[next]; !ok {
					break
				}
				next++
			}
			taken[next] = struct{}{}
			out[s.Code] = strconv.Itoa(next)
		}

		// Empty reservations display the placeholder.
		for _, s := range group {
			if !s.HasPassengers {
				out[s.Code] = GroupPlaceholder
			}
		}
	}
	return out
}
