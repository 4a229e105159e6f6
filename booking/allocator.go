/*
allocator.go - Lowest-free-number code allocation

PURPOSE:
  Computes the next reservation code for a vendor. A code is the vendor
  prefix followed by a number inside the vendor's allocatable range. The
  occupied set is recomputed from scratch on every call by scanning the
  entire cache plus the retirement ledger, so correctness does not
  depend on any incremental bookkeeping.

OCCUPANCY SOURCES (union):
  1. passenger rows
  2. payment rows
  3. history snapshots
  4. the retirement ledger

TWO-PHASE SELECTION:
  - PreviewNextCode: lowest free number, shown while an operator fills
    in a form. Ignores any previously shown candidate.
  - CommitCode: keeps the previewed candidate if it is still free,
    otherwise silently falls back to the current lowest free number.

SEE ALSO:
  - retired.go: ledger feeding occupancy source 4
  - vendor.go: prefix and range resolution
*/
package booking

import (
	"strconv"
	"strings"
)

// =============================================================================
// OCCUPIED NUMBER SCAN
// =============================================================================

// UsedRange is the per-vendor occupancy snapshot a selection runs against.
type UsedRange struct {
	Prefix  string
	Start   int
	End     int
	Numbers map[int]struct{}
}

// parseSuffix extracts the numeric part of a code for the given prefix.
// Returns false for codes of other vendors and for unparsable suffixes;
// malformed legacy ids are skipped, never fatal.
func parseSuffix(code, prefix string) (int, bool) {
	if prefix == "" || !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(code[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// UsedNumbers scans the cache and the retirement ledger for every number
// already taken under the vendor's prefix. Numbers outside the range are
// included too; they are occupied regardless of current range settings.
func UsedNumbers(reg *Registry, key VendorKey, c *Cache, retired *RetiredSet) UsedRange {
	p := reg.Resolve(key)
	used := UsedRange{
		Prefix:  p.Prefix,
		Start:   p.RangeStart,
		End:     p.RangeEnd,
		Numbers: map[int]struct{}{},
	}

	add := func(code string) {
		if n, ok := parseSuffix(code, p.Prefix); ok {
			used.Numbers[n] = struct{}{}
		}
	}

	for _, row := range c.Passengers {
		add(row.Code)
	}
	for _, row := range c.Payments {
		add(row.Code)
	}
	for _, h := range c.History {
		add(h.Code)
	}
	if retired != nil {
		for _, code := range retired.All() {
			add(code)
		}
	}
	return used
}

// lowestFree returns the smallest free number in [Start, End].
func (u UsedRange) lowestFree() (int, bool) {
	for n := u.Start; n <= u.End; n++ {
		if _, taken := u.Numbers[n]; !taken {
			return n, true
		}
	}
	return 0, false
}

func (u UsedRange) isFree(n int) bool {
	if n < u.Start || n > u.End {
		return false
	}
	_, taken := u.Numbers[n]
	return !taken
}

// =============================================================================
// PREVIEW / COMMIT
// =============================================================================

// PreviewNextCode returns the code an operator would get right now. The
// result is advisory only; nothing is reserved.
func PreviewNextCode(reg *Registry, key VendorKey, c *Cache, retired *RetiredSet) (string, error) {
	used := UsedNumbers(reg, key, c, retired)
	n, ok := used.lowestFree()
	if !ok {
		return "", &RangeExhaustedError{Vendor: key, Prefix: used.Prefix, RangeEnd: used.End}
	}
	return used.Prefix + strconv.Itoa(n), nil
}

// CommitCode finalizes the number at save time. The previewed candidate
// wins if it is still free; a candidate taken in the meantime (or from a
// stale preview) falls back to the current lowest free number. An empty
// candidate behaves like a plain preview.
func CommitCode(reg *Registry, key VendorKey, c *Cache, retired *RetiredSet, candidate string) (string, error) {
	used := UsedNumbers(reg, key, c, retired)

	if n, ok := parseSuffix(candidate, used.Prefix); ok && used.isFree(n) {
		return candidate, nil
	}

	n, ok := used.lowestFree()
	if !ok {
		return "", &RangeExhaustedError{Vendor: key, Prefix: used.Prefix, RangeEnd: used.End}
	}
	return used.Prefix + strconv.Itoa(n), nil
}
