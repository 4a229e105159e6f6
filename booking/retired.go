/*
retired.go - Retirement ledger: codes that must never be reused

PURPOSE:
  Tracks the set of reservation codes permanently excluded from
  reallocation. A code is retired either explicitly (administrative
  action) or automatically when it becomes an "orphan": payment rows
  exist for it but no passenger rows do, which signals a voided
  reservation whose payment history survives as an audit trail.

CRITICAL INVARIANTS:
  1. MONOTONIC: once retired, a code never leaves the set in normal
     operation
  2. REACTIVE: orphan detection runs on every cache change, not just at
     allocation time, so a freshly voided-but-paid code is poisoned
     immediately
*/
package booking

import (
	"sort"
	"sync"
)

// =============================================================================
// RETIRED SET
// =============================================================================

// RetiredSet holds full code strings (prefix plus number). Persisted
// locally as a JSON string array; see localstate.
type RetiredSet struct {
	mu    sync.RWMutex
	codes map[string]struct{}
}

func NewRetiredSet(codes ...string) *RetiredSet {
	s := &RetiredSet{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		if c != "" {
			s.codes[c] = struct{}{}
		}
	}
	return s
}

// Add retires a code. Adding an already retired code is a no-op.
func (s *RetiredSet) Add(code string) {
	if code == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = struct{}{}
}

func (s *RetiredSet) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[code]
	return ok
}

func (s *RetiredSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// All returns the retired codes sorted, for persistence and display.
func (s *RetiredSet) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// ORPHAN DETECTION
// =============================================================================

// DetectOrphans returns codes that have at least one payment row but no
// passenger rows. Pure query over the cache.
func DetectOrphans(c *Cache) []string {
	withPassengers := make(map[string]struct{}, len(c.Passengers))
	for _, r := range c.Passengers {
		if r.Code != "" {
			withPassengers[r.Code] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	var orphans []string
	for _, p := range c.Payments {
		if p.Code == "" {
			continue
		}
		if _, ok := withPassengers[p.Code]; ok {
			continue
		}
		if _, dup := seen[p.Code]; dup {
			continue
		}
		seen[p.Code] = struct{}{}
		orphans = append(orphans, p.Code)
	}
	sort.Strings(orphans)
	return orphans
}

// RetireOrphans runs orphan detection and adds every result to the set.
// Returns the codes that were newly retired by this pass.
func (s *RetiredSet) RetireOrphans(c *Cache) []string {
	var added []string
	for _, code := range DetectOrphans(c) {
		if !s.Has(code) {
			s.Add(code)
			added = append(added, code)
		}
	}
	return added
}
