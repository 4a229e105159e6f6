/*
Package localstate persists per-station state to a JSON file.

PURPOSE:
  The desk keeps a small amount of state on the local machine: the
  retired-code set, a mirror of the vendor overrides, the last cache
  snapshot for fast startup, and operator preferences (last opened
  code, viewer date, column widths, day comments, hidden months).

  This file is a best-effort cache, never a source of truth. A missing
  or corrupt file opens as a fresh default state; a failed save is
  logged and ignored. The remote store plus the next sync always win.
*/
package localstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/glaciarsur/booking-engine/booking"
)

// State is the full persisted document.
type State struct {
	Retired      []string            `json:"retired"`
	Overrides    booking.OverrideMap `json:"overrides"`
	Cache        booking.Cache       `json:"cache"`
	LastOpened   string              `json:"last_opened_code"`
	ViewerDate   string              `json:"viewer_date"`
	ColumnWidths map[string]int      `json:"column_widths"`
	DayComments  map[string]string   `json:"day_comments"`
	HiddenMonths []string            `json:"hidden_months"`
}

func defaultState() State {
	return State{
		Retired:      []string{},
		Overrides:    booking.OverrideMap{},
		ColumnWidths: map[string]int{},
		DayComments:  map[string]string{},
		HiddenMonths: []string{},
	}
}

// Store owns the file. All access goes through Update/View so the file
// image and the in-memory state never diverge.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
	log   zerolog.Logger
}

// Open loads the state file. A missing or corrupt file yields default
// state; that is normal on first run and after manual cleanup.
func Open(path string, log zerolog.Logger) *Store {
	s := &Store{path: path, state: defaultState(), log: log}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("local state unreadable, starting fresh")
		}
		return s
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("local state corrupt, starting fresh")
		return s
	}
	if st.Overrides == nil {
		st.Overrides = booking.OverrideMap{}
	}
	if st.ColumnWidths == nil {
		st.ColumnWidths = map[string]int{}
	}
	if st.DayComments == nil {
		st.DayComments = map[string]string{}
	}
	s.state = st
	return s
}

// View calls fn with a read-only copy of the state.
func (s *Store) View(fn func(State)) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	fn(st)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update mutates the state under the lock and saves it. The save is
// best effort; a write failure never fails the caller.
func (s *Store) Update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.saveLocked()
}

func (s *Store) saveLocked() {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		s.log.Warn().Err(err).Msg("local state encode failed")
		return
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn().Err(err).Msg("local state dir create failed")
		return
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		s.log.Warn().Err(err).Msg("local state write failed")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn().Err(err).Msg("local state rename failed")
	}
}
