package localstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/localstate"
)

func TestOpen_MissingFileStartsFresh(t *testing.T) {
	s := localstate.Open(filepath.Join(t.TempDir(), "nope", "state.json"), zerolog.Nop())
	st := s.Snapshot()
	assert.Empty(t, st.Retired)
	assert.NotNil(t, st.Overrides)
	assert.NotNil(t, st.DayComments)
}

func TestOpen_CorruptFileStartsFresh(t *testing.T) {
	// GIVEN: a truncated state file
	// WHEN: opening
	// THEN: default state, no error; the file is a cache, not truth

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"retired": ["A1"`), 0o644))

	s := localstate.Open(path, zerolog.Nop())
	assert.Empty(t, s.Snapshot().Retired)
}

func TestUpdate_SaveAndReload(t *testing.T) {
	// GIVEN: a state mutated through Update
	// WHEN: reopening the same path
	// THEN: every persisted field round-trips

	path := filepath.Join(t.TempDir(), "deep", "state.json")

	s := localstate.Open(path, zerolog.Nop())
	s.Update(func(st *localstate.State) {
		st.Retired = []string{"A1", "B3"}
		st.ViewerDate = "2026-01-10"
		st.DayComments["2026-01-10"] = "marea alta"
		st.Cache.Passengers = append(st.Cache.Passengers, booking.PassengerRow{
			Code: "A1", Name: "Ana", ServiceDate: "2026-01-10",
		})
	})

	reopened := localstate.Open(path, zerolog.Nop())
	st := reopened.Snapshot()
	assert.Equal(t, []string{"A1", "B3"}, st.Retired)
	assert.Equal(t, "2026-01-10", st.ViewerDate)
	assert.Equal(t, "marea alta", st.DayComments["2026-01-10"])
	require.Len(t, st.Cache.Passengers, 1)
	assert.Equal(t, "Ana", st.Cache.Passengers[0].Name)
}

func TestView_ReadOnlyCopy(t *testing.T) {
	s := localstate.Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	s.Update(func(st *localstate.State) { st.ViewerDate = "2026-02-01" })

	var got string
	s.View(func(st localstate.State) { got = st.ViewerDate })
	assert.Equal(t, "2026-02-01", got)
}
