/*
signal.go - Refresh signal stream

PURPOSE:
  Every trigger that should cause a cache rebuild (startup, a periodic
  timer, a remote change notification, a manual refresh) emits onto one
  stream. The sync loop is the only subscriber. Emissions coalesce: a
  rebuild already pending absorbs further triggers, which is safe
  because a rebuild is a full snapshot replace, not a patch.
*/
package reconcile

// Reason identifies what triggered a rebuild, for logging only.
type Reason string

const (
	ReasonStartup      Reason = "startup"
	ReasonTimer        Reason = "timer"
	ReasonRemoteChange Reason = "remote-change"
	ReasonManual       Reason = "manual"
)

// RefreshSignal is a coalescing single-slot trigger stream.
type RefreshSignal struct {
	ch chan Reason
}

func NewRefreshSignal() *RefreshSignal {
	return &RefreshSignal{ch: make(chan Reason, 1)}
}

// Emit requests a rebuild. Never blocks; if a rebuild is already
// pending the new trigger is dropped and the pending run covers it.
func (s *RefreshSignal) Emit(r Reason) {
	select {
	case s.ch <- r:
	default:
	}
}

// C is the subscriber side.
func (s *RefreshSignal) C() <-chan Reason {
	return s.ch
}
