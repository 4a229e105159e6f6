/*
refresher.go - Sync trigger sources

PURPOSE:
  Feeds the reconcile.RefreshSignal from every trigger source: a
  periodic timer, and (when configured) a Redis pub/sub channel that
  carries change notifications between stations. Writes on one station
  publish to the channel; every subscriber resyncs.

DESIGN:
  The refresher never rebuilds anything itself; it only emits onto the
  coalescing signal. Overlapping triggers are therefore free (see
  reconcile: a rebuild is a full snapshot replace).
*/
package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/glaciarsur/booking-engine/reconcile"
)

// Refresher drives periodic and cross-station refresh triggers.
type Refresher struct {
	Signal   *reconcile.RefreshSignal
	Interval time.Duration

	// Optional: change notifications between stations. Nil disables.
	Redis   *redis.Client
	Channel string

	Log zerolog.Logger
}

// Run blocks until the context ends. The first tick fires after one
// interval; startup sync is emitted by the caller.
func (rf *Refresher) Run(ctx context.Context) {
	if rf.Redis != nil {
		go rf.subscribe(ctx)
	}

	interval := rf.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rf.Signal.Emit(reconcile.ReasonTimer)
		}
	}
}

func (rf *Refresher) subscribe(ctx context.Context) {
	sub := rf.Redis.Subscribe(ctx, rf.Channel)
	defer sub.Close()

	rf.Log.Info().Str("channel", rf.Channel).Msg("refresher: subscribed to change notifications")
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Channel():
			if !ok {
				return
			}
			rf.Signal.Emit(reconcile.ReasonRemoteChange)
		}
	}
}

// Notify publishes a change notification for other stations. Best
// effort: a publish failure is logged, never propagated, because the
// local write already succeeded and the timer covers convergence.
func (rf *Refresher) Notify(ctx context.Context) {
	if rf.Redis == nil {
		return
	}
	if err := rf.Redis.Publish(ctx, rf.Channel, "changed").Err(); err != nil {
		rf.Log.Warn().Err(err).Msg("refresher: change notification publish failed")
	}
}
