// Package sensor is the geolocation collaborator. Positions arrive as an
// asynchronous callback stream; the core treats each callback as one
// serialized move event and keeps the handle so tracking can be stopped
// deterministically.
package sensor

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrUnavailable is returned when no position source is configured. The
// caller disables its sensor toggle and carries on.
var ErrUnavailable = errors.New("position source unavailable")

// Update is one position fix.
type Update struct {
	Lat float64
	Lng float64
}

// Handle cancels an active watch. Stop is idempotent.
type Handle interface {
	Stop()
}

// Source starts a watch that delivers fixes to onUpdate until stopped.
// Delivery errors go to onError; a source whose stream ends on its own
// reports io.EOF there so the owner can release its handle.
type Source interface {
	Watch(onUpdate func(Update), onError func(error)) (Handle, error)
}

// Replay feeds a recorded track at a fixed interval. It stands in for a
// real positioning device in development and tests.
type Replay struct {
	track    [][2]float64
	interval time.Duration
}

// NewReplay creates a replay source. The track is played once, in order.
func NewReplay(track [][2]float64, interval time.Duration) *Replay {
	return &Replay{track: track, interval: interval}
}

// Watch starts playing the track. Returns ErrUnavailable for an empty
// track so callers treat it like a missing device.
func (r *Replay) Watch(onUpdate func(Update), onError func(error)) (Handle, error) {
	if len(r.track) == 0 {
		return nil, ErrUnavailable
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for _, p := range r.track {
			select {
			case <-done:
				return
			case <-ticker.C:
				onUpdate(Update{Lat: p[0], Lng: p[1]})
			}
		}
		// Track played out: tell the owner the stream is over.
		if onError != nil {
			onError(io.EOF)
		}
	}()
	return &replayHandle{done: done}, nil
}

type replayHandle struct {
	once sync.Once
	done chan struct{}
}

func (h *replayHandle) Stop() {
	h.once.Do(func() { close(h.done) })
}
