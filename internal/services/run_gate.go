package services

import (
	"errors"
	"sync/atomic"
)

// ErrProcessBusy is returned when a run is requested while another is active
var ErrProcessBusy = errors.New("process already running")

// RunGate admits one process run at a time
type RunGate struct {
	busy atomic.Bool
}

// TryAcquire claims the gate. The returned release func must be called
// exactly once when the run ends.
func (g *RunGate) TryAcquire() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrProcessBusy
	}
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			g.busy.Store(false)
		}
	}, nil
}

// Busy reports whether a run is active
func (g *RunGate) Busy() bool {
	return g.busy.Load()
}
