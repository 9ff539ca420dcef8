package engine

import (
	"sync/atomic"
	"time"
)

// PauseController holds the process-wide paused flag. Chord toggles are
// debounced; forced changes are not.
type PauseController struct {
	debounce   time.Duration
	paused     atomic.Bool
	lastToggle atomic.Int64
}

func NewPauseController(debounce time.Duration, startPaused bool) *PauseController {
	p := &PauseController{debounce: debounce}
	p.paused.Store(startPaused)
	return p
}

func (p *PauseController) Paused() bool {
	return p.paused.Load()
}

// OnChordComplete flips the paused flag unless the previous chord toggle was
// less than the debounce interval ago.
func (p *PauseController) OnChordComplete(now time.Time) bool {
	stamp := now.UnixNano()
	last := p.lastToggle.Load()
	if last != 0 && stamp-last < int64(p.debounce) {
		return false
	}
	if !p.lastToggle.CompareAndSwap(last, stamp) {
		return false
	}
	p.Toggle()
	return true
}

// Toggle flips the flag and returns the new state.
func (p *PauseController) Toggle() bool {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// ForcePause reports whether the state changed.
func (p *PauseController) ForcePause() bool {
	return p.paused.CompareAndSwap(false, true)
}

// ForceResume reports whether the state changed.
func (p *PauseController) ForceResume() bool {
	return p.paused.CompareAndSwap(true, false)
}
