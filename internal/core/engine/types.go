package engine

import (
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

type Transition uint8

const (
	TransitionUp Transition = iota
	TransitionDown
	// TransitionClick is a down immediately followed by an up. Wheel codes
	// only ever use it.
	TransitionClick
)

func (t Transition) String() string {
	switch t {
	case TransitionUp:
		return "up"
	case TransitionDown:
		return "down"
	case TransitionClick:
		return "click"
	default:
		return "unknown"
	}
}

type Event struct {
	Code       keycode.Code
	Transition Transition
	Injected   bool
}

const DefaultPauseDebounce = 500 * time.Millisecond

func DefaultPauseChord() [3]keycode.Code {
	return [3]keycode.Code{keycode.VK8, keycode.VK9, keycode.VK0}
}

type Config struct {
	Scheduler     Scheduler
	PauseChord    [3]keycode.Code
	PauseDebounce time.Duration
	StartPaused   bool
	Clock         func() time.Time
}

type Injector interface {
	WriteEvents(events ...Event) error
	Close() error
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
