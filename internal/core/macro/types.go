package macro

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

type Kind uint8

const (
	KindAutoClick Kind = iota + 1
	KindBind
)

func (k Kind) String() string {
	switch k {
	case KindAutoClick:
		return "AutoClick"
	case KindBind:
		return "Bind"
	default:
		return "unknown"
	}
}

type Mode uint8

const (
	ModeHold Mode = iota
	ModeToggle
)

func (m Mode) String() string {
	if m == ModeToggle {
		return "TOGGLE"
	}
	return "HOLD"
}

type SuppressPolicy uint8

const (
	SuppressDefault SuppressPolicy = iota
	SuppressKeep
	SuppressDrop
)

// Suppresses reports whether the original event is withheld from the system.
func (p SuppressPolicy) Suppresses() bool {
	return p != SuppressKeep
}

func (p SuppressPolicy) String() string {
	switch p {
	case SuppressKeep:
		return "K"
	case SuppressDrop:
		return "D"
	default:
		return "Default"
	}
}

// MinTick is the finest period the scheduler is asked to run at.
const MinTick = time.Millisecond

// Accepted interval range. Below MinIntervalMs a single tick would have to
// carry more than MaxEmitsPerTick clicks.
const (
	MaxEmitsPerTick = 1000
	MinIntervalMs   = 1.0 / MaxEmitsPerTick
	MaxIntervalMs   = float64(24 * time.Hour / time.Millisecond)
)

// Definition is one parsed rule. It is never modified after parsing.
type Definition struct {
	Kind     Kind
	Mode     Mode
	Suppress SuppressPolicy

	Trigger     keycode.Code
	Target      keycode.Code
	TriggerName string
	TargetName  string

	IntervalMs   float64
	TickInterval time.Duration
	EmitsPerTick int

	// IgnoredInterval is set on Bind rules that carried an interval token.
	IgnoredInterval bool
	Line            int
}

// TickPlan maps a requested interval to a scheduler period and the number of
// emissions per tick that keeps the requested average rate.
// Intervals outside [MinIntervalMs, MaxIntervalMs] are clamped.
func TickPlan(intervalMs float64) (time.Duration, int) {
	switch {
	case intervalMs < MinIntervalMs:
		return MinTick, MaxEmitsPerTick
	case intervalMs < 1:
		return MinTick, min(int(math.Ceil(1/intervalMs)), MaxEmitsPerTick)
	case intervalMs > MaxIntervalMs:
		intervalMs = MaxIntervalMs
	}
	return time.Duration(intervalMs * float64(time.Millisecond)), 1
}

// CPS is the requested clicks per second, rounded.
func (d Definition) CPS() int {
	if d.Kind != KindAutoClick || d.IntervalMs <= 0 {
		return 0
	}
	return int(math.Round(1000 / d.IntervalMs))
}

// ModeLabel is HOLD/TOGGLE for autoclick rules and the suppress flag for binds.
func (d Definition) ModeLabel() string {
	if d.Kind == KindAutoClick {
		return d.Mode.String()
	}
	return d.Suppress.String()
}

func (d Definition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "action=%s mode=%s trigger=%s target=%s",
		d.Kind, d.ModeLabel(), keycode.FormatName(d.Trigger), keycode.FormatName(d.Target))
	if d.Kind == KindAutoClick {
		fmt.Fprintf(&b, " interval=%gms (%d CPS)", d.IntervalMs, d.CPS())
		if d.Suppress != SuppressDefault {
			fmt.Fprintf(&b, " flag=%s", d.Suppress)
		}
	}
	return b.String()
}
