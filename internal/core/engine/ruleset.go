package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/core/macro"
)

type macroState struct {
	def   macro.Definition
	batch []Event

	// bindMu orders target presses against teardown releases.
	bindMu     sync.Mutex
	active     atomic.Bool
	targetHeld atomic.Bool
	emitted    atomic.Uint64

	timer Timer
}

func newMacroState(def macro.Definition) *macroState {
	m := &macroState{def: def}
	if def.Kind == macro.KindAutoClick {
		m.batch = make([]Event, min(max(def.EmitsPerTick, 1), macro.MaxEmitsPerTick))
		for i := range m.batch {
			m.batch[i] = Event{Code: def.Target, Transition: TransitionClick}
		}
	}
	return m
}

// RuleSet is one loaded generation of macros. It is built once, installed
// once and retired once; its macro list never changes.
type RuleSet struct {
	id       uuid.UUID
	source   string
	loadedAt time.Time
	macros   []*macroState
	retired  atomic.Bool
}

func newRuleSet(source string, defs []macro.Definition, now time.Time) *RuleSet {
	set := &RuleSet{
		id:       uuid.New(),
		source:   source,
		loadedAt: now,
		macros:   make([]*macroState, 0, len(defs)),
	}
	for _, def := range defs {
		set.macros = append(set.macros, newMacroState(def))
	}
	return set
}

func (r *RuleSet) ID() string {
	return r.id.String()
}

func (r *RuleSet) Source() string {
	return r.source
}

func (r *RuleSet) LoadedAt() time.Time {
	return r.loadedAt
}

func (r *RuleSet) Len() int {
	return len(r.macros)
}

func (r *RuleSet) Retired() bool {
	return r.retired.Load()
}

func (r *RuleSet) Definitions() []macro.Definition {
	defs := make([]macro.Definition, len(r.macros))
	for i, m := range r.macros {
		defs[i] = m.def
	}
	return defs
}

type MacroStatus struct {
	Definition macro.Definition
	Active     bool
	TargetHeld bool
	Armed      bool
	Emitted    uint64
}

type Snapshot struct {
	RuleSetID    string
	Source       string
	LoadedAt     time.Time
	Paused       bool
	PauseChord   [3]keycode.Code
	EmitFailures uint64
	Macros       []MacroStatus
}

func (r *RuleSet) statuses() []MacroStatus {
	out := make([]MacroStatus, len(r.macros))
	for i, m := range r.macros {
		out[i] = MacroStatus{
			Definition: m.def,
			Active:     m.active.Load(),
			TargetHeld: m.targetHeld.Load(),
			Armed:      m.timer != nil,
			Emitted:    m.emitted.Load(),
		}
	}
	return out
}
