package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/core/macro"
)

const chordComplete uint32 = 0b111

// Service matches input events against the live rule set and drives
// autoclick timers. HandleEvent and the timer callbacks only touch atomics.
type Service struct {
	cfg      Config
	injector Injector
	logger   Logger
	pause    *PauseController

	current   atomic.Pointer[RuleSet]
	installMu sync.Mutex

	chordBits    atomic.Uint32
	emitFailures atomic.Uint64

	stopped  atomic.Bool
	stopOnce sync.Once
}

func NewService(cfg Config, injector Injector, logger Logger) (*Service, error) {
	if injector == nil {
		return nil, errors.New("injector is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.PauseChord == ([3]keycode.Code{}) {
		cfg.PauseChord = DefaultPauseChord()
	}
	if cfg.PauseDebounce < 0 {
		return nil, fmt.Errorf("pause debounce must not be negative: %v", cfg.PauseDebounce)
	}
	for i, code := range cfg.PauseChord {
		if _, ok := keycode.DetectCode(code); !ok {
			return nil, fmt.Errorf("pause chord key %d is not detectable", code)
		}
		for _, prev := range cfg.PauseChord[:i] {
			if prev == code {
				return nil, fmt.Errorf("pause chord repeats key %d", code)
			}
		}
	}

	s := &Service{
		cfg:      cfg,
		injector: injector,
		logger:   logger,
		pause:    NewPauseController(cfg.PauseDebounce, cfg.StartPaused),
	}
	s.current.Store(newRuleSet("", nil, cfg.Clock()))
	return s, nil
}

// HandleEvent processes one physical input and reports whether it should be
// suppressed.
func (s *Service) HandleEvent(ev Event) bool {
	if ev.Injected || s.stopped.Load() {
		return false
	}
	if s.trackChord(ev) {
		return true
	}
	if s.pause.Paused() {
		return false
	}

	set := s.current.Load()
	if set == nil || set.retired.Load() {
		return false
	}

	down := ev.Transition != TransitionUp
	suppress := false
	for _, m := range set.macros {
		if !keycode.Matches(m.def.Trigger, ev.Code) {
			continue
		}

		switch m.def.Kind {
		case macro.KindAutoClick:
			if m.def.Mode == macro.ModeHold {
				m.active.Store(down)
			} else if down {
				toggleFlag(&m.active)
			}
		case macro.KindBind:
			s.mirrorBind(set, m, down)
		}

		if m.def.Suppress.Suppresses() {
			suppress = true
		}
	}
	return suppress
}

func toggleFlag(flag *atomic.Bool) {
	for {
		old := flag.Load()
		if flag.CompareAndSwap(old, !old) {
			return
		}
	}
}

func (s *Service) mirrorBind(set *RuleSet, m *macroState, down bool) {
	if !down {
		s.releaseBind(m)
		return
	}
	m.bindMu.Lock()
	defer m.bindMu.Unlock()
	// Teardown and pause set their flag before releasing.
	if set.retired.Load() || s.pause.Paused() {
		return
	}
	if m.targetHeld.CompareAndSwap(false, true) {
		s.emit(Event{Code: m.def.Target, Transition: TransitionDown})
	}
}

func (s *Service) releaseBind(m *macroState) {
	m.bindMu.Lock()
	defer m.bindMu.Unlock()
	if m.targetHeld.CompareAndSwap(true, false) {
		s.emit(Event{Code: m.def.Target, Transition: TransitionUp})
	}
}

// trackChord records pause chord key state and reports whether ev completed
// a chord that toggled the pause state.
func (s *Service) trackChord(ev Event) bool {
	if ev.Transition == TransitionClick {
		return false
	}
	for i, code := range s.cfg.PauseChord {
		if !keycode.Matches(code, ev.Code) {
			continue
		}
		bit := uint32(1) << i
		for {
			old := s.chordBits.Load()
			next := old &^ bit
			if ev.Transition == TransitionDown {
				next = old | bit
			}
			if s.chordBits.CompareAndSwap(old, next) {
				break
			}
		}
	}

	if ev.Transition != TransitionDown || s.chordBits.Load() != chordComplete {
		return false
	}
	if !s.pause.OnChordComplete(s.cfg.Clock()) {
		return false
	}
	s.afterPauseChange(s.pause.Paused(), "chord")
	return true
}

func (s *Service) afterPauseChange(paused bool, source string) {
	if paused {
		s.quiesce(s.current.Load())
		s.logger.Info("macros paused", "source", source)
		return
	}
	s.logger.Info("macros resumed", "source", source)
}

// quiesce clears every autoclick and releases every held bind target.
func (s *Service) quiesce(set *RuleSet) {
	if set == nil {
		return
	}
	for _, m := range set.macros {
		switch m.def.Kind {
		case macro.KindAutoClick:
			m.active.Store(false)
		case macro.KindBind:
			s.releaseBind(m)
		}
	}
}

func (s *Service) tick(set *RuleSet, m *macroState) {
	if set.retired.Load() || s.pause.Paused() || !m.active.Load() {
		return
	}
	s.emit(m.batch...)
	m.emitted.Add(uint64(len(m.batch)))
}

func (s *Service) emit(events ...Event) {
	if err := s.injector.WriteEvents(events...); err != nil {
		failures := s.emitFailures.Add(1)
		if failures == 1 {
			s.logger.Warn("synthetic input failed", "error", err)
			return
		}
		s.logger.Debug("synthetic input failed", "error", err, "failures", failures)
	}
}

// Install replaces the live rule set. The previous set is retired, its timers
// are stopped and its held outputs released before the new set's timers are
// armed; the pointer swap is the last step.
func (s *Service) Install(source string, defs []macro.Definition) *RuleSet {
	s.installMu.Lock()
	defer s.installMu.Unlock()

	next := newRuleSet(source, defs, s.cfg.Clock())
	if s.stopped.Load() {
		return next
	}

	if prev := s.current.Load(); prev != nil {
		s.teardown(prev)
	}

	for _, m := range next.macros {
		m := m
		if m.def.Kind != macro.KindAutoClick {
			continue
		}
		timer, err := s.cfg.Scheduler.Every(m.def.TickInterval, func() {
			s.tick(next, m)
		})
		if err != nil {
			s.logger.Error("autoclick timer unavailable", "line", m.def.Line, "rule", m.def.String(), "error", err)
			continue
		}
		m.timer = timer
	}

	s.current.Store(next)
	s.logger.Info("rule set installed", "id", next.ID(), "source", source, "macros", len(next.macros))
	return next
}

func (s *Service) teardown(set *RuleSet) {
	set.retired.Store(true)
	for _, m := range set.macros {
		if m.timer != nil {
			m.timer.Stop()
		}
	}
	s.quiesce(set)
}

func (s *Service) Current() *RuleSet {
	return s.current.Load()
}

func (s *Service) Paused() bool {
	return s.pause.Paused()
}

// Pause reports whether the state changed.
func (s *Service) Pause() bool {
	if !s.pause.ForcePause() {
		return false
	}
	s.afterPauseChange(true, "command")
	return true
}

// Resume reports whether the state changed.
func (s *Service) Resume() bool {
	if !s.pause.ForceResume() {
		return false
	}
	s.afterPauseChange(false, "command")
	return true
}

// TogglePause returns the new paused state.
func (s *Service) TogglePause() bool {
	paused := s.pause.Toggle()
	s.afterPauseChange(paused, "command")
	return paused
}

func (s *Service) Snapshot() Snapshot {
	set := s.current.Load()
	return Snapshot{
		RuleSetID:    set.ID(),
		Source:       set.Source(),
		LoadedAt:     set.LoadedAt(),
		Paused:       s.pause.Paused(),
		PauseChord:   s.cfg.PauseChord,
		EmitFailures: s.emitFailures.Load(),
		Macros:       set.statuses(),
	}
}

// Stop tears down the live rule set, releasing anything still held, and
// closes the injector.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.installMu.Lock()
		s.stopped.Store(true)
		if set := s.current.Load(); set != nil {
			s.teardown(set)
		}
		s.installMu.Unlock()

		if err := s.injector.Close(); err != nil {
			s.logger.Warn("close injector", "error", err)
		}
	})
}
