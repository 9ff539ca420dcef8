package macro

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

var (
	ErrSyntax          = errors.New("syntax error")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrUnknownFlag     = errors.New("unknown flag")
	ErrUnresolvedName  = errors.New("unresolved key name")
	ErrMissingInterval = errors.New("autoclick rule needs an interval")
	ErrInvalidInterval = errors.New("interval must be a positive number")
	ErrIntervalRange   = fmt.Errorf("%w in range", ErrInvalidInterval)
)

// ParseError locates a rejected rule. Col is 1-based and points at the token
// that failed.
type ParseError struct {
	Line int
	Col  int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, col %d: %v", e.Line, e.Col, e.Err)
	}
	return fmt.Sprintf("col %d: %v", e.Col, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns single rule lines into definitions. Comments must already be
// stripped.
type Parser struct {
	resolver *keycode.Resolver
}

func NewParser(resolver *keycode.Resolver) *Parser {
	return &Parser{resolver: resolver}
}

type lineScanner struct {
	src string
	pos int
}

func (s *lineScanner) skipSpace() {
	for s.pos < len(s.src) && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

func (s *lineScanner) peek(c byte) bool {
	s.skipSpace()
	return s.pos < len(s.src) && s.src[s.pos] == c
}

func (s *lineScanner) fail(at int, err error) error {
	return &ParseError{Col: at + 1, Err: err}
}

// delimited reads open ... close and returns the trimmed content plus the
// column where the token started.
func (s *lineScanner) delimited(open, close byte, what string) (string, int, error) {
	s.skipSpace()
	start := s.pos
	if s.pos >= len(s.src) || s.src[s.pos] != open {
		return "", start, s.fail(start, fmt.Errorf("%w: expected %c before %s", ErrSyntax, open, what))
	}
	end := strings.IndexByte(s.src[s.pos+1:], close)
	if end < 0 {
		return "", start, s.fail(start, fmt.Errorf("%w: unterminated %s", ErrSyntax, what))
	}
	value := strings.TrimSpace(s.src[s.pos+1 : s.pos+1+end])
	s.pos += end + 2
	return value, start, nil
}

func (s *lineScanner) bracket(what string) (string, int, error) {
	return s.delimited('[', ']', what)
}

func (s *lineScanner) quoted(what string) (string, int, error) {
	return s.delimited('"', '"', what)
}

func parseMode(value string) (Mode, bool) {
	switch strings.ToLower(value) {
	case "hold", "":
		return ModeHold, true
	case "toggle":
		return ModeToggle, true
	}
	return 0, false
}

func parseFlag(value string) (SuppressPolicy, bool) {
	switch strings.ToLower(value) {
	case "k", "keep":
		return SuppressKeep, true
	case "d", "drop":
		return SuppressDrop, true
	}
	return 0, false
}

// Parse reads one rule:
//
//	[action] [mode]? [flag]? "trigger" "target" [interval]?
//
// Mode is only read for AutoClick rules. A flag word in the mode position of
// an AutoClick rule is taken as the flag.
func (p *Parser) Parse(line string) (Definition, error) {
	var def Definition
	s := &lineScanner{src: line}

	action, at, err := s.bracket("action")
	if err != nil {
		return def, err
	}
	switch strings.ToLower(action) {
	case "autoclick":
		def.Kind = KindAutoClick
	case "bind":
		def.Kind = KindBind
	default:
		return def, s.fail(at, fmt.Errorf("%w %q", ErrUnknownAction, action))
	}

	flagSeen := false
	if def.Kind == KindAutoClick && s.peek('[') {
		value, at, err := s.bracket("mode")
		if err != nil {
			return def, err
		}
		if mode, ok := parseMode(value); ok {
			def.Mode = mode
		} else if flag, ok := parseFlag(value); ok {
			def.Suppress = flag
			flagSeen = true
		} else {
			return def, s.fail(at, fmt.Errorf("%w %q", ErrUnknownMode, value))
		}
	}

	if !flagSeen && s.peek('[') {
		value, at, err := s.bracket("flag")
		if err != nil {
			return def, err
		}
		flag, ok := parseFlag(value)
		if !ok {
			return def, s.fail(at, fmt.Errorf("%w %q", ErrUnknownFlag, value))
		}
		def.Suppress = flag
	}

	trigger, triggerAt, err := s.quoted("trigger")
	if err != nil {
		return def, err
	}
	target, targetAt, err := s.quoted("target")
	if err != nil {
		return def, err
	}

	hasInterval := false
	intervalAt := 0
	var intervalText string
	if s.peek('[') {
		intervalText, intervalAt, err = s.bracket("interval")
		if err != nil {
			return def, err
		}
		hasInterval = true
	}

	s.skipSpace()
	if s.pos < len(s.src) {
		return def, s.fail(s.pos, fmt.Errorf("%w: unexpected %q", ErrSyntax, s.src[s.pos:]))
	}

	code, ok := p.resolver.Resolve(trigger)
	if !ok {
		return def, s.fail(triggerAt, fmt.Errorf("%w %q", ErrUnresolvedName, trigger))
	}
	def.Trigger, def.TriggerName = code, trigger

	code, ok = p.resolver.Resolve(target)
	if !ok {
		return def, s.fail(targetAt, fmt.Errorf("%w %q", ErrUnresolvedName, target))
	}
	def.Target, def.TargetName = code, target

	if def.Kind == KindBind {
		def.IgnoredInterval = hasInterval
		return def, nil
	}

	if !hasInterval {
		return def, s.fail(len(line), ErrMissingInterval)
	}
	interval, err := strconv.ParseFloat(intervalText, 64)
	if err != nil || math.IsNaN(interval) || math.IsInf(interval, 0) || interval <= 0 {
		return def, s.fail(intervalAt, fmt.Errorf("%w: %q", ErrInvalidInterval, intervalText))
	}
	if interval < MinIntervalMs || interval > MaxIntervalMs {
		return def, s.fail(intervalAt, fmt.Errorf("%w: %q is outside %g..%g ms", ErrIntervalRange, intervalText, MinIntervalMs, MaxIntervalMs))
	}
	def.IntervalMs = interval
	def.TickInterval, def.EmitsPerTick = TickPlan(interval)
	return def, nil
}
