package keycode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// KeyMap maps lower-cased symbolic names to codes. Entries take precedence
// over the built-in name tables.
type KeyMap map[string]Code

// LoadKeyMap reads "name = code" lines. Blank lines and everything after '#'
// or ';' are ignored; lines that do not parse are skipped and counted. A later
// definition of the same name replaces an earlier one.
func LoadKeyMap(r io.Reader) (KeyMap, int, error) {
	keyMap := make(KeyMap)
	skipped := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			skipped++
			continue
		}
		if fields := strings.Fields(value); len(fields) > 0 {
			value = fields[0]
		}

		code, err := parseNumeric(value)
		if err != nil {
			skipped++
			continue
		}
		keyMap[name] = code
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading key map: %w", err)
	}
	return keyMap, skipped, nil
}

// LoadKeyMapFile opens path and loads it with LoadKeyMap.
func LoadKeyMapFile(path string) (KeyMap, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening key map: %w", err)
	}
	defer f.Close()
	return LoadKeyMap(f)
}

// Resolver turns symbolic names from rule files into codes.
type Resolver struct {
	mu     sync.RWMutex
	keyMap KeyMap
}

func NewResolver(keyMap KeyMap) *Resolver {
	return &Resolver{keyMap: keyMap}
}

// SetKeyMap replaces the external key map used as the first lookup stage.
func (r *Resolver) SetKeyMap(keyMap KeyMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyMap = keyMap
}

// KeyMapSize reports how many external entries are loaded.
func (r *Resolver) KeyMapSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keyMap)
}

// Resolve looks name up in the key map, the mouse aliases, the named keys,
// the F1-F24 shorthand, single letters and digits, and finally as a decimal
// or 0x-prefixed integer, in that order.
func (r *Resolver) Resolve(name string) (Code, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, false
	}

	r.mu.RLock()
	code, ok := r.keyMap[n]
	r.mu.RUnlock()
	if ok {
		return code, true
	}

	if code, ok := mouseAliases[n]; ok {
		return code, true
	}
	if code, ok := namedKeys[n]; ok {
		return code, true
	}

	if len(n) >= 2 && n[0] == 'f' {
		if fn, err := strconv.Atoi(n[1:]); err == nil {
			if code, ok := FunctionKey(fn); ok {
				return code, true
			}
		}
	}

	if len(n) == 1 {
		c := n[0]
		switch {
		case c >= 'a' && c <= 'z':
			return Code(c - 'a' + 'A'), true
		case c >= '0' && c <= '9':
			return Code(c), true
		}
	}

	if code, err := parseNumeric(n); err == nil {
		return code, true
	}
	return 0, false
}

func parseNumeric(value string) (Code, error) {
	parsed, err := strconv.ParseInt(value, 0, 32)
	if err != nil {
		return 0, err
	}
	if parsed < 0 || parsed > 0xFFFF {
		return 0, fmt.Errorf("code out of range: %d", parsed)
	}
	return Code(parsed), nil
}

// DetectCode maps a configured code to the code the input stream reports for
// it. Wheel directions and zero have no held state and are not detectable.
func DetectCode(code Code) (Code, bool) {
	switch code {
	case MouseLeft:
		return VKLButton, true
	case MouseRight:
		return VKRButton, true
	case WheelUp, WheelDown, 0:
		return 0, false
	default:
		return code, true
	}
}

// Matches reports whether an observed code fires a trigger. The generic
// modifier codes also match the left/right variants hooks report.
func Matches(trigger, observed Code) bool {
	detect, ok := DetectCode(trigger)
	if !ok {
		return false
	}
	if detect == observed {
		return true
	}
	switch detect {
	case VKShift:
		return observed == VKLShift || observed == VKRShift
	case VKControl:
		return observed == VKLControl || observed == VKRControl
	case VKMenu:
		return observed == VKLMenu || observed == VKRMenu
	}
	return false
}

// ParseChord resolves a '+'-separated list of exactly three names.
func (r *Resolver) ParseChord(value string) ([3]Code, error) {
	var chord [3]Code
	parts := strings.Split(value, "+")
	if len(parts) != len(chord) {
		return chord, fmt.Errorf("pause chord %q must name exactly 3 keys", value)
	}
	for i, part := range parts {
		code, ok := r.Resolve(part)
		if !ok {
			return chord, fmt.Errorf("pause chord %q: unknown key %q", value, strings.TrimSpace(part))
		}
		if _, detectable := DetectCode(code); !detectable {
			return chord, fmt.Errorf("pause chord %q: %q cannot be held", value, strings.TrimSpace(part))
		}
		for _, prev := range chord[:i] {
			if prev == code {
				return chord, fmt.Errorf("pause chord %q repeats %q", value, strings.TrimSpace(part))
			}
		}
		chord[i] = code
	}
	return chord, nil
}
