package keycode

import (
	"strings"
	"testing"
)

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewResolver(nil)

	for _, pair := range [][2]string{
		{"LMB", "lmb"},
		{"Space", "SPACE"},
		{"F6", "f6"},
		{"Mouse_Middle", "mmb"},
		{"q", "Q"},
	} {
		a, okA := r.Resolve(pair[0])
		b, okB := r.Resolve(pair[1])
		if !okA || !okB {
			t.Fatalf("Resolve(%q/%q) not found", pair[0], pair[1])
		}
		if a != b {
			t.Fatalf("Resolve(%q) = %d, Resolve(%q) = %d", pair[0], a, pair[1], b)
		}
	}
}

func TestResolveOrder(t *testing.T) {
	tests := []struct {
		name string
		want Code
	}{
		{"lmb", MouseLeft},
		{"mouse2", MouseRight},
		{"mouse4", Mouse4},
		{"mousewheel_down", WheelDown},
		{"enter", VKReturn},
		{"capslock", VKCapital},
		{"f1", VKF1},
		{"f24", VKF24},
		{"a", VKA},
		{"7", VK7},
		{"65", VKA},
		{"0x41", VKA},
	}

	r := NewResolver(nil)
	for _, tc := range tests {
		got, ok := r.Resolve(tc.name)
		if !ok {
			t.Fatalf("Resolve(%q) not found", tc.name)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q) = %#x, want %#x", tc.name, got, tc.want)
		}
	}
}

func TestResolveRejectsUnknownNames(t *testing.T) {
	r := NewResolver(nil)
	for _, name := range []string{"", "  ", "f0", "f25", "notakey", "-1", "0x10000", "12abc"} {
		if code, ok := r.Resolve(name); ok {
			t.Fatalf("Resolve(%q) = %d, want not found", name, code)
		}
	}
}

func TestKeyMapOverridesBuiltins(t *testing.T) {
	keyMap, skipped, err := LoadKeyMap(strings.NewReader("foo = 65\nspace = 0x70\n"))
	if err != nil {
		t.Fatalf("LoadKeyMap() error = %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}

	r := NewResolver(keyMap)
	foo, ok := r.Resolve("FOO")
	if !ok {
		t.Fatalf("Resolve(FOO) not found")
	}
	a, _ := r.Resolve("A")
	if foo != a {
		t.Fatalf("Resolve(FOO) = %d, want %d", foo, a)
	}
	if got, _ := r.Resolve("space"); got != VKF1 {
		t.Fatalf("Resolve(space) = %#x, want key map override %#x", got, VKF1)
	}
}

func TestLoadKeyMapSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		"# header comment",
		"",
		"; another comment",
		"jump = 32 # trailing",
		"Dash=0xBD;trailing",
		"broken line",
		"= 12",
		"nothing =",
		"word = abc",
		"range = 70000",
		"spaced = 66 extra",
		"JUMP = 0x20",
		"jump = 33",
	}, "\n")

	keyMap, skipped, err := LoadKeyMap(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadKeyMap() error = %v", err)
	}
	if skipped != 5 {
		t.Fatalf("skipped = %d, want 5", skipped)
	}
	if got := keyMap["jump"]; got != 33 {
		t.Fatalf("jump = %d, want last definition 33", got)
	}
	if got := keyMap["dash"]; got != VKOEMMinus {
		t.Fatalf("dash = %#x, want %#x", got, VKOEMMinus)
	}
	if got := keyMap["spaced"]; got != 66 {
		t.Fatalf("spaced = %d, want 66", got)
	}
	if len(keyMap) != 3 {
		t.Fatalf("len(keyMap) = %d, want 3", len(keyMap))
	}
}

func TestSetKeyMapReplacesLookups(t *testing.T) {
	r := NewResolver(KeyMap{"fire": 70})
	if got, ok := r.Resolve("fire"); !ok || got != 70 {
		t.Fatalf("Resolve(fire) = %d, %v", got, ok)
	}

	r.SetKeyMap(nil)
	if _, ok := r.Resolve("fire"); ok {
		t.Fatalf("expected fire to be unknown after SetKeyMap(nil)")
	}
	if r.KeyMapSize() != 0 {
		t.Fatalf("KeyMapSize() = %d, want 0", r.KeyMapSize())
	}
}

func TestDetectCode(t *testing.T) {
	tests := []struct {
		in     Code
		want   Code
		wantOK bool
	}{
		{MouseLeft, VKLButton, true},
		{MouseRight, VKRButton, true},
		{MouseMiddle, VKMButton, true},
		{Mouse4, VKXButton1, true},
		{Mouse5, VKXButton2, true},
		{WheelUp, 0, false},
		{WheelDown, 0, false},
		{0, 0, false},
		{VKF1 + 5, VKF1 + 5, true},
	}
	for _, tc := range tests {
		got, ok := DetectCode(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("DetectCode(%d) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestMatchesGenericModifiers(t *testing.T) {
	if !Matches(VKShift, VKLShift) || !Matches(VKShift, VKRShift) {
		t.Fatalf("expected shift to match both sides")
	}
	if !Matches(VKControl, VKRControl) || !Matches(VKMenu, VKLMenu) {
		t.Fatalf("expected ctrl/alt to match sided variants")
	}
	if Matches(VKLShift, VKRShift) {
		t.Fatalf("sided trigger must not match the other side")
	}
	if Matches(WheelUp, WheelUp) {
		t.Fatalf("wheel triggers must never match")
	}
	if !Matches(MouseLeft, VKLButton) {
		t.Fatalf("expected lmb to match the left button")
	}
}

func TestParseChord(t *testing.T) {
	r := NewResolver(nil)

	chord, err := r.ParseChord("8+9+0")
	if err != nil {
		t.Fatalf("ParseChord() error = %v", err)
	}
	if chord != [3]Code{VK8, VK9, VK0} {
		t.Fatalf("chord = %v", chord)
	}

	for _, bad := range []string{"8+9", "8+9+0+1", "8+9+nope", "8+8+9", "8+9+mousewheel_up"} {
		if _, err := r.ParseChord(bad); err == nil {
			t.Fatalf("ParseChord(%q) expected error", bad)
		}
	}
}

func TestFormatName(t *testing.T) {
	tests := map[Code]string{
		MouseLeft:   "LMB",
		VKLButton:   "LMB",
		VKA:         "A",
		VK5:         "5",
		VKF1 + 11:   "F12",
		VKNumpad3:   "Numpad3",
		VKSpace:     "Space",
		Code(0x100): "256",
	}
	for code, want := range tests {
		if got := FormatName(code); got != want {
			t.Fatalf("FormatName(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestNamesResolve(t *testing.T) {
	r := NewResolver(nil)
	for _, name := range Names() {
		if _, ok := r.Resolve(name); !ok {
			t.Fatalf("listed name %q does not resolve", name)
		}
	}
}
