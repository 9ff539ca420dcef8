package macro

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

func testParser() *Parser {
	return NewParser(keycode.NewResolver(nil))
}

func TestParseAutoClickToggle(t *testing.T) {
	def, err := testParser().Parse(`[AutoClick] [TOGGLE] "F6" "LMB" [50]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Kind != KindAutoClick || def.Mode != ModeToggle {
		t.Fatalf("unexpected kind/mode: %v/%v", def.Kind, def.Mode)
	}
	if def.Trigger != keycode.VKF1+5 || def.Target != keycode.MouseLeft {
		t.Fatalf("unexpected codes: trigger=%d target=%d", def.Trigger, def.Target)
	}
	if def.Suppress != SuppressDefault || !def.Suppress.Suppresses() {
		t.Fatalf("expected default suppression, got %v", def.Suppress)
	}
	if def.TickInterval != 50*time.Millisecond || def.EmitsPerTick != 1 {
		t.Fatalf("unexpected tick plan: %v x%d", def.TickInterval, def.EmitsPerTick)
	}
	if def.CPS() != 20 {
		t.Fatalf("CPS() = %d, want 20", def.CPS())
	}
}

func TestParseBindKeep(t *testing.T) {
	def, err := testParser().Parse(`[Bind] [K] "Q" "E"`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Kind != KindBind || def.Suppress != SuppressKeep {
		t.Fatalf("unexpected rule: %+v", def)
	}
	if def.Suppress.Suppresses() {
		t.Fatalf("keep flag must not suppress")
	}
	if def.IntervalMs != 0 || def.EmitsPerTick != 0 {
		t.Fatalf("bind rule must not carry a schedule: %+v", def)
	}
}

func TestParseDefaultsAndWhitespace(t *testing.T) {
	def, err := testParser().Parse(`   [autoclick]"mouse4"   "space"[ 100 ]  `)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Mode != ModeHold || def.Suppress != SuppressDefault {
		t.Fatalf("expected hold/default, got %v/%v", def.Mode, def.Suppress)
	}
	if def.Trigger != keycode.Mouse4 || def.Target != keycode.VKSpace {
		t.Fatalf("unexpected codes: %+v", def)
	}
}

func TestParseFlagAfterMode(t *testing.T) {
	def, err := testParser().Parse(`[AutoClick] [Hold] [Drop] "x" "rmb" [10]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Suppress != SuppressDrop || !def.Suppress.Suppresses() {
		t.Fatalf("Suppress = %v, want drop", def.Suppress)
	}
}

func TestParseFlagInModePosition(t *testing.T) {
	def, err := testParser().Parse(`[AutoClick] [K] "x" "lmb" [10]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.Mode != ModeHold || def.Suppress != SuppressKeep {
		t.Fatalf("got mode=%v flag=%v, want hold/keep", def.Mode, def.Suppress)
	}
}

func TestParseSubMillisecondInterval(t *testing.T) {
	def, err := testParser().Parse(`[AutoClick] "x" "lmb" [0.3]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.TickInterval != time.Millisecond {
		t.Fatalf("TickInterval = %v, want 1ms", def.TickInterval)
	}
	if def.EmitsPerTick != 4 {
		t.Fatalf("EmitsPerTick = %d, want 4", def.EmitsPerTick)
	}
}

func TestParseBindIgnoresInterval(t *testing.T) {
	def, err := testParser().Parse(`[Bind] "q" "e" [25]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !def.IgnoredInterval || def.IntervalMs != 0 {
		t.Fatalf("expected interval to be ignored: %+v", def)
	}
}

func TestParseIntervalBounds(t *testing.T) {
	p := testParser()
	def, err := p.Parse(`[AutoClick] "x" "lmb" [0.001]`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if def.TickInterval != MinTick || def.EmitsPerTick != MaxEmitsPerTick {
		t.Fatalf("fastest interval plan = %v x%d", def.TickInterval, def.EmitsPerTick)
	}

	def, err = p.Parse(`[AutoClick] "x" "lmb" [86400000]`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if def.TickInterval != 24*time.Hour || def.EmitsPerTick != 1 {
		t.Fatalf("slowest interval plan = %v x%d", def.TickInterval, def.EmitsPerTick)
	}
}

func TestTickPlanClamps(t *testing.T) {
	tests := []struct {
		interval float64
		period   time.Duration
		emits    int
	}{
		{1e-300, MinTick, MaxEmitsPerTick},
		{1e-9, MinTick, MaxEmitsPerTick},
		{0.25, MinTick, 4},
		{10, 10 * time.Millisecond, 1},
		{1e300, 24 * time.Hour, 1},
	}
	for _, tc := range tests {
		period, emits := TickPlan(tc.interval)
		if period != tc.period || emits != tc.emits {
			t.Fatalf("TickPlan(%g) = %v x%d, want %v x%d", tc.interval, period, emits, tc.period, tc.emits)
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{`AutoClick "x" "lmb" [10]`, ErrSyntax},
		{`[AutoClick`, ErrSyntax},
		{`[Repeat] "x" "lmb" [10]`, ErrUnknownAction},
		{`[AutoClick] [Sometimes] "x" "lmb" [10]`, ErrUnknownMode},
		{`[AutoClick] [Hold] [Maybe] "x" "lmb" [10]`, ErrUnknownFlag},
		{`[Bind] [Toggle] "q" "e"`, ErrUnknownFlag},
		{`[AutoClick] "x" "lmb"`, ErrMissingInterval},
		{`[AutoClick] "x" "lmb" [0]`, ErrInvalidInterval},
		{`[AutoClick] "x" "lmb" [-5]`, ErrInvalidInterval},
		{`[AutoClick] "x" "lmb" [fast]`, ErrInvalidInterval},
		{`[AutoClick] "x" "lmb" [NaN]`, ErrInvalidInterval},
		{`[AutoClick] "x" "lmb" [1e-300]`, ErrIntervalRange},
		{`[AutoClick] "x" "lmb" [1e-9]`, ErrIntervalRange},
		{`[AutoClick] "x" "lmb" [1e300]`, ErrIntervalRange},
		{`[AutoClick] "x" "lmb" [90000000]`, ErrInvalidInterval},
		{`[AutoClick] "nokey" "lmb" [10]`, ErrUnresolvedName},
		{`[Bind] "q" "nokey"`, ErrUnresolvedName},
		{`[Bind] "" "e"`, ErrUnresolvedName},
		{`[Bind] "q" "e`, ErrSyntax},
		{`[Bind] "q"`, ErrSyntax},
		{`[Bind] "q" "e" extra`, ErrSyntax},
		{`[AutoClick] "x" "lmb" [10] [20]`, ErrSyntax},
	}

	p := testParser()
	for _, tc := range tests {
		_, err := p.Parse(tc.line)
		if err == nil {
			t.Fatalf("Parse(%q) expected error", tc.line)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("Parse(%q) error = %v, want %v", tc.line, err, tc.want)
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) || parseErr.Col < 1 {
			t.Fatalf("Parse(%q) error %v is not a positioned ParseError", tc.line, err)
		}
	}
}

func TestParseErrorColumn(t *testing.T) {
	_, err := testParser().Parse(`[Bind] "q" "nokey"`)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Col != 12 {
		t.Fatalf("Col = %d, want 12", parseErr.Col)
	}
}

func TestLoadSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		"# rules",
		`[AutoClick] [Toggle] "F6" "LMB" [50] ; fast clicker`,
		"",
		`[Bind] [K] "Q" "E"`,
		`[Bind] "nokey" "E"`,
		`garbage`,
		`[Bind] "w" "mousewheel_up" [5]`,
		`[AutoClick] "mousewheel_down" "lmb" [10]`,
	}, "\n")

	result, err := testParser().Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(result.Definitions) != 4 {
		t.Fatalf("len(Definitions) = %d, want 4", len(result.Definitions))
	}
	if result.Skipped != 2 || len(result.Problems) != 2 {
		t.Fatalf("Skipped = %d problems = %d, want 2/2", result.Skipped, len(result.Problems))
	}
	var parseErr *ParseError
	if !errors.As(result.Problems[0], &parseErr) || parseErr.Line != 5 {
		t.Fatalf("first problem = %v, want line 5", result.Problems[0])
	}
	if result.Definitions[0].Line != 2 || result.Definitions[1].Line != 4 {
		t.Fatalf("unexpected line numbers: %d, %d", result.Definitions[0].Line, result.Definitions[1].Line)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2 entries", result.Warnings)
	}
}

func TestLoadEmptySource(t *testing.T) {
	result, err := testParser().Load(strings.NewReader("\n# nothing here\n;\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(result.Definitions) != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStripComment(t *testing.T) {
	tests := map[string]string{
		`[Bind] "q" "e" # note`:     `[Bind] "q" "e" `,
		`[Bind] "q" "e"; note`:      `[Bind] "q" "e"`,
		`no comment`:                `no comment`,
		`[Bind] "\#" "e"`:           `[Bind] "#" "e"`,
		`[Bind] "\;" "e" ; trailer`: `[Bind] ";" "e" `,
	}
	for in, want := range tests {
		if got := StripComment(in); got != want {
			t.Fatalf("StripComment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefinitionString(t *testing.T) {
	def, err := testParser().Parse(`[AutoClick] [Toggle] "F6" "LMB" [50]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := "action=AutoClick mode=TOGGLE trigger=F6 target=LMB interval=50ms (20 CPS)"
	if got := def.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
