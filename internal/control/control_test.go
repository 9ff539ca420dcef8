package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/profile"
)

type recordingInjector struct {
	mu     sync.Mutex
	events []engine.Event
}

func (r *recordingInjector) WriteEvents(events ...engine.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingInjector) Close() error { return nil }

type idleTimer struct{}

func (idleTimer) Stop() {}

type idleScheduler struct{}

func (idleScheduler) Every(time.Duration, func()) (engine.Timer, error) {
	return idleTimer{}, nil
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg+" "+fmt.Sprint(args...))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("INFO", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	base       string
	service    *engine.Service
	injector   *recordingInjector
	logger     *recordingLogger
	state      *profile.State
	out        *bytes.Buffer
	controller *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		base:     t.TempDir(),
		injector: &recordingInjector{},
		logger:   &recordingLogger{},
		out:      &bytes.Buffer{},
	}
	service, err := engine.NewService(engine.Config{Scheduler: idleScheduler{}}, h.injector, h.logger)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	t.Cleanup(service.Stop)
	h.service = service
	h.state = profile.NewState(filepath.Join(h.base, "state.json"))
	h.controller = New(Options{
		Engine:   service,
		Resolver: keycode.NewResolver(nil),
		Catalog:  profile.NewCatalog(h.base, ""),
		State:    h.state,
		Logger:   h.logger,
		Out:      h.out,
	})
	return h
}

func (h *harness) writeRules(t *testing.T, name, content string) string {
	t.Helper()
	dir := filepath.Join(h.base, profile.RulesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	return path
}

func TestLoadInstallsAndRemembers(t *testing.T) {
	h := newHarness(t)
	path := h.writeRules(t, "pvp.ini", "[AutoClick] [TOGGLE] \"f6\" \"lmb\" [50]\n[Bind] [K] \"q\" \"e\"\nbroken line\n")

	result, err := h.controller.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(result.Definitions) != 2 || result.Skipped != 1 {
		t.Fatalf("unexpected result: %d defs, %d skipped", len(result.Definitions), result.Skipped)
	}
	if got := h.service.Snapshot(); got.Source != "pvp.ini" || len(got.Macros) != 2 {
		t.Fatalf("engine not updated: %+v", got)
	}
	if h.controller.Active() != path {
		t.Fatalf("Active = %q, want %q", h.controller.Active(), path)
	}
	if last, _ := h.state.LastRuleSet(); last != "pvp.ini" {
		t.Fatalf("last rule set = %q", last)
	}
	for _, want := range []string{"#1 AutoClick TOGGLE F6 LMB 50ms (~20 CPS)", "#2 Bind K Q E", "rule skipped"} {
		if !h.logger.contains(want) {
			t.Fatalf("log missing %q: %v", want, h.logger.lines)
		}
	}
}

func TestLoadMissingFileKeepsCurrentRules(t *testing.T) {
	h := newHarness(t)
	path := h.writeRules(t, "a.ini", "[Bind] [D] \"q\" \"e\"\n")
	if _, err := h.controller.Load(path); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	before := h.service.Snapshot().RuleSetID

	if err := h.controller.Execute("use missing"); err == nil {
		t.Fatalf("expected error loading a missing file")
	}
	if h.service.Snapshot().RuleSetID != before {
		t.Fatalf("rule set replaced after failed load")
	}
	if h.controller.Active() != path {
		t.Fatalf("active file changed after failed load")
	}
}

func TestReloadPicksUpEdits(t *testing.T) {
	h := newHarness(t)
	if err := h.controller.Reload(); !errors.Is(err, ErrNoActiveRules) {
		t.Fatalf("expected ErrNoActiveRules, got %v", err)
	}

	path := h.writeRules(t, "a.ini", "[Bind] [D] \"q\" \"e\"\n")
	if _, err := h.controller.Load(path); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	first := h.service.Snapshot().RuleSetID

	h.writeRules(t, "a.ini", "[Bind] [D] \"q\" \"e\"\n[Bind] [D] \"w\" \"r\"\n")
	if err := h.controller.Execute("reload"); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	snap := h.service.Snapshot()
	if snap.RuleSetID == first || len(snap.Macros) != 2 {
		t.Fatalf("reload did not install a new rule set: %+v", snap)
	}
}

func TestUseSwitchesRuleFile(t *testing.T) {
	h := newHarness(t)
	h.writeRules(t, "a.ini", "[Bind] [D] \"q\" \"e\"\n")
	b := h.writeRules(t, "b.ini", "[AutoClick] [HOLD] \"mouse4\" \"lmb\" [10]\n")

	if err := h.controller.Execute("use b"); err != nil {
		t.Fatalf("use error: %v", err)
	}
	if h.controller.Active() != b {
		t.Fatalf("Active = %q, want %q", h.controller.Active(), b)
	}
	if err := h.controller.Execute("use"); err == nil {
		t.Fatalf("expected usage error")
	}

	h.out.Reset()
	if err := h.controller.Execute("list"); err != nil {
		t.Fatalf("list error: %v", err)
	}
	if got := h.out.String(); got != "  a.ini\n* b.ini\n" {
		t.Fatalf("list output = %q", got)
	}
}

func TestPauseCommands(t *testing.T) {
	h := newHarness(t)

	if err := h.controller.Execute("pause"); err != nil || !h.service.Paused() {
		t.Fatalf("pause: err=%v paused=%v", err, h.service.Paused())
	}
	h.out.Reset()
	_ = h.controller.Execute("PAUSE")
	if !strings.Contains(h.out.String(), "already paused") {
		t.Fatalf("expected already paused, got %q", h.out.String())
	}
	if err := h.controller.Execute("resume"); err != nil || h.service.Paused() {
		t.Fatalf("resume: err=%v paused=%v", err, h.service.Paused())
	}
	if err := h.controller.Execute("toggle"); err != nil || !h.service.Paused() {
		t.Fatalf("toggle: err=%v paused=%v", err, h.service.Paused())
	}
}

func TestStatusOutput(t *testing.T) {
	h := newHarness(t)
	path := h.writeRules(t, "pvp.ini", "[Bind] [K] \"q\" \"e\"\n")
	if _, err := h.controller.Load(path); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	h.service.HandleEvent(engine.Event{Code: keycode.VKQ, Transition: engine.TransitionDown})

	h.out.Reset()
	if err := h.controller.Execute("status"); err != nil {
		t.Fatalf("status error: %v", err)
	}
	out := h.out.String()
	for _, want := range []string{"rules: pvp.ini (1 macros", "state: running, pause chord 8+9+0", "#1 Bind K Q E active=no held=yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q: %q", want, out)
		}
	}
}

func TestKeyMapCommandReResolvesRules(t *testing.T) {
	h := newHarness(t)
	path := h.writeRules(t, "a.ini", "[Bind] [D] \"jump\" \"e\"\n")
	result, err := h.controller.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(result.Definitions) != 0 {
		t.Fatalf("unknown name should not resolve before the key map is loaded")
	}

	h.writeRules(t, profile.KeyMapFileName, "jump = 0x20\n")
	if err := h.controller.Execute("keymap"); err != nil {
		t.Fatalf("keymap error: %v", err)
	}
	snap := h.service.Snapshot()
	if len(snap.Macros) != 1 || snap.Macros[0].Definition.Trigger != keycode.VKSpace {
		t.Fatalf("key map not applied: %+v", snap.Macros)
	}
}

func TestExecuteUnknownAndQuit(t *testing.T) {
	h := newHarness(t)
	if err := h.controller.Execute("   "); err != nil {
		t.Fatalf("blank line error: %v", err)
	}
	if err := h.controller.Execute("dance"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if err := h.controller.Execute("quit"); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	h.out.Reset()
	if err := h.controller.Execute("help"); err != nil || !strings.Contains(h.out.String(), "use <file>") {
		t.Fatalf("help: err=%v out=%q", err, h.out.String())
	}
}

func TestRunStopsOnQuitAndReportsErrors(t *testing.T) {
	h := newHarness(t)
	in := strings.NewReader("pause\nbogus\nquit\nresume\n")

	if err := h.controller.Run(context.Background(), in); !errors.Is(err, ErrQuit) {
		t.Fatalf("Run = %v, want ErrQuit", err)
	}
	if !h.service.Paused() {
		t.Fatalf("commands after quit must not run")
	}
	if !strings.Contains(h.out.String(), "error: unknown command") {
		t.Fatalf("expected error line, got %q", h.out.String())
	}
}

func TestRunReturnsNilAtEOF(t *testing.T) {
	h := newHarness(t)
	if err := h.controller.Run(context.Background(), strings.NewReader("pause\n")); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !h.service.Paused() {
		t.Fatalf("pause command not executed")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	h := newHarness(t)
	reader, writer := openPipe(t)
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.controller.Run(ctx, reader) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func openPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, w
}
