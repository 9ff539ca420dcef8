// Package control loads rule files into the engine and serves the console
// commands that reload, switch and pause them at runtime.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/core/macro"
	"github.com/PachudermPack/UniMacro/internal/logger"
	"github.com/PachudermPack/UniMacro/internal/profile"
)

var (
	// ErrQuit is returned by Execute for the quit command.
	ErrQuit           = errors.New("quit requested")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoActiveRules  = errors.New("no rule file loaded")
)

// Engine is the part of the dispatch service the controller drives.
type Engine interface {
	Install(source string, defs []macro.Definition) *engine.RuleSet
	Pause() bool
	Resume() bool
	TogglePause() bool
	Snapshot() engine.Snapshot
}

type Options struct {
	Engine   Engine
	Resolver *keycode.Resolver
	Catalog  *profile.Catalog
	// State is optional; without it the active rule file is not remembered.
	State *profile.State
	// KeyMapPath overrides the catalog's key map search.
	KeyMapPath string
	Logger     logger.Logger
	Out        io.Writer
}

type Controller struct {
	engine     Engine
	resolver   *keycode.Resolver
	parser     *macro.Parser
	catalog    *profile.Catalog
	state      *profile.State
	keyMapPath string
	logger     logger.Logger
	out        io.Writer

	mu     sync.Mutex
	active string
}

func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = keycode.NewResolver(nil)
	}
	return &Controller{
		engine:     opts.Engine,
		resolver:   resolver,
		parser:     macro.NewParser(resolver),
		catalog:    opts.Catalog,
		state:      opts.State,
		keyMapPath: opts.KeyMapPath,
		logger:     log,
		out:        out,
	}
}

// Active is the path of the rule file currently installed.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// LoadKeyMap loads the external key map into the resolver. A missing key map
// is not an error; the built-in names still apply.
func (c *Controller) LoadKeyMap() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadKeyMapLocked()
}

func (c *Controller) loadKeyMapLocked() error {
	path := c.keyMapPath
	if path == "" && c.catalog != nil {
		found, ok := c.catalog.FindKeyMap()
		if !ok {
			c.logger.Info("no key map found, using built-in names")
			c.resolver.SetKeyMap(nil)
			return nil
		}
		path = found
	}
	if path == "" {
		return nil
	}

	keyMap, skipped, err := keycode.LoadKeyMapFile(path)
	if err != nil {
		return err
	}
	c.resolver.SetKeyMap(keyMap)
	c.logger.Info("key map loaded", "path", path, "entries", len(keyMap), "skipped", skipped)
	return nil
}

// Load parses path and installs it. Malformed lines are skipped and logged;
// only an unreadable file fails, and then the live rule set is kept.
func (c *Controller) Load(path string) (*macro.LoadResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(path)
}

func (c *Controller) loadLocked(path string) (*macro.LoadResult, error) {
	result, err := c.parser.LoadFile(path)
	if err != nil {
		return nil, err
	}

	name := path
	if c.catalog != nil {
		name = c.catalog.DisplayName(path)
	}
	for _, problem := range result.Problems {
		c.logger.Warn("rule skipped", "file", name, "error", problem)
	}
	for _, warning := range result.Warnings {
		c.logger.Warn("rule warning", "file", name, "detail", warning)
	}

	set := c.engine.Install(name, result.Definitions)
	c.active = path
	c.logSummary(name, set.ID(), result)

	if c.state != nil {
		if err := c.state.SetLastRuleSet(name); err != nil {
			c.logger.Warn("failed to remember active rule set", "error", err)
		}
	}
	return result, nil
}

func (c *Controller) logSummary(name, id string, result *macro.LoadResult) {
	c.logger.Info("rules loaded", "file", name, "id", id, "macros", len(result.Definitions), "skipped", result.Skipped)
	for i, def := range result.Definitions {
		c.logger.Info(SummaryLine(i+1, def))
	}
}

// SummaryLine renders one macro for the load summary.
func SummaryLine(n int, def macro.Definition) string {
	line := fmt.Sprintf("#%d %s %s %s %s", n, def.Kind, def.ModeLabel(),
		keycode.FormatName(def.Trigger), keycode.FormatName(def.Target))
	if def.Kind == macro.KindAutoClick {
		line += fmt.Sprintf(" %gms (~%d CPS)", def.IntervalMs, def.CPS())
	}
	return line
}

// Reload re-reads the active rule file.
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return ErrNoActiveRules
	}
	_, err := c.loadLocked(c.active)
	return err
}

// Execute runs one console command line. Blank lines are ignored.
func (c *Controller) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "reload", "r":
		return c.Reload()
	case "use", "load":
		if arg == "" {
			return fmt.Errorf("usage: use <file>")
		}
		return c.use(arg)
	case "pause", "stop":
		if !c.engine.Pause() {
			fmt.Fprintln(c.out, "already paused")
		}
		return nil
	case "resume", "start":
		if !c.engine.Resume() {
			fmt.Fprintln(c.out, "already running")
		}
		return nil
	case "toggle", "t":
		if c.engine.TogglePause() {
			fmt.Fprintln(c.out, "paused")
		} else {
			fmt.Fprintln(c.out, "running")
		}
		return nil
	case "status", "s":
		c.printStatus()
		return nil
	case "list", "ls":
		return c.printRuleFiles()
	case "keymap":
		return c.reloadKeyMap()
	case "help", "h", "?":
		c.printHelp()
		return nil
	case "quit", "exit", "q":
		return ErrQuit
	default:
		return fmt.Errorf("%w %q (type help)", ErrUnknownCommand, fields[0])
	}
}

func (c *Controller) use(name string) error {
	if c.catalog == nil {
		_, err := c.Load(name)
		return err
	}
	path, err := c.catalog.ResolveRuleFile(name)
	if err != nil {
		return err
	}
	_, err = c.Load(path)
	return err
}

func (c *Controller) reloadKeyMap() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadKeyMapLocked(); err != nil {
		return err
	}
	if c.active == "" {
		return nil
	}
	_, err := c.loadLocked(c.active)
	return err
}

func (c *Controller) printStatus() {
	snap := c.engine.Snapshot()
	state := "running"
	if snap.Paused {
		state = "paused"
	}
	source := snap.Source
	if source == "" {
		source = "(none)"
	}
	chord := make([]string, len(snap.PauseChord))
	for i, code := range snap.PauseChord {
		chord[i] = keycode.FormatName(code)
	}

	fmt.Fprintf(c.out, "rules: %s (%d macros, loaded %s)\n", source, len(snap.Macros), snap.LoadedAt.Format("15:04:05"))
	fmt.Fprintf(c.out, "state: %s, pause chord %s\n", state, strings.Join(chord, "+"))
	if snap.EmitFailures > 0 {
		fmt.Fprintf(c.out, "emit failures: %d\n", snap.EmitFailures)
	}
	for i, m := range snap.Macros {
		fmt.Fprintf(c.out, "  %s active=%s held=%s armed=%s emitted=%d\n",
			SummaryLine(i+1, m.Definition), yesNo(m.Active), yesNo(m.TargetHeld), yesNo(m.Armed), m.Emitted)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (c *Controller) printRuleFiles() error {
	if c.catalog == nil {
		return fmt.Errorf("no rules directory configured")
	}
	names, err := c.catalog.ListRuleFiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(c.out, "no rule files in %s\n", c.catalog.RulesDir())
		return nil
	}
	active := c.Active()
	activeName := ""
	if active != "" {
		activeName = c.catalog.DisplayName(active)
	}
	for _, name := range names {
		marker := " "
		if name == activeName {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", marker, name)
	}
	return nil
}

func (c *Controller) printHelp() {
	fmt.Fprint(c.out, `commands:
  reload        re-read the active rule file
  use <file>    load another rule file (name in CFG or a path)
  pause         stop all macros
  resume        start macros again
  toggle        flip between paused and running
  status        show the active rules and their state
  list          list rule files
  keymap        reload the key map and the active rules
  help          show this text
  quit          exit
`)
}

// Run reads commands from in until EOF or ctx is done, returning nil, or until
// the quit command, returning ErrQuit. Command errors are printed and do not
// end the loop.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			err := c.Execute(line)
			switch {
			case errors.Is(err, ErrQuit):
				return err
			case err != nil:
				fmt.Fprintln(c.out, "error:", err)
			}
		}
	}
}
