package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/PachudermPack/UniMacro/internal/control"
	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/logger"
	"github.com/PachudermPack/UniMacro/internal/profile"
)

type config struct {
	baseDir       string
	keyMapPath    string
	statePath     string
	rulesArg      string
	logLevel      string
	logFile       string
	logMaxSizeMB  int
	backend       string
	devicePaths   []string
	grabDevices   bool
	pauseChordRaw string
	pauseDebounce time.Duration
	startPaused   bool
	console       bool
}

// macroRuntime is a started platform backend.
type macroRuntime interface {
	Service() *engine.Service
	Stop()
}

// usageError marks bad flags or arguments; run maps it to exit status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "base-dir", EnvVars: []string{"UNIMACRO_HOME"}, Usage: "directory holding CFG/ (default: the executable's directory)"},
		&cli.StringFlag{Name: "keymap", Usage: "key map file (default: KeyMapping.cfg in cwd, <base>/CFG, <base>)"},
		&cli.StringFlag{Name: "state-file", Usage: "where the last active rule set is remembered"},
		&cli.StringFlag{Name: "log-level", EnvVars: []string{"UNIMACRO_LOG_LEVEL"}, Value: "info", Usage: "debug, info, warning or error"},
		&cli.StringFlag{Name: "log-file", Usage: "also write JSON logs to this rotating file"},
		&cli.IntFlag{Name: "log-max-size", Value: 10, Usage: "rotate the log file after this many megabytes"},
		&cli.StringFlag{Name: "backend", Value: "auto", Usage: "input backend. Linux: auto|evdev. Windows: auto|windows"},
		&cli.StringSliceFlag{Name: "device", Usage: "evdev device to read (repeatable; Linux only). Auto-detected if omitted"},
		&cli.BoolFlag{Name: "no-grab", Usage: "do not grab source devices (Linux); rules cannot suppress input"},
		&cli.StringFlag{Name: "pause-chord", Value: "8+9+0", Usage: "three keys that pause/resume every macro when held together"},
		&cli.DurationFlag{Name: "pause-debounce", Value: engine.DefaultPauseDebounce, Usage: "minimum time between two pause toggles"},
		&cli.BoolFlag{Name: "paused", Usage: "start with every macro paused"},
		&cli.BoolFlag{Name: "no-console", Usage: "do not read commands from stdin"},
	}
}

func parseConfig(c *cli.Context) (config, error) {
	cfg := config{
		baseDir:       c.String("base-dir"),
		keyMapPath:    c.String("keymap"),
		statePath:     c.String("state-file"),
		logLevel:      c.String("log-level"),
		logFile:       c.String("log-file"),
		logMaxSizeMB:  c.Int("log-max-size"),
		devicePaths:   c.StringSlice("device"),
		grabDevices:   !c.Bool("no-grab"),
		pauseChordRaw: c.String("pause-chord"),
		pauseDebounce: c.Duration("pause-debounce"),
		startPaused:   c.Bool("paused"),
		console:       !c.Bool("no-console"),
	}

	if c.NArg() > 1 {
		return cfg, usageErrorf("unexpected arguments: %s", strings.Join(c.Args().Tail(), " "))
	}
	cfg.rulesArg = c.Args().First()

	if _, err := logger.ParseLevel(cfg.logLevel); err != nil {
		return cfg, usageError{err: err}
	}
	if cfg.logMaxSizeMB <= 0 {
		return cfg, usageErrorf("--log-max-size must be > 0")
	}
	if cfg.pauseDebounce < 0 {
		return cfg, usageErrorf("--pause-debounce must be >= 0")
	}
	backend, err := parseBackendChoice(c.String("backend"))
	if err != nil {
		return cfg, usageError{err: err}
	}
	cfg.backend = backend

	if cfg.baseDir == "" {
		dir, err := profile.DefaultBaseDir()
		if err != nil {
			return cfg, err
		}
		cfg.baseDir = dir
	}
	if cfg.statePath == "" {
		cfg.statePath = profile.DefaultStatePath()
	}
	return cfg, nil
}

func newLogger(cfg config) (*logger.ZeroLogger, error) {
	return logger.New(logger.Config{
		Level:     cfg.logLevel,
		File:      cfg.logFile,
		MaxSizeMB: cfg.logMaxSizeMB,
	})
}

func newCatalog(cfg config) *profile.Catalog {
	workDir, _ := os.Getwd()
	return profile.NewCatalog(cfg.baseDir, workDir)
}

// runMacros is the default action: start the backend, load the startup rule
// file, then serve console commands and reload signals until interrupted.
func runMacros(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return usageError{err: err}
	}
	defer log.Close()

	resolver := keycode.NewResolver(nil)
	catalog := newCatalog(cfg)
	state := profile.NewState(cfg.statePath)

	// The key map goes in first so the pause chord may use its names.
	keyMapLoader := control.New(control.Options{Resolver: resolver, Catalog: catalog, KeyMapPath: cfg.keyMapPath, Logger: log})
	if err := keyMapLoader.LoadKeyMap(); err != nil {
		log.Warn("key map not loaded", "error", err)
	}
	chord, err := resolver.ParseChord(cfg.pauseChordRaw)
	if err != nil {
		return usageError{err: fmt.Errorf("--pause-chord: %w", err)}
	}

	lastActive, err := state.LastRuleSet()
	if err != nil {
		log.Warn("ignoring unreadable state file", "path", state.Path(), "error", err)
	}
	selection, err := catalog.SelectStartup(cfg.rulesArg, lastActive)
	if err != nil {
		return err
	}
	if lastActive != "" && selection.Origin == profile.OriginFirst {
		log.Info("last active rule set no longer exists", "name", lastActive)
	}

	engineCfg := engine.Config{
		PauseChord:    chord,
		PauseDebounce: cfg.pauseDebounce,
		StartPaused:   cfg.startPaused,
	}
	runtime, err := startRuntime(cfg, engineCfg, log)
	if err != nil {
		return err
	}
	defer runtime.Stop()

	controller := control.New(control.Options{
		Engine:     runtime.Service(),
		Resolver:   resolver,
		Catalog:    catalog,
		State:      state,
		KeyMapPath: cfg.keyMapPath,
		Logger:     log,
		Out:        c.App.Writer,
	})
	if _, err := controller.Load(selection.Path); err != nil {
		return err
	}
	log.Info("startup rule set", "path", selection.Path, "chosen-by", string(selection.Origin))
	if cfg.startPaused {
		log.Info("Initial state paused (hold the pause chord or type resume)", "chord", cfg.pauseChordRaw)
	} else {
		log.Info("Running (hold the pause chord to pause)", "chord", cfg.pauseChordRaw)
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if sigs := reloadSignals(); len(sigs) > 0 {
		reloadCh := make(chan os.Signal, 1)
		signal.Notify(reloadCh, sigs...)
		defer signal.Stop(reloadCh)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-reloadCh:
					if err := controller.Reload(); err != nil {
						log.Error("reload failed", "error", err)
					}
				}
			}
		}()
	}

	if cfg.console {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(c.App.Writer, "type help for commands, quit or Ctrl+C to stop")
		}
		go func() {
			err := controller.Run(ctx, c.App.Reader)
			switch {
			case errors.Is(err, control.ErrQuit):
				cancel()
			case err != nil:
				log.Warn("console closed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down")
	return nil
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	err := app.RunContext(context.Background(), args)
	if err == nil {
		return 0
	}

	var usageErr usageError
	switch {
	case errors.As(err, &usageErr):
		fmt.Fprintln(stderr, err)
		return 2
	case isPermissionError(err):
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, permissionDeniedHint())
		return 1
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
