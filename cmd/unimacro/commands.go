package main

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/PachudermPack/UniMacro/internal/control"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/core/macro"
	"github.com/PachudermPack/UniMacro/internal/logger"
	"github.com/PachudermPack/UniMacro/internal/profile"
)

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "unimacro",
		Usage:     "global input macros: autoclick and key binds from rule files",
		UsageText: "unimacro [global options] [rules-file]\n   unimacro [global options] command [arguments...]",
		Description: `Rule files live in <base>/CFG/*.ini. Each line is one macro:
   [AutoClick] [HOLD|TOGGLE] "trigger" "target" [intervalMs]
   [Bind] [K|D] "trigger" "target"
Without a rules-file argument the last active rule set is loaded, else the first file in CFG.`,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Action:    runMacros,
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "parse a rule file and report every macro and problem",
				ArgsUsage: "<file>",
				Action:    checkRules,
			},
			{
				Name:   "keys",
				Usage:  "print every key name rule files may use",
				Action: printKeys,
			},
			{
				Name:   "list",
				Usage:  "list rule files in the CFG directory",
				Action: listRules,
			},
			{
				Name:   "devices",
				Usage:  "print available input devices",
				Action: printDevices,
			},
			{
				Name:  "capture",
				Usage: "print the code of the next key or button pressed",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "give up after this long"},
				},
				Action:       captureKey,
				OnUsageError: onUsageError,
			},
		},
		OnUsageError:   onUsageError,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func onUsageError(_ *cli.Context, err error, _ bool) error {
	return usageError{err: err}
}

// loadResolver builds a resolver with the configured key map, if any.
func loadResolver(cfg config, log logger.Logger) (*keycode.Resolver, error) {
	resolver := keycode.NewResolver(nil)
	loader := control.New(control.Options{
		Resolver:   resolver,
		Catalog:    newCatalog(cfg),
		KeyMapPath: cfg.keyMapPath,
		Logger:     log,
	})
	if err := loader.LoadKeyMap(); err != nil {
		return nil, err
	}
	return resolver, nil
}

func quietLogger(cfg config) (*logger.ZeroLogger, error) {
	cfg.logFile = ""
	if cfg.logLevel == "info" {
		cfg.logLevel = "warning"
	}
	return newLogger(cfg)
}

func checkRules(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageErrorf("check takes exactly one rule file")
	}
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	log, err := quietLogger(cfg)
	if err != nil {
		return usageError{err: err}
	}
	defer log.Close()

	resolver, err := loadResolver(cfg, log)
	if err != nil {
		return err
	}
	path, err := newCatalog(cfg).ResolveRuleFile(c.Args().First())
	if err != nil {
		return err
	}
	result, err := macro.NewParser(resolver).LoadFile(path)
	if err != nil {
		return err
	}

	out := c.App.Writer
	for i, def := range result.Definitions {
		fmt.Fprintf(out, "%s  (line %d)\n", control.SummaryLine(i+1, def), def.Line)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	for _, problem := range result.Problems {
		fmt.Fprintf(out, "error: %v\n", problem)
	}
	fmt.Fprintf(out, "%d macros, %d skipped\n", len(result.Definitions), result.Skipped)
	if result.Skipped > 0 {
		return fmt.Errorf("%s: %d malformed lines", path, result.Skipped)
	}
	return nil
}

func printKeys(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	log, err := quietLogger(cfg)
	if err != nil {
		return usageError{err: err}
	}
	defer log.Close()

	resolver, err := loadResolver(cfg, log)
	if err != nil {
		return err
	}

	out := c.App.Writer
	for _, name := range keycode.Names() {
		code, _ := resolver.Resolve(name)
		fmt.Fprintf(out, "%-16s %3d  0x%02X\n", name, code, uint16(code))
	}
	if n := resolver.KeyMapSize(); n > 0 {
		fmt.Fprintf(out, "(%d names from the key map take precedence)\n", n)
	}
	return nil
}

func listRules(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	catalog := newCatalog(cfg)
	names, err := catalog.ListRuleFiles()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintf(c.App.Writer, "no rule files in %s\n", catalog.RulesDir())
		return nil
	}

	last, _ := profile.NewState(cfg.statePath).LastRuleSet()
	for _, name := range names {
		marker := " "
		if name == last {
			marker = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %s\n", marker, name)
	}
	return nil
}

func printDevices(c *cli.Context) error {
	if _, err := parseConfig(c); err != nil {
		return err
	}
	return listInputDevices(c.App.Writer)
}

func captureKey(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		return usageErrorf("--timeout must be > 0")
	}

	fmt.Fprintf(c.App.Writer, "press a key or mouse button within %s\n", timeout)
	code, err := captureNextCode(cfg, timeout)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s = %d (0x%02X)\n", keycode.FormatName(code), code, uint16(code))
	return nil
}
