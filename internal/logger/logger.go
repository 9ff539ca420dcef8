// Package logger provides the structured logger shared by the engine,
// the platform backends and the command line.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger takes a message plus alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	Level string
	// File enables a rotating log file next to the console output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Console is where human-readable output goes. Nil means stderr; set
	// Quiet to drop it entirely.
	Console io.Writer
	Quiet   bool
}

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

// ZeroLogger is the zerolog-backed Logger.
type ZeroLogger struct {
	log  zerolog.Logger
	file *lumberjack.Logger
}

// New builds a logger from cfg. DEBUG=1 in the environment forces debug
// level regardless of cfg.Level.
func New(cfg Config) (*ZeroLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debugLogsEnabled() {
		level = zerolog.DebugLevel
	}

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, consoleWriter(cfg.Console))
	}

	var file *lumberjack.Logger
	if path := strings.TrimSpace(cfg.File); path != "" {
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(cfg.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAgeDays, defaultMaxAgeDays),
		}
		writers = append(writers, file)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	return &ZeroLogger{
		log:  zerolog.New(out).Level(level).With().Timestamp().Logger(),
		file: file,
	}, nil
}

func consoleWriter(out io.Writer) io.Writer {
	noColor := true
	if out == nil {
		out = colorable.NewColorableStderr()
		noColor = !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000", NoColor: noColor}
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func debugLogsEnabled() bool {
	return strings.TrimSpace(os.Getenv("DEBUG")) == "1"
}

// ParseLevel accepts debug, info, warn/warning and error. Empty means info.
func ParseLevel(value string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warning", "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q (expected debug|info|warning|error)", value)
	}
}

func (l *ZeroLogger) Debug(msg string, args ...any) { l.write(l.log.Debug(), msg, args) }
func (l *ZeroLogger) Info(msg string, args ...any)  { l.write(l.log.Info(), msg, args) }
func (l *ZeroLogger) Warn(msg string, args ...any)  { l.write(l.log.Warn(), msg, args) }
func (l *ZeroLogger) Error(msg string, args ...any) { l.write(l.log.Error(), msg, args) }

func (l *ZeroLogger) write(event *zerolog.Event, msg string, args []any) {
	if event == nil {
		return
	}
	appendFields(event, args).Msg(msg)
}

// appendFields adds key/value pairs in call order. A trailing key without a
// value is kept under "!BADKEY", the way slog reports it.
func appendFields(event *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			event = event.Interface("!BADKEY", args[i])
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, args[i+1])
	}
	return event
}

// Close flushes and closes the log file, if any.
func (l *ZeroLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func NewNop() Logger { return nopLogger{} }
