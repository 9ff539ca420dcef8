//go:build !linux && !windows

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/logger"
)

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" || backend == "auto" {
		return "auto", nil
	}
	return "", fmt.Errorf("invalid --backend %q (unsupported platform)", value)
}

func captureNextCode(_ config, _ time.Duration) (keycode.Code, error) {
	return 0, fmt.Errorf("unsupported platform")
}

func listInputDevices(_ io.Writer) error {
	return fmt.Errorf("input device listing is not supported on this platform")
}

func reloadSignals() []os.Signal {
	return nil
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend."
}

func startRuntime(_ config, _ engine.Config, _ logger.Logger) (macroRuntime, error) {
	return nil, fmt.Errorf("macro runtime is not supported on this platform")
}
