//go:build windows

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PachudermPack/UniMacro/internal/adapters/wininput"
	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
	"github.com/PachudermPack/UniMacro/internal/logger"
)

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "windows":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (windows supports auto|windows)", value)
	}
}

func captureNextCode(_ config, timeout time.Duration) (keycode.Code, error) {
	return wininput.CaptureNextKeyCode(timeout)
}

func listInputDevices(out io.Writer) error {
	devices, err := wininput.ListInputDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		virtualTag := "physical"
		if dev.IsVirtual {
			virtualTag = "virtual"
		}
		pointerTag := "non-pointer"
		if dev.IsPointer {
			pointerTag = "pointer"
		}
		fmt.Fprintf(out, "%s: %s [%s, %s]\n", dev.Path, dev.Name, virtualTag, pointerTag)
	}
	return nil
}

func reloadSignals() []os.Signal {
	return nil
}

func permissionDeniedHint() string {
	return "Permission denied registering global input hooks. Run as Administrator and ensure input-hooking is allowed."
}

func startRuntime(cfg config, engineCfg engine.Config, log logger.Logger) (macroRuntime, error) {
	if len(cfg.devicePaths) > 0 {
		log.Warn("--device is ignored on Windows; using global keyboard/mouse hooks")
	}
	if !cfg.grabDevices {
		log.Warn("--no-grab is ignored on Windows; hooks decide suppression per event")
	}

	runtime, err := wininput.NewRuntime(
		wininput.RuntimeConfig{
			Engine:    engineCfg,
			FineTimer: true,
		},
		log,
	)
	if err != nil {
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		return nil, err
	}

	log.Info("Input mode", "mode", "windows-global-hooks")
	return runtime, nil
}
