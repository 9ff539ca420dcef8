//go:build linux

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/PachudermPack/UniMacro/internal/adapters/linuxinput"
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
	case "auto", "evdev":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (linux supports auto|evdev)", value)
	}
}

func captureNextCode(cfg config, timeout time.Duration) (keycode.Code, error) {
	devicePath := ""
	if len(cfg.devicePaths) > 0 {
		devicePath = cfg.devicePaths[0]
	}
	return linuxinput.CaptureNextKeyCode(devicePath, timeout)
}

func listInputDevices(out io.Writer) error {
	devices, err := linuxinput.ListInputDevices()
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
	return []os.Signal{syscall.SIGHUP}
}

func permissionDeniedHint() string {
	return "Permission denied opening input devices. Run as root or add a udev rule granting access to /dev/input/event* and /dev/uinput."
}

func startRuntime(cfg config, engineCfg engine.Config, log logger.Logger) (macroRuntime, error) {
	return startEvdevRuntime(cfg, engineCfg, log, true)
}

func startEvdevRuntime(cfg config, engineCfg engine.Config, log logger.Logger, allowNoGrabFallback bool) (macroRuntime, error) {
	selection, err := linuxinput.OpenSourceSelection(cfg.devicePaths)
	if err != nil {
		return nil, err
	}

	for _, dev := range selection.Devices {
		name, _ := dev.Name()
		log.Info("Using source device", "path", dev.Path(), "name", name)
	}

	runtime, err := linuxinput.NewRuntime(
		selection,
		linuxinput.RuntimeConfig{
			Engine:      engineCfg,
			GrabDevices: cfg.grabDevices,
		},
		log,
	)
	if err != nil {
		selection.Close()
		return nil, err
	}

	if err := runtime.Start(); err != nil {
		runtime.Stop()
		if allowNoGrabFallback && cfg.grabDevices && errors.Is(err, syscall.EBUSY) {
			log.Warn("Grab failed (device busy), retrying without grab", "err", err)
			cfg.grabDevices = false
			return startEvdevRuntime(cfg, engineCfg, log, false)
		}
		return nil, err
	}

	log.Info("Backend", "name", "evdev")
	if runtime.GrabEnabled() {
		log.Info("Grab mode enabled")
	} else {
		log.Info("Grab mode disabled; suppression flags have no effect")
	}
	return runtime, nil
}
