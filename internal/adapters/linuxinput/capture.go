//go:build linux

package linuxinput

import (
	"fmt"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

// CaptureNextKeyCode waits for the next key or button press that has an
// input code and returns that code. Presses without a mapping are skipped.
// An empty devicePath listens on every physical device with keys.
func CaptureNextKeyCode(devicePath string, timeout time.Duration) (keycode.Code, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var paths []string
	if devicePath != "" {
		paths = []string{devicePath}
	}
	selection, err := OpenSourceSelection(paths)
	if err != nil {
		return 0, err
	}
	defer selection.Close()

	for _, dev := range selection.Devices {
		if err := dev.NonBlock(); err != nil {
			return 0, fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
	}

	done := make(chan struct{})
	defer close(done)
	codeCh := make(chan keycode.Code, 1)
	for _, dev := range selection.Devices {
		go captureDeviceLoop(dev, done, codeCh)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-codeCh:
		return code, nil
	case <-timer.C:
		return 0, fmt.Errorf("timed out waiting for key/button input")
	}
}

func captureDeviceLoop(dev *evdev.InputDevice, done <-chan struct{}, codeCh chan<- keycode.Code) {
	for {
		select {
		case <-done:
			return
		default:
		}

		event, err := dev.ReadOne()
		if err != nil {
			if isDeviceClosedError(err) {
				return
			}
			pause := 25 * time.Millisecond
			if isWouldBlockError(err) {
				pause = 10 * time.Millisecond
			}
			if !sleepUntilDone(done, pause) {
				return
			}
			continue
		}
		if event == nil || event.Type != evdev.EV_KEY || event.Value != 1 {
			continue
		}

		translated, ok := translate(rawEvent{Type: evTypeKey, Code: uint16(event.Code), Value: 1})
		if !ok {
			continue
		}
		select {
		case codeCh <- translated.Code:
		default:
		}
		return
	}
}

func sleepUntilDone(done <-chan struct{}, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}
