//go:build linux

package linuxinput

import (
	"fmt"
	"os"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
}

type SourceSelection struct {
	Devices []*evdev.InputDevice
}

func (s *SourceSelection) Close() {
	closeInputDevices(s.Devices)
}

func ListInputDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]DeviceInfo, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, err := dev.Name(); err == nil && actualName != "" {
			name = actualName
		}

		devices = append(devices, DeviceInfo{
			Path:      path.Path,
			Name:      name,
			IsVirtual: deviceIsVirtual(dev, name),
			IsPointer: deviceIsPointer(dev),
		})
		_ = dev.Close()
	}

	return devices, nil
}

// OpenSourceSelection opens the given device paths, or every physical device
// with key or button events when none are given.
func OpenSourceSelection(devicePaths []string) (*SourceSelection, error) {
	if len(devicePaths) > 0 {
		devices := make([]*evdev.InputDevice, 0, len(devicePaths))
		for _, path := range devicePaths {
			dev, err := openInputDevice(path)
			if err != nil {
				closeInputDevices(devices)
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
			if !deviceHasKeys(dev) {
				_ = dev.Close()
				closeInputDevices(devices)
				return nil, fmt.Errorf("%s does not expose key/button events", path)
			}
			devices = append(devices, dev)
		}
		return &SourceSelection{Devices: devices}, nil
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].Path < paths[j].Path
	})

	devices := make([]*evdev.InputDevice, 0, len(paths))
	for _, path := range paths {
		dev, err := openInputDevice(path.Path)
		if err != nil {
			continue
		}

		name := path.Name
		if actualName, nameErr := dev.Name(); nameErr == nil && actualName != "" {
			name = actualName
		}
		if deviceIsVirtual(dev, name) || !deviceHasKeys(dev) {
			_ = dev.Close()
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no readable input devices with key/button events found; check permissions on /dev/input or pass --device")
	}
	return &SourceSelection{Devices: devices}, nil
}

func openInputDevice(path string) (*evdev.InputDevice, error) {
	return evdev.OpenWithFlags(path, os.O_RDONLY)
}

func deviceHasKeys(device *evdev.InputDevice) bool {
	return len(device.CapableEvents(evdev.EV_KEY)) > 0
}

func deviceIsVirtual(device *evdev.InputDevice, name string) bool {
	id, err := device.InputID()
	if err == nil && id.BusType == uint16(evdev.BUS_VIRTUAL) {
		return true
	}
	lower := strings.ToLower(name)
	for _, token := range []string{"virtual", "uinput", "ydotool", virtualDeviceName} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func deviceIsPointer(device *evdev.InputDevice) bool {
	if deviceHasRelativeXY(device) {
		return true
	}
	return len(device.CapableEvents(evdev.EV_ABS)) > 0
}

func deviceHasRelativeXY(device *evdev.InputDevice) bool {
	var hasRelX, hasRelY bool
	for _, code := range device.CapableEvents(evdev.EV_REL) {
		if code == evdev.REL_X {
			hasRelX = true
		}
		if code == evdev.REL_Y {
			hasRelY = true
		}
	}
	return hasRelX && hasRelY
}

func closeInputDevices(devices []*evdev.InputDevice) {
	for _, dev := range devices {
		_ = dev.Close()
	}
}
