//go:build linux

package linuxinput

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
)

const virtualDeviceName = "unimacro-virtual"

var errInjectorClosed = errors.New("uinput device closed")

type RuntimeConfig struct {
	Engine      engine.Config
	GrabDevices bool
}

type sourcedEvent struct {
	path  string
	event rawEvent
}

type Runtime struct {
	sourceDevices []*evdev.InputDevice
	grabPaths     map[string]struct{}
	service       *engine.Service
	injector      *evdevInjector
	logger        engine.Logger

	eventsCh  chan sourcedEvent
	stopCh    chan struct{}
	stopOnce  sync.Once
	readersWG sync.WaitGroup
	loopWG    sync.WaitGroup
}

// evdevInjector writes to the uinput device. Timer goroutines and the event
// loop share it, so writes are serialized.
type evdevInjector struct {
	mu  sync.Mutex
	dev *evdev.InputDevice
}

func (e *evdevInjector) WriteEvents(events ...engine.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, event := range events {
		for _, raw := range encode(event) {
			if err := e.writeLocked(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *evdevInjector) forward(events ...rawEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, raw := range events {
		if err := e.writeLocked(raw); err != nil {
			return err
		}
	}
	return nil
}

func (e *evdevInjector) writeLocked(raw rawEvent) error {
	if e.dev == nil {
		return errInjectorClosed
	}
	ev := evdev.InputEvent{
		Type:  evdev.EvType(raw.Type),
		Code:  evdev.EvCode(raw.Code),
		Value: raw.Value,
	}
	return e.dev.WriteOne(&ev)
}

func (e *evdevInjector) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dev == nil {
		return nil
	}
	err := e.dev.Close()
	e.dev = nil
	return err
}

func NewRuntime(selection *SourceSelection, cfg RuntimeConfig, logger engine.Logger) (*Runtime, error) {
	if selection == nil {
		return nil, fmt.Errorf("source selection is nil")
	}
	if len(selection.Devices) == 0 {
		return nil, fmt.Errorf("source selection has no devices")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	grabPaths := make(map[string]struct{}, len(selection.Devices))
	if cfg.GrabDevices {
		for _, dev := range selection.Devices {
			path := dev.Path()
			if deviceHasRelativeXY(dev) || len(dev.CapableEvents(evdev.EV_ABS)) == 0 {
				grabPaths[path] = struct{}{}
				continue
			}
			name, _ := dev.Name()
			logger.Warn(
				"Not grabbing source device; absolute-motion passthrough is unreliable, rules cannot suppress its input",
				"path", path,
				"name", name,
			)
		}
		if len(grabPaths) == 0 {
			logger.Warn("No grab-capable source devices detected; original input will not be suppressed")
		}
	} else {
		logger.Warn("Running without grab; original input will not be suppressed")
	}

	capabilities := buildUinputCapabilities(selection.Devices, grabPaths)
	id := evdev.InputID{
		BusType: uint16(evdev.BUS_VIRTUAL),
		Vendor:  0x1,
		Product: 0x1,
		Version: 1,
	}

	injectorDev, err := evdev.CreateDevice(virtualDeviceName, id, capabilities)
	if err != nil {
		return nil, fmt.Errorf("create uinput device: %w", err)
	}
	injector := &evdevInjector{dev: injectorDev}

	service, err := engine.NewService(cfg.Engine, injector, logger)
	if err != nil {
		_ = injector.Close()
		return nil, err
	}

	return &Runtime{
		sourceDevices: selection.Devices,
		grabPaths:     grabPaths,
		service:       service,
		injector:      injector,
		logger:        logger,
		eventsCh:      make(chan sourcedEvent, 256),
		stopCh:        make(chan struct{}),
	}, nil
}

func (r *Runtime) Service() *engine.Service {
	return r.service
}

func (r *Runtime) Start() error {
	grabbed := make([]*evdev.InputDevice, 0, len(r.grabPaths))
	for _, dev := range r.sourceDevices {
		if _, ok := r.grabPaths[dev.Path()]; !ok {
			continue
		}
		if err := dev.Grab(); err != nil {
			for _, device := range grabbed {
				_ = device.Ungrab()
			}
			return fmt.Errorf("grab %s: %w", dev.Path(), err)
		}
		grabbed = append(grabbed, dev)
		name, _ := dev.Name()
		r.logger.Info("Grabbed source device", "path", dev.Path(), "name", name)
	}

	for _, dev := range r.sourceDevices {
		if err := dev.NonBlock(); err != nil {
			for _, device := range grabbed {
				_ = device.Ungrab()
			}
			return fmt.Errorf("failed to set nonblocking mode for %s: %w", dev.Path(), err)
		}
	}

	r.loopWG.Add(1)
	go r.eventLoop()
	for _, dev := range r.sourceDevices {
		r.readersWG.Add(1)
		go r.readLoop(dev)
	}
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		for _, dev := range r.sourceDevices {
			if _, ok := r.grabPaths[dev.Path()]; !ok {
				continue
			}
			_ = dev.Ungrab()
		}
		for _, dev := range r.sourceDevices {
			_ = dev.Close()
		}
		r.readersWG.Wait()
		r.loopWG.Wait()
		r.service.Stop()
	})
}

func (r *Runtime) GrabEnabled() bool {
	return len(r.grabPaths) > 0
}

func (r *Runtime) readLoop(dev *evdev.InputDevice) {
	defer r.readersWG.Done()

	path := dev.Path()
	for {
		events, err := dev.ReadSlice(64)
		if err != nil {
			if r.stopped() || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !r.sleepWithStop(2 * time.Millisecond) {
					return
				}
				continue
			}
			r.logger.Warn("Read failed", "path", path, "err", err)
			if !r.sleepWithStop(100 * time.Millisecond) {
				return
			}
			continue
		}

		for _, event := range events {
			item := sourcedEvent{
				path: path,
				event: rawEvent{
					Type:  uint16(event.Type),
					Code:  uint16(event.Code),
					Value: event.Value,
				},
			}
			select {
			case <-r.stopCh:
				return
			case r.eventsCh <- item:
			}
		}
	}
}

// eventLoop is the only caller of HandleEvent, which keeps dispatch serial
// across devices.
func (r *Runtime) eventLoop() {
	defer r.loopWG.Done()

	for {
		select {
		case <-r.stopCh:
			return
		case item := <-r.eventsCh:
			r.handleEvent(item.path, item.event)
		}
	}
}

func (r *Runtime) handleEvent(path string, event rawEvent) {
	suppress := false
	if translated, ok := translate(event); ok {
		suppress = r.service.HandleEvent(translated)
	}

	if _, grabbed := r.grabPaths[path]; !grabbed || suppress {
		return
	}
	if err := r.passThrough(event); err != nil {
		r.logger.Debug("Pass-through failed", "path", path, "err", err)
	}
}

func (r *Runtime) passThrough(event rawEvent) error {
	switch event.Type {
	case evTypeKey, evTypeRel:
		return r.injector.forward(event)
	case evTypeSyn:
		if event.Code == synReport {
			return r.injector.forward(rawEvent{Type: evTypeSyn, Code: synReport})
		}
	}
	return nil
}

func (r *Runtime) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Runtime) sleepWithStop(duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-r.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// buildUinputCapabilities advertises everything grabbed devices can send plus
// every code a rule can emit.
func buildUinputCapabilities(
	sourceDevices []*evdev.InputDevice,
	grabPaths map[string]struct{},
) map[evdev.EvType][]evdev.EvCode {
	keyCodes := make(map[evdev.EvCode]struct{})
	for _, code := range outputKeyCodes() {
		keyCodes[evdev.EvCode(code)] = struct{}{}
	}
	relCodes := map[evdev.EvCode]struct{}{
		evdev.REL_X:     {},
		evdev.REL_Y:     {},
		evdev.REL_WHEEL: {},
	}

	for _, dev := range sourceDevices {
		if _, ok := grabPaths[dev.Path()]; !ok {
			continue
		}
		for _, code := range dev.CapableEvents(evdev.EV_KEY) {
			keyCodes[code] = struct{}{}
		}
		for _, code := range dev.CapableEvents(evdev.EV_REL) {
			relCodes[code] = struct{}{}
		}
	}

	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: sortedCodes(keyCodes),
		evdev.EV_REL: sortedCodes(relCodes),
	}
}

func sortedCodes(values map[evdev.EvCode]struct{}) []evdev.EvCode {
	codes := make([]evdev.EvCode, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i] < codes[j]
	})
	return codes
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
