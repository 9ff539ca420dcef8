//go:build windows

package wininput

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit = 0x0012

	keyTapHold = time.Millisecond
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")

	winmm = windows.NewLazySystemDLL("winmm.dll")

	procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = winmm.NewProc("timeEndPeriod")

	mouseHookCallback    = windows.NewCallback(mouseLLCallback)
	keyboardHookCallback = windows.NewCallback(keyboardLLCallback)

	activeRuntime atomic.Pointer[Runtime]
)

type point struct {
	X int32
	Y int32
}

type mouseLLHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keyboardLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

type windowsInjector struct {
	tag uintptr
}

func (i *windowsInjector) WriteEvents(events ...engine.Event) error {
	var pending []input
	for _, event := range events {
		now, later := encodeEvent(event, i.tag)
		pending = append(pending, now...)
		if len(later) == 0 {
			continue
		}
		if err := sendInputs(pending); err != nil {
			return err
		}
		time.Sleep(keyTapHold)
		pending = append(pending[:0], later...)
	}
	return sendInputs(pending)
}

func (i *windowsInjector) Close() error {
	return nil
}

func sendInputs(inputs []input) error {
	if len(inputs) == 0 {
		return nil
	}
	sent, _, callErr := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if sent != uintptr(len(inputs)) {
		if callErr != nil && callErr != syscall.Errno(0) {
			return callErr
		}
		return fmt.Errorf("SendInput sent %d of %d inputs", sent, len(inputs))
	}
	return nil
}

type Runtime struct {
	service   *engine.Service
	logger    engine.Logger
	tag       uintptr
	fineTimer bool

	stopOnce sync.Once

	threadID atomic.Uint32
	loopMu   sync.Mutex
	loopDone chan struct{}
}

func NewRuntime(cfg RuntimeConfig, logger engine.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	tag := processTag(windows.GetCurrentProcessId())
	service, err := engine.NewService(cfg.Engine, &windowsInjector{tag: tag}, logger)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		service:   service,
		logger:    logger,
		tag:       tag,
		fineTimer: cfg.FineTimer,
		loopDone:  closedSignalChan(),
	}, nil
}

func (r *Runtime) Service() *engine.Service {
	return r.service
}

func (r *Runtime) Start() error {
	if !activeRuntime.CompareAndSwap(nil, r) {
		return fmt.Errorf("windows runtime is already active")
	}

	if r.fineTimer {
		if ret, _, _ := procTimeBeginPeriod.Call(1); ret != 0 {
			r.logger.Warn("timer resolution unchanged", "result", ret)
			r.fineTimer = false
		}
	}

	r.loopMu.Lock()
	r.loopDone = make(chan struct{})
	r.loopMu.Unlock()

	ready := make(chan error, 1)
	go r.hookLoop(ready)

	if err := <-ready; err != nil {
		r.Stop()
		return err
	}
	r.logger.Info("windows hooks installed")
	return nil
}

func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		threadID := r.threadID.Load()
		if threadID != 0 {
			_, _, _ = procPostThreadMessageW.Call(uintptr(threadID), uintptr(wmQuit), 0, 0)
		}

		r.loopMu.Lock()
		done := r.loopDone
		r.loopMu.Unlock()
		if done != nil {
			<-done
		}

		r.service.Stop()
		if r.fineTimer {
			_, _, _ = procTimeEndPeriod.Call(1)
		}
		activeRuntime.CompareAndSwap(r, nil)
	})
}

func (r *Runtime) hookLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		r.loopMu.Lock()
		done := r.loopDone
		r.loopMu.Unlock()
		if done != nil {
			close(done)
		}
	}()
	defer activeRuntime.CompareAndSwap(r, nil)

	r.threadID.Store(windows.GetCurrentThreadId())

	mouseHook, _, mouseErr := procSetWindowsHookExW.Call(uintptr(whMouseLL), mouseHookCallback, 0, 0)
	if mouseHook == 0 {
		ready <- fmt.Errorf("failed to install mouse hook: %w", mouseErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(mouseHook)
	}()

	keyboardHook, _, keyboardErr := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), keyboardHookCallback, 0, 0)
	if keyboardHook == 0 {
		ready <- fmt.Errorf("failed to install keyboard hook: %w", keyboardErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(keyboardHook)
	}()

	ready <- nil

	var msg message
	for {
		ret, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			r.logger.Warn("Windows message loop failed", "err", callErr)
			return
		case 0:
			return
		default:
			_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

// Returning 1 from a low-level hook drops the event.
func mouseLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 && lParam != 0 {
		if r := activeRuntime.Load(); r != nil && r.handleMouseHook(wParam, lParam) {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func keyboardLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 && lParam != 0 {
		if r := activeRuntime.Load(); r != nil && r.handleKeyboardHook(wParam, lParam) {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func (r *Runtime) handleMouseHook(wParam uintptr, lParam uintptr) bool {
	info := (*mouseLLHookStruct)(unsafe.Pointer(lParam))
	event, ok := mouseEvent(uint32(wParam), info.MouseData, info.Flags, info.DwExtraInfo, r.tag)
	if !ok {
		return false
	}
	return r.service.HandleEvent(event)
}

func (r *Runtime) handleKeyboardHook(wParam uintptr, lParam uintptr) bool {
	info := (*keyboardLLHookStruct)(unsafe.Pointer(lParam))
	event, ok := keyboardEvent(uint32(wParam), info.VkCode, info.Flags, info.DwExtraInfo, r.tag)
	if !ok {
		return false
	}
	return r.service.HandleEvent(event)
}

func ListInputDevices() ([]DeviceInfo, error) {
	return []DeviceInfo{
		{
			Path:      "global",
			Name:      "Windows Global Input",
			IsVirtual: false,
			IsPointer: true,
		},
	}, nil
}

// CaptureNextKeyCode polls key state until a key or button goes down.
func CaptureNextKeyCode(timeout time.Duration) (keycode.Code, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	codes := captureCandidates()
	state := make(map[keycode.Code]bool, len(codes))
	for _, code := range codes {
		state[code] = isCodeDown(code)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		for _, code := range codes {
			down := isCodeDown(code)
			wasDown := state[code]
			state[code] = down
			if down && !wasDown {
				return code, nil
			}
		}

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("timed out waiting for key/button input")
		}

		<-ticker.C
	}
}

// captureCandidates skips the generic modifiers so the sided code is reported.
func captureCandidates() []keycode.Code {
	codes := make([]keycode.Code, 0, 0xFE)
	for vk := keycode.Code(1); vk <= 0xFE; vk++ {
		switch vk {
		case keycode.VKShift, keycode.VKControl, keycode.VKMenu:
			continue
		}
		codes = append(codes, vk)
	}
	return codes
}

func isCodeDown(code keycode.Code) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(code))
	return uint16(state)&0x8000 != 0
}

func closedSignalChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
