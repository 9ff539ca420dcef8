package wininput

import (
	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

const (
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	xButton1 = 0x0001
	xButton2 = 0x0002

	llmhfInjected        = 0x00000001
	llkhfInjected        = 0x00000010
	llkhfLowerILInjected = 0x00000002
)

// processTag is stamped into dwExtraInfo of every input this process sends.
func processTag(pid uint32) uintptr {
	return uintptr(0x554D0000) | uintptr(pid&0xFFFF)
}

// keyboardEvent translates a WH_KEYBOARD_LL message. Only input carrying our
// own tag counts as injected.
func keyboardEvent(msg uint32, vk uint32, flags uint32, extra uintptr, tag uintptr) (engine.Event, bool) {
	var transition engine.Transition
	switch msg {
	case wmKeyDown, wmSysKeyDown:
		transition = engine.TransitionDown
	case wmKeyUp, wmSysKeyUp:
		transition = engine.TransitionUp
	default:
		return engine.Event{}, false
	}
	if vk == 0 || vk > 0xFE {
		return engine.Event{}, false
	}

	injected := flags&(llkhfInjected|llkhfLowerILInjected) != 0 && extra == tag
	return engine.Event{
		Code:       keycode.Code(vk),
		Transition: transition,
		Injected:   injected,
	}, true
}

// mouseEvent translates a WH_MOUSE_LL message. Buttons report their
// virtual-key codes; the wheel reports a direction code as a single down.
func mouseEvent(msg uint32, mouseData uint32, flags uint32, extra uintptr, tag uintptr) (engine.Event, bool) {
	var (
		code       keycode.Code
		transition engine.Transition
	)
	switch msg {
	case wmLButtonDown:
		code, transition = keycode.VKLButton, engine.TransitionDown
	case wmLButtonUp:
		code, transition = keycode.VKLButton, engine.TransitionUp
	case wmRButtonDown:
		code, transition = keycode.VKRButton, engine.TransitionDown
	case wmRButtonUp:
		code, transition = keycode.VKRButton, engine.TransitionUp
	case wmMButtonDown:
		code, transition = keycode.VKMButton, engine.TransitionDown
	case wmMButtonUp:
		code, transition = keycode.VKMButton, engine.TransitionUp
	case wmXButtonDown:
		code, transition = xButtonCode(mouseData), engine.TransitionDown
	case wmXButtonUp:
		code, transition = xButtonCode(mouseData), engine.TransitionUp
	case wmMouseWheel:
		transition = engine.TransitionDown
		if int16(mouseData>>16) > 0 {
			code = keycode.WheelUp
		} else {
			code = keycode.WheelDown
		}
	default:
		return engine.Event{}, false
	}
	if code == 0 {
		return engine.Event{}, false
	}

	return engine.Event{
		Code:       code,
		Transition: transition,
		Injected:   flags&llmhfInjected != 0 && extra == tag,
	}, true
}

func xButtonCode(mouseData uint32) keycode.Code {
	switch uint16(mouseData >> 16) {
	case xButton1:
		return keycode.VKXButton1
	case xButton2:
		return keycode.VKXButton2
	default:
		return 0
	}
}
