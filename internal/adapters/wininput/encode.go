package wininput

import (
	"unsafe"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfXDown      = 0x0080
	mouseeventfXUp        = 0x0100
	mouseeventfWheel      = 0x0800

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002

	wheelDelta = 120
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors INPUT. The union is sized by its largest member, MOUSEINPUT;
// keyboard records overlay keybdInput onto it.
type input struct {
	Type uint32
	Mi   mouseInput
}

func (in *input) keyboard() *keybdInput {
	return (*keybdInput)(unsafe.Pointer(&in.Mi))
}

func mouseRecord(flags uint32, data uint32, tag uintptr) input {
	return input{
		Type: inputMouse,
		Mi: mouseInput{
			MouseData:   data,
			DwFlags:     flags,
			DwExtraInfo: tag,
		},
	}
}

func keyRecord(vk keycode.Code, up bool, tag uintptr) input {
	rec := input{Type: inputKeyboard}
	ki := rec.keyboard()
	ki.WVk = uint16(vk)
	ki.DwExtraInfo = tag
	if extendedKeys[vk] {
		ki.DwFlags |= keyeventfExtendedKey
	}
	if up {
		ki.DwFlags |= keyeventfKeyUp
	}
	return rec
}

var extendedKeys = map[keycode.Code]bool{
	keycode.VKPrior:    true,
	keycode.VKNext:     true,
	keycode.VKEnd:      true,
	keycode.VKHome:     true,
	keycode.VKLeft:     true,
	keycode.VKUp:       true,
	keycode.VKRight:    true,
	keycode.VKDown:     true,
	keycode.VKSnapshot: true,
	keycode.VKInsert:   true,
	keycode.VKDelete:   true,
	keycode.VKLWin:     true,
	keycode.VKRWin:     true,
	keycode.VKApps:     true,
	keycode.VKDivide:   true,
	keycode.VKNumLock:  true,
	keycode.VKRControl: true,
	keycode.VKRMenu:    true,
}

type buttonFlags struct {
	down uint32
	up   uint32
	data uint32
}

func mouseButton(code keycode.Code) (buttonFlags, bool) {
	switch code {
	case keycode.MouseLeft, keycode.VKLButton:
		return buttonFlags{down: mouseeventfLeftDown, up: mouseeventfLeftUp}, true
	case keycode.MouseRight, keycode.VKRButton:
		return buttonFlags{down: mouseeventfRightDown, up: mouseeventfRightUp}, true
	case keycode.MouseMiddle:
		return buttonFlags{down: mouseeventfMiddleDown, up: mouseeventfMiddleUp}, true
	case keycode.Mouse4:
		return buttonFlags{down: mouseeventfXDown, up: mouseeventfXUp, data: xButton1}, true
	case keycode.Mouse5:
		return buttonFlags{down: mouseeventfXDown, up: mouseeventfXUp, data: xButton2}, true
	}
	return buttonFlags{}, false
}

// encodeEvent converts one synthetic event into INPUT records. Records in
// later are sent after a short pause; only keyboard clicks use it.
func encodeEvent(ev engine.Event, tag uintptr) (now []input, later []input) {
	switch ev.Code {
	case keycode.WheelUp, keycode.WheelDown:
		if ev.Transition == engine.TransitionUp {
			return nil, nil
		}
		delta := int32(wheelDelta)
		if ev.Code == keycode.WheelDown {
			delta = -delta
		}
		return []input{mouseRecord(mouseeventfWheel, uint32(delta), tag)}, nil
	}

	if button, ok := mouseButton(ev.Code); ok {
		switch ev.Transition {
		case engine.TransitionDown:
			return []input{mouseRecord(button.down, button.data, tag)}, nil
		case engine.TransitionUp:
			return []input{mouseRecord(button.up, button.data, tag)}, nil
		default:
			return []input{
				mouseRecord(button.down, button.data, tag),
				mouseRecord(button.up, button.data, tag),
			}, nil
		}
	}

	if ev.Code == 0 || ev.Code > 0xFE {
		return nil, nil
	}
	switch ev.Transition {
	case engine.TransitionDown:
		return []input{keyRecord(ev.Code, false, tag)}, nil
	case engine.TransitionUp:
		return []input{keyRecord(ev.Code, true, tag)}, nil
	default:
		return []input{keyRecord(ev.Code, false, tag)}, []input{keyRecord(ev.Code, true, tag)}
	}
}
