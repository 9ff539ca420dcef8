package keycode

import (
	"sort"
	"strconv"
)

// Code identifies a physical input. Keyboard keys use Windows virtual-key
// numbering; mouse buttons and wheel directions use the reserved codes below.
type Code uint16

// Reserved codes for inputs without a usable virtual-key identity in rule
// files. Middle and side buttons share their virtual-key value.
const (
	MouseLeft   Code = 253
	MouseRight  Code = 252
	MouseMiddle Code = 4
	Mouse4      Code = 5
	Mouse5      Code = 6
	WheelUp     Code = 254
	WheelDown   Code = 255
)

const (
	VKLButton  Code = 0x01
	VKRButton  Code = 0x02
	VKMButton  Code = 0x04
	VKXButton1 Code = 0x05
	VKXButton2 Code = 0x06

	VKBack       Code = 0x08
	VKTab        Code = 0x09
	VKReturn     Code = 0x0D
	VKShift      Code = 0x10
	VKControl    Code = 0x11
	VKMenu       Code = 0x12
	VKPause      Code = 0x13
	VKCapital    Code = 0x14
	VKEscape     Code = 0x1B
	VKSpace      Code = 0x20
	VKPrior      Code = 0x21
	VKNext       Code = 0x22
	VKEnd        Code = 0x23
	VKHome       Code = 0x24
	VKLeft       Code = 0x25
	VKUp         Code = 0x26
	VKRight      Code = 0x27
	VKDown       Code = 0x28
	VKSnapshot   Code = 0x2C
	VKInsert     Code = 0x2D
	VKDelete     Code = 0x2E
	VK0          Code = 0x30
	VK1          Code = 0x31
	VK2          Code = 0x32
	VK3          Code = 0x33
	VK4          Code = 0x34
	VK5          Code = 0x35
	VK6          Code = 0x36
	VK7          Code = 0x37
	VK8          Code = 0x38
	VK9          Code = 0x39
	VKA          Code = 0x41
	VKB          Code = 0x42
	VKC          Code = 0x43
	VKD          Code = 0x44
	VKE          Code = 0x45
	VKF          Code = 0x46
	VKG          Code = 0x47
	VKH          Code = 0x48
	VKI          Code = 0x49
	VKJ          Code = 0x4A
	VKK          Code = 0x4B
	VKL          Code = 0x4C
	VKM          Code = 0x4D
	VKN          Code = 0x4E
	VKO          Code = 0x4F
	VKP          Code = 0x50
	VKQ          Code = 0x51
	VKR          Code = 0x52
	VKS          Code = 0x53
	VKT          Code = 0x54
	VKU          Code = 0x55
	VKV          Code = 0x56
	VKW          Code = 0x57
	VKX          Code = 0x58
	VKY          Code = 0x59
	VKZ          Code = 0x5A
	VKLWin       Code = 0x5B
	VKRWin       Code = 0x5C
	VKApps       Code = 0x5D
	VKNumpad0    Code = 0x60
	VKNumpad1    Code = 0x61
	VKNumpad2    Code = 0x62
	VKNumpad3    Code = 0x63
	VKNumpad4    Code = 0x64
	VKNumpad5    Code = 0x65
	VKNumpad6    Code = 0x66
	VKNumpad7    Code = 0x67
	VKNumpad8    Code = 0x68
	VKNumpad9    Code = 0x69
	VKMultiply   Code = 0x6A
	VKAdd        Code = 0x6B
	VKSubtract   Code = 0x6D
	VKDecimal    Code = 0x6E
	VKDivide     Code = 0x6F
	VKF1         Code = 0x70
	VKF12        Code = 0x7B
	VKF13        Code = 0x7C
	VKF24        Code = 0x87
	VKNumLock    Code = 0x90
	VKScroll     Code = 0x91
	VKLShift     Code = 0xA0
	VKRShift     Code = 0xA1
	VKLControl   Code = 0xA2
	VKRControl   Code = 0xA3
	VKLMenu      Code = 0xA4
	VKRMenu      Code = 0xA5
	VKVolumeMute Code = 0xAD
	VKVolumeDown Code = 0xAE
	VKVolumeUp   Code = 0xAF
	VKOEM1       Code = 0xBA
	VKOEMPlus    Code = 0xBB
	VKOEMComma   Code = 0xBC
	VKOEMMinus   Code = 0xBD
	VKOEMPeriod  Code = 0xBE
	VKOEM2       Code = 0xBF
	VKOEM3       Code = 0xC0
	VKOEM4       Code = 0xDB
	VKOEM5       Code = 0xDC
	VKOEM6       Code = 0xDD
	VKOEM7       Code = 0xDE
)

// FunctionKey returns the code of F<n> for n in 1..24.
func FunctionKey(n int) (Code, bool) {
	if n < 1 || n > 24 {
		return 0, false
	}
	return VKF1 + Code(n-1), true
}

var mouseAliases = map[string]Code{
	"lmb":             MouseLeft,
	"mouse1":          MouseLeft,
	"rmb":             MouseRight,
	"mouse2":          MouseRight,
	"mmb":             MouseMiddle,
	"mouse3":          MouseMiddle,
	"mouse_middle":    MouseMiddle,
	"mouse4":          Mouse4,
	"mouse5":          Mouse5,
	"mousewheel_up":   WheelUp,
	"mousewheel_down": WheelDown,
}

var namedKeys = map[string]Code{
	"space":     VKSpace,
	"shift":     VKShift,
	"ctrl":      VKControl,
	"control":   VKControl,
	"alt":       VKMenu,
	"enter":     VKReturn,
	"return":    VKReturn,
	"esc":       VKEscape,
	"escape":    VKEscape,
	"tab":       VKTab,
	"backspace": VKBack,
	"capslock":  VKCapital,

	"lshift":      VKLShift,
	"rshift":      VKRShift,
	"lctrl":       VKLControl,
	"rctrl":       VKRControl,
	"lalt":        VKLMenu,
	"ralt":        VKRMenu,
	"win":         VKLWin,
	"lwin":        VKLWin,
	"rwin":        VKRWin,
	"menu":        VKApps,
	"up":          VKUp,
	"down":        VKDown,
	"left":        VKLeft,
	"right":       VKRight,
	"home":        VKHome,
	"end":         VKEnd,
	"pageup":      VKPrior,
	"pagedown":    VKNext,
	"insert":      VKInsert,
	"delete":      VKDelete,
	"pause":       VKPause,
	"printscreen": VKSnapshot,
	"numlock":     VKNumLock,
	"scrolllock":  VKScroll,
	"numpad0":     VKNumpad0,
	"numpad1":     VKNumpad1,
	"numpad2":     VKNumpad2,
	"numpad3":     VKNumpad3,
	"numpad4":     VKNumpad4,
	"numpad5":     VKNumpad5,
	"numpad6":     VKNumpad6,
	"numpad7":     VKNumpad7,
	"numpad8":     VKNumpad8,
	"numpad9":     VKNumpad9,
}

var codeToName = map[Code]string{
	MouseLeft:   "LMB",
	MouseRight:  "RMB",
	MouseMiddle: "MMB",
	Mouse4:      "Mouse4",
	Mouse5:      "Mouse5",
	WheelUp:     "MouseWheel_Up",
	WheelDown:   "MouseWheel_Down",
	VKLButton:   "LMB",
	VKRButton:   "RMB",

	VKSpace:    "Space",
	VKShift:    "Shift",
	VKControl:  "Ctrl",
	VKMenu:     "Alt",
	VKReturn:   "Enter",
	VKEscape:   "Esc",
	VKTab:      "Tab",
	VKBack:     "Backspace",
	VKCapital:  "CapsLock",
	VKLShift:   "LShift",
	VKRShift:   "RShift",
	VKLControl: "LCtrl",
	VKRControl: "RCtrl",
	VKLMenu:    "LAlt",
	VKRMenu:    "RAlt",
	VKLWin:     "LWin",
	VKRWin:     "RWin",
	VKApps:     "Menu",
	VKUp:       "Up",
	VKDown:     "Down",
	VKLeft:     "Left",
	VKRight:    "Right",
	VKHome:     "Home",
	VKEnd:      "End",
	VKPrior:    "PageUp",
	VKNext:     "PageDown",
	VKInsert:   "Insert",
	VKDelete:   "Delete",
	VKPause:    "Pause",
	VKSnapshot: "PrintScreen",
	VKNumLock:  "NumLock",
	VKScroll:   "ScrollLock",
}

// FormatName renders a code for logs and status output.
func FormatName(code Code) string {
	if name, ok := codeToName[code]; ok {
		return name
	}
	switch {
	case code >= VKA && code <= VKZ, code >= VK0 && code <= VK9:
		return string(rune(code))
	case code >= VKF1 && code <= VKF24:
		return "F" + strconv.Itoa(int(code-VKF1)+1)
	case code >= VKNumpad0 && code <= VKNumpad9:
		return "Numpad" + strconv.Itoa(int(code-VKNumpad0))
	}
	return strconv.Itoa(int(code))
}

// Names lists every built-in symbolic name, sorted.
func Names() []string {
	names := make([]string, 0, len(mouseAliases)+len(namedKeys)+24+36)
	for name := range mouseAliases {
		names = append(names, name)
	}
	for name := range namedKeys {
		names = append(names, name)
	}
	for n := 1; n <= 24; n++ {
		names = append(names, "f"+strconv.Itoa(n))
	}
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}
