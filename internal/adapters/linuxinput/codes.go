package linuxinput

import (
	"sort"

	"github.com/PachudermPack/UniMacro/internal/core/engine"
	"github.com/PachudermPack/UniMacro/internal/core/keycode"
)

const (
	evTypeSyn uint16 = 0x00
	evTypeKey uint16 = 0x01
	evTypeRel uint16 = 0x02

	synReport uint16 = 0

	relWheel uint16 = 0x08

	evBtnLeft   uint16 = 0x110
	evBtnRight  uint16 = 0x111
	evBtnMiddle uint16 = 0x112
	evBtnSide   uint16 = 0x113
	evBtnExtra  uint16 = 0x114
)

const (
	evKeyEsc        uint16 = 1
	evKey1          uint16 = 2
	evKey2          uint16 = 3
	evKey3          uint16 = 4
	evKey4          uint16 = 5
	evKey5          uint16 = 6
	evKey6          uint16 = 7
	evKey7          uint16 = 8
	evKey8          uint16 = 9
	evKey9          uint16 = 10
	evKey0          uint16 = 11
	evKeyMinus      uint16 = 12
	evKeyEqual      uint16 = 13
	evKeyBackspace  uint16 = 14
	evKeyTab        uint16 = 15
	evKeyQ          uint16 = 16
	evKeyW          uint16 = 17
	evKeyE          uint16 = 18
	evKeyR          uint16 = 19
	evKeyT          uint16 = 20
	evKeyY          uint16 = 21
	evKeyU          uint16 = 22
	evKeyI          uint16 = 23
	evKeyO          uint16 = 24
	evKeyP          uint16 = 25
	evKeyLeftBrace  uint16 = 26
	evKeyRightBrace uint16 = 27
	evKeyEnter      uint16 = 28
	evKeyLeftCtrl   uint16 = 29
	evKeyA          uint16 = 30
	evKeyS          uint16 = 31
	evKeyD          uint16 = 32
	evKeyF          uint16 = 33
	evKeyG          uint16 = 34
	evKeyH          uint16 = 35
	evKeyJ          uint16 = 36
	evKeyK          uint16 = 37
	evKeyL          uint16 = 38
	evKeySemicolon  uint16 = 39
	evKeyApostrophe uint16 = 40
	evKeyGrave      uint16 = 41
	evKeyLeftShift  uint16 = 42
	evKeyBackslash  uint16 = 43
	evKeyZ          uint16 = 44
	evKeyX          uint16 = 45
	evKeyC          uint16 = 46
	evKeyV          uint16 = 47
	evKeyB          uint16 = 48
	evKeyN          uint16 = 49
	evKeyM          uint16 = 50
	evKeyComma      uint16 = 51
	evKeyDot        uint16 = 52
	evKeySlash      uint16 = 53
	evKeyRightShift uint16 = 54
	evKeyKPAsterisk uint16 = 55
	evKeyLeftAlt    uint16 = 56
	evKeySpace      uint16 = 57
	evKeyCapsLock   uint16 = 58
	evKeyF1         uint16 = 59
	evKeyF2         uint16 = 60
	evKeyF3         uint16 = 61
	evKeyF4         uint16 = 62
	evKeyF5         uint16 = 63
	evKeyF6         uint16 = 64
	evKeyF7         uint16 = 65
	evKeyF8         uint16 = 66
	evKeyF9         uint16 = 67
	evKeyF10        uint16 = 68
	evKeyNumLock    uint16 = 69
	evKeyScrollLock uint16 = 70
	evKeyKP7        uint16 = 71
	evKeyKP8        uint16 = 72
	evKeyKP9        uint16 = 73
	evKeyKPMinus    uint16 = 74
	evKeyKP4        uint16 = 75
	evKeyKP5        uint16 = 76
	evKeyKP6        uint16 = 77
	evKeyKPPlus     uint16 = 78
	evKeyKP1        uint16 = 79
	evKeyKP2        uint16 = 80
	evKeyKP3        uint16 = 81
	evKeyKP0        uint16 = 82
	evKeyKPDot      uint16 = 83
	evKeyF11        uint16 = 87
	evKeyF12        uint16 = 88
	evKeyKPEnter    uint16 = 96
	evKeyRightCtrl  uint16 = 97
	evKeyKPSlash    uint16 = 98
	evKeySysRq      uint16 = 99
	evKeyRightAlt   uint16 = 100
	evKeyHome       uint16 = 102
	evKeyUp         uint16 = 103
	evKeyPageUp     uint16 = 104
	evKeyLeft       uint16 = 105
	evKeyRight      uint16 = 106
	evKeyEnd        uint16 = 107
	evKeyDown       uint16 = 108
	evKeyPageDown   uint16 = 109
	evKeyInsert     uint16 = 110
	evKeyDelete     uint16 = 111
	evKeyMute       uint16 = 113
	evKeyVolumeDown uint16 = 114
	evKeyVolumeUp   uint16 = 115
	evKeyPause      uint16 = 119
	evKeyLeftMeta   uint16 = 125
	evKeyRightMeta  uint16 = 126
	evKeyMenu       uint16 = 139
	evKeyF13        uint16 = 183
	evKeyF14        uint16 = 184
	evKeyF15        uint16 = 185
	evKeyF16        uint16 = 186
	evKeyF17        uint16 = 187
	evKeyF18        uint16 = 188
	evKeyF19        uint16 = 189
	evKeyF20        uint16 = 190
	evKeyF21        uint16 = 191
	evKeyF22        uint16 = 192
	evKeyF23        uint16 = 193
	evKeyF24        uint16 = 194
)

// evdevToVK covers the keyboard; mouse buttons and the wheel are handled
// separately because their output codes differ from what the engine observes.
var evdevToVK = map[uint16]keycode.Code{
	evKeyEsc:        keycode.VKEscape,
	evKey1:          keycode.VK1,
	evKey2:          keycode.VK2,
	evKey3:          keycode.VK3,
	evKey4:          keycode.VK4,
	evKey5:          keycode.VK5,
	evKey6:          keycode.VK6,
	evKey7:          keycode.VK7,
	evKey8:          keycode.VK8,
	evKey9:          keycode.VK9,
	evKey0:          keycode.VK0,
	evKeyMinus:      keycode.VKOEMMinus,
	evKeyEqual:      keycode.VKOEMPlus,
	evKeyBackspace:  keycode.VKBack,
	evKeyTab:        keycode.VKTab,
	evKeyQ:          keycode.VKQ,
	evKeyW:          keycode.VKW,
	evKeyE:          keycode.VKE,
	evKeyR:          keycode.VKR,
	evKeyT:          keycode.VKT,
	evKeyY:          keycode.VKY,
	evKeyU:          keycode.VKU,
	evKeyI:          keycode.VKI,
	evKeyO:          keycode.VKO,
	evKeyP:          keycode.VKP,
	evKeyLeftBrace:  keycode.VKOEM4,
	evKeyRightBrace: keycode.VKOEM6,
	evKeyEnter:      keycode.VKReturn,
	evKeyLeftCtrl:   keycode.VKLControl,
	evKeyA:          keycode.VKA,
	evKeyS:          keycode.VKS,
	evKeyD:          keycode.VKD,
	evKeyF:          keycode.VKF,
	evKeyG:          keycode.VKG,
	evKeyH:          keycode.VKH,
	evKeyJ:          keycode.VKJ,
	evKeyK:          keycode.VKK,
	evKeyL:          keycode.VKL,
	evKeySemicolon:  keycode.VKOEM1,
	evKeyApostrophe: keycode.VKOEM7,
	evKeyGrave:      keycode.VKOEM3,
	evKeyLeftShift:  keycode.VKLShift,
	evKeyBackslash:  keycode.VKOEM5,
	evKeyZ:          keycode.VKZ,
	evKeyX:          keycode.VKX,
	evKeyC:          keycode.VKC,
	evKeyV:          keycode.VKV,
	evKeyB:          keycode.VKB,
	evKeyN:          keycode.VKN,
	evKeyM:          keycode.VKM,
	evKeyComma:      keycode.VKOEMComma,
	evKeyDot:        keycode.VKOEMPeriod,
	evKeySlash:      keycode.VKOEM2,
	evKeyRightShift: keycode.VKRShift,
	evKeyKPAsterisk: keycode.VKMultiply,
	evKeyLeftAlt:    keycode.VKLMenu,
	evKeySpace:      keycode.VKSpace,
	evKeyCapsLock:   keycode.VKCapital,
	evKeyF1:         keycode.VKF1,
	evKeyF2:         keycode.VKF1 + 1,
	evKeyF3:         keycode.VKF1 + 2,
	evKeyF4:         keycode.VKF1 + 3,
	evKeyF5:         keycode.VKF1 + 4,
	evKeyF6:         keycode.VKF1 + 5,
	evKeyF7:         keycode.VKF1 + 6,
	evKeyF8:         keycode.VKF1 + 7,
	evKeyF9:         keycode.VKF1 + 8,
	evKeyF10:        keycode.VKF1 + 9,
	evKeyNumLock:    keycode.VKNumLock,
	evKeyScrollLock: keycode.VKScroll,
	evKeyKP7:        keycode.VKNumpad7,
	evKeyKP8:        keycode.VKNumpad8,
	evKeyKP9:        keycode.VKNumpad9,
	evKeyKPMinus:    keycode.VKSubtract,
	evKeyKP4:        keycode.VKNumpad4,
	evKeyKP5:        keycode.VKNumpad5,
	evKeyKP6:        keycode.VKNumpad6,
	evKeyKPPlus:     keycode.VKAdd,
	evKeyKP1:        keycode.VKNumpad1,
	evKeyKP2:        keycode.VKNumpad2,
	evKeyKP3:        keycode.VKNumpad3,
	evKeyKP0:        keycode.VKNumpad0,
	evKeyKPDot:      keycode.VKDecimal,
	evKeyF11:        keycode.VKF1 + 10,
	evKeyF12:        keycode.VKF1 + 11,
	evKeyKPEnter:    keycode.VKReturn,
	evKeyRightCtrl:  keycode.VKRControl,
	evKeyKPSlash:    keycode.VKDivide,
	evKeySysRq:      keycode.VKSnapshot,
	evKeyRightAlt:   keycode.VKRMenu,
	evKeyHome:       keycode.VKHome,
	evKeyUp:         keycode.VKUp,
	evKeyPageUp:     keycode.VKPrior,
	evKeyLeft:       keycode.VKLeft,
	evKeyRight:      keycode.VKRight,
	evKeyEnd:        keycode.VKEnd,
	evKeyDown:       keycode.VKDown,
	evKeyPageDown:   keycode.VKNext,
	evKeyInsert:     keycode.VKInsert,
	evKeyDelete:     keycode.VKDelete,
	evKeyMute:       keycode.VKVolumeMute,
	evKeyVolumeDown: keycode.VKVolumeDown,
	evKeyVolumeUp:   keycode.VKVolumeUp,
	evKeyPause:      keycode.VKPause,
	evKeyLeftMeta:   keycode.VKLWin,
	evKeyRightMeta:  keycode.VKRWin,
	evKeyMenu:       keycode.VKApps,
	evKeyF13:        keycode.VKF1 + 12,
	evKeyF14:        keycode.VKF1 + 13,
	evKeyF15:        keycode.VKF1 + 14,
	evKeyF16:        keycode.VKF1 + 15,
	evKeyF17:        keycode.VKF1 + 16,
	evKeyF18:        keycode.VKF1 + 17,
	evKeyF19:        keycode.VKF1 + 18,
	evKeyF20:        keycode.VKF1 + 19,
	evKeyF21:        keycode.VKF1 + 20,
	evKeyF22:        keycode.VKF1 + 21,
	evKeyF23:        keycode.VKF1 + 22,
	evKeyF24:        keycode.VKF1 + 23,
}

var vkToEvdev map[keycode.Code]uint16

func init() {
	codes := make([]uint16, 0, len(evdevToVK))
	for code := range evdevToVK {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	vkToEvdev = make(map[keycode.Code]uint16, len(evdevToVK)+3)
	for _, code := range codes {
		vk := evdevToVK[code]
		if _, exists := vkToEvdev[vk]; exists {
			continue
		}
		vkToEvdev[vk] = code
	}
	vkToEvdev[keycode.VKShift] = evKeyLeftShift
	vkToEvdev[keycode.VKControl] = evKeyLeftCtrl
	vkToEvdev[keycode.VKMenu] = evKeyLeftAlt
}

var buttonToVK = map[uint16]keycode.Code{
	evBtnLeft:   keycode.VKLButton,
	evBtnRight:  keycode.VKRButton,
	evBtnMiddle: keycode.VKMButton,
	evBtnSide:   keycode.VKXButton1,
	evBtnExtra:  keycode.VKXButton2,
}

var targetButtons = map[keycode.Code]uint16{
	keycode.MouseLeft:   evBtnLeft,
	keycode.VKLButton:   evBtnLeft,
	keycode.MouseRight:  evBtnRight,
	keycode.VKRButton:   evBtnRight,
	keycode.MouseMiddle: evBtnMiddle,
	keycode.Mouse4:      evBtnSide,
	keycode.Mouse5:      evBtnExtra,
}

// rawEvent is an input_event without its timestamp.
type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// translate turns an evdev event into an engine event. Key repeats (value 2)
// count as downs.
func translate(ev rawEvent) (engine.Event, bool) {
	switch ev.Type {
	case evTypeKey:
		code, ok := buttonToVK[ev.Code]
		if !ok {
			code, ok = evdevToVK[ev.Code]
		}
		if !ok {
			return engine.Event{}, false
		}
		transition := engine.TransitionDown
		if ev.Value == 0 {
			transition = engine.TransitionUp
		}
		return engine.Event{Code: code, Transition: transition}, true
	case evTypeRel:
		if ev.Code != relWheel || ev.Value == 0 {
			return engine.Event{}, false
		}
		code := keycode.WheelUp
		if ev.Value < 0 {
			code = keycode.WheelDown
		}
		return engine.Event{Code: code, Transition: engine.TransitionDown}, true
	}
	return engine.Event{}, false
}

// encode renders a synthetic event as evdev events, each batch closed by a
// SYN_REPORT. Clicks are two reports so the press is observable.
func encode(ev engine.Event) []rawEvent {
	switch ev.Code {
	case keycode.WheelUp, keycode.WheelDown:
		if ev.Transition == engine.TransitionUp {
			return nil
		}
		value := int32(1)
		if ev.Code == keycode.WheelDown {
			value = -1
		}
		return []rawEvent{
			{Type: evTypeRel, Code: relWheel, Value: value},
			{Type: evTypeSyn, Code: synReport},
		}
	}

	code, ok := targetButtons[ev.Code]
	if !ok {
		code, ok = vkToEvdev[ev.Code]
	}
	if !ok {
		return nil
	}

	switch ev.Transition {
	case engine.TransitionDown:
		return []rawEvent{{Type: evTypeKey, Code: code, Value: 1}, {Type: evTypeSyn, Code: synReport}}
	case engine.TransitionUp:
		return []rawEvent{{Type: evTypeKey, Code: code, Value: 0}, {Type: evTypeSyn, Code: synReport}}
	default:
		return []rawEvent{
			{Type: evTypeKey, Code: code, Value: 1}, {Type: evTypeSyn, Code: synReport},
			{Type: evTypeKey, Code: code, Value: 0}, {Type: evTypeSyn, Code: synReport},
		}
	}
}

// outputKeyCodes lists every EV_KEY code encode can produce.
func outputKeyCodes() []uint16 {
	seen := make(map[uint16]struct{}, len(vkToEvdev)+len(targetButtons))
	for _, code := range vkToEvdev {
		seen[code] = struct{}{}
	}
	for _, code := range targetButtons {
		seen[code] = struct{}{}
	}
	codes := make([]uint16, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
