// Package keycode defines the physical/synthetic key code enumeration and
// the event sum type the remapping engine consumes and produces.
package keycode

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// KeyCode is a Linux evdev key code. The numeric values match
// linux/input-event-codes.h so a KeyCode can be written straight to a
// uinput device or compared against a code read from an evdev device.
// The natural integer order is the total order required for
// deterministic trigger tie-breaking.
type KeyCode uint16

// Key codes from linux/input-event-codes.h, limited to the codes this
// engine and its test suite reference.
const (
	KeyReserved KeyCode = 0
	KeyEsc      KeyCode = 1
	KeyK1       KeyCode = 2
	KeyK2       KeyCode = 3
	KeyK3       KeyCode = 4
	KeyK4       KeyCode = 5
	KeyK5       KeyCode = 6
	KeyK6       KeyCode = 7
	KeyK7       KeyCode = 8
	KeyK8       KeyCode = 9
	KeyK9       KeyCode = 10
	KeyK0       KeyCode = 11

	KeyMinus     KeyCode = 12
	KeyEqual     KeyCode = 13
	KeyBackspace KeyCode = 14
	KeyTab       KeyCode = 15

	KeyQ KeyCode = 16
	KeyW KeyCode = 17
	KeyE KeyCode = 18
	KeyR KeyCode = 19
	KeyT KeyCode = 20
	KeyY KeyCode = 21
	KeyU KeyCode = 22
	KeyI KeyCode = 23
	KeyO KeyCode = 24
	KeyP KeyCode = 25

	KeyLeftBrace  KeyCode = 26
	KeyRightBrace KeyCode = 27
	KeyEnter      KeyCode = 28
	KeyLeftCtrl   KeyCode = 29

	KeyA KeyCode = 30
	KeyS KeyCode = 31
	KeyD KeyCode = 32
	KeyF KeyCode = 33
	KeyG KeyCode = 34
	KeyH KeyCode = 35
	KeyJ KeyCode = 36
	KeyK KeyCode = 37
	KeyL KeyCode = 38

	KeySemicolon  KeyCode = 39
	KeyApostrophe KeyCode = 40
	KeyGrave      KeyCode = 41
	KeyLeftShift  KeyCode = 42
	KeyBackslash  KeyCode = 43

	KeyZ KeyCode = 44
	KeyX KeyCode = 45
	KeyC KeyCode = 46
	KeyV KeyCode = 47
	KeyB KeyCode = 48
	KeyN KeyCode = 49
	KeyM KeyCode = 50

	KeyComma     KeyCode = 51
	KeyDot       KeyCode = 52
	KeySlash     KeyCode = 53
	KeyRightShift KeyCode = 54
	KeyKpAsterisk KeyCode = 55
	KeyLeftAlt    KeyCode = 56
	KeySpace      KeyCode = 57
	KeyCapsLock   KeyCode = 58

	KeyF1  KeyCode = 59
	KeyF2  KeyCode = 60
	KeyF3  KeyCode = 61
	KeyF4  KeyCode = 62
	KeyF5  KeyCode = 63
	KeyF6  KeyCode = 64
	KeyF7  KeyCode = 65
	KeyF8  KeyCode = 66
	KeyF9  KeyCode = 67
	KeyF10 KeyCode = 68

	Key102nd KeyCode = 86
	KeyF11   KeyCode = 87
	KeyF12   KeyCode = 88

	KeyRightCtrl KeyCode = 97
	KeyRightAlt  KeyCode = 100

	KeyHome     KeyCode = 102
	KeyUp       KeyCode = 103
	KeyPageUp   KeyCode = 104
	KeyLeft     KeyCode = 105
	KeyRight    KeyCode = 106
	KeyEnd      KeyCode = 107
	KeyDown     KeyCode = 108
	KeyPageDown KeyCode = 109
	KeyInsert   KeyCode = 110
	KeyDelete   KeyCode = 111

	KeyLeftMeta  KeyCode = 125
	KeyRightMeta KeyCode = 126

	KeyF13 KeyCode = 183
	KeyF14 KeyCode = 184
	KeyF15 KeyCode = 185
	KeyF16 KeyCode = 186
	KeyF17 KeyCode = 187
	KeyF18 KeyCode = 188
	KeyF19 KeyCode = 189
	KeyF20 KeyCode = 190
	KeyF21 KeyCode = 191
	KeyF22 KeyCode = 192
	KeyF23 KeyCode = 193
	KeyF24 KeyCode = 194
)

// Names maps a KeyCode to its lowercase evdev-style name, used by the
// layout YAML codec and by log output.
var Names = map[KeyCode]string{
	KeyEsc: "esc", KeyK1: "1", KeyK2: "2", KeyK3: "3", KeyK4: "4", KeyK5: "5",
	KeyK6: "6", KeyK7: "7", KeyK8: "8", KeyK9: "9", KeyK0: "0",
	KeyMinus: "minus", KeyEqual: "equal", KeyBackspace: "backspace", KeyTab: "tab",
	KeyQ: "q", KeyW: "w", KeyE: "e", KeyR: "r", KeyT: "t", KeyY: "y", KeyU: "u",
	KeyI: "i", KeyO: "o", KeyP: "p",
	KeyLeftBrace: "leftbrace", KeyRightBrace: "rightbrace", KeyEnter: "enter",
	KeyLeftCtrl: "leftctrl",
	KeyA: "a", KeyS: "s", KeyD: "d", KeyF: "f", KeyG: "g", KeyH: "h", KeyJ: "j",
	KeyK: "k", KeyL: "l",
	KeySemicolon: "semicolon", KeyApostrophe: "apostrophe", KeyGrave: "grave",
	KeyLeftShift: "leftshift", KeyBackslash: "backslash",
	KeyZ: "z", KeyX: "x", KeyC: "c", KeyV: "v", KeyB: "b", KeyN: "n", KeyM: "m",
	KeyComma: "comma", KeyDot: "dot", KeySlash: "slash",
	KeyRightShift: "rightshift", KeyKpAsterisk: "kpasterisk", KeyLeftAlt: "leftalt",
	KeySpace: "space", KeyCapsLock: "capslock",
	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4", KeyF5: "f5",
	KeyF6: "f6", KeyF7: "f7", KeyF8: "f8", KeyF9: "f9", KeyF10: "f10",
	Key102nd: "102nd", KeyF11: "f11", KeyF12: "f12",
	KeyRightCtrl: "rightctrl", KeyRightAlt: "rightalt",
	KeyHome: "home", KeyUp: "up", KeyPageUp: "pageup", KeyLeft: "left",
	KeyRight: "right", KeyEnd: "end", KeyDown: "down", KeyPageDown: "pagedown",
	KeyInsert: "insert", KeyDelete: "delete",
	KeyLeftMeta: "leftmeta", KeyRightMeta: "rightmeta",
	KeyF13: "f13", KeyF14: "f14", KeyF15: "f15", KeyF16: "f16", KeyF17: "f17",
	KeyF18: "f18", KeyF19: "f19", KeyF20: "f20", KeyF21: "f21", KeyF22: "f22",
	KeyF23: "f23", KeyF24: "f24",
}

// ByName is the reverse of Names, used when decoding layout YAML.
var ByName map[string]KeyCode

func init() {
	ByName = make(map[string]KeyCode, len(Names))
	for code, name := range Names {
		ByName[name] = code
	}
}

// String renders a KeyCode using its evdev-style name, or its raw
// numeric value if unknown.
func (k KeyCode) String() string {
	if name, ok := Names[k]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint16(k))
}

// modifiers is the hard-coded set of the six modifier key codes. All
// other codes, known or not, are action keys.
var modifiers = map[KeyCode]struct{}{
	KeyLeftShift:  {},
	KeyRightShift: {},
	KeyLeftCtrl:   {},
	KeyRightCtrl:  {},
	KeyLeftMeta:   {},
	KeyRightMeta:  {},
}

// IsModifier reports whether k is one of the six hard-coded modifier
// codes. This classification has no user override.
func IsModifier(k KeyCode) bool {
	_, ok := modifiers[k]
	return ok
}

// IsActionKey reports whether k is not a modifier.
func IsActionKey(k KeyCode) bool {
	return !IsModifier(k)
}

// Kind distinguishes a press from a release in an Event.
type Kind int

const (
	// Pressed marks a key-down transition.
	Pressed Kind = iota
	// Released marks a key-up transition.
	Released
)

func (k Kind) String() string {
	if k == Pressed {
		return "Pressed"
	}
	return "Released"
}

// Event is the tagged Pressed(KeyCode) | Released(KeyCode) sum type
// used for both the physical input stream and the synthetic output
// stream.
type Event struct {
	Kind Kind
	Code KeyCode
}

// NewPressed builds a Pressed event for k.
func NewPressed(k KeyCode) Event { return Event{Kind: Pressed, Code: k} }

// NewReleased builds a Released event for k.
func NewReleased(k KeyCode) Event { return Event{Kind: Released, Code: k} }

// MarshalYAML renders a KeyCode as its evdev-style name so layout
// files stay human-authorable.
func (k KeyCode) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML decodes a KeyCode from its evdev-style name.
func (k *KeyCode) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	code, ok := ByName[name]
	if !ok {
		return fmt.Errorf("unknown key code %q", name)
	}
	*k = code
	return nil
}

// IsPressed reports whether e is a Pressed event.
func (e Event) IsPressed() bool { return e.Kind == Pressed }

// IsReleased reports whether e is a Released event.
func (e Event) IsReleased() bool { return e.Kind == Released }

func (e Event) String() string {
	return e.Kind.String() + "(" + e.Code.String() + ")"
}
