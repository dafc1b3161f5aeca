package keyboard

import (
	"syscall"

	"github.com/xiaohuirong/totalmapper/internal/keycode"
)

// KeyEvent represents a key press or release event.
type KeyEvent struct {
	Code      uint16
	Value     int32 // 0=release, 1=press, 2=repeat
	Timestamp syscall.Timeval
	Device    *Device
}

// IsPress returns true if this is a key press event.
func (e *KeyEvent) IsPress() bool {
	return e.Value == 1
}

// IsRelease returns true if this is a key release event.
func (e *KeyEvent) IsRelease() bool {
	return e.Value == 0
}

// IsRepeat returns true if this is a key repeat event.
func (e *KeyEvent) IsRepeat() bool {
	return e.Value == 2
}

// ToEngineEvent translates a raw press/release into the engine's Event
// type. Auto-repeat is not a distinct Event the engine understands;
// callers must drop KeyEvents where IsRepeat is true before they reach
// the mapper.
func (e *KeyEvent) ToEngineEvent() keycode.Event {
	code := keycode.KeyCode(e.Code)
	if e.IsRelease() {
		return keycode.NewReleased(code)
	}
	return keycode.NewPressed(code)
}
