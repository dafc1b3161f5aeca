package keyboard

import (
	"fmt"
	"log/slog"

	"github.com/bendahl/uinput"

	"github.com/xiaohuirong/totalmapper/internal/keycode"
)

// VirtualKeyboard is a uinput-backed sink for the engine's output
// events. It has no notion of Unicode or layout-specific typing: it
// only knows how to press and release evdev key codes, because by the
// time an Event reaches here the mapper has already resolved it to
// exact output keys.
type VirtualKeyboard struct {
	keyboard uinput.Keyboard
	logger   *slog.Logger
}

// NewVirtualKeyboard creates a new virtual keyboard for output.
func NewVirtualKeyboard(logger *slog.Logger) (*VirtualKeyboard, error) {
	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte("totalmapper-virtual"))
	if err != nil {
		return nil, fmt.Errorf("creating virtual keyboard: %w", err)
	}

	return &VirtualKeyboard{
		keyboard: kb,
		logger:   logger,
	}, nil
}

// Close releases the virtual keyboard.
func (vk *VirtualKeyboard) Close() error {
	return vk.keyboard.Close()
}

// Press simulates a key press.
func (vk *VirtualKeyboard) Press(code keycode.KeyCode) error {
	return vk.keyboard.KeyDown(int(code))
}

// Release simulates a key release.
func (vk *VirtualKeyboard) Release(code keycode.KeyCode) error {
	return vk.keyboard.KeyUp(int(code))
}

// Apply replays a batch of engine events in order, exactly as the
// mapper produced them. It is the only path by which Mapper.Step and
// Mapper.ReleaseAll output reaches the kernel.
func (vk *VirtualKeyboard) Apply(events []keycode.Event) error {
	for _, ev := range events {
		vk.logger.Debug("emitting output event", "event", ev.String())
		var err error
		if ev.IsPressed() {
			err = vk.Press(ev.Code)
		} else {
			err = vk.Release(ev.Code)
		}
		if err != nil {
			return fmt.Errorf("applying %s: %w", ev.String(), err)
		}
	}
	return nil
}
