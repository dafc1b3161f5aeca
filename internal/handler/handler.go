// Package handler coordinates keyboard input processing and key mapping.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xiaohuirong/totalmapper/internal/engine"
	"github.com/xiaohuirong/totalmapper/internal/keyboard"
	"github.com/xiaohuirong/totalmapper/internal/keycode"
	"github.com/xiaohuirong/totalmapper/internal/layout"
)

// Handler owns the mapper and the virtual output device, and is the
// bridge between raw evdev events and the engine's pure Step/ReleaseAll
// API. It is safe for concurrent use: SetEnabled and SetLayout may be
// called from the tray goroutine while ProcessEvents runs on its own.
type Handler struct {
	mu      sync.Mutex
	mapper  *engine.Mapper
	vkb     *keyboard.VirtualKeyboard
	enabled bool
	logger  *slog.Logger
}

// New creates a new keyboard event handler for the given layout.
func New(l layout.Layout, vkb *keyboard.VirtualKeyboard, logger *slog.Logger) (*Handler, error) {
	m, err := engine.ForLayout(l)
	if err != nil {
		return nil, fmt.Errorf("building mapper: %w", err)
	}
	return &Handler{
		mapper:  m,
		vkb:     vkb,
		enabled: true,
		logger:  logger,
	}, nil
}

// SetEnabled enables or disables key mapping. Disabling releases any
// currently active mappings first, so the host never sees a key stuck
// down when the user flips the tray toggle.
func (h *Handler) SetEnabled(enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.enabled == enabled {
		return nil
	}

	if !enabled {
		if err := h.vkb.Apply(h.mapper.ReleaseAll()); err != nil {
			return fmt.Errorf("releasing active mappings on disable: %w", err)
		}
	}

	h.enabled = enabled
	h.logger.Info("handler state changed", "enabled", enabled)
	return nil
}

// SetLayout hot-swaps the active layout. Any mappings active under the
// old layout are released first, so the swap never leaves a key from
// the previous layout stuck down.
func (h *Handler) SetLayout(l layout.Layout) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.vkb.Apply(h.mapper.ReleaseAll()); err != nil {
		return fmt.Errorf("releasing active mappings before layout swap: %w", err)
	}

	m, err := engine.ForLayout(l)
	if err != nil {
		return fmt.Errorf("building mapper for new layout: %w", err)
	}
	h.mapper = m
	h.logger.Info("layout changed", "layout", l.Name)
	return nil
}

// ProcessEvents reads raw events from the channel, drives them through
// the mapper, and replays whatever output the mapper produces.
func (h *Handler) ProcessEvents(ctx context.Context, events <-chan *keyboard.KeyEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := h.handleEvent(ev); err != nil {
				h.logger.Error("error handling event", "error", err)
			}
		}
	}
}

func (h *Handler) handleEvent(ev *keyboard.KeyEvent) error {
	if ev.IsRepeat() {
		return nil
	}

	in := ev.ToEngineEvent()

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.enabled {
		return h.vkb.Apply([]keycode.Event{in})
	}

	out := h.mapper.Step(in)
	h.logger.Debug("stepped mapper", "in", in.String(), "outCount", len(out))
	return h.vkb.Apply(out)
}

// Shutdown releases any active mappings so the host never sees a
// stuck key after the process exits.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.vkb.Apply(h.mapper.ReleaseAll())
}
