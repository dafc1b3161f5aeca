package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xiaohuirong/totalmapper/internal/engine"
	"github.com/xiaohuirong/totalmapper/internal/keycode"
	"github.com/xiaohuirong/totalmapper/internal/layout"
)

func k(codes ...keycode.KeyCode) []keycode.KeyCode { return codes }

func mustMapper(t *testing.T, l layout.Layout) *engine.Mapper {
	t.Helper()
	m, err := engine.ForLayout(l)
	require.NoError(t, err)
	return m
}

func TestSingleKeyRemap(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyA), To: k(keycode.KeyB)},
		},
	}
	m := mustMapper(t, l)

	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyB)}, m.Step(keycode.NewPressed(keycode.KeyA)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyB)}, m.Step(keycode.NewReleased(keycode.KeyA)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyC)}, m.Step(keycode.NewPressed(keycode.KeyC)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyC)}, m.Step(keycode.NewReleased(keycode.KeyC)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyLeftShift)}, m.Step(keycode.NewPressed(keycode.KeyLeftShift)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyB)}, m.Step(keycode.NewPressed(keycode.KeyA)))
}

func TestChordedOverlap(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyCapsLock), To: nil},
			{From: k(keycode.KeyCapsLock, keycode.KeyM), To: k(keycode.KeyLeftShift, keycode.KeyEqual)},
			{From: k(keycode.KeyCapsLock, keycode.KeyU), To: k(keycode.KeyEqual)},
		},
	}
	m := mustMapper(t, l)

	require.Empty(t, m.Step(keycode.NewPressed(keycode.KeyCapsLock)))
	require.Equal(t,
		[]keycode.Event{keycode.NewPressed(keycode.KeyLeftShift), keycode.NewPressed(keycode.KeyEqual)},
		m.Step(keycode.NewPressed(keycode.KeyM)))
	require.Equal(t,
		[]keycode.Event{
			keycode.NewReleased(keycode.KeyLeftShift),
			keycode.NewReleased(keycode.KeyEqual),
			keycode.NewPressed(keycode.KeyEqual),
		},
		m.Step(keycode.NewPressed(keycode.KeyU)))
}

func TestMultiChordInteraction(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyCapsLock), To: nil},
			{From: k(keycode.KeyTab), To: nil},
			{From: k(keycode.KeyF), To: k(keycode.KeyU)},
			{From: k(keycode.KeyN), To: k(keycode.KeyB)},
			{From: k(keycode.KeyCapsLock, keycode.KeyM), To: k(keycode.KeyLeftShift, keycode.KeyEqual)},
			{From: k(keycode.KeyCapsLock, keycode.KeyF), To: k(keycode.KeyEqual)},
			{From: k(keycode.KeyCapsLock, keycode.KeyN), To: k(keycode.KeyLeftShift, keycode.KeyK1)},
			{From: k(keycode.KeyTab, keycode.KeyM), To: k(keycode.KeyPageDown)},
			{From: k(keycode.KeyTab, keycode.KeyN), To: k(keycode.KeyLeftCtrl, keycode.KeyLeft)},
		},
	}
	m := mustMapper(t, l)

	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyLeftShift)}, m.Step(keycode.NewPressed(keycode.KeyLeftShift)))
	require.Empty(t, m.Step(keycode.NewPressed(keycode.KeyTab)))
	require.Equal(t,
		[]keycode.Event{keycode.NewPressed(keycode.KeyLeftCtrl), keycode.NewPressed(keycode.KeyLeft)},
		m.Step(keycode.NewPressed(keycode.KeyN)))
	require.Equal(t,
		[]keycode.Event{keycode.NewReleased(keycode.KeyLeft), keycode.NewReleased(keycode.KeyLeftCtrl)},
		m.Step(keycode.NewReleased(keycode.KeyN)))
	require.Empty(t, m.Step(keycode.NewReleased(keycode.KeyTab)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyM)}, m.Step(keycode.NewPressed(keycode.KeyM)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyM)}, m.Step(keycode.NewReleased(keycode.KeyM)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyLeftShift)}, m.Step(keycode.NewReleased(keycode.KeyLeftShift)))
	require.Empty(t, m.Step(keycode.NewPressed(keycode.KeyCapsLock)))
	require.Equal(t,
		[]keycode.Event{keycode.NewPressed(keycode.KeyLeftShift), keycode.NewPressed(keycode.KeyEqual)},
		m.Step(keycode.NewPressed(keycode.KeyM)))
}

func TestNoRepeatOutput(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyA), To: k(keycode.KeyB)},
			{From: k(keycode.KeyC), To: k(keycode.KeyD)},
		},
		NoRepeatKeys: k(keycode.KeyB, keycode.KeyE),
	}
	m := mustMapper(t, l)

	require.Equal(t,
		[]keycode.Event{keycode.NewPressed(keycode.KeyB), keycode.NewReleased(keycode.KeyB)},
		m.Step(keycode.NewPressed(keycode.KeyA)))
	require.Empty(t, m.Step(keycode.NewReleased(keycode.KeyA)))
	require.Equal(t,
		[]keycode.Event{keycode.NewPressed(keycode.KeyE), keycode.NewReleased(keycode.KeyE)},
		m.Step(keycode.NewPressed(keycode.KeyE)))
	require.Empty(t, m.Step(keycode.NewReleased(keycode.KeyE)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyD)}, m.Step(keycode.NewPressed(keycode.KeyC)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyD)}, m.Step(keycode.NewReleased(keycode.KeyC)))
	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyF)}, m.Step(keycode.NewPressed(keycode.KeyF)))
}

func TestMultiGroupWithNoRepeatTail(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyA), To: k(keycode.KeyB, keycode.KeyC)},
		},
		NoRepeatKeys: k(keycode.KeyC),
	}
	m := mustMapper(t, l)

	require.Equal(t,
		[]keycode.Event{
			keycode.NewPressed(keycode.KeyB),
			keycode.NewPressed(keycode.KeyC),
			keycode.NewReleased(keycode.KeyC),
		},
		m.Step(keycode.NewPressed(keycode.KeyA)))
}

func TestReleaseAllCleansUp(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyA), To: k(keycode.KeyB)},
		},
	}
	m := mustMapper(t, l)

	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyB)}, m.Step(keycode.NewPressed(keycode.KeyA)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyB)}, m.ReleaseAll())
	require.Empty(t, m.ReleaseAll())
}

// When a chord's output reclaims a modifier the user is already
// physically holding, retracting that chord must let the modifier
// quietly revert to a plain pass-through instead of staying stuck
// down or firing a spurious release — unless another live mapping
// still shadows it.
func TestShadowedModifierRevertsToPassThroughOnRetraction(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyCapsLock), To: nil},
			{From: k(keycode.KeyCapsLock, keycode.KeyM), To: k(keycode.KeyLeftShift, keycode.KeyEqual)},
		},
	}
	m := mustMapper(t, l)

	require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyLeftShift)}, m.Step(keycode.NewPressed(keycode.KeyLeftShift)))
	require.Empty(t, m.Step(keycode.NewPressed(keycode.KeyCapsLock)))
	require.Equal(t,
		[]keycode.Event{
			keycode.NewReleased(keycode.KeyLeftShift),
			keycode.NewPressed(keycode.KeyLeftShift),
			keycode.NewPressed(keycode.KeyEqual),
		},
		m.Step(keycode.NewPressed(keycode.KeyM)))

	// CapsLock retracts the chord; EQUAL is released but LeftShift is
	// still physically held and unshadowed, so it silently becomes a
	// pass-through rather than emitting a release.
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyEqual)}, m.Step(keycode.NewReleased(keycode.KeyCapsLock)))
	require.Empty(t, m.Step(keycode.NewReleased(keycode.KeyM)))
	require.Equal(t, []keycode.Event{keycode.NewReleased(keycode.KeyLeftShift)}, m.Step(keycode.NewReleased(keycode.KeyLeftShift)))
}

func TestRedundantInputIsIdempotent(t *testing.T) {
	l := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyA), To: k(keycode.KeyB)},
		},
	}
	m := mustMapper(t, l)

	require.NotEmpty(t, m.Step(keycode.NewPressed(keycode.KeyA)))
	require.Nil(t, m.Step(keycode.NewPressed(keycode.KeyA)))
	require.Nil(t, m.Step(keycode.NewReleased(keycode.KeyC)))
}

func TestDeterministicPriorityIndependentOfDeclarationOrder(t *testing.T) {
	shortFirst := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyM), To: k(keycode.KeyX)},
			{From: k(keycode.KeyCapsLock, keycode.KeyM), To: k(keycode.KeyY)},
		},
	}
	longFirst := layout.Layout{
		Mappings: []layout.Mapping{
			{From: k(keycode.KeyCapsLock, keycode.KeyM), To: k(keycode.KeyY)},
			{From: k(keycode.KeyM), To: k(keycode.KeyX)},
		},
	}

	for _, l := range []layout.Layout{shortFirst, longFirst} {
		m := mustMapper(t, l)
		// CapsLock has no mapping of its own, so it passes through until
		// the chord fires and takes it over.
		require.Equal(t, []keycode.Event{keycode.NewPressed(keycode.KeyCapsLock)}, m.Step(keycode.NewPressed(keycode.KeyCapsLock)))
		require.Equal(t,
			[]keycode.Event{keycode.NewReleased(keycode.KeyCapsLock), keycode.NewPressed(keycode.KeyY)},
			m.Step(keycode.NewPressed(keycode.KeyM)))
	}
}
