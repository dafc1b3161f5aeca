package engine

import (
	"github.com/xiaohuirong/totalmapper/internal/keycode"
	"github.com/xiaohuirong/totalmapper/internal/layout"
)

// ActiveMapping is a mapping that has fired and whose effect is still
// in force: the trigger that fired it, and the single output group
// currently held for it.
type ActiveMapping struct {
	From []keycode.KeyCode
	To   []keycode.KeyCode
}

// State holds everything the mapper tracks between steps: physical
// keys currently held, mappings currently in force, and the two
// disjoint classes of synthetic output keys currently down.
type State struct {
	InputPressedKeys []keycode.KeyCode
	ActiveMappings   []ActiveMapping
	PassThroughKeys  []keycode.KeyCode
	MappedOutputKeys []keycode.KeyCode
}

// Mapper is the transducer: a compiled layout plus the mutable state
// it drives. It performs no I/O and has no background work; Step must
// run to completion before the next event is accepted.
type Mapper struct {
	layout *CompiledLayout
	state  State
}

// ForLayout compiles l and returns a Mapper with empty state. The
// only failure mode is layout validation.
func ForLayout(l layout.Layout) (*Mapper, error) {
	compiled, err := Compile(&l)
	if err != nil {
		return nil, err
	}
	return &Mapper{layout: compiled}, nil
}

// Step advances the state by one physical input event and returns the
// synthetic outputs emitted by this step, in emission order. A press
// of an already-held key or a release of a key not currently held is
// a redundant, no-op input: it returns nil without mutating state.
func (m *Mapper) Step(e keycode.Event) []keycode.Event {
	switch e.Kind {
	case keycode.Pressed:
		if containsCode(m.state.InputPressedKeys, e.Code) {
			return nil
		}
		return m.newlyPress(e.Code)
	default:
		if !containsCode(m.state.InputPressedKeys, e.Code) {
			return nil
		}
		return m.newlyRelease(e.Code)
	}
}

// ReleaseAll synthesizes a physical release of every key currently in
// InputPressedKeys, in the order they were first pressed, and
// concatenates the resulting outputs. After it returns, no physical
// or synthetic key is left down.
func (m *Mapper) ReleaseAll() []keycode.Event {
	toRelease := append([]keycode.KeyCode(nil), m.state.InputPressedKeys...)

	var res []keycode.Event
	for _, k := range toRelease {
		res = append(res, m.Step(keycode.NewReleased(k))...)
	}
	return res
}

// newlyPress is the hot path of §4.4: find the highest-priority
// supported mapping triggered by k, or fall back to shadow detection
// and plain pass-through.
func (m *Mapper) newlyPress(k keycode.KeyCode) []keycode.Event {
	state := &m.state
	var res []keycode.Event
	anyHit := false

	for _, sm := range m.layout.ByFinalKey[k] {
		if !isSupported(sm.From, state.InputPressedKeys, k) {
			continue
		}

		for _, group := range sm.ToGroups {
			active := ActiveMapping{From: sm.From, To: group}
			if IsNoRepeatMapping(m.layout.NoRepeatKeys, active) {
				res = append(res, applyNoRepeatMapping(state, active)...)
			} else {
				res = append(res, addNewMapping(state, active)...)
			}
		}

		anyHit = true
		break
	}

	if !anyHit {
		for _, am := range state.ActiveMappings {
			if containsCode(am.From, k) || containsCode(am.To, k) {
				anyHit = true
				break
			}
		}
	}

	if !anyHit && !containsCode(state.PassThroughKeys, k) {
		if _, noRepeat := m.layout.NoRepeatKeys[k]; noRepeat {
			res = append(res, keycode.NewPressed(k), keycode.NewReleased(k))
		} else {
			res = append(res, keycode.NewPressed(k))
			state.PassThroughKeys = append(state.PassThroughKeys, k)
		}
	}

	state.InputPressedKeys = append(state.InputPressedKeys, k)
	return res
}

// isSupported reports whether every code in trigger is either already
// held or is the key that was just pressed.
func isSupported(trigger []keycode.KeyCode, pressedKeys []keycode.KeyCode, newKey keycode.KeyCode) bool {
	for _, k := range trigger {
		if !containsCode(pressedKeys, k) && k != newKey {
			return false
		}
	}
	return true
}

// applyNoRepeatMapping emits an instantaneous press/release pair for
// every code in the group not already down in either output class, in
// press order then reverse release order. No state is mutated.
func applyNoRepeatMapping(state *State, m ActiveMapping) []keycode.Event {
	var relevant []keycode.KeyCode
	for _, k := range m.To {
		alreadyDown := containsCode(state.PassThroughKeys, k) || containsCode(state.MappedOutputKeys, k)
		if !alreadyDown {
			relevant = append(relevant, k)
		}
	}

	res := make([]keycode.Event, 0, 2*len(relevant))
	for _, k := range relevant {
		res = append(res, keycode.NewPressed(k))
	}
	for i := len(relevant) - 1; i >= 0; i-- {
		res = append(res, keycode.NewReleased(relevant[i]))
	}
	return res
}

// addNewMapping records m as newly fired, following §4.4.2 steps A-D:
// displace overlapping pass-through keys, re-synthesize modifiers of
// pre-existing action mappings, emit the new group, then record m.
func addNewMapping(state *State, m ActiveMapping) []keycode.Event {
	var res []keycode.Event

	// Step A: displace pass-through keys overlapping m.
	kept := state.PassThroughKeys[:0:0]
	for _, old := range state.PassThroughKeys {
		switch {
		case containsCode(m.To, old):
			state.MappedOutputKeys = append(state.MappedOutputKeys, old)
		case containsCode(m.From, old):
			res = append(res, keycode.NewReleased(old))
		default:
			kept = append(kept, old)
		}
	}
	state.PassThroughKeys = kept

	// Step B: re-synthesize modifiers of pre-existing action mappings.
	var modifiersToRelease []keycode.KeyCode
	for _, existing := range state.ActiveMappings {
		if !IsActionMapping(existing) {
			continue
		}
		for _, modKey := range existing.To[:len(existing.To)-1] {
			if containsCode(state.MappedOutputKeys, modKey) {
				modifiersToRelease = append(modifiersToRelease, modKey)
			}
		}
	}
	for _, modKey := range modifiersToRelease {
		res = append(res, keycode.NewReleased(modKey))
	}
	state.MappedOutputKeys = removeAll(state.MappedOutputKeys, modifiersToRelease)

	// Step C: emit the new group.
	for _, nk := range m.To {
		switch {
		case containsCode(state.MappedOutputKeys, nk):
			res = append(res, keycode.NewReleased(nk), keycode.NewPressed(nk))
		case containsCode(state.PassThroughKeys, nk):
			res = append(res, keycode.NewReleased(nk), keycode.NewPressed(nk))
			state.PassThroughKeys = removeOne(state.PassThroughKeys, nk)
			state.MappedOutputKeys = append(state.MappedOutputKeys, nk)
		default:
			res = append(res, keycode.NewPressed(nk))
			state.MappedOutputKeys = append(state.MappedOutputKeys, nk)
		}
	}

	// Step D.
	state.ActiveMappings = append(state.ActiveMappings, m)

	return res
}

// newlyRelease is §4.5: retract every active mapping whose trigger
// included k, newest first, release k's pass-through copy if any,
// then drop k from the held set.
func (m *Mapper) newlyRelease(k keycode.KeyCode) []keycode.Event {
	state := &m.state
	var res []keycode.Event

	for i := len(state.ActiveMappings) - 1; i >= 0; i-- {
		if containsCode(state.ActiveMappings[i].From, k) {
			res = append(res, removeMapping(state, i, k)...)
		}
	}

	for i, pk := range state.PassThroughKeys {
		if pk == k {
			res = append(res, keycode.NewReleased(k))
			state.PassThroughKeys = append(state.PassThroughKeys[:i], state.PassThroughKeys[i+1:]...)
			break
		}
	}

	state.InputPressedKeys = removeOne(state.InputPressedKeys, k)

	return res
}

// removeMapping retracts the active mapping at index i, which was
// torn down because removedKey was released. Every mapped output key
// no longer used by any other active mapping is either left down as a
// plain pass-through (if it is still physically held, is not
// removedKey, and no other mapping still shadows it) or released.
func removeMapping(state *State, i int, removedKey keycode.KeyCode) []keycode.Event {
	var res []keycode.Event

	for j := len(state.MappedOutputKeys) - 1; j >= 0; j-- {
		k := state.MappedOutputKeys[j]

		stillUsed := false
		for oi, other := range state.ActiveMappings {
			if oi != i && containsCode(other.To, k) {
				stillUsed = true
				break
			}
		}

		if !stillUsed {
			if containsCode(state.InputPressedKeys, k) && k != removedKey {
				stillShadowed := false
				for oi, other := range state.ActiveMappings {
					if oi != i && containsCode(other.From, k) {
						stillShadowed = true
						break
					}
				}
				if stillShadowed {
					res = append(res, keycode.NewReleased(k))
				} else {
					state.PassThroughKeys = append(state.PassThroughKeys, k)
				}
			} else {
				res = append(res, keycode.NewReleased(k))
			}
			state.MappedOutputKeys = append(state.MappedOutputKeys[:j], state.MappedOutputKeys[j+1:]...)
		}
	}

	state.ActiveMappings = append(state.ActiveMappings[:i], state.ActiveMappings[i+1:]...)

	return res
}

func containsCode(list []keycode.KeyCode, k keycode.KeyCode) bool {
	for _, c := range list {
		if c == k {
			return true
		}
	}
	return false
}

func removeOne(list []keycode.KeyCode, k keycode.KeyCode) []keycode.KeyCode {
	for i, c := range list {
		if c == k {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeAll(list []keycode.KeyCode, toRemove []keycode.KeyCode) []keycode.KeyCode {
	if len(toRemove) == 0 {
		return list
	}
	kept := list[:0:0]
	for _, c := range list {
		if !containsCode(toRemove, c) {
			kept = append(kept, c)
		}
	}
	return kept
}
