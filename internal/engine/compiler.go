// Package engine implements the pure key-remapping transducer: it
// consumes a compiled Layout and a stream of physical key events, and
// produces a stream of synthetic key events. It performs no I/O.
package engine

import (
	"sort"

	"github.com/xiaohuirong/totalmapper/internal/keycode"
	"github.com/xiaohuirong/totalmapper/internal/layout"
)

// SeqMapping is a compiled form of one authored layout.Mapping: the
// same trigger, with the output split into modifier-prefixed groups.
// Each group is zero or more modifier codes followed by one final key.
type SeqMapping struct {
	From     []keycode.KeyCode
	ToGroups [][]keycode.KeyCode
}

// CompiledLayout indexes SeqMappings by the final key of their
// trigger, each bucket pre-sorted by trigger priority, plus a
// fast-lookup set of no-repeat output codes.
type CompiledLayout struct {
	ByFinalKey   map[keycode.KeyCode][]*SeqMapping
	NoRepeatKeys map[keycode.KeyCode]struct{}
}

// Compile validates a layout and produces its compiled form.
// Overlapping triggers are legal; priority is resolved at runtime by
// the sort order established here.
func Compile(l *layout.Layout) (*CompiledLayout, error) {
	if err := layout.Validate(l); err != nil {
		return nil, err
	}

	byFinal := make(map[keycode.KeyCode][]*SeqMapping)
	for _, m := range l.Mappings {
		if len(m.From) == 0 {
			continue
		}
		final := m.From[len(m.From)-1]
		byFinal[final] = append(byFinal[final], toSeqMapping(m))
	}

	for _, seqs := range byFinal {
		sort.SliceStable(seqs, func(i, j int) bool {
			return TriggerPriority(seqs[i].From, seqs[j].From) < 0
		})
	}

	noRepeat := make(map[keycode.KeyCode]struct{}, len(l.NoRepeatKeys))
	for _, k := range l.NoRepeatKeys {
		noRepeat[k] = struct{}{}
	}

	return &CompiledLayout{ByFinalKey: byFinal, NoRepeatKeys: noRepeat}, nil
}

// toSeqMapping walks m.To left to right, accumulating a running
// prefix of modifier codes. Every action key, and the final element
// regardless of its kind, starts a new output group equal to the
// modifiers accumulated so far plus that key. The modifier prefix is
// never reset between groups.
func toSeqMapping(m layout.Mapping) *SeqMapping {
	var workingModifiers []keycode.KeyCode
	var toGroups [][]keycode.KeyCode

	if len(m.To) > 0 {
		for _, k := range m.To[:len(m.To)-1] {
			if keycode.IsActionKey(k) {
				toGroups = append(toGroups, appendGroup(workingModifiers, k))
			} else {
				workingModifiers = append(workingModifiers, k)
			}
		}

		last := m.To[len(m.To)-1]
		toGroups = append(toGroups, appendGroup(workingModifiers, last))
	}

	return &SeqMapping{From: m.From, ToGroups: toGroups}
}

func appendGroup(modifiers []keycode.KeyCode, final keycode.KeyCode) []keycode.KeyCode {
	group := make([]keycode.KeyCode, len(modifiers), len(modifiers)+1)
	copy(group, modifiers)
	return append(group, final)
}

// TriggerPriority orders two triggers under the rule of spec §3:
// longer triggers first; among equal lengths, compare element-wise
// from the last position backward, smaller code wins. It returns a
// negative number if t1 is strictly higher priority than t2, a
// positive number if lower, and zero if the two are tied.
func TriggerPriority(t1, t2 []keycode.KeyCode) int {
	if len(t1) != len(t2) {
		if len(t1) > len(t2) {
			return -1
		}
		return 1
	}

	for i := len(t1) - 1; i >= 0; i-- {
		if t1[i] < t2[i] {
			return -1
		}
		if t1[i] > t2[i] {
			return 1
		}
	}

	return 0
}

// IsActionMapping reports whether m's output group is non-empty and
// its last element is an action key (as opposed to a bare modifier).
func IsActionMapping(m ActiveMapping) bool {
	if len(m.To) == 0 {
		return false
	}
	return keycode.IsActionKey(m.To[len(m.To)-1])
}

// IsNoRepeatMapping reports whether m's output group is non-empty and
// its last element is classified as a no-repeat key.
func IsNoRepeatMapping(noRepeatKeys map[keycode.KeyCode]struct{}, m ActiveMapping) bool {
	if len(m.To) == 0 {
		return false
	}
	_, ok := noRepeatKeys[m.To[len(m.To)-1]]
	return ok
}
