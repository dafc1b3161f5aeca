// Package layout defines the user-authored remapping rules and loads
// them from YAML layout files.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xiaohuirong/totalmapper/internal/keycode"
)

// Mapping is a single authored chord rule: holding every code in From
// (the last element being the key whose press actually fires it)
// produces the output sequence To. To may be empty, meaning the
// trigger suppresses its final key without producing any output.
type Mapping struct {
	From []keycode.KeyCode `yaml:"from"`
	To   []keycode.KeyCode `yaml:"to"`
}

// Layout is the full user-authored configuration: an ordered list of
// mappings plus the set of output keys that should fire as an
// instantaneous press/release pair instead of staying held.
type Layout struct {
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description,omitempty"`
	Mappings     []Mapping         `yaml:"mappings"`
	NoRepeatKeys []keycode.KeyCode `yaml:"no_repeat_keys,omitempty"`
}

// ValidationError reports a mapping with duplicate codes in From or
// To. It is the only error the compiler step can raise.
type ValidationError struct {
	Mapping Mapping
	Field   string // "from" or "to"
	Code    keycode.KeyCode
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("duplicate key code %s in %s of mapping %v -> %v",
		e.Code, e.Field, e.Mapping.From, e.Mapping.To)
}

// Validate rejects a layout where any mapping repeats a code within
// its own From or within its own To. Overlapping triggers across
// different mappings are legal and resolved at runtime by priority.
func Validate(l *Layout) error {
	for _, m := range l.Mappings {
		if dup, code := firstDuplicate(m.From); dup {
			return &ValidationError{Mapping: m, Field: "from", Code: code}
		}
		if dup, code := firstDuplicate(m.To); dup {
			return &ValidationError{Mapping: m, Field: "to", Code: code}
		}
	}
	return nil
}

func firstDuplicate(codes []keycode.KeyCode) (bool, keycode.KeyCode) {
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			if codes[i] == codes[j] {
				return true, codes[i]
			}
		}
	}
	return false, 0
}

// Load reads and validates a layout from a YAML file.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout file: %w", err)
	}

	if err := Validate(&l); err != nil {
		return nil, fmt.Errorf("validating layout %s: %w", path, err)
	}

	return &l, nil
}

// Save writes a layout to a YAML file.
func Save(path string, l *Layout) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing layout file: %w", err)
	}
	return nil
}
