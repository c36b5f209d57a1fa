// Package state provides persistence for repository reference indexes.
package state

import (
	"encoding/json"
	"fmt"
)

// Entry is the value stored for one repository path. It holds an override
// stack of references; the first one is authoritative. An entry without
// references stands for a resource that has no backing on disk.
type Entry struct {
	References []string
}

// NewEntry creates an entry holding the given references in priority order.
func NewEntry(refs ...string) Entry {
	if len(refs) == 0 {
		return Entry{}
	}
	return Entry{References: append([]string(nil), refs...)}
}

// First returns the authoritative reference.
func (e Entry) First() (string, bool) {
	if len(e.References) == 0 {
		return "", false
	}
	return e.References[0], true
}

// value is the on-disk shape: null, a single string or a list of strings.
func (e Entry) value() interface{} {
	switch len(e.References) {
	case 0:
		return nil
	case 1:
		return e.References[0]
	default:
		return e.References
	}
}

func (e *Entry) setValue(v interface{}) error {
	switch val := v.(type) {
	case nil:
		e.References = nil
	case string:
		e.References = []string{val}
	case []interface{}:
		refs := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("reference %d: expected string, got %T", i, item)
			}
			refs = append(refs, s)
		}
		e.References = refs
	default:
		return fmt.Errorf("expected null, string or list of strings, got %T", v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.value())
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Entry) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return e.setValue(v)
}

// MarshalYAML implements yaml.InterfaceMarshaler
func (e Entry) MarshalYAML() (interface{}, error) {
	return e.value(), nil
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler
func (e *Entry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v interface{}
	if err := unmarshal(&v); err != nil {
		return err
	}
	return e.setValue(v)
}

// Index is the persisted form of a reference index: repository path to entry.
type Index map[string]Entry
