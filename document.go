package bson

import (
	"fmt"
	"strings"
)

// Document is the fully materialized, recursively owned form of an encoded
// document. Keys keep their insertion order; they are never sorted. Setting
// a key that already exists replaces the value in place, keeping the
// original position, so the duplicate-key policy for decoding is last
// write wins.
type Document struct {
	keys   []string
	values map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: make(map[string]any)}
}

// Append sets key to value and returns the document for chaining.
func (d *Document) Append(key string, value any) *Document {
	d.Set(key, value)
	return d
}

// Set stores value under key. An existing key keeps its position.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key. The found flag distinguishes an
// absent key from a stored nil (null).
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Remove deletes key and returns its value.
func (d *Document) Remove(key string) (any, bool) {
	v, ok := d.values[key]
	if !ok {
		return nil, false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order. The slice aliases the
// document's state and must not be mutated.
func (d *Document) Keys() []string { return d.keys }

// Len returns the number of elements.
func (d *Document) Len() int { return len(d.keys) }

// Range calls f for each element in insertion order until f returns false.
func (d *Document) Range(f func(key string, value any) bool) {
	for _, k := range d.keys {
		if !f(k, d.values[k]) {
			return
		}
	}
}

// Equal reports deep structural equality, element order included. NaN
// doubles compare equal to themselves.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.keys) != len(other.keys) {
		return false
	}
	for i, k := range d.keys {
		if other.keys[i] != k {
			return false
		}
		if !valueEqual(d.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

func (d *Document) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q: %v", k, d.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// Array is the materialized array: an owned, ordered sequence of values.
type Array struct {
	values []any
}

// NewArray returns an array holding the given values.
func NewArray(values ...any) *Array {
	return &Array{values: values}
}

// Push appends value and returns the array for chaining.
func (a *Array) Push(value any) *Array {
	a.values = append(a.values, value)
	return a
}

// Get returns the value at index i. An out-of-range index is reported as a
// not-present access error and does not corrupt later accesses.
func (a *Array) Get(i int) (any, error) {
	if i < 0 || i >= len(a.values) {
		return nil, &ValueAccessError{Key: fmt.Sprintf("[%d]", i), NotPresent: true}
	}
	return a.values[i], nil
}

// Values returns the underlying slice. It aliases the array's state.
func (a *Array) Values() []any { return a.values }

// Len returns the number of values.
func (a *Array) Len() int { return len(a.values) }

// Equal reports deep structural equality in order.
func (a *Array) Equal(other *Array) bool {
	if a == nil || other == nil {
		return a == other
	}
	if len(a.values) != len(other.values) {
		return false
	}
	for i, v := range a.values {
		if !valueEqual(v, other.values[i]) {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
