// Package maybe defines a value that is either present or absent. It replaces
// nil sentinels for the optional payloads of the control API, where an empty
// string and no value at all produce different requests.
package maybe

import "fmt"

// Value holds an optional value of type T. The zero value is absent.
type Value[T any] struct {
	value T
	ok    bool
}

// Some returns a present value.
func Some[T any](v T) Value[T] {
	return Value[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.ok
}

// IsSome returns true when the value is present.
func (v Value[T]) IsSome() bool {
	return v.ok
}

// OrElse returns the value if present, otherwise the fallback.
func (v Value[T]) OrElse(fallback T) T {
	if v.ok {
		return v.value
	}

	return fallback
}

// String implements fmt.Stringer.
func (v Value[T]) String() string {
	if !v.ok {
		return "None"
	}

	return fmt.Sprintf("Some(%v)", v.value)
}

// UnmarshalYAML implements yaml.Unmarshaler. A key that is present in the
// document makes the value present, even when it holds the zero value.
func (v *Value[T]) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value T

	err := unmarshal(&value)
	if err != nil {
		return err
	}

	*v = Some(value)

	return nil
}
