// Package jsonx wraps the sonic JSON codec behind small helpers so callers
// never touch the encoder directly.
package jsonx

import (
	"github.com/bytedance/sonic"
)

// Marshal serializes v to a JSON byte slice.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// MarshalString serializes v to a JSON string.
func MarshalString(v any) (string, error) {
	return sonic.MarshalString(v)
}

// MarshalPretty serializes v to an indented JSON byte slice, as written to
// export files.
func MarshalPretty(v any) ([]byte, error) {
	return sonic.MarshalIndent(v, "", "  ")
}

// Unmarshal parses JSON bytes into v.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// UnmarshalString parses a JSON string into v.
func UnmarshalString(s string, v any) error {
	return sonic.UnmarshalString(s, v)
}

// FromJSON parses a JSON string into a value of type T.
func FromJSON[T any](s string) (T, error) {
	var v T
	err := sonic.UnmarshalString(s, &v)
	return v, err
}

// FromJSONBytes parses JSON bytes into a value of type T.
func FromJSONBytes[T any](data []byte) (T, error) {
	var v T
	err := sonic.Unmarshal(data, &v)
	return v, err
}

// Valid reports whether data is well-formed JSON.
func Valid(data []byte) bool {
	return sonic.Valid(data)
}
