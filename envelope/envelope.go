// Package envelope wraps call results in the tagged success/failure shape
// printed by the CLI.
package envelope

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/researchaccelerator-hub/channel-analytics/apperror"
)

// Result is either {ok: true, value} or {ok: false, error}
type Result[T any] struct {
	OK    bool          `json:"ok"`
	Value T             `json:"value,omitempty"`
	Error *apperror.DTO `json:"error,omitempty"`
}

// OK wraps a successful value
func OK[T any](value T) Result[T] {
	return Result[T]{OK: true, Value: value}
}

// Fail wraps err. Errors without an application code become
// SYNC_UNKNOWN_ERROR.
func Fail[T any](err error) Result[T] {
	dto := apperror.From(err).DTO()
	return Result[T]{Error: &dto}
}

// From converts a Go call result
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(value)
}

// MarshalJSON emits value only on success and error only on failure
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(struct {
			OK    bool `json:"ok"`
			Value T    `json:"value"`
		}{OK: true, Value: r.Value})
	}
	return json.Marshal(struct {
		OK    bool          `json:"ok"`
		Error *apperror.DTO `json:"error"`
	}{OK: false, Error: r.Error})
}

// Write encodes r as indented JSON
func (r Result[T]) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
