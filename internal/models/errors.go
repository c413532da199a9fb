package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration marks malformed tendency, outcome, roster or engine input.
	// It is returned before any simulation starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidStateTransition marks an illegal advance of a game, such as stepping a
	// final game or breaking a field invariant. It is fatal to one trial only.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// ConfigError describes which input field failed validation
type ConfigError struct {
	Field  string
	Reason string
}

func NewConfigError(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// StateError describes an illegal state machine operation
type StateError struct {
	Op     string
	Reason string
}

func NewStateError(op, format string, args ...interface{}) *StateError {
	return &StateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidStateTransition, e.Op, e.Reason)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidStateTransition
}
