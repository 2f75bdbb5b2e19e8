// Package util provides logging, error types, and small helpers shared
// across the auditor.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy
var (
	ErrTransientProvider = errors.New("transient provider failure")
	ErrPersistence       = errors.New("state persistence failure")
	ErrDispatch          = errors.New("alert dispatch failure")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNotFound          = errors.New("resource not found")
)

// ProviderError wraps a failed inventory or FDB fetch with context.
// It unwraps to ErrTransientProvider so callers can test with errors.Is.
type ProviderError struct {
	Provider string
	Target   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s provider failed for %s: %v", e.Provider, e.Target, e.Err)
	}
	return fmt.Sprintf("%s provider failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return ErrTransientProvider
}

// NewProviderError creates a provider error
func NewProviderError(provider, target string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Target: target, Err: err}
}

// PersistenceError wraps a failed state-store operation. The cycle decision
// for the affected interface is considered not-yet-committed.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state %s for %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return ErrPersistence
}

// NewPersistenceError creates a persistence error
func NewPersistenceError(op, key string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Key: key, Err: err}
}

// DispatchError wraps a failed raise/clear call. Non-fatal; the engine
// retries the same logical call on a later cycle.
type DispatchError struct {
	Call      string // "raise" or "clear"
	Interface string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s for %s: %v", e.Call, e.Interface, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return ErrDispatch
}

// NewDispatchError creates a dispatch error
func NewDispatchError(call, iface string, err error) *DispatchError {
	return &DispatchError{Call: call, Interface: iface, Err: err}
}

// ValidationError represents one or more configuration validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	msg := "validation failed:"
	for _, m := range e.Errors {
		msg += "\n  - " + m
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
