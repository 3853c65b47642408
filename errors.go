// Copyright (c) 2019 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package wireup

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedKeyError is raised at construction time when a spec key's
// name-part contains more than one dot, or a spec declares the same name
// twice.
type MalformedKeyError struct {
	Key    string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed spec key %q: %s", e.Key, e.Reason)
}

// MissingModuleError is raised at construction time when a wired key's
// type-path has no dot (i.e. no module component).
type MissingModuleError struct {
	Key string
}

func (e *MissingModuleError) Error() string {
	return fmt.Sprintf("spec key %q is missing a module component", e.Key)
}

// UnknownPlaceholderError is raised when a Ref names an entry absent from
// the union of parsed names and instantiated values.
//
// For wired entries this surfaces at build time, when the holder is first
// built. For non-promoted constants it surfaces at construction time.
type UnknownPlaceholderError struct {
	Name    string
	Context string
}

func (e *UnknownPlaceholderError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("unknown placeholder %q referenced", e.Name)
	}
	return fmt.Sprintf("unknown placeholder %q referenced while instantiating %q", e.Name, e.Context)
}

// CircularWiringError is raised when a cycle is detected in the static
// dependency graph at construction time, or dynamically at build time when
// allow-partial recovery is disabled.
type CircularWiringError struct {
	Path []string
}

func (e *CircularWiringError) Error() string {
	return "circular wiring dependency detected: " + strings.Join(e.Path, " -> ")
}

// PartialConstructionError is raised when the skeleton cycle-recovery
// protocol is violated: the type forbids uninitialized allocation, the
// populate step failed, or a factory path returned an instance other than
// the skeleton.
type PartialConstructionError struct {
	Name   string
	Reason string
	Cause  error
}

func (e *PartialConstructionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("partial construction failed for %q: %s: %s", e.Name, e.Reason, e.Cause)
	}
	return fmt.Sprintf("partial construction failed for %q: %s", e.Name, e.Reason)
}

func (e *PartialConstructionError) Unwrap() error { return e.Cause }

// WiringError wraps a failure while building an entry, preserving the
// original cause: a TypeResolver or constructor error, or a dependency's
// failure. *UnknownPlaceholderError and *CircularWiringError from a
// dependency pass through unwrapped instead.
type WiringError struct {
	Name  string
	Cause error
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("failed to instantiate %q: %s", e.Name, e.Cause)
}

func (e *WiringError) Unwrap() error { return e.Cause }

// UnknownAttributeError is raised when an accessor is requested for a name
// absent from the spec.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("no wired attribute named %q", e.Name)
}

// errLockUnavailable is the internal-only signal used by the concurrency
// controller to fall back from optimistic to global locking mode. It must
// never be surfaced to a caller.
var errLockUnavailable = errors.New("wireup: per-entry lock unavailable")

// ErrSkeletonUnsupported is returned by a TypeResolver's ResolveSkeleton
// when the named type cannot be allocated uninitialized (for example, a
// constructor that can only ever produce a brand-new value and offers no
// way to populate an existing one in place). The engine converts this into
// a *PartialConstructionError.
var ErrSkeletonUnsupported = errors.New("wireup: type does not support skeleton allocation")

// RootCause walks the Unwrap() chain of err and returns the innermost
// error.
func RootCause(err error) error {
	for {
		cause := errors.Unwrap(err)
		if cause == nil {
			return err
		}
		err = cause
	}
}

// IsCircularWiring reports whether err (or any error it wraps) is a
// *CircularWiringError.
func IsCircularWiring(err error) bool {
	var target *CircularWiringError
	return errors.As(err, &target)
}

// IsPartialConstruction reports whether err (or any error it wraps) is a
// *PartialConstructionError.
func IsPartialConstruction(err error) bool {
	var target *PartialConstructionError
	return errors.As(err, &target)
}

// IsUnknownPlaceholder reports whether err (or any error it wraps) is a
// *UnknownPlaceholderError.
func IsUnknownPlaceholder(err error) bool {
	var target *UnknownPlaceholderError
	return errors.As(err, &target)
}
