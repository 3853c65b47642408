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

import "context"

// Constructor builds one instance of a wired type from its normalized
// positional and keyword arguments. pos and kw have already had every Ref
// in the entry's value tree substituted with the dependency's built value.
type Constructor func(ctx context.Context, pos []any, kw map[string]any) (any, error)

// SkeletonPopulator finishes constructing a previously allocated, still
// uninitialized instance in place, using the same normalized arguments a
// direct Constructor call would have received. It is invoked by the cycle
// recovery protocol once an instance has already been published to break
// a cycle.
type SkeletonPopulator func(ctx context.Context, instance any, pos []any, kw map[string]any) error

// TypeResolver is the host-supplied registry that maps a spec's
// "module.Type" (and optional ".factory") components to an actual
// constructor. It is the single point of contact between this container
// and application code; everything else in this package is host-agnostic.
//
// TypeResolver itself is an external interface: its implementation (a
// reflect-based registry, a generated lookup table, a thin wrapper around
// existing factory functions) is out of scope for this module and is
// supplied by the host.
type TypeResolver interface {
	// Resolve returns the Constructor registered for the given module,
	// type and (possibly empty) factory method name. It returns
	// *MissingModuleError-compatible errors for an unregistered module
	// or type; the exact error is host-defined.
	Resolve(module, typ, factory string) (Constructor, error)

	// ResolveSkeleton returns an uninitialized instance of the given
	// module/type suitable for publishing before its dependencies have
	// been built, plus the populator that finishes constructing it in
	// place. It returns ErrSkeletonUnsupported if the type offers no
	// such uninitialized-allocation path.
	ResolveSkeleton(module, typ string) (instance any, populate SkeletonPopulator, err error)
}
