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
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	defaultMaxLockAttempts = 32
	defaultLockRetrySleep  = 200 * time.Microsecond
)

// Option configures a Container at construction time, mirroring the
// functional-options pattern for configuring a constructed value at
// creation time rather than via mutator methods afterward.
type Option interface {
	apply(*Container)
}

type optionFunc func(*Container)

func (f optionFunc) apply(c *Container) { f(c) }

// ThreadSafe enables the per-entry/global two-tier locking discipline.
// Without it, Build assumes single-threaded callers and skips all locking
// overhead.
func ThreadSafe() Option {
	return optionFunc(func(c *Container) { c.threadSafe = true })
}

// MaxLockAttempts bounds how many whole-build attempts buildGlobal makes
// under the container-wide global lock after Build's single optimistic,
// non-blocking attempt has hit a contended entry lock. It has no effect
// unless ThreadSafe is also set.
func MaxLockAttempts(n int) Option {
	return optionFunc(func(c *Container) { c.maxLockAttempts = n })
}

// LockRetrySleep sets the delay between buildGlobal's retry attempts.
func LockRetrySleep(d time.Duration) Option {
	return optionFunc(func(c *Container) { c.lockRetrySleep = d })
}

// AllowPartial permits the cycle recovery protocol to hand out a
// populated-in-place skeleton instance when build revisits an entry that is
// already on its own build stack. When unset, such a revisit surfaces as a
// *CircularWiringError instead. New rejects every cycle in the dependency
// graph (synthetic entries included) with a *CircularWiringError whether or
// not AllowPartial is set, so a container returned by New does not reach
// the recovery path.
func AllowPartial() Option {
	return optionFunc(func(c *Container) { c.allowPartial = true })
}

// DryRun configures the Container to validate the spec (parse, promote,
// detect cycles) without resolving a TypeResolver or invoking any
// constructor.
func DryRun() Option {
	return optionFunc(func(c *Container) { c.dryRun = true })
}

// cacheEntry is the memoization slot for one wired (or synthetic) entry:
// its per-entry lock, its finalized value once built, and any in-progress
// skeleton published to break a cycle.
type cacheEntry struct {
	name  string
	entry *WiredEntry
	lock  *reentrantLock

	built bool
	value any
	err   error

	skel *skeletonState
}

// Container is the resolved, ready-to-build object graph: the lazily
// instantiated, memoized object-graph runtime. It is safe for concurrent
// use only when constructed with ThreadSafe.
type Container struct {
	resolver TypeResolver

	threadSafe      bool
	allowPartial    bool
	dryRun          bool
	maxLockAttempts int
	lockRetrySleep  time.Duration

	resolved *resolvedSpec
	cache    map[string]*cacheEntry

	globalLock *reentrantLock
	ownerSeq   uint64
}

// New parses and analyzes spec eagerly — every parse-time and cycle error
// surfaces synchronously from New, never from a later Build call. Nothing
// is instantiated until the first Accessor or Build call.
func New(spec Spec, resolver TypeResolver, opts ...Option) (*Container, error) {
	c := &Container{
		resolver:        resolver,
		maxLockAttempts: defaultMaxLockAttempts,
		lockRetrySleep:  defaultLockRetrySleep,
		globalLock:      newReentrantLock(),
		cache:           make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt.apply(c)
	}

	parsed, err := parseSpec(spec)
	if err != nil {
		return nil, err
	}

	resolved, err := analyze(parsed)
	if err != nil {
		return nil, err
	}
	c.resolved = resolved

	for name, entry := range resolved.wired {
		c.cache[name] = &cacheEntry{name: name, entry: entry, lock: newReentrantLock()}
	}

	return c, nil
}

// has reports whether name is a declared spec entry of any kind.
func (c *Container) has(name string) bool {
	if _, ok := c.resolved.wired[name]; ok {
		return true
	}
	_, ok := c.resolved.constants[name]
	return ok
}

// Build resolves the named entry, instantiating it and every transitive
// dependency it has not already memoized. It is the public synchronous
// entry point; Accessor and AsyncAccessor are thin wrappers over it.
//
// Under ThreadSafe, the first attempt runs entirely in optimistic mode
// (every per-entry lock acquired non-blocking). If that attempt aborts
// with errLockUnavailable — some entry along the way is contended — the
// whole build is retried from scratch under buildGlobal instead of
// resuming in place, per spec.md §4.5 phases 3-4.
func (c *Container) Build(ctx context.Context, name string) (any, error) {
	if v, ok := c.resolved.constants[name]; ok {
		return v, nil
	}
	if _, ok := c.resolved.wired[name]; !ok {
		return nil, &UnknownPlaceholderError{Name: name}
	}

	if !c.threadSafe {
		return c.build(ctx, c.newBuildContext(), name)
	}

	v, err := c.build(ctx, c.newBuildContext(), name)
	if errors.Is(err, errLockUnavailable) {
		return c.buildGlobal(ctx, name)
	}
	return v, err
}

// buildGlobal retries name's build serialized behind the container-wide
// global lock: every nested per-entry lock acquisition now blocks instead
// of failing fast (spec.md §4.5 phase 5), which cannot deadlock since the
// global lock admits only one such builder at a time, so any per-entry
// lock it waits on is held either by itself (reentrant) or by an
// optimistic-mode builder that will back off rather than block.
//
// The retry loop exists only for the rare race spec.md §4.5 phase 6 notes
// — in this implementation entry.lock's blocking wait never itself
// returns errLockUnavailable, so in practice the loop runs exactly once.
func (c *Container) buildGlobal(ctx context.Context, name string) (any, error) {
	bc := c.newBuildContext()
	bc.global = true
	c.globalLock.lock(bc.owner)
	defer c.globalLock.unlock(bc.owner)

	for attempt := 0; ; attempt++ {
		v, err := c.build(ctx, bc, name)
		if !errors.Is(err, errLockUnavailable) {
			return v, err
		}
		if attempt+1 >= c.maxLockAttempts {
			return nil, &WiringError{Name: name, Cause: errLockUnavailable}
		}
		time.Sleep(c.lockRetrySleep)
	}
}

// build checks the memoization cache, acquires the entry's lock per bc's
// mode (non-blocking in optimistic mode, returning errLockUnavailable
// immediately on contention instead of waiting; blocking in global mode —
// see acquireEntry), re-checks after acquiring (another goroutine may have
// finished first), detects a dynamic cycle via the explicit buildContext
// stack, resolves dependencies recursively, normalizes them into positional
// and keyword arguments, and invokes the constructor (or, if a cycle
// published a skeleton for this very entry, populates it in place instead).
func (c *Container) build(ctx context.Context, bc *buildContext, name string) (any, error) {
	if v, ok := c.resolved.constants[name]; ok {
		return v, nil
	}

	ce, ok := c.cache[name]
	if !ok {
		return nil, &UnknownPlaceholderError{Name: name}
	}

	if c.threadSafe {
		if err := c.acquireEntry(bc, ce.lock); err != nil {
			return nil, err
		}
		defer c.releaseEntry(bc, ce.lock)
	}

	if ce.built {
		return ce.value, ce.err
	}

	if bc.onStack(name) {
		return c.recoverCycle(ctx, bc, ce)
	}

	bc.push(name)
	defer bc.pop()

	var value any
	if ce.entry.synthetic() {
		resolvedDeps, err := c.buildDeps(ctx, bc, name)
		if err != nil {
			if IsUnknownPlaceholder(err) || IsCircularWiring(err) {
				return nil, err
			}
			return nil, &WiringError{Name: name, Cause: err}
		}
		value, err = interpolateSynthetic(ce.entry, resolvedDeps)
		if err != nil {
			ce.err = err
			ce.built = true
			return nil, err
		}
		ce.value = value
		ce.built = true
		return value, nil
	}

	pos, kw, err := c.resolveArgs(ctx, bc, ce.entry.Data)
	if err != nil {
		if IsUnknownPlaceholder(err) || IsCircularWiring(err) {
			return nil, err
		}
		return nil, &WiringError{Name: name, Cause: err}
	}

	if ce.skel != nil {
		return c.finalizeSkeleton(ctx, ce, pos, kw)
	}

	value, err = c.construct(ctx, name, ce.entry, pos, kw)
	if err != nil {
		ce.err = &WiringError{Name: name, Cause: err}
		ce.built = true
		return nil, ce.err
	}

	ce.value = value
	ce.built = true
	return value, nil
}

// buildDeps builds every direct dependency of a synthetic (promoted
// constant) entry, as recorded in resolvedSpec.deps during analysis, and
// returns them keyed by name for substituteTemplate's lookup. Unlike
// resolveArgs, this does not walk entry.Data: a template string's
// placeholders never become Ref nodes (only standalone placeholders do),
// so the dependency set has to come from the graph analysis instead.
func (c *Container) buildDeps(ctx context.Context, bc *buildContext, name string) (map[string]any, error) {
	deps := c.resolved.deps[name]
	out := make(map[string]any, len(deps))
	for _, dep := range deps {
		v, err := c.build(ctx, bc, dep)
		if err != nil {
			return nil, err
		}
		out[dep] = v
	}
	return out, nil
}

// construct invokes the host TypeResolver for a non-synthetic entry.
// Synthetic entries are handled directly in build, since their value comes
// from template interpolation rather than a constructor call.
func (c *Container) construct(ctx context.Context, name string, entry *WiredEntry, pos []any, kw map[string]any) (any, error) {
	if c.dryRun {
		return nil, nil
	}

	ctor, err := c.resolver.Resolve(entry.Module, entry.Type, entry.Factory)
	if err != nil {
		return nil, err
	}
	return ctor(ctx, pos, kw)
}

// interpolateSynthetic resolves a promoted constant's value tree once all
// of its Ref dependencies have been built, rendering a template string or
// rebuilding a composite value (the auto-promotion outcome for a constant
// that transitively depends on a wired entry).
func interpolateSynthetic(entry *WiredEntry, resolvedDeps map[string]any) (any, error) {
	lookup := func(v Value) (Value, bool) {
		switch t := v.(type) {
		case Ref:
			val, ok := resolvedDeps[t.Name]
			return val, ok
		case string:
			return v, true
		default:
			return v, true
		}
	}
	return substituteTemplate(entry.Data, lookup)
}

// substituteTemplate mirrors substituteConstant (graph.go) but draws its
// values from an already-built dependency map instead of a construction-
// time eager-resolution table.
func substituteTemplate(v Value, lookup func(Value) (Value, bool)) (Value, error) {
	switch t := v.(type) {
	case Ref:
		val, ok := lookup(t)
		if !ok {
			return nil, &UnknownPlaceholderError{Name: t.Name}
		}
		return val, nil
	case string:
		names := placeholderNames(t)
		if len(names) == 0 {
			return t, nil
		}
		result := t
		for _, n := range names {
			val, ok := lookup(Ref{Name: n})
			if !ok {
				return nil, &UnknownPlaceholderError{Name: n}
			}
			result = strings.ReplaceAll(result, "{"+n+"}", stringify(val))
		}
		return result, nil
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			cv, err := substituteTemplate(child, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case Tuple:
		out := make(Tuple, len(t))
		for i, child := range t {
			cv, err := substituteTemplate(child, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case []Value:
		out := make([]Value, len(t))
		for i, child := range t {
			cv, err := substituteTemplate(child, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveArgs recursively builds every Ref in data and returns the fully
// substituted value tree, then normalizes it into positional/keyword form.
func (c *Container) resolveArgs(ctx context.Context, bc *buildContext, data Value) (pos []any, kw map[string]any, err error) {
	resolved, err := mapValueErr(data, func(v Value) (Value, error) {
		ref, ok := v.(Ref)
		if !ok {
			return v, nil
		}
		return c.build(ctx, bc, ref.Name)
	})
	if err != nil {
		return nil, nil, err
	}
	pos, kw = normalize(resolved)
	return pos, kw, nil
}

// mapValueErr is mapValue (value.go) with error propagation, needed
// because resolving a Ref can fail.
func mapValueErr(v Value, transform func(Value) (Value, error)) (Value, error) {
	switch t := v.(type) {
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			cv, err := mapValueErr(child, transform)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case Tuple:
		out := make(Tuple, len(t))
		for i, child := range t {
			cv, err := mapValueErr(child, transform)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case []Value:
		out := make([]Value, len(t))
		for i, child := range t {
			cv, err := mapValueErr(child, transform)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return transform(v)
	}
}

// normalize splits a resolved value tree into positional arguments
// (non-negative int keys of a Mapping, ascending, or the elements of a
// Tuple/[]Value) and keyword arguments (string keys of a Mapping). A bare
// scalar or single Ref normalizes to one positional arg.
func normalize(v Value) (pos []any, kw map[string]any) {
	switch t := v.(type) {
	case Mapping:
		kw = make(map[string]any)
		var intKeys []int
		for k := range t {
			if i, ok := k.(int); ok {
				intKeys = append(intKeys, i)
			}
		}
		sort.Ints(intKeys)
		pos = make([]any, len(intKeys))
		for i, k := range intKeys {
			pos[i] = t[k]
		}
		for k, val := range t {
			if s, ok := k.(string); ok {
				kw[s] = val
			}
		}
		return pos, kw
	case Tuple:
		pos = make([]any, len(t))
		copy(pos, t)
		return pos, map[string]any{}
	case []Value:
		pos = make([]any, len(t))
		copy(pos, t)
		return pos, map[string]any{}
	default:
		return []any{t}, map[string]any{}
	}
}

func (c *Container) String() string {
	return fmt.Sprintf("wireup.Container{entries: %d}", len(c.cache))
}
