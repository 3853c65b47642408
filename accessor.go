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

// Accessor is a handle to one named spec entry. It holds no state of its
// own beyond the name; every Get call goes through the container's
// memoizing build engine, so repeated Gets after the first are cache hits.
type Accessor struct {
	container *Container
	name      string
}

// Accessor returns a handle for name, or *UnknownAttributeError if name is
// not declared anywhere in the spec.
func (c *Container) Accessor(name string) (*Accessor, error) {
	if !c.has(name) {
		return nil, &UnknownAttributeError{Name: name}
	}
	return &Accessor{container: c, name: name}, nil
}

// Get resolves the entry synchronously, blocking the calling goroutine.
func (a *Accessor) Get(ctx context.Context) (any, error) {
	return a.container.Build(ctx, a.name)
}

// asyncResult is the payload a Future's channel carries.
type asyncResult struct {
	value any
	err   error
}

// Future is a handle to a build running on its own goroutine.
type Future struct {
	result  chan asyncResult
	settled bool
	value   any
	err     error
}

// Wait blocks until the build completes or ctx is done, whichever comes
// first. It may be called more than once; the first call drains the
// channel and caches the outcome for any later caller.
func (f *Future) Wait(ctx context.Context) (any, error) {
	if f.settled {
		return f.value, f.err
	}
	select {
	case r := <-f.result:
		f.value, f.err, f.settled = r.value, r.err, true
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Async starts the build on its own goroutine and returns immediately with
// a Future. This is the asynchronous counterpart to Get, offloading the
// (possibly blocking, lock-contending) build the same way Python's
// AioAccessor offloads onto run_in_executor.
func (a *Accessor) Async(ctx context.Context) *Future {
	fut := &Future{result: make(chan asyncResult, 1)}
	go func() {
		v, err := a.container.Build(ctx, a.name)
		fut.result <- asyncResult{value: v, err: err}
		close(fut.result)
	}()
	return fut
}

// AsyncAccessor is a named-attribute async namespace: instead of first
// fetching an Accessor and then calling Async, it starts the build
// directly from a name.
type AsyncAccessor struct {
	container *Container
}

// Async returns the container's asynchronous accessor namespace.
func (c *Container) Async() *AsyncAccessor {
	return &AsyncAccessor{container: c}
}

// Get starts building name on its own goroutine, or returns
// *UnknownAttributeError immediately if name is undeclared.
func (aa *AsyncAccessor) Get(ctx context.Context, name string) (*Future, error) {
	if !aa.container.has(name) {
		return nil, &UnknownAttributeError{Name: name}
	}
	fut := &Future{result: make(chan asyncResult, 1)}
	go func() {
		v, err := aa.container.Build(ctx, name)
		fut.result <- asyncResult{value: v, err: err}
		close(fut.result)
	}()
	return fut, nil
}
