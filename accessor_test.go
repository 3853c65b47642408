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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorGetResolvesEntry(t *testing.T) {
	spec := Spec{{Key: "app.db.Connection conn", Value: Mapping{}}}
	resolver := newFakeResolver()
	resolver.register("app.db", "Connection", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return &fakeConn{DSN: "ok"}, nil
	})
	c, err := New(spec, resolver)
	require.NoError(t, err)

	acc, err := c.Accessor("conn")
	require.NoError(t, err)

	v, err := acc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v.(*fakeConn).DSN)
}

func TestAccessorUnknownNameIsError(t *testing.T) {
	c, err := New(Spec{}, newFakeResolver())
	require.NoError(t, err)

	_, err = c.Accessor("nope")
	require.Error(t, err)
	var target *UnknownAttributeError
	assert.ErrorAs(t, err, &target)
}

func TestAccessorAsyncWaitReturnsBuiltValue(t *testing.T) {
	spec := Spec{{Key: "app.db.Connection conn", Value: Mapping{}}}
	resolver := newFakeResolver()
	resolver.register("app.db", "Connection", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return &fakeConn{DSN: "async"}, nil
	})
	c, err := New(spec, resolver)
	require.NoError(t, err)

	acc, err := c.Accessor("conn")
	require.NoError(t, err)

	fut := acc.Async(context.Background())
	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "async", v.(*fakeConn).DSN)

	// A second Wait on the same Future must return the cached outcome
	// rather than the zero result a receive on the already-closed channel
	// would yield.
	v2, err2 := fut.Wait(context.Background())
	require.NoError(t, err2)
	assert.Same(t, v, v2)
}

func TestAccessorAsyncWaitRespectsContextCancellation(t *testing.T) {
	spec := Spec{{Key: "app.db.Connection conn", Value: Mapping{}}}
	resolver := newFakeResolver()
	started := make(chan struct{})
	release := make(chan struct{})
	resolver.register("app.db", "Connection", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		close(started)
		<-release
		return &fakeConn{}, nil
	})
	c, err := New(spec, resolver)
	require.NoError(t, err)

	acc, err := c.Accessor("conn")
	require.NoError(t, err)

	fut := acc.Async(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = fut.Wait(ctx)
	require.Error(t, err)
	close(release)
}

func TestAsyncAccessorGetResolvesByName(t *testing.T) {
	spec := Spec{{Key: "app.db.Connection conn", Value: Mapping{}}}
	resolver := newFakeResolver()
	resolver.register("app.db", "Connection", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return &fakeConn{DSN: "named"}, nil
	})
	c, err := New(spec, resolver)
	require.NoError(t, err)

	fut, err := c.Async().Get(context.Background(), "conn")
	require.NoError(t, err)

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "named", v.(*fakeConn).DSN)
}

func TestAsyncAccessorUnknownNameIsError(t *testing.T) {
	c, err := New(Spec{}, newFakeResolver())
	require.NoError(t, err)

	_, err = c.Async().Get(context.Background(), "nope")
	require.Error(t, err)
	var target *UnknownAttributeError
	assert.ErrorAs(t, err, &target)
}
