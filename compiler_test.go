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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileTestSpec() Spec {
	return Spec{
		{Key: "host", Value: "localhost"},
		{Key: "app.db.Connection conn", Value: Mapping{"dsn": "{host}"}},
		{Key: "url", Value: "http://{conn}/"},
	}
}

func newCompileTestContainer(t *testing.T) *Container {
	t.Helper()
	resolver := newFakeResolver()
	resolver.register("app.db", "Connection", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return &fakeConn{}, nil
	})
	c, err := New(compileTestSpec(), resolver)
	require.NoError(t, err)
	return c
}

func TestCompileSyncUnsafeProducesParsableSource(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileSync, LockUnsafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "package generated")
	assert.Contains(t, out, "func NewContainer(resolver wireup.TypeResolver) *Container")
	assert.Contains(t, out, "func (c *Container) Conn(ctx context.Context)")
	assert.Contains(t, out, "func (c *Container) Url(ctx context.Context)")
	assert.NotContains(t, out, "sync.Mutex")
	assert.NotContains(t, out, "Async(ctx context.Context) <-chan error")
}

func TestCompileSyncThreadSafeAddsMutexes(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileSync, LockThreadSafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "sync.Mutex")
	assert.Contains(t, out, "ConnMu")
	assert.NotContains(t, out, "Async(ctx context.Context) <-chan error")
}

func TestCompileAsyncUnsafeAddsAsyncMethods(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileAsync, LockUnsafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "func (c *Container) ConnAsync(ctx context.Context) <-chan error")
	assert.Contains(t, out, "func (c *Container) UrlAsync(ctx context.Context) <-chan error")
	assert.NotContains(t, out, "sync.Mutex")
}

func TestCompileAsyncThreadSafeCombinesBoth(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileAsync, LockThreadSafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "sync.Mutex")
	assert.Contains(t, out, "func (c *Container) ConnAsync(ctx context.Context) <-chan error")
}

func TestCompileSyntheticEntryUsesStringInterpolation(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileSync, LockUnsafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "strings.ReplaceAll")
	assert.Contains(t, out, `"http://{conn}/"`)
}

func TestCompileEmbedsConstantAndKeywordArguments(t *testing.T) {
	c := newCompileTestContainer(t)
	src, err := c.Compile("generated", "Container", CompileSync, LockUnsafe)
	require.NoError(t, err)

	out := string(src)
	// "dsn" is a keyword argument whose value is a Ref to a non-promoted
	// constant ("host"), which is fully known at compile time — it must
	// appear as a literal in the generated Conn accessor's kw map, not be
	// silently dropped the way an empty map[string]any{} would drop it.
	assert.Contains(t, out, `"dsn": "localhost"`)
}

func TestCompileMixedPositionalAndKeywordArguments(t *testing.T) {
	resolver := newFakeResolver()
	resolver.register("app.widget", "Complex", func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return nil, nil
	})
	spec := Spec{
		{Key: "app.widget.Complex c", Value: Mapping{0: 1.5, "imag": 2.5}},
	}
	c, err := New(spec, resolver)
	require.NoError(t, err)

	src, err := c.Compile("generated", "Container", CompileSync, LockUnsafe)
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "pos := []any{float64(1.5)}")
	assert.Contains(t, out, `"imag": float64(2.5)`)
}

func TestExportedGoNameSanitizesIdentifiers(t *testing.T) {
	assert.Equal(t, "DatabaseUrl", exportedGoName("database_url"))
	assert.Equal(t, "AppConn", exportedGoName("app.conn"))
	assert.Equal(t, "Entry", exportedGoName(""))
}
