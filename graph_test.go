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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzePromotesConstantDependingOnWired(t *testing.T) {
	spec := Spec{
		{Key: "app.net.Host host", Value: Mapping{}},
		{Key: "url", Value: "http://{host}/"},
	}
	p, err := parseSpec(spec)
	require.NoError(t, err)

	resolved, err := analyze(p)
	require.NoError(t, err)

	assert.NotContains(t, resolved.constants, "url")
	urlEntry, ok := resolved.wired["url"]
	require.True(t, ok)
	assert.Equal(t, syntheticModule, urlEntry.Module)
	assert.Equal(t, syntheticStringType, urlEntry.Type)
}

func TestAnalyzeResolvesNonPromotedConstantsEagerly(t *testing.T) {
	spec := Spec{
		{Key: "host", Value: "localhost"},
		{Key: "port", Value: "5432"},
		{Key: "dsn", Value: "postgres://{host}:{port}"},
	}
	p, err := parseSpec(spec)
	require.NoError(t, err)

	resolved, err := analyze(p)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432", resolved.constants["dsn"])
}

func TestAnalyzeDetectsStaticCycle(t *testing.T) {
	spec := Spec{
		{Key: "app.a.A a", Value: Mapping{"b": "{b}"}},
		{Key: "app.b.B b", Value: Mapping{"a": "{a}"}},
	}
	p, err := parseSpec(spec)
	require.NoError(t, err)

	_, err = analyze(p)
	require.Error(t, err)
	assert.True(t, IsCircularWiring(err))
}

func TestAnalyzeBuildOrderRespectsDependencies(t *testing.T) {
	spec := Spec{
		{Key: "app.a.A a", Value: Mapping{}},
		{Key: "app.b.B b", Value: Mapping{"dep": "{a}"}},
	}
	p, err := parseSpec(spec)
	require.NoError(t, err)

	resolved, err := analyze(p)
	require.NoError(t, err)

	posA, posB := -1, -1
	for i, n := range resolved.buildOrder {
		switch n {
		case "a":
			posA = i
		case "b":
			posB = i
		}
	}
	assert.Less(t, posA, posB)
}
