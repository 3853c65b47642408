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

func TestParseKeyConstant(t *testing.T) {
	k, err := parseKey("database_url")
	require.NoError(t, err)
	assert.Equal(t, kindConstant, k.kind)
	assert.Equal(t, "database_url", k.name)
}

func TestParseKeyWired(t *testing.T) {
	k, err := parseKey("app.db.Connection conn")
	require.NoError(t, err)
	assert.Equal(t, kindWired, k.kind)
	assert.Equal(t, "app.db", k.module)
	assert.Equal(t, "Connection", k.typ)
	assert.Equal(t, "conn", k.name)
	assert.Empty(t, k.factory)
}

func TestParseKeyWiredWithFactory(t *testing.T) {
	k, err := parseKey("app.db.Connection conn.fromPool")
	require.NoError(t, err)
	assert.Equal(t, "conn", k.name)
	assert.Equal(t, "fromPool", k.factory)
}

func TestParseKeyMissingModule(t *testing.T) {
	_, err := parseKey("Connection conn")
	require.Error(t, err)
	var target *MissingModuleError
	assert.ErrorAs(t, err, &target)
}

func TestParseKeyMalformedNamePart(t *testing.T) {
	_, err := parseKey("app.db.Connection conn.fromPool.extra")
	require.Error(t, err)
	var target *MalformedKeyError
	assert.ErrorAs(t, err, &target)
}

func TestClassifyStringStandalonePlaceholder(t *testing.T) {
	ref, isRef, isTemplate := classifyString("{host}")
	assert.True(t, isRef)
	assert.False(t, isTemplate)
	assert.Equal(t, "host", ref.Name)
}

func TestClassifyStringTemplate(t *testing.T) {
	_, isRef, isTemplate := classifyString("postgres://{host}:{port}/db")
	assert.False(t, isRef)
	assert.True(t, isTemplate)
}

func TestClassifyStringPlain(t *testing.T) {
	_, isRef, isTemplate := classifyString("plain value")
	assert.False(t, isRef)
	assert.False(t, isTemplate)
}

func TestPlaceholderNamesOrderAndDuplicates(t *testing.T) {
	names := placeholderNames("{a}-{b}-{a}")
	assert.Equal(t, []string{"a", "b", "a"}, names)
}
