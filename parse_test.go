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

func TestParseSpecClassifiesEntries(t *testing.T) {
	spec := Spec{
		{Key: "host", Value: "localhost"},
		{Key: "app.db.Connection conn", Value: Mapping{"dsn": "{host}"}},
	}

	p, err := parseSpec(spec)
	require.NoError(t, err)

	assert.Contains(t, p.constants, "host")
	assert.Contains(t, p.wired, "conn")
	assert.Equal(t, []string{"host", "conn"}, p.order)

	conn := p.wired["conn"]
	assert.Equal(t, "app.db", conn.Module)
	assert.Equal(t, "Connection", conn.Type)
	assert.Equal(t, []string{"host"}, p.deps["conn"])
}

func TestParseSpecStandalonePlaceholderBecomesRef(t *testing.T) {
	spec := Spec{
		{Key: "host", Value: "localhost"},
		{Key: "app.db.Connection conn", Value: Mapping{"dsn": "{host}"}},
	}
	p, err := parseSpec(spec)
	require.NoError(t, err)

	conn := p.wired["conn"].Data.(Mapping)
	assert.Equal(t, Ref{Name: "host"}, conn["dsn"])
}

func TestParseSpecDuplicateNameIsError(t *testing.T) {
	spec := Spec{
		{Key: "host", Value: "localhost"},
		{Key: "app.db.Connection host", Value: Mapping{}},
	}
	_, err := parseSpec(spec)
	require.Error(t, err)
	var target *MalformedKeyError
	assert.ErrorAs(t, err, &target)
}

func TestParseSpecPropagatesMissingModuleError(t *testing.T) {
	spec := Spec{
		{Key: "Connection conn", Value: Mapping{}},
	}
	_, err := parseSpec(spec)
	require.Error(t, err)
	var target *MissingModuleError
	assert.ErrorAs(t, err, &target)
}
