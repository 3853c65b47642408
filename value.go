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

import "fmt"

// Value is the tagged-union shape shared by SpecValue (pre-parse) and
// ResolvedValue (post-parse). It is one of:
//
//	nil, bool, string, []byte, int64, float64, complex128, Ellipsis (primitives)
//	string containing one or more "{name}" placeholders (a template, kept as a plain string after parsing)
//	Ref (a resolved standalone placeholder)
//	[]Value (an ordered sequence / tuple)
//	Mapping (a keyed mapping whose keys are string or non-negative int)
//
// Nesting is arbitrary.
type Value = any

// Ellipsis is a sentinel primitive denoting "no value supplied", distinct
// from nil so a host can tell "explicitly absent" apart from "unset". It
// carries no data; its only role is to be a distinguishable primitive value.
type Ellipsis struct{}

// EllipsisValue is the single instance of Ellipsis spec values should use.
var EllipsisValue = Ellipsis{}

// Ref is a marker left in a ResolvedValue tree wherever a SpecValue string
// was entirely a single "{name}" placeholder.
type Ref struct {
	Name string
}

func (r Ref) String() string { return "{" + r.Name + "}" }

// Mapping is a keyed argument mapping. Keys must be string or int; int keys
// denote positional arguments (ordered ascending), string keys denote
// keyword arguments during argument normalization.
type Mapping map[any]Value

// Tuple is an ordered, fixed-length sequence of values, distinguished from
// a plain slice only for documentation purposes — both normalize to an
// all-positional argument list.
type Tuple []Value

// IsPrimitive reports whether v is one of the primitive value kinds
// recognized as a leaf of the value tree.
func IsPrimitive(v Value) bool {
	switch v.(type) {
	case nil, bool, string, []byte, int64, float64, complex128, Ellipsis,
		int, int8, int16, int32, float32:
		return true
	default:
		return false
	}
}

// stringify renders a resolved value for template-constant interpolation.
// Go's usual fmt.Sprint/Stringer conventions are the simplest, most
// permissive choice for a host-agnostic stringifier: any value, not just
// ones implementing fmt.Stringer, renders to something reasonable.
func stringify(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// mapValue rebuilds a Value tree, replacing each leaf with the result of
// transform. Composite shapes (Mapping, Tuple, []Value) are preserved and
// reconstructed around the transformed children; transform itself only
// ever sees leaves; it never needs to recurse. Used by resolveValueTree
// (parse.go) to rewrite placeholder strings into Ref markers in place.
func mapValue(v Value, transform func(Value) Value) Value {
	switch t := v.(type) {
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			out[k] = mapValue(child, transform)
		}
		return out
	case Tuple:
		out := make(Tuple, len(t))
		for i, child := range t {
			out[i] = mapValue(child, transform)
		}
		return out
	case []Value:
		out := make([]Value, len(t))
		for i, child := range t {
			out[i] = mapValue(child, transform)
		}
		return out
	default:
		return transform(v)
	}
}
