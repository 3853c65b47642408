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
	"regexp"
	"strings"
)

const (
	// syntheticModule marks a ConstantEntry that has been auto-promoted to
	// a synthetic WiredEntry.
	syntheticModule = "⟨synthetic⟩"

	// syntheticStringType is the Type used for auto-promoted string
	// constants (a lazily-computed templated string).
	syntheticStringType = "string"

	// syntheticValueType is used for the rarer case of a non-string
	// constant that nonetheless transitively references a wired entry
	// (a generalization of the common templated-string case).
	syntheticValueType = "value"
)

// placeholderPattern matches a single "{name}" placeholder. It intentionally
// disallows nested braces in the name: `placeholder := "{" ident "}"`.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// SpecEntry is one key/value pair of a Spec, in the order the host supplied
// it.
type SpecEntry struct {
	Key   string
	Value Value
}

// Spec is the declarative input: an insertion-ordered mapping from a
// string key to a value. It is expressed as an ordered slice, not a Go
// map, because eager resolution order for constants and deterministic
// compiler output both depend on that order being preserved.
type Spec []SpecEntry

// keyKind classifies one spec key.
type keyKind int

const (
	kindConstant keyKind = iota
	kindWired
)

// parsedKey is the result of classifying and, for wired keys, decomposing
// a single spec key per the following grammar:
//
//	key       := type-path SP name-part
//	type-path := ident ("." ident)+
//	name-part := ident | ident "." ident
//
// A key with no single space separator is a constant. A wired key's
// name-part with more than one dot is malformed. A wired key's type-path
// with no dot is missing its module component.
type parsedKey struct {
	kind    keyKind
	module  string
	typ     string
	factory string
	name    string
}

// parseKey classifies and decomposes a single spec key. It splits on the
// *last* space in the key, so a type-path is never expected to contain
// spaces of its own.
func parseKey(key string) (parsedKey, error) {
	idx := strings.LastIndex(key, " ")
	if idx < 0 {
		return parsedKey{kind: kindConstant, name: key}, nil
	}

	typePath := key[:idx]
	namePart := key[idx+1:]

	if typePath == "" || namePart == "" {
		return parsedKey{kind: kindConstant, name: key}, nil
	}

	dot := strings.LastIndex(typePath, ".")
	if dot < 0 {
		return parsedKey{}, &MissingModuleError{Key: key}
	}
	module := typePath[:dot]
	typ := typePath[dot+1:]

	nameParts := strings.Split(namePart, ".")
	switch len(nameParts) {
	case 1:
		return parsedKey{
			kind:   kindWired,
			module: module,
			typ:    typ,
			name:   nameParts[0],
		}, nil
	case 2:
		return parsedKey{
			kind:    kindWired,
			module:  module,
			typ:     typ,
			factory: nameParts[1],
			name:    nameParts[0],
		}, nil
	default:
		return parsedKey{}, &MalformedKeyError{
			Key:    key,
			Reason: "name-part may contain at most one dot (an optional factory method)",
		}
	}
}

// classifyString determines whether s is a standalone placeholder (the
// entire string is exactly one "{name}"), a template (one or more
// placeholders embedded among other characters), or a plain string with no
// placeholders at all.
func classifyString(s string) (ref Ref, isRef bool, isTemplate bool) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return Ref{}, false, false
	}
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		name := s[matches[0][2]:matches[0][3]]
		return Ref{Name: name}, true, false
	}
	return Ref{}, false, true
}

// placeholderNames returns every placeholder name embedded in s, in the
// order they appear, including duplicates.
func placeholderNames(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}
