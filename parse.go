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

import "sort"

// WiredEntry is a spec entry whose key denotes a constructor invocation.
// Data is a ResolvedValue: identical in shape to the original SpecValue
// except every standalone placeholder string has become a Ref.
type WiredEntry struct {
	Module  string
	Type    string
	Factory string
	Data    Value
}

// synthetic reports whether this entry is a synthetic wired entry produced
// by auto-promotion of a constant, rather than one that was genuinely
// declared as "module.Type name" in the spec.
func (e *WiredEntry) synthetic() bool { return e.Module == syntheticModule }

// ConstantEntry is a spec entry whose value is embedded verbatim (or, once
// auto-promoted, becomes a synthetic WiredEntry instead — see graph.go).
type ConstantEntry struct {
	Value Value
}

// parsedSpec is the Parser's output: every entry classified, its value
// tree resolved (placeholders replaced with Ref markers), and its direct
// placeholder dependency set recorded. Order is the original spec order,
// by declared name.
type parsedSpec struct {
	order     []string
	wired     map[string]*WiredEntry
	constants map[string]*ConstantEntry
	deps      map[string][]string // name -> direct dependency names (may repeat)
}

func newParsedSpec() *parsedSpec {
	return &parsedSpec{
		wired:     make(map[string]*WiredEntry),
		constants: make(map[string]*ConstantEntry),
		deps:      make(map[string][]string),
	}
}

// names returns the union of wired and constant entry names declared by
// the spec.
func (p *parsedSpec) names() map[string]struct{} {
	out := make(map[string]struct{}, len(p.wired)+len(p.constants))
	for n := range p.wired {
		out[n] = struct{}{}
	}
	for n := range p.constants {
		out[n] = struct{}{}
	}
	return out
}

func (p *parsedSpec) has(name string) bool {
	if _, ok := p.wired[name]; ok {
		return true
	}
	_, ok := p.constants[name]
	return ok
}

// parseSpec classifies every spec entry, resolves its value tree (replacing
// standalone placeholders with Ref markers while leaving template strings
// as-is for the dependency analyzer to decide on), and records each
// entry's direct dependency set.
func parseSpec(spec Spec) (*parsedSpec, error) {
	out := newParsedSpec()

	for _, entry := range spec {
		key, err := parseKey(entry.Key)
		if err != nil {
			return nil, err
		}

		if out.has(key.name) {
			return nil, &MalformedKeyError{
				Key:    entry.Key,
				Reason: "duplicate entry name " + key.name,
			}
		}

		depSet := make(map[string]struct{})
		resolved := resolveValueTree(entry.Value, depSet)

		switch key.kind {
		case kindWired:
			out.wired[key.name] = &WiredEntry{
				Module:  key.module,
				Type:    key.typ,
				Factory: key.factory,
				Data:    resolved,
			}
		case kindConstant:
			out.constants[key.name] = &ConstantEntry{Value: resolved}
		}

		out.order = append(out.order, key.name)
		out.deps[key.name] = setToSlice(depSet)
	}

	return out, nil
}

// resolveValueTree walks a raw SpecValue, replacing every standalone
// placeholder string with a Ref and recording every placeholder name
// encountered (standalone or embedded in a template) into deps. Template
// strings (embedded placeholders mixed with other characters) are left as
// plain strings; the dependency analyzer decides at build/eager-resolution
// time how to interpolate them. The tree-shape recursion itself is
// mapValue's (value.go); only the leaf rewrite and the deps side effect are
// particular to parsing.
func resolveValueTree(v Value, deps map[string]struct{}) Value {
	return mapValue(v, func(leaf Value) Value {
		s, ok := leaf.(string)
		if !ok {
			return leaf
		}
		ref, isRef, isTemplate := classifyString(s)
		if isRef {
			deps[ref.Name] = struct{}{}
			return ref
		}
		if isTemplate {
			for _, n := range placeholderNames(s) {
				deps[n] = struct{}{}
			}
		}
		return s
	})
}

// setToSlice flattens a dependency set into a slice, sorted for
// deterministic iteration: map iteration order is randomized, and this
// slice drives both the compiler's emitted field/method ordering and the
// promotion fixpoint's traversal order.
func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
