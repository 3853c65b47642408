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
	"sort"
	"strings"

	"github.com/sywhang/wireup/internal/graph"
)

// resolvedSpec is the Dependency Analyzer's output: the parsed spec with
// every constant either fully resolved (eager, construction-time value) or
// promoted into a synthetic WiredEntry, plus a deterministic build order
// covering every wired (including synthetic) entry.
type resolvedSpec struct {
	wired      map[string]*WiredEntry
	constants  map[string]Value   // eagerly resolved, non-promoted constants
	deps       map[string][]string // name -> direct dependency names, wired entries only
	buildOrder []string           // topological order over wired entries only
	names      []string           // full declared order, wired and constant
}

// analyze computes the auto-promotion fixpoint, detects cycles in the
// resulting wired-entry graph via Kahn's algorithm, and eagerly resolves
// every constant that was never promoted.
func analyze(p *parsedSpec) (*resolvedSpec, error) {
	promoted := computePromotions(p)

	wired := make(map[string]*WiredEntry, len(p.wired)+len(promoted))
	for name, w := range p.wired {
		wired[name] = w
	}
	for name := range promoted {
		c := p.constants[name]
		wired[name] = &WiredEntry{
			Module: syntheticModule,
			Type:   syntheticType(c.Value),
			Data:   c.Value,
		}
	}

	idx := make(map[string]int, len(wired))
	names := make([]string, 0, len(wired))
	for name := range wired {
		idx[name] = len(names)
		names = append(names, name)
	}
	// Stable ordering keeps cycle-path reporting and compiler output
	// deterministic across runs of the same spec.
	sort.Strings(names)
	for i, name := range names {
		idx[name] = i
	}

	g := &nameGraph{names: names, idx: idx}
	wiredDeps := make(map[string][]string, len(wired))
	for name := range wired {
		for _, dep := range p.deps[name] {
			if j, ok := idx[dep]; ok {
				g.edges = append(g.edges, edge{idx[name], j})
				wiredDeps[name] = append(wiredDeps[name], dep)
			}
		}
	}

	if ok, cyclePath := graph.IsAcyclic(g); !ok {
		path := make([]string, len(cyclePath))
		for i, n := range cyclePath {
			path[i] = names[n]
		}
		return nil, &CircularWiringError{Path: path}
	}

	order, ok := graph.TopoSort(g)
	if !ok {
		// IsAcyclic already proved acyclicity; TopoSort cannot disagree.
		panic("wireup: acyclic graph rejected by TopoSort")
	}
	// Edges point from an entry to its dependencies, so TopoSort lists
	// dependents first; the build order is that sequence reversed.
	buildOrder := make([]string, len(order))
	for i, n := range order {
		buildOrder[len(order)-1-i] = names[n]
	}

	constants, err := resolveEagerConstants(p, promoted)
	if err != nil {
		return nil, err
	}

	return &resolvedSpec{
		wired:      wired,
		constants:  constants,
		deps:       wiredDeps,
		buildOrder: buildOrder,
		names:      p.order,
	}, nil
}

// syntheticType picks the synthetic WiredEntry type for a promoted
// constant: the common case of a lazily-interpolated template string, or
// the rarer case of a composite/non-string value that nonetheless
// transitively references a wired entry.
func syntheticType(v Value) string {
	if _, ok := v.(string); ok {
		return syntheticStringType
	}
	return syntheticValueType
}

// computePromotions runs a fixpoint over the dependency map: a constant is
// promoted the moment any of its direct dependencies is a wired entry or
// an already-promoted constant. It repeats until a pass makes no changes.
func computePromotions(p *parsedSpec) map[string]struct{} {
	promoted := make(map[string]struct{})
	for {
		changed := false
		for name, deps := range p.deps {
			if _, isConst := p.constants[name]; !isConst {
				continue
			}
			if _, already := promoted[name]; already {
				continue
			}
			for _, dep := range deps {
				if _, isWired := p.wired[dep]; isWired {
					promoted[name] = struct{}{}
					changed = true
					break
				}
				if _, isPromoted := promoted[dep]; isPromoted {
					promoted[name] = struct{}{}
					changed = true
					break
				}
			}
		}
		if !changed {
			return promoted
		}
	}
}

// resolveEagerConstants resolves every non-promoted constant's value tree
// to a concrete Value, substituting each Ref and template placeholder with
// the already-resolved value of another non-promoted constant. A
// non-promoted constant can, by construction, only depend on other
// non-promoted constants, which may be declared before or after it: passes
// in spec declaration order repeat until every constant resolves, and a
// pass that resolves nothing new returns the last UnknownPlaceholderError
// (an undeclared name, or constants that reference each other in a cycle).
func resolveEagerConstants(p *parsedSpec, promoted map[string]struct{}) (map[string]Value, error) {
	out := make(map[string]Value, len(p.constants))
	pending := p.order
	for len(pending) > 0 {
		var next []string
		var lastErr error
		for _, name := range pending {
			c, ok := p.constants[name]
			if !ok {
				continue
			}
			if _, isPromoted := promoted[name]; isPromoted {
				continue
			}
			v, err := substituteConstant(c.Value, out, name)
			if err != nil {
				next, lastErr = append(next, name), err
				continue
			}
			out[name] = v
		}
		if len(next) == len(pending) {
			return nil, lastErr
		}
		pending = next
	}
	return out, nil
}

func substituteConstant(v Value, resolved map[string]Value, owner string) (Value, error) {
	switch t := v.(type) {
	case Ref:
		val, ok := resolved[t.Name]
		if !ok {
			return nil, &UnknownPlaceholderError{Name: t.Name, Context: owner}
		}
		return val, nil
	case string:
		names := placeholderNames(t)
		if len(names) == 0 {
			return t, nil
		}
		result := t
		for _, n := range names {
			val, ok := resolved[n]
			if !ok {
				return nil, &UnknownPlaceholderError{Name: n, Context: owner}
			}
			result = strings.ReplaceAll(result, "{"+n+"}", stringify(val))
		}
		return result, nil
	case Mapping:
		out := make(Mapping, len(t))
		for k, child := range t {
			cv, err := substituteConstant(child, resolved, owner)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case Tuple:
		out := make(Tuple, len(t))
		for i, child := range t {
			cv, err := substituteConstant(child, resolved, owner)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case []Value:
		out := make([]Value, len(t))
		for i, child := range t {
			cv, err := substituteConstant(child, resolved, owner)
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

type edge struct{ from, to int }

// nameGraph adapts a name-keyed dependency set to the internal/graph.Graph
// interface, which operates over dense integer node indices.
type nameGraph struct {
	names []string
	idx   map[string]int
	edges []edge
}

func (g *nameGraph) Order() int { return len(g.names) }

func (g *nameGraph) EdgesFrom(u int) []int {
	var out []int
	for _, e := range g.edges {
		if e.from == u {
			out = append(out, e.to)
		}
	}
	return out
}
