// Copyright (c) 2021 Uber Technologies, Inc.
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

// Package graph provides a container-agnostic representation of a directed
// graph together with the two algorithms the dependency analyzer needs:
// a cheap Kahn's-algorithm acyclicity check, and a DFS fallback that names
// the members of a cycle once Kahn's stalls.
package graph

// Graph is a container-agnostic representation of a directed graph. Nodes
// are identified by their position in an ordered list.
type Graph interface {
	// Order reports the total number of nodes in the graph.
	Order() int

	// EdgesFrom returns the indices of nodes that node u points to.
	EdgesFrom(u int) []int
}

// IsAcyclic reports whether g is a DAG. It runs Kahn's algorithm (repeated
// removal of zero-indegree nodes): if every node is eventually removed, the
// graph is acyclic. Kahn's alone can say a cycle exists but not which nodes
// are in it, so when nodes remain stuck with nonzero indegree, IsAcyclic
// falls back to a DFS pass (findCycleDFS) over just to report one cycle's
// member path.
func IsAcyclic(g Graph) (ok bool, cycle []int) {
	n := g.Order()
	indegree := make([]int, n)
	for u := 0; u < n; u++ {
		for _, v := range g.EdgesFrom(u) {
			indegree[v]++
		}
	}

	queue := make([]int, 0, n)
	for u := 0; u < n; u++ {
		if indegree[u] == 0 {
			queue = append(queue, u)
		}
	}

	removed := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		removed++
		for _, v := range g.EdgesFrom(u) {
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if removed == n {
		return true, nil
	}
	return false, findCycleDFS(g)
}

// findCycleDFS walks g via DFS with a three-color scheme (white/gray/black)
// and returns the nodes of the first back edge it finds, in cycle order.
// It is only ever invoked once IsAcyclic's Kahn's pass has already
// established that a cycle exists.
func findCycleDFS(g Graph) []int {
	const (
		white = iota
		gray
		black
	)

	n := g.Order()
	color := make([]int, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	var cycleStart, cycleEnd int
	found := false

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		for _, v := range g.EdgesFrom(u) {
			switch color[v] {
			case white:
				parent[v] = u
				if visit(v) {
					return true
				}
			case gray:
				cycleStart, cycleEnd = v, u
				found = true
				return true
			}
		}
		color[u] = black
		return false
	}

	for u := 0; u < n; u++ {
		if color[u] == white {
			if visit(u) {
				break
			}
		}
	}
	if !found {
		return nil
	}

	cycle := []int{cycleStart}
	for node := cycleEnd; node != cycleStart; node = parent[node] {
		cycle = append(cycle, node)
	}
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}

// TopoSort returns a topological ordering of g's nodes. It reuses the same
// Kahn's pass as IsAcyclic; callers that already know the graph is acyclic
// (e.g. after a successful IsAcyclic check) can rely on ok being true.
func TopoSort(g Graph) (order []int, ok bool) {
	n := g.Order()
	indegree := make([]int, n)
	for u := 0; u < n; u++ {
		for _, v := range g.EdgesFrom(u) {
			indegree[v]++
		}
	}

	queue := make([]int, 0, n)
	for u := 0; u < n; u++ {
		if indegree[u] == 0 {
			queue = append(queue, u)
		}
	}

	order = make([]int, 0, n)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		for _, v := range g.EdgesFrom(u) {
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	return order, len(order) == n
}
