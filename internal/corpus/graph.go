package corpus

import (
	"fmt"
	"slices"
	"sort"
)

// Graph is the concept prerequisite DAG as an explicit adjacency mapping
// with precomputed indices.
type Graph struct {
	concepts   []Concept
	byID       map[string]*Concept
	prereqs    map[string][]string
	dependents map[string][]string
	topoOrder  []string
	topoIndex  map[string]int
}

// NewGraph builds the graph and its topological order (Kahn's algorithm).
// Concepts on a cycle are left out of the order; Validate reports them.
func NewGraph(concepts []Concept) *Graph {
	gr := &Graph{
		concepts:   slices.Clone(concepts),
		byID:       make(map[string]*Concept, len(concepts)),
		prereqs:    make(map[string][]string, len(concepts)),
		dependents: make(map[string][]string),
		topoIndex:  make(map[string]int, len(concepts)),
	}

	for i := range gr.concepts {
		c := &gr.concepts[i]
		gr.byID[c.ID] = c
		gr.prereqs[c.ID] = slices.Clone(c.Prerequisites)
	}
	for i := range gr.concepts {
		for _, pre := range gr.concepts[i].Prerequisites {
			gr.dependents[pre] = append(gr.dependents[pre], gr.concepts[i].ID)
		}
	}

	inDegree := make(map[string]int, len(gr.concepts))
	for _, c := range gr.concepts {
		n := 0
		for _, pre := range c.Prerequisites {
			if _, ok := gr.byID[pre]; ok {
				n++
			}
		}
		inDegree[c.ID] = n
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		gr.topoIndex[id] = len(gr.topoOrder)
		gr.topoOrder = append(gr.topoOrder, id)

		deps := slices.Clone(gr.dependents[id])
		sort.Strings(deps)
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return gr
}

// Concept returns a concept by ID.
func (g *Graph) Concept(id string) (Concept, error) {
	c, ok := g.byID[id]
	if !ok {
		return Concept{}, fmt.Errorf("concept not found: %q", id)
	}
	return *c, nil
}

// Prerequisites returns the direct prerequisite IDs of a concept.
func (g *Graph) Prerequisites(id string) []string {
	return slices.Clone(g.prereqs[id])
}

// Dependents returns the IDs of concepts that directly require id.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// Ancestors returns every transitive prerequisite of id in topological order.
func (g *Graph) Ancestors(id string) []string {
	seen := make(map[string]bool)
	stack := slices.Clone(g.prereqs[id])
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, g.prereqs[cur]...)
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	g.sortTopo(out)
	return out
}

// Roots returns concepts with no prerequisites.
func (g *Graph) Roots() []Concept {
	var out []Concept
	for _, id := range g.topoOrder {
		if len(g.prereqs[id]) == 0 {
			out = append(out, *g.byID[id])
		}
	}
	return out
}

// TopologicalOrder returns concepts with every prerequisite before its
// dependents. Ties are broken by ID.
func (g *Graph) TopologicalOrder() []Concept {
	out := make([]Concept, 0, len(g.topoOrder))
	for _, id := range g.topoOrder {
		out = append(out, *g.byID[id])
	}
	return out
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.concepts)
}

func (g *Graph) sortTopo(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ti, iok := g.topoIndex[ids[i]]
		tj, jok := g.topoIndex[ids[j]]
		if iok != jok {
			return iok
		}
		if ti != tj {
			return ti < tj
		}
		return ids[i] < ids[j]
	})
}
