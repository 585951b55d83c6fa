package corpus

import (
	"slices"
	"testing"
)

func TestDefaultGraph_TopologicalOrder(t *testing.T) {
	g := NewGraph(Default().Concepts)
	order := g.TopologicalOrder()
	if len(order) != g.Len() {
		t.Fatalf("topological order has %d concepts, graph has %d", len(order), g.Len())
	}

	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c.ID] = i
	}
	for _, c := range order {
		for _, pre := range c.Prerequisites {
			if pos[pre] >= pos[c.ID] {
				t.Errorf("prerequisite %q (pos %d) does not precede %q (pos %d)", pre, pos[pre], c.ID, pos[c.ID])
			}
		}
	}
}

func TestDefaultGraph_Roots(t *testing.T) {
	g := NewGraph(Default().Concepts)
	roots := g.Roots()
	if len(roots) != 1 || roots[0].ID != "arithmetic" {
		t.Errorf("got roots %v, want [arithmetic]", roots)
	}
}

func TestGraph_Concept(t *testing.T) {
	g := NewGraph(Default().Concepts)
	c, err := g.Concept("zero-product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Zero product property" {
		t.Errorf("got name %q", c.Name)
	}
	if _, err := g.Concept("nonexistent"); err == nil {
		t.Error("expected error for nonexistent concept")
	}
}

func TestGraph_Ancestors(t *testing.T) {
	g := NewGraph(Default().Concepts)
	got := g.Ancestors("zero-product")
	want := []string{"arithmetic", "distributive-property", "factoring"}
	if !slices.Equal(got, want) {
		t.Errorf("Ancestors(zero-product) = %v, want %v", got, want)
	}
	if len(g.Ancestors("arithmetic")) != 0 {
		t.Error("root concept should have no ancestors")
	}
}

func TestGraph_Dependents(t *testing.T) {
	g := NewGraph(Default().Concepts)
	deps := g.Dependents("factoring")
	if !slices.Contains(deps, "zero-product") {
		t.Errorf("Dependents(factoring) = %v, want it to contain zero-product", deps)
	}
}

func TestGraph_DiamondIsNotACycle(t *testing.T) {
	concepts := []Concept{
		{ID: "a", Name: "A", Explanation: "a"},
		{ID: "b", Name: "B", Explanation: "b", Prerequisites: []string{"a"}},
		{ID: "c", Name: "C", Explanation: "c", Prerequisites: []string{"a"}},
		{ID: "d", Name: "D", Explanation: "d", Prerequisites: []string{"b", "c"}},
	}
	g := NewGraph(concepts)
	order := g.TopologicalOrder()
	ids := make([]string, len(order))
	for i, c := range order {
		ids[i] = c.ID
	}
	if !slices.Equal(ids, []string{"a", "b", "c", "d"}) {
		t.Errorf("got order %v, want [a b c d]", ids)
	}
}
