package reftype

import "testing"

func TestTaintTransitiveClosure(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(4, 5) // unrelated component

	tainted := Taint(g, []Range{1})

	for _, want := range []Range{1, 2, 3} {
		if !tainted[want] {
			t.Fatalf("expected %d to be tainted", want)
		}
	}
	if tainted[4] || tainted[5] {
		t.Fatal("did not expect the unrelated component to be tainted")
	}
}

func TestTaintHandlesCycles(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)

	tainted := Taint(g, []Range{1})
	if !tainted[1] || !tainted[2] {
		t.Fatal("expected both ranges in the cycle to be tainted")
	}
	if len(tainted) != 2 {
		t.Fatalf("expected exactly 2 tainted ranges, got %d", len(tainted))
	}
}

func TestTaintEmptySeed(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	tainted := Taint(g, nil)
	if len(tainted) != 0 {
		t.Fatalf("expected no tainted ranges from an empty seed, got %d", len(tainted))
	}
}
