package route

import (
	"encoding/json"
	"testing"

	"commitrogue/internal/content"
	"commitrogue/internal/history"
	"commitrogue/internal/rng"
)

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := content.Load(content.LoadOptions{})
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	return reg
}

func TestGenerateDeterministic(t *testing.T) {
	reg := testRegistry(t)
	records := history.Synthetic(1234, 30)

	a, err := Generate(records, 0, "feature", 2, reg, rng.New(77))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(records, 0, "feature", 2, reg, rng.New(77))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Errorf("identical inputs generated different graphs:\n%s\n%s", aj, bj)
	}
}

func TestSpineLengthClamped(t *testing.T) {
	reg := testRegistry(t)
	for _, n := range []int{3, 10, 14, 60} {
		records := history.Synthetic(5, n)
		g, err := Generate(records, 0, "feature", 1, reg, rng.New(9))
		if err != nil {
			t.Fatalf("generate with %d records: %v", n, err)
		}
		spine := 0
		for _, node := range g.Nodes {
			if node.Risk == "" {
				spine++
			}
		}
		if spine < 10 || spine > 14 {
			t.Errorf("%d records produced spine of %d, want 10..14", n, spine)
		}
	}
}

func TestBossIsTerminal(t *testing.T) {
	reg := testRegistry(t)
	g, err := Generate(history.Synthetic(2, 20), 1, "fix", 1, reg, rng.New(3))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	bosses := 0
	for _, n := range g.Nodes {
		if n.Kind == KindBoss {
			bosses++
			if len(n.Next) != 0 {
				t.Errorf("boss node %s has successors %v", n.ID, n.Next)
			}
		}
	}
	if bosses != 1 {
		t.Errorf("boss count = %d, want exactly 1", bosses)
	}
}

func TestMergeLikeYieldsShopOrRest(t *testing.T) {
	reg := testRegistry(t)
	records := []history.Record{}
	for i := 0; i < 12; i++ {
		records = append(records, history.Record{
			Index: i, Message: "merge branch x", IsMergeLike: true,
		})
	}
	g, err := Generate(records, 0, "integration", 1, reg, rng.New(11))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, n := range g.Nodes {
		if n.RecordIndex < 0 || n.Kind == KindBoss || n.Risk != "" {
			continue
		}
		if n.Kind != KindShop && n.Kind != KindRest {
			t.Errorf("merge-like record %d became %s, want shop or rest", n.RecordIndex, n.Kind)
		}
	}
}

func TestShopDisabledChapterNeverHasShops(t *testing.T) {
	reg := testRegistry(t)
	records := []history.Record{}
	for i := 0; i < 12; i++ {
		records = append(records, history.Record{
			Index: i, Message: "merge branch x", IsMergeLike: true,
		})
	}
	// The initial chapter disables shops; every merge falls back to rest.
	g, err := Generate(records, 0, "initial", 1, reg, rng.New(11))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, n := range g.Nodes {
		if n.Kind == KindShop {
			t.Fatalf("node %s is a shop in a shop-disabled chapter", n.ID)
		}
	}
}

func TestRevertLikeYieldsElite(t *testing.T) {
	reg := testRegistry(t)
	records := []history.Record{}
	for i := 0; i < 12; i++ {
		records = append(records, history.Record{
			Index: i, Message: "revert: bad change", IsRevertLike: true,
		})
	}
	g, err := Generate(records, 0, "legacy", 1, reg, rng.New(13))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, n := range g.Nodes {
		if n.RecordIndex < 0 || n.Risk != "" {
			continue
		}
		// Terminal boss and its breather predecessor are forced kinds.
		if n.Kind == KindBoss || n.Kind == KindRest {
			continue
		}
		if n.Kind != KindElite {
			t.Errorf("revert-like node %d became %s, want elite", i, n.Kind)
		}
	}
}

func TestBranchesConvergeAndClamp(t *testing.T) {
	reg := testRegistry(t)
	g, err := Generate(history.Synthetic(21, 14), 0, "feature", 1, reg, rng.New(5))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	branchPoints := 0
	for _, n := range g.Nodes {
		if len(n.Next) > 1 {
			branchPoints++
		}
		for _, next := range n.Next {
			if _, ok := g.Node(next); !ok {
				t.Errorf("node %s links to missing node %s", n.ID, next)
			}
		}
		if n.Risk != "" && len(n.Next) != 1 {
			t.Errorf("alternative node %s should converge to exactly one node", n.ID)
		}
	}
	if branchPoints < 2 || branchPoints > 3 {
		t.Errorf("branch points = %d, want 2..3", branchPoints)
	}
}

func TestEntryIsFirstNode(t *testing.T) {
	reg := testRegistry(t)
	g, err := Generate(history.Synthetic(8, 12), 2, "legacy", 3, reg, rng.New(1))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if g.Entry != g.Nodes[0].ID {
		t.Errorf("entry = %s, want %s", g.Entry, g.Nodes[0].ID)
	}
}
