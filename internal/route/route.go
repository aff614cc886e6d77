// Package route turns an ordered slice of history records into the node
// graph of one chapter. Generation is pure: same records, same tuning,
// same RNG state, same graph. Iteration never touches a map.
package route

import (
	"fmt"

	"commitrogue/internal/content"
	"commitrogue/internal/history"
	"commitrogue/internal/rng"
)

// NodeKind is the encounter kind of a route node.
type NodeKind string

const (
	KindBattle   NodeKind = "battle"
	KindElite    NodeKind = "elite"
	KindBoss     NodeKind = "boss"
	KindEvent    NodeKind = "event"
	KindShop     NodeKind = "shop"
	KindRest     NodeKind = "rest"
	KindTreasure NodeKind = "treasure"
)

const (
	minNodes = 10
	maxNodes = 14
)

// Node is one immutable stop on the route. Visited state lives in run
// state, never here.
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	RecordIndex int      `json:"record_index"` // -1 for filler nodes
	EnemyType   string   `json:"enemy_type,omitempty"`
	Next        []string `json:"next"`
	Risk        string   `json:"risk,omitempty"` // risky, safe
}

// Graph is one chapter's route.
type Graph struct {
	ChapterIndex int    `json:"chapter_index"`
	ChapterType  string `json:"chapter_type"`
	Entry        string `json:"entry"`
	Nodes        []Node `json:"nodes"`
}

// Node finds a node by id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIDs returns every node id in build order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Generate builds the route for one chapter from its slice of records.
func Generate(records []history.Record, chapterIndex int, chapterType string, difficulty int, reg *content.Registry, stream rng.Stream) (*Graph, error) {
	if reg == nil {
		return nil, fmt.Errorf("generate route: nil registry")
	}

	shopOK := true
	if ov, ok := reg.ChapterOverride(chapterType); ok {
		shopOK = ov.ShopEnabled
	}

	spine := len(records)
	if spine < minNodes {
		spine = minNodes
	}
	if spine > maxNodes {
		spine = maxNodes
	}

	g := &Graph{ChapterIndex: chapterIndex, ChapterType: chapterType}
	nodes := make([]Node, 0, spine+4)
	for i := 0; i < spine; i++ {
		node := Node{ID: fmt.Sprintf("c%d_n%d", chapterIndex, i), RecordIndex: -1}
		if i < len(records) {
			rec := records[i]
			node.RecordIndex = rec.Index
			node.Kind, node.EnemyType = classify(rec, difficulty, shopOK, stream)
		} else {
			node.Kind, node.EnemyType = filler(stream)
		}
		nodes = append(nodes, node)
	}

	// The chapter always closes on a boss.
	nodes[spine-1].Kind = KindBoss
	nodes[spine-1].EnemyType = bossType(records)

	// The node before the boss is a breather when the classification
	// put a fight there.
	if spine >= 2 {
		switch nodes[spine-2].Kind {
		case KindBattle, KindElite:
			nodes[spine-2].Kind = KindRest
			nodes[spine-2].EnemyType = ""
		}
	}

	// Chain the spine.
	for i := 0; i < spine-1; i++ {
		nodes[i].Next = []string{nodes[i+1].ID}
	}

	// Branch points: 2-3, each offering a risky and a safe alternative
	// to the next spine node. Branches never land on the boss or its
	// predecessor, and the count clamps to the eligible positions.
	branches := 2 + stream.Choose(2)
	eligible := spine - 3 // positions 1..spine-3 can branch
	if branches > eligible {
		branches = eligible
	}
	if branches < 0 {
		branches = 0
	}
	used := make([]bool, spine)
	for b := 0; b < branches; b++ {
		pos := 1 + stream.Choose(eligible)
		for used[pos] {
			pos = (pos % eligible) + 1
		}
		used[pos] = true

		risky := Node{
			ID:          fmt.Sprintf("c%d_n%d_risky", chapterIndex, pos),
			RecordIndex: -1,
			Risk:        "risky",
			Next:        []string{nodes[pos+2].ID},
		}
		if stream.Float64() < 0.6 {
			risky.Kind = KindElite
			risky.EnemyType = nodes[pos].EnemyType
		} else {
			risky.Kind = KindBattle
			risky.EnemyType = nodes[pos].EnemyType
		}
		if risky.EnemyType == "" {
			risky.EnemyType = string(history.KindFeat)
		}

		safe := Node{
			ID:          fmt.Sprintf("c%d_n%d_safe", chapterIndex, pos),
			RecordIndex: -1,
			Risk:        "safe",
			Next:        []string{nodes[pos+2].ID},
		}
		if stream.Float64() < 0.5 {
			safe.Kind = KindEvent
		} else {
			safe.Kind = KindRest
		}

		nodes[pos].Next = append(nodes[pos].Next, risky.ID, safe.ID)
		nodes = append(nodes, risky, safe)
	}

	g.Nodes = nodes
	g.Entry = nodes[0].ID
	return g, nil
}

// classify maps one record to a node kind. Structural record flags win,
// then churn, then the message prefix kind.
func classify(rec history.Record, difficulty int, shopOK bool, stream rng.Stream) (NodeKind, string) {
	kind := rec.Kind()

	if rec.IsMergeLike {
		if shopOK && stream.Float64() < 0.5 {
			return KindShop, ""
		}
		return KindRest, ""
	}
	if rec.IsRevertLike {
		return KindElite, string(kind)
	}
	// Difficulty nudges big diffs toward elite fights.
	if rec.Churn() > 300 && stream.Float64() < 0.4+0.05*float64(difficulty) {
		return KindElite, string(kind)
	}

	switch kind {
	case history.KindDocs:
		return KindEvent, ""
	case history.KindTest:
		if stream.Float64() < 0.5 {
			return KindEvent, ""
		}
		return KindBattle, string(kind)
	case history.KindChore:
		if stream.Float64() < 0.3 {
			return KindTreasure, ""
		}
		return KindBattle, string(kind)
	case history.KindStyle:
		return KindEvent, ""
	default:
		return KindBattle, string(kind)
	}
}

// filler pads a short history up to the minimum route length.
func filler(stream rng.Stream) (NodeKind, string) {
	if stream.Float64() < 0.7 {
		return KindBattle, string(history.KindFeat)
	}
	return KindEvent, ""
}

// bossType picks the boss flavor from the chapter's dominant record
// kind, defaulting to feat.
func bossType(records []history.Record) string {
	counts := make([]int, 0)
	kinds := make([]string, 0)
	for _, r := range records {
		k := string(r.Kind())
		found := false
		for i, existing := range kinds {
			if existing == k {
				counts[i]++
				found = true
				break
			}
		}
		if !found {
			kinds = append(kinds, k)
			counts = append(counts, 1)
		}
	}
	best := string(history.KindFeat)
	bestCount := 0
	for i, k := range kinds {
		if counts[i] > bestCount {
			best = k
			bestCount = counts[i]
		}
	}
	return best
}
