package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"commitrogue/internal/content"
	"commitrogue/internal/db"
	"commitrogue/internal/game"
	"commitrogue/internal/history"
	"commitrogue/internal/route"
)

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := content.Load(content.LoadOptions{})
	if err != nil {
		t.Fatalf("load default content: %v", err)
	}
	return reg
}

func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e, err := New(testRegistry(t), Options{
		Seed:        seed,
		CharacterID: "junior_dev",
		Records:     history.Synthetic(seed, 40),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// step applies one scripted action for the current phase. It returns
// false once the run has ended.
func step(t *testing.T, e *Engine) bool {
	t.Helper()
	var action Action
	switch e.Phase() {
	case game.PhaseRoute:
		next := e.NextNodes()
		if len(next) == 0 {
			t.Fatalf("route phase with no reachable nodes")
		}
		action = Action{Type: ActChooseNode, NodeID: next[0]}
	case game.PhaseCombat:
		if len(e.Hand()) > 0 {
			if _, err := e.Apply(Action{Type: ActPlayCard, HandIndex: 0}); err != nil {
				var illegal *game.IllegalActionError
				if !errors.As(err, &illegal) {
					t.Fatalf("play card: %v", err)
				}
				action = Action{Type: ActEndTurn}
				break
			}
			return e.Phase() != game.PhaseEnded
		}
		action = Action{Type: ActEndTurn}
	case game.PhaseEvent:
		choices := e.EventChoiceIDs()
		if len(choices) == 0 {
			t.Fatalf("event phase with no choices")
		}
		action = Action{Type: ActChooseEventOption, ChoiceID: choices[0]}
	case game.PhaseReward:
		offer, ok := e.Offer()
		if !ok {
			t.Fatalf("reward phase with no offer")
		}
		if len(offer.Cards) > 0 {
			action = Action{Type: ActPickCardReward, CardID: offer.Cards[0]}
		} else {
			action = Action{Type: ActSkipCardReward}
		}
	case game.PhaseShop:
		action = Action{Type: ActLeaveShop}
	case game.PhaseRest:
		action = Action{Type: ActRest}
	case game.PhaseTreasure:
		action = Action{Type: ActOpenTreasure}
	case game.PhaseEnded:
		return false
	default:
		t.Fatalf("unexpected phase %q", e.Phase())
	}
	if _, err := e.Apply(action); err != nil {
		t.Fatalf("apply %s in phase %s: %v", action.Type, e.Phase(), err)
	}
	return e.Phase() != game.PhaseEnded
}

func drive(t *testing.T, e *Engine, maxSteps int) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if !step(t, e) {
			return
		}
	}
	t.Fatalf("run did not end within %d steps (phase %s)", maxSteps, e.Phase())
}

func TestRunEndsUnderScriptedPlay(t *testing.T) {
	e := newTestEngine(t, 42)
	drive(t, e, 20000)

	summary, ok := e.Summary()
	if !ok {
		t.Fatalf("ended run has no summary")
	}
	if summary.Outcome != "victory" && summary.Outcome != "defeat" {
		t.Errorf("summary outcome = %q", summary.Outcome)
	}

	events := e.AllEvents()
	if events[0].Type != game.EvRunStarted {
		t.Errorf("first event = %s, want %s", events[0].Type, game.EvRunStarted)
	}
	last := events[len(events)-1]
	if last.Type != game.EvRunSummary {
		t.Errorf("last event = %s, want %s", last.Type, game.EvRunSummary)
	}
}

func TestIdenticalInputsProduceIdenticalLogs(t *testing.T) {
	a := newTestEngine(t, 1234)
	b := newTestEngine(t, 1234)
	drive(t, a, 20000)
	drive(t, b, 20000)

	rawA, err := json.Marshal(a.AllEvents())
	if err != nil {
		t.Fatalf("marshal log a: %v", err)
	}
	rawB, err := json.Marshal(b.AllEvents())
	if err != nil {
		t.Fatalf("marshal log b: %v", err)
	}
	if string(rawA) != string(rawB) {
		t.Fatalf("same seed and same actions produced diverging logs:\n%d bytes vs %d bytes", len(rawA), len(rawB))
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := newTestEngine(t, 1)
	b := newTestEngine(t, 2)

	rawA, _ := json.Marshal(a.Graph())
	rawB, _ := json.Marshal(b.Graph())
	if string(rawA) == string(rawB) {
		t.Fatalf("different seeds generated identical routes")
	}
}

func TestOutOfPhaseActionsRejected(t *testing.T) {
	e := newTestEngine(t, 7)

	for _, actionType := range []string{ActPlayCard, ActEndTurn, ActFlee, ActRest, ActOpenTreasure, ActLeaveShop} {
		_, err := e.Apply(Action{Type: actionType})
		var illegal *game.IllegalActionError
		if !errors.As(err, &illegal) {
			t.Fatalf("%s on the route: got %v, want IllegalActionError", actionType, err)
		}
		if illegal.Phase != game.PhaseRoute {
			t.Errorf("%s error phase = %s, want %s", actionType, illegal.Phase, game.PhaseRoute)
		}
	}
}

func TestUnreachableNodeRejected(t *testing.T) {
	e := newTestEngine(t, 7)
	before := len(e.AllEvents())
	_, err := e.Apply(Action{Type: ActChooseNode, NodeID: "c0_n99"})
	var illegal *game.IllegalActionError
	if !errors.As(err, &illegal) {
		t.Fatalf("got %v, want IllegalActionError", err)
	}
	if len(e.AllEvents()) != before {
		t.Errorf("rejected action appended events")
	}
}

func TestUnenterableNodeLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t, 7)
	e.graph.Nodes = append(e.graph.Nodes, route.Node{ID: "c0_weird", Kind: route.NodeKind("mystery")})
	e.nextNodes = append(e.nextNodes, "c0_weird")

	before := len(e.AllEvents())
	_, err := e.Apply(Action{Type: ActChooseNode, NodeID: "c0_weird"})
	var illegal *game.IllegalActionError
	if !errors.As(err, &illegal) {
		t.Fatalf("got %v, want IllegalActionError", err)
	}
	if len(e.AllEvents()) != before {
		t.Errorf("refused entry appended events")
	}
	if e.state.VisitedNode("c0_weird") {
		t.Errorf("refused entry marked the node visited")
	}
	if e.state.Phase != game.PhaseRoute {
		t.Errorf("phase = %s, want %s", e.state.Phase, game.PhaseRoute)
	}
}

func TestActionsAfterRunEndRejected(t *testing.T) {
	e := newTestEngine(t, 42)
	drive(t, e, 20000)

	_, err := e.Apply(Action{Type: ActChooseNode, NodeID: "c0_n0"})
	var illegal *game.IllegalActionError
	if !errors.As(err, &illegal) {
		t.Fatalf("got %v, want IllegalActionError", err)
	}
	if illegal.Phase != game.PhaseEnded {
		t.Errorf("error phase = %s, want %s", illegal.Phase, game.PhaseEnded)
	}
}

func TestNewRejectsUnknownCharacter(t *testing.T) {
	_, err := New(testRegistry(t), Options{
		Seed:        1,
		CharacterID: "nobody",
		Records:     history.Synthetic(1, 10),
	})
	if err == nil {
		t.Fatalf("unknown character accepted")
	}
}

func TestNewRejectsEmptyHistory(t *testing.T) {
	_, err := New(testRegistry(t), Options{Seed: 1, CharacterID: "junior_dev"})
	if err == nil {
		t.Fatalf("empty history accepted")
	}
}

func TestSnapshotOnlyOnRoute(t *testing.T) {
	e := newTestEngine(t, 9)
	if _, err := e.Snapshot(); err != nil {
		t.Fatalf("snapshot on route: %v", err)
	}

	// Walk into the first node; whatever it is, the phase leaves the
	// route and snapshots must be refused mid-node.
	if _, err := e.Apply(Action{Type: ActChooseNode, NodeID: e.NextNodes()[0]}); err != nil {
		t.Fatalf("choose node: %v", err)
	}
	if e.Phase() == game.PhaseRoute {
		t.Skip("first node resolved instantly")
	}
	if _, err := e.Snapshot(); err == nil {
		t.Fatalf("snapshot succeeded in phase %s", e.Phase())
	}
}

func TestResumeContinuesDeterministically(t *testing.T) {
	a := newTestEngine(t, 5555)
	b := newTestEngine(t, 5555)

	doc, err := a.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	raw, err := db.EncodeSave(doc)
	if err != nil {
		t.Fatalf("encode save: %v", err)
	}
	decoded, err := db.DecodeSave(raw)
	if err != nil {
		t.Fatalf("decode save: %v", err)
	}
	resumed, err := Resume(testRegistry(t), decoded)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	drive(t, b, 20000)
	drive(t, resumed, 20000)

	// The resumed run only carries the log tail, so compare from the
	// first restored record forward.
	first := resumed.AllEvents()[0].Seq
	uninterrupted := b.AllEvents()
	if first > 0 {
		uninterrupted = b.Events(first - 1)
	}
	rawB, err := json.Marshal(uninterrupted)
	if err != nil {
		t.Fatalf("marshal uninterrupted tail: %v", err)
	}
	rawR, err := json.Marshal(resumed.AllEvents())
	if err != nil {
		t.Fatalf("marshal resumed log: %v", err)
	}
	if string(rawB) != string(rawR) {
		t.Fatalf("resumed run diverged from the uninterrupted run")
	}
}
