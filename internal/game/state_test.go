package game

import "testing"

func TestBiasClampsToRange(t *testing.T) {
	s := &RunState{}
	for i := 0; i < 20; i++ {
		s.AddBias("debug_beatdown", 0.5, -3, 3)
	}
	if got := s.BiasValue("debug_beatdown"); got != 3 {
		t.Errorf("bias after 20 positive steps = %v, want clamped 3", got)
	}
	for i := 0; i < 40; i++ {
		s.AddBias("debug_beatdown", -0.5, -3, 3)
	}
	if got := s.BiasValue("debug_beatdown"); got != -3 {
		t.Errorf("bias after 40 negative steps = %v, want clamped -3", got)
	}
}

func TestBiasVectorStaysSorted(t *testing.T) {
	s := &RunState{}
	s.AddBias("zeta", 1, -3, 3)
	s.AddBias("alpha", 1, -3, 3)
	s.AddBias("mid", 1, -3, 3)
	prev := ""
	for _, b := range s.Bias {
		if b.Archetype < prev {
			t.Fatalf("bias vector out of order: %+v", s.Bias)
		}
		prev = b.Archetype
	}
}

func TestDominantBias(t *testing.T) {
	s := &RunState{}
	if s.DominantBias() != "" {
		t.Errorf("empty vector should have no dominant bias")
	}
	s.AddBias("test_fortress", 1.5, -3, 3)
	s.AddBias("debug_beatdown", 2.0, -3, 3)
	if got := s.DominantBias(); got != "debug_beatdown" {
		t.Errorf("dominant = %s, want debug_beatdown", got)
	}
}

func TestHealClampsToMax(t *testing.T) {
	s := &RunState{Player: Player{HP: 45, MaxHP: 50}}
	if healed := s.Heal(20); healed != 5 {
		t.Errorf("healed %d, want 5", healed)
	}
	if s.Player.HP != 50 {
		t.Errorf("hp = %d, want 50", s.Player.HP)
	}
}

func TestHurtClampsToZero(t *testing.T) {
	s := &RunState{Player: Player{HP: 20, MaxHP: 50}}
	if lost := s.Hurt(25); lost != 20 {
		t.Errorf("lost %d, want clamp to 20", lost)
	}
	if s.Player.HP != 0 {
		t.Errorf("hp = %d, want 0", s.Player.HP)
	}
}

func TestGainExpLevels(t *testing.T) {
	s := &RunState{}
	if levels := s.GainExp(250); levels != 2 {
		t.Errorf("levels gained = %d, want 2", levels)
	}
	if s.Player.Level != 2 {
		t.Errorf("level = %d, want 2", s.Player.Level)
	}
	if s.Player.EXP != 50 {
		t.Errorf("leftover exp = %d, want 50", s.Player.EXP)
	}
}

func TestFlagsSortedAndUpserted(t *testing.T) {
	s := &RunState{}
	s.SetFlag("zeta", true)
	s.SetFlag("alpha", true)
	s.SetFlag("zeta", false)
	if len(s.Flags) != 2 {
		t.Fatalf("flag count = %d, want 2", len(s.Flags))
	}
	if s.Flags[0].Name != "alpha" {
		t.Errorf("flags not sorted: %+v", s.Flags)
	}
	if s.FlagValue("zeta") {
		t.Errorf("zeta should have been flipped false")
	}
}

func TestMarkVisitedIdempotent(t *testing.T) {
	s := &RunState{}
	s.MarkVisited("n3")
	s.MarkVisited("n1")
	s.MarkVisited("n3")
	if len(s.Visited) != 2 {
		t.Errorf("visited = %v, want 2 entries", s.Visited)
	}
	if s.Metrics.NodesVisited != 2 {
		t.Errorf("metric = %d, want 2", s.Metrics.NodesVisited)
	}
}
