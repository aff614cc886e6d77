// Package game holds the run state model, the append-only event log,
// and the meta profile settled at run end. Everything here is pure data
// plus small deterministic mutators; orchestration lives in the engine.
package game

import "sort"

// Phase is the coarse run phase gating which actions are legal.
type Phase string

const (
	PhaseRoute    Phase = "route"
	PhaseCombat   Phase = "combat"
	PhaseEvent    Phase = "event"
	PhaseReward   Phase = "reward"
	PhaseShop     Phase = "shop"
	PhaseRest     Phase = "rest"
	PhaseTreasure Phase = "treasure"
	PhaseEnded    Phase = "ended"
)

// Player is the mutable player block of a run.
type Player struct {
	CharacterID string `json:"character_id"`
	HP          int    `json:"hp"`
	MaxHP       int    `json:"max_hp"`
	Energy      int    `json:"energy"`
	MaxEnergy   int    `json:"max_energy"`
	Block       int    `json:"block"`
	Gold        int    `json:"gold"`
	EXP         int    `json:"exp"`
	Level       int    `json:"level"`
}

// Piles are the four deck zones. Outside combat everything sits in Draw.
type Piles struct {
	Draw    []string `json:"draw"`
	Hand    []string `json:"hand"`
	Discard []string `json:"discard"`
	Exhaust []string `json:"exhaust"`
}

// All returns every card id across the zones, draw-hand-discard-exhaust
// order.
func (p Piles) All() []string {
	out := make([]string, 0, len(p.Draw)+len(p.Hand)+len(p.Discard)+len(p.Exhaust))
	out = append(out, p.Draw...)
	out = append(out, p.Hand...)
	out = append(out, p.Discard...)
	out = append(out, p.Exhaust...)
	return out
}

// StatusStack is one active status on the player outside combat.
type StatusStack struct {
	ID     string `json:"id"`
	Stacks int    `json:"stacks"`
}

// BiasDim is one archetype dimension of the bias vector. The slice is
// kept sorted by archetype id so serialization is stable.
type BiasDim struct {
	Archetype string  `json:"archetype"`
	Value     float64 `json:"value"`
}

// Flag is one named run flag. Kept sorted by name.
type Flag struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// Metrics accumulates run statistics for the summary.
type Metrics struct {
	BattlesTotal int `json:"battles_total"`
	BattlesWon   int `json:"battles_won"`
	ElitesSlain  int `json:"elites_slain"`
	BossesSlain  int `json:"bosses_slain"`
	GoldEarned   int `json:"gold_earned"`
	ExpEarned    int `json:"exp_earned"`
	CardsAdded   int `json:"cards_added"`
	NodesVisited int `json:"nodes_visited"`
}

// RunState is the whole mutable state of one run. Mutation happens only
// inside engine, combat, and reward transitions.
type RunState struct {
	RunID        string        `json:"run_id"`
	Phase        Phase         `json:"phase"`
	ChapterIndex int           `json:"chapter_index"`
	ChapterType  string        `json:"chapter_type"`
	Difficulty   int           `json:"difficulty"`
	Player       Player        `json:"player"`
	Piles        Piles         `json:"piles"`
	Relics       []string      `json:"relics"`
	Statuses     []StatusStack `json:"statuses"`
	Bias         []BiasDim     `json:"bias"`
	Flags        []Flag        `json:"flags"`
	NodeID       string        `json:"node_id"`
	Visited      []string      `json:"visited"`
	Metrics      Metrics       `json:"metrics"`
	DeathCause   string        `json:"death_cause,omitempty"`
}

// HasRelic reports whether the relic is held.
func (s *RunState) HasRelic(id string) bool {
	for _, r := range s.Relics {
		if r == id {
			return true
		}
	}
	return false
}

// SetFlag upserts a run flag, keeping Flags sorted by name.
func (s *RunState) SetFlag(name string, value bool) {
	for i, f := range s.Flags {
		if f.Name == name {
			s.Flags[i].Value = value
			return
		}
	}
	s.Flags = append(s.Flags, Flag{Name: name, Value: value})
	sort.Slice(s.Flags, func(i, j int) bool { return s.Flags[i].Name < s.Flags[j].Name })
}

// FlagValue reads a run flag, false when unset.
func (s *RunState) FlagValue(name string) bool {
	for _, f := range s.Flags {
		if f.Name == name {
			return f.Value
		}
	}
	return false
}

// BiasValue reads one bias dimension, zero when unset.
func (s *RunState) BiasValue(archetype string) float64 {
	for _, b := range s.Bias {
		if b.Archetype == archetype {
			return b.Value
		}
	}
	return 0
}

// AddBias shifts one bias dimension, clamped to [min,max], keeping the
// vector sorted by archetype id. Returns the new value.
func (s *RunState) AddBias(archetype string, delta, min, max float64) float64 {
	clamp := func(v float64) float64 {
		if v < min {
			return min
		}
		if v > max {
			return max
		}
		return v
	}
	for i, b := range s.Bias {
		if b.Archetype == archetype {
			s.Bias[i].Value = clamp(b.Value + delta)
			return s.Bias[i].Value
		}
	}
	s.Bias = append(s.Bias, BiasDim{Archetype: archetype, Value: clamp(delta)})
	sort.Slice(s.Bias, func(i, j int) bool { return s.Bias[i].Archetype < s.Bias[j].Archetype })
	return s.BiasValue(archetype)
}

// DominantBias returns the archetype with the highest positive bias,
// empty when the vector is flat. Ties keep the earlier id.
func (s *RunState) DominantBias() string {
	best := ""
	bestVal := 0.0
	for _, b := range s.Bias {
		if b.Value > bestVal {
			best = b.Archetype
			bestVal = b.Value
		}
	}
	return best
}

// MarkVisited records a route node as visited, keeping the set sorted.
func (s *RunState) MarkVisited(nodeID string) {
	for _, v := range s.Visited {
		if v == nodeID {
			return
		}
	}
	s.Visited = append(s.Visited, nodeID)
	sort.Strings(s.Visited)
	s.Metrics.NodesVisited++
}

// VisitedNode reports whether a node was already visited.
func (s *RunState) VisitedNode(nodeID string) bool {
	for _, v := range s.Visited {
		if v == nodeID {
			return true
		}
	}
	return false
}

// Heal raises HP clamped to MaxHP and returns the amount actually
// restored.
func (s *RunState) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	healed := amount
	if s.Player.HP+healed > s.Player.MaxHP {
		healed = s.Player.MaxHP - s.Player.HP
	}
	s.Player.HP += healed
	return healed
}

// Hurt lowers HP clamped to zero and returns the amount actually lost.
func (s *RunState) Hurt(amount int) int {
	if amount < 0 {
		amount = 0
	}
	lost := amount
	if lost > s.Player.HP {
		lost = s.Player.HP
	}
	s.Player.HP -= lost
	return lost
}

// GainGold adds gold and tracks the lifetime metric.
func (s *RunState) GainGold(amount int) {
	if amount < 0 {
		amount = 0
	}
	s.Player.Gold += amount
	s.Metrics.GoldEarned += amount
}

// SpendGold removes gold, clamped at zero, returning the amount removed.
func (s *RunState) SpendGold(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > s.Player.Gold {
		amount = s.Player.Gold
	}
	s.Player.Gold -= amount
	return amount
}

// GainExp adds experience, levels up every level*100 EXP, and returns
// the number of levels gained.
func (s *RunState) GainExp(amount int) int {
	if amount < 0 {
		amount = 0
	}
	s.Player.EXP += amount
	s.Metrics.ExpEarned += amount
	levels := 0
	for s.Player.EXP >= (s.Player.Level+1)*100 {
		s.Player.EXP -= (s.Player.Level + 1) * 100
		s.Player.Level++
		levels++
	}
	return levels
}
