// Package content loads, validates, and merges declarative game content
// into one immutable registry. Loading is strict: malformed definitions,
// unknown opcodes, dangling references, and undeclared id collisions all
// fail the load instead of degrading at runtime.
package content

import (
	"encoding/json"

	"github.com/expr-lang/expr/vm"
)

// CardType categorizes a card.
type CardType string

const (
	CardAttack CardType = "attack"
	CardSkill  CardType = "skill"
	CardPower  CardType = "power"
)

// Rarity orders card rarity tiers.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// RelicTier orders relic drop tiers.
type RelicTier string

const (
	TierStarter  RelicTier = "starter"
	TierCommon   RelicTier = "common"
	TierUncommon RelicTier = "uncommon"
	TierRare     RelicTier = "rare"
	TierBoss     RelicTier = "boss"
)

// EnemyTier is the encounter difficulty class of an enemy.
type EnemyTier string

const (
	TierNormal EnemyTier = "normal"
	TierElite  EnemyTier = "elite"
	TierBossE  EnemyTier = "boss"
)

// CardEffect is one in-combat effect line on a card.
type CardEffect struct {
	Type     string `yaml:"type" json:"type"` // damage, block, draw, energy, heal, status
	Value    int    `yaml:"value" json:"value"`
	Target   string `yaml:"target" json:"target"` // enemy, self
	StatusID string `yaml:"status_id" json:"status_id,omitempty"`
	Stacks   int    `yaml:"stacks" json:"stacks,omitempty"`
}

// Card is an immutable card definition.
type Card struct {
	ID        string       `yaml:"id" json:"id"`
	NameKey   string       `yaml:"name_key" json:"name_key"`
	DescKey   string       `yaml:"desc_key" json:"desc_key"`
	Type      CardType     `yaml:"type" json:"type"`
	Cost      int          `yaml:"cost" json:"cost"`
	Rarity    Rarity       `yaml:"rarity" json:"rarity"`
	Effects   []CardEffect `yaml:"effects" json:"effects"`
	Tags      []string     `yaml:"tags" json:"tags,omitempty"`
	UpgradeID string       `yaml:"upgrade_id" json:"upgrade_id,omitempty"`
	Override  bool         `yaml:"override" json:"-"`
}

// RelicParam is one named tuning value on a relic.
type RelicParam struct {
	Name  string  `yaml:"name" json:"name"`
	Value float64 `yaml:"value" json:"value"`
}

// Relic is an immutable relic definition.
type Relic struct {
	ID       string       `yaml:"id" json:"id"`
	NameKey  string       `yaml:"name_key" json:"name_key"`
	DescKey  string       `yaml:"desc_key" json:"desc_key"`
	Tier     RelicTier    `yaml:"tier" json:"tier"`
	Params   []RelicParam `yaml:"params" json:"params,omitempty"`
	Tags     []string     `yaml:"tags" json:"tags,omitempty"`
	Override bool         `yaml:"override" json:"-"`
}

// Param returns a named relic parameter, or the fallback when absent.
func (r Relic) Param(name string, fallback float64) float64 {
	for _, p := range r.Params {
		if p.Name == name {
			return p.Value
		}
	}
	return fallback
}

// Status is an immutable status effect definition. Decaying statuses
// lose one stack at round end.
type Status struct {
	ID        string `yaml:"id" json:"id"`
	NameKey   string `yaml:"name_key" json:"name_key"`
	DescKey   string `yaml:"desc_key" json:"desc_key"`
	Debuff    bool   `yaml:"debuff" json:"debuff"`
	Decays    bool   `yaml:"decays" json:"decays"`
	MaxStacks int    `yaml:"max_stacks" json:"max_stacks"`
	Override  bool   `yaml:"override" json:"-"`
}

// Enemy is an immutable enemy definition. Type mirrors the commit kind
// that spawns it.
type Enemy struct {
	ID         string    `yaml:"id" json:"id"`
	NameKey    string    `yaml:"name_key" json:"name_key"`
	Type       string    `yaml:"type" json:"type"` // feat, fix, docs, refactor, merge, chore, style, test, perf, revert
	Tier       EnemyTier `yaml:"tier" json:"tier"`
	BaseHP     int       `yaml:"base_hp" json:"base_hp"`
	BaseDamage int       `yaml:"base_damage" json:"base_damage"`
	BaseBlock  int       `yaml:"base_block" json:"base_block"`
	Pattern    string    `yaml:"pattern" json:"pattern"` // basic, aggressive, defensive, cycle
	GoldMult   float64   `yaml:"gold_mult" json:"gold_mult"`
	ExpMult    float64   `yaml:"exp_mult" json:"exp_mult"`
	Override   bool      `yaml:"override" json:"-"`
}

// EventChoice is one selectable option inside an event.
type EventChoice struct {
	ID        string   `yaml:"id"`
	TextKey   string   `yaml:"text_key"`
	Condition string   `yaml:"condition"`
	Effects   []Effect `yaml:"-"`

	program *vm.Program
}

// Program returns the pre-compiled condition, nil when unconditional.
func (c EventChoice) Program() *vm.Program { return c.program }

// EventDef is an immutable route event definition.
type EventDef struct {
	ID        string         `yaml:"id"`
	NameKey   string         `yaml:"name_key"`
	DescKey   string         `yaml:"desc_key"`
	RouteTags []string       `yaml:"route_tags"`
	Weights   map[string]int `yaml:"weights"` // "default" plus chapter-type overrides
	Choices   []EventChoice  `yaml:"-"`
	Override  bool           `yaml:"override"`
}

// WeightFor returns the event's weight for a chapter type.
func (e EventDef) WeightFor(chapterType string) int {
	if w, ok := e.Weights[chapterType]; ok {
		return w
	}
	if w, ok := e.Weights["default"]; ok {
		return w
	}
	return 1
}

// Archetype is an immutable build-archetype definition; bias dimensions
// are keyed by archetype id.
type Archetype struct {
	ID            string   `yaml:"id" json:"id"`
	NameKey       string   `yaml:"name_key" json:"name_key"`
	DescKey       string   `yaml:"desc_key" json:"desc_key"`
	Tags          []string `yaml:"tags" json:"tags"`
	StarterCards  []string `yaml:"starter_cards" json:"starter_cards"`
	StarterRelics []string `yaml:"starter_relics" json:"starter_relics"`
	Override      bool     `yaml:"override" json:"-"`
}

// Character is an immutable playable character definition.
type Character struct {
	ID            string   `yaml:"id" json:"id"`
	NameKey       string   `yaml:"name_key" json:"name_key"`
	DescKey       string   `yaml:"desc_key" json:"desc_key"`
	HP            int      `yaml:"hp" json:"hp"`
	Energy        int      `yaml:"energy" json:"energy"`
	StarterCards  []string `yaml:"starter_cards" json:"starter_cards"`
	StarterRelics []string `yaml:"starter_relics" json:"starter_relics"`
	Override      bool     `yaml:"override" json:"-"`
}

// ChapterOverride tunes one chapter type.
type ChapterOverride struct {
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description"`
	MinCommits    int     `yaml:"min_commits" json:"min_commits"`
	MaxCommits    int     `yaml:"max_commits" json:"max_commits"`
	BossChance    float64 `yaml:"boss_chance" json:"boss_chance"`
	ShopEnabled   bool    `yaml:"shop_enabled" json:"shop_enabled"`
	GoldBonus     float64 `yaml:"gold_bonus" json:"gold_bonus"`
	ExpBonus      float64 `yaml:"exp_bonus" json:"exp_bonus"`
	EnemyHPMult   float64 `yaml:"enemy_hp_multiplier" json:"enemy_hp_multiplier"`
	EnemyAtkMult  float64 `yaml:"enemy_atk_multiplier" json:"enemy_atk_multiplier"`
}

// RarityWeights is a weighted rarity table for one reward tier.
type RarityWeights struct {
	Common   float64 `yaml:"common" json:"common"`
	Uncommon float64 `yaml:"uncommon" json:"uncommon"`
	Rare     float64 `yaml:"rare" json:"rare"`
}

// Tuning holds engine-wide numeric knobs owned by content.
type Tuning struct {
	HandSize     int           `yaml:"hand_size" json:"hand_size"`
	BaseEnergy   int           `yaml:"base_energy" json:"base_energy"`
	EscapeChance float64       `yaml:"escape_chance" json:"escape_chance"`
	BiasMin      float64       `yaml:"bias_min" json:"bias_min"`
	BiasMax      float64       `yaml:"bias_max" json:"bias_max"`
	BiasStep     float64       `yaml:"bias_step" json:"bias_step"`
	RestHealPct  float64       `yaml:"rest_heal_pct" json:"rest_heal_pct"`
	Chapters     int           `yaml:"chapters" json:"chapters"`
	NormalTable  RarityWeights `yaml:"normal_rarity" json:"normal_rarity"`
	EliteTable   RarityWeights `yaml:"elite_rarity" json:"elite_rarity"`
	BossTable    RarityWeights `yaml:"boss_rarity" json:"boss_rarity"`
}

// PackInfo is the pack manifest header.
type PackInfo struct {
	ID         string `yaml:"id" json:"id"`
	NameKey    string `yaml:"name_key" json:"name_key"`
	DescKey    string `yaml:"desc_key" json:"desc_key"`
	Archetype  string `yaml:"archetype" json:"archetype"`
	Rarity     string `yaml:"rarity" json:"rarity"`
	PointsCost int    `yaml:"points_cost" json:"points_cost"`
}

// Pack is one parsed content pack, not yet merged.
type Pack struct {
	Info             PackInfo
	Cards            []Card
	Relics           []Relic
	Statuses         []Status
	Enemies          []Enemy
	Events           []EventDef
	Archetypes       []Archetype
	Characters       []Character
	ChapterOverrides map[string]ChapterOverride
	Tuning           *Tuning
}

// canonicalEvent is the hash/equality form of an event definition;
// effects re-expand to opcode-keyed maps so encoding/json's sorted map
// keys keep the bytes stable.
func (e EventDef) canonical() json.RawMessage {
	type choiceDoc struct {
		ID        string           `json:"id"`
		TextKey   string           `json:"text_key"`
		Condition string           `json:"condition,omitempty"`
		Effects   []map[string]any `json:"effects"`
	}
	doc := struct {
		ID        string         `json:"id"`
		NameKey   string         `json:"name_key"`
		DescKey   string         `json:"desc_key"`
		RouteTags []string       `json:"route_tags,omitempty"`
		Weights   map[string]int `json:"weights,omitempty"`
		Choices   []choiceDoc    `json:"choices"`
	}{
		ID: e.ID, NameKey: e.NameKey, DescKey: e.DescKey,
		RouteTags: e.RouteTags, Weights: e.Weights,
	}
	for _, c := range e.Choices {
		cd := choiceDoc{ID: c.ID, TextKey: c.TextKey, Condition: c.Condition}
		for _, eff := range c.Effects {
			m := map[string]any{"opcode": eff.Opcode()}
			body, _ := json.Marshal(eff)
			var fields map[string]any
			_ = json.Unmarshal(body, &fields)
			for k, v := range fields {
				m[k] = v
			}
			cd.Effects = append(cd.Effects, m)
		}
		doc.Choices = append(doc.Choices, cd)
	}
	b, _ := json.Marshal(doc)
	return b
}
