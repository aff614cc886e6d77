package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest file expected inside a pack directory.
const ManifestName = "cards.yml"

type rawChoice struct {
	ID        string      `yaml:"id"`
	TextKey   string      `yaml:"text_key"`
	Condition string      `yaml:"condition"`
	Effects   []rawEffect `yaml:"effects"`
}

type rawEvent struct {
	ID        string         `yaml:"id"`
	NameKey   string         `yaml:"name_key"`
	DescKey   string         `yaml:"desc_key"`
	RouteTags []string       `yaml:"route_tags"`
	Weights   map[string]int `yaml:"weights"`
	Choices   []rawChoice    `yaml:"choices"`
	Override  bool           `yaml:"override"`
}

type manifest struct {
	PackInfo         PackInfo                   `yaml:"pack_info"`
	Tuning           *Tuning                    `yaml:"tuning"`
	Cards            []Card                     `yaml:"cards"`
	Relics           []Relic                    `yaml:"relics"`
	Statuses         []Status                   `yaml:"statuses"`
	Enemies          []Enemy                    `yaml:"enemies"`
	Events           []rawEvent                 `yaml:"events"`
	Archetypes       []Archetype                `yaml:"archetypes"`
	Characters       []Character                `yaml:"characters"`
	ChapterOverrides map[string]ChapterOverride `yaml:"chapter_overrides"`
}

var cardEffectTypes = map[string]bool{
	"damage": true, "block": true, "draw": true,
	"energy": true, "heal": true, "status": true,
}

var enemyPatterns = map[string]bool{
	"basic": true, "aggressive": true, "defensive": true, "cycle": true,
}

// ParseManifest parses and shape-validates one pack manifest. Conditions
// on event choices are compiled here so a bad expression fails the load,
// not the first replay that reaches it.
func ParseManifest(data []byte, packID string) (*Pack, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ContentLoadError{Pack: packID, Kind: "manifest", Reason: err.Error()}
	}
	if m.PackInfo.ID == "" {
		m.PackInfo.ID = packID
	}

	pack := &Pack{
		Info:             m.PackInfo,
		Cards:            m.Cards,
		Relics:           m.Relics,
		Statuses:         m.Statuses,
		Enemies:          m.Enemies,
		Archetypes:       m.Archetypes,
		Characters:       m.Characters,
		ChapterOverrides: m.ChapterOverrides,
		Tuning:           m.Tuning,
	}

	for i, card := range pack.Cards {
		if err := validateCard(card); err != nil {
			return nil, &ContentLoadError{Pack: packID, Kind: "card", ID: card.ID, Reason: err.Error()}
		}
		if card.NameKey == "" {
			pack.Cards[i].NameKey = fmt.Sprintf("card.%s.name", card.ID)
		}
		if card.DescKey == "" {
			pack.Cards[i].DescKey = fmt.Sprintf("card.%s.desc", card.ID)
		}
	}
	for _, relic := range pack.Relics {
		if relic.ID == "" {
			return nil, &ContentLoadError{Pack: packID, Kind: "relic", Reason: "missing id"}
		}
	}
	for _, status := range pack.Statuses {
		if status.ID == "" {
			return nil, &ContentLoadError{Pack: packID, Kind: "status", Reason: "missing id"}
		}
	}
	for _, enemy := range pack.Enemies {
		if err := validateEnemy(enemy); err != nil {
			return nil, &ContentLoadError{Pack: packID, Kind: "enemy", ID: enemy.ID, Reason: err.Error()}
		}
	}

	for _, re := range m.Events {
		ev, err := buildEvent(re)
		if err != nil {
			return nil, &ContentLoadError{Pack: packID, Kind: "event", ID: re.ID, Reason: err.Error()}
		}
		pack.Events = append(pack.Events, ev)
	}

	return pack, nil
}

func validateCard(card Card) error {
	if card.ID == "" {
		return fmt.Errorf("missing id")
	}
	switch card.Type {
	case CardAttack, CardSkill, CardPower:
	default:
		return fmt.Errorf("unknown card type %q", card.Type)
	}
	if card.Cost < 0 {
		return fmt.Errorf("negative cost %d", card.Cost)
	}
	for _, eff := range card.Effects {
		if !cardEffectTypes[eff.Type] {
			return fmt.Errorf("unknown card effect type %q", eff.Type)
		}
		if eff.Type == "status" && eff.StatusID == "" {
			return fmt.Errorf("status effect requires status_id")
		}
	}
	return nil
}

func validateEnemy(enemy Enemy) error {
	if enemy.ID == "" {
		return fmt.Errorf("missing id")
	}
	if enemy.BaseHP <= 0 {
		return fmt.Errorf("base_hp must be positive")
	}
	if enemy.Pattern != "" && !enemyPatterns[enemy.Pattern] {
		return fmt.Errorf("unknown ai pattern %q", enemy.Pattern)
	}
	return nil
}

func buildEvent(re rawEvent) (EventDef, error) {
	if re.ID == "" {
		return EventDef{}, fmt.Errorf("missing id")
	}
	ev := EventDef{
		ID:        re.ID,
		NameKey:   re.NameKey,
		DescKey:   re.DescKey,
		RouteTags: re.RouteTags,
		Weights:   re.Weights,
		Override:  re.Override,
	}
	if len(re.Choices) == 0 {
		return EventDef{}, fmt.Errorf("event has no choices")
	}
	for _, rc := range re.Choices {
		choice := EventChoice{ID: rc.ID, TextKey: rc.TextKey, Condition: rc.Condition}
		if rc.Condition != "" {
			program, err := expr.Compile(rc.Condition)
			if err != nil {
				return EventDef{}, fmt.Errorf("choice %q condition: %w", rc.ID, err)
			}
			choice.program = program
		}
		for _, raw := range rc.Effects {
			eff, err := decodeEffect(raw)
			if err != nil {
				return EventDef{}, fmt.Errorf("choice %q: %w", rc.ID, err)
			}
			choice.Effects = append(choice.Effects, eff)
		}
		ev.Choices = append(ev.Choices, choice)
	}
	return ev, nil
}

// LoadPackDir parses the manifest inside a pack directory. The pack id
// defaults to the directory name.
func LoadPackDir(dir string) (*Pack, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, &ContentLoadError{Pack: filepath.Base(dir), Kind: "manifest", Reason: err.Error()}
	}
	return ParseManifest(data, filepath.Base(dir))
}

// DiscoverPacks lists pack subdirectories of root sorted by name, the
// auto-discovery half of the merge order contract. A missing root is not
// an error; it just means no extra packs.
func DiscoverPacks(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("discover packs: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), ManifestName)); err == nil {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
