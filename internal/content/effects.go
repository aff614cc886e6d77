package content

import "fmt"

// Effect is the closed union of event effect opcodes. Each opcode is a
// concrete type with a fixed field set; payloads that do not match their
// opcode's shape are rejected at load time, never ignored at runtime.
type Effect interface {
	Opcode() string
}

type GainGold struct {
	Amount int `json:"amount"`
}

type LoseGold struct {
	Amount int `json:"amount"`
}

type Heal struct {
	Amount int `json:"amount"`
}

type TakeDamage struct {
	Amount int `json:"amount"`
}

type AddCard struct {
	CardID string `json:"card_id"`
}

// RemoveCard removes a copy of the named card from the deck. An empty
// CardID means the player chooses which card to remove.
type RemoveCard struct {
	CardID string `json:"card_id"`
}

type UpgradeCard struct {
	CardID string `json:"card_id"`
}

type AddRelic struct {
	RelicID string `json:"relic_id"`
}

type RemoveRelic struct {
	RelicID string `json:"relic_id"`
}

type ApplyStatus struct {
	StatusID string `json:"status_id"`
	Stacks   int    `json:"stacks"`
}

type TriggerBattle struct {
	EnemyID string `json:"enemy_id"`
}

type ModifyBias struct {
	Archetype string  `json:"archetype"`
	Delta     float64 `json:"delta"`
}

type SetFlag struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

func (GainGold) Opcode() string      { return "gain_gold" }
func (LoseGold) Opcode() string      { return "lose_gold" }
func (Heal) Opcode() string          { return "heal" }
func (TakeDamage) Opcode() string    { return "damage" }
func (AddCard) Opcode() string       { return "add_card" }
func (RemoveCard) Opcode() string    { return "remove_card" }
func (UpgradeCard) Opcode() string   { return "upgrade_card" }
func (AddRelic) Opcode() string      { return "add_relic" }
func (RemoveRelic) Opcode() string   { return "remove_relic" }
func (ApplyStatus) Opcode() string   { return "apply_status" }
func (TriggerBattle) Opcode() string { return "trigger_battle" }
func (ModifyBias) Opcode() string    { return "modify_bias" }
func (SetFlag) Opcode() string       { return "set_flag" }

// rawEffect is the manifest shape of one effect before opcode dispatch.
type rawEffect struct {
	Opcode    string   `yaml:"opcode"`
	Value     int      `yaml:"value"`
	CardID    string   `yaml:"card_id"`
	RelicID   string   `yaml:"relic_id"`
	StatusID  string   `yaml:"status_id"`
	Stacks    int      `yaml:"stacks"`
	EnemyID   string   `yaml:"enemy_id"`
	Archetype string   `yaml:"archetype"`
	Delta     *float64 `yaml:"delta"`
	Flag      string   `yaml:"flag"`
	Set       *bool    `yaml:"set"`
}

// decodeEffect validates a raw effect against its opcode's shape.
func decodeEffect(raw rawEffect) (Effect, error) {
	switch raw.Opcode {
	case "gain_gold":
		if raw.Value <= 0 {
			return nil, fmt.Errorf("gain_gold requires a positive value")
		}
		return GainGold{Amount: raw.Value}, nil
	case "lose_gold":
		if raw.Value <= 0 {
			return nil, fmt.Errorf("lose_gold requires a positive value")
		}
		return LoseGold{Amount: raw.Value}, nil
	case "heal":
		if raw.Value <= 0 {
			return nil, fmt.Errorf("heal requires a positive value")
		}
		return Heal{Amount: raw.Value}, nil
	case "damage":
		if raw.Value <= 0 {
			return nil, fmt.Errorf("damage requires a positive value")
		}
		return TakeDamage{Amount: raw.Value}, nil
	case "add_card":
		if raw.CardID == "" {
			return nil, fmt.Errorf("add_card requires card_id")
		}
		return AddCard{CardID: raw.CardID}, nil
	case "remove_card":
		return RemoveCard{CardID: raw.CardID}, nil
	case "upgrade_card":
		return UpgradeCard{CardID: raw.CardID}, nil
	case "add_relic":
		if raw.RelicID == "" {
			return nil, fmt.Errorf("add_relic requires relic_id")
		}
		return AddRelic{RelicID: raw.RelicID}, nil
	case "remove_relic":
		if raw.RelicID == "" {
			return nil, fmt.Errorf("remove_relic requires relic_id")
		}
		return RemoveRelic{RelicID: raw.RelicID}, nil
	case "apply_status":
		if raw.StatusID == "" {
			return nil, fmt.Errorf("apply_status requires status_id")
		}
		stacks := raw.Stacks
		if stacks == 0 {
			stacks = 1
		}
		return ApplyStatus{StatusID: raw.StatusID, Stacks: stacks}, nil
	case "trigger_battle":
		if raw.EnemyID == "" {
			return nil, fmt.Errorf("trigger_battle requires enemy_id")
		}
		return TriggerBattle{EnemyID: raw.EnemyID}, nil
	case "modify_bias":
		if raw.Archetype == "" {
			return nil, fmt.Errorf("modify_bias requires archetype")
		}
		if raw.Delta == nil {
			return nil, fmt.Errorf("modify_bias requires delta")
		}
		return ModifyBias{Archetype: raw.Archetype, Delta: *raw.Delta}, nil
	case "set_flag":
		if raw.Flag == "" {
			return nil, fmt.Errorf("set_flag requires flag")
		}
		value := true
		if raw.Set != nil {
			value = *raw.Set
		}
		return SetFlag{Flag: raw.Flag, Value: value}, nil
	default:
		return nil, fmt.Errorf("unknown opcode %q", raw.Opcode)
	}
}
