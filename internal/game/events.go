package game

import (
	"encoding/json"
	"fmt"
)

// Event type names. Payloads are always structs, never maps, so the
// marshaled bytes of a replayed run match the original byte for byte.
const (
	EvRunStarted     = "run_started"
	EvChapterStarted = "chapter_started"
	EvRouteGenerated = "route_generated"
	EvNodeChosen     = "node_chosen"
	EvRunEnded       = "run_ended"

	EvBattleStarted = "battle_started"
	EvRoundStarted  = "round_started"
	EvCardsDrawn    = "cards_drawn"
	EvDeckReshuffle = "deck_reshuffled"
	EvCardPlayed    = "card_played"
	EvDamageDealt   = "damage_dealt"
	EvBlockGained   = "block_gained"
	EvStatusApplied = "status_applied"
	EvStatusExpired = "status_expired"
	EvEnemyIntent   = "enemy_intent"
	EvEnemyActed    = "enemy_acted"
	EvRoundEnded    = "round_ended"
	EvBattleWon     = "battle_won"
	EvBattleLost    = "battle_lost"
	EvFleeAttempted = "flee_attempted"
	EvFleeSucceeded = "flee_succeeded"
	EvFleeFailed    = "flee_failed"

	EvEventPresented  = "event_presented"
	EvEventChoiceMade = "event_choice_made"
	EvGoldGained      = "gold_gained"
	EvGoldLost        = "gold_lost"
	EvHealed          = "healed"
	EvDamageTaken     = "damage_taken"
	EvCardAdded       = "card_added"
	EvCardRemoved     = "card_removed"
	EvCardUpgraded    = "card_upgraded"
	EvRelicAdded      = "relic_added"
	EvRelicRemoved    = "relic_removed"
	EvBiasChanged     = "bias_changed"
	EvFlagSet         = "flag_set"
	EvLevelUp         = "level_up"

	EvRewardsOffered    = "rewards_offered"
	EvCardRewardTaken   = "card_reward_taken"
	EvCardRewardSkipped = "card_reward_skipped"
	EvRelicTaken        = "relic_taken"

	EvShopEntered = "shop_entered"
	EvCardBought  = "card_bought"
	EvRelicBought = "relic_bought"
	EvShopLeft    = "shop_left"

	EvRested         = "rested"
	EvTreasureOpened = "treasure_opened"
	EvRunSummary     = "run_summary"
)

// EventRecord is one immutable entry of the run log.
type EventRecord struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Log is the append-only event log of a run. It is the authoritative
// record: replaying the same inputs rebuilds the same bytes.
type Log struct {
	records []EventRecord
	nextSeq uint64
}

// Append marshals the payload struct and appends a record with the next
// sequence number.
func (l *Log) Append(eventType string, payload any) EventRecord {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs; a marshal failure is a programming
		// error, not a runtime condition.
		panic(fmt.Sprintf("marshal %s payload: %v", eventType, err))
	}
	rec := EventRecord{Seq: l.nextSeq, Type: eventType, Payload: raw}
	l.records = append(l.records, rec)
	l.nextSeq++
	return rec
}

// Len returns the number of records.
func (l *Log) Len() int { return len(l.records) }

// After returns a copy of all records with Seq > after.
func (l *Log) After(after uint64) []EventRecord {
	var out []EventRecord
	for _, r := range l.records {
		if r.Seq > after {
			out = append(out, r)
		}
	}
	return out
}

// All returns a copy of every record in order.
func (l *Log) All() []EventRecord {
	return append([]EventRecord(nil), l.records...)
}

// MarshalTail serializes the last n records (all of them when n <= 0 or
// exceeds the log) for embedding in a save document.
func (l *Log) MarshalTail(n int) (json.RawMessage, error) {
	recs := l.records
	if n > 0 && n < len(recs) {
		recs = recs[len(recs)-n:]
	}
	return json.Marshal(recs)
}

// RestoreTail seeds a log from a save document tail. The next sequence
// continues after the last restored record.
func (l *Log) RestoreTail(raw json.RawMessage) error {
	var recs []EventRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return fmt.Errorf("restore event log tail: %w", err)
	}
	l.records = recs
	if len(recs) > 0 {
		l.nextSeq = recs[len(recs)-1].Seq + 1
	}
	return nil
}

// Payload structs, one per event type that carries data.

type RunStartedPayload struct {
	RunID       string `json:"run_id"`
	Seed        int64  `json:"seed"`
	CharacterID string `json:"character_id"`
	Difficulty  int    `json:"difficulty"`
	ContentHash string `json:"content_hash"`
	Fingerprint string `json:"fingerprint"`
}

type ChapterStartedPayload struct {
	ChapterIndex int    `json:"chapter_index"`
	ChapterType  string `json:"chapter_type"`
}

type RouteGeneratedPayload struct {
	ChapterIndex int      `json:"chapter_index"`
	NodeIDs      []string `json:"node_ids"`
	EntryNodes   []string `json:"entry_nodes"`
}

type NodeChosenPayload struct {
	NodeID string `json:"node_id"`
	Kind   string `json:"kind"`
}

type RunEndedPayload struct {
	Outcome    string `json:"outcome"` // victory, defeat, abandoned
	DeathCause string `json:"death_cause,omitempty"`
}

type BattleStartedPayload struct {
	EnemyID string `json:"enemy_id"`
	EnemyHP int    `json:"enemy_hp"`
	Tier    string `json:"tier"`
}

type RoundStartedPayload struct {
	Round  int `json:"round"`
	Energy int `json:"energy"`
}

type CardsDrawnPayload struct {
	Cards []string `json:"cards"`
}

type DeckReshuffledPayload struct {
	Count int `json:"count"`
}

type CardPlayedPayload struct {
	CardID string `json:"card_id"`
	Cost   int    `json:"cost"`
}

type DamageDealtPayload struct {
	Source   string `json:"source"` // player, enemy
	Target   string `json:"target"`
	Amount   int    `json:"amount"`
	Blocked  int    `json:"blocked"`
	TargetHP int    `json:"target_hp"`
}

type BlockGainedPayload struct {
	Target string `json:"target"`
	Amount int    `json:"amount"`
}

type StatusAppliedPayload struct {
	Target   string `json:"target"`
	StatusID string `json:"status_id"`
	Stacks   int    `json:"stacks"`
}

type StatusExpiredPayload struct {
	Target   string `json:"target"`
	StatusID string `json:"status_id"`
}

type EnemyIntentPayload struct {
	Round  int    `json:"round"`
	Kind   string `json:"kind"` // attack, defend, attack_defend
	Attack int    `json:"attack"`
	Block  int    `json:"block"`
}

type EnemyActedPayload struct {
	Kind   string `json:"kind"`
	Attack int    `json:"attack"`
	Block  int    `json:"block"`
}

type RoundEndedPayload struct {
	Round int `json:"round"`
}

type BattleWonPayload struct {
	EnemyID string `json:"enemy_id"`
	Rounds  int    `json:"rounds"`
}

type BattleLostPayload struct {
	EnemyID string `json:"enemy_id"`
}

type FleePayload struct {
	Roll   float64 `json:"roll"`
	Chance float64 `json:"chance"`
}

type EventPresentedPayload struct {
	EventID string   `json:"event_id"`
	Choices []string `json:"choices"`
}

type EventChoiceMadePayload struct {
	EventID  string `json:"event_id"`
	ChoiceID string `json:"choice_id"`
}

type GoldPayload struct {
	Amount int `json:"amount"`
	Total  int `json:"total"`
}

type HealedPayload struct {
	Amount int `json:"amount"`
	HP     int `json:"hp"`
}

type DamageTakenPayload struct {
	Amount int `json:"amount"`
	HP     int `json:"hp"`
}

type CardChangedPayload struct {
	CardID string `json:"card_id"`
}

type CardUpgradedPayload struct {
	CardID    string `json:"card_id"`
	UpgradeID string `json:"upgrade_id"`
}

type RelicChangedPayload struct {
	RelicID string `json:"relic_id"`
}

type BiasChangedPayload struct {
	Archetype string  `json:"archetype"`
	Delta     float64 `json:"delta"`
	Value     float64 `json:"value"`
}

type FlagSetPayload struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

type LevelUpPayload struct {
	Level int `json:"level"`
}

type RewardsOfferedPayload struct {
	Gold    int      `json:"gold"`
	Cards   []string `json:"cards"`
	RelicID string   `json:"relic_id,omitempty"`
}

type ShopEnteredPayload struct {
	Cards  []ShopItem `json:"cards"`
	Relics []ShopItem `json:"relics"`
}

// ShopItem is one purchasable entry.
type ShopItem struct {
	ID    string `json:"id"`
	Price int    `json:"price"`
}

type PurchasePayload struct {
	ID    string `json:"id"`
	Price int    `json:"price"`
	Gold  int    `json:"gold"`
}

type ShopLeftPayload struct {
	Gold int `json:"gold"`
}

type RestedPayload struct {
	Healed int `json:"healed"`
	HP     int `json:"hp"`
}

type TreasureOpenedPayload struct {
	Gold    int    `json:"gold"`
	RelicID string `json:"relic_id,omitempty"`
}
