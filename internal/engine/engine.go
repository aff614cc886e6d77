// Package engine orchestrates a run: it owns the RNG stream, the event
// log, and the phase machine, and routes every action through the route,
// combat, reward, and content packages. All game mutation flows through
// Apply; the HTTP layer and the simulator never touch state directly.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"commitrogue/internal/combat"
	"commitrogue/internal/content"
	"commitrogue/internal/game"
	"commitrogue/internal/history"
	"commitrogue/internal/reward"
	"commitrogue/internal/rng"
	"commitrogue/internal/route"
)

// Action names accepted by Apply.
const (
	ActChooseNode        = "choose_node"
	ActPlayCard          = "play_card"
	ActEndTurn           = "end_turn"
	ActFlee              = "flee"
	ActChooseEventOption = "choose_event_option"
	ActPickCardReward    = "pick_card_reward"
	ActSkipCardReward    = "skip_card_reward"
	ActTakeRelic         = "take_relic"
	ActRest              = "rest"
	ActBuyCard           = "buy_card"
	ActBuyRelic          = "buy_relic"
	ActLeaveShop         = "leave_shop"
	ActOpenTreasure      = "open_treasure"
)

// Action is one player input.
type Action struct {
	Type      string `json:"type"`
	NodeID    string `json:"node_id,omitempty"`
	HandIndex int    `json:"hand_index,omitempty"`
	ChoiceID  string `json:"choice_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
	RelicID   string `json:"relic_id,omitempty"`
}

// Options configures a new run.
type Options struct {
	Seed        int64
	Difficulty  int
	CharacterID string
	Records     []history.Record
	Profile     *game.MetaProfile
	RunID       string // empty picks a fresh uuid
}

// Engine is one live run.
type Engine struct {
	reg     *content.Registry
	stream  rng.Stream
	log     game.Log
	state   game.RunState
	profile *game.MetaProfile
	records []history.Record
	tuning  content.Tuning

	graph       *route.Graph
	currentNode route.Node
	nextNodes   []string

	session      *combat.Session
	lastEnemyID  string
	pendingEvent *pendingEvent
	offer        *pendingOffer
	shop         *shopStock

	summary        game.RunSummary
	summaryEmitted bool
}

type pendingEvent struct {
	def     content.EventDef
	choices []content.EventChoice // condition-filtered, in definition order
}

type pendingOffer struct {
	offer        reward.Offer
	cardResolved bool
	relicTaken   bool
}

type shopStock struct {
	cards  []game.ShopItem
	relics []game.ShopItem
}

// New starts a run at the route phase of chapter zero.
func New(reg *content.Registry, opts Options) (*Engine, error) {
	char, ok := reg.Character(opts.CharacterID)
	if !ok {
		return nil, fmt.Errorf("unknown character %q", opts.CharacterID)
	}
	if len(opts.Records) == 0 {
		return nil, fmt.Errorf("run needs at least one history record")
	}
	profile := opts.Profile
	if profile == nil {
		profile = &game.MetaProfile{}
	}
	seedBaseUnlocks(reg, profile)

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	e := &Engine{
		reg:     reg,
		stream:  rng.New(opts.Seed),
		profile: profile,
		records: opts.Records,
		tuning:  reg.Tuning(),
	}

	e.state = game.RunState{
		RunID:      runID,
		Phase:      game.PhaseRoute,
		Difficulty: opts.Difficulty,
		Player: game.Player{
			CharacterID: char.ID,
			HP:          char.HP,
			MaxHP:       char.HP,
			MaxEnergy:   char.Energy,
		},
		Piles:  game.Piles{Draw: append([]string(nil), char.StarterCards...)},
		Relics: append([]string(nil), char.StarterRelics...),
	}
	for _, id := range e.state.Relics {
		if relic, ok := reg.Relic(id); ok {
			e.state.Player.MaxEnergy += int(relic.Param("max_energy_bonus", 0))
		}
	}

	e.log.Append(game.EvRunStarted, game.RunStartedPayload{
		RunID:       runID,
		Seed:        opts.Seed,
		CharacterID: char.ID,
		Difficulty:  opts.Difficulty,
		ContentHash: reg.Hash(),
		Fingerprint: history.Fingerprint(opts.Records),
	})

	if err := e.openChapter(0); err != nil {
		return nil, err
	}
	return e, nil
}

// seedBaseUnlocks makes the baseline content available to a fresh
// profile: commons, starter and common relics, and every starter card.
func seedBaseUnlocks(reg *content.Registry, profile *game.MetaProfile) {
	for _, card := range reg.CardsByRarity(content.RarityCommon) {
		profile.Unlock("card", card.ID)
	}
	for _, relic := range reg.RelicsByTier(content.TierStarter, content.TierCommon) {
		profile.Unlock("relic", relic.ID)
	}
	for _, char := range reg.Characters() {
		for _, id := range char.StarterCards {
			profile.Unlock("card", id)
		}
		for _, id := range char.StarterRelics {
			profile.Unlock("relic", id)
		}
		profile.Unlock("character", char.ID)
	}
}

// Apply runs one action. On error the state is untouched and no events
// are appended.
func (e *Engine) Apply(action Action) ([]game.EventRecord, error) {
	mark := uint64(e.log.Len())
	var err error
	switch e.state.Phase {
	case game.PhaseRoute:
		err = e.applyRoute(action)
	case game.PhaseCombat:
		err = e.applyCombat(action)
	case game.PhaseEvent:
		err = e.applyEvent(action)
	case game.PhaseReward:
		err = e.applyReward(action)
	case game.PhaseShop:
		err = e.applyShop(action)
	case game.PhaseRest:
		err = e.applyRest(action)
	case game.PhaseTreasure:
		err = e.applyTreasure(action)
	case game.PhaseEnded:
		err = &game.IllegalActionError{Action: action.Type, Phase: game.PhaseEnded, Reason: "run is over"}
	default:
		err = fmt.Errorf("unknown phase %q", e.state.Phase)
	}
	if err != nil {
		return nil, err
	}
	if mark == 0 {
		return e.log.All(), nil
	}
	return e.log.After(mark - 1), nil
}

// State returns a copy of the run state.
func (e *Engine) State() game.RunState { return e.state }

// Phase returns the current phase.
func (e *Engine) Phase() game.Phase { return e.state.Phase }

// Events returns log records with Seq > after.
func (e *Engine) Events(after uint64) []game.EventRecord { return e.log.After(after) }

// AllEvents returns the whole log.
func (e *Engine) AllEvents() []game.EventRecord { return e.log.All() }

// Log exposes the log for persistence.
func (e *Engine) Log() *game.Log { return &e.log }

// Profile returns the meta profile attached to this run.
func (e *Engine) Profile() *game.MetaProfile { return e.profile }

// Summary returns the run summary once the run has ended.
func (e *Engine) Summary() (game.RunSummary, bool) {
	return e.summary, e.summaryEmitted
}

// NextNodes lists the node ids choosable right now.
func (e *Engine) NextNodes() []string {
	return append([]string(nil), e.nextNodes...)
}

// Graph returns the current chapter's route.
func (e *Engine) Graph() *route.Graph { return e.graph }

// Hand returns the combat hand, nil outside combat.
func (e *Engine) Hand() []string {
	if e.session == nil {
		return nil
	}
	return e.session.Hand()
}

// Energy returns combat energy, zero outside combat.
func (e *Engine) Energy() int {
	if e.session == nil {
		return 0
	}
	return e.session.Energy()
}

// EventChoiceIDs lists the eligible choices of the pending event.
func (e *Engine) EventChoiceIDs() []string {
	if e.pendingEvent == nil {
		return nil
	}
	ids := make([]string, len(e.pendingEvent.choices))
	for i, c := range e.pendingEvent.choices {
		ids[i] = c.ID
	}
	return ids
}

// Offer returns the pending reward offer, nil when none.
func (e *Engine) Offer() (reward.Offer, bool) {
	if e.offer == nil {
		return reward.Offer{}, false
	}
	return e.offer.offer, true
}

// ShopStock returns the shop inventory, empty outside a shop.
func (e *Engine) ShopStock() (cards, relics []game.ShopItem) {
	if e.shop == nil {
		return nil, nil
	}
	return append([]game.ShopItem(nil), e.shop.cards...), append([]game.ShopItem(nil), e.shop.relics...)
}

// chapterTypeFor maps a chapter index onto its type.
func (e *Engine) chapterTypeFor(index int) string {
	last := e.tuning.Chapters - 1
	switch {
	case index == 0:
		return "initial"
	case index >= last:
		return "legacy"
	default:
		cycle := []string{"feature", "fix", "integration"}
		return cycle[(index-1)%len(cycle)]
	}
}

// chapterRecords slices the history into per-chapter windows.
func (e *Engine) chapterRecords(index int) []history.Record {
	n := e.tuning.Chapters
	if n <= 0 {
		n = 1
	}
	chunk := len(e.records) / n
	if chunk == 0 {
		chunk = len(e.records)
	}
	start := index * chunk
	if start >= len(e.records) {
		start = len(e.records) - chunk
		if start < 0 {
			start = 0
		}
	}
	end := start + chunk
	if index == n-1 || end > len(e.records) {
		end = len(e.records)
	}
	return e.records[start:end]
}

func (e *Engine) openChapter(index int) error {
	e.state.ChapterIndex = index
	e.state.ChapterType = e.chapterTypeFor(index)
	e.log.Append(game.EvChapterStarted, game.ChapterStartedPayload{
		ChapterIndex: index,
		ChapterType:  e.state.ChapterType,
	})

	window := e.chapterRecords(index)
	if ov, ok := e.reg.ChapterOverride(e.state.ChapterType); ok && ov.MaxCommits > 0 && len(window) > ov.MaxCommits {
		window = window[:ov.MaxCommits]
	}

	graph, err := route.Generate(window, index, e.state.ChapterType, e.state.Difficulty, e.reg, e.stream)
	if err != nil {
		return fmt.Errorf("generate chapter %d route: %w", index, err)
	}
	e.graph = graph
	e.state.NodeID = ""
	e.nextNodes = []string{graph.Entry}
	e.state.Phase = game.PhaseRoute

	e.log.Append(game.EvRouteGenerated, game.RouteGeneratedPayload{
		ChapterIndex: index,
		NodeIDs:      graph.NodeIDs(),
		EntryNodes:   []string{graph.Entry},
	})
	return nil
}

// chapterOverride returns the active chapter tuning with usable
// defaults.
func (e *Engine) chapterOverride() content.ChapterOverride {
	ov, ok := e.reg.ChapterOverride(e.state.ChapterType)
	if !ok {
		return content.ChapterOverride{
			ShopEnabled: true, GoldBonus: 1, ExpBonus: 1,
			EnemyHPMult: 1, EnemyAtkMult: 1,
		}
	}
	if ov.GoldBonus <= 0 {
		ov.GoldBonus = 1
	}
	if ov.ExpBonus <= 0 {
		ov.ExpBonus = 1
	}
	if ov.EnemyHPMult <= 0 {
		ov.EnemyHPMult = 1
	}
	if ov.EnemyAtkMult <= 0 {
		ov.EnemyAtkMult = 1
	}
	return ov
}

func (e *Engine) endRun(outcome string) {
	e.state.Phase = game.PhaseEnded
	e.session = nil
	e.pendingEvent = nil
	e.offer = nil
	e.shop = nil
	e.nextNodes = nil

	e.log.Append(game.EvRunEnded, game.RunEndedPayload{Outcome: outcome, DeathCause: e.state.DeathCause})
	e.summary = game.Summarize(&e.state, outcome)
	e.summaryEmitted = true
	e.log.Append(game.EvRunSummary, e.summary)
	e.profile.Settle(&e.state, outcome == "victory")
}
