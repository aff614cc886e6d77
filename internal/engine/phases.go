package engine

import (
	"github.com/expr-lang/expr"

	"commitrogue/internal/combat"
	"commitrogue/internal/content"
	"commitrogue/internal/game"
	"commitrogue/internal/reward"
	"commitrogue/internal/route"
)

func (e *Engine) illegal(action string, reason string) error {
	return &game.IllegalActionError{Action: action, Phase: e.state.Phase, Reason: reason}
}

func (e *Engine) applyRoute(action Action) error {
	if action.Type != ActChooseNode {
		return e.illegal(action.Type, "only choose_node is legal on the route")
	}
	legal := false
	for _, id := range e.nextNodes {
		if id == action.NodeID {
			legal = true
			break
		}
	}
	if !legal {
		return e.illegal(action.Type, "node "+action.NodeID+" is not reachable")
	}
	node, ok := e.graph.Node(action.NodeID)
	if !ok {
		return e.illegal(action.Type, "node "+action.NodeID+" does not exist")
	}
	if err := e.enterable(node); err != nil {
		return err
	}

	e.currentNode = node
	e.state.NodeID = node.ID
	e.state.MarkVisited(node.ID)
	e.log.Append(game.EvNodeChosen, game.NodeChosenPayload{NodeID: node.ID, Kind: string(node.Kind)})

	return e.enterNode(node)
}

// enterable checks that a node can be resolved before anything is
// mutated, so a refused entry leaves the run and the log untouched.
func (e *Engine) enterable(node route.Node) error {
	switch node.Kind {
	case route.KindBattle, route.KindElite, route.KindBoss:
		tier := tierFor(node.Kind)
		if len(e.reg.EnemiesByTier(tier, node.EnemyType)) == 0 && len(e.reg.EnemiesByTier(tier, "")) == 0 {
			return e.illegal(ActChooseNode, "no enemies defined for tier "+string(tier))
		}
	case route.KindEvent, route.KindShop, route.KindRest, route.KindTreasure:
	default:
		return e.illegal(ActChooseNode, "node kind "+string(node.Kind)+" is not playable")
	}
	return nil
}

func (e *Engine) enterNode(node route.Node) error {
	switch node.Kind {
	case route.KindBattle, route.KindElite, route.KindBoss:
		return e.startBattle(node)
	case route.KindEvent:
		return e.startEvent()
	case route.KindShop:
		e.openShop()
		return nil
	case route.KindRest:
		e.state.Phase = game.PhaseRest
		return nil
	case route.KindTreasure:
		e.state.Phase = game.PhaseTreasure
		return nil
	default:
		return e.illegal(ActChooseNode, "node kind "+string(node.Kind)+" is not playable")
	}
}

func tierFor(kind route.NodeKind) content.EnemyTier {
	switch kind {
	case route.KindElite:
		return content.TierElite
	case route.KindBoss:
		return content.TierBossE
	default:
		return content.TierNormal
	}
}

func (e *Engine) pickEnemy(tier content.EnemyTier, enemyType string) (content.Enemy, error) {
	pool := e.reg.EnemiesByTier(tier, enemyType)
	if len(pool) == 0 {
		pool = e.reg.EnemiesByTier(tier, "")
	}
	if len(pool) == 0 {
		return content.Enemy{}, e.illegal(ActChooseNode, "no enemies defined for tier "+string(tier))
	}
	return pool[e.stream.Choose(len(pool))], nil
}

func (e *Engine) startBattle(node route.Node) error {
	enemy, err := e.pickEnemy(tierFor(node.Kind), node.EnemyType)
	if err != nil {
		return err
	}
	ov := e.chapterOverride()

	e.lastEnemyID = enemy.ID
	e.state.Metrics.BattlesTotal++
	e.session = combat.Begin(combat.Config{
		Registry:     e.reg,
		Stream:       e.stream,
		Log:          &e.log,
		Enemy:        enemy,
		HPMult:       ov.EnemyHPMult,
		AtkMult:      ov.EnemyAtkMult,
		CanFlee:      node.Kind == route.KindBattle,
		HandSize:     e.tuning.HandSize,
		EscapeChance: e.tuning.EscapeChance,
	}, &e.state)
	e.state.Phase = game.PhaseCombat
	return nil
}

func (e *Engine) applyCombat(action Action) error {
	if e.session == nil {
		return e.illegal(action.Type, "no battle in progress")
	}
	var err error
	switch action.Type {
	case ActPlayCard:
		err = e.session.PlayCard(action.HandIndex)
	case ActEndTurn:
		err = e.session.EndTurn()
	case ActFlee:
		err = e.session.Flee()
	default:
		err = e.illegal(action.Type, "not a combat action")
	}
	if err != nil {
		return err
	}

	switch e.session.Outcome() {
	case combat.OutcomeVictory:
		e.settleVictory()
	case combat.OutcomeDefeat:
		e.state.Player.HP = 0
		e.state.DeathCause = e.lastEnemyID
		e.session = nil
		e.endRun("defeat")
	case combat.OutcomeFled:
		e.session.Result(&e.state)
		e.session = nil
		e.leaveNode()
	}
	return nil
}

func (e *Engine) settleVictory() {
	e.session.Result(&e.state)
	e.session = nil
	e.state.Metrics.BattlesWon++

	// Event-triggered battles can pit the player against any tier, so
	// trust the enemy definition over the node kind.
	tier := tierFor(e.currentNode.Kind)
	if enemy, ok := e.reg.Enemy(e.lastEnemyID); ok && enemy.Tier != "" {
		tier = enemy.Tier
	}
	switch tier {
	case content.TierElite:
		e.state.Metrics.ElitesSlain++
	case content.TierBossE:
		e.state.Metrics.BossesSlain++
	}

	ov := e.chapterOverride()
	goldMult := ov.GoldBonus
	expMult := ov.ExpBonus
	if enemy, ok := e.reg.Enemy(e.lastEnemyID); ok {
		if enemy.GoldMult > 0 {
			goldMult *= enemy.GoldMult
		}
		if enemy.ExpMult > 0 {
			expMult *= enemy.ExpMult
		}
	}

	offer := reward.Resolve(reward.Input{
		Tier:     tier,
		GoldMult: goldMult * e.relicGoldMult(),
		State:    &e.state,
		Profile:  e.profile,
		Registry: e.reg,
		Stream:   e.stream,
	})
	e.state.GainGold(offer.Gold)
	e.log.Append(game.EvGoldGained, game.GoldPayload{Amount: offer.Gold, Total: e.state.Player.Gold})

	exp := map[content.EnemyTier]int{
		content.TierNormal: 20, content.TierElite: 45, content.TierBossE: 90,
	}[tier]
	e.grantExp(int(float64(exp) * expMult))

	e.offer = &pendingOffer{offer: offer}
	e.log.Append(game.EvRewardsOffered, game.RewardsOfferedPayload{
		Gold: offer.Gold, Cards: offer.Cards, RelicID: offer.RelicID,
	})
	e.state.Phase = game.PhaseReward
}

func (e *Engine) relicGoldMult() float64 {
	mult := 1.0
	for _, id := range e.state.Relics {
		if relic, ok := e.reg.Relic(id); ok {
			mult *= relic.Param("gold_mult", 1)
		}
	}
	return mult
}

func (e *Engine) grantExp(amount int) {
	levels := e.state.GainExp(amount)
	for i := 0; i < levels; i++ {
		e.state.Player.MaxHP += 5
		e.state.Player.HP += 5
		e.log.Append(game.EvLevelUp, game.LevelUpPayload{Level: e.state.Player.Level - levels + i + 1})
	}
}

func (e *Engine) applyReward(action Action) error {
	if e.offer == nil {
		return e.illegal(action.Type, "no pending rewards")
	}
	switch action.Type {
	case ActTakeRelic:
		if e.offer.offer.RelicID == "" {
			return e.illegal(action.Type, "no relic in this offer")
		}
		if e.offer.relicTaken {
			return e.illegal(action.Type, "relic already taken")
		}
		e.offer.relicTaken = true
		e.addRelic(e.offer.offer.RelicID)
		e.log.Append(game.EvRelicTaken, game.RelicChangedPayload{RelicID: e.offer.offer.RelicID})
		return nil
	case ActPickCardReward:
		if e.offer.cardResolved {
			return e.illegal(action.Type, "card reward already resolved")
		}
		found := false
		for _, id := range e.offer.offer.Cards {
			if id == action.CardID {
				found = true
				break
			}
		}
		if !found {
			return e.illegal(action.Type, "card "+action.CardID+" is not in the offer")
		}
		e.offer.cardResolved = true
		e.addCard(action.CardID)
		e.log.Append(game.EvCardRewardTaken, game.CardChangedPayload{CardID: action.CardID})
		e.finishRewards()
		return nil
	case ActSkipCardReward:
		if e.offer.cardResolved {
			return e.illegal(action.Type, "card reward already resolved")
		}
		e.offer.cardResolved = true
		e.log.Append(game.EvCardRewardSkipped, game.CardChangedPayload{})
		e.finishRewards()
		return nil
	default:
		return e.illegal(action.Type, "not a reward action")
	}
}

func (e *Engine) finishRewards() {
	e.offer = nil
	e.leaveNode()
}

func (e *Engine) addCard(id string) {
	e.state.Piles.Draw = append(e.state.Piles.Draw, id)
	e.state.Metrics.CardsAdded++
	e.log.Append(game.EvCardAdded, game.CardChangedPayload{CardID: id})
}

func (e *Engine) addRelic(id string) {
	if e.state.HasRelic(id) {
		return
	}
	e.state.Relics = append(e.state.Relics, id)
	e.log.Append(game.EvRelicAdded, game.RelicChangedPayload{RelicID: id})
}

// leaveNode returns to the route, or closes the chapter after a boss.
func (e *Engine) leaveNode() {
	if e.state.Phase == game.PhaseEnded {
		return
	}
	if e.currentNode.Kind == route.KindBoss {
		next := e.state.ChapterIndex + 1
		if next >= e.tuning.Chapters {
			e.endRun("victory")
			return
		}
		// openChapter only fails on a nil registry.
		_ = e.openChapter(next)
		return
	}
	e.state.Phase = game.PhaseRoute
	e.nextNodes = append([]string(nil), e.currentNode.Next...)
}

func (e *Engine) startEvent() error {
	pool := e.reg.EventsForChapter(e.state.ChapterType)
	if len(pool) == 0 {
		// Nothing to present; treat the node as a quiet stop.
		e.leaveNode()
		return nil
	}
	weights := make([]float64, len(pool))
	for i, ev := range pool {
		weights[i] = float64(ev.WeightFor(e.state.ChapterType))
	}
	def := pool[e.stream.WeightedChoose(weights)]

	eligible := make([]content.EventChoice, 0, len(def.Choices))
	for _, choice := range def.Choices {
		if e.choiceEligible(choice) {
			eligible = append(eligible, choice)
		}
	}
	if len(eligible) == 0 {
		e.leaveNode()
		return nil
	}

	e.pendingEvent = &pendingEvent{def: def, choices: eligible}
	ids := make([]string, len(eligible))
	for i, c := range eligible {
		ids[i] = c.ID
	}
	e.log.Append(game.EvEventPresented, game.EventPresentedPayload{EventID: def.ID, Choices: ids})
	e.state.Phase = game.PhaseEvent
	return nil
}

// choiceEligible evaluates a choice condition against the run state.
// Conditions were compiled at content load; a runtime evaluation error
// hides the choice rather than crashing the run.
func (e *Engine) choiceEligible(choice content.EventChoice) bool {
	program := choice.Program()
	if program == nil {
		return true
	}
	env := map[string]any{
		"gold":    e.state.Player.Gold,
		"hp":      e.state.Player.HP,
		"max_hp":  e.state.Player.MaxHP,
		"level":   e.state.Player.Level,
		"chapter": e.state.ChapterIndex,
		"relics":  len(e.state.Relics),
		"deck":    len(e.state.Piles.All()),
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	ok, isBool := out.(bool)
	return isBool && ok
}

func (e *Engine) applyEvent(action Action) error {
	if action.Type != ActChooseEventOption {
		return e.illegal(action.Type, "only choose_event_option is legal during an event")
	}
	if e.pendingEvent == nil {
		return e.illegal(action.Type, "no pending event")
	}
	var chosen *content.EventChoice
	for i := range e.pendingEvent.choices {
		if e.pendingEvent.choices[i].ID == action.ChoiceID {
			chosen = &e.pendingEvent.choices[i]
			break
		}
	}
	if chosen == nil {
		return e.illegal(action.Type, "choice "+action.ChoiceID+" is not available")
	}

	e.log.Append(game.EvEventChoiceMade, game.EventChoiceMadePayload{
		EventID: e.pendingEvent.def.ID, ChoiceID: chosen.ID,
	})
	effects := chosen.Effects
	e.pendingEvent = nil

	battleEnemy := ""
	for _, eff := range effects {
		if enemyID, died := e.applyEffect(eff); died {
			return nil
		} else if enemyID != "" {
			battleEnemy = enemyID
		}
	}

	if battleEnemy != "" {
		enemy, ok := e.reg.Enemy(battleEnemy)
		if !ok {
			// Load-time validation makes this unreachable.
			e.leaveNode()
			return nil
		}
		ov := e.chapterOverride()
		e.lastEnemyID = enemy.ID
		e.state.Metrics.BattlesTotal++
		e.session = combat.Begin(combat.Config{
			Registry:     e.reg,
			Stream:       e.stream,
			Log:          &e.log,
			Enemy:        enemy,
			HPMult:       ov.EnemyHPMult,
			AtkMult:      ov.EnemyAtkMult,
			CanFlee:      enemy.Tier == content.TierNormal,
			HandSize:     e.tuning.HandSize,
			EscapeChance: e.tuning.EscapeChance,
		}, &e.state)
		e.state.Phase = game.PhaseCombat
		return nil
	}

	e.leaveNode()
	return nil
}

// applyEffect runs one event effect. It returns a triggered enemy id
// and whether the player died.
func (e *Engine) applyEffect(eff content.Effect) (triggeredEnemy string, died bool) {
	switch v := eff.(type) {
	case content.GainGold:
		e.state.GainGold(v.Amount)
		e.log.Append(game.EvGoldGained, game.GoldPayload{Amount: v.Amount, Total: e.state.Player.Gold})
	case content.LoseGold:
		lost := e.state.SpendGold(v.Amount)
		e.log.Append(game.EvGoldLost, game.GoldPayload{Amount: lost, Total: e.state.Player.Gold})
	case content.Heal:
		healed := e.state.Heal(v.Amount)
		e.log.Append(game.EvHealed, game.HealedPayload{Amount: healed, HP: e.state.Player.HP})
	case content.TakeDamage:
		lost := e.state.Hurt(v.Amount)
		e.log.Append(game.EvDamageTaken, game.DamageTakenPayload{Amount: lost, HP: e.state.Player.HP})
		if e.state.Player.HP <= 0 {
			e.state.DeathCause = "event"
			e.endRun("defeat")
			return "", true
		}
	case content.AddCard:
		e.addCard(v.CardID)
	case content.RemoveCard:
		e.removeCard(v.CardID)
	case content.UpgradeCard:
		e.upgradeCard(v.CardID)
	case content.AddRelic:
		e.addRelic(v.RelicID)
	case content.RemoveRelic:
		e.removeRelic(v.RelicID)
	case content.ApplyStatus:
		e.applyOutOfCombatStatus(v.StatusID, v.Stacks)
	case content.TriggerBattle:
		return v.EnemyID, false
	case content.ModifyBias:
		value := e.state.AddBias(v.Archetype, v.Delta, e.tuning.BiasMin, e.tuning.BiasMax)
		e.log.Append(game.EvBiasChanged, game.BiasChangedPayload{Archetype: v.Archetype, Delta: v.Delta, Value: value})
	case content.SetFlag:
		e.state.SetFlag(v.Flag, v.Value)
		e.log.Append(game.EvFlagSet, game.FlagSetPayload{Flag: v.Flag, Value: v.Value})
	}
	return "", false
}

// removeCard removes one copy of the card, or the first deck card when
// the id is empty.
func (e *Engine) removeCard(id string) {
	deck := e.state.Piles.Draw
	idx := -1
	if id == "" {
		if len(deck) > 0 {
			idx = 0
			id = deck[0]
		}
	} else {
		for i, c := range deck {
			if c == id {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return
	}
	e.state.Piles.Draw = append(deck[:idx], deck[idx+1:]...)
	e.log.Append(game.EvCardRemoved, game.CardChangedPayload{CardID: id})
}

// upgradeCard replaces one copy with its upgrade target. An empty id
// upgrades the first upgradable card.
func (e *Engine) upgradeCard(id string) {
	deck := e.state.Piles.Draw
	for i, c := range deck {
		if id != "" && c != id {
			continue
		}
		card, ok := e.reg.Card(c)
		if !ok || card.UpgradeID == "" {
			if id != "" {
				return
			}
			continue
		}
		deck[i] = card.UpgradeID
		e.log.Append(game.EvCardUpgraded, game.CardUpgradedPayload{CardID: c, UpgradeID: card.UpgradeID})
		return
	}
}

func (e *Engine) removeRelic(id string) {
	for i, r := range e.state.Relics {
		if r == id {
			e.state.Relics = append(e.state.Relics[:i], e.state.Relics[i+1:]...)
			e.log.Append(game.EvRelicRemoved, game.RelicChangedPayload{RelicID: id})
			return
		}
	}
}

func (e *Engine) applyOutOfCombatStatus(statusID string, stacks int) {
	if stacks <= 0 {
		stacks = 1
	}
	for i, st := range e.state.Statuses {
		if st.ID == statusID {
			e.state.Statuses[i].Stacks += stacks
			e.log.Append(game.EvStatusApplied, game.StatusAppliedPayload{
				Target: "player", StatusID: statusID, Stacks: e.state.Statuses[i].Stacks,
			})
			return
		}
	}
	e.state.Statuses = append(e.state.Statuses, game.StatusStack{ID: statusID, Stacks: stacks})
	e.log.Append(game.EvStatusApplied, game.StatusAppliedPayload{
		Target: "player", StatusID: statusID, Stacks: stacks,
	})
}

var shopCardPrices = map[content.Rarity]int{
	content.RarityCommon:   50,
	content.RarityUncommon: 75,
	content.RarityRare:     120,
}

const shopRelicPrice = 150

func (e *Engine) openShop() {
	stock := &shopStock{}
	taken := map[string]bool{}
	rarities := []content.Rarity{content.RarityCommon, content.RarityUncommon, content.RarityRare}
	table := e.tuning.NormalTable
	weights := []float64{table.Common, table.Uncommon, table.Rare}

	for len(stock.cards) < 5 {
		rarity := rarities[e.stream.WeightedChoose(weights)]
		var pool []content.Card
		for _, card := range e.reg.CardsByRarity(rarity) {
			if !taken[card.ID] && e.profile.CardUnlocked(card.ID) {
				pool = append(pool, card)
			}
		}
		if len(pool) == 0 {
			break
		}
		pick := pool[e.stream.Choose(len(pool))]
		taken[pick.ID] = true
		stock.cards = append(stock.cards, game.ShopItem{ID: pick.ID, Price: shopCardPrices[pick.Rarity]})
	}

	var relicPool []content.Relic
	for _, relic := range e.reg.RelicsByTier(content.TierCommon, content.TierUncommon) {
		if !e.state.HasRelic(relic.ID) && e.profile.RelicUnlocked(relic.ID) {
			relicPool = append(relicPool, relic)
		}
	}
	for i := 0; i < 2 && len(relicPool) > 0; i++ {
		idx := e.stream.Choose(len(relicPool))
		relic := relicPool[idx]
		relicPool = append(relicPool[:idx], relicPool[idx+1:]...)
		stock.relics = append(stock.relics, game.ShopItem{ID: relic.ID, Price: shopRelicPrice})
	}

	e.shop = stock
	e.log.Append(game.EvShopEntered, game.ShopEnteredPayload{Cards: stock.cards, Relics: stock.relics})
	e.state.Phase = game.PhaseShop
}

func (e *Engine) applyShop(action Action) error {
	if e.shop == nil {
		return e.illegal(action.Type, "no shop open")
	}
	switch action.Type {
	case ActBuyCard:
		for i, item := range e.shop.cards {
			if item.ID != action.CardID {
				continue
			}
			if e.state.Player.Gold < item.Price {
				return e.illegal(action.Type, "not enough gold")
			}
			e.state.SpendGold(item.Price)
			e.shop.cards = append(e.shop.cards[:i], e.shop.cards[i+1:]...)
			e.addCard(item.ID)
			e.log.Append(game.EvCardBought, game.PurchasePayload{ID: item.ID, Price: item.Price, Gold: e.state.Player.Gold})
			return nil
		}
		return e.illegal(action.Type, "card "+action.CardID+" is not in stock")
	case ActBuyRelic:
		for i, item := range e.shop.relics {
			if item.ID != action.RelicID {
				continue
			}
			if e.state.Player.Gold < item.Price {
				return e.illegal(action.Type, "not enough gold")
			}
			e.state.SpendGold(item.Price)
			e.shop.relics = append(e.shop.relics[:i], e.shop.relics[i+1:]...)
			e.addRelic(item.ID)
			e.log.Append(game.EvRelicBought, game.PurchasePayload{ID: item.ID, Price: item.Price, Gold: e.state.Player.Gold})
			return nil
		}
		return e.illegal(action.Type, "relic "+action.RelicID+" is not in stock")
	case ActLeaveShop:
		e.shop = nil
		e.log.Append(game.EvShopLeft, game.ShopLeftPayload{Gold: e.state.Player.Gold})
		e.leaveNode()
		return nil
	default:
		return e.illegal(action.Type, "not a shop action")
	}
}

func (e *Engine) applyRest(action Action) error {
	if action.Type != ActRest {
		return e.illegal(action.Type, "only rest is legal at a rest site")
	}
	amount := int(float64(e.state.Player.MaxHP) * e.tuning.RestHealPct)
	for _, id := range e.state.Relics {
		if relic, ok := e.reg.Relic(id); ok {
			amount += int(relic.Param("heal_on_rest", 0))
		}
	}
	healed := e.state.Heal(amount)
	e.log.Append(game.EvRested, game.RestedPayload{Healed: healed, HP: e.state.Player.HP})
	e.leaveNode()
	return nil
}

func (e *Engine) applyTreasure(action Action) error {
	if action.Type != ActOpenTreasure {
		return e.illegal(action.Type, "only open_treasure is legal here")
	}
	gold := e.stream.IntBetween(25, 60)
	e.state.GainGold(gold)

	relicID := ""
	if e.stream.Float64() < 0.2 {
		var pool []content.Relic
		for _, relic := range e.reg.RelicsByTier(content.TierCommon, content.TierUncommon) {
			if !e.state.HasRelic(relic.ID) && e.profile.RelicUnlocked(relic.ID) {
				pool = append(pool, relic)
			}
		}
		if len(pool) > 0 {
			relicID = pool[e.stream.Choose(len(pool))].ID
			e.addRelic(relicID)
		}
	}

	e.log.Append(game.EvTreasureOpened, game.TreasureOpenedPayload{Gold: gold, RelicID: relicID})
	e.leaveNode()
	return nil
}
