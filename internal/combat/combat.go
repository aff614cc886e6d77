// Package combat runs one battle as a small state machine over the
// round loop. A session owns scratch copies of the player block and the
// deck zones; the engine folds the result back into run state when the
// battle ends. Every transition writes at least one event.
package combat

import (
	"commitrogue/internal/content"
	"commitrogue/internal/game"
	"commitrogue/internal/rng"
)

// Outcomes of a finished session. Empty means the battle is still live.
const (
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
	OutcomeFled    = "fled"
)

const weakMultiplier = 0.75

// Config wires one battle.
type Config struct {
	Registry     *content.Registry
	Stream       rng.Stream
	Log          *game.Log
	Enemy        content.Enemy
	HPMult       float64
	AtkMult      float64
	CanFlee      bool
	HandSize     int
	EscapeChance float64
}

type fighter struct {
	hp       int
	maxHP    int
	block    int
	statuses []game.StatusStack
}

// Session is one live battle.
type Session struct {
	reg    *content.Registry
	stream rng.Stream
	log    *game.Log

	enemyDef content.Enemy
	atkMult  float64
	canFlee  bool
	handSize int
	escape   float64

	player    fighter
	energy    int
	maxEnergy int
	relics    []string

	enemy fighter

	draw    []string
	hand    []string
	discard []string
	exhaust []string

	round       int
	firstAttack bool
	intent      game.EnemyIntentPayload
	outcome     string
}

// Begin opens a battle from run state. The deck is gathered from every
// zone and shuffled into the draw pile.
func Begin(cfg Config, state *game.RunState) *Session {
	hpMult := cfg.HPMult
	if hpMult <= 0 {
		hpMult = 1
	}
	atkMult := cfg.AtkMult
	if atkMult <= 0 {
		atkMult = 1
	}

	s := &Session{
		reg:      cfg.Registry,
		stream:   cfg.Stream,
		log:      cfg.Log,
		enemyDef: cfg.Enemy,
		atkMult:  atkMult,
		canFlee:  cfg.CanFlee,
		handSize: cfg.HandSize,
		escape:   cfg.EscapeChance,
		player: fighter{
			hp:       state.Player.HP,
			maxHP:    state.Player.MaxHP,
			statuses: append([]game.StatusStack(nil), state.Statuses...),
		},
		maxEnergy:   state.Player.MaxEnergy,
		relics:      append([]string(nil), state.Relics...),
		firstAttack: true,
	}

	enemyHP := int(float64(cfg.Enemy.BaseHP) * hpMult)
	if enemyHP < 1 {
		enemyHP = 1
	}
	s.enemy = fighter{hp: enemyHP, maxHP: enemyHP}

	s.draw = state.Piles.All()
	s.stream.Shuffle(len(s.draw), func(i, j int) {
		s.draw[i], s.draw[j] = s.draw[j], s.draw[i]
	})

	s.log.Append(game.EvBattleStarted, game.BattleStartedPayload{
		EnemyID: cfg.Enemy.ID,
		EnemyHP: enemyHP,
		Tier:    string(cfg.Enemy.Tier),
	})

	// Round 1's intent is drawn at battle start so the first round can
	// already be previewed.
	s.drawIntent(1)
	s.startRound()
	return s
}

// Outcome returns empty while the battle is live.
func (s *Session) Outcome() string { return s.outcome }

// Round returns the current round number.
func (s *Session) Round() int { return s.round }

// Hand returns a copy of the current hand.
func (s *Session) Hand() []string { return append([]string(nil), s.hand...) }

// Energy returns the player's remaining energy this round.
func (s *Session) Energy() int { return s.energy }

// PlayerHP returns the player's current HP inside the battle.
func (s *Session) PlayerHP() int { return s.player.hp }

// EnemyHP returns the enemy's remaining HP.
func (s *Session) EnemyHP() int { return s.enemy.hp }

// Intent returns the previewed enemy intent for the current round.
func (s *Session) Intent() game.EnemyIntentPayload { return s.intent }

// Result folds the battle outcome back into mutable run state fields.
func (s *Session) Result(state *game.RunState) {
	state.Player.HP = s.player.hp
	state.Piles = game.Piles{Draw: s.allCards()}
	// Combat statuses do not persist outside the battle.
	state.Statuses = nil
	state.Player.Block = 0
}

func (s *Session) allCards() []string {
	out := make([]string, 0, len(s.draw)+len(s.hand)+len(s.discard)+len(s.exhaust))
	out = append(out, s.draw...)
	out = append(out, s.hand...)
	out = append(out, s.discard...)
	out = append(out, s.exhaust...)
	return out
}

// PlayCard plays the hand card at the given index.
func (s *Session) PlayCard(handIndex int) error {
	if s.outcome != "" {
		return &game.IllegalActionError{Action: "play_card", Phase: game.PhaseCombat, Reason: "battle already ended"}
	}
	if handIndex < 0 || handIndex >= len(s.hand) {
		return &game.IllegalActionError{Action: "play_card", Phase: game.PhaseCombat, Reason: "hand index out of range"}
	}
	cardID := s.hand[handIndex]
	card, ok := s.reg.Card(cardID)
	if !ok {
		return &game.IllegalActionError{Action: "play_card", Phase: game.PhaseCombat, Reason: "unknown card " + cardID}
	}
	if card.Cost > s.energy {
		return &game.IllegalActionError{Action: "play_card", Phase: game.PhaseCombat, Reason: "not enough energy"}
	}

	s.energy -= card.Cost
	s.hand = append(s.hand[:handIndex], s.hand[handIndex+1:]...)
	s.log.Append(game.EvCardPlayed, game.CardPlayedPayload{CardID: cardID, Cost: card.Cost})

	for _, eff := range card.Effects {
		s.applyCardEffect(card, eff)
		if s.outcome != "" {
			break
		}
	}

	// Powers burn out for the rest of the battle; other cards cycle.
	if card.Type == content.CardPower {
		s.exhaust = append(s.exhaust, cardID)
	} else {
		s.discard = append(s.discard, cardID)
	}
	return nil
}

func (s *Session) applyCardEffect(card content.Card, eff content.CardEffect) {
	switch eff.Type {
	case "damage":
		base := eff.Value
		if s.firstAttack && card.Type == content.CardAttack {
			s.firstAttack = false
			for _, id := range s.relics {
				if relic, ok := s.reg.Relic(id); ok {
					base += int(relic.Param("first_attack_bonus", 0))
				}
			}
		}
		dealt, blocked := s.dealDamage(&s.player, &s.enemy, base)
		s.log.Append(game.EvDamageDealt, game.DamageDealtPayload{
			Source: "player", Target: "enemy",
			Amount: dealt, Blocked: blocked, TargetHP: s.enemy.hp,
		})
		if s.enemy.hp <= 0 {
			s.finish(OutcomeVictory)
		}
	case "block":
		s.player.block += eff.Value
		s.log.Append(game.EvBlockGained, game.BlockGainedPayload{Target: "player", Amount: eff.Value})
	case "draw":
		s.drawCards(eff.Value)
	case "energy":
		s.energy += eff.Value
	case "heal":
		healed := eff.Value
		if s.player.hp+healed > s.player.maxHP {
			healed = s.player.maxHP - s.player.hp
		}
		s.player.hp += healed
		s.log.Append(game.EvHealed, game.HealedPayload{Amount: healed, HP: s.player.hp})
	case "status":
		target := &s.enemy
		targetName := "enemy"
		if eff.Target == "self" {
			target = &s.player
			targetName = "player"
		}
		s.applyStatus(target, targetName, eff.StatusID, eff.Stacks)
	}
}

// EndTurn hands the round to the enemy and opens the next round.
func (s *Session) EndTurn() error {
	if s.outcome != "" {
		return &game.IllegalActionError{Action: "end_turn", Phase: game.PhaseCombat, Reason: "battle already ended"}
	}
	s.enemyAct()
	if s.outcome != "" {
		return nil
	}
	s.closeRound()
	return nil
}

// Flee rolls against the escape chance. Only normal battles allow it; a
// failed roll consumes the turn.
func (s *Session) Flee() error {
	if s.outcome != "" {
		return &game.IllegalActionError{Action: "flee", Phase: game.PhaseCombat, Reason: "battle already ended"}
	}
	if !s.canFlee {
		return &game.IllegalActionError{Action: "flee", Phase: game.PhaseCombat, Reason: "cannot flee this battle"}
	}
	roll := s.stream.Float64()
	s.log.Append(game.EvFleeAttempted, game.FleePayload{Roll: roll, Chance: s.escape})
	if roll < s.escape {
		s.log.Append(game.EvFleeSucceeded, game.FleePayload{Roll: roll, Chance: s.escape})
		s.finish(OutcomeFled)
		return nil
	}
	s.log.Append(game.EvFleeFailed, game.FleePayload{Roll: roll, Chance: s.escape})
	s.enemyAct()
	if s.outcome == "" {
		s.closeRound()
	}
	return nil
}

func (s *Session) enemyAct() {
	// Block carried from the previous intent expires once the enemy acts
	// again, so it still absorbs the player's attacks in between.
	s.enemy.block = 0
	act := s.intent
	s.log.Append(game.EvEnemyActed, game.EnemyActedPayload{Kind: act.Kind, Attack: act.Attack, Block: act.Block})
	if act.Block > 0 {
		s.enemy.block += act.Block
		s.log.Append(game.EvBlockGained, game.BlockGainedPayload{Target: "enemy", Amount: act.Block})
	}
	if act.Attack > 0 {
		dealt, blocked := s.dealDamage(&s.enemy, &s.player, act.Attack)
		s.log.Append(game.EvDamageDealt, game.DamageDealtPayload{
			Source: "enemy", Target: "player",
			Amount: dealt, Blocked: blocked, TargetHP: s.player.hp,
		})
		if s.player.hp <= 0 {
			s.log.Append(game.EvBattleLost, game.BattleLostPayload{EnemyID: s.enemyDef.ID})
			s.finish(OutcomeDefeat)
		}
	}
}

func (s *Session) closeRound() {
	s.log.Append(game.EvRoundEnded, game.RoundEndedPayload{Round: s.round})
	s.drawIntent(s.round + 1)
	s.discard = append(s.discard, s.hand...)
	s.hand = nil
	s.startRound()
}

// startRound opens the next round: energy reset, decaying statuses tick
// down, relic hooks fire, and the hand is drawn.
func (s *Session) startRound() {
	s.round++
	s.energy = s.maxEnergy
	s.player.block = 0

	s.decayStatuses(&s.player, "player")
	s.decayStatuses(&s.enemy, "enemy")

	for _, id := range s.relics {
		relic, ok := s.reg.Relic(id)
		if !ok {
			continue
		}
		if block := int(relic.Param("block_per_round", 0)); block > 0 {
			s.player.block += block
			s.log.Append(game.EvBlockGained, game.BlockGainedPayload{Target: "player", Amount: block})
		}
		if every := int(relic.Param("energy_every_n_rounds", 0)); every > 0 && s.round%every == 0 {
			s.energy++
		}
	}

	s.log.Append(game.EvRoundStarted, game.RoundStartedPayload{Round: s.round, Energy: s.energy})

	draw := s.handSize
	for _, id := range s.relics {
		if relic, ok := s.reg.Relic(id); ok {
			draw += int(relic.Param("extra_draw", 0))
		}
	}
	s.drawCards(draw)
}

func (s *Session) drawCards(n int) {
	var drawn []string
	for i := 0; i < n; i++ {
		if len(s.draw) == 0 {
			if len(s.discard) == 0 {
				break
			}
			count := len(s.discard)
			s.draw = s.discard
			s.discard = nil
			s.stream.Shuffle(len(s.draw), func(a, b int) {
				s.draw[a], s.draw[b] = s.draw[b], s.draw[a]
			})
			s.log.Append(game.EvDeckReshuffle, game.DeckReshuffledPayload{Count: count})
		}
		card := s.draw[0]
		s.draw = s.draw[1:]
		s.hand = append(s.hand, card)
		drawn = append(drawn, card)
	}
	if len(drawn) > 0 {
		s.log.Append(game.EvCardsDrawn, game.CardsDrawnPayload{Cards: drawn})
	}
}

func stacksOf(f *fighter, statusID string) int {
	for _, st := range f.statuses {
		if st.ID == statusID {
			return st.Stacks
		}
	}
	return 0
}

// dealDamage runs the pipeline: base, additive strength and
// vulnerability, multiplicative weak, floor at zero, block absorption,
// clamp to target HP.
func (s *Session) dealDamage(attacker, defender *fighter, base int) (dealt, blocked int) {
	amount := base + stacksOf(attacker, "strength") + stacksOf(defender, "vulnerable")
	if stacksOf(attacker, "weak") > 0 {
		amount = int(float64(amount) * weakMultiplier)
	}
	if amount < 0 {
		amount = 0
	}
	blocked = amount
	if blocked > defender.block {
		blocked = defender.block
	}
	defender.block -= blocked
	dealt = amount - blocked
	if dealt > defender.hp {
		dealt = defender.hp
	}
	defender.hp -= dealt
	return dealt, blocked
}

func (s *Session) applyStatus(target *fighter, targetName, statusID string, stacks int) {
	if stacks <= 0 {
		stacks = 1
	}
	max := 0
	if def, ok := s.reg.Status(statusID); ok {
		max = def.MaxStacks
	}
	for i, st := range target.statuses {
		if st.ID == statusID {
			target.statuses[i].Stacks += stacks
			if max > 0 && target.statuses[i].Stacks > max {
				target.statuses[i].Stacks = max
			}
			s.log.Append(game.EvStatusApplied, game.StatusAppliedPayload{
				Target: targetName, StatusID: statusID, Stacks: target.statuses[i].Stacks,
			})
			return
		}
	}
	if max > 0 && stacks > max {
		stacks = max
	}
	target.statuses = append(target.statuses, game.StatusStack{ID: statusID, Stacks: stacks})
	s.log.Append(game.EvStatusApplied, game.StatusAppliedPayload{
		Target: targetName, StatusID: statusID, Stacks: stacks,
	})
}

func (s *Session) decayStatuses(f *fighter, name string) {
	kept := f.statuses[:0]
	for _, st := range f.statuses {
		def, ok := s.reg.Status(st.ID)
		if ok && def.Decays {
			st.Stacks--
		}
		if st.Stacks <= 0 {
			s.log.Append(game.EvStatusExpired, game.StatusExpiredPayload{Target: name, StatusID: st.ID})
			continue
		}
		kept = append(kept, st)
	}
	f.statuses = kept
}

// drawIntent previews the enemy move for the given round. Patterns are
// deterministic functions of the round plus the battle stream.
func (s *Session) drawIntent(round int) {
	attack := int(float64(s.enemyDef.BaseDamage) * s.atkMult)
	block := s.enemyDef.BaseBlock

	intent := game.EnemyIntentPayload{Round: round}
	switch s.enemyDef.Pattern {
	case "aggressive":
		intent.Kind = "attack"
		intent.Attack = attack
		if s.stream.Float64() < 0.2 {
			intent.Attack = attack * 3 / 2
		}
	case "defensive":
		if round%2 == 1 {
			intent.Kind = "attack_defend"
			intent.Attack = attack
			intent.Block = block
		} else {
			intent.Kind = "defend"
			intent.Block = block + block/2
		}
	case "cycle":
		switch round % 3 {
		case 1:
			intent.Kind = "attack"
			intent.Attack = attack
		case 2:
			intent.Kind = "defend"
			intent.Block = block
		default:
			intent.Kind = "attack_defend"
			intent.Attack = attack
			intent.Block = block
		}
	default:
		if s.stream.Float64() < 0.3 && block > 0 {
			intent.Kind = "defend"
			intent.Block = block
		} else {
			intent.Kind = "attack"
			intent.Attack = attack
		}
	}
	s.intent = intent
	s.log.Append(game.EvEnemyIntent, intent)
}

func (s *Session) finish(outcome string) {
	s.outcome = outcome
	if outcome == OutcomeVictory {
		s.log.Append(game.EvBattleWon, game.BattleWonPayload{EnemyID: s.enemyDef.ID, Rounds: s.round})
	}
}
