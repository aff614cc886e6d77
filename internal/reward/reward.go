// Package reward rolls post-encounter spoils: gold, a card offer, and
// sometimes a relic. Pools are filtered by the meta profile's unlock
// set before any draw, so a locked id can never appear in an offer.
package reward

import (
	"commitrogue/internal/content"
	"commitrogue/internal/game"
	"commitrogue/internal/rng"
)

const (
	cardOfferSize    = 3
	eliteRelicChance = 0.7
	biasWeightFactor = 2.5
)

var baseGold = map[content.EnemyTier]int{
	content.TierNormal: 20,
	content.TierElite:  45,
	content.TierBossE:  90,
}

// Offer is one resolved reward set.
type Offer struct {
	Gold    int      `json:"gold"`
	Cards   []string `json:"cards"`
	RelicID string   `json:"relic_id,omitempty"`
}

// Input wires one resolution.
type Input struct {
	Tier     content.EnemyTier
	GoldMult float64 // enemy multiplier times chapter bonus
	State    *game.RunState
	Profile  *game.MetaProfile
	Registry *content.Registry
	Stream   rng.Stream
}

// Resolve rolls the rewards for a won encounter.
func Resolve(in Input) Offer {
	var offer Offer

	mult := in.GoldMult
	if mult <= 0 {
		mult = 1
	}
	// Gold fluctuates inside a +-20% band around the tier base.
	fluct := 0.8 + 0.4*in.Stream.Float64()
	offer.Gold = int(float64(baseGold[in.Tier]) * mult * fluct)

	offer.Cards = cardOffer(in)
	offer.RelicID = relicOffer(in)
	return offer
}

func rarityTable(in Input) content.RarityWeights {
	tuning := in.Registry.Tuning()
	switch in.Tier {
	case content.TierElite:
		return tuning.EliteTable
	case content.TierBossE:
		return tuning.BossTable
	default:
		return tuning.NormalTable
	}
}

// cardOffer draws up to three distinct unlocked cards, rarity-weighted
// by tier and tilted toward the dominant bias dimension.
func cardOffer(in Input) []string {
	table := rarityTable(in)
	rarities := []content.Rarity{content.RarityCommon, content.RarityUncommon, content.RarityRare}
	weights := []float64{table.Common, table.Uncommon, table.Rare}

	var biasTags []string
	if dominant := in.State.DominantBias(); dominant != "" {
		if arch, ok := in.Registry.Archetype(dominant); ok {
			biasTags = arch.Tags
		}
	}

	offered := make([]string, 0, cardOfferSize)
	taken := map[string]bool{}
	for len(offered) < cardOfferSize {
		rarity := rarities[in.Stream.WeightedChoose(weights)]
		pool := candidates(in, rarity, taken)
		if len(pool) == 0 {
			// Walk down the rarity ladder before giving up.
			for _, r := range rarities {
				if pool = candidates(in, r, taken); len(pool) > 0 {
					break
				}
			}
		}
		if len(pool) == 0 {
			break
		}
		cardWeights := make([]float64, len(pool))
		for i, card := range pool {
			cardWeights[i] = 1
			if sharesTag(card.Tags, biasTags) {
				cardWeights[i] = biasWeightFactor
			}
		}
		pick := pool[in.Stream.WeightedChoose(cardWeights)]
		offered = append(offered, pick.ID)
		taken[pick.ID] = true
	}
	return offered
}

// candidates lists unlocked cards of one rarity not yet in the offer.
func candidates(in Input, rarity content.Rarity, taken map[string]bool) []content.Card {
	var pool []content.Card
	for _, card := range in.Registry.CardsByRarity(rarity) {
		if taken[card.ID] {
			continue
		}
		if !in.Profile.CardUnlocked(card.ID) {
			continue
		}
		pool = append(pool, card)
	}
	return pool
}

// relicOffer rolls the relic slot: boss always, elite at the guaranteed
// floor, normal fights rarely.
func relicOffer(in Input) string {
	chance := 0.05
	var tiers []content.RelicTier
	switch in.Tier {
	case content.TierBossE:
		chance = 1
		tiers = []content.RelicTier{content.TierBoss, content.TierRare}
	case content.TierElite:
		chance = eliteRelicChance
		tiers = []content.RelicTier{content.TierUncommon, content.TierRare}
	default:
		tiers = []content.RelicTier{content.TierCommon, content.TierUncommon}
	}
	if in.Stream.Float64() >= chance {
		return ""
	}
	var pool []content.Relic
	for _, relic := range in.Registry.RelicsByTier(tiers...) {
		if in.State.HasRelic(relic.ID) {
			continue
		}
		if !in.Profile.RelicUnlocked(relic.ID) {
			continue
		}
		pool = append(pool, relic)
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[in.Stream.Choose(len(pool))].ID
}

func sharesTag(cardTags, biasTags []string) bool {
	for _, ct := range cardTags {
		for _, bt := range biasTags {
			if ct == bt {
				return true
			}
		}
	}
	return false
}
