package reward

import (
	"testing"

	"commitrogue/internal/content"
	"commitrogue/internal/game"
	"commitrogue/internal/rng"
)

func testRegistry(t *testing.T) *content.Registry {
	t.Helper()
	reg, err := content.Load(content.LoadOptions{})
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	return reg
}

// fullProfile unlocks every card and relic in the registry.
func fullProfile(reg *content.Registry) *game.MetaProfile {
	p := &game.MetaProfile{}
	for _, c := range reg.Cards() {
		p.Unlock("card", c.ID)
	}
	for _, r := range reg.Relics() {
		p.Unlock("relic", r.ID)
	}
	return p
}

func TestLockedCardsNeverOffered(t *testing.T) {
	reg := testRegistry(t)
	profile := &game.MetaProfile{}
	// Unlock only the commons; everything else stays locked.
	for _, c := range reg.CardsByRarity(content.RarityCommon) {
		profile.Unlock("card", c.ID)
	}
	stream := rng.New(2024)
	state := &game.RunState{}

	for trial := 0; trial < 1000; trial++ {
		offer := Resolve(Input{
			Tier: content.TierNormal, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		for _, id := range offer.Cards {
			if !profile.CardUnlocked(id) {
				t.Fatalf("trial %d offered locked card %s", trial, id)
			}
		}
	}
}

func TestDebugStrikeLockedOutOfEliteDraws(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)
	// Re-lock just debug_strike.
	kept := profile.UnlockedCards[:0]
	for _, id := range profile.UnlockedCards {
		if id != "debug_strike" {
			kept = append(kept, id)
		}
	}
	profile.UnlockedCards = kept

	stream := rng.New(555)
	state := &game.RunState{}
	for trial := 0; trial < 200; trial++ {
		offer := Resolve(Input{
			Tier: content.TierElite, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		for _, id := range offer.Cards {
			if id == "debug_strike" {
				t.Fatalf("trial %d offered locked debug_strike", trial)
			}
		}
	}
}

func TestBossAlwaysOffersRelic(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)
	stream := rng.New(31)
	state := &game.RunState{}

	for trial := 0; trial < 100; trial++ {
		offer := Resolve(Input{
			Tier: content.TierBossE, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		if offer.RelicID == "" {
			t.Fatalf("trial %d: boss reward without a relic", trial)
		}
		relic, ok := reg.Relic(offer.RelicID)
		if !ok {
			t.Fatalf("offered unknown relic %s", offer.RelicID)
		}
		if relic.Tier != content.TierBoss && relic.Tier != content.TierRare {
			t.Errorf("boss offered %s tier relic %s", relic.Tier, relic.ID)
		}
	}
}

func TestEliteRelicFloor(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)
	stream := rng.New(88)
	state := &game.RunState{}

	offered := 0
	const trials = 1000
	for trial := 0; trial < trials; trial++ {
		offer := Resolve(Input{
			Tier: content.TierElite, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		if offer.RelicID != "" {
			offered++
		}
	}
	// Chance floor is 0.7; allow sampling slack around it.
	if offered < 650 {
		t.Errorf("elite relics offered %d/%d times, floor is 70%%", offered, trials)
	}
}

func TestGoldFluctuationBand(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)
	stream := rng.New(12)
	state := &game.RunState{}

	for trial := 0; trial < 500; trial++ {
		offer := Resolve(Input{
			Tier: content.TierNormal, GoldMult: 1, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		if offer.Gold < 16 || offer.Gold > 24 {
			t.Fatalf("trial %d: gold %d outside the 20 +-20%% band", trial, offer.Gold)
		}
	}
}

func TestOfferCardsDistinct(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)
	stream := rng.New(99)
	state := &game.RunState{}

	for trial := 0; trial < 200; trial++ {
		offer := Resolve(Input{
			Tier: content.TierNormal, State: state,
			Profile: profile, Registry: reg, Stream: stream,
		})
		seen := map[string]bool{}
		for _, id := range offer.Cards {
			if seen[id] {
				t.Fatalf("trial %d offered duplicate card %s", trial, id)
			}
			seen[id] = true
		}
	}
}

func TestBiasTiltsCardOffers(t *testing.T) {
	reg := testRegistry(t)
	profile := fullProfile(reg)

	count := func(state *game.RunState, seed int64) int {
		stream := rng.New(seed)
		hits := 0
		for trial := 0; trial < 600; trial++ {
			offer := Resolve(Input{
				Tier: content.TierElite, State: state,
				Profile: profile, Registry: reg, Stream: stream,
			})
			for _, id := range offer.Cards {
				if id == "debug_strike" {
					hits++
				}
			}
		}
		return hits
	}

	flat := count(&game.RunState{}, 400)
	biased := &game.RunState{}
	biased.AddBias("debug_beatdown", 2, -3, 3)
	tilted := count(biased, 400)

	if tilted <= flat {
		t.Errorf("debug bias should tilt offers toward tagged cards: flat=%d tilted=%d", flat, tilted)
	}
}
