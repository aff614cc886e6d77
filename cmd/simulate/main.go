// Command simulate plays a full run headlessly with a scripted policy
// and prints the terminal summary as JSON. Two invocations with the
// same seed print identical output, which makes it the quickest replay
// harness when determinism regressions are suspected.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"commitrogue/internal/content"
	"commitrogue/internal/engine"
	"commitrogue/internal/game"
	"commitrogue/internal/history"
	"commitrogue/internal/rng"
)

func main() {
	seed := flag.Int64("seed", 0, "run seed (0 picks a random seed)")
	records := flag.Int("records", 60, "number of synthetic history records")
	character := flag.String("character", "junior_dev", "character id")
	difficulty := flag.Int("difficulty", 0, "difficulty level")
	packs := flag.String("packs", "", "content pack directory")
	verbose := flag.Bool("v", false, "print every event")
	maxSteps := flag.Int("max-steps", 50000, "abort after this many actions")
	flag.Parse()

	if *seed == 0 {
		fresh, err := rng.NewSeed()
		if err != nil {
			log.Fatalf("Failed to generate seed: %v", err)
		}
		*seed = fresh
	}

	reg, err := content.Load(content.LoadOptions{DiscoverRoot: *packs})
	if err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}

	eng, err := engine.New(reg, engine.Options{
		Seed:        *seed,
		Difficulty:  *difficulty,
		CharacterID: *character,
		Records:     history.Synthetic(*seed, *records),
	})
	if err != nil {
		log.Fatalf("Failed to start run: %v", err)
	}
	log.Printf("Simulating run %s (seed %d, content %s)", eng.State().RunID, *seed, reg.Hash()[:12])

	for step := 0; eng.Phase() != game.PhaseEnded; step++ {
		if step >= *maxSteps {
			log.Fatalf("Run did not finish within %d steps (phase %s)", *maxSteps, eng.Phase())
		}
		action, ok := nextAction(eng)
		if !ok {
			log.Fatalf("No action available in phase %s", eng.Phase())
		}
		events, err := eng.Apply(action)
		if err != nil {
			var illegal *game.IllegalActionError
			if errors.As(err, &illegal) {
				// The scripted card play ran out of energy; pass the turn.
				if action.Type == engine.ActPlayCard {
					if events, err = eng.Apply(engine.Action{Type: engine.ActEndTurn}); err == nil {
						printEvents(events, *verbose)
						continue
					}
				}
			}
			log.Fatalf("Apply %s in phase %s: %v", action.Type, eng.Phase(), err)
		}
		printEvents(events, *verbose)
	}

	summary, ok := eng.Summary()
	if !ok {
		log.Fatalf("Run ended without a summary")
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal summary: %v", err)
	}
	fmt.Println(string(out))
	os.Exit(0)
}

// nextAction picks the scripted move for the current phase: always the
// first available option, playing cards before passing the turn.
func nextAction(eng *engine.Engine) (engine.Action, bool) {
	switch eng.Phase() {
	case game.PhaseRoute:
		next := eng.NextNodes()
		if len(next) == 0 {
			return engine.Action{}, false
		}
		return engine.Action{Type: engine.ActChooseNode, NodeID: next[0]}, true
	case game.PhaseCombat:
		if len(eng.Hand()) > 0 {
			return engine.Action{Type: engine.ActPlayCard, HandIndex: 0}, true
		}
		return engine.Action{Type: engine.ActEndTurn}, true
	case game.PhaseEvent:
		choices := eng.EventChoiceIDs()
		if len(choices) == 0 {
			return engine.Action{}, false
		}
		return engine.Action{Type: engine.ActChooseEventOption, ChoiceID: choices[0]}, true
	case game.PhaseReward:
		offer, ok := eng.Offer()
		if !ok {
			return engine.Action{}, false
		}
		if offer.RelicID != "" {
			if state := eng.State(); !state.HasRelic(offer.RelicID) {
				return engine.Action{Type: engine.ActTakeRelic}, true
			}
		}
		if len(offer.Cards) > 0 {
			return engine.Action{Type: engine.ActPickCardReward, CardID: offer.Cards[0]}, true
		}
		return engine.Action{Type: engine.ActSkipCardReward}, true
	case game.PhaseShop:
		return engine.Action{Type: engine.ActLeaveShop}, true
	case game.PhaseRest:
		return engine.Action{Type: engine.ActRest}, true
	case game.PhaseTreasure:
		return engine.Action{Type: engine.ActOpenTreasure}, true
	default:
		return engine.Action{}, false
	}
}

func printEvents(events []game.EventRecord, verbose bool) {
	if !verbose {
		return
	}
	for _, ev := range events {
		log.Printf("  #%d %s %s", ev.Seq, ev.Type, string(ev.Payload))
	}
}
