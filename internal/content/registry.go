package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Registry is the merged, immutable content view. It is built once at
// startup and safe to share across runs; nothing mutates it after Load.
type Registry struct {
	tuning     Tuning
	cards      map[string]Card
	relics     map[string]Relic
	statuses   map[string]Status
	enemies    map[string]Enemy
	events     map[string]EventDef
	archetypes map[string]Archetype
	characters map[string]Character
	chapters   map[string]ChapterOverride
	packs      []PackInfo
	hash       string
}

// LoadOptions selects which packs merge on top of the builtin default
// pack: explicit directories first, in request order, then packs
// discovered under DiscoverRoot sorted by name.
type LoadOptions struct {
	ExplicitDirs []string
	DiscoverRoot string
}

// Load builds the merged registry.
func Load(opts LoadOptions) (*Registry, error) {
	base, err := ParseManifest([]byte(defaultManifest), "core")
	if err != nil {
		return nil, fmt.Errorf("builtin pack: %w", err)
	}
	packs := []*Pack{base}

	seen := map[string]bool{}
	for _, dir := range opts.ExplicitDirs {
		p, err := LoadPackDir(dir)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
		seen[dir] = true
	}
	if opts.DiscoverRoot != "" {
		discovered, err := DiscoverPacks(opts.DiscoverRoot)
		if err != nil {
			return nil, err
		}
		for _, dir := range discovered {
			if seen[dir] {
				continue
			}
			p, err := LoadPackDir(dir)
			if err != nil {
				return nil, err
			}
			packs = append(packs, p)
		}
	}

	return Merge(packs)
}

// Merge combines packs in order, applying the collision contract: a
// later pack may re-declare an id only when the payload is identical
// (no-op) or the definition declares override intent; anything else is a
// PackConflictError.
func Merge(packs []*Pack) (*Registry, error) {
	r := &Registry{
		cards:      map[string]Card{},
		relics:     map[string]Relic{},
		statuses:   map[string]Status{},
		enemies:    map[string]Enemy{},
		events:     map[string]EventDef{},
		archetypes: map[string]Archetype{},
		characters: map[string]Character{},
		chapters:   map[string]ChapterOverride{},
	}
	owners := map[string]string{}

	for i, p := range packs {
		packID := p.Info.ID
		r.packs = append(r.packs, p.Info)

		if p.Tuning != nil {
			if i > 0 {
				return nil, &PackConflictError{Kind: "tuning", ID: "tuning", FirstPack: packs[0].Info.ID, SecondPack: packID}
			}
			r.tuning = *p.Tuning
		}
		for chapterType, ov := range p.ChapterOverrides {
			key := "chapter/" + chapterType
			if prev, ok := r.chapters[chapterType]; ok {
				if !canonicalEqual(prev, ov) {
					return nil, &PackConflictError{Kind: "chapter_override", ID: chapterType, FirstPack: owners[key], SecondPack: packID}
				}
				continue
			}
			r.chapters[chapterType] = ov
			owners[key] = packID
		}

		for _, d := range p.Cards {
			if err := mergeDef("card", d.ID, packID, owners, r.cards, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Relics {
			if err := mergeDef("relic", d.ID, packID, owners, r.relics, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Statuses {
			if err := mergeDef("status", d.ID, packID, owners, r.statuses, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Enemies {
			if err := mergeDef("enemy", d.ID, packID, owners, r.enemies, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Archetypes {
			if err := mergeDef("archetype", d.ID, packID, owners, r.archetypes, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Characters {
			if err := mergeDef("character", d.ID, packID, owners, r.characters, d, d.Override); err != nil {
				return nil, err
			}
		}
		for _, d := range p.Events {
			key := "event/" + d.ID
			if prev, ok := r.events[d.ID]; ok {
				if bytes.Equal(prev.canonical(), d.canonical()) {
					continue
				}
				if !d.Override {
					return nil, &PackConflictError{Kind: "event", ID: d.ID, FirstPack: owners[key], SecondPack: packID}
				}
			}
			r.events[d.ID] = d
			owners[key] = packID
		}
	}

	if err := r.validateReferences(); err != nil {
		return nil, err
	}
	r.hash = r.computeHash()
	return r, nil
}

func mergeDef[T any](kind, id, packID string, owners map[string]string, into map[string]T, def T, override bool) error {
	key := kind + "/" + id
	if prev, ok := into[id]; ok {
		if canonicalEqual(prev, def) {
			return nil
		}
		if !override {
			return &PackConflictError{Kind: kind, ID: id, FirstPack: owners[key], SecondPack: packID}
		}
	}
	into[id] = def
	owners[key] = packID
	return nil
}

func canonicalEqual(a, b any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return bytes.Equal(aj, bj)
}

// validateReferences resolves every embedded id against the merged set.
func (r *Registry) validateReferences() error {
	for _, card := range sortedValues(r.cards, func(c Card) string { return c.ID }) {
		referrer := fmt.Sprintf("card %q", card.ID)
		if card.UpgradeID != "" {
			if _, ok := r.cards[card.UpgradeID]; !ok {
				return &MissingReferenceError{Kind: "card", ID: card.UpgradeID, Referrer: referrer}
			}
		}
		for _, eff := range card.Effects {
			if eff.Type == "status" {
				if _, ok := r.statuses[eff.StatusID]; !ok {
					return &MissingReferenceError{Kind: "status", ID: eff.StatusID, Referrer: referrer}
				}
			}
		}
	}
	for _, a := range sortedValues(r.archetypes, func(a Archetype) string { return a.ID }) {
		referrer := fmt.Sprintf("archetype %q", a.ID)
		for _, id := range a.StarterCards {
			if _, ok := r.cards[id]; !ok {
				return &MissingReferenceError{Kind: "card", ID: id, Referrer: referrer}
			}
		}
		for _, id := range a.StarterRelics {
			if _, ok := r.relics[id]; !ok {
				return &MissingReferenceError{Kind: "relic", ID: id, Referrer: referrer}
			}
		}
	}
	for _, c := range sortedValues(r.characters, func(c Character) string { return c.ID }) {
		referrer := fmt.Sprintf("character %q", c.ID)
		for _, id := range c.StarterCards {
			if _, ok := r.cards[id]; !ok {
				return &MissingReferenceError{Kind: "card", ID: id, Referrer: referrer}
			}
		}
		for _, id := range c.StarterRelics {
			if _, ok := r.relics[id]; !ok {
				return &MissingReferenceError{Kind: "relic", ID: id, Referrer: referrer}
			}
		}
	}
	for _, ev := range sortedValues(r.events, func(e EventDef) string { return e.ID }) {
		for _, choice := range ev.Choices {
			referrer := fmt.Sprintf("event %q choice %q", ev.ID, choice.ID)
			for _, eff := range choice.Effects {
				if err := r.checkEffectRefs(eff, referrer); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Registry) checkEffectRefs(eff Effect, referrer string) error {
	switch e := eff.(type) {
	case AddCard:
		if _, ok := r.cards[e.CardID]; !ok {
			return &MissingReferenceError{Kind: "card", ID: e.CardID, Referrer: referrer}
		}
	case RemoveCard:
		if e.CardID != "" {
			if _, ok := r.cards[e.CardID]; !ok {
				return &MissingReferenceError{Kind: "card", ID: e.CardID, Referrer: referrer}
			}
		}
	case UpgradeCard:
		if e.CardID != "" {
			if _, ok := r.cards[e.CardID]; !ok {
				return &MissingReferenceError{Kind: "card", ID: e.CardID, Referrer: referrer}
			}
		}
	case AddRelic:
		if _, ok := r.relics[e.RelicID]; !ok {
			return &MissingReferenceError{Kind: "relic", ID: e.RelicID, Referrer: referrer}
		}
	case RemoveRelic:
		if _, ok := r.relics[e.RelicID]; !ok {
			return &MissingReferenceError{Kind: "relic", ID: e.RelicID, Referrer: referrer}
		}
	case ApplyStatus:
		if _, ok := r.statuses[e.StatusID]; !ok {
			return &MissingReferenceError{Kind: "status", ID: e.StatusID, Referrer: referrer}
		}
	case TriggerBattle:
		if _, ok := r.enemies[e.EnemyID]; !ok {
			return &MissingReferenceError{Kind: "enemy", ID: e.EnemyID, Referrer: referrer}
		}
	case ModifyBias:
		if _, ok := r.archetypes[e.Archetype]; !ok {
			return &MissingReferenceError{Kind: "archetype", ID: e.Archetype, Referrer: referrer}
		}
	}
	return nil
}

// computeHash produces a stable digest over all merged raw definitions,
// used downstream to invalidate derived caches when content changes.
func (r *Registry) computeHash() string {
	h := sha256.New()
	write := func(kind, id string, payload []byte) {
		fmt.Fprintf(h, "%s/%s:", kind, id)
		h.Write(payload)
		h.Write([]byte{'\n'})
	}

	tj, _ := json.Marshal(r.tuning)
	write("tuning", "tuning", tj)
	for _, key := range sortedKeys(r.chapters) {
		cj, _ := json.Marshal(r.chapters[key])
		write("chapter_override", key, cj)
	}
	for _, d := range sortedValues(r.cards, func(c Card) string { return c.ID }) {
		j, _ := json.Marshal(d)
		write("card", d.ID, j)
	}
	for _, d := range sortedValues(r.relics, func(v Relic) string { return v.ID }) {
		j, _ := json.Marshal(d)
		write("relic", d.ID, j)
	}
	for _, d := range sortedValues(r.statuses, func(v Status) string { return v.ID }) {
		j, _ := json.Marshal(d)
		write("status", d.ID, j)
	}
	for _, d := range sortedValues(r.enemies, func(v Enemy) string { return v.ID }) {
		j, _ := json.Marshal(d)
		write("enemy", d.ID, j)
	}
	for _, d := range sortedValues(r.events, func(v EventDef) string { return v.ID }) {
		write("event", d.ID, d.canonical())
	}
	for _, d := range sortedValues(r.archetypes, func(v Archetype) string { return v.ID }) {
		j, _ := json.Marshal(d)
		write("archetype", d.ID, j)
	}
	for _, d := range sortedValues(r.characters, func(v Character) string { return v.ID }) {
		j, _ := json.Marshal(d)
		write("character", d.ID, j)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues[T any](m map[string]T, id func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

// Hash returns the stable content digest.
func (r *Registry) Hash() string { return r.hash }

// Tuning returns engine tuning knobs.
func (r *Registry) Tuning() Tuning { return r.tuning }

// Packs returns merged pack headers in merge order.
func (r *Registry) Packs() []PackInfo { return append([]PackInfo(nil), r.packs...) }

// Card looks up a card definition.
func (r *Registry) Card(id string) (Card, bool) { c, ok := r.cards[id]; return c, ok }

// Relic looks up a relic definition.
func (r *Registry) Relic(id string) (Relic, bool) { v, ok := r.relics[id]; return v, ok }

// Status looks up a status definition.
func (r *Registry) Status(id string) (Status, bool) { v, ok := r.statuses[id]; return v, ok }

// Enemy looks up an enemy definition.
func (r *Registry) Enemy(id string) (Enemy, bool) { v, ok := r.enemies[id]; return v, ok }

// Event looks up an event definition.
func (r *Registry) Event(id string) (EventDef, bool) { v, ok := r.events[id]; return v, ok }

// Archetype looks up an archetype definition.
func (r *Registry) Archetype(id string) (Archetype, bool) { v, ok := r.archetypes[id]; return v, ok }

// Character looks up a character definition.
func (r *Registry) Character(id string) (Character, bool) { v, ok := r.characters[id]; return v, ok }

// ChapterOverride returns tuning for a chapter type, reporting whether
// any pack defined one.
func (r *Registry) ChapterOverride(chapterType string) (ChapterOverride, bool) {
	v, ok := r.chapters[chapterType]
	return v, ok
}

// Cards returns all cards sorted by id.
func (r *Registry) Cards() []Card {
	return sortedValues(r.cards, func(c Card) string { return c.ID })
}

// Relics returns all relics sorted by id.
func (r *Registry) Relics() []Relic {
	return sortedValues(r.relics, func(v Relic) string { return v.ID })
}

// Archetypes returns all archetypes sorted by id.
func (r *Registry) Archetypes() []Archetype {
	return sortedValues(r.archetypes, func(v Archetype) string { return v.ID })
}

// Characters returns all characters sorted by id.
func (r *Registry) Characters() []Character {
	return sortedValues(r.characters, func(v Character) string { return v.ID })
}

// CardsByRarity returns cards of one rarity sorted by id.
func (r *Registry) CardsByRarity(rarity Rarity) []Card {
	var out []Card
	for _, c := range r.Cards() {
		if c.Rarity == rarity {
			out = append(out, c)
		}
	}
	return out
}

// RelicsByTier returns relics whose tier is one of the given tiers,
// sorted by id.
func (r *Registry) RelicsByTier(tiers ...RelicTier) []Relic {
	var out []Relic
	for _, v := range r.Relics() {
		for _, t := range tiers {
			if v.Tier == t {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// EnemiesByTier returns enemies of one tier sorted by id, optionally
// filtered by commit type when commitType is non-empty.
func (r *Registry) EnemiesByTier(tier EnemyTier, commitType string) []Enemy {
	var out []Enemy
	for _, e := range sortedValues(r.enemies, func(v Enemy) string { return v.ID }) {
		if e.Tier != tier {
			continue
		}
		if commitType != "" && e.Type != commitType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EventsForChapter returns events weighted above zero for a chapter
// type, sorted by id.
func (r *Registry) EventsForChapter(chapterType string) []EventDef {
	var out []EventDef
	for _, e := range sortedValues(r.events, func(v EventDef) string { return v.ID }) {
		if e.WeightFor(chapterType) > 0 {
			out = append(out, e)
		}
	}
	return out
}
