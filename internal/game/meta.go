package game

import "sort"

// MetaProfile is the cross-run progression record. It is read at run
// start (unlock filtering) and settled exactly once at run end.
type MetaProfile struct {
	ProfileID        string   `json:"profile_id"`
	Points           int      `json:"points"`
	UnlockedCards    []string `json:"unlocked_cards"`
	UnlockedRelics   []string `json:"unlocked_relics"`
	UnlockedChars    []string `json:"unlocked_characters"`
	UnlockedPacks    []string `json:"unlocked_packs"`
	RunsTotal        int      `json:"runs_total"`
	RunsWon          int      `json:"runs_won"`
	LifetimeGold     int      `json:"lifetime_gold"`
	LifetimeExp      int      `json:"lifetime_exp"`
	LifetimeBattles  int      `json:"lifetime_battles"`
	BestChapterIndex int      `json:"best_chapter_index"`
}

// CardUnlocked reports whether a card id is available for offers. Common
// starter cards are always available; everything else needs an unlock.
func (m *MetaProfile) CardUnlocked(id string) bool {
	return contains(m.UnlockedCards, id)
}

// RelicUnlocked reports whether a relic id is available for offers.
func (m *MetaProfile) RelicUnlocked(id string) bool {
	return contains(m.UnlockedRelics, id)
}

// CharacterUnlocked reports whether a character can start a run.
func (m *MetaProfile) CharacterUnlocked(id string) bool {
	return contains(m.UnlockedChars, id)
}

// Unlock adds an id to one of the unlock sets, keeping it sorted.
func (m *MetaProfile) Unlock(kind, id string) {
	switch kind {
	case "card":
		m.UnlockedCards = insertSorted(m.UnlockedCards, id)
	case "relic":
		m.UnlockedRelics = insertSorted(m.UnlockedRelics, id)
	case "character":
		m.UnlockedChars = insertSorted(m.UnlockedChars, id)
	case "pack":
		m.UnlockedPacks = insertSorted(m.UnlockedPacks, id)
	}
}

// Settle folds a finished run into the profile. Points scale with
// progress; a win doubles them.
func (m *MetaProfile) Settle(s *RunState, won bool) int {
	m.RunsTotal++
	if won {
		m.RunsWon++
	}
	m.LifetimeGold += s.Metrics.GoldEarned
	m.LifetimeExp += s.Metrics.ExpEarned
	m.LifetimeBattles += s.Metrics.BattlesTotal
	if s.ChapterIndex > m.BestChapterIndex {
		m.BestChapterIndex = s.ChapterIndex
	}
	points := s.Metrics.NodesVisited + 5*s.Metrics.ElitesSlain + 20*s.Metrics.BossesSlain
	if won {
		points *= 2
	}
	m.Points += points
	return points
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func insertSorted(list []string, id string) []string {
	if contains(list, id) {
		return list
	}
	list = append(list, id)
	sort.Strings(list)
	return list
}
