package game

// RunSummary is the terminal report of a run, emitted exactly once no
// matter how the run ended.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Outcome      string    `json:"outcome"`
	DeathCause   string    `json:"death_cause,omitempty"`
	ChapterIndex int       `json:"chapter_index"`
	BattlesTotal int       `json:"battles_total"`
	BattlesWon   int       `json:"battles_won"`
	ElitesSlain  int       `json:"elites_slain"`
	BossesSlain  int       `json:"bosses_slain"`
	GoldEarned   int       `json:"gold_earned"`
	ExpEarned    int       `json:"exp_earned"`
	CardsAdded   int       `json:"cards_added"`
	NodesVisited int       `json:"nodes_visited"`
	FinalLevel   int       `json:"final_level"`
	DeckSize     int       `json:"deck_size"`
	Bias         []BiasDim `json:"bias"`
}

// Summarize builds the run summary from terminal state.
func Summarize(s *RunState, outcome string) RunSummary {
	return RunSummary{
		RunID:        s.RunID,
		Outcome:      outcome,
		DeathCause:   s.DeathCause,
		ChapterIndex: s.ChapterIndex,
		BattlesTotal: s.Metrics.BattlesTotal,
		BattlesWon:   s.Metrics.BattlesWon,
		ElitesSlain:  s.Metrics.ElitesSlain,
		BossesSlain:  s.Metrics.BossesSlain,
		GoldEarned:   s.Metrics.GoldEarned,
		ExpEarned:    s.Metrics.ExpEarned,
		CardsAdded:   s.Metrics.CardsAdded,
		NodesVisited: s.Metrics.NodesVisited,
		FinalLevel:   s.Player.Level,
		DeckSize:     len(s.Piles.All()),
		Bias:         append([]BiasDim(nil), s.Bias...),
	}
}
