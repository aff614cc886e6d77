package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"commitrogue/internal/content"
	"commitrogue/internal/db"
	"commitrogue/internal/engine"
	"commitrogue/internal/game"
	"commitrogue/internal/history"
	mw "commitrogue/internal/middleware"
	"commitrogue/internal/rng"
	"commitrogue/internal/validation"
)

// Server handles HTTP requests
type Server struct {
	router      chi.Router
	store       *db.Store
	reg         *content.Registry
	runs        map[string]*engine.Engine
	owners      map[string]string
	runsMu      sync.RWMutex
	rateLimiter *mw.RateLimiter
	authSecret  string
}

// Options configures the API server.
type Options struct {
	Store          *db.Store
	Registry       *content.Registry
	AuthSecret     string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 100
	}
	s := &Server{
		router:      chi.NewRouter(),
		store:       opts.Store,
		reg:         opts.Registry,
		runs:        make(map[string]*engine.Engine),
		owners:      make(map[string]string),
		rateLimiter: mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		authSecret:  opts.AuthSecret,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(mw.SecurityHeaders)
	s.router.Use(mw.MaxBodySize(1024 * 1024)) // 1MB max

	// Public endpoints (no auth required)
	s.router.Post("/api/runs", s.createRun)
	s.router.Get("/api/content", s.getContent)

	// Protected endpoints (auth required)
	s.router.Group(func(r chi.Router) {
		r.Use(mw.Auth(s.authSecret))
		r.Get("/api/runs", s.listRuns)
		r.Get("/api/runs/{id}", s.getRun)
		r.Post("/api/runs/{id}/actions", s.applyAction)
		r.Get("/api/runs/{id}/events", s.getEvents)
		r.Get("/api/runs/{id}/summary", s.getSummary)
		r.Post("/api/runs/{id}/save", s.saveRun)
		r.Post("/api/runs/{id}/resume", s.resumeRun)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (sanitized)
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// getRunEngine validates access and returns the live engine for a run.
func (s *Server) getRunEngine(w http.ResponseWriter, r *http.Request) (*engine.Engine, string, bool) {
	runID := chi.URLParam(r, "id")
	if err := validation.ValidateRunID(runID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return nil, "", false
	}

	s.runsMu.RLock()
	eng, ok := s.runs[runID]
	owner := s.owners[runID]
	s.runsMu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, "", false
	}
	// Runs created without a token stay open to any authenticated user.
	if owner != "" && owner != mw.UserID(r) {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, "", false
	}
	return eng, runID, true
}

// rewardView is the client-facing slice of a reward offer.
type rewardView struct {
	Gold    int      `json:"gold"`
	Cards   []string `json:"cards"`
	RelicID string   `json:"relic_id,omitempty"`
}

// runView is the client-facing snapshot of a live run.
type runView struct {
	RunID      string          `json:"run_id"`
	Phase      game.Phase      `json:"phase"`
	State      game.RunState   `json:"state"`
	NextNodes  []string        `json:"next_nodes,omitempty"`
	Hand       []string        `json:"hand,omitempty"`
	Energy     int             `json:"energy,omitempty"`
	Choices    []string        `json:"choices,omitempty"`
	Offer      *rewardView     `json:"offer,omitempty"`
	ShopCards  []game.ShopItem `json:"shop_cards,omitempty"`
	ShopRelics []game.ShopItem `json:"shop_relics,omitempty"`
}

func viewOf(eng *engine.Engine) runView {
	state := eng.State()
	view := runView{
		RunID:     state.RunID,
		Phase:     eng.Phase(),
		State:     state,
		NextNodes: eng.NextNodes(),
		Hand:      eng.Hand(),
		Energy:    eng.Energy(),
		Choices:   eng.EventChoiceIDs(),
	}
	if offer, ok := eng.Offer(); ok {
		view.Offer = &rewardView{Gold: offer.Gold, Cards: offer.Cards, RelicID: offer.RelicID}
	}
	view.ShopCards, view.ShopRelics = eng.ShopStock()
	return view
}

// createRun starts a new run
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed        int64            `json:"seed"`
		Difficulty  int              `json:"difficulty"`
		CharacterID string           `json:"character_id"`
		Records     []history.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateContentID(req.CharacterID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid character ID")
		return
	}
	if err := validation.ValidateDifficulty(req.Difficulty); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateRecordCount(len(req.Records)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	seed := req.Seed
	if seed == 0 {
		fresh, err := rng.NewSeed()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed run")
			return
		}
		seed = fresh
	}

	eng, err := engine.New(s.reg, engine.Options{
		Seed:        seed,
		Difficulty:  req.Difficulty,
		CharacterID: req.CharacterID,
		Records:     req.Records,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to create run")
		return
	}

	state := eng.State()
	s.runsMu.Lock()
	s.runs[state.RunID] = eng
	s.owners[state.RunID] = mw.UserID(r)
	s.runsMu.Unlock()

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    viewOf(eng),
	})
}

// listRuns lists the caller's live runs plus saved run IDs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserID(r)

	s.runsMu.RLock()
	var live []string
	for id := range s.runs {
		if owner := s.owners[id]; owner == "" || owner == userID {
			live = append(live, id)
		}
	}
	s.runsMu.RUnlock()

	saved, err := s.store.ListSaves()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"live":  live,
			"saved": saved,
		},
	})
}

// getRun gets a run's current state
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := s.getRunEngine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    viewOf(eng),
	})
}

// applyAction applies one player action to a run
func (s *Server) applyAction(w http.ResponseWriter, r *http.Request) {
	eng, runID, ok := s.getRunEngine(w, r)
	if !ok {
		return
	}

	var action engine.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, id := range []string{action.NodeID, action.ChoiceID, action.CardID, action.RelicID} {
		if id == "" {
			continue
		}
		if err := validation.ValidateContentID(id); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ID in action")
			return
		}
	}
	if err := validation.ValidateHandIndex(action.HandIndex); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := eng.Apply(action)
	if err != nil {
		var illegal *game.IllegalActionError
		if errors.As(err, &illegal) {
			writeError(w, http.StatusConflict, illegal.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply action")
		return
	}

	// A finished run settles into the store and drops its save.
	if eng.Phase() == game.PhaseEnded {
		if summary, ok := eng.Summary(); ok {
			profile := eng.Profile()
			_ = s.store.PutSummary(profile.ProfileID, summary)
			_ = s.store.PutProfile(profile)
		}
		_ = s.store.DeleteSave(runID)
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"events": events,
			"view":   viewOf(eng),
		},
	})
}

// getEvents returns run log records after a sequence number
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := s.getRunEngine(w, r)
	if !ok {
		return
	}

	events := eng.AllEvents()
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid after parameter")
			return
		}
		events = eng.Events(after)
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    events,
	})
}

// getSummary returns the terminal summary of a run
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if err := validation.ValidateRunID(runID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	s.runsMu.RLock()
	eng, live := s.runs[runID]
	s.runsMu.RUnlock()

	if live {
		if summary, ok := eng.Summary(); ok {
			writeJSON(w, http.StatusOK, Response{Success: true, Data: summary})
			return
		}
		writeError(w, http.StatusConflict, "Run has not ended")
		return
	}

	summary, err := s.store.GetSummary(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Summary not found")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: summary})
}

// saveRun snapshots a run into the store
func (s *Server) saveRun(w http.ResponseWriter, r *http.Request) {
	eng, runID, ok := s.getRunEngine(w, r)
	if !ok {
		return
	}

	doc, err := eng.Snapshot()
	if err != nil {
		var illegal *game.IllegalActionError
		if errors.As(err, &illegal) {
			writeError(w, http.StatusConflict, illegal.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to snapshot run")
		return
	}
	if err := s.store.PutSave(runID, doc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save run")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    "Run saved",
	})
}

// resumeRun rebuilds a live run from its stored snapshot
func (s *Server) resumeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if err := validation.ValidateRunID(runID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	doc, err := s.store.GetSave(runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Save not found")
		return
	}

	eng, err := engine.Resume(s.reg, doc)
	if err != nil {
		writeError(w, http.StatusConflict, "Save is incompatible with loaded content")
		return
	}

	s.runsMu.Lock()
	s.runs[runID] = eng
	if _, exists := s.owners[runID]; !exists {
		s.owners[runID] = mw.UserID(r)
	}
	s.runsMu.Unlock()

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    viewOf(eng),
	})
}

// getContent describes the loaded content set
func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	chars := s.reg.Characters()
	ids := make([]string, len(chars))
	for i, c := range chars {
		ids[i] = c.ID
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"hash":       s.reg.Hash(),
			"packs":      s.reg.Packs(),
			"characters": ids,
		},
	})
}
