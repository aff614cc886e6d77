package engine

import (
	"encoding/json"
	"fmt"

	"commitrogue/internal/content"
	"commitrogue/internal/db"
	"commitrogue/internal/game"
	"commitrogue/internal/history"
	"commitrogue/internal/rng"
	"commitrogue/internal/route"
)

// logTailLen caps how much of the event log travels inside a save.
const logTailLen = 256

// Snapshot captures the run for persistence. Runs can only be saved on
// the route, between nodes; mid-battle and mid-event state never hits
// disk.
func (e *Engine) Snapshot() (db.SaveDoc, error) {
	if e.state.Phase != game.PhaseRoute {
		return db.SaveDoc{}, &game.IllegalActionError{
			Action: "save", Phase: e.state.Phase, Reason: "runs save only on the route",
		}
	}
	routeRaw, err := json.Marshal(e.graph)
	if err != nil {
		return db.SaveDoc{}, fmt.Errorf("marshal route: %w", err)
	}
	tail, err := e.log.MarshalTail(logTailLen)
	if err != nil {
		return db.SaveDoc{}, fmt.Errorf("marshal event log tail: %w", err)
	}
	return db.SaveDoc{
		Seed:            e.stream.Capture(),
		RepoFingerprint: history.Fingerprint(e.records),
		RunState:        e.state,
		MetaProfile:     *e.profile,
		Records:         e.records,
		Route:           routeRaw,
		NextNodes:       append([]string(nil), e.nextNodes...),
		ContentHash:     e.reg.Hash(),
		EventLogTail:    tail,
	}, nil
}

// Resume rebuilds a live engine from a decoded save. The content
// registry must hash to the same value the run was saved under;
// replaying against drifted content would silently desync.
func Resume(reg *content.Registry, doc db.SaveDoc) (*Engine, error) {
	if doc.ContentHash != "" && doc.ContentHash != reg.Hash() {
		return nil, fmt.Errorf("save was written against content %s, loaded content is %s",
			doc.ContentHash, reg.Hash())
	}
	if got := history.Fingerprint(doc.Records); got != doc.RepoFingerprint {
		return nil, fmt.Errorf("save records do not match their fingerprint")
	}
	stream, err := rng.NewFromState(doc.Seed)
	if err != nil {
		return nil, fmt.Errorf("restore rng stream: %w", err)
	}

	var graph route.Graph
	if err := json.Unmarshal(doc.Route, &graph); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	profile := doc.MetaProfile
	e := &Engine{
		reg:       reg,
		stream:    stream,
		state:     doc.RunState,
		profile:   &profile,
		records:   doc.Records,
		tuning:    reg.Tuning(),
		graph:     &graph,
		nextNodes: append([]string(nil), doc.NextNodes...),
	}
	if len(doc.EventLogTail) > 0 {
		if err := e.log.RestoreTail(doc.EventLogTail); err != nil {
			return nil, fmt.Errorf("restore event log: %w", err)
		}
	}
	return e, nil
}
