package db

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"commitrogue/internal/game"
	"commitrogue/internal/history"
	"commitrogue/internal/rng"
)

// CurrentSchemaVersion is the save document version this build writes.
const CurrentSchemaVersion = 2

// UnsupportedVersionError rejects documents written by a newer build.
type UnsupportedVersionError struct {
	Version int
	Current int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("save schema version %d is newer than supported version %d", e.Version, e.Current)
}

// SaveDoc is one persisted run. It is self-contained: the history
// records and route snapshot travel with the state so a resumed run
// never re-consumes entropy that was already spent.
type SaveDoc struct {
	SchemaVersion   int              `json:"schema_version"`
	Checksum        string           `json:"checksum,omitempty"`
	Seed            rng.SeedState    `json:"seed"`
	RepoFingerprint string           `json:"repo_fingerprint"`
	RunState        game.RunState    `json:"run_state"`
	MetaProfile     game.MetaProfile `json:"meta_profile"`
	Records         []history.Record `json:"records"`
	Route           json.RawMessage  `json:"route,omitempty"`
	NextNodes       []string         `json:"next_nodes,omitempty"`
	ContentHash     string           `json:"content_hash,omitempty"`
	EventLogTail    json.RawMessage  `json:"event_log_tail,omitempty"`
}

// migration rewrites one generic document from its version to the next.
// Migrations are pure: same input doc, same output doc.
type migration func(doc map[string]any) (map[string]any, error)

// migrations[v] lifts a version-v document to v+1. Both save and
// profile documents run through the same chain.
var migrations = map[int]migration{
	// v1 stored the history digest under "fingerprint".
	1: func(doc map[string]any) (map[string]any, error) {
		if v, ok := doc["fingerprint"]; ok {
			doc["repo_fingerprint"] = v
			delete(doc, "fingerprint")
		}
		return doc, nil
	},
}

// decodeGeneric decodes a document into map form with json.Number so
// large integer fields (crypto-random seeds, event sequence numbers)
// survive the round trip without float64 truncation.
func decodeGeneric(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// checksumOf digests the canonical form of a document with its checksum
// field removed. encoding/json sorts map keys, so the bytes are stable
// regardless of how the document was produced.
func checksumOf(doc map[string]any) (string, error) {
	delete(doc, "checksum")
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// seal stamps the current version and checksum onto a document.
func seal(doc map[string]any) ([]byte, error) {
	doc["schema_version"] = CurrentSchemaVersion
	sum, err := checksumOf(doc)
	if err != nil {
		return nil, err
	}
	doc["checksum"] = sum
	return json.Marshal(doc)
}

// open verifies a document's checksum against its stored bytes, then
// migrates it to the current version. A checksum mismatch rejects the
// document wholesale.
func open(raw []byte) (map[string]any, error) {
	doc, err := decodeGeneric(raw)
	if err != nil {
		return nil, fmt.Errorf("decode save document: %w", err)
	}

	version := 0
	if v, ok := doc["schema_version"].(json.Number); ok {
		if n, numErr := v.Int64(); numErr == nil {
			version = int(n)
		}
	}
	if version > CurrentSchemaVersion {
		return nil, &UnsupportedVersionError{Version: version, Current: CurrentSchemaVersion}
	}

	stored, _ := doc["checksum"].(string)
	if stored == "" {
		return nil, fmt.Errorf("save document has no checksum")
	}
	sum, err := checksumOf(doc)
	if err != nil {
		return nil, err
	}
	if sum != stored {
		return nil, fmt.Errorf("save document checksum mismatch")
	}

	for v := version; v < CurrentSchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("no migration from save schema version %d", v)
		}
		if doc, err = step(doc); err != nil {
			return nil, fmt.Errorf("migrate save schema %d to %d: %w", v, v+1, err)
		}
	}
	doc["schema_version"] = CurrentSchemaVersion
	return doc, nil
}

// EncodeSave seals a save document for storage.
func EncodeSave(doc SaveDoc) ([]byte, error) {
	doc.Checksum = ""
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	generic, err := decodeGeneric(raw)
	if err != nil {
		return nil, err
	}
	return seal(generic)
}

// DecodeSave verifies and migrates stored bytes back into a save
// document.
func DecodeSave(raw []byte) (SaveDoc, error) {
	generic, err := open(raw)
	if err != nil {
		return SaveDoc{}, err
	}
	migrated, err := json.Marshal(generic)
	if err != nil {
		return SaveDoc{}, err
	}
	var doc SaveDoc
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return SaveDoc{}, fmt.Errorf("decode migrated save: %w", err)
	}
	return doc, nil
}

// profileDoc is the persisted envelope around a meta profile.
type profileDoc struct {
	SchemaVersion int              `json:"schema_version"`
	Checksum      string           `json:"checksum,omitempty"`
	Profile       game.MetaProfile `json:"profile"`
}

// EncodeProfile seals a meta profile for storage.
func EncodeProfile(profile *game.MetaProfile) ([]byte, error) {
	raw, err := json.Marshal(profileDoc{Profile: *profile})
	if err != nil {
		return nil, err
	}
	generic, err := decodeGeneric(raw)
	if err != nil {
		return nil, err
	}
	return seal(generic)
}

// DecodeProfile verifies and migrates stored bytes back into a meta
// profile.
func DecodeProfile(raw []byte) (*game.MetaProfile, error) {
	generic, err := open(raw)
	if err != nil {
		return nil, err
	}
	migrated, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var doc profileDoc
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return nil, fmt.Errorf("decode migrated profile: %w", err)
	}
	return &doc.Profile, nil
}
