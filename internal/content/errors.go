package content

import "fmt"

// ContentLoadError reports a malformed definition. Loading is all or
// nothing: a single bad definition fails the whole registry.
type ContentLoadError struct {
	Pack   string
	Kind   string
	ID     string
	Reason string
}

func (e *ContentLoadError) Error() string {
	return fmt.Sprintf("content load failed: pack %q %s %q: %s", e.Pack, e.Kind, e.ID, e.Reason)
}

// PackConflictError reports two packs introducing the same id without
// declared override intent.
type PackConflictError struct {
	Kind       string
	ID         string
	FirstPack  string
	SecondPack string
}

func (e *PackConflictError) Error() string {
	return fmt.Sprintf("pack conflict: %s %q defined by both %q and %q without override", e.Kind, e.ID, e.FirstPack, e.SecondPack)
}

// MissingReferenceError reports a dangling cross-reference in the merged
// registry.
type MissingReferenceError struct {
	Kind     string
	ID       string
	Referrer string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference: %s %q referenced by %s", e.Kind, e.ID, e.Referrer)
}
