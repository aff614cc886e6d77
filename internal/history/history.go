// Package history models the ordered log of work records that drives a
// run. Records are immutable inputs: the engine never mutates them, it
// only classifies and fingerprints them.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind is the record category inferred from the message prefix.
type Kind string

const (
	KindFeat     Kind = "feat"
	KindFix      Kind = "fix"
	KindDocs     Kind = "docs"
	KindRefactor Kind = "refactor"
	KindTest     Kind = "test"
	KindChore    Kind = "chore"
	KindStyle    Kind = "style"
	KindPerf     Kind = "perf"
	KindMerge    Kind = "merge"
	KindRevert   Kind = "revert"
)

// Record is one entry in the ordered history.
type Record struct {
	Index        int    `json:"index"`
	Message      string `json:"message"`
	AddedLines   int    `json:"added_lines"`
	RemovedLines int    `json:"removed_lines"`
	IsMergeLike  bool   `json:"is_merge_like"`
	IsRevertLike bool   `json:"is_revert_like"`
}

var prefixKinds = []struct {
	prefix string
	kind   Kind
}{
	{"feat", KindFeat},
	{"fix", KindFix},
	{"docs", KindDocs},
	{"refactor", KindRefactor},
	{"test", KindTest},
	{"chore", KindChore},
	{"style", KindStyle},
	{"perf", KindPerf},
	{"revert", KindRevert},
	{"merge", KindMerge},
}

// Kind classifies the record. Structural flags win over the message
// prefix; an unrecognized prefix defaults to feat.
func (r Record) Kind() Kind {
	if r.IsMergeLike {
		return KindMerge
	}
	if r.IsRevertLike {
		return KindRevert
	}
	msg := strings.ToLower(strings.TrimSpace(r.Message))
	for _, pk := range prefixKinds {
		if !strings.HasPrefix(msg, pk.prefix) {
			continue
		}
		rest := msg[len(pk.prefix):]
		if rest == "" {
			return pk.kind
		}
		switch rest[0] {
		case ':', '(', ' ':
			return pk.kind
		}
	}
	return KindFeat
}

// Churn is the total line delta of the record.
func (r Record) Churn() int { return r.AddedLines + r.RemovedLines }

// Fingerprint digests an ordered slice of records. The same history
// always fingerprints the same, so saves can detect a changed source.
func Fingerprint(records []Record) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%d\x00%s\x00%d\x00%d\x00%t\x00%t\n",
			r.Index, r.Message, r.AddedLines, r.RemovedLines, r.IsMergeLike, r.IsRevertLike)
	}
	return hex.EncodeToString(h.Sum(nil))
}
