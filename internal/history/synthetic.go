package history

import (
	"fmt"

	"commitrogue/internal/rng"
)

var syntheticSubjects = []string{
	"add payment flow", "handle nil cursor", "update readme",
	"extract billing client", "cover retry path", "bump deps",
	"reformat handlers", "cache lookups", "wire health endpoint",
	"drop dead code",
}

var syntheticPrefixes = []string{
	"feat", "fix", "docs", "refactor", "test", "chore", "style", "perf",
}

// Synthetic generates a deterministic fake history for demos and tests.
// Every ninth record is merge-like, every thirteenth revert-like.
func Synthetic(seed int64, n int) []Record {
	stream := rng.New(seed)
	records := make([]Record, n)
	for i := range records {
		prefix := syntheticPrefixes[stream.Choose(len(syntheticPrefixes))]
		subject := syntheticSubjects[stream.Choose(len(syntheticSubjects))]
		records[i] = Record{
			Index:        i,
			Message:      fmt.Sprintf("%s: %s", prefix, subject),
			AddedLines:   stream.IntBetween(1, 400),
			RemovedLines: stream.IntBetween(0, 200),
			IsMergeLike:  i > 0 && i%9 == 0,
			IsRevertLike: i > 0 && i%13 == 0,
		}
		if records[i].IsMergeLike {
			records[i].Message = fmt.Sprintf("merge branch feature/%d", i)
		} else if records[i].IsRevertLike {
			records[i].Message = fmt.Sprintf("revert: %s", subject)
		}
	}
	return records
}
