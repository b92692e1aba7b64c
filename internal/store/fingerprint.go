package store

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Fingerprint identifies a set of classified sessions independently of
// their order. Two runs over unchanged transcripts produce the same value.
func Fingerprint(sessions []analyzer.ClassifiedSession) string {
	ordered := slices.Clone(sessions)
	slices.SortFunc(ordered, func(a, b analyzer.ClassifiedSession) int {
		return cmp.Compare(a.SessionID, b.SessionID)
	})

	d := xxhash.New()
	for i := range ordered {
		c := &ordered[i]
		for _, field := range []string{
			c.SessionID,
			string(c.Outcome),
			string(c.TaskType),
			string(c.SessionType),
			strconv.Itoa(c.ConfidenceScore),
			strconv.FormatFloat(c.DurationMinutes, 'f', -1, 64),
			strconv.Itoa(c.ToolCallCount),
		} {
			_, _ = d.WriteString(field)
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
