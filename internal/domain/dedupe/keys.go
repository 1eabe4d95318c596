package dedupe

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Canonical returns the subject ids sorted and without duplicates or blanks.
// The input is left untouched.
func Canonical(subjects []string) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SameSet reports whether a and b hold the same subjects in any order.
func SameSet(a, b []string) bool {
	return slices.Equal(Canonical(a), Canonical(b))
}

// Bucket returns the index of the window-sized slot containing at.
func Bucket(at time.Time, window time.Duration) int64 {
	if window <= 0 {
		return at.UnixNano()
	}
	return at.UnixNano() / int64(window)
}

// Key builds the uniqueness claim for one interaction: its kind, the actor,
// the canonical subject set and the time bucket it falls in.
func Key(kind, actor string, subjects []string, at time.Time, window time.Duration) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('|')
	b.WriteString(actor)
	b.WriteByte('|')
	b.WriteString(strings.Join(Canonical(subjects), ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(Bucket(at, window), 10))
	return b.String()
}
