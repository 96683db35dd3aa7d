package timeparse

import (
	"strings"
	"time"
)

// Split separates the leading time expression of a command tail from the
// caption that follows it. It greedily extends the accepted token prefix:
// once a longer prefix fails after a shorter one succeeded, scanning stops,
// so caption words that happen to look like time expressions are left alone.
// ok is false when no prefix of any length parses.
func (p *Parser) Split(tail string, now time.Time) (time.Time, string, bool) {
	tokens := strings.Fields(tail)
	if len(tokens) == 0 {
		return time.Time{}, "", false
	}

	var (
		instant  time.Time
		accepted int
	)
	for k := 1; k <= len(tokens); k++ {
		t, ok := p.Parse(strings.Join(tokens[:k], " "), now)
		if ok {
			instant = t
			accepted = k
			continue
		}
		if accepted > 0 {
			break
		}
	}
	if accepted == 0 {
		return time.Time{}, "", false
	}

	caption := strings.TrimSpace(strings.Join(tokens[accepted:], " "))
	return instant, caption, true
}
