package telemetry

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/spotlight/components"
)

// Scoreboard polls scores on a fixed wall interval while a round is
// active, and keeps the last known value per player.
type Scoreboard struct {
	roundID  string
	interval float64
	acc      float64
	elapsed  float64
	polls    int
	last     map[string]float64
	holder   string
	changes  int
}

// NewScoreboard creates a scoreboard polling every interval seconds.
func NewScoreboard(roundID string, interval float64) *Scoreboard {
	if interval <= 0 {
		interval = 1
	}
	return &Scoreboard{roundID: roundID, interval: interval, last: make(map[string]float64)}
}

// Advance adds dt and reports whether a poll is due.
func (b *Scoreboard) Advance(dt float64) bool {
	b.elapsed += dt
	b.acc += dt
	if b.acc < b.interval {
		return false
	}
	b.acc -= b.interval
	return true
}

// Poll records a sample for every score, sorted by id.
func (b *Scoreboard) Poll(scores map[string]components.Score, remaining int) []ScoreSample {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	samples := make([]ScoreSample, 0, len(ids))
	holder := ""
	for _, id := range ids {
		sc := scores[id]
		b.last[id] = sc.Score
		if sc.Trigger {
			holder = id
		}
		samples = append(samples, ScoreSample{
			RoundID:   b.roundID,
			Elapsed:   b.elapsed,
			Remaining: remaining,
			ID:        id,
			Score:     sc.Score,
			Holder:    sc.Trigger,
		})
	}
	if holder != b.holder {
		if b.holder != "" {
			b.changes++
		}
		b.holder = holder
	}
	b.polls++
	slog.Debug("scoreboard", "round", b.roundID, "remaining", remaining, "holder", holder)
	return samples
}

// Final merges the last polled values with closing scores. Players that
// left before the end keep their last polled score.
func (b *Scoreboard) Final(scores map[string]components.Score) map[string]float64 {
	out := make(map[string]float64, len(b.last)+len(scores))
	for id, v := range b.last {
		out[id] = v
	}
	for id, sc := range scores {
		out[id] = sc.Score
	}
	return out
}

// Polls returns the number of polls taken.
func (b *Scoreboard) Polls() int { return b.polls }

// HolderChanges counts spotlight handovers seen between polls.
func (b *Scoreboard) HolderChanges() int { return b.changes }
