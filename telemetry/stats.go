package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ScoreSample is one player's score at a scoreboard poll.
type ScoreSample struct {
	RoundID   string  `csv:"round"`
	Elapsed   float64 `csv:"elapsed"`
	Remaining int     `csv:"remaining"`
	ID        string  `csv:"id"`
	Score     float64 `csv:"score"`
	Holder    bool    `csv:"holder"`
}

// RoundSummary aggregates final scores of a round.
type RoundSummary struct {
	RoundID     string  `csv:"round"`
	Players     int     `csv:"players"`
	Winner      string  `csv:"winner"`
	WinnerScore float64 `csv:"winner_score"`
	Total       float64 `csv:"total"`
	Mean        float64 `csv:"mean"`
	StdDev      float64 `csv:"std"`
	P50         float64 `csv:"p50"`
	Transfers   int     `csv:"transfers"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summarize computes the round summary from final scores keyed by id.
// Ties go to the lowest id.
func Summarize(roundID string, scores map[string]float64, transfers int) RoundSummary {
	s := RoundSummary{RoundID: roundID, Players: len(scores), Transfers: transfers}
	if len(scores) == 0 {
		return s
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		v := scores[id]
		values = append(values, v)
		s.Total += v
		if s.Winner == "" || v > s.WinnerScore {
			s.Winner, s.WinnerScore = id, v
		}
	}

	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	sort.Float64s(values)
	s.P50 = Percentile(values, 0.5)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s RoundSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("round", s.RoundID),
		slog.Int("players", s.Players),
		slog.String("winner", s.Winner),
		slog.Float64("winner_score", s.WinnerScore),
		slog.Float64("total", s.Total),
		slog.Float64("mean", s.Mean),
		slog.Float64("std", s.StdDev),
		slog.Float64("p50", s.P50),
		slog.Int("transfers", s.Transfers),
	)
}
