package game

import "log/slog"

// pollScores samples the scoreboard once per interval while active.
func (g *Game) pollScores(dt float64) {
	if !g.board.Advance(dt) {
		return
	}
	samples := g.board.Poll(g.playerScores(), g.machine.Remaining())
	if err := g.out.WriteScores(samples); err != nil {
		slog.Error("failed to write scoreboard", "error", err)
	}
}

// flushPerf logs and records perf stats once per window.
func (g *Game) flushPerf() {
	window := int32(g.cfg.Telemetry.PerfWindow)
	if window <= 0 || g.ticks%window != 0 {
		return
	}
	stats := g.perf.Stats()
	slog.Debug("perf", "round", g.roundID, "stats", stats)
	if err := g.out.WritePerf(stats, g.ticks); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
