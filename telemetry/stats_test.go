package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/spotlight/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("r1", map[string]float64{"alice": 10, "bob": 30, "carol": 20}, 4)

	if s.Winner != "bob" || s.WinnerScore != 30 {
		t.Errorf("winner = %s %v", s.Winner, s.WinnerScore)
	}
	if s.Players != 3 || s.Total != 60 || s.Transfers != 4 {
		t.Errorf("summary = %+v", s)
	}
	if math.Abs(s.Mean-20) > 1e-9 {
		t.Errorf("mean = %v, want 20", s.Mean)
	}
	// sample standard deviation of 10, 20, 30
	if math.Abs(s.StdDev-10) > 1e-9 {
		t.Errorf("std = %v, want 10", s.StdDev)
	}
	if s.P50 != 20 {
		t.Errorf("p50 = %v", s.P50)
	}
}

func TestSummarizeEmptyAndTies(t *testing.T) {
	if s := Summarize("r1", nil, 0); s.Players != 0 || s.Winner != "" {
		t.Errorf("empty summary = %+v", s)
	}
	s := Summarize("r1", map[string]float64{"bob": 5, "alice": 5}, 0)
	if s.Winner != "alice" {
		t.Errorf("tie winner = %s, want alice", s.Winner)
	}
	if s.StdDev != 0 {
		t.Errorf("std = %v", s.StdDev)
	}
}

func TestScoreboardPolling(t *testing.T) {
	b := NewScoreboard("r1", 1)
	polls := 0
	for i := 0; i < 12; i++ {
		if b.Advance(0.25) {
			polls++
		}
	}
	if polls != 3 {
		t.Errorf("polls due = %d, want 3", polls)
	}

	b.Poll(map[string]components.Score{"a": {Score: 1, Trigger: true}, "b": {}}, 59)
	samples := b.Poll(map[string]components.Score{"a": {Score: 1}, "b": {Score: 2, Trigger: true}}, 58)
	if len(samples) != 2 || samples[0].ID != "a" || !samples[1].Holder {
		t.Errorf("samples = %+v", samples)
	}
	if b.HolderChanges() != 1 {
		t.Errorf("holder changes = %d", b.HolderChanges())
	}

	// b left; its last polled score survives
	final := b.Final(map[string]components.Score{"a": {Score: 4}})
	if final["a"] != 4 || final["b"] != 2 {
		t.Errorf("final = %v", final)
	}
}

func TestOutputManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	rows := []ScoreSample{{RoundID: "r1", ID: "a", Score: 1}}
	if err := om.WriteScores(rows); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteScores(rows); err != nil {
		t.Fatal(err)
	}
	if err := om.WriteSummary(Summarize("r1", map[string]float64{"a": 1}, 0)); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "scoreboard.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("scoreboard.csv has %d lines, want header + 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "round,elapsed,remaining,id,score,holder") {
		t.Errorf("header = %q", lines[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "perf.csv")); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("got %v, %v", om, err)
	}
	// nil manager is a no-op
	if err := om.WriteScores([]ScoreSample{{ID: "a"}}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
