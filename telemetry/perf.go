package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for one loop iteration.
const (
	PhaseDrain     = "drain"
	PhaseSystems   = "systems"
	PhasePhysics   = "physics"
	PhaseRender    = "render"
	PhaseRound     = "round"
	PhaseTelemetry = "telemetry"
)

// Phases lists every phase in loop order.
var Phases = []string{PhaseDrain, PhaseSystems, PhasePhysics, PhaseRender, PhaseRound, PhaseTelemetry}

const phaseCount = 6 // len(Phases)

func phaseIndex(name string) int {
	return slices.Index(Phases, name)
}

// tickSample is one loop iteration split by phase.
type tickSample struct {
	total  time.Duration
	phases [phaseCount]time.Duration
}

// PerfCollector keeps a ring of the last N loop iterations. Phase names
// outside Phases count toward the tick total only.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      int // index into Phases, -1 when unknown or idle

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]tickSample, window), phase: -1}
}

// StartTick begins timing a new loop iteration.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.phase = -1
}

// StartPhase closes the running phase and opens phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phaseIndex(phase)
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the running phase and stores the iteration.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = -1
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// RecordFrame marks a presented frame in graphical mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	P95TickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // of the average tick
	Slowest  string             // phase with the largest share

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the samples currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration, len(Phases)),
		PhasePct:      make(map[string]float64, len(Phases)),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	var sums [phaseCount]time.Duration
	for i, sample := range p.ring[:p.count] {
		totals[i] = float64(sample.total)
		s.MaxTickDuration = max(s.MaxTickDuration, sample.total)
		for j, d := range sample.phases {
			sums[j] += d
		}
	}

	s.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	slices.Sort(totals)
	s.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}

	var best float64
	for j, name := range Phases {
		avg := sums[j] / time.Duration(p.count)
		s.PhaseAvg[name] = avg
		if s.AvgTickDuration > 0 {
			pct := float64(avg) / float64(s.AvgTickDuration) * 100
			s.PhasePct[name] = pct
			if pct > best {
				best, s.Slowest = pct, name
			}
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	if s.Slowest != "" {
		attrs = append(attrs, slog.String("slowest", s.Slowest))
	}
	for _, name := range Phases {
		if pct := s.PhasePct[name]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(name+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	Tick         int32   `csv:"tick"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	P95TickUS    int64   `csv:"p95_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	DrainPct     float64 `csv:"drain_pct"`
	SystemsPct   float64 `csv:"systems_pct"`
	PhysicsPct   float64 `csv:"physics_pct"`
	RenderPct    float64 `csv:"render_pct"`
	RoundPct     float64 `csv:"round_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for perf.csv at tick.
func (s PerfStats) ToCSV(tick int32) PerfStatsCSV {
	return PerfStatsCSV{
		Tick:         tick,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		P95TickUS:    s.P95TickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		DrainPct:     s.PhasePct[PhaseDrain],
		SystemsPct:   s.PhasePct[PhaseSystems],
		PhysicsPct:   s.PhasePct[PhasePhysics],
		RenderPct:    s.PhasePct[PhaseRender],
		RoundPct:     s.PhasePct[PhaseRound],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
