// Package game wires a round together: the store, physics, materializer,
// tick, network sync and round machine all live in one Game created when
// a round starts and discarded when it ends.
package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/camera"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/physics"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/store"
	"github.com/pthm-cable/spotlight/systems"
	"github.com/pthm-cable/spotlight/telemetry"
)

// Game is the context of one round.
type Game struct {
	cfg     *config.Config
	roundID string
	host    bool
	allowed int
	loader  systems.ModelLoader

	ctx    context.Context
	cancel context.CancelFunc

	bodies  *physics.World
	scene   render.Scene
	cam     *camera.Camera
	store   *store.Store
	mat     *systems.Materializer
	tick    *systems.Tick
	sync    *netsync.Sync
	machine *round.Machine

	perf  *telemetry.PerfCollector
	board *telemetry.Scoreboard
	out   *telemetry.OutputManager

	ticks     int32
	startSent bool
	final     map[string]float64
	summary   telemetry.RoundSummary
}

// newGame builds the round context, sets up the arena and joins the game
// channel. machine must be in Countdown.
func newGame(o *Options, roundID string, allowed int, machine *round.Machine) (*Game, error) {
	cfg := o.Config
	scene := o.Scene
	if scene == nil {
		scene = render.NewGraph()
	}
	bodies := physics.NewWorld(mgl64.Vec3{0, cfg.Physics.Gravity, 0}, cfg.Physics.DT)
	bodies.MaxSpeed = cfg.Physics.MaxSpeed
	s := store.New(bodies, scene)
	cam := camera.New(cfg.Derived.ScreenW, cfg.Derived.ScreenH, cfg.Camera.FovY, cfg.Camera.Near, cfg.Camera.Far)

	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		cfg:     cfg,
		roundID: roundID,
		host:    o.Host,
		allowed: allowed,
		loader:  o.Loader,
		ctx:     ctx,
		cancel:  cancel,
		bodies:  bodies,
		scene:   scene,
		cam:     cam,
		store:   s,
		machine: machine,
		perf:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		board:   telemetry.NewScoreboard(roundID, cfg.Telemetry.ScoreboardInterval),
		out:     o.Output,
	}
	g.mat = systems.NewMaterializer(s, o.Loader, cfg)

	ch := o.Transport.Channel(round.GameTopic(roundID), o.LocalID)
	g.sync = netsync.New(ch, s, cfg, g.mat)
	g.sync.SetListener(g)

	g.tick = systems.NewTick(s, cam, cfg, g.sync)
	g.tick.SetPerf(g.perf)

	if err := g.setupArena(); err != nil {
		cancel()
		return nil, err
	}
	if err := g.sync.Join(o.Player); err != nil {
		cancel()
		return nil, err
	}
	slog.Info("round_created", "round", roundID, "host", o.Host, "allowed", allowed)
	return g, nil
}

// Update runs one loop iteration: drain the inbox, finish materialization,
// tick while the round is active, then round bookkeeping.
func (g *Game) Update(dt float64, keys components.Keys) {
	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseDrain)
	g.sync.Drain(g.ctx)
	g.mat.Poll()
	g.tick.SetStopped(g.mat.Pending() > 0)

	switch g.machine.State() {
	case round.Countdown:
		g.perf.StartPhase(telemetry.PhaseRound)
		g.maybeStart()
	case round.Active:
		g.tick.Update(dt, keys)
		g.perf.StartPhase(telemetry.PhaseTelemetry)
		g.pollScores(dt)
		g.perf.StartPhase(telemetry.PhaseRound)
		if g.machine.Expired() {
			// a guest only gets here when the host's end never arrived
			g.sync.Send(netsync.EventEnd, nil)
			g.finish()
		}
	}

	g.perf.EndTick()
	g.ticks++
	g.flushPerf()
}

// maybeStart stamps the round start once every allowed player is present.
func (g *Game) maybeStart() {
	if !g.host || g.startSent || len(g.sync.Peers()) < g.allowed {
		return
	}
	ms := g.machine.NowMS()
	g.sync.Send(netsync.EventStart, netsync.Start{Time: ms})
	g.startSent = true
	g.OnStart(ms)
}

// OnStart activates the round from the host's stamp.
func (g *Game) OnStart(hostMS int64) {
	if g.machine.State() != round.Countdown {
		return
	}
	if _, err := g.machine.Start(hostMS); err != nil {
		slog.Warn("start_rejected", "error", err)
	}
}

// OnEnd ends the round on the host's word.
func (g *Game) OnEnd() {
	g.finish()
}

// OnPlay is ignored once a round is running.
func (g *Game) OnPlay(string) {}

// finish runs the round teardown at most once: leave the channel, then
// record final scores and release the entities.
func (g *Game) finish() {
	g.machine.End(func() {
		if err := g.sync.Leave(); err != nil {
			slog.Debug("leave_failed", "round", g.roundID, "error", err)
		}
		g.final = g.board.Final(g.playerScores())
		g.summary = telemetry.Summarize(g.roundID, g.final, g.board.HolderChanges())
		slog.Info("round_ended", "summary", g.summary)
		if err := g.out.WriteSummary(g.summary); err != nil {
			slog.Error("failed to write summary", "error", err)
		}
		for _, id := range g.store.IDs() {
			g.mat.Forget(id)
			g.store.Remove(id)
		}
	})
}

// playerScores returns the score of every player entity.
func (g *Game) playerScores() map[string]components.Score {
	scores := g.store.Scores()
	for id := range scores {
		if g.store.TypeName(id) != netsync.TypePlayer {
			delete(scores, id)
		}
	}
	return scores
}

// Close abandons the round without the summary.
func (g *Game) Close() {
	if err := g.sync.Leave(); err != nil {
		slog.Debug("leave_failed", "round", g.roundID, "error", err)
	}
	g.cancel()
}

// RoundID returns the round identifier.
func (g *Game) RoundID() string { return g.roundID }

// Store returns the entity store.
func (g *Game) Store() *store.Store { return g.store }

// Sync returns the network sync.
func (g *Game) Sync() *netsync.Sync { return g.sync }

// Camera returns the view camera.
func (g *Game) Camera() *camera.Camera { return g.cam }

// Scene returns the render scene.
func (g *Game) Scene() render.Scene { return g.scene }

// Ticks returns the number of loop iterations run.
func (g *Game) Ticks() int32 { return g.ticks }

// FinalScores returns the last known score per player once the round
// has ended.
func (g *Game) FinalScores() map[string]float64 { return g.final }

// Summary returns the round summary once the round has ended.
func (g *Game) Summary() telemetry.RoundSummary { return g.summary }

// Remaining returns the countdown in whole seconds.
func (g *Game) Remaining() int { return g.machine.Remaining() }

// Elapsed converts the tick count to round time.
func (g *Game) Elapsed() time.Duration {
	return time.Duration(float64(g.tick.Ticks()) * g.cfg.Physics.DT * float64(time.Second))
}

// Perf returns the loop timing collector.
func (g *Game) Perf() *telemetry.PerfCollector { return g.perf }
