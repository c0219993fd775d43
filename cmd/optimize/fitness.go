package main

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/game"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/telemetry"
)

// FitnessEvaluator runs headless bot rounds and scores how lively they are.
type FitnessEvaluator struct {
	params     *ParamVector
	scenarios  []int // player counts
	baseConfig *config.Config
	target     float64 // spotlight transfers per minute
	maxTicks   int

	mu         sync.Mutex
	lastResult evalResult
}

// evalResult aggregates the scenario summaries of one evaluation.
type evalResult struct {
	TransfersPerMin float64
	WinnerShare     float64
	Unfinished      int
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, scenarios []int, target float64, baseCfg *config.Config) *FitnessEvaluator {
	dt := baseCfg.Physics.DT
	// lobby, countdown and the end grace fit comfortably in twice the round
	maxTicks := int(2*(float64(baseCfg.Round.DurationSec)+baseCfg.Round.EndGraceSec)/dt) + 100
	return &FitnessEvaluator{
		params:     params,
		scenarios:  scenarios,
		baseConfig: baseCfg,
		target:     target,
		maxTicks:   maxTicks,
	}
}

// LastResult returns the aggregate from the most recent evaluation.
func (fe *FitnessEvaluator) LastResult() evalResult {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastResult
}

// scenarioResult holds the outcome of one round.
type scenarioResult struct {
	summary  telemetry.RoundSummary
	players  int
	finished bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
// A round scores well when the spotlight changes hands near the target rate
// and no single player dominates the clock.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]scenarioResult, len(fe.scenarios))
	var wg sync.WaitGroup

	for i, n := range fe.scenarios {
		wg.Add(1)
		go func(idx, players int) {
			defer wg.Done()
			cfg := fe.copyConfig()
			fe.params.ApplyToConfig(cfg, x)
			results[idx] = fe.runRound(cfg, players, idx)
		}(i, n)
	}
	wg.Wait()

	var total float64
	var agg evalResult
	for _, r := range results {
		total += fe.computeFitness(r)
		rate, share := fe.rates(r)
		agg.TransfersPerMin += rate
		agg.WinnerShare += share
		if !r.finished {
			agg.Unfinished++
		}
	}
	n := float64(len(results))
	agg.TransfersPerMin /= n
	agg.WinnerShare /= n

	fe.mu.Lock()
	fe.lastResult = agg
	fe.mu.Unlock()

	return total / n
}

// runRound plays one round between bots on a private hub with a virtual
// clock, stepping every session until all of them reach the summary.
func (fe *FitnessEvaluator) runRound(cfg *config.Config, players, idx int) scenarioResult {
	hub := realtime.NewHub(cfg.Network.InboxSize)
	defer hub.Close()

	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	room := round.Room{
		RoomID:         fmt.Sprintf("tune-%d", idx),
		RoomName:       "tune",
		AllowedPlayers: players,
	}

	sessions := make([]*game.Session, 0, players)
	bots := make([]game.Bot, 0, players)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()
	for i := 0; i < players; i++ {
		id := fmt.Sprintf("bot-%d", i+1)
		s, err := game.NewSession(game.Options{
			Config:    cfg,
			Transport: hub,
			LocalID:   id,
			Player:    netsync.Presence{Username: id, Force: 1},
			Host:      i == 0,
			Room:      room,
			Clock:     clock,
			AutoStart: true,
		})
		if err != nil {
			return scenarioResult{players: players}
		}
		sessions = append(sessions, s)
		bots = append(bots, game.Bot{ID: id})
	}

	dt := cfg.Physics.DT
	step := time.Duration(dt * float64(time.Second))
	for tick := 0; tick < fe.maxTicks; tick++ {
		for i, s := range sessions {
			if err := s.Update(dt, bots[i].Keys(s.Game())); err != nil {
				return scenarioResult{players: players}
			}
		}
		now = now.Add(step)
		if allDone(sessions, players) {
			return scenarioResult{summary: sessions[0].Game().Summary(), players: players, finished: true}
		}
	}
	return scenarioResult{players: players}
}

// allDone reports whether every session has reached the summary with every
// final score in.
func allDone(sessions []*game.Session, players int) bool {
	for _, s := range sessions {
		if s.State() != round.Summary || len(s.Standings()) < players {
			return false
		}
	}
	return true
}

// rates returns spotlight transfers per minute and the winner's share of
// the total score.
func (fe *FitnessEvaluator) rates(r scenarioResult) (float64, float64) {
	if !r.finished {
		return 0, 1
	}
	minutes := float64(fe.baseConfig.Round.DurationSec) / 60
	rate := float64(r.summary.Transfers) / minutes
	share := 1.0
	if r.summary.Total > 0 {
		share = r.summary.WinnerScore / r.summary.Total
	}
	return rate, share
}

// unfinishedPenalty is the fitness of a round that never reached the summary.
const unfinishedPenalty = 10.0

// computeFitness calculates the scalar fitness (lower = better).
// Formula: ((rate - target) / target)^2 + (share - 1/n)^2
func (fe *FitnessEvaluator) computeFitness(r scenarioResult) float64 {
	if !r.finished || r.players == 0 {
		return unfinishedPenalty
	}
	rate, share := fe.rates(r)
	rateErr := (rate - fe.target) / fe.target
	shareErr := share - 1/float64(r.players)
	return rateErr*rateErr + shareErr*shareErr
}

// copyConfig creates a copy of the base config. Config holds no references,
// so a value copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// clampShare keeps a share inside [0, 1] for display.
func clampShare(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
