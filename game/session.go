package game

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/round"
)

// Session walks one peer from the lobby through a round to the summary.
// It is driven by Update from the loop goroutine.
type Session struct {
	opts    Options
	machine *round.Machine

	dir     *round.Directory
	wait    *round.Waiting
	room    round.Room
	game    *Game
	summary *round.SummaryRoom

	startRequested bool
	last           *Game
}

// NewSession validates options and starts in the lobby.
func NewSession(opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config
	duration := time.Duration(cfg.Round.DurationSec) * time.Second
	grace := time.Duration(cfg.Round.EndGraceSec * float64(time.Second))
	return &Session{
		opts:    opts,
		machine: round.NewMachine(opts.Host, duration, grace, opts.Clock),
		dir:     round.NewDirectory(opts.Transport, opts.LocalID),
	}, nil
}

// State returns the round phase.
func (s *Session) State() round.State { return s.machine.State() }

// Machine returns the round state machine.
func (s *Session) Machine() *round.Machine { return s.machine }

// Game returns the running round, or the last one once in Summary.
func (s *Session) Game() *Game {
	if s.game != nil {
		return s.game
	}
	return s.last
}

// Room returns the joined room.
func (s *Session) Room() round.Room { return s.room }

// RequestStart asks the host to send play even before AutoStart would.
// It still waits for a full room.
func (s *Session) RequestStart() { s.startRequested = true }

// WaitingCount returns the number of players in the waiting room.
func (s *Session) WaitingCount() int {
	if s.wait == nil {
		return 0
	}
	return s.wait.Count()
}

// Standings returns the summary table once in Summary.
func (s *Session) Standings() []round.Standing {
	if s.summary == nil {
		return nil
	}
	return s.summary.Standings()
}

// Update advances the session by one frame.
func (s *Session) Update(dt float64, keys components.Keys) error {
	switch s.machine.State() {
	case round.Lobby:
		return s.lobby()
	case round.WaitingRoom:
		return s.waiting()
	case round.Countdown, round.Active:
		s.game.Update(dt, keys)
		if s.machine.State() == round.Summary {
			return s.enterSummary()
		}
	case round.Summary:
		if s.summary != nil {
			s.summary.Drain()
		}
	}
	return nil
}

// lobby lists or finds the room and enters its waiting channel.
func (s *Session) lobby() error {
	if err := s.dir.Open(); err != nil {
		return err
	}
	s.dir.Drain()

	room := s.opts.Room
	if s.opts.Host {
		room.HostID = s.opts.LocalID
		room.CurrentPlayers = 1
		if err := s.dir.Host(room); err != nil {
			return err
		}
	} else {
		found, err := s.dir.Find(room.RoomID, room.Password)
		if errors.Is(err, round.ErrNoRoom) {
			return nil // not listed yet
		}
		if err != nil {
			return err
		}
		room = found
	}

	s.wait = round.NewWaiting(s.opts.Transport, room.RoomID, s.opts.LocalID)
	if err := s.wait.Enter(s.opts.Player); err != nil {
		return err
	}
	s.room = room
	return s.machine.EnterRoom()
}

// waiting keeps the listing current and moves to the game on play.
func (s *Session) waiting() error {
	roundID, ok := s.wait.Drain()
	if s.opts.Host {
		n := s.wait.Count()
		if err := s.dir.UpdatePlayers(n); err != nil {
			slog.Debug("room_update_failed", "error", err)
		}
		if !ok && n >= s.room.AllowedPlayers && (s.opts.AutoStart || s.startRequested) {
			id, err := s.wait.Play()
			if err != nil {
				return err
			}
			roundID, ok = id, true
		}
	}
	if !ok {
		return nil
	}
	return s.begin(roundID)
}

// begin leaves the waiting room and the listing and joins the round.
func (s *Session) begin(roundID string) error {
	if err := s.machine.Play(roundID); err != nil {
		return err
	}
	allowed := s.room.AllowedPlayers
	if err := s.wait.Leave(); err != nil {
		slog.Debug("waiting_leave_failed", "error", err)
	}
	if err := s.dir.Close(); err != nil {
		slog.Debug("directory_close_failed", "error", err)
	}
	g, err := newGame(&s.opts, roundID, allowed, s.machine)
	if err != nil {
		return err
	}
	s.game = g
	return nil
}

// enterSummary publishes this peer's final score on the summary channel.
func (s *Session) enterSummary() error {
	g := s.game
	s.last, s.game = g, nil
	score := round.FinalScore{Username: s.opts.Player.Username, Score: g.FinalScores()[s.opts.LocalID]}
	sum, err := round.JoinSummary(s.opts.Transport, g.RoundID(), s.opts.LocalID, score)
	if err != nil {
		return err
	}
	s.summary = sum
	return nil
}

// Close leaves every channel still held.
func (s *Session) Close() error {
	if s.game != nil {
		s.game.Close()
		s.game = nil
	}
	if s.summary != nil {
		if err := s.summary.Close(); err != nil {
			slog.Debug("summary_close_failed", "error", err)
		}
	}
	if s.wait != nil {
		if err := s.wait.Leave(); err != nil {
			slog.Debug("waiting_leave_failed", "error", err)
		}
	}
	return s.dir.Close()
}
