// Package round drives a match from the lobby to the score summary.
package round

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var (
	// ErrTransition is returned when a state change is not allowed from
	// the current state.
	ErrTransition = errors.New("round: invalid transition")
	// ErrRoomFull is returned when joining a room at capacity.
	ErrRoomFull = errors.New("round: room is full")
	// ErrBadPassword is returned when a room password does not match.
	ErrBadPassword = errors.New("round: wrong password")
	// ErrNoRoom is returned when a room id is not listed.
	ErrNoRoom = errors.New("round: no such room")
)

// State is a round phase.
type State uint8

const (
	Lobby State = iota
	WaitingRoom
	Countdown
	Active
	Ending
	Summary
)

var stateNames = [...]string{"lobby", "waiting_room", "countdown", "active", "ending", "summary"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// next lists the states reachable from each state.
var next = map[State][]State{
	Lobby:       {WaitingRoom},
	WaitingRoom: {Countdown, Lobby},
	Countdown:   {Active},
	Active:      {Ending},
	Ending:      {Summary},
	Summary:     {Lobby},
}

// Clock returns the current wall time.
type Clock func() time.Time

// Machine tracks one peer's round phase and countdown.
type Machine struct {
	state    State
	host     bool
	duration time.Duration
	grace    time.Duration
	now      Clock

	roundID   string
	startMS   int64
	atReceipt int
}

// NewMachine creates a machine in Lobby. now may be nil for time.Now.
func NewMachine(host bool, duration, grace time.Duration, now Clock) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{host: host, duration: duration, grace: grace, now: now}
}

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Host reports whether this peer runs the round timer.
func (m *Machine) Host() bool { return m.host }

// RoundID returns the id received with play.
func (m *Machine) RoundID() string { return m.roundID }

// StartMS returns the host timestamp of the round start.
func (m *Machine) StartMS() int64 { return m.startMS }

// CountdownAtStart returns the countdown computed when start arrived.
func (m *Machine) CountdownAtStart() int { return m.atReceipt }

// NowMS returns the machine clock in Unix milliseconds.
func (m *Machine) NowMS() int64 { return m.now().UnixMilli() }

func (m *Machine) to(s State) error {
	for _, ok := range next[m.state] {
		if ok == s {
			slog.Info("round_state", "from", m.state.String(), "to", s.String())
			m.state = s
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrTransition, m.state, s)
}

// EnterRoom moves from Lobby into a waiting room.
func (m *Machine) EnterRoom() error { return m.to(WaitingRoom) }

// LeaveRoom returns to the lobby.
func (m *Machine) LeaveRoom() error { return m.to(Lobby) }

// Play records the round id and waits for the start stamp.
func (m *Machine) Play(roundID string) error {
	if err := m.to(Countdown); err != nil {
		return err
	}
	m.roundID = roundID
	return nil
}

// Start activates the round from a host timestamp and returns the
// countdown derived at receipt.
func (m *Machine) Start(hostMS int64) (int, error) {
	if err := m.to(Active); err != nil {
		return 0, err
	}
	m.startMS = hostMS
	m.atReceipt = m.Remaining()
	slog.Info("round_started", "round", m.roundID, "start_ms", hostMS, "countdown", m.atReceipt)
	return m.atReceipt, nil
}

// Remaining returns whole seconds left: duration - floor(elapsed).
// It goes negative once the round is overdue.
func (m *Machine) Remaining() int {
	if m.state < Active {
		return int(m.duration / time.Second)
	}
	elapsed := float64(m.NowMS()-m.startMS) / 1000
	return int(m.duration/time.Second) - int(math.Floor(elapsed))
}

// Expired reports whether this peer should end the round on its own.
// The host ends at zero; others wait out the grace period for the host's
// end first.
func (m *Machine) Expired() bool {
	if m.state != Active {
		return false
	}
	limit := 0
	if !m.host {
		limit = -int(math.Ceil(m.grace.Seconds()))
	}
	return m.Remaining() <= limit
}

// End tears the round down once: teardown runs between Ending and
// Summary. It reports whether this call did the work.
func (m *Machine) End(teardown func()) bool {
	if m.state != Active {
		return false
	}
	m.state = Ending
	slog.Info("round_state", "from", Active.String(), "to", Ending.String())
	if teardown != nil {
		teardown()
	}
	m.state = Summary
	slog.Info("round_state", "from", Ending.String(), "to", Summary.String())
	return true
}

// Reset returns from Summary to the lobby for another round.
func (m *Machine) Reset() error {
	if err := m.to(Lobby); err != nil {
		return err
	}
	m.roundID = ""
	m.startMS = 0
	m.atReceipt = 0
	return nil
}
