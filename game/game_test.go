package game

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newSession(t *testing.T, hub *realtime.Hub, clk *fakeClock, id string, host bool, room round.Room) *Session {
	t.Helper()
	s, err := NewSession(Options{
		Config:    config.Default(),
		Transport: hub,
		LocalID:   id,
		Player:    netsync.Presence{Username: id, Force: 1},
		Host:      host,
		Room:      room,
		Clock:     clk.now,
		AutoStart: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTwoPeerRound(t *testing.T) {
	hub := realtime.NewHub(4096)
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	host := newSession(t, hub, clk, "alice", true, round.Room{RoomID: "abc", RoomName: "Arena", AllowedPlayers: 2})
	guest := newSession(t, hub, clk, "bob", false, round.Room{RoomID: "abc"})

	const dt = 1.0 / 30
	var guestReceipt time.Time
	for i := 0; i < 200; i++ {
		if host.State() == round.Summary && guest.State() == round.Summary {
			break
		}
		if err := host.Update(dt, components.Keys{}); err != nil {
			t.Fatalf("host frame %d: %v", i, err)
		}
		clk.advance(1200 * time.Millisecond)
		before := guest.State()
		if err := guest.Update(dt, components.Keys{}); err != nil {
			t.Fatalf("guest frame %d: %v", i, err)
		}
		if before == round.Countdown && guest.Machine().State() >= round.Active {
			guestReceipt = clk.t
		}
		clk.advance(300 * time.Millisecond)
	}

	if host.State() != round.Summary || guest.State() != round.Summary {
		t.Fatalf("states = %v / %v, want summary", host.State(), guest.State())
	}

	// countdown derived at receipt of start
	gm := guest.Machine()
	want := 60 - int(math.Floor(float64(guestReceipt.UnixMilli()-gm.StartMS())/1000))
	if gm.CountdownAtStart() != want {
		t.Errorf("guest countdown = %d, want %d", gm.CountdownAtStart(), want)
	}
	if gm.CountdownAtStart() != 59 {
		t.Errorf("guest countdown = %d, want 59 after 1.2s latency", gm.CountdownAtStart())
	}
	if host.Machine().CountdownAtStart() != 60 {
		t.Errorf("host countdown = %d", host.Machine().CountdownAtStart())
	}

	hg, gg := host.Game(), guest.Game()
	if got := hg.Sync().Sent(netsync.EventEnd); got != 1 {
		t.Errorf("host sent end %d times", got)
	}
	if got := gg.Sync().Sent(netsync.EventEnd); got != 0 {
		t.Errorf("guest sent end %d times", got)
	}
	if got := hg.Sync().Sent(netsync.EventStart); got != 1 {
		t.Errorf("host sent start %d times", got)
	}

	// the host held the spotlight the whole round
	for name, g := range map[string]*Game{"host": hg, "guest": gg} {
		final := g.FinalScores()
		if final["alice"] <= 0 {
			t.Errorf("%s: alice final = %v", name, final["alice"])
		}
		if v, ok := final["bob"]; !ok || v != 0 {
			t.Errorf("%s: bob final = %v (%v)", name, v, ok)
		}
		if g.Store().Len() != 0 {
			t.Errorf("%s: %d entities left after teardown", name, g.Store().Len())
		}
		if g.Sync().Joined() {
			t.Errorf("%s: still joined", name)
		}
	}

	// one more frame lets the summary presence settle
	_ = host.Update(dt, components.Keys{})
	_ = guest.Update(dt, components.Keys{})
	for name, s := range map[string]*Session{"host": host, "guest": guest} {
		st := s.Standings()
		if len(st) != 2 || st[0].ID != "alice" {
			t.Errorf("%s standings = %+v", name, st)
		}
	}

	if err := host.Close(); err != nil {
		t.Error(err)
	}
	if err := guest.Close(); err != nil {
		t.Error(err)
	}
}

func TestGuestTimeoutBroadcastsEnd(t *testing.T) {
	hub := realtime.NewHub(4096)
	clk := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	host := newSession(t, hub, clk, "alice", true, round.Room{RoomID: "abc", RoomName: "Arena", AllowedPlayers: 3})
	bob := newSession(t, hub, clk, "bob", false, round.Room{RoomID: "abc"})
	carol := newSession(t, hub, clk, "carol", false, round.Room{RoomID: "abc"})

	const dt = 1.0 / 30
	for i := 0; i < 300; i++ {
		if bob.State() == round.Summary && carol.State() == round.Summary {
			break
		}
		// the host goes silent once the round is running
		if host.State() < round.Active {
			if err := host.Update(dt, components.Keys{}); err != nil {
				t.Fatalf("host frame %d: %v", i, err)
			}
		}
		for _, g := range []*Session{bob, carol} {
			if err := g.Update(dt, components.Keys{}); err != nil {
				t.Fatalf("guest frame %d: %v", i, err)
			}
		}
		clk.advance(time.Second)
	}

	if bob.State() != round.Summary || carol.State() != round.Summary {
		t.Fatalf("states = %v / %v, want summary", bob.State(), carol.State())
	}
	if got := bob.Game().Sync().Sent(netsync.EventEnd); got != 1 {
		t.Errorf("bob sent end %d times, want 1", got)
	}
	if got := carol.Game().Sync().Sent(netsync.EventEnd); got != 0 {
		t.Errorf("carol sent end %d times, want 0 after receiving bob's", got)
	}

	// the host catches up on the guest's end
	if host.State() != round.Active {
		t.Fatalf("host state = %v, want active", host.State())
	}
	if err := host.Update(dt, components.Keys{}); err != nil {
		t.Fatal(err)
	}
	if host.State() != round.Summary {
		t.Errorf("host state = %v, want summary", host.State())
	}
	if got := host.Game().Sync().Sent(netsync.EventEnd); got != 0 {
		t.Errorf("host sent end %d times, want 0", got)
	}

	for _, s := range []*Session{host, bob, carol} {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	}
}

func TestGuestBadPassword(t *testing.T) {
	hub := realtime.NewHub(256)
	clk := &fakeClock{t: time.UnixMilli(0)}
	host := newSession(t, hub, clk, "alice", true, round.Room{RoomID: "abc", Password: "pw", AllowedPlayers: 2})
	guest := newSession(t, hub, clk, "bob", false, round.Room{RoomID: "abc", Password: "nope"})

	if err := host.Update(0, components.Keys{}); err != nil {
		t.Fatal(err)
	}
	if err := guest.Update(0, components.Keys{}); !errors.Is(err, round.ErrBadPassword) {
		t.Errorf("err = %v, want ErrBadPassword", err)
	}
	if guest.State() != round.Lobby {
		t.Errorf("guest state = %v", guest.State())
	}
}

func TestGuestWaitsForListing(t *testing.T) {
	hub := realtime.NewHub(256)
	clk := &fakeClock{t: time.UnixMilli(0)}
	guest := newSession(t, hub, clk, "bob", false, round.Room{RoomID: "abc"})
	if err := guest.Update(0, components.Keys{}); err != nil {
		t.Fatal(err)
	}
	if guest.State() != round.Lobby {
		t.Fatalf("state = %v before the room exists", guest.State())
	}

	host := newSession(t, hub, clk, "alice", true, round.Room{RoomID: "abc", AllowedPlayers: 2})
	if err := host.Update(0, components.Keys{}); err != nil {
		t.Fatal(err)
	}
	if err := guest.Update(0, components.Keys{}); err != nil {
		t.Fatal(err)
	}
	if guest.State() != round.WaitingRoom || guest.Room().HostID != "alice" {
		t.Errorf("state = %v room = %+v", guest.State(), guest.Room())
	}
}

func TestArenaSetup(t *testing.T) {
	hub := realtime.NewHub(256)
	o := Options{Config: config.Default(), Transport: hub, LocalID: "alice", Host: true, Room: round.Room{RoomID: "abc"}}
	if err := o.validate(); err != nil {
		t.Fatal(err)
	}
	m := round.NewMachine(true, time.Minute, 0, nil)
	_ = m.EnterRoom()
	_ = m.Play("r1")
	g, err := newGame(&o, "r1", 2, m)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	s := g.Store()
	for _, id := range []string{store.GroundID, store.SpotlightID} {
		if s.State(id) != components.Materialized {
			t.Errorf("%s state = %v", id, s.State(id))
		}
	}
	if s.Handles(store.GroundID).Body == nil {
		t.Error("ground has no body")
	}
	if s.CirclePlane(store.GroundID) == nil {
		t.Error("fallback disc missing without a loader")
	}
	if s.Spotlight(store.SpotlightID).FollowID != "" {
		t.Error("spotlight should start unassigned")
	}

	// the host's own join arrives on the first drain
	g.Update(1.0/30, components.Keys{})
	if s.State("alice") != components.Materialized {
		t.Errorf("alice state = %v", s.State("alice"))
	}
	if s.Spotlight(store.SpotlightID).FollowID != "alice" {
		t.Error("host should hold the spotlight")
	}
}

func TestBotAim(t *testing.T) {
	hub := realtime.NewHub(1024)
	clk := &fakeClock{t: time.UnixMilli(0)}
	host := newSession(t, hub, clk, "alice", true, round.Room{RoomID: "abc", AllowedPlayers: 2})
	guest := newSession(t, hub, clk, "bob", false, round.Room{RoomID: "abc"})
	defer host.Close()
	defer guest.Close()

	for i := 0; i < 20 && host.State() != round.Active; i++ {
		if err := host.Update(0, components.Keys{}); err != nil {
			t.Fatal(err)
		}
		if err := guest.Update(0, components.Keys{}); err != nil {
			t.Fatal(err)
		}
	}
	if host.State() != round.Active {
		t.Fatalf("host state = %v", host.State())
	}

	g := host.Game()
	s := g.Store()
	alice, bob := s.Transform("alice"), s.Transform("bob")
	if alice == nil || bob == nil {
		t.Fatal("players not spawned")
	}
	alice.Position = mgl64.Vec3{0, 0.5, 0}
	bob.Position = mgl64.Vec3{1, 0.5, 0}

	tests := []struct {
		name string
		bot  string
		yaw  float64
		dash bool
	}{
		{"chaser facing holder", "bob", -math.Pi / 2, true},
		{"chaser facing away", "bob", math.Pi / 2, false},
		{"holder facing away from chaser", "alice", -math.Pi / 2, true},
		{"holder facing chaser", "alice", math.Pi / 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Transform(tt.bot).Rotation[1] = tt.yaw
			keys := Bot{ID: tt.bot}.Keys(g)
			if keys.Up != tt.dash {
				t.Errorf("Up = %v, want %v", keys.Up, tt.dash)
			}
		})
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{4 * math.Pi, 0},
	}
	for _, tt := range tests {
		if got := wrapAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
