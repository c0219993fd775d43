package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"

	"github.com/pthm-cable/spotlight/assets"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/game"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/realtime"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/systems"
	"github.com/pthm-cable/spotlight/telemetry"
	"github.com/pthm-cable/spotlight/ui"
)

// peer is one session in this process, human or bot.
type peer struct {
	id      string
	session *game.Session
	bot     *game.Bot
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	relayURL := flag.String("relay", "", "Relay websocket URL (empty = config, then in-process hub)")
	userID := flag.String("user", "", "Player id (empty = random)")
	name := flag.String("name", "", "Display name (empty = player id)")
	skin := flag.String("skin", "", "Avatar model file (empty = config default)")
	force := flag.Float64("force", 1, "Knockback force applied to opponents")
	host := flag.Bool("host", false, "Host the room")
	roomID := flag.String("room", "", "Room id to host or join")
	roomName := flag.String("room-name", "", "Room display name (host only)")
	password := flag.String("password", "", "Room password")
	players := flag.Int("players", 0, "Players per round (host only, 0 = use config)")
	bots := flag.Int("bots", 0, "Bot players to run in this process")
	autopilot := flag.Bool("autopilot", false, "Let a bot drive the local player")
	headless := flag.Bool("headless", false, "Run without graphics")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = run until the summary)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	assetDir := flag.String("assets", "", "Asset directory (empty = config)")
	baseURL := flag.String("base-url", "", "Asset bucket URL (empty = config, then -assets)")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *roomID == "" {
		if !*host {
			slog.Error("-room is required to join")
			os.Exit(1)
		}
		*roomID = uuid.NewString()[:8]
	}
	localID := *userID
	if localID == "" {
		localID = uuid.NewString()
	}
	url := *relayURL
	if url == "" {
		url = cfg.Network.RelayURL
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	loader := newLoader(cfg, *assetDir, *baseURL)
	hub := realtime.NewHub(cfg.Network.InboxSize)
	defer hub.Close()
	transport := func() (realtime.Transport, error) {
		if url == "" {
			return hub, nil
		}
		return realtime.Dial(context.Background(), url, realtime.ClientConfig{
			InboxSize:    cfg.Network.InboxSize,
			WriteTimeout: time.Duration(cfg.Network.WriteTimeout * float64(time.Second)),
			ReadLimit:    cfg.Network.ReadLimit,
		})
	}

	// A virtual clock keeps offline headless rounds deterministic and fast.
	var clock round.Clock
	virtual := time.Now()
	if *headless && url == "" {
		clock = func() time.Time { return virtual }
	}

	room := round.Room{RoomID: *roomID, RoomName: *roomName, Password: *password, AllowedPlayers: *players}
	if room.RoomName == "" {
		room.RoomName = room.RoomID
	}

	var window *ui.Window
	if !*headless {
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Spotlight")
		defer rl.CloseWindow()
		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
		window = ui.NewWindow(cfg, localID)
	}

	newPeer := func(id string, p netsync.Presence, isHost bool, output *telemetry.OutputManager, bot bool) (*peer, error) {
		tr, err := transport()
		if err != nil {
			return nil, fmt.Errorf("connecting %s: %w", id, err)
		}
		opts := game.Options{
			Config:    cfg,
			Transport: tr,
			Loader:    loader,
			Output:    output,
			LocalID:   id,
			Player:    p,
			Host:      isHost,
			Room:      room,
			Clock:     clock,
			AutoStart: bot || *headless,
		}
		if window != nil && !bot {
			opts.Scene = window
		}
		s, err := game.NewSession(opts)
		if err != nil {
			return nil, err
		}
		pr := &peer{id: id, session: s}
		if bot || *autopilot {
			pr.bot = &game.Bot{ID: id}
		}
		return pr, nil
	}

	local, err := newPeer(localID, netsync.Presence{Username: *name, Skin: *skin, Force: *force}, *host, out, false)
	if err != nil {
		slog.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	peers := []*peer{local}
	for i := 0; i < *bots; i++ {
		id := fmt.Sprintf("bot-%d", i+1)
		// the first bot hosts when the local player joins an in-process room
		botHost := !*host && url == "" && i == 0
		b, err := newPeer(id, netsync.Presence{Username: id, Force: *force}, botHost, nil, true)
		if err != nil {
			slog.Error("failed to start bot", "bot", id, "error", err)
			os.Exit(1)
		}
		peers = append(peers, b)
	}
	defer func() {
		for _, p := range peers {
			if err := p.session.Close(); err != nil {
				slog.Debug("session_close_failed", "error", err)
			}
		}
	}()

	slog.Info("session_started",
		"id", localID,
		"room", room.RoomID,
		"host", *host,
		"relay", url,
		"bots", *bots,
		"headless", *headless,
	)

	dt := cfg.Physics.DT
	var ticker *time.Ticker
	if *headless && clock == nil {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	for tick := 0; ; tick++ {
		if window != nil {
			if rl.WindowShouldClose() {
				return
			}
			window.HandleInput(local.session)
			dt = float64(rl.GetFrameTime())
		}

		for _, p := range peers {
			if err := p.session.Update(dt, p.keys(window)); err != nil {
				slog.Error("session_update_failed", "id", p.id, "error", err)
				return
			}
		}

		if window != nil {
			window.Draw(local.session)
		} else if ticker != nil {
			<-ticker.C
		}
		virtual = virtual.Add(time.Duration(dt * float64(time.Second)))

		if *maxTicks > 0 && tick >= *maxTicks {
			slog.Info("max ticks reached", "tick", tick)
			return
		}
		if window == nil && done(peers) {
			slog.Info("round_complete", "standings", local.session.Standings())
			return
		}
	}
}

// keys samples the bot or the keyboard for this peer.
func (p *peer) keys(w *ui.Window) components.Keys {
	switch {
	case p.bot != nil:
		return p.bot.Keys(p.session.Game())
	case w != nil:
		return w.Keys()
	}
	return components.Keys{}
}

// done reports whether every peer has reached the summary and heard every
// final score.
func done(peers []*peer) bool {
	for _, p := range peers {
		s := p.session
		if s.State() != round.Summary || len(s.Standings()) < s.Room().AllowedPlayers {
			return false
		}
	}
	return true
}

// newLoader returns a model cache over the configured bucket, or nil when
// no asset source is set.
func newLoader(cfg *config.Config, dir, baseURL string) systems.ModelLoader {
	if baseURL == "" {
		baseURL = cfg.Assets.BaseURL
	}
	if baseURL != "" {
		timeout := time.Duration(cfg.Assets.Timeout * float64(time.Second))
		return assets.NewCache(assets.NewHTTPFetcher(baseURL, timeout))
	}
	if dir == "" {
		dir = cfg.Assets.Dir
	}
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("asset directory unavailable, using primitives", "dir", dir, "error", err)
		return nil
	}
	return assets.NewCache(assets.DirFetcher{Root: dir})
}
