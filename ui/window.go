package ui

import (
	"sort"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/camera"
	"github.com/pthm-cable/spotlight/components"
	"github.com/pthm-cable/spotlight/config"
	"github.com/pthm-cable/spotlight/game"
	"github.com/pthm-cable/spotlight/inspector"
	"github.com/pthm-cable/spotlight/netsync"
	"github.com/pthm-cable/spotlight/render"
	"github.com/pthm-cable/spotlight/round"
	"github.com/pthm-cable/spotlight/store"
)

var (
	backgroundColor = rl.Color{R: 14, G: 16, B: 22, A: 255}
	hitboxColor     = rl.Color{R: 80, G: 255, B: 120, A: 255}
)

// modelExtents stands in for a model's mesh until GPU meshes are uploaded.
var modelExtents = mgl64.Vec3{0.25, 0.3, 0.25}

// Window draws the scene graph with raylib and owns the HUD panels.
// It is a render.Scene: the store adds and removes nodes while Draw reads them.
type Window struct {
	*render.Graph

	cfg     *config.Config
	localID string
	cam     *camera.Camera

	screenWidth  float32
	screenHeight float32

	hud       *HUD
	waiting   *WaitingPanel
	standings *StandingsPanel
	perf      *PerfPanel
	controls  *ControlsPanel
	overlays  *OverlayRegistry
	inspector *inspector.Inspector
}

// NewWindow creates the window state. rl.InitWindow must already have run.
func NewWindow(cfg *config.Config, localID string) *Window {
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	return &Window{
		Graph:        render.NewGraph(),
		cfg:          cfg,
		localID:      localID,
		screenWidth:  w,
		screenHeight: h,
		hud:          NewHUD(),
		waiting:      NewWaitingPanel(),
		standings:    NewStandingsPanel(),
		perf:         NewPerfPanel(),
		controls:     NewControlsPanel(260),
		overlays:     NewOverlayRegistry(),
		inspector:    inspector.NewInspector(int32(w), int32(h)),
	}
}

// Render records the camera the next Draw uses.
func (w *Window) Render(cam *camera.Camera) {
	w.cam = cam
	w.Graph.Render(cam)
}

// Keys samples the arrow keys.
func (w *Window) Keys() components.Keys {
	return components.Keys{
		Left:  rl.IsKeyDown(rl.KeyLeft),
		Right: rl.IsKeyDown(rl.KeyRight),
		Up:    rl.IsKeyDown(rl.KeyUp),
		Down:  rl.IsKeyDown(rl.KeyDown),
	}
}

// HandleInput processes window and panel keys.
func (w *Window) HandleInput(s *game.Session) {
	w.handleResize(s)

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeyH) {
		w.controls.Toggle()
	}
	w.overlays.HandleInput()

	if g := s.Game(); g != nil && w.overlays.IsEnabled(OverlayInspector) {
		w.inspector.HandleInput(g.Store().IDs())
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (w *Window) handleResize(s *game.Session) {
	if !rl.IsWindowResized() {
		return
	}
	width := float32(rl.GetScreenWidth())
	height := float32(rl.GetScreenHeight())
	if width == w.screenWidth && height == w.screenHeight {
		return
	}
	w.screenWidth = width
	w.screenHeight = height

	if g := s.Game(); g != nil {
		g.Camera().Resize(float64(width), float64(height))
	}
	w.inspector.Resize(int32(width), int32(height))
}

// Draw renders one frame for the session's current phase.
func (w *Window) Draw(s *game.Session) {
	sw, sh := int32(w.screenWidth), int32(w.screenHeight)
	g := s.Game()
	state := s.State()

	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	inRound := g != nil && (state == round.Countdown || state == round.Active)
	if inRound && w.cam != nil {
		w.drawWorld(g.Store())
		w.drawLabels()
	}

	data := HUDData{
		Title:        "Spotlight",
		State:        state.String(),
		Room:         s.Room().RoomName,
		Remaining:    -1,
		FPS:          rl.GetFPS(),
		ScreenWidth:  sw,
		ScreenHeight: sh,
	}
	if data.Room == "" {
		data.Room = s.Room().RoomID
	}
	if g != nil {
		data.Tick = g.Ticks()
	}
	if state == round.Active {
		data.Remaining = g.Remaining()
		if d := w.cfg.Round.DurationSec; d > 0 {
			data.Progress = float32(data.Remaining) / float32(d)
		}
	}
	w.hud.Draw(data)

	switch state {
	case round.WaitingRoom:
		room := s.Room()
		wd := WaitingData{
			Room:    data.Room,
			Players: s.WaitingCount(),
			Allowed: room.AllowedPlayers,
			Host:    room.HostID == w.localID,
		}
		if w.waiting.Draw(wd, sw, sh) {
			s.RequestStart()
		}
	case round.Countdown:
		w.hud.renderer.DrawCentered("Waiting for every player to arrive", sh/2, 20, sw, rl.LightGray)
	case round.Summary:
		w.standings.Draw(w.standingLines(s.Standings()), sw, sh)
	}

	if inRound {
		if w.overlays.IsEnabled(OverlayScores) {
			w.hud.DrawScores(w.scoreLines(g.Store()), sw, sh)
		}
		if w.overlays.IsEnabled(OverlayInspector) {
			w.inspector.Draw(g.Store())
		}
	}
	if g != nil && w.overlays.IsEnabled(OverlayPerf) {
		w.perf.Draw(g.Perf().Stats(), sw, sh)
	}
	w.controls.Draw(w.overlays, sw, sh)
	w.hud.DrawControls(sw, sh, "[Arrows] Move  [H] Help")

	rl.EndDrawing()

	if g != nil {
		g.Perf().RecordFrame()
	}
}

// drawWorld draws every node plus the debug overlays in 3D.
func (w *Window) drawWorld(s *store.Store) {
	rl.BeginMode3D(w.camera3D())

	if w.overlays.IsEnabled(OverlayGrid) {
		rl.DrawGrid(20, 0.5)
	}
	for _, n := range w.Nodes() {
		w.drawNode(n, mgl64.Vec3{})
	}
	// players whose model failed to load have no node
	for _, id := range s.IDs() {
		if s.TypeName(id) != netsync.TypePlayer || s.Handles(id).Node != nil {
			continue
		}
		if tr := s.Transform(id); tr != nil {
			stand := render.NewNode(id, render.NodeModel)
			stand.Position = tr.Position
			stand.Rotation = mgl64.AnglesToQuat(tr.Rotation.X(), tr.Rotation.Y(), tr.Rotation.Z(), mgl64.XYZ)
			w.drawNode(stand, mgl64.Vec3{})
		}
	}
	if w.overlays.IsEnabled(OverlayHitboxes) {
		for _, id := range s.IDs() {
			b := s.Handles(id).Body
			if b == nil {
				continue
			}
			lo, hi := b.Bounds()
			c := lo.Add(hi).Mul(0.5)
			size := hi.Sub(lo)
			rl.DrawCubeWires(vec3(c), float32(size.X()), float32(size.Y()), float32(size.Z()), hitboxColor)
		}
	}
	if w.overlays.IsEnabled(OverlayInspector) {
		w.inspector.DrawSelectionHighlight(s)
	}

	rl.EndMode3D()
}

// drawNode draws n offset by its parent's position, then its children.
func (w *Window) drawNode(n *render.Node, parent mgl64.Vec3) {
	pos := parent.Add(n.Position)
	color := toColor(n.Color)

	switch n.Kind {
	case render.NodeModel:
		if n.Name == store.GroundID {
			hb := w.cfg.Arena.GroundHitbox
			rl.DrawCube(vec3(pos), float32(hb.Width), float32(hb.Height), float32(hb.Depth), rl.DarkGray)
			break
		}
		ext := modelExtents
		center := pos.Add(mgl64.Vec3{0, ext.Y() / 2, 0})
		rl.DrawCube(vec3(center), float32(ext.X()), float32(ext.Y()), float32(ext.Z()), color)
		nose := center.Add(n.Rotation.Rotate(mgl64.Vec3{0, 0, ext.Z()}))
		rl.DrawSphere(vec3(nose), float32(ext.X()/5), rl.Black)
	case render.NodeBox:
		rl.DrawCube(vec3(pos), float32(n.Size.X()), float32(n.Size.Y()), float32(n.Size.Z()), color)
	case render.NodeDisc:
		slices := int32(n.Size.Z())
		if slices < 3 {
			slices = 32
		}
		rl.DrawCylinder(vec3(pos), float32(n.Size.X()), float32(n.Size.X()), 0.02, slices, color)
	case render.NodeLight:
		rl.DrawSphere(vec3(pos), 0.05, color)
	case render.NodeCone:
		if w.overlays.IsEnabled(OverlaySpotCone) {
			h := n.Size.Y()
			base := pos.Sub(mgl64.Vec3{0, h, 0})
			rl.DrawCylinder(vec3(base), 0.02, float32(n.Size.X()), float32(h), 24, withAlpha(color, 70))
		}
	case render.NodeWire:
		rl.DrawCubeWires(vec3(pos), float32(n.Size.X()), float32(n.Size.Y()), float32(n.Size.Z()), hitboxColor)
	}

	for _, c := range n.Children {
		w.drawNode(c, pos)
	}
}

// drawLabels draws the projected name labels in screen space.
func (w *Window) drawLabels() {
	if !w.overlays.IsEnabled(OverlayLabels) {
		return
	}
	clicked := rl.IsMouseButtonPressed(rl.MouseButtonLeft)
	mouse := rl.GetMousePosition()
	for _, l := range w.Labels() {
		if !l.Visible {
			continue
		}
		size := int32(l.Size)
		color := rl.White
		if l.Color != 0 {
			color = toColor(l.Color)
		}
		x, y := int32(l.X), int32(l.Y)
		rl.DrawText(l.Text, x, y, size, color)

		if clicked && l.OnClick != nil {
			rect := rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(rl.MeasureText(l.Text, size)), Height: float32(size)}
			if rl.CheckCollisionPointRec(mouse, rect) {
				l.OnClick()
			}
		}
	}
}

// scoreLines lists player scores, highest first.
func (w *Window) scoreLines(s *store.Store) []ScoreLine {
	holder := ""
	if spot := s.Spotlight(store.SpotlightID); spot != nil {
		holder = spot.FollowID
	}
	var lines []ScoreLine
	for id, sc := range s.Scores() {
		if s.TypeName(id) != netsync.TypePlayer {
			continue
		}
		name := id
		if t := s.Text(id); t != nil && t.Text != "" {
			name = t.Text
		}
		lines = append(lines, ScoreLine{ID: id, Name: name, Score: sc.Score, Holder: id == holder, Local: id == w.localID})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Score != lines[j].Score {
			return lines[i].Score > lines[j].Score
		}
		return lines[i].ID < lines[j].ID
	})
	return lines
}

func (w *Window) standingLines(st []round.Standing) []StandingLine {
	lines := make([]StandingLine, len(st))
	for i, s := range st {
		name := s.Username
		if name == "" {
			name = s.ID
		}
		lines[i] = StandingLine{Name: name, Score: s.Score, Local: s.ID == w.localID}
	}
	return lines
}

// camera3D converts the follow camera to raylib's.
func (w *Window) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   vec3(w.cam.Eye),
		Target:     vec3(w.cam.Target),
		Up:         vec3(w.cam.Up),
		Fovy:       float32(w.cam.FovY),
		Projection: rl.CameraPerspective,
	}
}

func vec3(v mgl64.Vec3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X()), Y: float32(v.Y()), Z: float32(v.Z())}
}
