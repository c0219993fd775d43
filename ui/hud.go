package ui

import (
	"fmt"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/spotlight/telemetry"
)

// ScoreLine is one row of the live scoreboard.
type ScoreLine struct {
	ID     string
	Name   string
	Score  float64
	Holder bool // currently followed by the spotlight
	Local  bool
}

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title        string
	State        string
	Room         string
	Remaining    int     // seconds, negative hides the timer
	Progress     float32 // fraction of the round left
	Scores       []ScoreLine
	Tick         int32
	FPS          int32
	ScreenWidth  int32
	ScreenHeight int32
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the title bar, countdown and status line.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	rl.DrawText(data.Title, 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("%s | room %s", data.State, data.Room), 10, 35, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Tick: %d | FPS: %d", data.Tick, data.FPS), 10, 55, 16, rl.LightGray)

	if data.Remaining >= 0 {
		color := rl.White
		if data.Remaining <= 10 {
			color = rl.Red
		}
		r.DrawCentered(fmt.Sprintf("%d", data.Remaining), 12, r.Theme.TimerFontSize, data.ScreenWidth, color)

		barW := int32(240)
		barX := (data.ScreenWidth - barW) / 2
		rl.DrawRectangle(barX, 58, barW, 6, r.Theme.BarBg)
		rl.DrawRectangle(barX, 58, int32(float32(barW)*clamp01(data.Progress)), 6, r.Theme.BarFill)
	}
}

// DrawScores renders the live scoreboard anchored top-right.
func (h *HUD) DrawScores(lines []ScoreLine, screenW, screenH int32) {
	if len(lines) == 0 {
		return
	}
	r := h.renderer
	width := int32(240)
	height := int32(len(lines)+1)*r.Theme.LineHeight + r.Theme.Padding*2 + 4
	x, y := anchorOrigin(AnchorTopRight, width, height, screenW, screenH, r.Theme.Padding)
	r.DrawPanel(x, y, width, height)

	y = r.DrawSectionHeader(x+r.Theme.Padding, y+r.Theme.Padding, "Spotlight time")
	for _, l := range lines {
		color := r.Theme.LabelColor
		switch {
		case l.Holder:
			color = r.Theme.Highlight
		case l.Local:
			color = r.Theme.LocalColor
		}
		name := l.Name
		if l.Holder {
			name = "* " + name
		}
		y = r.DrawLabelValue(x+r.Theme.Padding, y, name, fmt.Sprintf("%.1fs", l.Score), color)
	}
}

// DrawControls renders the control hint at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// WaitingData describes the waiting room.
type WaitingData struct {
	Room    string
	Players int
	Allowed int
	Host    bool
}

// WaitingPanel shows the waiting room and the host's start button.
type WaitingPanel struct {
	renderer *Renderer
}

// NewWaitingPanel creates a waiting room panel.
func NewWaitingPanel() *WaitingPanel {
	return &WaitingPanel{renderer: NewRenderer()}
}

// Draw renders the panel centered. Returns true when the host pressed Start.
func (p *WaitingPanel) Draw(data WaitingData, screenW, screenH int32) bool {
	r := p.renderer
	width, height := int32(320), int32(140)
	x, y := anchorOrigin(AnchorCenter, width, height, screenW, screenH, 0)
	r.DrawPanel(x, y, width, height)

	y = r.DrawSectionHeader(x+r.Theme.Padding, y+r.Theme.Padding, data.Room)
	y = r.DrawLabelValue(x+r.Theme.Padding, y, "Players", fmt.Sprintf("%d / %d", data.Players, data.Allowed), r.Theme.LabelColor)

	if !data.Host {
		r.DrawLabel(x+r.Theme.Padding, y+10, "Waiting for the host to start")
		return false
	}
	if data.Players < data.Allowed {
		r.DrawLabel(x+r.Theme.Padding, y+10, "Waiting for players")
		return false
	}
	return gui.Button(rl.Rectangle{X: float32(x + (width-120)/2), Y: float32(y + 20), Width: 120, Height: 30}, "Start")
}

// StandingLine is one row of the post-round table.
type StandingLine struct {
	Name  string
	Score float64
	Local bool
}

// StandingsPanel renders the summary table.
type StandingsPanel struct {
	renderer *Renderer
}

// NewStandingsPanel creates a summary table renderer.
func NewStandingsPanel() *StandingsPanel {
	return &StandingsPanel{renderer: NewRenderer()}
}

// Draw renders the standings centered on screen.
func (p *StandingsPanel) Draw(lines []StandingLine, screenW, screenH int32) {
	r := p.renderer
	width := int32(300)
	height := int32(len(lines)+2)*r.Theme.LineHeight + r.Theme.Padding*2
	x, y := anchorOrigin(AnchorCenter, width, height, screenW, screenH, 0)
	r.DrawPanel(x, y, width, height)

	y = r.DrawSectionHeader(x+r.Theme.Padding, y+r.Theme.Padding, "Round over")
	if len(lines) == 0 {
		r.DrawLabel(x+r.Theme.Padding, y, "Collecting scores...")
		return
	}
	for i, l := range lines {
		color := r.Theme.LabelColor
		switch {
		case i == 0:
			color = r.Theme.Highlight
		case l.Local:
			color = r.Theme.LocalColor
		}
		y = r.DrawLabelValue(x+r.Theme.Padding, y, fmt.Sprintf("%d. %s", i+1, l.Name), fmt.Sprintf("%.1fs", l.Score), color)
	}
}

// PerfPanel renders the per-phase tick breakdown.
type PerfPanel struct {
	renderer *Renderer
}

// NewPerfPanel creates a perf panel.
func NewPerfPanel() *PerfPanel {
	return &PerfPanel{renderer: NewRenderer()}
}

// Draw renders the panel anchored bottom-right.
func (p *PerfPanel) Draw(stats telemetry.PerfStats, screenW, screenH int32) {
	r := p.renderer
	width := int32(260)
	height := int32(len(telemetry.Phases)+3)*r.Theme.LineHeight + r.Theme.Padding*2
	x, y := anchorOrigin(AnchorBottomRight, width, height, screenW, screenH, r.Theme.Padding)
	r.DrawPanel(x, y, width, height)
	x += r.Theme.Padding
	y += r.Theme.Padding

	rl.DrawText("Tick Phases", x, y, r.Theme.HeaderFontSize, rl.White)
	y += r.Theme.LineHeight + 2
	rl.DrawText(fmt.Sprintf("avg %s  %.0f ticks/s", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 12, rl.Yellow)
	y += r.Theme.LineHeight

	for _, name := range telemetry.Phases {
		pct := stats.PhasePct[name]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += r.Theme.LineHeight
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
