package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsPanel renders the key legend with overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		width:    width,
	}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// movementKeys is the fixed part of the legend.
var movementKeys = [][2]string{
	{"Arrows", "dash / turn"},
	{"Tab", "cycle inspected"},
	{"H", "this panel"},
	{"F11", "fullscreen"},
}

// Draw renders the panel anchored bottom-left.
func (c *ControlsPanel) Draw(overlays *OverlayRegistry, screenW, screenH int32) {
	if !c.visible {
		return
	}
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	rows := len(movementKeys) + 1
	for _, cat := range categories {
		rows += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(rows)*lineHeight + padding*3

	x, y := anchorOrigin(AnchorBottomLeft, c.width, panelHeight, screenW, screenH, padding)
	r.DrawPanel(x, y, c.width, panelHeight)
	y += padding

	rl.DrawText("Controls", x+padding, y, r.Theme.HeaderFontSize, rl.White)
	y += lineHeight + 4
	for _, kv := range movementKeys {
		y = r.DrawLabelValue(x+padding, y, kv[0], kv[1], r.Theme.LabelColor)
	}

	for _, category := range categories {
		y = r.DrawSectionHeader(x+padding, y, categoryLabel(category))
		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
	}
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+3, 8, 8, statusColor)
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

func categoryLabel(cat string) string {
	switch cat {
	case "view":
		return "View"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
