// Package inspector draws a live component panel for one selected entity.
package inspector

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/spotlight/components"
)

// Panel dimensions
const (
	PanelWidth   = 320
	PanelPadding = 10
	HeaderHeight = 30
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorCloseBtn    = rl.Color{R: 180, G: 80, B: 80, A: 255}
	ColorSection     = rl.Color{R: 50, G: 50, B: 60, A: 255}
	ColorSectionText = rl.Color{R: 200, G: 200, B: 220, A: 255}
)

// Inspector manages entity selection and panel rendering.
type Inspector struct {
	selected     string
	panelX       int32
	panelY       int32
	screenWidth  int32
	screenHeight int32
}

// NewInspector creates a new inspector instance.
func NewInspector(screenWidth, screenHeight int32) *Inspector {
	ins := &Inspector{}
	ins.Resize(screenWidth, screenHeight)
	return ins
}

// Resize anchors the panel to the right edge.
func (ins *Inspector) Resize(screenWidth, screenHeight int32) {
	ins.screenWidth = screenWidth
	ins.screenHeight = screenHeight
	ins.panelX = screenWidth - PanelWidth - 10
	ins.panelY = 10
}

// HandleInput cycles the selection with Tab through ids and clears it
// with Escape, right click or the close button.
func (ins *Inspector) HandleInput(ids []string) {
	if rl.IsMouseButtonPressed(rl.MouseButtonRight) || rl.IsKeyPressed(rl.KeyEscape) {
		ins.Deselect()
		return
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		ins.selected = nextID(ids, ins.selected)
		return
	}
	if ins.selected != "" && rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		m := rl.GetMousePosition()
		closeBtn := rl.Rectangle{X: float32(ins.panelX + PanelWidth - 25), Y: float32(ins.panelY + 5), Width: 20, Height: 20}
		if rl.CheckCollisionPointRec(m, closeBtn) {
			ins.Deselect()
		}
	}
}

// nextID returns the id after cur, wrapping, or "" for an empty list.
func nextID(ids []string, cur string) string {
	if len(ids) == 0 {
		return ""
	}
	for i, id := range ids {
		if id == cur {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}

// Select focuses id.
func (ins *Inspector) Select(id string) { ins.selected = id }

// Deselect clears the current selection.
func (ins *Inspector) Deselect() { ins.selected = "" }

// Selected returns the selected entity id.
func (ins *Inspector) Selected() (string, bool) {
	return ins.selected, ins.selected != ""
}

// Draw renders the panel for the selected entity. The selection is dropped
// once the entity is removed.
func (ins *Inspector) Draw(src Source) {
	if ins.selected == "" {
		return
	}
	sections := Inspect(src, ins.selected)
	if sections == nil {
		ins.Deselect()
		return
	}

	panelHeight := calculatePanelHeight(sections)
	if limit := ins.screenHeight - 2*ins.panelY; limit > 0 && panelHeight > limit {
		panelHeight = limit
	}

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, panelHeight, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(ins.panelX), Y: float32(ins.panelY), Width: PanelWidth, Height: float32(panelHeight)},
		1,
		ColorPanelBorder,
	)

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText(fmt.Sprintf("INSPECTOR  %s", ins.selected), ins.panelX+PanelPadding, ins.panelY+7, 16, ColorHeaderText)

	closeX := ins.panelX + PanelWidth - 25
	closeY := ins.panelY + 5
	rl.DrawRectangle(closeX, closeY, 20, 20, ColorCloseBtn)
	rl.DrawText("X", closeX+6, closeY+3, 14, rl.White)

	x := ins.panelX + PanelPadding
	y := ins.panelY + HeaderHeight + PanelPadding
	bottom := ins.panelY + panelHeight - PanelPadding
	for _, sec := range sections {
		if y+20 > bottom {
			break
		}
		ins.drawSectionHeader(x, y, sec.Kind.String())
		y += 20
		for _, f := range sec.Fields {
			if y+fieldHeight(f) > bottom {
				break
			}
			y += DrawField(x, y, f)
		}
		y += 4
	}
}

// drawSectionHeader renders a section title.
func (ins *Inspector) drawSectionHeader(x, y int32, title string) {
	rl.DrawRectangle(x-2, y-2, PanelWidth-2*PanelPadding+4, 18, ColorSection)
	rl.DrawText(title, x+2, y, 14, ColorSectionText)
}

// calculatePanelHeight computes the dynamic panel height.
func calculatePanelHeight(sections []Section) int32 {
	height := int32(HeaderHeight + PanelPadding)
	for _, sec := range sections {
		height += 20 + 4
		for _, f := range sec.Fields {
			height += fieldHeight(f)
		}
	}
	return height + PanelPadding
}

// DrawSelectionHighlight rings the selected entity on the ground plane.
// Call between BeginMode3D and EndMode3D.
func (ins *Inspector) DrawSelectionHighlight(src Source) {
	if ins.selected == "" {
		return
	}
	tr, ok := src.Component(ins.selected, components.KindTransform).(*components.Transform)
	if !ok || tr == nil {
		return
	}
	center := rl.Vector3{X: float32(tr.Position.X()), Y: float32(tr.Position.Y()), Z: float32(tr.Position.Z())}
	rl.DrawCircle3D(center, 0.25, rl.Vector3{X: 1}, 90, rl.Yellow)
}
