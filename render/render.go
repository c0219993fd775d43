// Package render holds the scene-graph side of entities: nodes, labels and
// animation mixers. Drawing is left to a Scene implementation.
package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/spotlight/assets"
	"github.com/pthm-cable/spotlight/camera"
)

// NodeKind selects how a node is drawn.
type NodeKind uint8

const (
	NodeModel NodeKind = iota
	NodeBox
	NodeDisc
	NodeLight
	NodeCone
	NodeWire
)

// Node is a drawable scene element.
type Node struct {
	Name     string
	Kind     NodeKind
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
	Size     mgl64.Vec3 // primitive extents; discs use X as radius
	Color    uint32
	Model    *assets.Model
	Children []*Node
}

// NewNode creates a node with identity rotation and unit scale.
func NewNode(name string, kind NodeKind) *Node {
	return &Node{
		Name:     name,
		Kind:     kind,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
		Color:    0xffffff,
	}
}

// Label is a screen-space text overlay.
type Label struct {
	Text    string
	X, Y    float64
	Size    float64
	Color   uint32
	Visible bool
	OnClick func()
}

// Scene receives nodes and labels and draws one frame per Render call.
type Scene interface {
	AddNode(n *Node)
	RemoveNode(n *Node)
	AddLabel(l *Label)
	RemoveLabel(l *Label)
	Render(cam *camera.Camera)
}

// Graph is an in-memory Scene used headless and in tests.
type Graph struct {
	nodes  []*Node
	labels []*Label
	frames int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) AddNode(n *Node) {
	if n == nil || g.HasNode(n) {
		return
	}
	g.nodes = append(g.nodes, n)
}

func (g *Graph) RemoveNode(n *Node) {
	for i, x := range g.nodes {
		if x == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}

func (g *Graph) AddLabel(l *Label) {
	if l == nil || g.HasLabel(l) {
		return
	}
	g.labels = append(g.labels, l)
}

func (g *Graph) RemoveLabel(l *Label) {
	for i, x := range g.labels {
		if x == l {
			g.labels = append(g.labels[:i], g.labels[i+1:]...)
			return
		}
	}
}

// Render counts frames; nothing is drawn.
func (g *Graph) Render(*camera.Camera) {
	g.frames++
}

// HasNode reports whether n is attached.
func (g *Graph) HasNode(n *Node) bool {
	for _, x := range g.nodes {
		if x == n {
			return true
		}
	}
	return false
}

// HasLabel reports whether l is attached.
func (g *Graph) HasLabel(l *Label) bool {
	for _, x := range g.labels {
		if x == l {
			return true
		}
	}
	return false
}

// Nodes returns the attached nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Labels returns the attached labels in insertion order.
func (g *Graph) Labels() []*Label { return g.labels }

// Frames returns the number of Render calls.
func (g *Graph) Frames() int { return g.frames }
