package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayLabels    OverlayID = "labels"
	OverlaySpotCone  OverlayID = "spot_cone"
	OverlayScores    OverlayID = "scores"
	OverlayHitboxes  OverlayID = "hitboxes"
	OverlayGrid      OverlayID = "grid"
	OverlayPerf      OverlayID = "perf"
	OverlayInspector OverlayID = "inspector"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID        OverlayID   // Unique identifier
	Name      string      // Display name
	Key       int32       // Keyboard key to toggle (0 = no key)
	KeyLabel  string      // Key label for display
	Category  string      // Grouping ("view", "debug")
	Default   bool        // enabled at startup
	Exclusive []OverlayID // Other overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{ID: OverlayLabels, Name: "Name Labels", Key: rl.KeyN, KeyLabel: "N", Category: "view", Default: true})
	r.Register(OverlayDescriptor{ID: OverlaySpotCone, Name: "Spotlight Cone", Key: rl.KeyC, KeyLabel: "C", Category: "view", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayScores, Name: "Scoreboard", Key: rl.KeyS, KeyLabel: "S", Category: "view", Default: true})

	r.Register(OverlayDescriptor{ID: OverlayHitboxes, Name: "Hitboxes", Key: rl.KeyB, KeyLabel: "B", Category: "debug"})
	r.Register(OverlayDescriptor{ID: OverlayGrid, Name: "Grid", Key: rl.KeyG, KeyLabel: "G", Category: "debug"})
	r.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Perf Phases", Key: rl.KeyP, KeyLabel: "P", Category: "debug", Exclusive: []OverlayID{OverlayInspector}})
	r.Register(OverlayDescriptor{ID: OverlayInspector, Name: "Inspector", Key: rl.KeyI, KeyLabel: "I", Category: "debug", Exclusive: []OverlayID{OverlayPerf}})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = desc.Default
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in registration order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleInput toggles every overlay whose key was pressed this frame.
func (r *OverlayRegistry) HandleInput() {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			r.Toggle(desc.ID)
		}
	}
}
