package systems

import "github.com/pthm-cable/spotlight/components"

// SystemInfo describes a tick system for logs and the debug HUD.
type SystemInfo struct {
	ID          string // component kind name, also the perf phase name
	Kind        components.Kind
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "round", "motion", "network")
}

// SystemRegistry holds metadata about all tick systems.
// Registration order is dispatch order.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

var systemText = map[components.Kind][3]string{
	components.KindDeath:       {"Death", "Resolves death triggers and spotlight transfer", "round"},
	components.KindScore:       {"Score", "Accrues holding time for the spotlight holder", "round"},
	components.KindSpotlight:   {"Spotlight", "Moves the light over the current holder", "round"},
	components.KindDevHitbox:   {"Debug Hitbox", "Mirrors body bounds into a wire node", "visual"},
	components.KindTransform:   {"Transform", "Smooths render pose toward the target", "motion"},
	components.KindAnimation:   {"Animation", "Advances the bound clip", "visual"},
	components.KindSync:        {"Sync", "Emits periodic transform broadcasts", "network"},
	components.KindController:  {"Controller", "Strafing from held keys", "motion"},
	components.KindController2: {"Dash", "Forward dash with cooldown", "motion"},
	components.KindCollision:   {"Collision", "Turns contacts into knockback", "network"},
	components.KindPhysic:      {"Physic", "Velocity decay, body write-back, floor recovery", "motion"},
	components.KindCamera:      {"Camera", "Follows with a fixed offset", "view"},
	components.KindCamera2:     {"Trailing Camera", "Follows behind the facing", "view"},
	components.KindText:        {"Text", "Projects labels to screen space", "view"},
}

// registerDefaults adds one system per kind in tick priority order.
func (r *SystemRegistry) registerDefaults() {
	for _, k := range components.Priority {
		t := systemText[k]
		r.Register(SystemInfo{ID: k.String(), Kind: k, Name: t[0], Description: t[1], Category: t[2]})
	}
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
