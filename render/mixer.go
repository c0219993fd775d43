package render

import "math"

// Mixer plays one named clip of a model at a time.
type Mixer struct {
	Clips    []string
	Current  string
	Time     float64
	Duration float64
}

// NewMixer creates a mixer over the given clip names.
func NewMixer(clips []string) *Mixer {
	return &Mixer{Clips: clips, Duration: 1}
}

// Play switches to the named clip. Unknown names are ignored.
func (m *Mixer) Play(name string) bool {
	for _, c := range m.Clips {
		if c == name {
			if m.Current != name {
				m.Current = name
				m.Time = 0
			}
			return true
		}
	}
	return false
}

// Update advances the current clip, looping at Duration.
func (m *Mixer) Update(dt float64) {
	if m.Current == "" {
		return
	}
	m.Time += dt
	if m.Duration > 0 {
		m.Time = math.Mod(m.Time, m.Duration)
	}
}
