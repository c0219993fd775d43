// Package main provides CMA-ES tuning of locomotion and knockback parameters
// against headless bot rounds.
package main

import (
	"github.com/pthm-cable/spotlight/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Dash
			{Name: "dash_speed", Path: "dash.speed", Min: 0.2, Max: 1.2, Default: 0.6},
			{Name: "dash_decay", Path: "dash.decay", Min: 0.7, Max: 0.98, Default: 0.9},
			{Name: "yaw_rate", Path: "dash.yaw_rate", Min: 0.02, Max: 0.15, Default: 0.05},
			// Knockback
			{Name: "displacement", Path: "knockback.displacement", Min: 0.2, Max: 1.5, Default: 0.6},
			// Damping
			{Name: "velocity_decay", Path: "decay.velocity", Min: 0.5, Max: 0.95, Default: 0.8},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies clamped parameter values to cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Dash.Speed = c[0]
	cfg.Dash.Decay = c[1]
	cfg.Dash.YawRate = c[2]
	cfg.Knockback.Displacement = c[3]
	cfg.Decay.Velocity = c[4]
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Dash.Speed,
		cfg.Dash.Decay,
		cfg.Dash.YawRate,
		cfg.Knockback.Displacement,
		cfg.Decay.Velocity,
	}
}
