// Package config provides configuration loading and access for the game client and relay.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all game configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Transform  TransformConfig  `yaml:"transform"`
	Controller ControllerConfig `yaml:"controller"`
	Dash       DashConfig       `yaml:"dash"`
	Decay      DecayConfig      `yaml:"decay"`
	Knockback  KnockbackConfig  `yaml:"knockback"`
	Sync       SyncConfig       `yaml:"sync"`
	Camera     CameraConfig     `yaml:"camera"`
	Round      RoundConfig      `yaml:"round"`
	Network    NetworkConfig    `yaml:"network"`
	Assets     AssetsConfig     `yaml:"assets"`
	Arena      ArenaConfig      `yaml:"arena"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// Vec3Config is a plain xyz triple.
type Vec3Config struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Vec3 converts to a math vector.
func (v Vec3Config) Vec3() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// PhysicsConfig holds rigid-body world parameters.
type PhysicsConfig struct {
	DT       float64    `yaml:"dt"`        // fixed step, seconds
	Gravity  float64    `yaml:"gravity"`   // y acceleration
	FloorY   float64    `yaml:"floor_y"`   // bodies below this height are recovered
	Respawn  Vec3Config `yaml:"respawn"`   // recovery point
	MaxSpeed float64    `yaml:"max_speed"` // hard clamp on integrated speed
}

// TransformConfig holds pose-smoothing parameters.
type TransformConfig struct {
	ScaleStep   float64 `yaml:"scale_step"`   // time_scale increment per reference frame
	RotateStep  float64 `yaml:"rotate_step"`  // time_rotate increment per reference frame
	ReferenceDT float64 `yaml:"reference_dt"` // frame length the steps are tuned for
}

// ControllerConfig holds omnidirectional locomotion parameters.
type ControllerConfig struct {
	Accel       float64 `yaml:"accel"`        // velocity added per held direction
	CameraAccel float64 `yaml:"camera_accel"` // camera-shake velocity added per held direction
}

// DashConfig holds forward-dash locomotion parameters.
type DashConfig struct {
	Speed       float64 `yaml:"speed"`        // burst speed granted by a dash
	Decay       float64 `yaml:"decay"`        // speed multiplier per frame while cooling down
	Regrow      float64 `yaml:"regrow"`       // speed regained per frame once cooldown expires
	MaxCooldown float64 `yaml:"max_cooldown"` // default cooldown in frames
	YawRate     float64 `yaml:"yaw_rate"`     // passive rotation, radians per frame
	CameraShake float64 `yaml:"camera_shake"` // camera-shake velocity added on dash
}

// DecayConfig holds the multiplicative damping factors.
type DecayConfig struct {
	Velocity float64 `yaml:"velocity"`
	Camera   float64 `yaml:"camera"`
}

// KnockbackConfig holds collision push parameters.
type KnockbackConfig struct {
	Force        float64 `yaml:"force"`         // base force before the presence multiplier
	Displacement float64 `yaml:"displacement"`  // distance per unit force applied by the target
	MinForce     float64 `yaml:"min_force"`     // presence force lower clamp
	MaxForce     float64 `yaml:"max_force"`     // presence force upper clamp
}

// SyncConfig holds outbound replication cadence.
type SyncConfig struct {
	Interval float64 `yaml:"interval"` // seconds between transform broadcasts
}

// CameraConfig holds view and follow parameters.
type CameraConfig struct {
	FovY     float64    `yaml:"fov_y"` // degrees
	Near     float64    `yaml:"near"`
	Far      float64    `yaml:"far"`
	Follow   Vec3Config `yaml:"follow"`    // offset used by the omni camera
	Distance float64    `yaml:"distance"`  // trailing distance used by the dash camera
	Height   float64    `yaml:"height"`    // height used by the dash camera
}

// RoundConfig holds round timing and room defaults.
type RoundConfig struct {
	DurationSec    int     `yaml:"duration_sec"`
	AllowedPlayers int     `yaml:"allowed_players"`
	EndGraceSec    float64 `yaml:"end_grace_sec"` // non-host waits this long past zero before ending on its own
}

// NetworkConfig holds transport parameters.
type NetworkConfig struct {
	RelayURL     string  `yaml:"relay_url"`
	InboxSize    int     `yaml:"inbox_size"`
	WriteTimeout float64 `yaml:"write_timeout"` // seconds
	ReadLimit    int64   `yaml:"read_limit"`    // bytes per frame
}

// AssetsConfig holds asset-fetch parameters.
type AssetsConfig struct {
	BaseURL string  `yaml:"base_url"` // HTTP bucket root; empty uses Dir
	Dir     string  `yaml:"dir"`
	Timeout float64 `yaml:"timeout"` // seconds
}

// ModelConfig references a binary model in a bucket.
type ModelConfig struct {
	Bucket string     `yaml:"bucket"`
	File   string     `yaml:"file"`
	Scale  Vec3Config `yaml:"scale"`
}

// BoxConfig holds hitbox extents.
type BoxConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Depth  float64 `yaml:"depth"`
}

// ArenaConfig holds scene setup for the ground, spotlight and player avatars.
type ArenaConfig struct {
	Ground         ModelConfig `yaml:"ground"`
	GroundHitbox   BoxConfig   `yaml:"ground_hitbox"`
	GroundY        float64     `yaml:"ground_y"`
	PlayerModel    ModelConfig `yaml:"player_model"`
	PlayerHitbox   BoxConfig   `yaml:"player_hitbox"`
	PlayerSpawnY   float64     `yaml:"player_spawn_y"`
	LabelOffsetY   float64     `yaml:"label_offset_y"`
	LabelSize      float64     `yaml:"label_size"`
	SpotlightY     float64     `yaml:"spotlight_y"`
	SpotlightColor uint32      `yaml:"spotlight_color"`
	DefaultSkin    string      `yaml:"default_skin"`
}

// TelemetryConfig holds scoreboard and perf parameters.
type TelemetryConfig struct {
	ScoreboardInterval float64 `yaml:"scoreboard_interval"` // seconds
	PerfWindow         int     `yaml:"perf_window"`         // ticks
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RoundDurationMS int64   // Round.DurationSec in milliseconds
	FrameScale      float64 // Physics.DT / Transform.ReferenceDT
	ScreenW         float64
	ScreenH         float64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Physics.DT <= 0 {
		c.Physics.DT = 1.0 / 30.0
	}
	if c.Transform.ReferenceDT <= 0 {
		c.Transform.ReferenceDT = c.Physics.DT
	}
	if c.Dash.MaxCooldown <= 0 {
		c.Dash.MaxCooldown = 36
	}
	if c.Network.InboxSize <= 0 {
		c.Network.InboxSize = 1024
	}
	if c.Round.DurationSec <= 0 {
		c.Round.DurationSec = 60
	}
	if c.Round.AllowedPlayers <= 0 {
		c.Round.AllowedPlayers = 2
	}

	c.Derived.RoundDurationMS = int64(c.Round.DurationSec) * 1000
	c.Derived.FrameScale = c.Physics.DT / c.Transform.ReferenceDT
	c.Derived.ScreenW = float64(c.Screen.Width)
	c.Derived.ScreenH = float64(c.Screen.Height)
}

// ClampForce restricts a presence knockback multiplier to the configured range.
func (c *Config) ClampForce(f float64) float64 {
	if f < c.Knockback.MinForce {
		return c.Knockback.MinForce
	}
	if f > c.Knockback.MaxForce {
		return c.Knockback.MaxForce
	}
	return f
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
