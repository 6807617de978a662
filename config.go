package mearm

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.viam.com/rdk/logging"

	"mearm/driver"
	"mearm/kinematics"
)

// JointConfig configures one joint's servo.
type JointConfig struct {
	Channel     int                `json:"channel"`
	Calibration driver.Calibration `json:"calibration"`

	// Reach limits in servo degrees.
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Neutral float64 `json:"neutral"`
}

// Profile returns the joint's ServoProfile.
func (jc JointConfig) Profile(joint Joint) ServoProfile {
	return ServoProfile{
		Joint:       joint,
		Channel:     jc.Channel,
		Calibration: jc.Calibration,
		Min:         jc.Min,
		Max:         jc.Max,
		Neutral:     jc.Neutral,
	}
}

type Config struct {
	Hip      JointConfig `json:"hip"`
	Shoulder JointConfig `json:"shoulder"`
	Elbow    JointConfig `json:"elbow"`
	Gripper  JointConfig `json:"gripper"`

	ServoFrequency  int `json:"servo_frequency"`
	BoardFrequency  int `json:"board_frequency"`
	PulseResolution int `json:"pulse_resolution"`

	// Initialize registers the servos and moves to neutral on construction.
	Initialize bool `json:"initialize"`

	GripperOpen   float64 `json:"gripper_open"`
	GripperClosed float64 `json:"gripper_closed"`

	SettleDelay    time.Duration `json:"settle_delay"` // written as a duration string, e.g. "300ms"
	StepDelay      time.Duration `json:"step_delay"`
	PathResolution float64       `json:"path_resolution"` // mm between waypoints
	SweepIncrement float64       `json:"sweep_increment"` // degrees per smoke-test step

	Geometry kinematics.Geometry `json:"geometry"`

	// Not serialized
	Logger logging.Logger    `json:"-"`
	Solver kinematics.Solver `json:"-"`
}

// sg90 is tuned for the SG90S micro servos the meArm ships with.
var sg90 = driver.Calibration{
	PulseMin:     0.6,
	PulseMax:     2.3,
	PulseNeutral: 1.4,
	AngleMin:     -85,
	AngleMax:     85,
	AngleNeutral: 0,
	Resolution:   4096,
}

var defaultConfig = Config{
	Hip:      JointConfig{Channel: 15, Calibration: sg90, Min: -84.5, Max: 84.5, Neutral: 0},
	Shoulder: JointConfig{Channel: 13, Calibration: sg90, Min: -15, Max: 65, Neutral: 40},
	Elbow:    JointConfig{Channel: 12, Calibration: sg90, Min: -25, Max: 84.5, Neutral: 0},
	Gripper:  JointConfig{Channel: 14, Calibration: sg90, Min: -20, Max: 27.5, Neutral: 0},

	ServoFrequency:  50,
	BoardFrequency:  25_000_000,
	PulseResolution: 4096,

	Initialize: true,

	GripperOpen:   -20,
	GripperClosed: 27.5,

	SettleDelay:    300 * time.Millisecond,
	StepDelay:      50 * time.Millisecond,
	PathResolution: 10,
	SweepIncrement: 0.5,

	Geometry: kinematics.DefaultGeometry,
}

// MarshalJSON writes the delays as duration strings.
func (cfg Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		SettleDelay string `json:"settle_delay"`
		StepDelay   string `json:"step_delay"`
	}{plain(cfg), cfg.SettleDelay.String(), cfg.StepDelay.String()})
}

// UnmarshalJSON decodes over the existing values, so absent fields keep
// them. Delays are duration strings.
func (cfg *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		SettleDelay *string `json:"settle_delay"`
		StepDelay   *string `json:"step_delay"`
	}{plain: (*plain)(cfg)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	for _, d := range []struct {
		name string
		raw  *string
		dst  *time.Duration
	}{
		{"settle_delay", aux.SettleDelay, &cfg.SettleDelay},
		{"step_delay", aux.StepDelay, &cfg.StepDelay},
	} {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

// DefaultConfig returns the stock meArm configuration.
func DefaultConfig() Config {
	return defaultConfig
}

// Joint returns the configuration for j.
func (cfg *Config) Joint(j Joint) *JointConfig {
	switch j {
	case Hip:
		return &cfg.Hip
	case Shoulder:
		return &cfg.Shoulder
	case Elbow:
		return &cfg.Elbow
	case Gripper:
		return &cfg.Gripper
	}
	return nil
}

// Channels assigns a driver channel to each joint.
type Channels struct {
	Hip      int
	Shoulder int
	Elbow    int
	Gripper  int
}

// Channels returns the configured servo channels.
func (cfg *Config) Channels() Channels {
	return Channels{
		Hip:      cfg.Hip.Channel,
		Shoulder: cfg.Shoulder.Channel,
		Elbow:    cfg.Elbow.Channel,
		Gripper:  cfg.Gripper.Channel,
	}
}

// SetChannels assigns the four servo channels.
func (cfg *Config) SetChannels(ch Channels) {
	cfg.Hip.Channel = ch.Hip
	cfg.Shoulder.Channel = ch.Shoulder
	cfg.Elbow.Channel = ch.Elbow
	cfg.Gripper.Channel = ch.Gripper
}

// Validate checks channels, calibrations, limits and timing.
func (cfg *Config) Validate() error {
	bad := make(map[Joint]int)
	for _, j := range AllJoints {
		if ch := cfg.Joint(j).Channel; ch < 0 || ch > driver.MaxChannel {
			bad[j] = ch
		}
	}
	if len(bad) > 0 {
		return &ChannelError{Channels: bad}
	}

	seen := make(map[int]Joint)
	for _, j := range AllJoints {
		ch := cfg.Joint(j).Channel
		if other, ok := seen[ch]; ok {
			return fmt.Errorf("%w: %s and %s share channel %d", ErrInvalidConfig, other, j, ch)
		}
		seen[ch] = j
	}

	for _, j := range AllJoints {
		jc := cfg.Joint(j)
		if err := jc.Calibration.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, j, err)
		}
		if !(jc.Min <= jc.Neutral && jc.Neutral <= jc.Max) {
			return fmt.Errorf("%w: %s limits must satisfy min <= neutral <= max, got %.2f/%.2f/%.2f",
				ErrInvalidConfig, j, jc.Min, jc.Neutral, jc.Max)
		}
		if jc.Min < jc.Calibration.AngleMin || jc.Max > jc.Calibration.AngleMax {
			return fmt.Errorf("%w: %s limits [%.2f, %.2f] exceed calibrated range [%.2f, %.2f]",
				ErrInvalidConfig, j, jc.Min, jc.Max, jc.Calibration.AngleMin, jc.Calibration.AngleMax)
		}
	}

	for _, angle := range []float64{cfg.GripperOpen, cfg.GripperClosed} {
		if angle < cfg.Gripper.Min || angle > cfg.Gripper.Max {
			return fmt.Errorf("%w: gripper angle %.2f outside [%.2f, %.2f]",
				ErrInvalidConfig, angle, cfg.Gripper.Min, cfg.Gripper.Max)
		}
	}

	if cfg.ServoFrequency <= 0 || cfg.BoardFrequency <= 0 || cfg.PulseResolution <= 0 {
		return fmt.Errorf("%w: frequencies and resolution must be positive", ErrInvalidConfig)
	}
	if cfg.PathResolution <= 0 {
		return fmt.Errorf("%w: path resolution must be positive, got %v", ErrInvalidConfig, cfg.PathResolution)
	}
	if cfg.SweepIncrement <= 0 {
		return fmt.Errorf("%w: sweep increment must be positive, got %v", ErrInvalidConfig, cfg.SweepIncrement)
	}
	if cfg.SettleDelay < 0 || cfg.StepDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}
	if cfg.Solver == nil {
		if err := cfg.Geometry.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// PCA9685 returns the board settings carried by cfg.
func (cfg *Config) PCA9685() driver.PCA9685Config {
	return driver.PCA9685Config{
		ServoFrequency: cfg.ServoFrequency,
		BoardFrequency: cfg.BoardFrequency,
		Resolution:     cfg.PulseResolution,
	}
}

// solver returns the injected Solver or one built from Geometry.
func (cfg *Config) solver() kinematics.Solver {
	if cfg.Solver != nil {
		return cfg.Solver
	}
	return kinematics.NewMeArm(cfg.Geometry)
}

// LoadConfigFromFile reads a JSON config. Fields absent from the file keep
// their defaults.
func LoadConfigFromFile(path string, logger logging.Logger) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if logger != nil {
		logger.Infof("Loaded config from %s", path)
	}
	cfg.Logger = logger
	return cfg, nil
}

// SaveConfigToFile writes cfg as indented JSON.
func SaveConfigToFile(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
