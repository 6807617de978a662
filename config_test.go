package mearm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"

	"mearm/driver"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Channels{Hip: 15, Shoulder: 13, Elbow: 12, Gripper: 14}, cfg.Channels())
	assert.True(t, cfg.Initialize)
	assert.Equal(t, 300*time.Millisecond, cfg.SettleDelay)

	// Callers get a copy.
	cfg.Hip.Channel = 0
	assert.Equal(t, 15, DefaultConfig().Hip.Channel)
}

func TestConfigChannels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetChannels(Channels{Hip: 0, Shoulder: 1, Elbow: 2, Gripper: 3})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Joint(Elbow).Channel)
	assert.Nil(t, cfg.Joint("wrist"))

	t.Run("every offender is reported", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SetChannels(Channels{Hip: 16, Shoulder: 1, Elbow: -3, Gripper: 3})

		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidChannel))
		assert.False(t, errors.Is(err, ErrInvalidConfig))

		var chErr *ChannelError
		require.True(t, errors.As(err, &chErr))
		assert.Equal(t, map[Joint]int{Hip: 16, Elbow: -3}, chErr.Channels)
		assert.Equal(t, "invalid servo channel: elbow=-3, hip=16", err.Error())
	})

	t.Run("duplicates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SetChannels(Channels{Hip: 4, Shoulder: 4, Elbow: 2, Gripper: 3})
		err := cfg.Validate()
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		assert.Contains(t, err.Error(), "channel 4")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"neutral below min", func(c *Config) { c.Shoulder.Neutral = -20 }},
		{"limit past calibration", func(c *Config) { c.Hip.Max = 90 }},
		{"bad calibration", func(c *Config) { c.Elbow.Calibration.PulseMax = c.Elbow.Calibration.PulseMin }},
		{"gripper open out of range", func(c *Config) { c.GripperOpen = -30 }},
		{"gripper closed out of range", func(c *Config) { c.GripperClosed = 40 }},
		{"zero servo frequency", func(c *Config) { c.ServoFrequency = 0 }},
		{"zero path resolution", func(c *Config) { c.PathResolution = 0 }},
		{"zero sweep increment", func(c *Config) { c.SweepIncrement = 0 }},
		{"negative delay", func(c *Config) { c.StepDelay = -time.Millisecond }},
		{"bad geometry", func(c *Config) { c.Geometry.UpperArm = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
		})
	}
}

func TestConfigPCA9685(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoardFrequency = 26_500_000
	assert.Equal(t, driver.PCA9685Config{
		ServoFrequency: 50,
		BoardFrequency: 26_500_000,
		Resolution:     4096,
	}, cfg.PCA9685())
}

func TestLoadConfigFromFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "partial.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"hip":{"channel":3},"step_delay":"0s"}`), 0o644))

		cfg, err := LoadConfigFromFile(path, logger)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Hip.Channel)
		assert.Equal(t, 84.5, cfg.Hip.Max)
		assert.Equal(t, 13, cfg.Shoulder.Channel)
		assert.Equal(t, time.Duration(0), cfg.StepDelay)
		assert.Equal(t, 300*time.Millisecond, cfg.SettleDelay)
		assert.Equal(t, logger, cfg.Logger)
	})

	t.Run("delays are duration strings", func(t *testing.T) {
		path := filepath.Join(dir, "delays.json")
		require.NoError(t, SaveConfigToFile(path, DefaultConfig()))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"settle_delay": "300ms"`)
		assert.Contains(t, string(data), `"step_delay": "50ms"`)

		require.NoError(t, os.WriteFile(path, []byte(`{"settle_delay":"1.5s"}`), 0o644))
		cfg, err := LoadConfigFromFile(path, logger)
		require.NoError(t, err)
		assert.Equal(t, 1500*time.Millisecond, cfg.SettleDelay)
		assert.Equal(t, 50*time.Millisecond, cfg.StepDelay)

		require.NoError(t, os.WriteFile(path, []byte(`{"step_delay":300000000}`), 0o644))
		_, err = LoadConfigFromFile(path, logger)
		assert.ErrorContains(t, err, "failed to parse config JSON")
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(dir, "saved.json")
		want := DefaultConfig()
		want.SetChannels(Channels{Hip: 0, Shoulder: 1, Elbow: 2, Gripper: 3})
		want.GripperClosed = 20
		require.NoError(t, SaveConfigToFile(path, want))

		got, err := LoadConfigFromFile(path, nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFromFile(filepath.Join(dir, "nope.json"), logger)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"hip":`), 0o644))
		_, err := LoadConfigFromFile(path, logger)
		assert.ErrorContains(t, err, "failed to parse config JSON")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gripper":{"channel":99}}`), 0o644))
		_, err := LoadConfigFromFile(path, logger)
		assert.True(t, errors.Is(err, ErrInvalidChannel))
	})
}
