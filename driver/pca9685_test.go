package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

type pwmWrite struct {
	channel int
	on, off gpio.Duty
}

type fakePWM struct {
	freq   physic.Frequency
	writes []pwmWrite
	err    error
}

func (f *fakePWM) SetPwmFreq(freq physic.Frequency) error {
	f.freq = freq
	return nil
}

func (f *fakePWM) SetPwm(channel int, on, off gpio.Duty) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, pwmWrite{channel: channel, on: on, off: off})
	return nil
}

var sg90 = Calibration{
	PulseMin: 0.6, PulseMax: 2.3, PulseNeutral: 1.4,
	AngleMin: -85, AngleMax: 85, AngleNeutral: 0,
	Resolution: 4096,
}

func newTestPCA(t *testing.T, cfg PCA9685Config) (*PCA9685, *fakePWM, *i2ctest.Record) {
	t.Helper()
	dev := &fakePWM{}
	bus := &i2ctest.Record{}
	d, err := NewPCA9685WithDevice(bus, dev, cfg)
	require.NoError(t, err)
	return d, dev, bus
}

func TestPCA9685Frequency(t *testing.T) {
	_, dev, _ := newTestPCA(t, PCA9685Config{})
	assert.Equal(t, 50*physic.Hertz, dev.freq)

	// A fast oscillator needs a lower nominal request to land on 50Hz.
	_, dev, _ = newTestPCA(t, PCA9685Config{BoardFrequency: 26_000_000})
	assert.Less(t, int64(dev.freq), int64(50*physic.Hertz))
}

func TestPCA9685SetServoAngle(t *testing.T) {
	ctx := context.Background()
	d, dev, _ := newTestPCA(t, PCA9685Config{})

	require.NoError(t, d.AddServo(ctx, 15, sg90))

	tests := []struct {
		angle float64
		ticks gpio.Duty
	}{
		{0, 287},     // 1.4ms
		{-85, 123},   // 0.6ms
		{85, 471},    // 2.3ms
		{42.5, 379},  // 1.85ms
		{-42.5, 205}, // 1.0ms
		{120, 471},   // clamped to max
	}

	for _, tt := range tests {
		require.NoError(t, d.SetServoAngle(ctx, 15, tt.angle))
		last := dev.writes[len(dev.writes)-1]
		assert.Equal(t, 15, last.channel)
		assert.Equal(t, gpio.Duty(0), last.on)
		assert.Equal(t, tt.ticks, last.off, "angle %.1f", tt.angle)
	}
}

func TestPCA9685ServoResolution(t *testing.T) {
	ctx := context.Background()
	// 400Hz gives a 2.5ms period, shorter than this servo's longest pulse.
	d, dev, _ := newTestPCA(t, PCA9685Config{ServoFrequency: 400})

	cal := Calibration{
		PulseMin: 0.5, PulseMax: 3.0, PulseNeutral: 1.5,
		AngleMin: -85, AngleMax: 85, AngleNeutral: 0,
		Resolution: 1024,
	}
	require.NoError(t, d.AddServo(ctx, 4, cal))

	require.NoError(t, d.SetServoAngle(ctx, 4, -85))
	assert.Equal(t, gpio.Duty(205), dev.writes[len(dev.writes)-1].off)

	// Clamped to the servo's own counter range, not the board's.
	require.NoError(t, d.SetServoAngle(ctx, 4, 85))
	assert.Equal(t, gpio.Duty(1023), dev.writes[len(dev.writes)-1].off)
}

func TestPCA9685UnknownChannel(t *testing.T) {
	d, _, _ := newTestPCA(t, PCA9685Config{})

	err := d.SetServoAngle(context.Background(), 3, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))
}

func TestPCA9685AddServoValidation(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestPCA(t, PCA9685Config{})

	err := d.AddServo(ctx, 16, sg90)
	assert.True(t, errors.Is(err, ErrChannelRange))

	bad := sg90
	bad.PulseNeutral = 3
	err = d.AddServo(ctx, 1, bad)
	assert.True(t, errors.Is(err, ErrInvalidCalibration))
}

func TestPCA9685DeviceError(t *testing.T) {
	ctx := context.Background()
	d, dev, _ := newTestPCA(t, PCA9685Config{})
	require.NoError(t, d.AddServo(ctx, 0, sg90))

	boom := errors.New("i2c nack")
	dev.err = boom
	err := d.SetServoAngle(ctx, 0, 10)
	assert.True(t, errors.Is(err, boom))

	var chErr *ChannelError
	require.True(t, errors.As(err, &chErr))
	assert.Equal(t, 0, chErr.Channel)
}

func TestPCA9685Reset(t *testing.T) {
	ctx := context.Background()
	d, _, bus := newTestPCA(t, PCA9685Config{})
	require.NoError(t, d.AddServo(ctx, 2, sg90))

	require.NoError(t, d.Reset(ctx))
	require.Len(t, bus.Ops, 1)
	assert.Equal(t, uint16(0x00), bus.Ops[0].Addr)
	assert.Equal(t, []byte{0x06}, bus.Ops[0].W)

	// Reset forgets registrations.
	assert.True(t, errors.Is(d.SetServoAngle(ctx, 2, 0), ErrUnknownChannel))
}

func TestCalibrationPulse(t *testing.T) {
	// Neutral off-centre: the two halves have different slopes.
	cal := Calibration{
		PulseMin: 1.0, PulseMax: 2.0, PulseNeutral: 1.2,
		AngleMin: -10, AngleMax: 90, AngleNeutral: 0,
	}
	require.NoError(t, cal.Validate())

	assert.InDelta(t, 1.2, cal.Pulse(0), 1e-9)
	assert.InDelta(t, 1.0, cal.Pulse(-10), 1e-9)
	assert.InDelta(t, 1.1, cal.Pulse(-5), 1e-9)
	assert.InDelta(t, 1.6, cal.Pulse(45), 1e-9)
	assert.InDelta(t, 2.0, cal.Pulse(90), 1e-9)
	assert.InDelta(t, 2.0, cal.Pulse(180), 1e-9)
}
