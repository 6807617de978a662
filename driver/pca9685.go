package driver

import (
	"context"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

const (
	// DefaultPCA9685Address is the board's factory I2C address.
	DefaultPCA9685Address uint16 = 0x40

	// nominalOscillator is the clock the pca9685 package assumes when it
	// computes the prescaler.
	nominalOscillator = 25_000_000

	generalCallAddress uint16 = 0x00
	softwareReset      byte   = 0x06
)

// PCA9685Config configures a PCA9685 board.
type PCA9685Config struct {
	Address        uint16 `json:"address,omitempty"`         // I2C address (default: 0x40)
	ServoFrequency int    `json:"servo_frequency,omitempty"` // PWM frequency in Hz (default: 50)
	BoardFrequency int    `json:"board_frequency,omitempty"` // Oscillator frequency in Hz (default: 25MHz)
	Resolution     int    `json:"resolution,omitempty"`      // Counter steps per period (default: 4096)
}

// withDefaults fills zero fields.
func (cfg PCA9685Config) withDefaults() PCA9685Config {
	if cfg.Address == 0 {
		cfg.Address = DefaultPCA9685Address
	}
	if cfg.ServoFrequency == 0 {
		cfg.ServoFrequency = 50
	}
	if cfg.BoardFrequency == 0 {
		cfg.BoardFrequency = nominalOscillator
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = 4096
	}
	return cfg
}

// requestedFrequency returns the frequency to hand the pca9685 package so
// that a board whose oscillator runs at BoardFrequency outputs ServoFrequency.
func (cfg PCA9685Config) requestedFrequency() physic.Frequency {
	hz := float64(cfg.ServoFrequency) * nominalOscillator / float64(cfg.BoardFrequency)
	return physic.Frequency(math.Round(hz * float64(physic.Hertz)))
}

// PWMDevice is the subset of *pca9685.Dev the driver uses.
type PWMDevice interface {
	SetPwmFreq(freq physic.Frequency) error
	SetPwm(channel int, on, off gpio.Duty) error
}

// PCA9685 drives hobby servos from a PCA9685 16-channel PWM board.
type PCA9685 struct {
	bus    i2c.Bus
	closer func() error
	dev    PWMDevice
	cfg    PCA9685Config

	mu     sync.Mutex
	servos map[int]Calibration
}

// OpenPCA9685 initialises the host, opens the named I2C bus ("" for the
// first available) and attaches to the board. Close releases the bus.
func OpenPCA9685(busName string, cfg PCA9685Config) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}

	d, err := NewPCA9685(bus, cfg)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.closer = bus.Close
	return d, nil
}

// NewPCA9685 attaches to a board on an already open bus.
func NewPCA9685(bus i2c.Bus, cfg PCA9685Config) (*PCA9685, error) {
	cfg = cfg.withDefaults()

	dev, err := pca9685.NewI2C(bus, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to attach PCA9685 at 0x%02x: %w", cfg.Address, err)
	}
	return NewPCA9685WithDevice(bus, dev, cfg)
}

// NewPCA9685WithDevice builds the driver around an existing device. The bus
// is only used for the general-call reset.
func NewPCA9685WithDevice(bus i2c.Bus, dev PWMDevice, cfg PCA9685Config) (*PCA9685, error) {
	cfg = cfg.withDefaults()
	if cfg.ServoFrequency <= 0 || cfg.BoardFrequency <= 0 || cfg.Resolution <= 0 {
		return nil, fmt.Errorf("invalid PCA9685 config: servo=%dHz board=%dHz resolution=%d",
			cfg.ServoFrequency, cfg.BoardFrequency, cfg.Resolution)
	}

	if err := dev.SetPwmFreq(cfg.requestedFrequency()); err != nil {
		return nil, fmt.Errorf("failed to set PWM frequency to %dHz: %w", cfg.ServoFrequency, err)
	}

	return &PCA9685{
		bus:    bus,
		dev:    dev,
		cfg:    cfg,
		servos: make(map[int]Calibration),
	}, nil
}

// AddServo implements Driver.
func (d *PCA9685) AddServo(_ context.Context, channel int, cal Calibration) error {
	if err := validateChannel(channel); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}
	if err := cal.Validate(); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.servos[channel] = cal
	return nil
}

// SetServoAngle implements Driver.
func (d *PCA9685) SetServoAngle(_ context.Context, channel int, angle float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cal, ok := d.servos[channel]
	if !ok {
		return &ChannelError{Channel: channel, Op: "set", Err: ErrUnknownChannel}
	}

	off := d.ticks(cal, angle)
	if err := d.dev.SetPwm(channel, 0, gpio.Duty(off)); err != nil {
		return &ChannelError{Channel: channel, Op: "set", Err: err}
	}
	return nil
}

// ticks returns the off-count for angle on a servo with calibration cal.
func (d *PCA9685) ticks(cal Calibration, angle float64) int {
	resolution := cal.Resolution
	if resolution == 0 {
		resolution = d.cfg.Resolution
	}
	t := Ticks(cal.Pulse(angle), d.cfg.ServoFrequency, resolution)
	return min(max(t, 0), resolution-1)
}

// Reset issues the I2C general-call software reset, which returns every
// PCA9685 on the bus to its power-on state.
func (d *PCA9685) Reset(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.servos = make(map[int]Calibration)
	if err := d.bus.Tx(generalCallAddress, []byte{softwareReset}, nil); err != nil {
		return fmt.Errorf("software reset failed: %w", err)
	}
	return nil
}

// Close releases the bus if OpenPCA9685 opened it.
func (d *PCA9685) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
