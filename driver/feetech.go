package driver

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/multierr"
)

// Bus servos in position mode follow the hobby-servo convention of mapping
// 0.5-2.5ms onto their full position range.
const (
	busPulseMin  = 0.5
	busPulseSpan = 2.0
)

// FeetechConfig configures a Feetech serial servo bus.
type FeetechConfig struct {
	Port     string        `json:"port,omitempty"`     // Serial port path (e.g., "/dev/ttyUSB0")
	BaudRate int           `json:"baudrate,omitempty"` // default: 1000000
	Timeout  time.Duration `json:"timeout,omitempty"`  // default: 1s

	// Tune writes the low-latency, low-shake register set to each servo as
	// it is added.
	Tune bool `json:"tune,omitempty"`

	// Transport overrides Port; used for tests.
	Transport feetech.Transport `json:"-"`
}

type busServo struct {
	servo *feetech.Servo
	cal   Calibration
}

// FeetechBus drives STS-series bus servos. A channel is a servo ID.
type FeetechBus struct {
	bus  *feetech.Bus
	tune bool

	mu     sync.Mutex
	servos map[int]busServo
}

// NewFeetechBus opens the bus described by cfg.
func NewFeetechBus(cfg FeetechConfig) (*FeetechBus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Transport: cfg.Transport,
		Port:      cfg.Port,
		BaudRate:  cfg.BaudRate,
		Protocol:  feetech.ProtocolSTS,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open feetech bus: %w", err)
	}
	return &FeetechBus{
		bus:    bus,
		tune:   cfg.Tune,
		servos: make(map[int]busServo),
	}, nil
}

// AddServo implements Driver. It enables torque on the servo.
func (f *FeetechBus) AddServo(ctx context.Context, channel int, cal Calibration) error {
	if err := validateChannel(channel); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}
	if err := cal.Validate(); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	servo := feetech.NewServo(f.bus, channel, &feetech.ModelSTS3215)
	if f.tune {
		if err := tuneServo(ctx, servo); err != nil {
			return &ChannelError{Channel: channel, Op: "add", Err: err}
		}
	}
	if err := servo.SetTorqueEnabled(ctx, true); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}
	f.servos[channel] = busServo{servo: servo, cal: cal}
	return nil
}

// SetServoAngle implements Driver.
func (f *FeetechBus) SetServoAngle(ctx context.Context, channel int, angle float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.servos[channel]
	if !ok {
		return &ChannelError{Channel: channel, Op: "set", Err: ErrUnknownChannel}
	}

	position := PulseToPosition(s.cal.Pulse(angle), s.servo.Model().MaxPosition)
	if err := s.servo.SetPosition(ctx, position); err != nil {
		return &ChannelError{Channel: channel, Op: "set", Err: err}
	}
	return nil
}

// Reset implements Driver. Torque is released on every registered servo so
// the arm can be moved by hand.
func (f *FeetechBus) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs error
	for channel, s := range f.servos {
		if err := s.servo.SetTorqueEnabled(ctx, false); err != nil {
			errs = multierr.Append(errs, &ChannelError{Channel: channel, Op: "reset", Err: err})
		}
	}
	f.servos = make(map[int]busServo)
	return errs
}

// Close closes the serial bus.
func (f *FeetechBus) Close() error {
	return f.bus.Close()
}

// busTuning is written in order by tuneServo. The response delay drops from
// 500us to 2us; the lower P gain stops the joint hunting under load.
var busTuning = []struct {
	register string
	value    byte
}{
	{"response_delay", 0},
	{"acceleration", 254},
	{"p_gain", 16},
	{"i_gain", 0},
	{"d_gain", 32},
}

func tuneServo(ctx context.Context, servo *feetech.Servo) error {
	var errs error
	for _, r := range busTuning {
		if err := servo.WriteRegister(ctx, r.register, []byte{r.value}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.register, err))
		}
	}
	return errs
}

// PulseToPosition maps a pulse width in milliseconds onto a bus servo
// position in [0, maxPosition].
func PulseToPosition(pulse float64, maxPosition int) int {
	p := int(math.Round((pulse - busPulseMin) / busPulseSpan * float64(maxPosition)))
	return min(max(p, 0), maxPosition)
}
