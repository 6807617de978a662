package driver

import (
	"context"
	"sync"
)

// Call is one recorded Mock operation.
type Call struct {
	Op          string // "add", "set" or "reset"
	Channel     int
	Angle       float64
	Calibration Calibration
}

// Mock is an in-memory Driver for tests and dry runs. It records every call.
type Mock struct {
	// Fail, when set, is consulted before each operation. A non-nil return
	// fails the call without recording it.
	Fail func(op string, channel int) error

	mu     sync.Mutex
	calls  []Call
	servos map[int]Calibration
	angles map[int]float64
	resets int
}

// NewMock returns an empty Mock.
func NewMock() *Mock {
	return &Mock{
		servos: make(map[int]Calibration),
		angles: make(map[int]float64),
	}
}

// AddServo implements Driver.
func (m *Mock) AddServo(_ context.Context, channel int, cal Calibration) error {
	if err := validateChannel(channel); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}
	if err := cal.Validate(); err != nil {
		return &ChannelError{Channel: channel, Op: "add", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("add", channel); err != nil {
		return err
	}
	m.servos[channel] = cal
	delete(m.angles, channel)
	m.calls = append(m.calls, Call{Op: "add", Channel: channel, Calibration: cal})
	return nil
}

// SetServoAngle implements Driver.
func (m *Mock) SetServoAngle(_ context.Context, channel int, angle float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servos[channel]; !ok {
		return &ChannelError{Channel: channel, Op: "set", Err: ErrUnknownChannel}
	}
	if err := m.fail("set", channel); err != nil {
		return err
	}
	m.angles[channel] = angle
	m.calls = append(m.calls, Call{Op: "set", Channel: channel, Angle: angle})
	return nil
}

// Reset implements Driver.
func (m *Mock) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail("reset", -1); err != nil {
		return err
	}
	m.servos = make(map[int]Calibration)
	m.angles = make(map[int]float64)
	m.resets++
	m.calls = append(m.calls, Call{Op: "reset", Channel: -1})
	return nil
}

func (m *Mock) fail(op string, channel int) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, channel)
}

// Calls returns a copy of the recorded calls in order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsFor returns the recorded calls with the given op.
func (m *Mock) CallsFor(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Angle returns the last angle commanded on channel.
func (m *Mock) Angle(channel int) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.angles[channel]
	return a, ok
}

// Registered reports whether channel has a calibration.
func (m *Mock) Registered(channel int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.servos[channel]
	return ok
}

// Resets returns how many times Reset succeeded.
func (m *Mock) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// ClearCalls forgets the recorded calls but keeps channel state.
func (m *Mock) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
