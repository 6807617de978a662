package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver failures.
var (
	ErrUnknownChannel     = errors.New("channel not registered")
	ErrInvalidCalibration = errors.New("invalid calibration")
	ErrChannelRange       = errors.New("channel out of range")
)

// ChannelError records which channel a driver operation failed on.
type ChannelError struct {
	Channel int
	Op      string // "add", "set" or "reset"
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %d %s: %v", e.Channel, e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
