package mearm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mearm/kinematics"
)

// Sentinel errors. Structured errors below match them through errors.Is.
var (
	ErrInvalidChannel     = errors.New("invalid servo channel")
	ErrDuplicateInstance  = errors.New("an arm already exists")
	ErrUnreachableTarget  = errors.New("target unreachable")
	ErrNotInitialized     = errors.New("arm not initialized")
	ErrAlreadyInitialized = errors.New("arm already initialized")
	ErrShutDown           = errors.New("arm shut down")
	ErrInvalidConfig      = errors.New("invalid config")
)

// ChannelError lists every joint whose channel is outside [0, 15].
type ChannelError struct {
	Channels map[Joint]int
}

func (e *ChannelError) Error() string {
	joints := make([]string, 0, len(e.Channels))
	for j, ch := range e.Channels {
		joints = append(joints, fmt.Sprintf("%s=%d", j, ch))
	}
	sort.Strings(joints)
	return fmt.Sprintf("%v: %s", ErrInvalidChannel, strings.Join(joints, ", "))
}

func (e *ChannelError) Is(target error) bool {
	return target == ErrInvalidChannel
}

// UnreachableError reports a target outside the arm's envelope. Joint is the
// first joint found out of range, or empty when no solution exists at all.
type UnreachableError struct {
	Target kinematics.Point
	Angles kinematics.JointAngles
	Joint  Joint
}

func (e *UnreachableError) Error() string {
	if e.Joint == "" {
		return fmt.Sprintf("%v: %v has no solution", ErrUnreachableTarget, e.Target)
	}
	return fmt.Sprintf("%v: %v needs %s outside its limits (%v)", ErrUnreachableTarget, e.Target, e.Joint, e.Angles)
}

func (e *UnreachableError) Is(target error) bool {
	return target == ErrUnreachableTarget
}
