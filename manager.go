package mearm

import (
	"context"

	"go.viam.com/rdk/logging"

	"mearm/driver"
)

// defaultRegistry backs the package-level constructors.
var defaultRegistry = NewRegistry()

// New constructs an arm in the default registry. See Registry.New.
func New(ctx context.Context, d driver.Driver, cfg Config) (*Arm, error) {
	return defaultRegistry.New(ctx, d, cfg)
}

// CreateWithServoParameters gets or creates the default registry's arm. See
// Registry.CreateWithServoParameters.
func CreateWithServoParameters(ctx context.Context, d driver.Driver, ch Channels, logger logging.Logger) (*Arm, error) {
	return defaultRegistry.CreateWithServoParameters(ctx, d, ch, logger)
}

// Active returns the default registry's live arm, or nil.
func Active() *Arm {
	return defaultRegistry.Active()
}

// ShutdownActive shuts down the default registry's live arm, if any.
func ShutdownActive(ctx context.Context) error {
	return defaultRegistry.ShutdownActive(ctx)
}

// WithArm runs fn with an arm from the default registry and always shuts it
// down afterwards.
func WithArm(ctx context.Context, d driver.Driver, cfg Config, fn func(context.Context, *Arm) error) error {
	return defaultRegistry.WithArm(ctx, d, cfg, fn)
}
