package mearm

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"

	"mearm/driver"
)

// Registry owns at most one live Arm. The slot is taken by a successful
// construction and freed when that arm shuts down.
type Registry struct {
	mu     sync.Mutex
	active *Arm
}

func NewRegistry() *Registry {
	return &Registry{}
}

// New constructs an arm on d. The config is validated first; after that it
// fails with ErrDuplicateInstance while another arm from this registry is
// live. When cfg.Initialize is set the arm
// is initialized before it is returned; if that fails the arm is shut down
// and the slot stays free.
func (r *Registry) New(ctx context.Context, d driver.Driver, cfg Config) (*Arm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrDuplicateInstance
	}
	return r.createLocked(ctx, d, cfg)
}

// CreateWithServoParameters returns the live arm if there is one. Otherwise
// it constructs and initializes an arm with the default configuration on the
// given channels. The channels are ignored when an arm already exists.
func (r *Registry) CreateWithServoParameters(ctx context.Context, d driver.Driver, ch Channels, logger logging.Logger) (*Arm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return r.active, nil
	}

	cfg := DefaultConfig()
	cfg.SetChannels(ch)
	cfg.Initialize = true
	cfg.Logger = logger
	return r.createLocked(ctx, d, cfg)
}

func (r *Registry) createLocked(ctx context.Context, d driver.Driver, cfg Config) (*Arm, error) {
	a, err := newArm(d, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Initialize {
		if err := a.Initialize(ctx); err != nil {
			if shutdownErr := a.Shutdown(ctx); shutdownErr != nil {
				a.logger.Warnw("Cleanup after failed initialize", "error", shutdownErr)
			}
			return nil, err
		}
	}

	a.release = func() { r.release(a) }
	r.active = a
	return a, nil
}

func (r *Registry) release(a *Arm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == a {
		r.active = nil
	}
}

// Active returns the live arm, or nil.
func (r *Registry) Active() *Arm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ShutdownActive shuts down the live arm, if any.
func (r *Registry) ShutdownActive(ctx context.Context) error {
	a := r.Active()
	if a == nil {
		return nil
	}
	return a.Shutdown(ctx)
}

// WithArm constructs an arm, runs fn with it and shuts it down however fn
// exits, including by panic. Shutdown failures are combined with fn's error.
func (r *Registry) WithArm(ctx context.Context, d driver.Driver, cfg Config, fn func(context.Context, *Arm) error) (err error) {
	a, err := r.New(ctx, d, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Shutdown(ctx))
	}()
	return fn(ctx, a)
}
