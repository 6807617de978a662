package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/jessevdk/go-flags"
	"go.viam.com/rdk/logging"

	"mearm"
	"mearm/driver"
)

type Options struct {
	Config string `short:"c" long:"config" description:"JSON config file (defaults are used when omitted)"`
	Driver string `short:"d" long:"driver" default:"pca9685" choice:"pca9685" choice:"feetech" choice:"mock" description:"Servo driver"`
	I2CBus string `long:"i2c-bus" description:"I2C bus name for the PCA9685 (first available when empty)"`
	Port   string `short:"p" long:"port" description:"Serial port for the Feetech bus"`
	Debug  bool   `long:"debug" description:"Enable debug logging"`

	GoTo  GoToCommand  `command:"goto" description:"Move the gripper to X Y Z in a straight line"`
	Reach ReachCommand `command:"reach" description:"Report whether X Y Z is reachable and the joint angles it needs"`
	Open  OpenCommand  `command:"open" description:"Open the gripper"`
	Close CloseCommand `command:"close" description:"Close the gripper"`
	Test  TestCommand  `command:"test" description:"Sweep every joint through its range"`
	Ports PortsCommand `command:"ports" description:"List serial ports and I2C buses"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	parser.LongDescription = "meArm - Cartesian control for the four-servo meArm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func newLogger() logging.Logger {
	logger := logging.NewLogger("mearm")
	if opts.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	return logger
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfig(logger logging.Logger) (mearm.Config, error) {
	if opts.Config == "" {
		cfg := mearm.DefaultConfig()
		cfg.Logger = logger
		return cfg, nil
	}
	return mearm.LoadConfigFromFile(opts.Config, logger)
}

// openDriver opens the selected driver. The returned func releases the
// hardware and is safe to call once the arm has shut down.
func openDriver(cfg mearm.Config) (driver.Driver, func() error, error) {
	switch opts.Driver {
	case "mock":
		return driver.NewMock(), func() error { return nil }, nil
	case "feetech":
		if opts.Port == "" {
			return nil, nil, fmt.Errorf("--port is required for the feetech driver")
		}
		bus, err := driver.NewFeetechBus(driver.FeetechConfig{Port: opts.Port, Tune: true})
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	default:
		board, err := driver.OpenPCA9685(opts.I2CBus, cfg.PCA9685())
		if err != nil {
			return nil, nil, err
		}
		return board, board.Close, nil
	}
}

// runArm builds an arm on the selected driver, runs fn with it and always
// shuts the arm down and releases the driver.
func runArm(fn func(context.Context, *mearm.Arm) error) (err error) {
	logger := newLogger()
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	d, release, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := release(); closeErr != nil {
			logger.Warnw("Failed to release driver", "error", closeErr)
		}
	}()

	ctx, cancel := signalContext()
	defer cancel()

	return mearm.WithArm(ctx, d, cfg, fn)
}

func printState(a *mearm.Arm) {
	s := a.State()
	fmt.Printf("%s %v\n", dimStyle.Render("position:"), s.Position)
	fmt.Printf("%s hip=%.1f shoulder=%.1f elbow=%.1f\n", dimStyle.Render("angles:  "), s.Angles.Hip, s.Angles.Shoulder, s.Angles.Elbow)
}
