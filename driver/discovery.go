package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// SerialPort describes a USB serial adapter that could host a servo bus.
type SerialPort struct {
	Name    string `json:"name"`
	Product string `json:"product,omitempty"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
}

// Suffix returns a short name for the port: /dev/ttyUSB0 -> "ttyUSB0",
// /dev/tty.usbmodem123 -> "usbmodem123".
func (p SerialPort) Suffix() string {
	base := filepath.Base(p.Name)
	if strings.HasPrefix(base, "tty.usb") {
		return strings.TrimPrefix(base, "tty.")
	}
	if strings.HasPrefix(base, "cu.usb") {
		return strings.TrimPrefix(base, "cu.")
	}
	return base
}

// CandidatePorts lists serial ports whose names look like USB adapters.
func CandidatePorts() ([]SerialPort, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var names []string
	details := make(map[string]*enumerator.PortDetails, len(ports))
	for _, port := range ports {
		names = append(names, port.Name)
		details[port.Name] = port
	}

	var out []SerialPort
	for _, name := range filterCandidatePorts(names) {
		d := details[name]
		out = append(out, SerialPort{Name: name, Product: d.Product, VID: d.VID, PID: d.PID})
	}
	return out, nil
}

// filterCandidatePorts filters serial ports by platform-specific naming patterns
func filterCandidatePorts(ports []string) []string {
	candidates := []string{}
	for _, port := range ports {
		if isCandidatePort(port) {
			candidates = append(candidates, port)
		}
	}
	return candidates
}

func isCandidatePort(port string) bool {
	// Linux
	if strings.HasPrefix(port, "/dev/ttyUSB") || strings.HasPrefix(port, "/dev/ttyACM") {
		return true
	}
	// macOS
	for _, prefix := range []string{"/dev/tty.usbmodem", "/dev/tty.usbserial", "/dev/cu.usbmodem", "/dev/cu.usbserial"} {
		if strings.HasPrefix(port, prefix) {
			return true
		}
	}
	// Windows
	return strings.HasPrefix(port, "COM")
}

// ProbeServos pings each id on the bus at port and returns those that answer.
func ProbeServos(ctx context.Context, cfg FeetechConfig, ids []int) ([]int, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	f, err := NewFeetechBus(cfg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if _, err := f.bus.Ping(ctx, id); err == nil {
			found = append(found, id)
		}
	}
	return found, nil
}

// I2CBuses initialises the host and lists the registered I2C buses.
func I2CBuses() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host: %w", err)
	}

	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names, nil
}
