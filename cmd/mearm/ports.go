package main

import (
	"fmt"

	"mearm/driver"
)

type PortsCommand struct {
	Probe []int `long:"probe" description:"Feetech servo IDs to ping on each serial port"`
}

func (c *PortsCommand) Execute(args []string) error {
	logger := newLogger()

	fmt.Println(headerStyle.Render("Serial ports"))
	ports, err := driver.CandidatePorts()
	if err != nil {
		logger.Warnw("Failed to enumerate serial ports", "error", err)
	}
	if len(ports) == 0 {
		fmt.Println(dimStyle.Render("  none found"))
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, p := range ports {
		line := "  " + p.Name
		if p.Product != "" {
			line += dimStyle.Render(fmt.Sprintf("  %s (%s:%s)", p.Product, p.VID, p.PID))
		}
		fmt.Println(line)

		if len(c.Probe) == 0 {
			continue
		}
		found, err := driver.ProbeServos(ctx, driver.FeetechConfig{Port: p.Name}, c.Probe)
		if err != nil {
			fmt.Println(failStyle.Render(fmt.Sprintf("    probe failed: %v", err)))
			continue
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("    servos: %v", found)))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("I2C buses"))
	buses, err := driver.I2CBuses()
	if err != nil {
		logger.Warnw("Failed to enumerate I2C buses", "error", err)
	}
	if len(buses) == 0 {
		fmt.Println(dimStyle.Render("  none found"))
	}
	for _, b := range buses {
		fmt.Println("  " + b)
	}
	return nil
}
