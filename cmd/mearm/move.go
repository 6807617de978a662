package main

import (
	"context"
	"fmt"

	"mearm"
	"mearm/kinematics"
)

// PointArgs are the X Y Z positional arguments in millimetres.
type PointArgs struct {
	X float64 `positional-arg-name:"X" required:"yes"`
	Y float64 `positional-arg-name:"Y" required:"yes"`
	Z float64 `positional-arg-name:"Z" required:"yes"`
}

func (p PointArgs) Point() kinematics.Point {
	return kinematics.NewPoint(p.X, p.Y, p.Z)
}

type GoToCommand struct {
	Direct     bool    `long:"direct" description:"Move in a single step instead of along a straight line"`
	Resolution float64 `short:"r" long:"resolution" description:"Millimetres between waypoints (config value when 0)"`

	Args PointArgs `positional-args:"yes" required:"yes"`
}

func (c *GoToCommand) Execute(args []string) error {
	target := c.Args.Point()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Moving to %v", target)))

	return runArm(func(ctx context.Context, a *mearm.Arm) error {
		var err error
		switch {
		case c.Direct:
			err = a.GoDirectlyTo(ctx, target)
		case c.Resolution > 0:
			err = a.GoToWithResolution(ctx, target, c.Resolution)
		default:
			err = a.GoTo(ctx, target)
		}
		if err != nil {
			fmt.Println(failStyle.Render(err.Error()))
			return err
		}
		fmt.Println(successStyle.Render("Arrived"))
		printState(a)
		return nil
	})
}

type ReachCommand struct {
	Args PointArgs `positional-args:"yes" required:"yes"`
}

func (c *ReachCommand) Execute(args []string) error {
	target := c.Args.Point()

	// Reachability needs no hardware.
	opts.Driver = "mock"
	return runArm(func(_ context.Context, a *mearm.Arm) error {
		ok, angles, err := a.IsReachable(target)
		if err != nil {
			return err
		}
		switch {
		case ok:
			fmt.Println(successStyle.Render(fmt.Sprintf("%v is reachable", target)))
		case angles == (kinematics.JointAngles{}):
			fmt.Println(failStyle.Render(fmt.Sprintf("%v has no solution", target)))
			return nil
		default:
			fmt.Println(failStyle.Render(fmt.Sprintf("%v is outside the joint limits", target)))
		}
		fmt.Printf("%s hip=%.1f shoulder=%.1f elbow=%.1f\n", dimStyle.Render("angles:"), angles.Hip, angles.Shoulder, angles.Elbow)
		return nil
	})
}

type OpenCommand struct{}

func (c *OpenCommand) Execute(args []string) error {
	return runArm(func(ctx context.Context, a *mearm.Arm) error {
		return a.OpenGripper(ctx)
	})
}

type CloseCommand struct{}

func (c *CloseCommand) Execute(args []string) error {
	return runArm(func(ctx context.Context, a *mearm.Arm) error {
		return a.CloseGripper(ctx)
	})
}
