package main

import (
	"context"
	"errors"
	"fmt"

	"mearm"
)

type TestCommand struct {
	Args struct {
		Cycles int `positional-arg-name:"cycles" description:"Sweep cycles (0 runs until interrupted)"`
	} `positional-args:"yes"`
}

func (c *TestCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("meArm smoke test"))
	if c.Args.Cycles == 0 {
		fmt.Println(dimStyle.Render("Press Ctrl-C to stop"))
	}

	return runArm(func(ctx context.Context, a *mearm.Arm) error {
		err := a.SmokeTest(ctx, c.Args.Cycles)
		if errors.Is(err, context.Canceled) {
			fmt.Println(dimStyle.Render("Interrupted, parking"))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render("Smoke test complete"))
		return nil
	})
}
