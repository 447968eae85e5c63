package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zoobzio/loopz"
)

type demo struct {
	run         func(ctx context.Context) error
	name        string
	description string
}

var demos = []demo{
	{name: "sleep", description: "Timed wakeups interleaving two tasks", run: demoSleep},
	{name: "race", description: "First child wins, losers are closed", run: demoRace},
	{name: "channel", description: "Rendezvous and publish between tasks", run: demoChannel},
}

var demoCmd = &cobra.Command{
	Use:   "demo [name]",
	Short: "Run a demo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range demos {
			if d.name == args[0] {
				return d.run(cmd.Context())
			}
		}
		return fmt.Errorf("unknown demo %q, try: loopz list", args[0])
	},
}

func demoSleep(ctx context.Context) error {
	sched := loopz.New()
	defer sched.Shutdown()

	tick := loopz.NewFiber("tick", func(aw *loopz.Await) (any, error) {
		for i := 1; i <= 3; i++ {
			if _, err := aw.Await(loopz.NewSleep(100 * time.Millisecond)); err != nil {
				return nil, err
			}
			fmt.Printf("tick %d\n", i)
		}
		return nil, nil
	})
	tock := loopz.NewFiber("tock", func(aw *loopz.Await) (any, error) {
		for i := 1; i <= 2; i++ {
			if _, err := aw.Await(loopz.NewSleep(150 * time.Millisecond)); err != nil {
				return nil, err
			}
			fmt.Printf("tock %d\n", i)
		}
		return nil, nil
	})

	if err := sched.Schedule(tick, nil); err != nil {
		return err
	}
	if err := sched.Schedule(tock, nil); err != nil {
		return err
	}
	return sched.Run(ctx)
}

func demoRace(ctx context.Context) error {
	sched := loopz.New()
	defer sched.Shutdown()

	slow := loopz.NewFiber("slow", func(aw *loopz.Await) (any, error) {
		defer fmt.Println("slow: closed before finishing")
		if _, err := aw.Await(loopz.NewSleep(time.Second)); err != nil {
			return nil, err
		}
		return "slow result", nil
	})

	racer := loopz.NewFiber("racer", func(aw *loopz.Await) (any, error) {
		fmt.Println("racing a 1s task against a 100ms deadline")
		result, err := aw.Await(loopz.NewRace(
			slow,
			loopz.Once(loopz.NewSleep(100*time.Millisecond)),
		))
		if err != nil {
			return nil, err
		}
		fmt.Printf("winner result: %v\n", result)
		return nil, nil
	})

	if err := sched.Schedule(racer, nil); err != nil {
		return err
	}
	return sched.Run(ctx)
}

func demoChannel(ctx context.Context) error {
	sched := loopz.New()
	defer sched.Shutdown()

	signal := loopz.NewChan()

	consumer := loopz.NewFiber("consumer", func(aw *loopz.Await) (any, error) {
		for {
			v, err := aw.Await(signal.Take())
			if errors.Is(err, loopz.ErrCanceled) {
				return nil, err
			}
			if err != nil {
				return nil, err
			}
			fmt.Printf("consumer got: %v\n", v)
			if v == "last" {
				return nil, nil
			}
		}
	})

	producer := loopz.NewFiber("producer", func(aw *loopz.Await) (any, error) {
		signal.Publish(sched, "published without waiting")
		fmt.Println("producer: publish returned immediately")
		if _, err := aw.Await(signal.Put("put with await")); err != nil {
			return nil, err
		}
		fmt.Println("producer: put handed off")
		if _, err := aw.Await(signal.Put("last")); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err := sched.Schedule(consumer, nil); err != nil {
		return err
	}
	if err := sched.Schedule(producer, nil); err != nil {
		return err
	}
	return sched.Run(ctx)
}
