package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

// gametest stands in for a game under the launcher: it runs until it is closed,
// signalled or its run duration elapses
type flagOptions struct {
	RunDuration  int  `long:"run-duration" description:"Exit on its own after this many seconds"`
	StartupDelay int  `long:"startup-delay" description:"Seconds to wait before reporting ready"`
	IgnoreTerm   bool `long:"ignore-term" description:"Ignore graceful close requests so the launcher has to kill"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running Gametest, PID: %d, opts: %+v...\n", os.Getpid(), opts)

	ctx := context.Background()
	if opts.RunDuration > 0 {
		fmt.Printf("Using RUN DURATION of %d seconds\n", opts.RunDuration)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RunDuration)*time.Second)
		defer cancel()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	if opts.StartupDelay > 0 {
		time.Sleep(time.Duration(opts.StartupDelay) * time.Second)
	}
	fmt.Printf("Gametest is ready\n")

	for {
		select {
		case receivedSignal := <-sig:
			if opts.IgnoreTerm {
				fmt.Printf("Gametest ignoring signal: %v\n", receivedSignal)
				continue
			}
			fmt.Printf("Gametest received signal: %v\n", receivedSignal)
		case <-ctx.Done():
			fmt.Printf("Gametest run duration elapsed\n")
		}
		break
	}

	fmt.Printf("Gametest stopped\n")
}
