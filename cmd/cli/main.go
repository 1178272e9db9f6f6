package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/stagerun/internal/app"
	"github.com/vk/stagerun/internal/cli"
	"github.com/vk/stagerun/internal/procwire"
)

// main is the entrypoint for the stagerun binary. When spawned by the
// processes strategy it serves jobs instead of parsing the CLI.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if os.Getenv(procwire.EnvWorker) == "1" {
		if err := procwire.Serve(context.Background(), os.Stdin, os.Stdout, app.CoreRegistry()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	stagerunApp := app.NewApp(outW, appConfig)
	return stagerunApp.Run(context.Background(), appConfig)
}
