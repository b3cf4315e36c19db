package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/isdelr/ender-tasks/internal/client/cli"
	"github.com/isdelr/ender-tasks/internal/logger"
)

func main() {
	level := os.Getenv("TASKCTL_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger.Init(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(os.Stdin, os.Stdout)
	err := app.Command().ExecuteContext(ctx)
	if cerr := app.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
