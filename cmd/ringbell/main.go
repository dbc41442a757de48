// Command ringbell runs boxing interval workouts and the workout diary server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/ringbell/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}
