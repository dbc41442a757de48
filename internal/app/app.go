// Package app is the process entry point: it runs the command tree and maps
// the outcome onto an exit code.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/cli"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	env := &cli.Env{Stdin: r.Stdin, Stdout: r.Stdout, Stderr: r.Stderr, Logger: r.Logger}
	defer func() { _ = env.Close() }()

	root := cli.NewRoot(env)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}

	if cli.IsUsage(err) {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		if cmd == nil {
			cmd = root
		}
		fmt.Fprint(r.Stderr, cmd.UsageString())
		return ExitUsage
	}

	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	if env.Logger != nil {
		env.Logger.Error("command failed", zap.Strings("args", args), zap.Error(err))
	}
	return ExitFailure
}
