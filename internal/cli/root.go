// Package cli defines the ringbell command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/config"
	"github.com/rbright/ringbell/internal/logging"
	"github.com/rbright/ringbell/internal/version"
)

// UsageError marks a malformed invocation: bad flags, wrong argument count,
// or an unknown command.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// IsUsage reports whether err came from a malformed invocation.
func IsUsage(err error) bool {
	var usage *UsageError
	if errors.As(err, &usage) {
		return true
	}
	// cobra reports unknown subcommands as plain errors.
	return err != nil && strings.HasPrefix(err.Error(), "unknown command")
}

// Env carries the process streams and the state loaded before a command runs.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Logger overrides the file logger. Tests set it.
	Logger *zap.Logger

	configPath string
	loaded     config.Loaded
	logs       logging.Runtime
}

// Close flushes the runtime logger.
func (e *Env) Close() error {
	return e.logs.Close()
}

// setup loads config and opens the runtime log. Config warnings go to stderr.
func (e *Env) setup(cmd *cobra.Command) error {
	loaded, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	e.loaded = loaded

	if e.Logger == nil {
		logs, err := logging.New(loaded.Config.Log.Level)
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		e.logs = logs
		e.Logger = logs.Logger
	}

	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(e.Stderr, "warning: %s\n", msg)
		e.Logger.Warn("config warning", zap.Int("line", w.Line), zap.String("message", w.Message))
	}

	e.Logger.Info("command start",
		zap.String("command", cmd.CommandPath()),
		zap.String("config", loaded.Path),
		zap.String("log", e.logs.Path),
	)
	return nil
}

func (e *Env) cfg() config.Config { return e.loaded.Config }

// NewRoot builds the command tree bound to env.
func NewRoot(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "ringbell",
		Short:         "Boxing interval timer with spoken rounds and a workout diary",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipSetup(cmd) {
				return nil
			}
			return env.setup(cmd)
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	root.PersistentFlags().StringVar(&env.configPath, "config", "", "path to config.toml")

	root.AddCommand(
		newRunCommand(env),
		newServeCommand(env),
		newWorkoutsCommand(env),
		newDiaryCommand(env),
		newDevicesCommand(env),
		newDoctorCommand(env),
	)
	for _, c := range newControlCommands(env) {
		root.AddCommand(c)
	}
	version.AttachCobraVersionCommand(root)
	return root
}

func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return false
}

// usageArgs tags argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
