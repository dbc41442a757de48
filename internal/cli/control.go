package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/display"
	"github.com/rbright/ringbell/internal/fsm"
	"github.com/rbright/ringbell/internal/ipc"
)

var controlShort = map[string]string{
	ipc.CommandStart:     "Start the current round",
	ipc.CommandPause:     "Pause the current round",
	ipc.CommandResume:    "Resume a paused round",
	ipc.CommandStop:      "Stop and reset the current round",
	ipc.CommandSkip:      "Skip to the next round",
	ipc.CommandTerminate: "End the workout",
}

// newControlCommands builds one command per IPC verb, forwarded to the
// process running the workout.
func newControlCommands(env *Env) []*cobra.Command {
	cmds := []*cobra.Command{{
		Use:   ipc.CommandStatus,
		Short: "Show the running workout's current round",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.status(cmd.Context())
		},
	}}

	for _, command := range ipc.Commands {
		if command == ipc.CommandStatus {
			continue
		}
		cmds = append(cmds, &cobra.Command{
			Use:   command,
			Short: controlShort[command],
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, _ []string) error {
				return env.forward(cmd.Context(), command)
			},
		})
	}
	return cmds
}

// status prints "idle" when no workout is running.
func (e *Env) status(ctx context.Context) error {
	ep, err := ipc.DefaultEndpoint()
	if err != nil {
		fmt.Fprintln(e.Stdout, "idle")
		return nil
	}

	resp, err := ep.Call(ctx, ipc.CommandStatus)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(e.Stdout, "idle")
		return nil
	}
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	fmt.Fprintln(e.Stdout, statusLine(resp))
	return nil
}

func (e *Env) forward(ctx context.Context, command string) error {
	ep, err := ipc.DefaultEndpoint()
	if err != nil {
		return err
	}

	resp, err := ep.Call(ctx, command)
	if err != nil {
		return err
	}
	e.Logger.Debug("command forwarded",
		zap.String("command", command),
		zap.Bool("ok", resp.OK),
		zap.String("state", resp.State),
	)
	if !resp.OK {
		return errors.New(resp.Error)
	}
	if resp.Message != "" {
		fmt.Fprintln(e.Stdout, resp.Message)
	}
	return nil
}

func statusLine(resp ipc.Response) string {
	if resp.Round == nil {
		if resp.State == "" {
			return "idle"
		}
		return resp.State
	}
	r := resp.Round
	return fmt.Sprintf("%s  [%d/%d] %s  %s  %s",
		r.Workout,
		r.Index+1,
		r.Count,
		r.Title,
		display.FormatClock(r.Remaining),
		display.StatusLabel(fsm.State(resp.State)),
	)
}
