package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rbright/ringbell/internal/audio"
	"github.com/rbright/ringbell/internal/doctor"
)

var (
	errNoSinks      = errors.New("no playback sinks found")
	errDoctorFailed = errors.New("doctor found blocking failures")
)

func newDevicesCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List PulseAudio playback sinks",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			sinks, err := audio.ListSinks(cmd.Context())
			if err != nil {
				return err
			}
			if len(sinks) == 0 {
				return errNoSinks
			}
			for _, sink := range sinks {
				fmt.Fprintln(env.Stdout, sinkLine(sink))
			}
			return nil
		},
	}
}

func sinkLine(sink audio.Sink) string {
	defaultMark := " "
	if sink.Default {
		defaultMark = "*"
	}
	return fmt.Sprintf("%s id=%s | description=%q | state=%s | available=%s | muted=%s",
		defaultMark,
		sink.ID,
		sink.Description,
		sink.State,
		yesNo(sink.Available),
		yesNo(sink.Muted),
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func newDoctorCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, audio, speech and the diary server",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := doctor.Run(cmd.Context(), env.loaded, doctor.DefaultProbes())
			fmt.Fprintln(env.Stdout, report.String())
			if !report.OK() {
				return errDoctorFailed
			}
			return nil
		},
	}
}
