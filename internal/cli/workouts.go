package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rbright/ringbell/internal/display"
	"github.com/rbright/ringbell/internal/workout"
)

func newWorkoutsCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workouts",
		Aliases: []string{"workout"},
		Short:   "Manage the workout library",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.listWorkouts()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored workouts",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(*cobra.Command, []string) error {
				return env.listWorkouts()
			},
		},
		&cobra.Command{
			Use:   "show <name>",
			Short: "Show the rounds of a workout",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(_ *cobra.Command, args []string) error {
				return env.showWorkout(args[0])
			},
		},
		&cobra.Command{
			Use:   "create <name> <title:seconds[:signal]>...",
			Short: "Create or replace a workout",
			Args:  usageArgs(cobra.MinimumNArgs(2)),
			RunE: func(_ *cobra.Command, args []string) error {
				rounds := make([]workout.Round, 0, len(args)-1)
				for _, raw := range args[1:] {
					r, err := parseRound(raw)
					if err != nil {
						return err
					}
					rounds = append(rounds, r)
				}
				return env.saveWorkout(workout.Workout{Name: strings.TrimSpace(args[0]), Rounds: rounds})
			},
		},
		&cobra.Command{
			Use:   "add-round <name> <title:seconds[:signal]>",
			Short: "Append a round to a workout",
			Args:  usageArgs(cobra.ExactArgs(2)),
			RunE: func(_ *cobra.Command, args []string) error {
				r, err := parseRound(args[1])
				if err != nil {
					return err
				}
				return env.editWorkout(args[0], func(w workout.Workout) (workout.Workout, error) {
					return w.AddRound(r), nil
				})
			},
		},
		&cobra.Command{
			Use:   "duplicate-round <name> <round>",
			Short: "Insert a copy of a round right after it",
			Args:  usageArgs(cobra.ExactArgs(2)),
			RunE: func(_ *cobra.Command, args []string) error {
				i, err := parseRoundNumber(args[1])
				if err != nil {
					return err
				}
				return env.editWorkout(args[0], func(w workout.Workout) (workout.Workout, error) {
					return w.DuplicateRound(i)
				})
			},
		},
		&cobra.Command{
			Use:   "remove-round <name> <round>",
			Short: "Remove a round from a workout",
			Args:  usageArgs(cobra.ExactArgs(2)),
			RunE: func(_ *cobra.Command, args []string) error {
				i, err := parseRoundNumber(args[1])
				if err != nil {
					return err
				}
				return env.editWorkout(args[0], func(w workout.Workout) (workout.Workout, error) {
					return w.RemoveRound(i)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a workout",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(_ *cobra.Command, args []string) error {
				library, err := env.library()
				if err != nil {
					return err
				}
				if err := library.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(env.Stdout, "deleted %s\n", args[0])
				return nil
			},
		},
		newImportCommand(env),
		newExportCommand(env),
	)
	return cmd
}

func newImportCommand(env *Env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import workouts from JSON or YAML; existing names are replaced",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := env.library()
			if err != nil {
				return err
			}

			source := args[0]
			f, err := resolveFormat(format, source)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if source != "-" {
				file, err := os.Open(source)
				if err != nil {
					return fmt.Errorf("open %s: %w", source, err)
				}
				defer file.Close()
				r = file
			}

			imported, err := library.Import(r, f)
			if err != nil {
				return err
			}
			for _, w := range imported {
				fmt.Fprintf(env.Stdout, "imported %s (%d rounds)\n", w.Name, len(w.Rounds))
			}
			if len(imported) == 0 {
				fmt.Fprintln(env.Stdout, "nothing to import")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the file extension)")
	return cmd
}

func newExportCommand(env *Env) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Export workouts as JSON or YAML (all when no name is given)",
		RunE: func(_ *cobra.Command, args []string) error {
			library, err := env.library()
			if err != nil {
				return err
			}
			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return library.Export(env.Stdout, f, args...)
			}
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := library.Export(file, f, args...); err != nil {
				_ = file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the output extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func (e *Env) listWorkouts() error {
	library, err := e.library()
	if err != nil {
		return err
	}
	workouts, err := library.List()
	if err != nil {
		return err
	}
	if len(workouts) == 0 {
		fmt.Fprintf(e.Stdout, "no workouts in %s\n", library.Path())
		return nil
	}
	for _, w := range workouts {
		fmt.Fprintf(e.Stdout, "%s  %d rounds  %s\n",
			w.Name, len(w.Rounds), display.FormatClock(int(w.TotalDuration().Seconds())))
	}
	return nil
}

func (e *Env) showWorkout(name string) error {
	library, err := e.library()
	if err != nil {
		return err
	}
	w, err := library.Get(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "%s (%s)\n", w.Name, display.FormatClock(int(w.TotalDuration().Seconds())))
	for i, r := range w.Rounds {
		fmt.Fprintf(e.Stdout, "%3d. %s  %s  %s\n", i+1, r.Title, display.FormatClock(r.DurationSeconds), r.Signal())
	}
	return nil
}

func (e *Env) saveWorkout(w workout.Workout) error {
	library, err := e.library()
	if err != nil {
		return err
	}
	if err := library.Save(w); err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "saved %s (%d rounds)\n", w.Name, len(w.Rounds))
	return nil
}

func (e *Env) editWorkout(name string, edit func(workout.Workout) (workout.Workout, error)) error {
	library, err := e.library()
	if err != nil {
		return err
	}
	w, err := library.Get(name)
	if err != nil {
		return err
	}
	w, err = edit(w)
	if err != nil {
		return err
	}
	return e.saveWorkout(w)
}

// parseRound reads "title:seconds" or "title:seconds:signal".
func parseRound(raw string) (workout.Round, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return workout.Round{}, &UsageError{Err: fmt.Errorf("round %q must be title:seconds[:signal]", raw)}
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return workout.Round{}, &UsageError{Err: fmt.Errorf("round %q: seconds must be a number", raw)}
	}
	r := workout.Round{Title: strings.TrimSpace(parts[0]), DurationSeconds: seconds}
	if len(parts) == 3 {
		r.SignalID = strings.TrimSpace(parts[2])
	}
	return r, r.Validate()
}

// parseRoundNumber converts a 1-based round number to an index.
func parseRoundNumber(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, &UsageError{Err: fmt.Errorf("round %q must be a positive number", raw)}
	}
	return n - 1, nil
}

func resolveFormat(flag, path string) (workout.Format, error) {
	if strings.TrimSpace(flag) != "" {
		f, err := workout.ParseFormat(flag)
		if err != nil {
			return "", &UsageError{Err: err}
		}
		return f, nil
	}
	return workout.FormatFromPath(path), nil
}
