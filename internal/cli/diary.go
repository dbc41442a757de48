package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbright/ringbell/internal/diary"
	"github.com/rbright/ringbell/internal/sentiment"
)

const diaryTimeout = 30 * time.Second

func newDiaryCommand(env *Env) *cobra.Command {
	var history int
	cmd := &cobra.Command{
		Use:   "diary [text...]",
		Short: "Send a workout reflection and print the motivational reply",
		Long: "Send a workout reflection to the diary server and print the reply.\n" +
			"Without arguments the reflection is read from stdin.\n" +
			"With --history N the most recent entries are listed instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history > 0 {
				if len(args) > 0 {
					return &UsageError{Err: errors.New("--history does not take a reflection")}
				}
				return env.history(cmd.Context(), history)
			}

			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read reflection: %w", err)
				}
				text = strings.TrimSpace(string(raw))
			}
			if text == "" {
				return &UsageError{Err: diary.ErrEmptyText}
			}
			return env.reflect(cmd.Context(), text)
		},
	}
	cmd.Flags().IntVar(&history, "history", 0, "list the N most recent diary entries")
	return cmd
}

func (e *Env) diaryClient() (*diary.Client, error) {
	return diary.NewClient(e.cfg().Diary.ServerURL, diaryTimeout)
}

// reflect prints the proxy's reply. When the proxy cannot be reached the
// neutral fallback message is still printed and the error is returned.
func (e *Env) reflect(ctx context.Context, text string) error {
	client, err := e.diaryClient()
	if err != nil {
		return err
	}

	analysis, err := client.Analyze(ctx, text)
	if err != nil {
		e.Logger.Warn("diary analyze failed", zap.Error(err))
		fmt.Fprintln(e.Stdout, sentiment.FallbackMessage(string(sentiment.Neutral)))
		return err
	}

	fmt.Fprintf(e.Stdout, "Sentiment: %s\n\n%s\n", analysis.Sentiment, analysis.Feedback)
	if analysis.Fallback {
		e.Logger.Info("diary used fallback feedback", zap.String("sentiment", string(analysis.Sentiment)))
	}
	return nil
}

func (e *Env) history(ctx context.Context, limit int) error {
	client, err := e.diaryClient()
	if err != nil {
		return err
	}
	entries, err := client.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(e.Stdout, "no diary entries")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(e.Stdout, "%s  %-8s  %s\n",
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.Sentiment,
			entry.Text,
		)
	}
	return nil
}
